// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package cowrie

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aegis-intel/internal/models"
)

// Event identifiers emitted by Cowrie.
const (
	TagSessionConnect = "cowrie.session.connect"
	TagSessionClosed  = "cowrie.session.closed"
	TagLoginSuccess   = "cowrie.login.success"
	TagLoginFailed    = "cowrie.login.failed"
	TagCommandInput   = "cowrie.command.input"
	TagLogClosed      = "cowrie.log.closed"
	TagFileDownload   = "cowrie.session.file_download"
	TagFileUpload     = "cowrie.session.file_upload"
)

// UnknownCredential replaces a username or password missing from a login event.
const UnknownCredential = "unknown"

// Status classifies the outcome of decoding one line.
type Status int

const (
	// StatusDecoded means the line was valid JSON; Events may still be empty.
	StatusDecoded Status = iota
	// StatusBlank means the line held only whitespace.
	StatusBlank
	// StatusRejected means the line was not a JSON object or array.
	StatusRejected
)

// String returns the status name used in metric labels.
func (s Status) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusBlank:
		return "blank"
	default:
		return "rejected"
	}
}

// ErrNotObject is reported for lines (or array elements) that are valid JSON but
// not objects.
var ErrNotObject = errors.New("cowrie: entry is not a JSON object")

// DecodeResult is the tagged outcome of Decode.
type DecodeResult struct {
	Status Status
	Events []models.Event

	// Dropped counts array elements skipped individually. A single-object line
	// that fails the same checks is StatusRejected instead.
	Dropped int

	// Err explains a StatusRejected result.
	Err error
}

// rawEvent mirrors the subset of Cowrie's JSON fields the importer uses.
// Every field is kept raw so a mistyped value only affects the events that
// read it.
type rawEvent struct {
	EventID   json.RawMessage `json:"eventid"`
	Session   json.RawMessage `json:"session"`
	Timestamp json.RawMessage `json:"timestamp"`
	SrcIP     json.RawMessage `json:"src_ip"`
	Username  json.RawMessage `json:"username"`
	Password  json.RawMessage `json:"password"`
	Input     json.RawMessage `json:"input"`
	Shasum    json.RawMessage `json:"shasum"`
	URL       json.RawMessage `json:"url"`
	Outfile   json.RawMessage `json:"outfile"`
	Size      json.RawMessage `json:"size"`
}

// Decode parses one log line. It never panics and never returns an error to the
// caller; bad input is described by the result.
func Decode(line []byte) DecodeResult {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return DecodeResult{Status: StatusBlank}
	}

	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return DecodeResult{Status: StatusRejected, Err: fmt.Errorf("invalid JSON array: %w", err)}
		}
		res := DecodeResult{Status: StatusDecoded, Events: make([]models.Event, 0, len(elems))}
		for _, elem := range elems {
			ev, err := decodeEntry(elem)
			if err != nil {
				res.Dropped++
				continue
			}
			res.Events = append(res.Events, ev)
		}
		return res

	case '{':
		ev, err := decodeEntry(trimmed)
		if err != nil {
			return DecodeResult{Status: StatusRejected, Err: err}
		}
		return DecodeResult{Status: StatusDecoded, Events: []models.Event{ev}}

	default:
		return DecodeResult{Status: StatusRejected, Err: ErrNotObject}
	}
}

// decodeEntry converts one JSON object into an Event.
func decodeEntry(data []byte) (models.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return models.Event{}, ErrNotObject
	}

	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Event{}, fmt.Errorf("invalid JSON object: %w", err)
	}
	eventID := stringField(raw.EventID)
	if eventID == nil || *eventID == "" {
		return models.Event{}, errors.New("cowrie: entry has no eventid")
	}

	ev := models.Event{
		Tag:  *eventID,
		Kind: kindFor(*eventID),
	}
	if session := textField(raw.Session); session != nil {
		ev.SessionID = *session
	}

	switch ev.Kind {
	case models.EventConnect:
		ev.SourceIP = textField(raw.SrcIP)
		ev.Timestamp = timestampField(raw.Timestamp)
	case models.EventClosed:
		ev.Timestamp = timestampField(raw.Timestamp)
	case models.EventLogin:
		ev.Username = credentialField(raw.Username)
		ev.Password = credentialField(raw.Password)
	case models.EventCommand:
		ev.Input = textField(raw.Input)
	case models.EventTTYLog:
		ev.Hash = nonEmpty(textField(raw.Shasum))
	case models.EventFileTransfer:
		ev.Hash = nonEmpty(textField(raw.Shasum))
		ev.URL = textField(raw.URL)
		ev.OutFile = textField(raw.Outfile)
		ev.Size = sizeField(raw.Size)
	}

	return ev, nil
}

func kindFor(tag string) models.EventKind {
	switch tag {
	case TagSessionConnect:
		return models.EventConnect
	case TagSessionClosed:
		return models.EventClosed
	case TagLoginSuccess, TagLoginFailed:
		return models.EventLogin
	case TagCommandInput:
		return models.EventCommand
	case TagLogClosed:
		return models.EventTTYLog
	case TagFileDownload, TagFileUpload:
		return models.EventFileTransfer
	default:
		return models.EventOther
	}
}

// Filename returns the trailing path segment of outfile, or nil when outfile is
// absent or ends in a separator.
func Filename(outfile *string) *string {
	if outfile == nil || *outfile == "" {
		return nil
	}
	name := *outfile
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return nil
	}
	return &name
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// timestampField parses a string timestamp. Numbers and other types yield nil.
func timestampField(raw json.RawMessage) *time.Time {
	s := stringField(raw)
	if s == nil {
		return nil
	}
	return parseTimestamp(*s)
}

// parseTimestamp accepts Cowrie's RFC 3339 timestamps, with or without a zone.
// Values without a zone are taken as UTC. Unparseable values yield nil.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// credentialField coerces a username or password value to a string.
// Missing and null values become UnknownCredential; non-string scalars keep their
// JSON text.
func credentialField(raw json.RawMessage) *string {
	v := UnknownCredential
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			v = s
		}
	default:
		v = string(trimmed)
	}
	return &v
}

// sizeField accepts integer, float and numeric-string sizes.
func sizeField(raw json.RawMessage) *int64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil
		}
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		n := int64(f)
		return &n
	}
	return nil
}

// stringField returns a JSON string value, or nil for anything else.
func stringField(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil
	}
	return &s
}

// textField is stringField that also keeps the JSON text of numbers and
// booleans. Missing, null, object and array values yield nil.
func textField(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		return stringField(trimmed)
	case trimmed[0] == '{', trimmed[0] == '[':
		return nil
	}
	s := string(trimmed)
	return &s
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
