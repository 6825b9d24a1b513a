// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

/*
Package cowrie decodes Cowrie honeypot JSON log lines into typed events.

A line holds either one JSON object or a JSON array of objects. Decode never fails
the caller: a malformed line is reported as StatusRejected, a blank line as
StatusBlank, and individual array elements that are not objects (or carry no
eventid) are dropped and counted.

Recognised event identifiers:

	cowrie.session.connect        src_ip, timestamp
	cowrie.session.closed         timestamp
	cowrie.login.success|failed   username, password ("unknown" when absent)
	cowrie.command.input          input
	cowrie.log.closed             shasum
	cowrie.session.file_download  shasum, url, outfile, size
	cowrie.session.file_upload    shasum, url, outfile, size

Any other eventid decodes to models.EventOther, which only marks the session as seen.
*/
package cowrie
