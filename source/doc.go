// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package source streams transcript records from newline-delimited JSON files.
//
// Each non-blank line is parsed on its own. Lines that cannot be turned into a
// record are reported through a DiagnosticFunc with their 1-based line number and
// then skipped, so one bad line never ends the stream. Only I/O failures reach the
// caller.
//
// The parser is lenient: field names match case-insensitively, and comments and
// trailing commas are accepted (JWCC). The recognised fields are:
//
//	channelName              the publishing channel
//	videoTitle (or title)    the video title, required
//	transcript (or transcriptText)
//
// Two pull styles share the same per-line semantics:
//
//	for rec, err := range src.Records() { ... }      // synchronous
//	results, err := src.Stream(ctx, pool)            // background reader
//
// Every call starts again from the top of the file.
package source
