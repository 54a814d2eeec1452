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

package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/poiesic/vidindex/core"
	"github.com/tailscale/hujson"
)

type outcomeKind int

const (
	outcomeSkip outcomeKind = iota
	outcomeRecord
	outcomeInvalid
)

// lineOutcome is the result of parsing a single line. Exactly one of record or
// err is meaningful, selected by kind.
type lineOutcome struct {
	kind   outcomeKind
	record core.TranscriptRecord
	err    *ParseError
}

// rawRecord mirrors the on-disk shape. encoding/json matches keys
// case-insensitively, so "ChannelName" and "channelname" both land here.
type rawRecord struct {
	ChannelName    string `json:"channelName"`
	VideoTitle     string `json:"videoTitle"`
	Title          string `json:"title"`
	Transcript     string `json:"transcript"`
	TranscriptText string `json:"transcriptText"`
}

func (r rawRecord) toRecord() core.TranscriptRecord {
	title := r.VideoTitle
	if title == "" {
		title = r.Title
	}
	text := r.Transcript
	if text == "" {
		text = r.TranscriptText
	}
	return core.TranscriptRecord{
		ChannelName:    r.ChannelName,
		Title:          title,
		TranscriptText: text,
	}
}

var nullLiteral = []byte("null")

func parseLine(lineNo int, line []byte) lineOutcome {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || isCommentOnly(trimmed) {
		return lineOutcome{kind: outcomeSkip}
	}

	invalid := func(err error) lineOutcome {
		return lineOutcome{kind: outcomeInvalid, err: &ParseError{Line: lineNo, Err: err}}
	}

	std, err := hujson.Standardize(bytes.Clone(trimmed))
	if err != nil {
		return invalid(err)
	}
	if bytes.Equal(bytes.TrimSpace(std), nullLiteral) {
		return invalid(ErrNullRecord)
	}

	var raw rawRecord
	if err := json.Unmarshal(std, &raw); err != nil {
		return invalid(fmt.Errorf("decode record: %w", err))
	}

	return lineOutcome{kind: outcomeRecord, record: raw.toRecord()}
}

// isCommentOnly reports whether a trimmed line holds nothing but a comment.
func isCommentOnly(line []byte) bool {
	if bytes.HasPrefix(line, []byte("//")) {
		return true
	}
	return len(line) >= 4 && bytes.HasPrefix(line, []byte("/*")) && bytes.HasSuffix(line, []byte("*/")) &&
		bytes.Index(line[2:], []byte("*/")) == len(line)-4
}
