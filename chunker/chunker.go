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

// Package chunker splits transcripts into overlapping fixed-size word windows.
//
// Splitting is deterministic: the same title and text always produce the same
// chunks with the same IDs, which is what makes re-indexing an overwrite rather
// than a duplication. All functions are pure and safe for concurrent use.
package chunker

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/poiesic/vidindex/core"
)

const (
	// DefaultWindowWords is the number of words in a full window.
	DefaultWindowWords = 500

	// DefaultOverlapWords is the number of words shared by consecutive windows.
	DefaultOverlapWords = 75

	// minIDWidth keeps ids like "Intro (section 00)" for short transcripts.
	minIDWidth = 2
)

// Options controls windowing.
type Options struct {
	WindowWords  int
	OverlapWords int
	SourceURL    string
}

// DefaultOptions returns the standard 500/75 word windowing.
func DefaultOptions() Options {
	return Options{
		WindowWords:  DefaultWindowWords,
		OverlapWords: DefaultOverlapWords,
	}
}

// Window is a half-open word range [Start, End).
type Window struct {
	Start int
	End   int
}

// Len returns the number of words covered by the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Step returns the distance between the starts of consecutive windows.
func Step(windowWords, overlapWords int) int {
	return max(1, windowWords-overlapWords)
}

// Windows yields the sliding windows over totalWords words.
// Iteration stops with the first window that reaches totalWords, so coverage is
// complete and the final window is never duplicated.
func Windows(totalWords, windowWords, overlapWords int) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if totalWords <= 0 || windowWords <= 0 {
			return
		}
		step := Step(windowWords, overlapWords)
		for start := 0; start < totalWords; start += step {
			end := min(start+windowWords, totalWords)
			if !yield(Window{Start: start, End: end}) {
				return
			}
			if end == totalWords {
				return
			}
		}
	}
}

// SplitWords tokenizes text on runs of whitespace, discarding empty tokens.
func SplitWords(text string) []string {
	return strings.Fields(text)
}

// ChunkID formats the stable identifier for the window at index.
// width is the minimum number of digits used for the zero-padded index.
func ChunkID(title string, index, width int) string {
	return fmt.Sprintf("%s (section %0*d)", title, width, index)
}

// Label returns the human readable label for the window at index.
func Label(index int) string {
	return "Section " + strconv.Itoa(index+1)
}

// Split breaks a transcript into chunks. Blank text yields no chunks.
// A non-positive window falls back to DefaultWindowWords; negative overlap counts as zero.
func Split(title, text string, opts Options) []core.Chunk {
	if core.IsBlank(text) {
		return nil
	}
	opts = normalize(opts)

	words := SplitWords(text)
	var windows []Window
	for w := range Windows(len(words), opts.WindowWords, opts.OverlapWords) {
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		return nil
	}

	// Widen the padding when there are 100+ windows so ids keep sorting in order.
	width := max(minIDWidth, len(strconv.Itoa(len(windows)-1)))

	chunks := make([]core.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = core.Chunk{
			ID:             ChunkID(title, i, width),
			SourceTitle:    title,
			Label:          Label(i),
			SequenceNumber: i + 1,
			Content:        strings.Join(words[w.Start:w.End], " "),
			SourceURL:      opts.SourceURL,
		}
	}
	return chunks
}

func normalize(opts Options) Options {
	if opts.WindowWords <= 0 {
		opts.WindowWords = DefaultWindowWords
	}
	if opts.OverlapWords < 0 {
		opts.OverlapWords = 0
	}
	return opts
}
