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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidindex/core"
)

// DiagnosticFunc receives every line that was skipped because it could not be
// turned into a record. It may be called from the reader goroutine used by Stream.
type DiagnosticFunc func(*ParseError)

// Result is one item delivered by Stream. Err is only set for failures that end
// the stream, such as a read error or context cancellation.
type Result struct {
	Record core.TranscriptRecord
	Err    error
}

// Source reads TranscriptRecords from a JSONL file.
type Source struct {
	path      string
	diagnose  DiagnosticFunc
	writer    io.Writer
	logger    *slog.Logger
	malformed atomic.Int64
}

// Option configures a Source.
type Option func(*Source) error

// WithDiagnostics replaces the default diagnostic handler.
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(s *Source) error {
		s.diagnose = fn
		return nil
	}
}

// WithWriter also prints each diagnostic as "[jsonl] Line N: reason" to w.
func WithWriter(w io.Writer) Option {
	return func(s *Source) error {
		s.writer = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a source for the file at path. The file is not opened until a
// pass begins.
func New(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	s := &Source{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "jsonl-source", "path", path)
	return s, nil
}

// Path returns the file the source reads from.
func (s *Source) Path() string {
	return s.path
}

// Malformed returns the number of lines reported during the most recent pass.
func (s *Source) Malformed() int {
	return int(s.malformed.Load())
}

// Records returns a synchronous iterator over the file. A non-nil error is
// yielded at most once and ends the iteration.
func (s *Source) Records() iter.Seq2[core.TranscriptRecord, error] {
	return func(yield func(core.TranscriptRecord, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(core.TranscriptRecord{}, fmt.Errorf("open %s: %w", s.path, err))
			return
		}
		defer f.Close()

		err = s.scan(f, func(rec core.TranscriptRecord) bool {
			return yield(rec, nil)
		})
		if err != nil {
			yield(core.TranscriptRecord{}, err)
		}
	}
}

// Stream reads the file on a background task and delivers records on the
// returned channel, which is closed when the file is exhausted, ctx is done or a
// read fails. The task runs on pool when one is given.
func (s *Source) Stream(ctx context.Context, pool *ants.Pool) (<-chan Result, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}

	out := make(chan Result)
	task := func() {
		defer close(out)
		defer f.Close()

		send := func(r Result) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := s.scan(f, func(rec core.TranscriptRecord) bool {
			if ctx.Err() != nil {
				return false
			}
			return send(Result{Record: rec})
		})
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			send(Result{Err: err})
		}
	}

	if pool == nil {
		go task()
		return out, nil
	}
	if err := pool.Submit(task); err != nil {
		f.Close()
		return nil, fmt.Errorf("submit reader: %w", err)
	}
	return out, nil
}

// scan reads r line by line, handing records to emit until emit returns false.
// Lines are read whole regardless of length.
func (s *Source) scan(r io.Reader, emit func(core.TranscriptRecord) bool) error {
	s.malformed.Store(0)
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			outcome := parseLine(lineNo, line)
			switch outcome.kind {
			case outcomeRecord:
				if core.IsBlank(outcome.record.Title) {
					s.logger.Warn("record has no title", "line", lineNo)
				}
				if !emit(outcome.record) {
					return nil
				}
			case outcomeInvalid:
				s.report(outcome.err)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s line %d: %w", s.path, lineNo+1, readErr)
		}
	}
}

func (s *Source) report(perr *ParseError) {
	s.malformed.Add(1)
	if s.writer != nil {
		fmt.Fprintf(s.writer, "[jsonl] Line %d: %v\n", perr.Line, perr.Err)
	}
	if s.diagnose != nil {
		s.diagnose(perr)
		return
	}
	s.logger.Warn("skipping line", "line", perr.Line, "reason", perr.Err)
}
