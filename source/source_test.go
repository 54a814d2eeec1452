package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcripts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
	return path
}

type collector struct {
	mu     sync.Mutex
	errors []*ParseError
}

func (c *collector) add(e *ParseError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, e)
}

func (c *collector) lines() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.errors))
	for i, e := range c.errors {
		out[i] = e.Line
	}
	return out
}

func collectSync(t *testing.T, src *Source) []core.TranscriptRecord {
	t.Helper()
	var records []core.TranscriptRecord
	for rec, err := range src.Records() {
		require.NoError(t, err)
		records = append(records, rec)
	}
	return records
}

func collectStream(t *testing.T, src *Source, pool *ants.Pool) []core.TranscriptRecord {
	t.Helper()
	results, err := src.Stream(context.Background(), pool)
	require.NoError(t, err)
	var records []core.TranscriptRecord
	for r := range results {
		require.NoError(t, r.Err)
		records = append(records, r.Record)
	}
	return records
}

func titles(records []core.TranscriptRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		kind    outcomeKind
		want    core.TranscriptRecord
		wantErr error
	}{
		{
			name: "canonical fields",
			line: `{"channelName":"c","videoTitle":"Intro","transcript":"hello world"}`,
			kind: outcomeRecord,
			want: core.TranscriptRecord{ChannelName: "c", Title: "Intro", TranscriptText: "hello world"},
		},
		{
			name: "case-insensitive names",
			line: `{"CHANNELNAME":"c","VideoTitle":"Intro","Transcript":"x"}`,
			kind: outcomeRecord,
			want: core.TranscriptRecord{ChannelName: "c", Title: "Intro", TranscriptText: "x"},
		},
		{
			name: "alias fields",
			line: `{"title":"Intro","transcriptText":"x"}`,
			kind: outcomeRecord,
			want: core.TranscriptRecord{Title: "Intro", TranscriptText: "x"},
		},
		{
			name: "trailing comma and comment",
			line: `{"videoTitle":"Intro", /* note */ "transcript":"x",}`,
			kind: outcomeRecord,
			want: core.TranscriptRecord{Title: "Intro", TranscriptText: "x"},
		},
		{
			name: "empty transcript is still a record",
			line: `{"videoTitle":"Intro","transcript":""}`,
			kind: outcomeRecord,
			want: core.TranscriptRecord{Title: "Intro"},
		},
		{name: "blank", line: "   \t", kind: outcomeSkip},
		{name: "line comment", line: "// exported 2024-01-01", kind: outcomeSkip},
		{name: "block comment", line: "/* header */", kind: outcomeSkip},
		{name: "null", line: "null", kind: outcomeInvalid, wantErr: ErrNullRecord},
		{
			name: "missing title",
			line: `{"transcript":"x"}`,
			kind: outcomeRecord,
			want: core.TranscriptRecord{TranscriptText: "x"},
		},
		{name: "truncated", line: `{"videoTitle":"Intro"`, kind: outcomeInvalid},
		{name: "wrong shape", line: `[1,2,3]`, kind: outcomeInvalid},
		{name: "wrong field type", line: `{"videoTitle":42}`, kind: outcomeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLine(7, []byte(tt.line))
			require.Equal(t, tt.kind, got.kind)
			switch tt.kind {
			case outcomeRecord:
				assert.Equal(t, tt.want, got.record)
				assert.Nil(t, got.err)
			case outcomeInvalid:
				require.NotNil(t, got.err)
				assert.Equal(t, 7, got.err.Line)
				if tt.wantErr != nil {
					assert.ErrorIs(t, got.err, tt.wantErr)
				}
			}
		})
	}
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrPathRequired)
}

func TestRecords_MalformedLineDoesNotStopStream(t *testing.T) {
	path := writeFile(t,
		`{"videoTitle":"first","transcript":"a b c"}`,
		`{"videoTitle": broken`,
		`{"videoTitle":"third","transcript":"d e f"}`,
	)
	diags := &collector{}
	src, err := New(path, WithDiagnostics(diags.add))
	require.NoError(t, err)

	records := collectSync(t, src)
	assert.Equal(t, []string{"first", "third"}, titles(records))
	assert.Equal(t, []int{2}, diags.lines())
	assert.Equal(t, 1, src.Malformed())
}

func TestRecords_BlankLinesSkippedSilently(t *testing.T) {
	path := writeFile(t,
		"",
		`{"videoTitle":"one"}`,
		"   ",
		"",
		`null`,
		`{"videoTitle":"two"}`,
		"",
	)
	diags := &collector{}
	src, err := New(path, WithDiagnostics(diags.add))
	require.NoError(t, err)

	records := collectSync(t, src)
	assert.Equal(t, []string{"one", "two"}, titles(records))
	// Only the null line is reported, with its 1-based position.
	assert.Equal(t, []int{5}, diags.lines())
}

func TestRecords_Restartable(t *testing.T) {
	path := writeFile(t, `{"videoTitle":"a"}`, `{"videoTitle":"b"}`)
	src, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, titles(collectSync(t, src)), titles(collectSync(t, src)))
}

func TestRecords_EarlyBreak(t *testing.T) {
	path := writeFile(t, `{"videoTitle":"a"}`, `{"videoTitle":"b"}`, `{"videoTitle":"c"}`)
	src, err := New(path)
	require.NoError(t, err)

	var seen []string
	for rec, err := range src.Records() {
		require.NoError(t, err)
		seen = append(seen, rec.Title)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRecords_MissingFile(t *testing.T) {
	src, err := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)

	var errs []error
	for _, err := range src.Records() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestStream_SameSemanticsAsRecords(t *testing.T) {
	path := writeFile(t,
		`{"videoTitle":"first","transcript":"a"}`,
		`not json at all`,
		``,
		`{"videoTitle":"second","transcript":"b",}`,
		`{"transcript":"untitled"}`,
		`// trailing comment`,
		`{"videoTitle":"third"}`,
	)

	syncDiags := &collector{}
	syncSrc, err := New(path, WithDiagnostics(syncDiags.add))
	require.NoError(t, err)
	syncRecords := collectSync(t, syncSrc)

	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	defer pool.Release()

	asyncDiags := &collector{}
	asyncSrc, err := New(path, WithDiagnostics(asyncDiags.add))
	require.NoError(t, err)
	asyncRecords := collectStream(t, asyncSrc, pool)

	assert.Equal(t, []string{"first", "second", "", "third"}, titles(syncRecords))
	assert.Equal(t, syncRecords, asyncRecords)
	assert.Equal(t, []int{2}, syncDiags.lines())
	assert.Equal(t, syncDiags.lines(), asyncDiags.lines())
}

func TestStream_WithoutPool(t *testing.T) {
	path := writeFile(t, `{"videoTitle":"a"}`, `{"videoTitle":"b"}`)
	src, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, titles(collectStream(t, src, nil)))
}

func TestStream_MissingFile(t *testing.T) {
	src, err := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)

	_, err = src.Stream(context.Background(), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStream_Cancellation(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = `{"videoTitle":"t"}`
	}
	src, err := New(writeFile(t, lines...))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	results, err := src.Stream(ctx, nil)
	require.NoError(t, err)

	first := <-results
	require.NoError(t, first.Err)
	cancel()

	count := 1
	for range results {
		count++
	}
	// The channel is closed well before the end of the file.
	assert.Less(t, count, 100)
}

func TestWithWriter_PrintsDiagnostics(t *testing.T) {
	path := writeFile(t, `{"videoTitle":"ok"}`, `{oops}`)
	var buf bytes.Buffer
	src, err := New(path, WithWriter(&buf), WithDiagnostics(func(*ParseError) {}))
	require.NoError(t, err)

	collectSync(t, src)
	assert.True(t, strings.HasPrefix(buf.String(), "[jsonl] Line 2: "), buf.String())
}
