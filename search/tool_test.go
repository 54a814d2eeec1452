package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool_Descriptor(t *testing.T) {
	tool := NewTool(nil, 0)
	assert.Equal(t, "database_search_service", tool.Name())
	assert.Equal(t, "Searches through YouTube video transcripts based on a semantic search query.", tool.Description())
}

func TestTool_Call(t *testing.T) {
	f := newFixture(t)
	c := chunk("Intro", 2, "welcome to the channel")
	c.SourceURL = "https://www.youtube.com/@traintocode"
	f.add(t, "welcome", c, true)

	tool := NewTool(f.searcher(t, WithMinScore(0.99)), 3)

	tests := []struct {
		name  string
		input string
	}{
		{"plain text", "welcome"},
		{"json object", `{"query": "welcome"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tool.Call(context.Background(), tt.input)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, "[1] Intro, Section 2 (score 1.000)\n"), out)
			assert.Contains(t, out, "Source: https://www.youtube.com/@traintocode\n")
			assert.True(t, strings.HasSuffix(out, "welcome to the channel"))
		})
	}
}

func TestTool_NoResults(t *testing.T) {
	f := newFixture(t)
	tool := NewTool(f.searcher(t), 3)

	out, err := tool.Call(context.Background(), "nothing indexed yet")
	require.NoError(t, err)
	assert.Equal(t, "No matching transcript sections found.", out)
}

func TestTool_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	tool := NewTool(f.searcher(t), 3)

	_, err := tool.Call(context.Background(), `{"query": " "}`)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestParseToolInput(t *testing.T) {
	assert.Equal(t, "plain", parseToolInput("  plain "))
	assert.Equal(t, "q", parseToolInput(`{"query":"q"}`))
	assert.Equal(t, "{not json", parseToolInput("{not json"))
	assert.Equal(t, "", parseToolInput(`{"other":"x"}`))
}
