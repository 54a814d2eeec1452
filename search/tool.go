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

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools"
)

const (
	// ToolName is the name agents use to call the search tool.
	ToolName = "database_search_service"

	// ToolDescription tells agents what the tool does.
	ToolDescription = "Searches through YouTube video transcripts based on a semantic search query."
)

// Tool exposes a Searcher as a langchaingo tool. The input is either the
// query text or a JSON object with a "query" field.
type Tool struct {
	searcher *Searcher
	maxHits  int
}

var _ tools.Tool = (*Tool)(nil)

// NewTool creates the search tool. A non-positive maxHits selects DefaultMaxHits.
func NewTool(searcher *Searcher, maxHits int) tools.Tool {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	return &Tool{searcher: searcher, maxHits: maxHits}
}

// Name returns the tool name
func (t *Tool) Name() string {
	return ToolName
}

// Description returns the tool description
func (t *Tool) Description() string {
	return ToolDescription
}

// Call runs the search and formats the matching sections as plain text.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	query := parseToolInput(input)
	results, err := t.searcher.Search(ctx, query, t.maxHits)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ToolName, err)
	}
	if len(results) == 0 {
		return "No matching transcript sections found.", nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s, %s (score %.3f)\n", i+1, r.Chunk.SourceTitle, r.Chunk.Label, r.Score)
		if r.Chunk.SourceURL != "" {
			fmt.Fprintf(&sb, "Source: %s\n", r.Chunk.SourceURL)
		}
		sb.WriteString(r.Chunk.Content)
	}
	return sb.String(), nil
}

func parseToolInput(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return trimmed
	}
	return strings.TrimSpace(args.Query)
}
