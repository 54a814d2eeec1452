package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/vidindex/ai/mock"
	"github.com/poiesic/vidindex/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag(cmd *cli.Command, name string) cli.Flag {
	for _, flag := range cmd.Flags {
		for _, n := range flag.Names() {
			if n == name {
				return flag
			}
		}
	}
	return nil
}

func testApp() (*cli.App, *bytes.Buffer, *bytes.Buffer) {
	app := newApp()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr
	return app, &stdout, &stderr
}

func TestIndexCommandFlags(t *testing.T) {
	t.Run("input is required", func(t *testing.T) {
		app, _, _ := testApp()
		err := app.Run([]string{"vidindex", "index", "--data-dir", t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input")
	})

	t.Run("data-dir is required", func(t *testing.T) {
		app, _, _ := testApp()
		err := app.Run([]string{"vidindex", "index", "--input", "x.jsonl"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data-dir")
	})

	t.Run("windowing defaults", func(t *testing.T) {
		cmd := findCommand(t, newApp(), "index")

		window, ok := findFlag(cmd, "window").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, chunker.DefaultWindowWords, window.Value)

		overlap, ok := findFlag(cmd, "overlap").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, chunker.DefaultOverlapWords, overlap.Value)

		url, ok := findFlag(cmd, "source-url").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, DefaultSourceURL, url.Value)
	})

	t.Run("backends default to badger", func(t *testing.T) {
		cmd := findCommand(t, newApp(), "index")
		for _, name := range []string{"vector-backend", "chunk-backend"} {
			flag, ok := findFlag(cmd, name).(*cli.StringFlag)
			require.True(t, ok, name)
			assert.Equal(t, "badger", flag.Value, name)
		}
	})

	t.Run("embedding host reads environment", func(t *testing.T) {
		cmd := findCommand(t, newApp(), "index")
		flag, ok := findFlag(cmd, "embedding-host").(*cli.StringFlag)
		require.True(t, ok)
		assert.Contains(t, flag.EnvVars, "VIDINDEX_EMBEDDING_HOST")
	})
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	app, _, _ := testApp()
	err := app.Run([]string{"vidindex", "search", "--data-dir", t.TempDir(), "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warn", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			app, _, _ := testApp()
			err := app.Run([]string{"vidindex", "--log-level", tt.level, "--env-file", "", "pending", "--data-dir", t.TempDir()})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), "absent.env")))
	})

	t.Run("sets variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("VIDINDEX_TEST_LOADENV=from-file\n"), 0o644))
		t.Setenv("VIDINDEX_TEST_LOADENV", "")
		os.Unsetenv("VIDINDEX_TEST_LOADENV")

		require.NoError(t, loadEnv(path))
		assert.Equal(t, "from-file", os.Getenv("VIDINDEX_TEST_LOADENV"))
	})
}

// embeddingServer embeds the text after the "Title (part N)" header, so a
// query equal to a chunk's content scores 1.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i, in := range req.Input {
			if _, body, ok := strings.Cut(in, "\n\n"); ok {
				in = body
			}
			data[i] = item{Object: "embedding", Embedding: mock.Vector(in, 16), Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIndexSearchPending(t *testing.T) {
	srv := embeddingServer(t)
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "index")
	input := filepath.Join(dir, "transcripts.jsonl")
	metricsFile := filepath.Join(dir, "metrics.prom")
	require.NoError(t, os.WriteFile(input, []byte(strings.Join([]string{
		`{"title": "Goroutines", "transcript": "channels carry values between goroutines"}`,
		`not json`,
		`{"title": "Empty", "transcript": "   "}`,
		`{"title": "Modules", "transcript": "go mod tidy prunes unused requirements"}`,
	}, "\n")+"\n"), 0o644))

	common := []string{
		"--data-dir", dataDir,
		"--embedding-host", srv.URL + "/v1",
		"--dimensions", "16",
		"--max-retries", "0",
	}

	t.Run("index", func(t *testing.T) {
		app, stdout, stderr := testApp()
		args := append([]string{"vidindex", "--env-file", "", "index", "--input", input, "--metrics-file", metricsFile}, common...)
		require.NoError(t, app.Run(args))

		assert.Contains(t, stdout.String(), "Records read: 3, indexed: 2, skipped: 1, malformed lines: 1, chunks: 2")
		assert.Contains(t, stderr.String(), "Indexed: 3 records, 2 chunks")
		assert.Contains(t, stderr.String(), "[jsonl] Line 2:")

		metrics, err := os.ReadFile(metricsFile)
		require.NoError(t, err)
		assert.Contains(t, string(metrics), "vidindex_chunks_indexed_total 2")
	})

	t.Run("search", func(t *testing.T) {
		app, stdout, stderr := testApp()
		args := append([]string{"vidindex", "--env-file", "", "search", "--verbose", "--max-hits", "1"}, common...)
		args = append(args, "go mod tidy prunes unused requirements")
		require.NoError(t, app.Run(args))

		out := stdout.String()
		assert.Contains(t, out, "Found 1 hits")
		assert.Contains(t, out, "1: Modules, Section 1 [1.000]")
		assert.Contains(t, stderr.String(), "vector search: 1 matches")
	})

	t.Run("pending", func(t *testing.T) {
		app, stdout, _ := testApp()
		args := append([]string{"vidindex", "--env-file", "", "pending"}, common...)
		require.NoError(t, app.Run(args))
		assert.Contains(t, stdout.String(), "No pending writes.")
	})
}
