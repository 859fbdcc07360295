package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// fakeOllama answers /api/chat with replies in order and /api/embeddings with a fixed vector.
func fakeOllama(t *testing.T, replies ...string) *httptest.Server {
	t.Helper()
	var (
		mu   sync.Mutex
		next int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.URL.Path {
		case "/api/chat":
			mu.Lock()
			defer mu.Unlock()
			if !assert.Less(t, next, len(replies), "unexpected chat request") {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, replies[next])
			next++
		case "/api/embeddings":
			_, _ = io.WriteString(w, `{"embedding":[0.25,0.75]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Chain(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "embed.py"), []byte("print(1)\n"), 0o644))

	srv := fakeOllama(t,
		`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"read_file","arguments":{"path_to_file":"embed.py"}}}]},"done":true}`,
		`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"write_file","arguments":{"path_to_file":"commented.py","content":"# one\nprint(1)\n"}}}]},"done":true}`,
	)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--base-url", srv.URL,
		"--root", root,
		"--log-format", "json",
		"--prompt", "Read the file named in the Input.",
		"--prompt", "Save a commented copy as commented.py",
		"embed.py",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Equal(t,
		"Read the file named in the Input.\nSave a commented copy as commented.py\ncontent written to commented.py\n# one\nprint(1)\n",
		stdout.String())
	got, err := os.ReadFile(filepath.Join(root, "commented.py"))
	require.NoError(t, err)
	assert.Equal(t, "# one\nprint(1)\n", string(got))
}

func TestRun_ChainFailureIsReturned(t *testing.T) {
	srv := fakeOllama(t,
		`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"format_disk","arguments":{}}}]},"done":true}`,
	)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--base-url", srv.URL,
		"--root", t.TempDir(),
		"--log-format", "json",
		"--prompt", "p",
	}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format_disk")
	assert.Contains(t, stderr.String(), "chain failed")
}

func TestRun_Embed(t *testing.T) {
	srv := fakeOllama(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--base-url", srv.URL, "embed", "hello"}, &stdout, &stderr)
	require.NoError(t, err)
	var vec []float64
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &vec))
	assert.Equal(t, []float64{0.25, 0.75}, vec)
}

func TestRun_EmbedRequiresText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"embed"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRun_InvalidBackend(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--backend", "telnet"}, &stdout, &stderr)
	assert.Error(t, err)
}
