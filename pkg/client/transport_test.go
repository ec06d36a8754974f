package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readNetworkLog(t *testing.T, logDir string) []NetworkLogEntry {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, "network.jsonl"))
	require.NoError(t, err)

	var entries []NetworkLogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry NetworkLogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggingTransport_RedactsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	logDir := t.TempDir()
	lt := NewLoggingTransport(http.DefaultTransport, logDir, true)
	defer lt.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v2/chats/new", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("Cookie", "session=secret-cookie")

	resp, err := (&http.Client{Transport: lt}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	entries := readNetworkLog(t, logDir)
	require.Len(t, entries, 1)

	assert.Equal(t, "[REDACTED]", entries[0].RequestHeaders["Authorization"])
	assert.Equal(t, "[REDACTED]", entries[0].RequestHeaders["Cookie"])
	assert.NotContains(t, entries[0].RequestBody, "secret")
	assert.Equal(t, http.StatusOK, entries[0].ResponseStatus)
	assert.Contains(t, entries[0].ResponseBody, `"ok":true`)
}

func TestLoggingTransport_DoesNotBufferStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer server.Close()

	logDir := t.TempDir()
	lt := NewLoggingTransport(http.DefaultTransport, logDir, true)
	defer lt.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v2/chat/completions?chat_id=x", strings.NewReader(`{}`))
	require.NoError(t, err)

	resp, err := (&http.Client{Transport: lt}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	entries := readNetworkLog(t, logDir)
	require.Len(t, entries, 1)
	assert.Equal(t, "[streaming - body not captured]", entries[0].ResponseBody)
}

func TestLoggingTransport_DisabledWritesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	logDir := t.TempDir()
	lt := NewLoggingTransport(http.DefaultTransport, logDir, false)
	defer lt.Close()

	resp, err := (&http.Client{Transport: lt}).Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	_, err = os.Stat(filepath.Join(logDir, "network.jsonl"))
	assert.True(t, os.IsNotExist(err))
}

func TestTruncateBody(t *testing.T) {
	long := strings.Repeat("x", 20000)
	got := truncateBody(long)
	assert.Less(t, len(got), 11000)
	assert.True(t, strings.HasSuffix(got, "[truncated]"))

	assert.Equal(t, "short", truncateBody("short"))
}
