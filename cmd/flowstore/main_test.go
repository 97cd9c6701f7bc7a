package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/chatflow/internal/logging"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"CHATFLOW_LISTEN_ADDR", "CHATFLOW_DB_PATH", "CHATFLOW_LOG_LEVEL",
		"CHATFLOW_TOKENS", "CHATFLOW_ENCODE_GRAPH_AS_TEXT"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateEnv(t)

	cfg := loadConfig()
	assert.Equal(t, ":4200", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(home, ".chatflow", "flows.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.EncodeGraphAsText)
	assert.Empty(t, cfg.Tokens)
}

func TestLoadConfig_Layers(t *testing.T) {
	home := isolateEnv(t)
	dir := filepath.Join(home, ".chatflow")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(`{"listen_addr":":9000","tokens":{"file-tok":"acme"},"encode_graph_as_text":false,"api_url":"ignored"}`), 0o644))

	cfg := loadConfig()
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, map[string]string{"file-tok": "acme"}, cfg.Tokens)
	assert.False(t, cfg.EncodeGraphAsText)

	t.Setenv("CHATFLOW_TOKENS", "a=acme, b=globex")
	t.Setenv("CHATFLOW_ENCODE_GRAPH_AS_TEXT", "1")
	t.Setenv("CHATFLOW_DB_PATH", "/tmp/other.db")

	cfg = loadConfig()
	assert.Equal(t, map[string]string{"a": "acme", "b": "globex"}, cfg.Tokens)
	assert.True(t, cfg.EncodeGraphAsText)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
}

func TestParseTokens(t *testing.T) {
	assert.Equal(t, map[string]string{"t1": "acme", "t2": ""},
		parseTokens("t1=acme,,bogus,=nobody,t2="))
}

func TestServe_StartsAndShutsDown(t *testing.T) {
	isolateEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := Config{
		DBPath:            filepath.Join(t.TempDir(), "data", "flows.db"),
		Tokens:            map[string]string{"tok": "acme"},
		EncodeGraphAsText: true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, cfg, logging.Discard()) }()

	base := "http://" + ln.Addr().String()
	req, err := http.NewRequest(http.MethodPost, base+"/flows",
		strings.NewReader(`{"name":"Served","nodes":[],"edges":[]}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("Content-Type", "application/json")

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.DefaultClient.Do(req)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"Served"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
