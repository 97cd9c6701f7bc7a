package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validFlowJSON = `{
  "name": "Welcome",
  "description": "greets new contacts",
  "nodes": [
    {"id": "start-1", "type": "start", "position": {"x": 0, "y": 0},
     "data": {"label": "Start", "type": "start", "config": {"trigger": "manual", "keyword": "", "schedule": null}}},
    {"id": "msg-1", "type": "textMessage", "position": {"x": 0, "y": 120},
     "data": {"label": "Hello", "type": "textMessage", "config": {"message": "Hi there", "variables": []}}}
  ],
  "edges": [{"id": "e1", "source": "start-1", "target": "msg-1"}]
}`

const invalidFlowJSON = `{
  "name": "Broken",
  "nodes": [
    {"id": "msg-1", "type": "textMessage", "position": {"x": 0, "y": 0},
     "data": {"label": "Hello", "type": "textMessage", "config": {"message": "", "variables": []}}}
  ],
  "edges": []
}`

// isolateEnv points HOME at an empty directory and clears CHATFLOW_* so a
// developer's settings do not leak into tests.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"CHATFLOW_API_URL", "CHATFLOW_TOKEN", "CHATFLOW_LOG_LEVEL", "CHATFLOW_TIMEOUT"} {
		t.Setenv(k, "")
	}
	return home
}

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
