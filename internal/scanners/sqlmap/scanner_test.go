package sqlmap

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michelemendel/haintsec/internal/scan"
)

func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found, skipping")
	}
	path := filepath.Join(t.TempDir(), "sqlmap")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestScanner_Args(t *testing.T) {
	s := NewScanner(Config{}, nil, nil)
	assert.Equal(t, []string{"-u", "https://example.com/?id=1", "--batch", "--level=2"}, s.Args("https://example.com/?id=1"))

	s = NewScanner(Config{Level: 3, Proxy: "http://127.0.0.1:8080", ExtraArgs: []string{"--risk=2"}}, nil, nil)
	assert.Equal(t, []string{
		"-u", "https://example.com", "--batch", "--level=3", "--proxy=http://127.0.0.1:8080", "--risk=2",
	}, s.Args("https://example.com"))
}

func TestScanner_TestPassesLinesThrough(t *testing.T) {
	tool := fakeTool(t, `echo "[*] starting @ 12:00:00"
echo
echo "  [INFO] testing connection to the target URL  "
echo "[WARNING] GET parameter 'id' does not seem to be injectable"
`)
	var echoed []string
	s := NewScanner(Config{Path: tool}, nil, func(l string) { echoed = append(echoed, l) })

	lines, err := s.Test(context.Background(), "https://example.com/?id=1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[*] starting @ 12:00:00",
		"[INFO] testing connection to the target URL",
		"[WARNING] GET parameter 'id' does not seem to be injectable",
	}, lines)
	assert.Len(t, echoed, 4, "raw lines are echoed before trimming")
}

func TestScanner_TestNonZeroExit(t *testing.T) {
	tool := fakeTool(t, "echo '[CRITICAL] unable to connect' >&2; exit 1\n")
	_, err := NewScanner(Config{Path: tool}, nil, nil).Test(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Equal(t, scan.ReasonToolExecutionError, scan.Classify(err))
}

func TestScanner_TestMissingTool(t *testing.T) {
	_, err := NewScanner(Config{Path: "definitely-not-sqlmap-123"}, nil, nil).Test(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Equal(t, scan.ReasonToolNotFound, scan.Classify(err))
}

func TestPassthrough(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Passthrough([]string{" a ", "", "\t", "b"}))
	assert.Empty(t, Passthrough(nil))
}
