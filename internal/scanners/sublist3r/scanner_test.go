package sublist3r

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michelemendel/haintsec/internal/scan"
)

func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found, skipping")
	}
	path := filepath.Join(t.TempDir(), "sublist3r")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func assertNoHandoffFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "handoff file must be removed")
}

func TestEnumerate_ReadsAndRemovesHandoffFile(t *testing.T) {
	// $4 is the -o argument.
	tool := fakeTool(t, `printf 'www.example.com\n\n  api.example.com  \nmail.example.com\n' > "$4"
echo "$4" | grep -q 'haintsec-subdomains-run42-' || exit 9
`)
	tmp := t.TempDir()

	s := NewScanner(Config{Path: tool, TempDir: tmp}, nil, nil)
	subs, err := s.Enumerate(context.Background(), "example.com", "run42")
	require.NoError(t, err)
	assert.Equal(t, []string{"www.example.com", "api.example.com", "mail.example.com"}, subs)
	assertNoHandoffFiles(t, tmp)
}

func TestEnumerate_NoOutputIsEmpty(t *testing.T) {
	tool := fakeTool(t, `rm -f "$4"; exit 0`)
	tmp := t.TempDir()

	subs, err := NewScanner(Config{Path: tool, TempDir: tmp}, nil, nil).
		Enumerate(context.Background(), "example.com", "r")
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
	assertNoHandoffFiles(t, tmp)
}

func TestEnumerate_FailureStillRemovesHandoffFile(t *testing.T) {
	tool := fakeTool(t, `echo half > "$4"; echo 'rate limited' >&2; exit 2`)
	tmp := t.TempDir()

	_, err := NewScanner(Config{Path: tool, TempDir: tmp}, nil, nil).
		Enumerate(context.Background(), "example.com", "r")
	require.Error(t, err)
	assert.Equal(t, scan.ReasonToolExecutionError, scan.Classify(err))
	assertNoHandoffFiles(t, tmp)
}

func TestEnumerate_TimeoutRemovesHandoffFile(t *testing.T) {
	tool := fakeTool(t, `echo half > "$4"; exec sleep 5`)
	tmp := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := NewScanner(Config{Path: tool, TempDir: tmp}, nil, nil).Enumerate(ctx, "example.com", "r")
	require.Error(t, err)
	assert.Equal(t, scan.ReasonTimeout, scan.Classify(err))
	assertNoHandoffFiles(t, tmp)
}

func TestParseLines(t *testing.T) {
	subs, err := ParseLines(strings.NewReader("a.example.com\r\n\n \t\nb.example.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, subs)
}
