package toolexec

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michelemendel/haintsec/internal/scan"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not found, skipping")
	}
	return sh
}

func TestRun_StreamsLines(t *testing.T) {
	sh := requireShell(t)

	var seen []string
	res, err := Run(context.Background(), Command{
		Path:   sh,
		Args:   []string{"-c", "echo one; echo; echo '  two  '"},
		OnLine: func(line string) { seen = append(seen, line) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "", "  two  "}, res.Lines)
	assert.Equal(t, res.Lines, seen)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "one\n\n  two  ", res.Output())
}

func TestRun_NotFound(t *testing.T) {
	_, err := Run(context.Background(), Command{Path: "nonexistentcommand12345"})
	require.Error(t, err)
	assert.Equal(t, scan.ReasonToolNotFound, scan.Classify(err))
}

func TestRun_NonZeroExit(t *testing.T) {
	sh := requireShell(t)

	res, err := Run(context.Background(), Command{
		Path: sh,
		Args: []string{"-c", "echo partial; echo broken >&2; exit 3"},
	})
	require.Error(t, err)
	assert.Equal(t, scan.ReasonToolExecutionError, scan.Classify(err))
	assert.Contains(t, err.Error(), "code 3")
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"partial"}, res.Lines)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_Timeout(t *testing.T) {
	sh := requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, Command{Path: sh, Args: []string{"-c", "exec sleep 5"}})
	require.Error(t, err)
	assert.Equal(t, scan.ReasonTimeout, scan.Classify(err))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTailBuffer_KeepsTail(t *testing.T) {
	tb := &tailBuffer{limit: 5}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defgh"))
	assert.Equal(t, "defgh", tb.String())
	assert.True(t, strings.HasSuffix(tb.String(), "h"))
}
