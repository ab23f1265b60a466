// Package toolexec runs external scanning tools and streams their output.
package toolexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/michelemendel/haintsec/internal/scan"
)

// maxStderr bounds how much stderr is kept for diagnostics.
const maxStderr = 8 << 10

// Command describes one tool invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	// OnLine, when set, receives every stdout line as it is produced.
	OnLine func(line string)
}

// Result holds what a finished tool produced.
type Result struct {
	Lines    []string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes cmd, collecting stdout line by line. The process is killed
// when ctx is done. Returned errors are tagged with a scan.Reason: a
// missing executable is ToolNotFound, a non-zero exit is ToolExecutionError
// and an expired ctx is Timeout. Lines read before a failure are returned
// alongside the error.
func Run(ctx context.Context, c Command) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = 2 * time.Second

	stderr := &tailBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	// stdout goes through an io.Pipe rather than StdoutPipe so that Wait,
	// bounded by WaitDelay, can close it even if a grandchild keeps the
	// descriptor open after the tool is killed.
	pr, pw := io.Pipe()
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		if ctx.Err() != nil {
			return Result{}, scan.Wrap(scan.ReasonTimeout, ctx.Err())
		}
		return Result{}, scan.Wrap(scan.ReasonToolNotFound, fmt.Errorf("start %s: %w", c.Path, err))
	}

	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitCh <- err
	}()

	var res Result
	sc := bufio.NewScanner(pr)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		res.Lines = append(res.Lines, line)
		if c.OnLine != nil {
			c.OnLine(line)
		}
	}
	scanErr := sc.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, pr)
	}

	waitErr := <-waitCh
	res.Duration = time.Since(start)
	res.Stderr = stderr.String()
	res.ExitCode = cmd.ProcessState.ExitCode()

	if ctx.Err() != nil {
		return res, scan.Wrap(scan.ReasonTimeout, fmt.Errorf("%s: %w", c.Path, ctx.Err()))
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, scan.Errorf(scan.ReasonToolExecutionError, "%s exited with code %d: %s",
				c.Path, exitErr.ExitCode(), summarize(res.Stderr))
		}
		return res, scan.Wrap(scan.ReasonToolExecutionError, fmt.Errorf("%s: %w", c.Path, waitErr))
	}
	if scanErr != nil {
		return res, scan.Wrap(scan.ReasonParseError, fmt.Errorf("read %s output: %w", c.Path, scanErr))
	}
	return res, nil
}

// Output returns the collected stdout as a single string.
func (r Result) Output() string {
	return strings.Join(r.Lines, "\n")
}

func summarize(stderr string) string {
	s := strings.TrimSpace(stderr)
	if s == "" {
		return "no stderr output"
	}
	return s
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
