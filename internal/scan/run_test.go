package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SuccessWithData(t *testing.T) {
	out := Run[[]string](context.Background(), StageSubdomains, time.Second, func(ctx context.Context) ([]string, error) {
		return []string{"a.example.com"}, nil
	}, IsEmpty[string])

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, StageSubdomains, out.Stage)
	assert.Equal(t, []string{"a.example.com"}, out.Payload)
	assert.Empty(t, out.Reason)
}

func TestRun_EmptyIsNotFailure(t *testing.T) {
	out := Run[[]HostPorts](context.Background(), StagePorts, time.Second, func(ctx context.Context) ([]HostPorts, error) {
		return nil, nil
	}, IsEmpty[HostPorts])

	assert.Equal(t, StatusEmpty, out.Status)
	_, failed := out.Failure()
	assert.False(t, failed)
}

func TestRun_NilIsEmptyTreatsPayloadAsData(t *testing.T) {
	out := Run[[]string](context.Background(), StageSQL, time.Second, func(ctx context.Context) ([]string, error) {
		return nil, nil
	}, nil)
	assert.Equal(t, StatusSuccess, out.Status)
}

func TestRun_ErrorBecomesFailedOutcome(t *testing.T) {
	out := Run[[]string](context.Background(), StageSQL, time.Second, func(ctx context.Context) ([]string, error) {
		return []string{"partial"}, Errorf(ReasonParseError, "garbled output")
	}, IsEmpty[string])

	require.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonParseError, out.Reason)
	assert.Equal(t, "garbled output", out.Detail)
	assert.Nil(t, out.Data())

	f, ok := out.Failure()
	require.True(t, ok)
	assert.Equal(t, StageFailure{Stage: StageSQL, Reason: ReasonParseError, Detail: "garbled output"}, f)
}

func TestRun_TimeoutEvenWhenStageIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	out := Run[[]TLSIssue](context.Background(), StageTLS, 50*time.Millisecond, func(ctx context.Context) ([]TLSIssue, error) {
		<-release
		return nil, nil
	}, IsEmpty[TLSIssue])

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.Contains(t, out.Detail, "50ms")
}

func TestRun_KilledProcessOnDeadlineIsTimeout(t *testing.T) {
	out := Run[[]HostPorts](context.Background(), StagePorts, 20*time.Millisecond, func(ctx context.Context) ([]HostPorts, error) {
		<-ctx.Done()
		return nil, &exec.ExitError{}
	}, IsEmpty[HostPorts])

	assert.Equal(t, ReasonTimeout, out.Reason)
}

func TestRun_PanicIsCaptured(t *testing.T) {
	out := Run[[]Vulnerability](context.Background(), StageVulnerabilities, time.Second, func(ctx context.Context) ([]Vulnerability, error) {
		panic("boom")
	}, IsEmpty[Vulnerability])

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonToolExecutionError, out.Reason)
	assert.Contains(t, out.Detail, "boom")
}

func TestRun_TimeoutDoesNotCancelParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	Run[int](parent, StageTLS, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil)

	assert.NoError(t, parent.Err())
}

func TestRun_ParentCancelIsNotATimeout(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := Run[[]string](parent, StageSQL, time.Minute, func(ctx context.Context) ([]string, error) {
		<-release // ignores ctx
		return nil, nil
	}, IsEmpty[string])

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonCancelled, out.Reason)
	assert.Contains(t, out.Detail, "stage cancelled")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonNone},
		{"tagged", Wrap(ReasonParseError, errors.New("x")), ReasonParseError},
		{"tagged wrapped", fmt.Errorf("outer: %w", Wrap(ReasonNetworkError, errors.New("x"))), ReasonNetworkError},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), ReasonTimeout},
		{"cancelled", fmt.Errorf("wait: %w", context.Canceled), ReasonCancelled},
		{"not found", &exec.Error{Name: "nmap", Err: exec.ErrNotFound}, ReasonToolNotFound},
		{"exit", &exec.ExitError{}, ReasonToolExecutionError},
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, ReasonNetworkError},
		{"dns timeout", &net.DNSError{Err: "timeout", IsTimeout: true}, ReasonTimeout},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, ReasonTimeout},
		{"conn refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, ReasonNetworkError},
		{"other", errors.New("something"), ReasonToolExecutionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestParsePortState(t *testing.T) {
	assert.Equal(t, PortOpen, ParsePortState("open"))
	assert.Equal(t, PortClosed, ParsePortState("closed"))
	assert.Equal(t, PortFiltered, ParsePortState("open|filtered"))
	assert.Equal(t, PortUnknown, ParsePortState("weird"))
}
