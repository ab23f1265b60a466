package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os/exec"
	"time"
)

// Status is the tri-state result of running one stage.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// Reason is the coarse failure category of a failed stage.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonToolNotFound       Reason = "ToolNotFound"
	ReasonToolExecutionError Reason = "ToolExecutionError"
	ReasonNetworkError       Reason = "NetworkError"
	ReasonTimeout            Reason = "Timeout"
	ReasonParseError         Reason = "ParseError"
	ReasonCancelled          Reason = "Cancelled" // the run was interrupted
)

// Outcome is the result of one stage. Payload is only meaningful when
// Status is StatusSuccess; for StatusEmpty it holds the empty value the
// stage returned. Outcomes cross the workflow engine boundary, so every
// field is JSON serializable.
type Outcome[T any] struct {
	Stage   Stage         `json:"stage"`
	Status  Status        `json:"status"`
	Reason  Reason        `json:"reason,omitempty"`
	Detail  string        `json:"detail,omitempty"`
	Payload T             `json:"payload"`
	Elapsed time.Duration `json:"elapsed"`
}

// Success wraps a non-empty payload.
func Success[T any](stage Stage, payload T) Outcome[T] {
	return Outcome[T]{Stage: stage, Status: StatusSuccess, Payload: payload}
}

// Empty records a valid run that found nothing.
func Empty[T any](stage Stage, payload T) Outcome[T] {
	return Outcome[T]{Stage: stage, Status: StatusEmpty, Payload: payload}
}

// Failed records a stage failure.
func Failed[T any](stage Stage, reason Reason, detail string) Outcome[T] {
	return Outcome[T]{Stage: stage, Status: StatusFailed, Reason: reason, Detail: detail}
}

// Failure returns the failure record of a failed outcome.
func (o Outcome[T]) Failure() (StageFailure, bool) {
	if o.Status != StatusFailed {
		return StageFailure{}, false
	}
	return StageFailure{Stage: o.Stage, Reason: o.Reason, Detail: o.Detail}, true
}

// Data returns the payload, or the zero value when the stage failed.
func (o Outcome[T]) Data() T {
	if o.Status == StatusFailed {
		var zero T
		return zero
	}
	return o.Payload
}

// Error carries a failure reason through an adapter boundary.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error with a formatted cause.
func Errorf(reason Reason, format string, args ...any) error {
	return &Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with reason. A nil err stays nil.
func Wrap(reason Reason, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Reason: reason, Err: err}
}

// Classify maps an error onto the failure taxonomy. Errors tagged with
// Wrap or Errorf keep their reason; everything else is inferred.
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var se *Error
	if errors.As(err, &se) && se.Reason != ReasonNone {
		return se.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ReasonToolNotFound
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return ReasonToolNotFound
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, fs.ErrNotExist) && pathErr.Op != "open" {
		return ReasonToolNotFound
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ReasonToolExecutionError
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ReasonTimeout
		}
		return ReasonNetworkError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonNetworkError
	}
	return ReasonToolExecutionError
}

// Outcomes holds the outcome of every stage of one run.
type Outcomes struct {
	Subdomains      Outcome[[]string]        `json:"subdomains"`
	Vulnerabilities Outcome[[]Vulnerability] `json:"vulnerabilities"`
	Ports           Outcome[[]HostPorts]     `json:"ports"`
	TLS             Outcome[[]TLSIssue]      `json:"tls"`
	SQL             Outcome[[]string]        `json:"sql"`
}

// Summary is the payload-free view of one outcome.
type Summary struct {
	Stage    Stage
	Status   Status
	Reason   Reason
	Detail   string
	Elapsed  time.Duration
	Findings int
}

// Summarize drops the payload of o, keeping findings as its size.
func Summarize[T any](o Outcome[T], findings int) Summary {
	return Summary{Stage: o.Stage, Status: o.Status, Reason: o.Reason, Detail: o.Detail, Elapsed: o.Elapsed, Findings: findings}
}

// Summaries lists one summary per stage in aggregation order.
func (o Outcomes) Summaries() []Summary {
	return []Summary{
		Summarize(o.Subdomains, len(o.Subdomains.Data())),
		Summarize(o.Vulnerabilities, len(o.Vulnerabilities.Data())),
		Summarize(o.Ports, PortCount(o.Ports.Data())),
		Summarize(o.TLS, len(o.TLS.Data())),
		Summarize(o.SQL, len(o.SQL.Data())),
	}
}

// FailAll returns Outcomes in which every stage failed for the same reason.
func FailAll(reason Reason, detail string) Outcomes {
	return Outcomes{
		Subdomains:      Failed[[]string](StageSubdomains, reason, detail),
		Vulnerabilities: Failed[[]Vulnerability](StageVulnerabilities, reason, detail),
		Ports:           Failed[[]HostPorts](StagePorts, reason, detail),
		TLS:             Failed[[]TLSIssue](StageTLS, reason, detail),
		SQL:             Failed[[]string](StageSQL, reason, detail),
	}
}

// PortCount totals the port records across hosts.
func PortCount(hosts []HostPorts) int {
	n := 0
	for _, h := range hosts {
		n += len(h.Ports)
	}
	return n
}
