package pipeline

import (
	"context"
	"log/slog"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Observer is told when a stage starts and finishes. Calls arrive from
// concurrent activities.
type Observer interface {
	StageStarted(stage scan.Stage)
	StageFinished(summary scan.Summary)
}

// Activities runs one stage per method. Methods never return an error:
// every failure is folded into the returned Outcome, so the workflow never
// retries or aborts because of a stage.
type Activities struct {
	stages   Stages
	logger   *slog.Logger
	observer Observer
	done     *completed
}

func (a *Activities) EnumerateSubdomains(ctx context.Context, req scan.Request) (scan.Outcome[[]string], error) {
	return runStage(ctx, a, req, scan.StageSubdomains, a.stages.Subdomains,
		func(o *scan.Outcomes) *scan.Outcome[[]string] { return &o.Subdomains },
		func(s []string) int { return len(s) }), nil
}

func (a *Activities) ProbeVulnerabilities(ctx context.Context, req scan.Request) (scan.Outcome[[]scan.Vulnerability], error) {
	return runStage(ctx, a, req, scan.StageVulnerabilities, a.stages.Vulnerabilities,
		func(o *scan.Outcomes) *scan.Outcome[[]scan.Vulnerability] { return &o.Vulnerabilities },
		func(v []scan.Vulnerability) int { return len(v) }), nil
}

func (a *Activities) ScanPorts(ctx context.Context, req scan.Request) (scan.Outcome[[]scan.HostPorts], error) {
	return runStage(ctx, a, req, scan.StagePorts, a.stages.Ports,
		func(o *scan.Outcomes) *scan.Outcome[[]scan.HostPorts] { return &o.Ports },
		scan.PortCount), nil
}

func (a *Activities) CheckTLS(ctx context.Context, req scan.Request) (scan.Outcome[[]scan.TLSIssue], error) {
	return runStage(ctx, a, req, scan.StageTLS, a.stages.TLS,
		func(o *scan.Outcomes) *scan.Outcome[[]scan.TLSIssue] { return &o.TLS },
		func(i []scan.TLSIssue) int { return len(i) }), nil
}

func (a *Activities) TestSQLInjection(ctx context.Context, req scan.Request) (scan.Outcome[[]string], error) {
	return runStage(ctx, a, req, scan.StageSQL, a.stages.SQL,
		func(o *scan.Outcomes) *scan.Outcome[[]string] { return &o.SQL },
		func(s []string) int { return len(s) }), nil
}

func runStage[E any](
	ctx context.Context,
	a *Activities,
	req scan.Request,
	stage scan.Stage,
	fn func(context.Context, scan.Request) ([]E, error),
	field func(*scan.Outcomes) *scan.Outcome[[]E],
	count func([]E) int,
) scan.Outcome[[]E] {
	if a.observer != nil {
		a.observer.StageStarted(stage)
	}

	var out scan.Outcome[[]E]
	if fn == nil {
		out = scan.Failed[[]E](stage, scan.ReasonToolExecutionError, "stage not configured")
	} else {
		out = scan.Run[[]E](ctx, stage, req.TimeoutPerStage, func(ctx context.Context) ([]E, error) {
			return fn(ctx, req)
		}, scan.IsEmpty[E])
	}

	if !a.done.record(stage, func(o *scan.Outcomes) { *field(o) = out }) {
		// The run was interrupted and has already reported this stage.
		return out
	}

	summary := scan.Summarize(out, count(out.Data()))
	if out.Status == scan.StatusFailed {
		a.logger.Error("stage failed",
			"run_id", req.RunID, "stage", stage, "reason", out.Reason, "detail", out.Detail, "elapsed", out.Elapsed)
	} else {
		a.logger.Info("stage completed",
			"run_id", req.RunID, "stage", stage, "status", out.Status, "findings", summary.Findings, "elapsed", out.Elapsed)
	}
	if a.observer != nil {
		a.observer.StageFinished(summary)
	}
	return out
}
