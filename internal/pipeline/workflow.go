package pipeline

import (
	"github.com/cschleiden/go-workflows/workflow"

	"github.com/michelemendel/haintsec/internal/scan"
)

// ScanWorkflow schedules the five stage activities at once and joins them
// in fixed stage order, so the result never depends on which stage
// finished first.
func ScanWorkflow(ctx workflow.Context, req scan.Request) (scan.Outcomes, error) {
	var activity *Activities // Activity struct is just a placeholder for the activity names

	// Stages fold their own failures into outcomes; a retry would only
	// repeat a slow scan.
	activityOptions := workflow.ActivityOptions{
		RetryOptions: workflow.RetryOptions{MaxAttempts: 1},
	}

	subdomains := workflow.ExecuteActivity[scan.Outcome[[]string]](ctx, activityOptions, activity.EnumerateSubdomains, req)
	vulns := workflow.ExecuteActivity[scan.Outcome[[]scan.Vulnerability]](ctx, activityOptions, activity.ProbeVulnerabilities, req)
	ports := workflow.ExecuteActivity[scan.Outcome[[]scan.HostPorts]](ctx, activityOptions, activity.ScanPorts, req)
	tls := workflow.ExecuteActivity[scan.Outcome[[]scan.TLSIssue]](ctx, activityOptions, activity.CheckTLS, req)
	sql := workflow.ExecuteActivity[scan.Outcome[[]string]](ctx, activityOptions, activity.TestSQLInjection, req)

	var out scan.Outcomes
	var err error
	if out.Subdomains, err = subdomains.Get(ctx); err != nil {
		out.Subdomains = scan.Failed[[]string](scan.StageSubdomains, scan.ReasonToolExecutionError, err.Error())
	}
	if out.Vulnerabilities, err = vulns.Get(ctx); err != nil {
		out.Vulnerabilities = scan.Failed[[]scan.Vulnerability](scan.StageVulnerabilities, scan.ReasonToolExecutionError, err.Error())
	}
	if out.Ports, err = ports.Get(ctx); err != nil {
		out.Ports = scan.Failed[[]scan.HostPorts](scan.StagePorts, scan.ReasonToolExecutionError, err.Error())
	}
	if out.TLS, err = tls.Get(ctx); err != nil {
		out.TLS = scan.Failed[[]scan.TLSIssue](scan.StageTLS, scan.ReasonToolExecutionError, err.Error())
	}
	if out.SQL, err = sql.Get(ctx); err != nil {
		out.SQL = scan.Failed[[]string](scan.StageSQL, scan.ReasonToolExecutionError, err.Error())
	}
	return out, nil
}
