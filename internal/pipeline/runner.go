// Package pipeline runs the scan stages concurrently as go-workflows
// activities and collects one outcome per stage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cschleiden/go-workflows/backend/sqlite"
	"github.com/cschleiden/go-workflows/client"
	"github.com/cschleiden/go-workflows/worker"

	"github.com/michelemendel/haintsec/internal/scan"
)

// resultSlack is added to the stage timeout when waiting for the workflow;
// stages run in parallel, so the slowest one bounds the run.
const resultSlack = time.Minute

// Runner executes scan runs.
type Runner struct {
	stages   Stages
	logger   *slog.Logger
	observer Observer
}

// NewRunner creates a Runner. logger and observer may be nil.
func NewRunner(stages Stages, logger *slog.Logger, observer Observer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{stages: stages, logger: logger, observer: observer}
}

// Run executes every stage of req and returns their outcomes. It never
// fails: if ctx is cancelled or the workflow engine breaks, the stages that
// already finished keep their outcomes and the others are reported as
// failed (Cancelled when ctx was cancelled).
func (r *Runner) Run(ctx context.Context, req scan.Request) scan.Outcomes {
	done := newCompleted()
	out, err := r.run(ctx, req, done)
	if err == nil {
		return out
	}

	reason := scan.Classify(err)
	if ctx.Err() != nil {
		reason = scan.Classify(ctx.Err())
	}
	r.logger.Error("workflow failed", "run_id", req.RunID, "reason", reason, "error", err)

	out, missing := done.close(reason, err.Error())
	for _, s := range missing {
		r.logger.Error("stage failed",
			"run_id", req.RunID, "stage", s.Stage, "reason", s.Reason, "detail", s.Detail, "elapsed", s.Elapsed)
		if r.observer != nil {
			r.observer.StageFinished(s)
		}
	}
	return out
}

func (r *Runner) run(ctx context.Context, req scan.Request, done *completed) (scan.Outcomes, error) {
	// Initialize Workflow Backend
	b := sqlite.NewInMemoryBackend()

	c := client.New(b)
	w := worker.New(b, nil)

	w.RegisterWorkflow(ScanWorkflow)
	w.RegisterActivity(&Activities{stages: r.stages, logger: r.logger, observer: r.observer, done: done})

	workerCtx, stopWorker := context.WithCancel(ctx)
	if err := w.Start(workerCtx); err != nil {
		stopWorker()
		return scan.Outcomes{}, fmt.Errorf("start worker: %w", err)
	}
	defer func() {
		stopWorker()
		_ = w.WaitForCompletion()
	}()

	instance, err := c.CreateWorkflowInstance(ctx, client.WorkflowInstanceOptions{
		InstanceID: "scan-" + req.RunID,
	}, ScanWorkflow, req)
	if err != nil {
		return scan.Outcomes{}, fmt.Errorf("create workflow: %w", err)
	}
	r.logger.Info("workflow started", "run_id", req.RunID, "target", req.TargetURL)

	out, err := client.GetWorkflowResult[scan.Outcomes](ctx, c, instance, req.TimeoutPerStage+resultSlack)
	if err != nil {
		return scan.Outcomes{}, fmt.Errorf("wait for workflow: %w", err)
	}
	return out, nil
}
