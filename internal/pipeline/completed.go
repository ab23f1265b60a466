package pipeline

import (
	"sync"

	"github.com/michelemendel/haintsec/internal/scan"
)

// completed collects stage outcomes as activities finish, so an interrupted
// run still reports the stages that got through.
type completed struct {
	mu     sync.Mutex
	closed bool
	set    map[scan.Stage]func(*scan.Outcomes)
}

func newCompleted() *completed {
	return &completed{set: make(map[scan.Stage]func(*scan.Outcomes))}
}

// record stores an outcome. It returns false once the run has been closed;
// the outcome is then dropped.
func (c *completed) record(stage scan.Stage, apply func(*scan.Outcomes)) bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.set[stage] = apply
	return true
}

// close stops recording and returns the recorded outcomes. Stages that never
// finished fail with reason and detail and are also returned as summaries.
func (c *completed) close(reason scan.Reason, detail string) (scan.Outcomes, []scan.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	out := scan.FailAll(reason, detail)
	for _, apply := range c.set {
		apply(&out)
	}
	var missing []scan.Summary
	for _, s := range out.Summaries() {
		if _, ok := c.set[s.Stage]; !ok {
			missing = append(missing, s)
		}
	}
	return out, missing
}
