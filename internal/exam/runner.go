package exam

import (
	"context"
	"time"
)

// TickInterval is the real-time length of one countdown second
const TickInterval = time.Second

// Runner drives an engine's countdown from a ticker
type Runner struct {
	engine   *Engine
	interval time.Duration
}

// NewRunner creates a runner that ticks engine every interval
func NewRunner(engine *Engine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Runner{engine: engine, interval: interval}
}

// Run ticks until the attempt finishes or ctx is cancelled. It returns the
// result if the attempt finished, by timeout or by a manual submit.
func (r *Runner) Run(ctx context.Context) *Result {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.engine.Result()
		case <-ticker.C:
			if result := r.engine.Tick(ctx); result != nil {
				return result
			}
			if r.engine.Phase() == PhaseFinished {
				return r.engine.Result()
			}
		}
	}
}
