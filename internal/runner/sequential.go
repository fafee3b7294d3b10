package runner

import (
	"context"
	"time"

	"github.com/ppiankov/grayforge/internal/task"
)

// Sequential executes tasks one after another on the calling
// goroutine, in slice order. It is the baseline the concurrent
// runner is measured against.
type Sequential struct {
	cfg Config
}

func NewSequential(cfg Config) *Sequential {
	return &Sequential{cfg: cfg}
}

// RunAll processes every task in order. Cancellation is honored
// between tasks: a task that has started always runs to completion,
// and an interrupted batch yields no report.
func (s *Sequential) RunAll(ctx context.Context, tasks []task.Task) (*task.BatchReport, error) {
	start := time.Now()
	results := make([]task.Result, len(tasks))

	for i, t := range tasks {
		select {
		case <-ctx.Done():
			return nil, ErrInterrupted
		default:
		}

		if s.cfg.OnStart != nil {
			s.cfg.OnStart(i)
		}
		res := t.Execute()
		res.Index = i
		results[i] = res
		if s.cfg.OnResult != nil {
			s.cfg.OnResult(res)
		}
	}

	return task.NewBatchReport(ModeSequential, 1, start, time.Since(start), results), nil
}
