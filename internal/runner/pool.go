package runner

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ppiankov/grayforge/internal/task"
)

// Pool executes tasks on a bounded worker pool. Results land in a
// slot per task index, so any two runs over the same batch fold to
// the same report no matter how the scheduler interleaves them.
type Pool struct {
	cfg Config
}

func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pool{cfg: cfg}
}

// Workers returns the effective pool width.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// RunAll fans the task indexes out to the workers and waits for all
// of them at the barrier before folding the report.
//
// Each worker writes only its own slot in results, and the barrier
// orders every write before the fold. If ctx is cancelled while
// waiting, the wait is abandoned with ErrInterrupted; in-flight
// tasks are not stopped, their output is simply never collected.
func (p *Pool) RunAll(ctx context.Context, tasks []task.Task) (*task.BatchReport, error) {
	start := time.Now()
	results := make([]task.Result, len(tasks))

	work := make(chan int, len(tasks))
	var wg sync.WaitGroup

	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if p.cfg.OnStart != nil {
					p.cfg.OnStart(i)
				}
				res := tasks[i].Execute()
				res.Index = i
				results[i] = res
				if p.cfg.OnResult != nil {
					p.cfg.OnResult(res)
				}
			}
		}()
	}

	for i := range tasks {
		work <- i
	}
	close(work)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("abandoning batch wait", "pending", len(tasks), "workers", p.cfg.Workers)
		return nil, ErrInterrupted
	}

	return task.NewBatchReport(ModeConcurrent, p.cfg.Workers, start, time.Since(start), results), nil
}
