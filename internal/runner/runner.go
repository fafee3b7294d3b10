package runner

import (
	"context"
	"errors"

	"github.com/ppiankov/grayforge/internal/task"
)

// Execution modes stamped into batch reports.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
	ModeWatch      = "watch"
)

// ErrInterrupted is returned when the wait for a running batch is
// abandoned before every task has finished. No report exists in that
// case: partial counts would undercount work still in flight.
var ErrInterrupted = errors.New("batch interrupted")

// Runner executes a batch of tasks and folds their outcomes into a
// single report. Implementations return either a complete report or
// an error, never both.
type Runner interface {
	RunAll(ctx context.Context, tasks []task.Task) (*task.BatchReport, error)
}

// Config carries runner tuning and display hooks. Hooks observe
// execution only; dropping them changes no outcome. Concurrent
// runners invoke hooks from worker goroutines, so hook
// implementations must be safe for concurrent use.
type Config struct {
	// Workers caps simultaneous task execution. Zero or negative
	// means one worker per logical CPU. Sequential runners ignore it.
	Workers int

	// OnStart fires when the task at the given slot begins executing.
	OnStart func(index int)

	// OnResult fires once per task, with the finished result.
	OnResult func(res task.Result)
}
