package reporter

import (
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/grayforge/internal/task"
)

// Progress tracks a batch while it runs so displays can poll a
// consistent view. Runner hooks feed it from worker goroutines; all
// methods are safe for concurrent use.
type Progress struct {
	mu      sync.Mutex
	sources []string
	started map[int]time.Time
	running map[int]time.Time
	done    []task.Result
	failed  int
}

// RunningImage is one in-flight conversion.
type RunningImage struct {
	Index     int
	Source    string
	StartedAt time.Time
}

// Snapshot is a point-in-time copy of batch progress. Done holds
// finished results in completion order; Pending lists sources that
// have not started yet, in batch order.
type Snapshot struct {
	Total     int
	Running   []RunningImage
	Done      []task.Result
	Pending   []string
	Succeeded int
	Failed    int
}

// NewProgress tracks a batch over the given source files. The slice
// index matches the task index the runner reports.
func NewProgress(sources []string) *Progress {
	return &Progress{
		sources: append([]string(nil), sources...),
		started: make(map[int]time.Time),
		running: make(map[int]time.Time),
	}
}

// Start marks the item at index as executing.
func (p *Progress) Start(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.started[index] = now
	p.running[index] = now
}

// Finish records a completed result.
func (p *Progress) Finish(res task.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, res.Index)
	p.done = append(p.done, res)
	if res.Failed() {
		p.failed++
	}
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Total:     len(p.sources),
		Done:      append([]task.Result(nil), p.done...),
		Succeeded: len(p.done) - p.failed,
		Failed:    p.failed,
	}

	for idx, startedAt := range p.running {
		source := ""
		if idx >= 0 && idx < len(p.sources) {
			source = p.sources[idx]
		}
		snap.Running = append(snap.Running, RunningImage{
			Index:     idx,
			Source:    source,
			StartedAt: startedAt,
		})
	}
	sort.Slice(snap.Running, func(i, j int) bool {
		return snap.Running[i].Index < snap.Running[j].Index
	})

	for i, source := range p.sources {
		if _, ok := p.started[i]; !ok {
			snap.Pending = append(snap.Pending, source)
		}
	}

	return snap
}
