package task

import (
	"path/filepath"
	"time"
)

// Outcome classifies how the conversion of a single image ended.
type Outcome int

const (
	OutcomeSuccess    Outcome = iota
	OutcomeLoadFailed         // file was readable but no decoder accepted it
	OutcomeSaveFailed         // converted image could not be serialized
	OutcomeIOError            // filesystem error while reading or writing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeLoadFailed:
		return "LOAD_FAILED"
	case OutcomeSaveFailed:
		return "SAVE_FAILED"
	case OutcomeIOError:
		return "IO_ERROR"
	default:
		return "UNKNOWN"
	}
}

// WorkItem pairs one source image with the directory its converted
// copy is written to.
type WorkItem struct {
	Source  string `json:"source"`
	DestDir string `json:"dest_dir"`
}

// OutputPath keeps the source file name and moves it under DestDir.
func (w WorkItem) OutputPath() string {
	return filepath.Join(w.DestDir, filepath.Base(w.Source))
}

// Task is one unit of batch work. Execute blocks until the item is
// fully processed and never reports failure any other way than
// through the returned Result.
type Task interface {
	Execute() Result
}

// Result captures the outcome of one executed task.
type Result struct {
	Index    int           `json:"index"`
	Source   string        `json:"source"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Width    int           `json:"width,omitempty"`
	Height   int           `json:"height,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the task ended in any non-success outcome.
func (r Result) Failed() bool {
	return r.Outcome != OutcomeSuccess
}

// BatchReport is the final output of one batch execution. Succeeded
// plus the three failure counts always equals Total.
type BatchReport struct {
	Mode       string        `json:"mode"`
	Workers    int           `json:"workers"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	LoadFailed int           `json:"load_failed"`
	SaveFailed int           `json:"save_failed"`
	IOErrors   int           `json:"io_errors"`
	Failures   []Result      `json:"failures,omitempty"`
}

// NewBatchReport folds per-image results into aggregate counts.
// Failures keep their slot order from the results slice.
func NewBatchReport(mode string, workers int, startedAt time.Time, elapsed time.Duration, results []Result) *BatchReport {
	r := &BatchReport{
		Mode:      mode,
		Workers:   workers,
		StartedAt: startedAt,
		Elapsed:   elapsed,
		Total:     len(results),
	}
	for _, res := range results {
		switch res.Outcome {
		case OutcomeSuccess:
			r.Succeeded++
			continue
		case OutcomeLoadFailed:
			r.LoadFailed++
		case OutcomeSaveFailed:
			r.SaveFailed++
		case OutcomeIOError:
			r.IOErrors++
		}
		r.Failures = append(r.Failures, res)
	}
	return r
}

// Failed returns the number of items that ended in any failure outcome.
func (r *BatchReport) Failed() int {
	return r.LoadFailed + r.SaveFailed + r.IOErrors
}

// AvgPerImage is the mean wall-clock cost per item, zero for an
// empty batch.
func (r *BatchReport) AvgPerImage() time.Duration {
	if r.Total == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Total)
}
