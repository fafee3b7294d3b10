package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/grayforge/internal/task"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

// Text writes human-readable batch output to a writer.
type Text struct {
	w     io.Writer
	color bool
}

// NewText creates a text reporter.
// If w is nil, defaults to os.Stdout.
// color enables ANSI codes.
func NewText(w io.Writer, color bool) *Text {
	if w == nil {
		w = os.Stdout
	}
	return &Text{w: w, color: color}
}

// PrintHeader writes the initial banner.
func (r *Text) PrintHeader(images, workers int, mode string) {
	fmt.Fprintf(r.w, "grayforge — %d images, %d workers (%s)\n\n", images, workers, mode)
}

// PrintReport writes the failure listing and the summary of one
// finished batch.
func (r *Text) PrintReport(rep *task.BatchReport) {
	if len(rep.Failures) > 0 {
		fmt.Fprintf(r.w, "  %sFAILED  [%d/%d]%s\n", r.c(colorRed), len(rep.Failures), rep.Total, r.c(colorReset))
		for _, f := range rep.Failures {
			fmt.Fprintf(r.w, "    ✗ %-30s %-12s %s\n", filepath.Base(f.Source), f.Outcome, f.Error)
		}
		fmt.Fprintln(r.w)
	}

	fmt.Fprintf(r.w, "%s--- Results: %s ---%s\n", r.c(colorCyan), rep.Mode, r.c(colorReset))
	fmt.Fprintf(r.w, "Total: %d  ", rep.Total)
	fmt.Fprintf(r.w, "%sConverted: %d%s  ", r.c(colorGreen), rep.Succeeded, r.c(colorReset))
	if rep.LoadFailed > 0 {
		fmt.Fprintf(r.w, "%sLoad failed: %d%s  ", r.c(colorRed), rep.LoadFailed, r.c(colorReset))
	}
	if rep.SaveFailed > 0 {
		fmt.Fprintf(r.w, "%sSave failed: %d%s  ", r.c(colorRed), rep.SaveFailed, r.c(colorReset))
	}
	if rep.IOErrors > 0 {
		fmt.Fprintf(r.w, "%sI/O errors: %d%s  ", r.c(colorRed), rep.IOErrors, r.c(colorReset))
	}
	fmt.Fprintf(r.w, "Workers: %d\n", rep.Workers)

	fmt.Fprintf(r.w, "Elapsed: %s", rep.Elapsed.Truncate(time.Millisecond))
	if rep.Total > 0 {
		fmt.Fprintf(r.w, "  (%s per image)", rep.AvgPerImage().Truncate(time.Millisecond))
	}
	fmt.Fprintln(r.w)
}

// PrintSpeedup compares a sequential and a concurrent pass over the
// same batch.
func (r *Text) PrintSpeedup(seq, conc *task.BatchReport) {
	if seq == nil || conc == nil || conc.Elapsed <= 0 {
		return
	}
	ratio := float64(seq.Elapsed) / float64(conc.Elapsed)
	fmt.Fprintf(r.w, "\n%sSpeedup: %.2fx%s  (sequential %s, concurrent %s with %d workers)\n",
		r.c(colorCyan), ratio, r.c(colorReset),
		seq.Elapsed.Truncate(time.Millisecond), conc.Elapsed.Truncate(time.Millisecond), conc.Workers)
}

func (r *Text) c(code string) string {
	if !r.color {
		return ""
	}
	return code
}
