package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/grayforge/internal/task"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const maxImageLines = 20

// Live provides a live-updating terminal display during a batch.
type Live struct {
	w         io.Writer
	color     bool
	prog      *Progress
	stop      chan struct{}
	done      chan struct{}
	lastLines int
	frame     int
	mu        sync.Mutex
}

// NewLive creates a live reporter that polls prog for snapshots.
func NewLive(w io.Writer, color bool, prog *Progress) *Live {
	return &Live{
		w:     w,
		color: color,
		prog:  prog,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start begins the periodic refresh loop.
func (lr *Live) Start() {
	go lr.loop()
}

// Stop halts the refresh loop and clears the live display.
func (lr *Live) Stop() {
	close(lr.stop)
	<-lr.done
	lr.clearLastFrame()
}

func (lr *Live) loop() {
	defer close(lr.done)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-lr.stop:
			return
		case <-ticker.C:
			lr.render()
		}
	}
}

func (lr *Live) clearLastFrame() {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.lastLines > 0 {
		fmt.Fprintf(lr.w, "\033[%dA", lr.lastLines)
		for i := 0; i < lr.lastLines; i++ {
			fmt.Fprintf(lr.w, "\033[K\n")
		}
		fmt.Fprintf(lr.w, "\033[%dA", lr.lastLines)
	}
}

func (lr *Live) render() {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	lines := lr.buildLines(lr.prog.Snapshot())

	// move cursor up to overwrite previous frame
	if lr.lastLines > 0 {
		fmt.Fprintf(lr.w, "\033[%dA", lr.lastLines)
	}

	for _, line := range lines {
		fmt.Fprintf(lr.w, "\033[K%s\n", line)
	}

	lr.lastLines = len(lines)
	lr.frame++
}

// Render produces the display lines for a given snapshot.
// Exported for testing.
func (lr *Live) Render(snap Snapshot) []string {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.buildLines(snap)
}

func (lr *Live) buildLines(snap Snapshot) []string {
	spinner := spinnerFrames[lr.frame%len(spinnerFrames)]

	var lines []string
	lines = append(lines, fmt.Sprintf("grayforge — %d images", snap.Total))
	lines = append(lines, "")

	imageLines := 0

	// failures first, they are what the user needs to see
	for _, res := range snap.Done {
		if !res.Failed() {
			continue
		}
		if imageLines >= maxImageLines {
			break
		}
		lines = append(lines, lr.formatFailed(res))
		imageLines++
	}

	// in-flight conversions
	for _, img := range snap.Running {
		if imageLines >= maxImageLines {
			break
		}
		lines = append(lines, lr.formatRunning(img, spinner))
		imageLines++
	}

	// recently converted (capped, most recent first)
	shownDone := 0
	converted := snap.Succeeded
	for i := len(snap.Done) - 1; i >= 0; i-- {
		res := snap.Done[i]
		if res.Failed() {
			continue
		}
		if imageLines >= maxImageLines {
			break
		}
		lines = append(lines, lr.formatConverted(res))
		imageLines++
		shownDone++
	}
	if remaining := converted - shownDone; remaining > 0 {
		lines = append(lines, fmt.Sprintf("  %s... %d more converted%s", lr.c(colorDim), remaining, lr.c(colorReset)))
	}

	lines = append(lines, "")
	lines = append(lines, lr.progressLine(snap))

	return lines
}

func (lr *Live) formatFailed(res task.Result) string {
	errMsg := res.Error
	if len(errMsg) > 120 {
		errMsg = errMsg[:120] + "..."
	}
	return fmt.Sprintf("  %s✗ %-10s %-30s %s%s",
		lr.c(colorRed), res.Outcome, filepath.Base(res.Source), errMsg, lr.c(colorReset))
}

func (lr *Live) formatRunning(img RunningImage, spinner string) string {
	elapsed := time.Since(img.StartedAt).Truncate(time.Second)
	return fmt.Sprintf("  %s%s %-10s %-30s %s%s",
		lr.c(colorCyan), spinner, "converting", filepath.Base(img.Source), elapsed, lr.c(colorReset))
}

func (lr *Live) formatConverted(res task.Result) string {
	extra := ""
	if res.Width > 0 {
		extra = fmt.Sprintf("%dx%d  ", res.Width, res.Height)
	}
	return fmt.Sprintf("  %s✓ %-10s %-30s %s%s%s",
		lr.c(colorGreen), "converted", filepath.Base(res.Source), extra,
		res.Duration.Truncate(time.Millisecond), lr.c(colorReset))
}

func (lr *Live) progressLine(snap Snapshot) string {
	var parts []string
	if snap.Succeeded > 0 {
		parts = append(parts, fmt.Sprintf("%s%d converted%s", lr.c(colorGreen), snap.Succeeded, lr.c(colorReset)))
	}
	if snap.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%s%d failed%s", lr.c(colorRed), snap.Failed, lr.c(colorReset)))
	}
	if len(snap.Running) > 0 {
		parts = append(parts, fmt.Sprintf("%s%d converting%s", lr.c(colorCyan), len(snap.Running), lr.c(colorReset)))
	}
	if len(snap.Pending) > 0 {
		parts = append(parts, fmt.Sprintf("%s%d queued%s", lr.c(colorDim), len(snap.Pending), lr.c(colorReset)))
	}
	if len(parts) == 0 {
		parts = append(parts, "waiting")
	}
	return fmt.Sprintf("  progress: %s", strings.Join(parts, ", "))
}

func (lr *Live) c(code string) string {
	if !lr.color {
		return ""
	}
	return code
}
