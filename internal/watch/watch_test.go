package watch

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/grayforge/internal/runner"
	"github.com/ppiankov/grayforge/internal/task"
)

// writePNG writes a small valid PNG to path.
func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 31, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newTestWatcher(t *testing.T, cfg Config) *Watcher {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.pollInterval = 50 * time.Millisecond
	return w
}

func TestNewWatcherValidation(t *testing.T) {
	t.Run("missing input dir", func(t *testing.T) {
		_, err := New(Config{OutputDir: "/tmp/out"})
		if err == nil {
			t.Error("expected error for missing input dir")
		}
	})
	t.Run("missing output dir", func(t *testing.T) {
		_, err := New(Config{InputDir: "/tmp/in"})
		if err == nil {
			t.Error("expected error for missing output dir")
		}
	})
	t.Run("valid config", func(t *testing.T) {
		w, err := New(Config{InputDir: "/tmp/in", OutputDir: "/tmp/out"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.cfg.Debounce != debounceDefault {
			t.Errorf("expected default debounce %v, got %v", debounceDefault, w.cfg.Debounce)
		}
		if w.cfg.Codec == nil {
			t.Error("expected default codec")
		}
	})
}

func TestConvertExisting(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writePNG(t, filepath.Join(input, "a.png"))
	writePNG(t, filepath.Join(input, "b.png"))
	if err := os.WriteFile(filepath.Join(input, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, Config{InputDir: input, OutputDir: output})
	if err := w.convertExisting(context.Background()); err != nil {
		t.Fatalf("convert existing: %v", err)
	}

	if len(w.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(w.results))
	}
	for _, name := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(output, name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}
}

func TestConvertOncePerSession(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	src := filepath.Join(input, "a.png")
	writePNG(t, src)

	w := newTestWatcher(t, Config{InputDir: input, OutputDir: output})
	w.convert(src)
	w.convert(src)

	if len(w.results) != 1 {
		t.Errorf("expected 1 result after repeat convert, got %d", len(w.results))
	}
}

func TestConvertRecordsFailure(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	src := filepath.Join(input, "broken.jpg")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	var hooked []task.Result
	w := newTestWatcher(t, Config{
		InputDir:  input,
		OutputDir: output,
		OnResult:  func(res task.Result) { hooked = append(hooked, res) },
	})
	w.convert(src)

	if len(w.results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(w.results))
	}
	if w.results[0].Outcome != task.OutcomeLoadFailed {
		t.Errorf("expected LOAD_FAILED, got %v", w.results[0].Outcome)
	}
	if len(hooked) != 1 {
		t.Errorf("expected OnResult hook to fire once, fired %d times", len(hooked))
	}
}

func TestPollWatcherDetectsNewFile(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()

	w := newTestWatcher(t, Config{InputDir: input, OutputDir: output, Poll: true})

	ctx, cancel := context.WithCancel(context.Background())
	type runResult struct {
		report *task.BatchReport
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		report, err := w.Run(ctx)
		done <- runResult{report, err}
	}()

	// Let the poller start, then drop a file in.
	time.Sleep(150 * time.Millisecond)
	writePNG(t, filepath.Join(input, "late.png"))

	// Wait for a few poll ticks to pick it up.
	time.Sleep(300 * time.Millisecond)
	cancel()
	got := <-done

	if got.err != nil {
		t.Fatalf("run: %v", got.err)
	}
	if got.report.Mode != runner.ModeWatch {
		t.Errorf("expected mode %q, got %q", runner.ModeWatch, got.report.Mode)
	}
	if got.report.Total != 1 || got.report.Succeeded != 1 {
		t.Errorf("expected 1/1 converted, got %d/%d", got.report.Succeeded, got.report.Total)
	}
	if _, err := os.Stat(filepath.Join(output, "late.png")); err != nil {
		t.Errorf("expected converted output: %v", err)
	}
}

func TestRunInitialConvertsAndFoldsReport(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writePNG(t, filepath.Join(input, "a.png"))
	writePNG(t, filepath.Join(input, "b.png"))

	w := newTestWatcher(t, Config{InputDir: input, OutputDir: output, Initial: true, Poll: true})

	ctx, cancel := context.WithCancel(context.Background())
	type runResult struct {
		report *task.BatchReport
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		report, err := w.Run(ctx)
		done <- runResult{report, err}
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	got := <-done

	if got.err != nil {
		t.Fatalf("run: %v", got.err)
	}
	if got.report.Total != 2 || got.report.Succeeded != 2 {
		t.Errorf("expected 2/2 converted, got %d/%d", got.report.Succeeded, got.report.Total)
	}
	if got.report.Succeeded+got.report.Failed() != got.report.Total {
		t.Errorf("report counts do not add up: %+v", got.report)
	}
}
