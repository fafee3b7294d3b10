package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/grayforge/internal/task"
)

func sampleReport() *task.BatchReport {
	results := []task.Result{
		{Index: 0, Source: "images/a.png", Outcome: task.OutcomeSuccess, Width: 800, Height: 600, Duration: 40 * time.Millisecond},
		{Index: 1, Source: "images/b.jpg", Outcome: task.OutcomeLoadFailed, Error: "undecodable image: b.jpg"},
		{Index: 2, Source: "images/c.png", Outcome: task.OutcomeSuccess, Width: 64, Height: 64, Duration: 5 * time.Millisecond},
	}
	return task.NewBatchReport("concurrent", 4, time.Now(), 90*time.Millisecond, results)
}

func TestText_PrintHeader(t *testing.T) {
	var buf bytes.Buffer
	r := NewText(&buf, false)
	r.PrintHeader(10, 4, "concurrent")

	out := buf.String()
	if !strings.Contains(out, "10 images") {
		t.Errorf("expected '10 images' in output, got: %s", out)
	}
	if !strings.Contains(out, "4 workers") {
		t.Errorf("expected '4 workers' in output, got: %s", out)
	}
	if !strings.Contains(out, "concurrent") {
		t.Errorf("expected mode in output, got: %s", out)
	}
}

func TestText_PrintReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewText(&buf, false)
	r.PrintReport(sampleReport())

	out := buf.String()
	if !strings.Contains(out, "FAILED  [1/3]") {
		t.Errorf("expected failure section header, got: %s", out)
	}
	if !strings.Contains(out, "b.jpg") {
		t.Error("expected failed file name in output")
	}
	if !strings.Contains(out, "LOAD_FAILED") {
		t.Error("expected outcome label in output")
	}
	if !strings.Contains(out, "undecodable image") {
		t.Error("expected error message in output")
	}
	if !strings.Contains(out, "--- Results: concurrent ---") {
		t.Error("expected results banner")
	}
	if !strings.Contains(out, "Total: 3") || !strings.Contains(out, "Converted: 2") {
		t.Errorf("expected counts in summary, got: %s", out)
	}
	if !strings.Contains(out, "Load failed: 1") {
		t.Error("expected load failure count")
	}
	if !strings.Contains(out, "per image") {
		t.Error("expected average per image")
	}
}

func TestText_PrintReportCleanBatch(t *testing.T) {
	results := []task.Result{
		{Source: "a.png", Outcome: task.OutcomeSuccess},
		{Source: "b.png", Outcome: task.OutcomeSuccess},
	}
	rep := task.NewBatchReport("sequential", 1, time.Now(), 10*time.Millisecond, results)

	var buf bytes.Buffer
	NewText(&buf, false).PrintReport(rep)

	out := buf.String()
	if strings.Contains(out, "FAILED") {
		t.Error("clean batch should not print a failure section")
	}
	if !strings.Contains(out, "Converted: 2") {
		t.Errorf("expected 'Converted: 2', got: %s", out)
	}
}

func TestText_NoColor(t *testing.T) {
	var plain, colored bytes.Buffer
	NewText(&plain, false).PrintReport(sampleReport())
	NewText(&colored, true).PrintReport(sampleReport())

	if strings.Contains(plain.String(), "\033[") {
		t.Error("color disabled but ANSI codes present")
	}
	if !strings.Contains(colored.String(), "\033[") {
		t.Error("color enabled but no ANSI codes present")
	}
}

func TestText_PrintSpeedup(t *testing.T) {
	seq := task.NewBatchReport("sequential", 1, time.Now(), 2*time.Second, nil)
	conc := task.NewBatchReport("concurrent", 4, time.Now(), time.Second, nil)

	var buf bytes.Buffer
	NewText(&buf, false).PrintSpeedup(seq, conc)

	out := buf.String()
	if !strings.Contains(out, "2.00x") {
		t.Errorf("expected '2.00x' in output, got: %s", out)
	}
}

func TestWriteJSONReport(t *testing.T) {
	rep := sampleReport()
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteJSONReport(rep, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var decoded task.BatchReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Mode != "concurrent" || decoded.Total != 3 || decoded.Succeeded != 2 {
		t.Errorf("report fields did not survive: %+v", decoded)
	}
	if len(decoded.Failures) != 1 || decoded.Failures[0].Error == "" {
		t.Errorf("failure details missing: %+v", decoded.Failures)
	}
}

func TestProgress_Lifecycle(t *testing.T) {
	prog := NewProgress([]string{"a.png", "b.png", "c.png"})

	snap := prog.Snapshot()
	if snap.Total != 3 || len(snap.Pending) != 3 || len(snap.Running) != 0 {
		t.Fatalf("fresh progress wrong: %+v", snap)
	}

	prog.Start(1)
	snap = prog.Snapshot()
	if len(snap.Running) != 1 || snap.Running[0].Source != "b.png" {
		t.Errorf("expected b.png running, got %+v", snap.Running)
	}
	if len(snap.Pending) != 2 {
		t.Errorf("expected 2 pending, got %v", snap.Pending)
	}

	prog.Finish(task.Result{Index: 1, Source: "b.png", Outcome: task.OutcomeSuccess})
	prog.Start(0)
	prog.Finish(task.Result{Index: 0, Source: "a.png", Outcome: task.OutcomeIOError, Error: "boom"})

	snap = prog.Snapshot()
	if snap.Succeeded != 1 || snap.Failed != 1 {
		t.Errorf("counts = %d converted / %d failed, want 1/1", snap.Succeeded, snap.Failed)
	}
	if len(snap.Done) != 2 || snap.Done[0].Source != "b.png" {
		t.Errorf("done not in completion order: %+v", snap.Done)
	}
	if len(snap.Pending) != 1 || snap.Pending[0] != "c.png" {
		t.Errorf("pending = %v, want [c.png]", snap.Pending)
	}
}
