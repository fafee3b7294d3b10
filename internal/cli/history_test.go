package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/grayforge/internal/history"
)

func TestBuildHistoryRows(t *testing.T) {
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
	rows := buildHistoryRows([]history.Run{{
		StartedAt:  started,
		Mode:       "concurrent",
		Workers:    8,
		Total:      24,
		Succeeded:  21,
		LoadFailed: 1,
		IOErrors:   2,
		Elapsed:    1500 * time.Millisecond,
		InputDir:   "photos",
	}})

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := []string{"2025-03-14 09:26:53", "concurrent", "8", "24", "21", "3", "1.5s", "photos"}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Errorf("column %d = %q, want %q", i, rows[0][i], cell)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Mode", "Total"},
		[][]string{{"concurrent", "10"}, {"sequential", "10"}},
		[]colAlign{alignLeft, alignRight},
	)
	for _, want := range []string{"Mode", "Total", "concurrent", "sequential", "10"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output for empty headers")
	}
}
