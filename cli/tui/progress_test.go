package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/strata/export"
	"github.com/justapithecus/strata/metrics"
)

func TestProgressModel_ViewShowsCounters(t *testing.T) {
	collector := metrics.NewCollector("jsonlines", "file", "job-1")
	collector.IncRecordSubmitted()
	collector.IncRecordSubmitted()
	collector.IncRotation()
	collector.AddChunkClosed(2)

	m := NewProgressModel(collector)
	out := m.View()

	for _, want := range []string{"strata export", "Records", "Chunks", "Rotations", "job-1", "jsonlines", "file"} {
		if !strings.Contains(out, want) {
			t.Errorf("View missing %q:\n%s", want, out)
		}
	}
}

func TestProgressModel_DoneMsg(t *testing.T) {
	collector := metrics.NewCollector("json", "file", "job-1")
	m := NewProgressModel(collector)

	updated, cmd := m.Update(DoneMsg{Summary: export.Summary{Chunks: 3, Records: 12}})
	done := updated.(ProgressModel)

	if !done.done {
		t.Error("model not marked done")
	}
	if cmd == nil {
		t.Error("DoneMsg should quit the program")
	}

	out := done.View()
	if !strings.Contains(out, "12 records in 3 chunks") {
		t.Errorf("done view missing summary:\n%s", out)
	}
}

func TestProgressModel_DoneMsgWithError(t *testing.T) {
	collector := metrics.NewCollector("json", "file", "job-1")
	m := NewProgressModel(collector)

	updated, _ := m.Update(DoneMsg{Err: errors.New("sink unavailable")})
	out := updated.(ProgressModel).View()

	if !strings.Contains(out, "sink unavailable") {
		t.Errorf("error view missing failure:\n%s", out)
	}
}

func TestProgressModel_QuitKey(t *testing.T) {
	collector := metrics.NewCollector("json", "file", "job-1")
	m := NewProgressModel(collector)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("q should quit")
	}
	if updated.(ProgressModel).View() != "" {
		t.Error("quitting view should be empty")
	}
}

func TestProgressModel_TickRefreshesSnapshot(t *testing.T) {
	collector := metrics.NewCollector("json", "file", "job-1")
	m := NewProgressModel(collector)

	collector.IncRecordSubmitted()
	updated, cmd := m.Update(tickMsg{})
	refreshed := updated.(ProgressModel)

	if refreshed.snap.RecordsSubmitted != 1 {
		t.Errorf("snapshot not refreshed: %d", refreshed.snap.RecordsSubmitted)
	}
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}
