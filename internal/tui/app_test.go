package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/stratowatch/internal/chart"
	"github.com/fentz26/stratowatch/internal/client"
	"github.com/fentz26/stratowatch/internal/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			json.NewEncoder(w).Encode(client.HealthResponse{OK: true, DB: "ok", Version: "test"})
			return
		}
		json.NewEncoder(w).Encode([]models.HistoryPoint{
			{Time: models.UnixMillis(now.Add(-time.Hour)), Running: 2, Pending: 1},
			{Time: models.UnixMillis(now.Add(-30 * time.Minute)), Running: 4, Failed: 1},
		})
	}))
	t.Cleanup(srv.Close)

	a, err := New(client.NewClient(srv.URL), Options{Presets: chart.DefaultPresets(), ActivePreset: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if err := a.ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return a
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAppView(t *testing.T) {
	a := newTestApp(t)

	view := a.View()
	for _, want := range []string{"STRATOWATCH", "1:1h", "5:All", "Running", "Pending", "Failed", "█", "LIVE"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestAppKeysPanAndCommit(t *testing.T) {
	a := newTestApp(t)
	before := a.ctrl.Window()

	a.Update(runes("K"))
	if a.ctrl.State() != chart.Idle {
		t.Errorf("Expected key moves to commit, got %s", a.ctrl.State())
	}
	after := a.ctrl.Window()
	if after.Min <= before.Min || after.Max != before.Max {
		t.Errorf("Expected K to move only the start later: %+v -> %+v", before, after)
	}

	a.Update(runes("h"))
	panned := a.ctrl.Window()
	if panned.Max >= after.Max || panned.Width() != after.Width() {
		t.Errorf("Expected h to pan left keeping width: %+v -> %+v", after, panned)
	}
	if strings.Contains(a.View(), "● LIVE") {
		t.Error("Expected a panned window to stop following live")
	}
}

func TestAppMouseDrag(t *testing.T) {
	a := newTestApp(t)
	row := a.trackRow()
	tr := a.track()
	maxCol := tr.timeToCol(a.slider.Value().Max)

	a.Update(tea.MouseMsg{X: maxCol, Y: row, Type: tea.MouseLeft})
	if a.grab != handleMax {
		t.Fatalf("Expected to grab the max handle, got %v", a.grab)
	}
	a.Update(tea.MouseMsg{X: maxCol - 20, Y: row, Type: tea.MouseMotion})
	if a.ctrl.State() != chart.Dragging {
		t.Errorf("Expected dragging, got %s", a.ctrl.State())
	}
	dragged := a.ctrl.Window()

	// Polls while dragging leave the window alone.
	if err := a.ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if a.ctrl.Window() != dragged {
		t.Errorf("Expected window to stay during drag: %+v -> %+v", dragged, a.ctrl.Window())
	}

	a.Update(tea.MouseMsg{X: maxCol - 20, Y: row, Type: tea.MouseRelease})
	if a.ctrl.State() != chart.Idle || a.grab != handleNone {
		t.Errorf("Expected release to commit, state %s grab %v", a.ctrl.State(), a.grab)
	}
}

func TestAppPresetKey(t *testing.T) {
	a := newTestApp(t)

	_, cmd := a.Update(runes("2"))
	if cmd == nil {
		t.Fatal("Expected a command for preset selection")
	}
	msg := cmd()
	if _, ok := msg.(errMsg); ok {
		t.Fatalf("Preset selection failed: %v", msg)
	}
	if a.ctrl.ActivePreset() != 1 {
		t.Errorf("Expected preset 1 active, got %d", a.ctrl.ActivePreset())
	}

	if _, cmd := a.Update(runes("9")); cmd != nil {
		t.Error("Expected no command for a missing preset")
	}
}

func TestTrackMapping(t *testing.T) {
	tr := track{x0: 6, width: 101, bounds: chart.Window{Min: 1000, Max: 2000}}

	if got := tr.colToTime(6); got != 1000 {
		t.Errorf("colToTime(start) = %d", got)
	}
	if got := tr.colToTime(106); got != 2000 {
		t.Errorf("colToTime(end) = %d", got)
	}
	if got := tr.timeToCol(1500); got != 56 {
		t.Errorf("timeToCol(mid) = %d", got)
	}
	if got := tr.hit(56, chart.Window{Min: 1200, Max: 1800}); got != handleBand {
		t.Errorf("Expected band hit, got %v", got)
	}
}

func TestRenderFrame(t *testing.T) {
	series := chart.BuildSeries([]chart.Snapshot{{Time: 0, Running: 2, Pending: 2}}, 1000)
	opts := chart.DefaultOptions(chart.Window{Min: 0, Max: 1000})
	frame := renderFrame(series, opts, chart.Window{Min: 0, Max: 1000}, 30, 10)

	lines := strings.Split(frame, "\n")
	if len(lines) != 10 {
		t.Fatalf("Expected 10 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "4") {
		t.Errorf("Expected max label 4 on the top row, got %q", lines[1])
	}
	if !strings.Contains(lines[8], "█") {
		t.Errorf("Expected filled bottom row, got %q", lines[8])
	}
}
