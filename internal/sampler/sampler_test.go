package sampler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/stratowatch/internal/audit"
	"github.com/fentz26/stratowatch/internal/history"
	"github.com/fentz26/stratowatch/internal/models"
	"github.com/fentz26/stratowatch/internal/store"
	"go.uber.org/zap"
)

// mockProbe returns the configured counts, or err when set.
type mockProbe struct {
	mu     sync.Mutex
	groups []models.GroupCounts
	err    error
	calls  int
}

func (m *mockProbe) Name() string {
	return "mock"
}

func (m *mockProbe) Probe(ctx context.Context) ([]models.GroupCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.groups, nil
}

func (m *mockProbe) set(groups []models.GroupCounts) {
	m.mu.Lock()
	m.groups = groups
	m.mu.Unlock()
}

func (m *mockProbe) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestSampleOnce_StoresOnlyChanges(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	probe := &mockProbe{groups: []models.GroupCounts{
		{GroupID: "web", Counts: models.Counts{Running: 2}},
	}}
	s := New(probe, history.NewRecorder(st), audit.NewPDRWriter(st), DefaultConfig(), zap.NewNop())
	ctx := context.Background()

	stored, err := s.SampleOnce(ctx)
	if err != nil {
		t.Fatalf("SampleOnce failed: %v", err)
	}
	if !stored {
		t.Error("Expected first sample to be stored")
	}

	stored, err = s.SampleOnce(ctx)
	if err != nil {
		t.Fatalf("SampleOnce failed: %v", err)
	}
	if stored {
		t.Error("Expected unchanged sample to be skipped")
	}

	probe.set([]models.GroupCounts{{GroupID: "web", Counts: models.Counts{Running: 1, Failed: 1}}})
	if stored, _ := s.SampleOnce(ctx); !stored {
		t.Error("Expected changed sample to be stored")
	}

	stats := s.GetStats()
	if stats.Samples != 3 || stats.Stored != 2 {
		t.Errorf("Expected 3 samples / 2 stored, got %+v", stats)
	}

	entries, err := st.ListPDR(10)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 PDR entries, got %d", len(entries))
	}
}

func TestSampleOnce_ProbeError(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	probe := &mockProbe{err: errors.New("boom")}
	s := New(probe, history.NewRecorder(st), nil, DefaultConfig(), nil)

	stored, err := s.SampleOnce(context.Background())
	if err == nil {
		t.Fatal("Expected probe error")
	}
	if stored {
		t.Error("Expected nothing stored on probe error")
	}
	if s.GetStats().LastErr == "" {
		t.Error("Expected last error to be recorded")
	}
}

func TestStartStop(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	probe := &mockProbe{groups: []models.GroupCounts{{GroupID: "web"}}}
	cfg := DefaultConfig()
	cfg.Interval = 20 * time.Millisecond
	s := New(probe, history.NewRecorder(st), nil, cfg, zap.NewNop())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	calls := probe.callCount()
	if calls < 2 {
		t.Errorf("Expected at least 2 probes, got %d", calls)
	}

	time.Sleep(50 * time.Millisecond)
	if probe.callCount() != calls {
		t.Error("Expected no probes after Stop")
	}
}

func newTestStore(t *testing.T) *store.Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
