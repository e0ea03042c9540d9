package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/stratowatch/internal/audit"
	"github.com/fentz26/stratowatch/internal/connectors"
	"github.com/fentz26/stratowatch/internal/history"
	"go.uber.org/zap"
)

// Sampler probes instance states on a fixed interval and stores a snapshot
// whenever they change.
type Sampler struct {
	probe    connectors.Probe
	recorder *history.Recorder
	pdr      *audit.PDRWriter
	config   *Config
	logger   *zap.Logger

	mu      sync.Mutex
	samples int
	stored  int
	lastErr error

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Stats is a point-in-time view of sampler activity.
type Stats struct {
	Probe   string `json:"probe"`
	Samples int    `json:"samples"`
	Stored  int    `json:"stored"`
	LastErr string `json:"last_error,omitempty"`
}

// New creates a new sampler.
func New(probe connectors.Probe, rec *history.Recorder, pdr *audit.PDRWriter, cfg *Config, logger *zap.Logger) *Sampler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sampler{
		probe:    probe,
		recorder: rec,
		pdr:      pdr,
		config:   cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the sampling loop.
func (s *Sampler) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("sampler started",
		zap.String("probe", s.probe.Name()),
		zap.Duration("interval", s.config.Interval))
}

// Stop gracefully stops the sampler.
func (s *Sampler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("sampler stopped")
}

// loop samples once immediately, then on every tick.
func (s *Sampler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.SampleOnce(s.ctx)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.SampleOnce(s.ctx)
		}
	}
}

// SampleOnce probes and records a snapshot if the counts changed. It returns
// whether a snapshot was stored.
func (s *Sampler) SampleOnce(ctx context.Context) (bool, error) {
	stored, err := s.sample(ctx)

	s.mu.Lock()
	s.samples++
	s.lastErr = err
	if stored {
		s.stored++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("sample failed", zap.Error(err))
	}
	return stored, err
}

func (s *Sampler) sample(ctx context.Context) (bool, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	groups, err := s.probe.Probe(probeCtx)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", s.probe.Name(), err)
	}

	snap, err := s.recorder.TakeIfChanged(ctx, groups)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, nil
	}

	if s.pdr != nil {
		details := fmt.Sprintf("running=%d pending=%d failed=%d groups=%d",
			snap.Running, snap.Pending, snap.Failed, len(snap.Groups))
		if _, err := s.pdr.Record(audit.Decision{
			Action:     audit.ActionTake,
			Groups:     groups,
			Outcome:    audit.OutcomeStored,
			SnapshotID: snap.ID,
			Details:    details,
		}); err != nil {
			s.logger.Warn("record pdr failed", zap.Error(err))
		}
	}

	s.logger.Debug("snapshot stored",
		zap.String("snapshot_id", snap.ID),
		zap.Int("running", snap.Running),
		zap.Int("pending", snap.Pending),
		zap.Int("failed", snap.Failed))
	return true, nil
}

// GetStats returns current sampler statistics.
func (s *Sampler) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Probe:   s.probe.Name(),
		Samples: s.samples,
		Stored:  s.stored,
	}
	if s.lastErr != nil {
		st.LastErr = s.lastErr.Error()
	}
	return st
}
