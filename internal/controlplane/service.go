// Package controlplane provides the HTTP API and service layer for stratowatch.
package controlplane

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fentz26/stratowatch/internal/audit"
	"github.com/fentz26/stratowatch/internal/history"
	"github.com/fentz26/stratowatch/internal/models"
	"go.uber.org/zap"
)

// MaxLimitSec is the largest history limit whose cutoff fits in a
// time.Duration.
const MaxLimitSec = math.MaxInt64 / int64(time.Second)

// Service provides the control plane business logic.
type Service struct {
	store    history.Store
	recorder *history.Recorder
	pdr      *audit.PDRWriter
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new control plane service. pdr may be nil.
func NewService(st history.Store, pdr *audit.PDRWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    st,
		recorder: history.NewRecorder(st),
		pdr:      pdr,
		logger:   logger,
		now:      time.Now,
	}
}

// Recorder returns the snapshot recorder shared with the sampler.
func (s *Service) Recorder() *history.Recorder {
	return s.recorder
}

// StateHistory returns the state history of all groups, or of groupID when
// set, limited to the last limitSec seconds when limitSec is non-nil.
func (s *Service) StateHistory(ctx context.Context, limitSec *int, groupID string) ([]models.HistoryPoint, error) {
	if limitSec != nil && (*limitSec <= 0 || int64(*limitSec) > MaxLimitSec) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, *limitSec)
	}
	return history.State(ctx, s.store, history.Query{LimitSec: limitSec, GroupID: groupID}, s.now())
}

// PushSnapshot records group counts reported by an external probe. It returns
// the stored snapshot, or nil when the counts did not change.
func (s *Service) PushSnapshot(ctx context.Context, groups []models.GroupCounts) (*models.Snapshot, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no groups", ErrInvalidCounts)
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.GroupID == "" {
			return nil, fmt.Errorf("%w: missing group_id", ErrInvalidCounts)
		}
		if seen[g.GroupID] {
			return nil, fmt.Errorf("%w: duplicate group %q", ErrInvalidCounts, g.GroupID)
		}
		seen[g.GroupID] = true
		if !g.Valid() {
			return nil, fmt.Errorf("%w: negative count in group %q", ErrInvalidCounts, g.GroupID)
		}
	}

	snap, err := s.recorder.TakeIfChanged(ctx, groups)
	if err != nil {
		return nil, err
	}

	if s.pdr != nil {
		d := audit.Decision{Action: audit.ActionPush, Groups: groups, Outcome: audit.OutcomeUnchanged}
		if snap != nil {
			d.Outcome, d.SnapshotID = audit.OutcomeStored, snap.ID
		}
		if _, err := s.pdr.Record(d); err != nil {
			s.logger.Warn("record pdr failed", zap.Error(err))
		}
	}
	return snap, nil
}
