// Package history assembles instance state histories and records new
// snapshots when the observed counts change.
package history

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fentz26/stratowatch/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence needed to serve and record state history.
//
// For a non-empty groupID the returned snapshots carry that group's counts
// and the time of the snapshot they belong to.
type Store interface {
	// Snapshots returns snapshots with Time >= since in ascending time order.
	// A zero since returns every snapshot.
	Snapshots(ctx context.Context, groupID string, since time.Time) ([]models.Snapshot, error)
	// LatestBefore returns the newest snapshot strictly older than before, or
	// the newest snapshot overall when before is zero. It returns nil when
	// there is none.
	LatestBefore(ctx context.Context, groupID string, before time.Time) (*models.Snapshot, error)
	// InsertSnapshot stores a snapshot together with its group breakdown.
	InsertSnapshot(ctx context.Context, snap *models.Snapshot) error
}

// Query selects a state history.
type Query struct {
	// LimitSec restricts the history to the last LimitSec seconds. Nil means
	// the whole history.
	LimitSec *int
	// GroupID selects a single compute group. Empty means all groups.
	GroupID string
}

// Since returns the lower time bound of the query relative to now, or the
// zero time for an unbounded query. Limits too large for a time.Duration
// are treated as unbounded.
func (q Query) Since(now time.Time) time.Time {
	if q.LimitSec == nil || int64(*q.LimitSec) > maxLimitSec {
		return time.Time{}
	}
	return now.Add(-time.Duration(*q.LimitSec) * time.Second)
}

const maxLimitSec = math.MaxInt64 / int64(time.Second)

// State returns the state history for q as of now.
//
// When a limit cuts into the history, the last snapshot before the cut is
// carried forward to the cut so the chart starts at the correct level. When
// nothing falls inside the window the latest snapshot is returned alone.
func State(ctx context.Context, st Store, q Query, now time.Time) ([]models.HistoryPoint, error) {
	since := q.Since(now)

	snaps, err := st.Snapshots(ctx, q.GroupID, since)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	if len(snaps) == 0 {
		last, err := st.LatestBefore(ctx, q.GroupID, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("latest snapshot: %w", err)
		}
		if last != nil {
			snaps = []models.Snapshot{*last}
		}
	} else if q.LimitSec != nil {
		prev, err := st.LatestBefore(ctx, q.GroupID, since)
		if err != nil {
			return nil, fmt.Errorf("previous snapshot: %w", err)
		}
		if prev != nil {
			prev.Time = since
			snaps = append([]models.Snapshot{*prev}, snaps...)
		}
	}

	points := make([]models.HistoryPoint, len(snaps))
	for i, s := range snaps {
		points[i] = models.HistoryPoint{
			Time:    models.UnixMillis(s.Time),
			Running: s.Running,
			Pending: s.Pending,
			Failed:  s.Failed,
		}
	}
	return points, nil
}

// Recorder stores snapshots only when the observed counts change.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over st.
func NewRecorder(st Store) *Recorder {
	return &Recorder{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TakeIfChanged sums groups into a snapshot and stores it when its totals or
// any group's counts differ from the latest stored snapshot. It returns the
// stored snapshot, or nil when nothing changed.
func (r *Recorder) TakeIfChanged(ctx context.Context, groups []models.GroupCounts) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		ID:     uuid.New().String(),
		Time:   r.now(),
		Groups: groups,
	}
	for _, g := range groups {
		snap.Counts = snap.Counts.Add(g.Counts)
	}

	last, err := r.store.LatestBefore(ctx, "", time.Time{})
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if last != nil && !Changed(last, snap) {
		return nil, nil
	}

	if err := r.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

// Changed reports whether b differs from a in its totals or in any group.
// A group present on only one side counts as a change.
func Changed(a, b *models.Snapshot) bool {
	if a.Counts != b.Counts {
		return true
	}

	prev := make(map[string]models.Counts, len(a.Groups))
	for _, g := range a.Groups {
		prev[g.GroupID] = g.Counts
	}
	if len(prev) != len(b.Groups) {
		return true
	}
	for _, g := range b.Groups {
		c, ok := prev[g.GroupID]
		if !ok || c != g.Counts {
			return true
		}
	}
	return false
}
