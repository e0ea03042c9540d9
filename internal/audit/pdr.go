// Package audit keeps a decision trail of snapshot recording: every probe or
// push that was considered, whether it was stored, and a hash of the counts
// that led to the decision.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/fentz26/stratowatch/internal/models"
)

// Actions recorded by stratowatch.
const (
	ActionTake = "snapshot.take"
	ActionPush = "snapshot.push"
)

// Outcomes of a snapshot decision.
const (
	OutcomeStored    = "stored"
	OutcomeUnchanged = "unchanged"
)

// Sink persists decision records. Both the SQLite and MongoDB stores implement it.
type Sink interface {
	WritePDR(action, inputsHash, outcome, snapshotID, details string) (*models.PDREntry, error)
}

// Decision is one snapshot recording decision.
type Decision struct {
	Action     string
	Groups     []models.GroupCounts
	Outcome    string
	SnapshotID string
	Details    string
}

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	sink Sink
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s Sink) *PDRWriter {
	return &PDRWriter{sink: s}
}

// Record writes d to the sink.
func (w *PDRWriter) Record(d Decision) (*models.PDREntry, error) {
	return w.sink.WritePDR(d.Action, HashGroups(d.Groups), d.Outcome, d.SnapshotID, d.Details)
}

// HashGroups returns the SHA256 of groups in group ID order, so the same
// counts reported in a different order hash alike.
func HashGroups(groups []models.GroupCounts) string {
	sorted := append([]models.GroupCounts(nil), groups...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GroupID < sorted[j].GroupID })

	data, err := json.Marshal(sorted)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
