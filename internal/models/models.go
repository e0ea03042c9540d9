// Package models defines the core domain types for stratowatch.
package models

import "time"

// InstanceState is one of the states a compute instance is counted under.
type InstanceState string

const (
	StateRunning InstanceState = "running"
	StatePending InstanceState = "pending"
	StateFailed  InstanceState = "failed"
)

// Counts holds the number of instances in each tracked state.
type Counts struct {
	Running int `json:"running" bson:"running"`
	Pending int `json:"pending" bson:"pending"`
	Failed  int `json:"failed" bson:"failed"`
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Running: c.Running + o.Running,
		Pending: c.Pending + o.Pending,
		Failed:  c.Failed + o.Failed,
	}
}

// Valid reports whether no count is negative.
func (c Counts) Valid() bool {
	return c.Running >= 0 && c.Pending >= 0 && c.Failed >= 0
}

// GroupCounts is the state breakdown of a single compute group.
type GroupCounts struct {
	GroupID string `json:"group_id" bson:"group_id"`
	Counts  `bson:",inline"`
}

// Snapshot is a point-in-time total over all compute groups.
type Snapshot struct {
	ID     string        `json:"id" bson:"_id"`
	Time   time.Time     `json:"time" bson:"time"`
	Counts `bson:",inline"`
	Groups []GroupCounts `json:"groups,omitempty" bson:"groups,omitempty"`
}

// HistoryPoint is the wire form of a snapshot served by the state history
// endpoint. Time is in unix milliseconds.
type HistoryPoint struct {
	Time    int64 `json:"time"`
	Running int   `json:"running"`
	Pending int   `json:"pending"`
	Failed  int   `json:"failed"`
}

// UnixMillis converts t to unix milliseconds.
func UnixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// FromUnixMillis converts unix milliseconds to a UTC time.
func FromUnixMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
