// Package store provides SQLite-backed persistence for stratowatch.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/stratowatch/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the stratowatch SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode so the daemon can write while readers serve history
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
// Snapshot times are stored as unix milliseconds so range scans compare numbers.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		time_ms INTEGER NOT NULL,
		running INTEGER NOT NULL,
		pending INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_snapshots (
		id TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		running INTEGER NOT NULL,
		pending INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		snapshot_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_time ON snapshots(time_ms);
	CREATE INDEX IF NOT EXISTS idx_group_snapshots_snapshot_id ON group_snapshots(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_group_snapshots_group_id ON group_snapshots(group_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Snapshot Operations ---

// InsertSnapshot stores a snapshot and its group breakdown in one transaction.
func (s *Store) InsertSnapshot(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, time_ms, running, pending, failed) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, models.UnixMillis(snap.Time), snap.Running, snap.Pending, snap.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	for _, g := range snap.Groups {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_snapshots (id, snapshot_id, group_id, running, pending, failed) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), snap.ID, g.GroupID, g.Running, g.Pending, g.Failed,
		)
		if err != nil {
			return fmt.Errorf("insert group snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Snapshots returns snapshots with time >= since in ascending order. A zero
// since returns every snapshot. With a groupID, each snapshot carries that
// group's counts.
func (s *Store) Snapshots(ctx context.Context, groupID string, since time.Time) ([]models.Snapshot, error) {
	var sinceMs int64
	if !since.IsZero() {
		sinceMs = models.UnixMillis(since)
	}

	var rows *sql.Rows
	var err error
	if groupID == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, time_ms, running, pending, failed FROM snapshots
			 WHERE time_ms >= ? ORDER BY time_ms ASC`,
			sinceMs,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT s.id, s.time_ms, g.running, g.pending, g.failed
			 FROM group_snapshots g JOIN snapshots s ON s.id = g.snapshot_id
			 WHERE g.group_id = ? AND s.time_ms >= ? ORDER BY s.time_ms ASC`,
			groupID, sinceMs,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// LatestBefore returns the newest snapshot older than before (or the newest
// overall when before is zero), nil if there is none. Snapshots for all
// groups include their group breakdown.
func (s *Store) LatestBefore(ctx context.Context, groupID string, before time.Time) (*models.Snapshot, error) {
	beforeMs := int64(1<<63 - 1)
	if !before.IsZero() {
		beforeMs = models.UnixMillis(before)
	}

	var row *sql.Row
	if groupID == "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, time_ms, running, pending, failed FROM snapshots
			 WHERE time_ms < ? ORDER BY time_ms DESC LIMIT 1`,
			beforeMs,
		)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT s.id, s.time_ms, g.running, g.pending, g.failed
			 FROM group_snapshots g JOIN snapshots s ON s.id = g.snapshot_id
			 WHERE g.group_id = ? AND s.time_ms < ? ORDER BY s.time_ms DESC LIMIT 1`,
			groupID, beforeMs,
		)
	}

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if groupID == "" {
		groups, err := s.groupsFor(ctx, snap.ID)
		if err != nil {
			return nil, err
		}
		snap.Groups = groups
	}
	return snap, nil
}

func (s *Store) groupsFor(ctx context.Context, snapshotID string) ([]models.GroupCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, running, pending, failed FROM group_snapshots WHERE snapshot_id = ? ORDER BY group_id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("query group snapshots: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupCounts
	for rows.Next() {
		var g models.GroupCounts
		if err := rows.Scan(&g.GroupID, &g.Running, &g.Pending, &g.Failed); err != nil {
			return nil, fmt.Errorf("scan group snapshot: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(sc scanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var timeMs int64
	err := sc.Scan(&snap.ID, &timeMs, &snap.Running, &snap.Pending, &snap.Failed)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.Time = models.FromUnixMillis(timeMs)
	return &snap, nil
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, snapshotID, details string) (*models.PDREntry, error) {
	now := time.Now().UTC()
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		SnapshotID: snapshotID,
		Details:    details,
		Timestamp:  now,
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, snapshot_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.SnapshotID, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns the most recent PDR entries, newest first.
func (s *Store) ListPDR(limit int) ([]models.PDREntry, error) {
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, outcome, snapshot_id, details, timestamp FROM pdr ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var entries []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var snapshotID, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &snapshotID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.SnapshotID = snapshotID.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
