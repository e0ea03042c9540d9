// Package mongostore provides a MongoDB-backed snapshot store, an
// alternative to the SQLite store for deployments that already run MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fentz26/stratowatch/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// CollectionName is the MongoDB collection holding snapshots.
	CollectionName = "instance_state_snapshots"
	// PDRCollectionName is the MongoDB collection holding decision records.
	PDRCollectionName = "pdr"
)

// Store persists snapshots as documents with their group breakdown embedded.
type Store struct {
	client *mongo.Client
	c      *mongo.Collection
	pdr    *mongo.Collection
}

// Connect dials uri, verifies the connection and returns a Store on database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := New(client.Database(database))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

// New creates a Store over an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{
		client: db.Client(),
		c:      db.Collection(CollectionName),
		pdr:    db.Collection(PDRCollectionName),
	}
}

// EnsureIndexes creates indexes for time-range and per-group queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "time", Value: 1}},
			Options: options.Index().SetName("idx_time"),
		},
		{
			Keys: bson.D{
				{Key: "groups.group_id", Value: 1},
				{Key: "time", Value: 1},
			},
			Options: options.Index().SetName("idx_group_time"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// InsertSnapshot stores a snapshot document.
func (s *Store) InsertSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	doc := *snap
	doc.Time = snap.Time.UTC().Truncate(time.Millisecond)
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Snapshots returns snapshots with time >= since in ascending order.
func (s *Store) Snapshots(ctx context.Context, groupID string, since time.Time) ([]models.Snapshot, error) {
	filter := bson.M{}
	if !since.IsZero() {
		filter["time"] = bson.M{"$gte": since.UTC()}
	}
	if groupID != "" {
		filter["groups.group_id"] = groupID
	}

	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find snapshots: %w", err)
	}
	defer cur.Close(ctx)

	var snaps []models.Snapshot
	if err := cur.All(ctx, &snaps); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	if groupID != "" {
		for i := range snaps {
			snaps[i] = forGroup(snaps[i], groupID)
		}
	}
	return snaps, nil
}

// LatestBefore returns the newest snapshot older than before, or the newest
// overall when before is zero.
func (s *Store) LatestBefore(ctx context.Context, groupID string, before time.Time) (*models.Snapshot, error) {
	filter := bson.M{}
	if !before.IsZero() {
		filter["time"] = bson.M{"$lt": before.UTC()}
	}
	if groupID != "" {
		filter["groups.group_id"] = groupID
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "time", Value: -1}})
	var snap models.Snapshot
	err := s.c.FindOne(ctx, filter, opts).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest snapshot: %w", err)
	}
	if groupID != "" {
		snap = forGroup(snap, groupID)
	}
	return &snap, nil
}

// forGroup narrows a snapshot to one group's counts, keeping its time.
func forGroup(snap models.Snapshot, groupID string) models.Snapshot {
	out := models.Snapshot{ID: snap.ID, Time: snap.Time}
	for _, g := range snap.Groups {
		if g.GroupID == groupID {
			out.Counts = g.Counts
			break
		}
	}
	return out
}

type pdrDoc struct {
	ID         string    `bson:"_id"`
	Action     string    `bson:"action"`
	InputsHash string    `bson:"inputs_hash"`
	Outcome    string    `bson:"outcome"`
	SnapshotID string    `bson:"snapshot_id,omitempty"`
	Details    string    `bson:"details,omitempty"`
	Timestamp  time.Time `bson:"timestamp"`
}

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, snapshotID, details string) (*models.PDREntry, error) {
	entry := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		SnapshotID: snapshotID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.pdr.InsertOne(ctx, pdrDoc{
		ID:         entry.ID,
		Action:     entry.Action,
		InputsHash: entry.InputsHash,
		Outcome:    entry.Outcome,
		SnapshotID: entry.SnapshotID,
		Details:    entry.Details,
		Timestamp:  entry.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return entry, nil
}
