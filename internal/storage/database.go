package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/deskrank/internal/types"
)

// MongoSink mirrors snapshots into a MongoDB collection, one document per
// kind and day.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoSink connects to MongoDB.
func NewMongoSink(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

func (s *MongoSink) Name() string { return "mongodb" }

func (s *MongoSink) Write(ctx context.Context, sn Snapshot) error {
	doc, err := snapshotDocument(sn)
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{"kind": sn.Kind, "date": DateStamp(sn.Date)}
	_, err = s.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("replace: %w", err)}
	}

	s.logger.Debug("snapshot stored in mongodb", "kind", sn.Kind, "date", DateStamp(sn.Date))
	return nil
}

func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// snapshotDocument converts a snapshot to BSON through its JSON form, so
// documents carry the same field names as the snapshot files.
func snapshotDocument(sn Snapshot) (bson.D, error) {
	data, err := json.Marshal(struct {
		Kind  string `json:"kind"`
		Date  string `json:"date"`
		RunID string `json:"runId,omitempty"`
		Items any    `json:"items"`
	}{sn.Kind, DateStamp(sn.Date), sn.RunID, sn.Payload})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert snapshot: %w", err)
	}
	return doc, nil
}

// --- Multi-Sink Fan-Out ---

// MultiSink writes snapshots to several backends.
type MultiSink struct {
	backends []Sink
	logger   *slog.Logger
}

// NewMultiSink creates a sink that fans out to multiple backends.
func NewMultiSink(backends []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		backends: backends,
		logger:   logger.With("component", "multi_sink"),
	}
}

func (s *MultiSink) Name() string { return "multi" }

// Write tries every backend and returns the first error.
func (s *MultiSink) Write(ctx context.Context, sn Snapshot) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Write(ctx, sn); err != nil {
			s.logger.Error("backend write failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
