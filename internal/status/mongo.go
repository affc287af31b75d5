// Package status tracks ingestion status per repository URL in a document
// store so callers can distinguish "never ingested", "ingested with gaps"
// and "ingested".
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gitcodebot/repoingest/pkg/models"
)

const (
	databaseName   = "gitcodebot"
	collectionName = "repositories"
)

// Record is one repository's status document.
type Record struct {
	URL                string `bson:"url"`
	Status             string `bson:"status"`
	AvailableToConsume bool   `bson:"availableToConsume"`
}

// Store is a MongoDB-backed status store with an explicit connect/close
// lifecycle; construct one per process run and pass it in.
type Store struct {
	client *mongo.Client
}

// Connect opens a client against the given URI and verifies connectivity.
func Connect(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to status store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging status store: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) collection() *mongo.Collection {
	return s.client.Database(databaseName).Collection(collectionName)
}

// Get retrieves a repository's status document; the bool is false when no
// document exists.
func (s *Store) Get(ctx context.Context, repoURL string) (Record, bool, error) {
	var rec Record
	err := s.collection().FindOne(ctx, bson.M{"url": repoURL}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("getting status for %s: %w", repoURL, err)
	}
	return rec, true, nil
}

// Update writes a repository's status and availability. A missing document
// is logged and skipped, not created: the API that enqueued the job owns
// document creation.
func (s *Store) Update(ctx context.Context, repoURL, status string, available bool) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"url": repoURL},
		bson.M{"$set": bson.M{
			"status":             status,
			"availableToConsume": available,
		}},
	)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", repoURL, err)
	}
	if res.MatchedCount == 0 {
		log.Warn().Str("url", repoURL).Str("status", status).Msg("no status document to update")
	}
	return nil
}

// MarkIngesting records the pre-ingest state.
func (s *Store) MarkIngesting(ctx context.Context, repoURL string) error {
	return s.Update(ctx, repoURL, models.StatusIngesting, false)
}

// Delete removes a repository's status document.
func (s *Store) Delete(ctx context.Context, repoURL string) error {
	res, err := s.collection().DeleteOne(ctx, bson.M{"url": repoURL})
	if err != nil {
		return fmt.Errorf("deleting status for %s: %w", repoURL, err)
	}
	if res.DeletedCount == 0 {
		log.Warn().Str("url", repoURL).Msg("no status document to delete")
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
