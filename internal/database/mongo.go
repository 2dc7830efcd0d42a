// Package database bootstraps the document store client and the unique
// indexes the atomic operations rely on.
package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/allisson/flexauth/internal/config"
)

// Connect opens a client, verifies connectivity and returns the configured
// database handle.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetTimeout(cfg.MongoTimeout)

	if cfg.MongoUsername != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.MongoUsername,
			Password: cfg.MongoPassword,
		})
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	return client, client.Database(cfg.MongoDatabase), nil
}

// EnsureIndexes creates the unique indexes backing the consistency rules:
// one user per uid, one DEK record per uid and per email, one session per
// (uid, session_id) pair, and unique link ids for the request collections.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: unique},
		},
		"deks": {
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		"sessions": {
			{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "session_id", Value: 1}}, Options: unique},
		},
		"forget_password_requests": {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
		},
		"email_verification_requests": {
			{Keys: bson.D{{Key: "req_id", Value: 1}}, Options: unique},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
	}
	return nil
}
