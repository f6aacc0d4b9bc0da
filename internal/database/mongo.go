package database

import (
	"context"
	"fmt"
	"time"

	"github.com/learnhub/lms-backend/internal/config"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// NewMongoDatabase connects to the LMS document store that owns users,
// courses and lecture progress. This service only reads from it.
func NewMongoDatabase(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(uint64(cfg.MaxDBConns)).
		SetReadPreference(readpref.SecondaryPreferred()).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info().
		Str("database", cfg.MongoDatabase).
		Msg("MongoDB connected")

	return client, client.Database(cfg.MongoDatabase), nil
}
