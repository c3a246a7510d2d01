package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultConnectTimeout bounds connecting when no timeout is given.
const DefaultConnectTimeout = 10 * time.Second

// ConnectMongo connects to uri, pings the server and returns database.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Database, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(database), nil
}
