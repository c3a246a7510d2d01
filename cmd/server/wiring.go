package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atinyakov/fasogadget/internal/config"
	"github.com/atinyakov/fasogadget/internal/db"
	"github.com/atinyakov/fasogadget/internal/multipart"
	"github.com/atinyakov/fasogadget/internal/repository"
	"github.com/atinyakov/fasogadget/internal/service"
	"github.com/atinyakov/fasogadget/internal/session"
	"github.com/atinyakov/fasogadget/internal/upload"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// store bundles the repositories of one backend.
type store struct {
	products service.ProductRepository
	orders   service.OrderRepository
	config   service.ConfigRepository
	close    func(context.Context) error
}

// connectWithRetry opens the configured store, retrying every
// ReconnectInterval. It returns nil when ctx is cancelled first.
func connectWithRetry(ctx context.Context, o *config.Options, log *zap.Logger) *store {
	for {
		st, err := connectStore(ctx, o)
		if err == nil {
			return st
		}
		log.Error("store unavailable, retrying",
			zap.String("driver", o.StoreDriver),
			zap.Duration("retry_in", o.ReconnectInterval),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(o.ReconnectInterval):
		}
	}
}

func connectStore(ctx context.Context, o *config.Options) (*store, error) {
	switch o.StoreDriver {
	case "postgres":
		sqlDB, err := db.InitPostgres(o.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return postgresStore(sqlDB), nil
	default:
		database, err := db.ConnectMongo(ctx, o.DatabaseDSN, o.DatabaseName, o.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		orders := repository.NewMongoOrderRepository(database)
		if err := orders.CreateIndexes(ctx); err != nil {
			_ = database.Client().Disconnect(ctx)
			return nil, err
		}
		return mongoStore(database, orders), nil
	}
}

func postgresStore(sqlDB *sql.DB) *store {
	return &store{
		products: repository.NewPostgresProductRepository(sqlDB),
		orders:   repository.NewPostgresOrderRepository(sqlDB),
		config:   repository.NewPostgresConfigRepository(sqlDB),
		close:    func(context.Context) error { return sqlDB.Close() },
	}
}

func mongoStore(database *mongo.Database, orders *repository.MongoOrderRepository) *store {
	return &store{
		products: repository.NewMongoProductRepository(database),
		orders:   orders,
		config:   repository.NewMongoConfigRepository(database),
		close:    database.Client().Disconnect,
	}
}

// newFileStore returns the upload backend and, for local uploads, the
// directory to serve under /uploads.
func newFileStore(ctx context.Context, o *config.Options, log *zap.Logger) (multipart.FileStore, string, error) {
	if o.UploadBackend == "s3" {
		s3Store, err := upload.NewS3Store(ctx, upload.S3Config(o.S3), log)
		if err != nil {
			return nil, "", err
		}
		return s3Store, "", nil
	}
	return upload.NewLocalStore(o.UploadDir), o.UploadDir, nil
}

func newSessionStore(ctx context.Context, o *config.Options, log *zap.Logger) (session.Store, error) {
	if o.SessionBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     o.RedisAddr,
			Password: o.RedisPassword,
			DB:       o.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return session.NewRedisStore(client, o.SessionTTL), nil
	}

	mem := session.NewMemoryStore(o.SessionTTL)
	if o.SessionTTL > 0 {
		session.StartSweeper(ctx, mem, o.SweepInterval, log)
	}
	return mem, nil
}
