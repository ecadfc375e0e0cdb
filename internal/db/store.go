package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/techdiscoveria/discoveria/internal/config"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
	"github.com/techdiscoveria/discoveria/internal/repo/memory"
	"github.com/techdiscoveria/discoveria/internal/repo/mongodb"
	"github.com/techdiscoveria/discoveria/internal/repo/postgres"
)

// Open connects the backend selected by cfg.StoreDriver. The caller owns the returned store.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (*repo.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}

		store, err := mongodb.NewStore(ctx, client, mongodb.Options{
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
			Prom:         prom,
		})
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}

		log.Info("store connected", "driver", cfg.StoreDriver, "database", cfg.MongoDatabase, "transactions", cfg.MongoTransactions)
		return store, nil

	case config.StorePostgres:
		if err := Migrate(ctx, cfg.DBURL, log); err != nil {
			return nil, err
		}

		pool, err := NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		log.Info("store connected", "driver", cfg.StoreDriver)
		return postgres.NewStore(pool, prom), nil

	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
