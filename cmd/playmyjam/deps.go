package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/krishangMittal/PlayMyJam/internal/archive"
	"github.com/krishangMittal/PlayMyJam/internal/config"
	"github.com/krishangMittal/PlayMyJam/internal/reaper"
	"github.com/krishangMittal/PlayMyJam/internal/store"
	pkglog "github.com/krishangMittal/PlayMyJam/pkg/log"
	"github.com/krishangMittal/PlayMyJam/pkg/pubsub"
	"github.com/krishangMittal/PlayMyJam/pkg/storage"
)

// backend bundles the connections shared by every command.
type backend struct {
	store     store.Store
	redis     *redis.Client
	publisher pubsub.Publisher
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	logger := pkglog.L()

	st, err := store.Open(ctx, store.Config{
		Driver:   cfg.Store.Driver,
		Database: cfg.Database,
		Mongo:    store.MongoConfig(cfg.Mongo),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Info().Str("driver", cfg.Store.Driver).Msg("store connected")

	b := &backend{store: st}

	if cfg.Cache.Enabled || cfg.Events.Driver == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			st.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.redis = client
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	if cfg.Cache.Enabled {
		b.store = store.NewCachedStore(st, store.NewRedisRoomCache(b.redis, cfg.Cache.Prefix), cfg.Cache.TTL)
	}

	if cfg.Events.Driver == "redis" {
		b.publisher = pubsub.NewRedisPublisherFromClient(b.redis)
	} else {
		pub, err := pubsub.NewPublisher(cfg.Events)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create publisher: %w", err)
		}
		b.publisher = pub
	}
	logger.Info().Str("driver", cfg.Events.Driver).Msg("activity publisher ready")

	return b, nil
}

func (b *backend) Close() {
	logger := pkglog.L()
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing publisher")
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}
	if err := b.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing store")
	}
}

func newReaper(ctx context.Context, cfg *config.Config, b *backend) (*reaper.Reaper, error) {
	r := reaper.New(b.store, b.publisher, cfg.Reaper)
	if !cfg.Archive.Enabled {
		return r, nil
	}

	objects, err := storage.New(ctx, cfg.Archive.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive storage: %w", err)
	}
	return r.WithArchiver(archive.NewStorageArchiver(objects, cfg.Archive.Prefix)), nil
}
