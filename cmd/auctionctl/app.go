package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"auction-tracker/internal/config"
	"auction-tracker/internal/domain"
	"auction-tracker/internal/infrastructure/api"
	"auction-tracker/internal/infrastructure/memory"
	"auction-tracker/internal/infrastructure/mysql"
	"auction-tracker/internal/infrastructure/redis"
	"auction-tracker/internal/infrastructure/websocket"
	"auction-tracker/internal/metrics"
	"auction-tracker/internal/services"
	"auction-tracker/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "auction-tracker:"

// app holds the loaded config and the lazily opened backends of one command.
type app struct {
	cfg *config.Config
	log logger.Logger

	rdb     *redisClient.Client
	db      *sql.DB
	closers []func()
}

func newApp() (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if baseURL != "" {
		cfg.API.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	log.Debug("Configuration loaded", "config", cfg.GetConfigString())
	return &app{cfg: cfg, log: log}, nil
}

// Close releases backends in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) client() *api.Client {
	return api.NewClient(a.cfg.API.BaseURL, &http.Client{Timeout: a.cfg.API.Timeout}, a.log)
}

func (a *app) liveChannel() (*websocket.LiveChannel, error) {
	url, err := a.cfg.ChannelURL()
	if err != nil {
		return nil, err
	}
	channel := websocket.NewLiveChannel(url, a.cfg.Channel.DialTimeout, a.log)
	a.closers = append(a.closers, func() {
		if err := channel.Disconnect(); err != nil {
			a.log.Debug("Live channel close failed", "error", err)
		}
	})
	return channel, nil
}

func (a *app) redis(ctx context.Context) (*redisClient.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     a.cfg.Redis.Address,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Address, err)
	}
	a.log.Info("Connected to Redis", "address", a.cfg.Redis.Address)

	a.rdb = rdb
	a.closers = append(a.closers, func() {
		if err := rdb.Close(); err != nil {
			a.log.Error("Failed to close Redis connection", "error", err)
		}
	})
	return rdb, nil
}

func (a *app) database(ctx context.Context) (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	db, err := mysql.Open(ctx, a.cfg.MySQL)
	if err != nil {
		return nil, err
	}
	a.log.Info("Connected to MySQL")

	a.db = db
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			a.log.Error("Failed to close MySQL connection", "error", err)
		}
	})
	return db, nil
}

func (a *app) queryCache(ctx context.Context) (domain.QueryCache, error) {
	switch a.cfg.Cache.Backend {
	case "", "memory":
		return memory.NewQueryCache(a.cfg.Cache.TTL), nil
	case "redis":
		rdb, err := a.redis(ctx)
		if err != nil {
			return nil, err
		}
		return redis.NewSnapshotCache(rdb, cacheKeyPrefix, a.cfg.Cache.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache.backend %q (want memory or redis)", a.cfg.Cache.Backend)
	}
}

// fanout wires the optional bid sinks. Both are off by default.
func (a *app) fanout(ctx context.Context) (*services.BidFanout, error) {
	var (
		publisher domain.EventPublisher
		archive   domain.BidArchive
	)

	if a.cfg.Publish.Enabled {
		rdb, err := a.redis(ctx)
		if err != nil {
			return nil, err
		}
		publisher = redis.NewEventPublisher(rdb)
	}

	if a.cfg.Archive.Enabled {
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		journal := mysql.NewMySQLBidArchive(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		archive = journal
	}

	return services.NewBidFanout(publisher, archive, a.log), nil
}

func (a *app) catalog(ctx context.Context) (*services.Catalog, error) {
	cache, err := a.queryCache(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewCatalog(a.client(), cache, a.log), nil
}

// tracking builds a tracker and a catalog sharing one cache. The tracker is
// stopped by Close.
func (a *app) tracking(ctx context.Context, m *metrics.Metrics) (*services.Tracker, *services.Catalog, error) {
	cache, err := a.queryCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	fanout, err := a.fanout(ctx)
	if err != nil {
		return nil, nil, err
	}
	channel, err := a.liveChannel()
	if err != nil {
		return nil, nil, err
	}

	client := a.client()
	tracker := services.NewTracker(client, channel, cache, fanout, m, services.TrackerConfig{
		UserID:       a.cfg.Bidder.UserID,
		TickInterval: a.cfg.Tracker.TickInterval,
	}, a.log)
	a.closers = append(a.closers, tracker.StopTracking)

	return tracker, services.NewCatalog(client, cache, a.log), nil
}

// load starts tracking auctionID and waits for its first fetch.
func (a *app) load(ctx context.Context, tracker *services.Tracker, auctionID int64) (services.Projection, error) {
	if err := tracker.StartTracking(ctx, auctionID); err != nil {
		return services.Projection{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Tracker.LoadTimeout)
	defer cancel()
	return tracker.WaitLoaded(ctx)
}
