package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinic/dashboard/internal/config"
	"github.com/clinic/dashboard/internal/domain/lookup"
	"github.com/clinic/dashboard/internal/domain/patient"
	"github.com/clinic/dashboard/internal/platform/cache"
	"github.com/clinic/dashboard/internal/platform/db"
	"github.com/clinic/dashboard/internal/platform/metrics"
	"github.com/clinic/dashboard/internal/platform/query"
	"github.com/clinic/dashboard/internal/platform/websocket"
)

// app holds everything the commands share: configuration, the selected
// datastore and cache backends, and the patient service built on them.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	pinger  db.Pinger
	hub     *websocket.Hub
	service *patient.Service
	closers []func()
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  newLogger(cfg.Env, cfg.LogLevel),
		metrics: metrics.New(),
	}
	a.hub = websocket.NewHub(a.logger.With().Str("component", "live").Logger())

	store, err := a.openDatastore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	tables, err := lookup.Load(cfg.LookupsFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []patient.Option{
		patient.WithTTL(cfg.PatientCacheTTL),
		patient.WithLogger(a.logger.With().Str("component", "patients").Logger()),
		patient.WithMetrics(a.metrics),
		patient.WithClearListener(a.hub.PatientsInvalidated),
	}
	if cfg.CacheBackend == config.CacheRedis {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		opts = append(opts, patient.WithStores(
			cache.NewRedis[[]patient.Record](client, "dashboard:list:", a.logger),
			cache.NewRedis[patient.Record](client, "dashboard:patient:", a.logger),
		))
		a.logger.Info().Msg("using redis patient cache")
	}

	a.service = patient.NewService(patient.NewStoreRepository(store), tables, opts...)
	return a, nil
}

func (a *app) openDatastore(ctx context.Context) (query.Datastore, error) {
	cfg := a.cfg
	switch cfg.DatastoreDriver {
	case config.DriverGorm:
		gdb, err := db.OpenGorm(ctx, cfg.DatabaseURL, int(cfg.DBMaxConns))
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm handle: %w", err)
		}
		a.pinger = db.SQLPinger{DB: sqlDB}
		a.closers = append(a.closers, func() { sqlDB.Close() })
		a.logger.Info().Msg("connected to database via gorm")
		return db.NewGormStore(gdb), nil

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.pinger = db.SQLPinger{DB: sqlDB}
		a.closers = append(a.closers, func() { sqlDB.Close() })
		a.logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")
		return db.NewSQLStore(sqlDB, query.SQLite), nil

	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.pinger = pool
		a.closers = append(a.closers, pool.Close)
		a.logger.Info().Msg("connected to database")
		return db.NewPGStore(pool), nil
	}
}

// Close releases backends in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newLogger(env, level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
