// Package app wires configuration, storage, collaborators and the
// analyzer into one process-owned object shared by the binaries.
package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"terptracker/internal/analyzer"
	"terptracker/internal/cache"
	"terptracker/internal/extractions"
	"terptracker/internal/profiles"
	"terptracker/internal/sources"
	"terptracker/pkg/database"
	"terptracker/pkg/logger"
	"terptracker/pkg/utils"
)

type App struct {
	Log      *logger.Logger
	Cfg      utils.Config
	DB       *sql.DB
	Registry *prometheus.Registry

	Profiles    *profiles.Repo
	Extractions *extractions.Repo
	Analyzer    *analyzer.Service

	Cache   cache.Store
	Limiter cache.Limiter

	redis *cache.Redis
}

// New opens the database, loads the alias table, connects the cache and
// builds the analyzer. A configured but unreachable Redis falls back to
// the in-process cache.
func New(cfg utils.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	aliases, err := profiles.LoadAliasTable(cfg.AliasMapPath)
	if err != nil {
		log.Warn("alias table unreadable, continuing without aliases", "path", cfg.AliasMapPath, "error", err)
		aliases = profiles.EmptyAliasTable()
	}
	log.Debug("alias table loaded", "entries", aliases.Len())

	a := &App{
		Log:         log,
		Cfg:         cfg,
		DB:          db,
		Registry:    prometheus.NewRegistry(),
		Profiles:    profiles.NewRepo(db, aliases, log),
		Extractions: extractions.NewRepo(db, log),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.wireCache()

	metrics, err := analyzer.NewMetrics(a.Registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	cannlytics := sources.NewCannlytics(cfg.CannlyticsBaseURL, cfg.CannlyticsAPIKey, log)
	if !cannlytics.Enabled() {
		log.Info("cannlytics api key not set, COA parsing and cannlytics lookups disabled")
	}
	kushy := sources.NewKushy(cfg.KushyBaseURL, time.Hour, log)

	a.Analyzer = analyzer.New(analyzer.Deps{
		Scraper:     sources.NewPageScraper(log),
		COA:         cannlytics,
		Lookups:     []analyzer.StrainLookup{cannlytics, kushy},
		Profiles:    a.Profiles,
		Extractions: a.Extractions,
		Metrics:     metrics,
		Log:         log,
	})
	return a, nil
}

func (a *App) wireCache() {
	window := time.Minute
	if a.Cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(a.Cfg.RedisAddr, a.Log)
		if err == nil {
			a.redis = rdb
			a.Cache = rdb
			a.Limiter = cache.NewRedisLimiter(rdb.Client(), a.Cfg.RateLimitPerMinute, window, a.Log)
			a.Log.Info("redis connected", "addr", a.Cfg.RedisAddr)
			return
		}
		a.Log.Warn("redis unavailable, using in-process cache", "addr", a.Cfg.RedisAddr, "error", err)
	}
	a.Cache = cache.NewMemory(a.Cfg.CacheTTL)
	a.Limiter = cache.NewMemoryLimiter(a.Cfg.RateLimitPerMinute, window)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	a.Log.Sync()
}
