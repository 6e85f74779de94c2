package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/contentcore/internal/cache"
	"github.com/hyperifyio/contentcore/internal/engine"
	"github.com/hyperifyio/contentcore/internal/fetch"
	"github.com/hyperifyio/contentcore/internal/gate"
	"github.com/hyperifyio/contentcore/internal/pipeline"
	"github.com/hyperifyio/contentcore/internal/render"
	"github.com/hyperifyio/contentcore/internal/robots"
	"github.com/hyperifyio/contentcore/internal/selection"
	"github.com/hyperifyio/contentcore/internal/strategy"
)

// sqliteFile is the database name inside Config.CacheDir.
const sqliteFile = "selection.db"

// App owns the long-lived pieces built from a Config: the selection cache,
// the shared probe-first toggle, the fetch and render clients and the
// analyzer that ties them together.
type App struct {
	cfg      Config
	store    cache.Store
	closer   io.Closer
	toggle   *selection.Toggle
	facade   *selection.Facade
	fetcher  *fetch.Client
	analyzer *pipeline.Analyzer
}

// New validates cfg and builds the application.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	table, err := strategy.DefaultTable().WithOverrides(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, toggle: selection.NewToggle(cfg.ProbeFirstSPA)}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	weights := cfg.Weights()
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = selection.DefaultTTL
	}
	a.facade = selection.NewFacade(a.store, a.toggle, selection.WithWeights(weights), selection.WithTTL(ttl))

	a.fetcher = &fetch.Client{
		HTTPClient:        newHTTPClient(cfg.FetchTimeout + 5*time.Second),
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: cfg.FetchTimeout,
		MaxConcurrent:     8,
	}
	if !cfg.IgnoreRobots {
		// Robots bodies share the selection store under their own key prefix.
		a.fetcher.Robots = &robots.Checker{
			HTTPClient: newHTTPClient(cfg.FetchTimeout),
			UserAgent:  cfg.UserAgent,
			Store:      a.store,
			TTL:        cfg.RobotsTTL,
		}
	}

	g := gate.Gate{Weights: weights, Hi: cfg.GateHi, Lo: cfg.GateLo}
	a.analyzer = pipeline.New(g, a.facade, table)
	a.analyzer.Flags = engine.Flags{
		UseVisibleTextDensity: cfg.UseVisibleTextDensity,
		DetectPlaceholders:    cfg.DetectPlaceholders,
	}
	a.analyzer.Prober = a.fetcher
	if cfg.RenderURL != "" {
		rc := render.New(cfg.RenderURL, cfg.RenderRPS, cfg.RenderTimeout)
		rc.HTTPClient = newHTTPClient(cfg.RenderTimeout + 5*time.Second)
		a.analyzer.Renderer = rc
		a.analyzer.WaitFor = cfg.RenderWaitFor
		a.analyzer.ScrollSteps = cfg.RenderScrollSteps
	}
	log.Debug().Str("cache", cfg.CacheBackend).Bool("render", cfg.RenderURL != "").
		Float64("hi", cfg.GateHi).Float64("lo", cfg.GateLo).Msg("app ready")
	return a, nil
}

// openStore builds the configured cache backend and applies the clear and
// max-age controls. Purge failures are logged and never fatal.
func (a *App) openStore(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.CacheBackend {
	case CacheNone:
		return nil
	case CacheDisk:
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("purged old cache entries")
			}
		}
		a.store = &cache.DiskStore{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	case CacheSQLite:
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		s, err := cache.OpenSQLite(filepath.Join(cfg.CacheDir, sqliteFile))
		if err != nil {
			return fmt.Errorf("open sqlite cache: %w", err)
		}
		if _, err := s.PurgeExpired(ctx); err != nil {
			log.Warn().Err(err).Msg("cache purge failed")
		}
		a.store, a.closer = s, s
	default:
		a.store = cache.NewMemoryStore()
	}
	return nil
}

// Close releases the cache backend.
func (a *App) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Analyzer returns the configured analyzer.
func (a *App) Analyzer() *pipeline.Analyzer { return a.analyzer }

// Facade returns the engine selection facade.
func (a *App) Facade() *selection.Facade { return a.facade }

// SetProbeFirst flips the shared probe-first toggle for later selections.
func (a *App) SetProbeFirst(on bool) { a.toggle.Set(on) }

// Fetch retrieves a page through the raw client.
func (a *App) Fetch(ctx context.Context, url string) (pipeline.Page, error) {
	body, ct, err := a.fetcher.Get(ctx, url)
	if err != nil {
		return pipeline.Page{}, err
	}
	return pipeline.Page{HTML: body, URL: url, ContentType: ct}, nil
}

// ProcessURL fetches url and runs the full pipeline on it.
func (a *App) ProcessURL(ctx context.Context, url string) (pipeline.Processed, error) {
	page, err := a.Fetch(ctx, url)
	if err != nil {
		return pipeline.Processed{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return a.analyzer.Process(ctx, page)
}

// PurgeCache drops expired entries, and for the disk backend entries older
// than maxAge. It returns the number removed.
func (a *App) PurgeCache(ctx context.Context, maxAge time.Duration) (int, error) {
	total := 0
	if p, ok := a.store.(cache.Purger); ok {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	if a.cfg.CacheBackend == CacheDisk && maxAge > 0 {
		n, err := cache.PurgeByAge(a.cfg.CacheDir, maxAge)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
