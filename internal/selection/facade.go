package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hyperifyio/contentcore/internal/cache"
	"github.com/hyperifyio/contentcore/internal/engine"
	"github.com/hyperifyio/contentcore/internal/features"
	"github.com/hyperifyio/contentcore/internal/gate"
)

// DefaultTTL bounds how long a cached selection is served.
const DefaultTTL = time.Hour

const keyPrefix = "engine_select:"

// Stats are cumulative facade counters.
type Stats struct {
	Selections  int64            `json:"selections"`
	CacheHits   int64            `json:"cache_hits"`
	CacheMisses int64            `json:"cache_misses"`
	CacheErrors int64            `json:"cache_errors"`
	ByEngine    map[string]int64 `json:"by_engine"`
}

// Facade wraps Compute with a result cache and the shared probe-first toggle.
// A nil store disables caching.
type Facade struct {
	store   cache.Store
	toggle  *Toggle
	weights gate.Weights
	ttl     time.Duration
	group   singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// Option configures a Facade.
type Option func(*Facade)

// WithWeights overrides the scoring weights.
func WithWeights(w gate.Weights) Option { return func(f *Facade) { f.weights = w } }

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option { return func(f *Facade) { f.ttl = ttl } }

// NewFacade builds a facade over store. toggle may be shared with other
// components; a nil toggle gets a private one that starts off.
func NewFacade(store cache.Store, toggle *Toggle, opts ...Option) *Facade {
	if toggle == nil {
		toggle = NewToggle(false)
	}
	f := &Facade{
		store:   store,
		toggle:  toggle,
		weights: gate.DefaultWeights(),
		ttl:     DefaultTTL,
		stats:   Stats{ByEngine: map[string]int64{}},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Toggle exposes the shared probe-first switch.
func (f *Facade) Toggle() *Toggle { return f.toggle }

// Key returns the cache key for c after the toggle has been applied.
func (f *Facade) Key(c Criteria) string {
	k := keyPrefix + cache.Digest(c.HTML) + ":" + c.Flags.Key()
	if f.weights.DomainPrior != 0 {
		k += fmt.Sprintf(":p%.2f", features.DomainPrior(c.URL))
	}
	return k
}

// SelectEngine returns the cached selection for c or computes and stores it.
// Cache failures are logged and never returned.
func (f *Facade) SelectEngine(ctx context.Context, c Criteria) EngineConfig {
	c.Flags.ProbeFirstSPA = c.Flags.ProbeFirstSPA || f.toggle.Get()
	key := f.Key(c)

	if cfg, ok := f.lookup(ctx, key); ok {
		f.record(cfg.Engine, true)
		return cfg
	}

	v, _, _ := f.group.Do(key, func() (interface{}, error) {
		cfg := Compute(c, f.weights)
		f.save(ctx, key, cfg)
		return cfg, nil
	})
	cfg := v.(EngineConfig)
	cfg.Reasons = append([]string(nil), cfg.Reasons...)
	f.record(cfg.Engine, false)
	return cfg
}

func (f *Facade) lookup(ctx context.Context, key string) (EngineConfig, bool) {
	if f.store == nil {
		return EngineConfig{}, false
	}
	b, ok, err := f.store.Get(ctx, key)
	if err != nil {
		f.countError()
		log.Warn().Err(err).Str("key", key).Msg("engine selection cache read failed; recomputing")
		return EngineConfig{}, false
	}
	if !ok {
		return EngineConfig{}, false
	}
	var cfg EngineConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("discarding undecodable cached selection")
		return EngineConfig{}, false
	}
	return cfg, true
}

func (f *Facade) save(ctx context.Context, key string, cfg EngineConfig) {
	if f.store == nil {
		return
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("engine selection encode failed")
		return
	}
	if err := f.store.Set(ctx, key, b, f.ttl); err != nil {
		f.countError()
		log.Warn().Err(err).Str("key", key).Msg("engine selection cache write failed")
	}
}

func (f *Facade) countError() {
	f.mu.Lock()
	f.stats.CacheErrors++
	f.mu.Unlock()
}

func (f *Facade) record(e engine.Engine, hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.Selections++
	if hit {
		f.stats.CacheHits++
	} else {
		f.stats.CacheMisses++
	}
	f.stats.ByEngine[e.String()]++
}

// Stats returns a snapshot of the counters.
func (f *Facade) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.stats
	out.ByEngine = make(map[string]int64, len(f.stats.ByEngine))
	for k, v := range f.stats.ByEngine {
		out.ByEngine[k] = v
	}
	return out
}

// ListEngines returns the capabilities of every engine in declaration order.
func ListEngines() []engine.Capabilities {
	all := engine.All()
	out := make([]engine.Capabilities, 0, len(all))
	for _, e := range all {
		if c, ok := engine.CapabilitiesOf(e); ok {
			out = append(out, c)
		}
	}
	return out
}
