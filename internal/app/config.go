package app

import (
	"time"

	"github.com/hyperifyio/contentcore/internal/chunking"
	"github.com/hyperifyio/contentcore/internal/gate"
)

// Cache backends accepted by Config.CacheBackend.
const (
	CacheMemory = "memory"
	CacheDisk   = "disk"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Gate thresholds in [0, 1], scaled onto the 0-100 score.
	GateHi float64
	GateLo float64
	// GateWeights replaces the built-in scoring table when set.
	GateWeights *gate.Weights

	// Engine selection flags
	ProbeFirstSPA         bool
	UseVisibleTextDensity bool
	DetectPlaceholders    bool

	// Chunking overrides keyed by render mode name.
	Chunking map[string]chunking.Settings

	// Selection cache
	CacheBackend     string
	CacheDir         string
	CacheTTL         time.Duration
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	// Headless renderer
	RenderURL         string
	RenderTimeout     time.Duration
	RenderRPS         float64
	RenderWaitFor     string
	RenderScrollSteps int

	// Raw fetches
	UserAgent    string
	FetchTimeout time.Duration
	// IgnoreRobots skips the robots.txt check before probes.
	IgnoreRobots bool
	RobotsTTL    time.Duration

	Verbose bool
}

// Defaults used by flags and recognized when a file config overlays them.
const (
	defaultGateHi        = gate.DefaultHi
	defaultGateLo        = gate.DefaultLo
	defaultCacheBackend  = CacheMemory
	defaultCacheDir      = ".contentcore-cache"
	defaultCacheTTL      = time.Hour
	defaultRenderTimeout = 30 * time.Second
	defaultRenderRPS     = 2.0
	defaultFetchTimeout  = 15 * time.Second
	defaultRobotsTTL     = 24 * time.Hour
	defaultUserAgent     = "contentcore/1.0 (+https://github.com/hyperifyio/contentcore)"
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		GateHi:        defaultGateHi,
		GateLo:        defaultGateLo,
		CacheBackend:  defaultCacheBackend,
		CacheDir:      defaultCacheDir,
		CacheTTL:      defaultCacheTTL,
		RenderTimeout: defaultRenderTimeout,
		RenderRPS:     defaultRenderRPS,
		UserAgent:     defaultUserAgent,
		FetchTimeout:  defaultFetchTimeout,
		RobotsTTL:     defaultRobotsTTL,
	}
}

// Weights returns the configured scoring weights.
func (c Config) Weights() gate.Weights {
	if c.GateWeights != nil {
		return *c.GateWeights
	}
	return gate.DefaultWeights()
}
