package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/contentcore/internal/chunking"
	cerrors "github.com/hyperifyio/contentcore/internal/errors"
	"github.com/hyperifyio/contentcore/internal/fetch"
	"github.com/hyperifyio/contentcore/internal/gate"
	"github.com/hyperifyio/contentcore/internal/strategy"
)

// FileConfig is the single-file configuration schema. Sections mirror the
// dotted flag names.
type FileConfig struct {
	Gate struct {
		Hi      *float64      `yaml:"hi" json:"hi"`
		Lo      *float64      `yaml:"lo" json:"lo"`
		Weights *gate.Weights `yaml:"weights" json:"weights"`
	} `yaml:"gate" json:"gate"`

	ProbeFirstSPA bool `yaml:"probeFirstSPA" json:"probeFirstSPA"`

	Engine struct {
		VisibleTextDensity bool `yaml:"visibleTextDensity" json:"visibleTextDensity"`
		DetectPlaceholders bool `yaml:"detectPlaceholders" json:"detectPlaceholders"`
	} `yaml:"engine" json:"engine"`

	Chunking map[string]chunking.Settings `yaml:"chunking" json:"chunking"`

	Cache struct {
		Backend     string        `yaml:"backend" json:"backend"`
		Dir         string        `yaml:"dir" json:"dir"`
		TTL         time.Duration `yaml:"ttl" json:"ttl"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Render struct {
		URL         string        `yaml:"url" json:"url"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		RPS         float64       `yaml:"rps" json:"rps"`
		WaitFor     string        `yaml:"waitFor" json:"waitFor"`
		ScrollSteps int           `yaml:"scrollSteps" json:"scrollSteps"`
	} `yaml:"render" json:"render"`

	Fetch struct {
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		IgnoreRobots bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
		RobotsTTL    time.Duration `yaml:"robotsTTL" json:"robotsTTL"`
	} `yaml:"fetch" json:"fetch"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig. Unknown extensions are
// tried as YAML first.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays fc onto fields of cfg that are unset or still at
// their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if fc.Gate.Hi != nil && (cfg.GateHi == 0 || cfg.GateHi == defaultGateHi) {
		cfg.GateHi = *fc.Gate.Hi
	}
	if fc.Gate.Lo != nil && (cfg.GateLo == 0 || cfg.GateLo == defaultGateLo) {
		cfg.GateLo = *fc.Gate.Lo
	}
	if cfg.GateWeights == nil && fc.Gate.Weights != nil {
		w := *fc.Gate.Weights
		cfg.GateWeights = &w
	}
	if !cfg.ProbeFirstSPA && fc.ProbeFirstSPA {
		cfg.ProbeFirstSPA = true
	}
	if !cfg.UseVisibleTextDensity && fc.Engine.VisibleTextDensity {
		cfg.UseVisibleTextDensity = true
	}
	if !cfg.DetectPlaceholders && fc.Engine.DetectPlaceholders {
		cfg.DetectPlaceholders = true
	}
	if len(fc.Chunking) > 0 {
		if cfg.Chunking == nil {
			cfg.Chunking = map[string]chunking.Settings{}
		}
		for k, v := range fc.Chunking {
			if _, set := cfg.Chunking[k]; !set {
				cfg.Chunking[k] = v
			}
		}
	}

	if (cfg.CacheBackend == "" || cfg.CacheBackend == defaultCacheBackend) && fc.Cache.Backend != "" {
		cfg.CacheBackend = fc.Cache.Backend
	}
	if (cfg.CacheDir == "" || cfg.CacheDir == defaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if (cfg.CacheTTL == 0 || cfg.CacheTTL == defaultCacheTTL) && fc.Cache.TTL > 0 {
		cfg.CacheTTL = fc.Cache.TTL
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if cfg.RenderURL == "" && fc.Render.URL != "" {
		cfg.RenderURL = fc.Render.URL
	}
	if (cfg.RenderTimeout == 0 || cfg.RenderTimeout == defaultRenderTimeout) && fc.Render.Timeout > 0 {
		cfg.RenderTimeout = fc.Render.Timeout
	}
	if (cfg.RenderRPS == 0 || cfg.RenderRPS == defaultRenderRPS) && fc.Render.RPS > 0 {
		cfg.RenderRPS = fc.Render.RPS
	}
	if cfg.RenderWaitFor == "" && fc.Render.WaitFor != "" {
		cfg.RenderWaitFor = fc.Render.WaitFor
	}
	if cfg.RenderScrollSteps == 0 && fc.Render.ScrollSteps > 0 {
		cfg.RenderScrollSteps = fc.Render.ScrollSteps
	}

	if (cfg.UserAgent == "" || cfg.UserAgent == defaultUserAgent) && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == defaultFetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if !cfg.IgnoreRobots && fc.Fetch.IgnoreRobots {
		cfg.IgnoreRobots = true
	}
	if (cfg.RobotsTTL == 0 || cfg.RobotsTTL == defaultRobotsTTL) && fc.Fetch.RobotsTTL > 0 {
		cfg.RobotsTTL = fc.Fetch.RobotsTTL
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig rejects configurations the application cannot start with.
// Errors carry the offending key.
func ValidateConfig(cfg Config) error {
	if cfg.GateHi < 0 || cfg.GateHi > 1 {
		return cerrors.NewInvalidConfig("gate.hi", fmt.Sprintf("threshold %.3f outside [0,1]", cfg.GateHi))
	}
	if cfg.GateLo < 0 || cfg.GateLo > 1 {
		return cerrors.NewInvalidConfig("gate.lo", fmt.Sprintf("threshold %.3f outside [0,1]", cfg.GateLo))
	}
	if cfg.GateLo > cfg.GateHi {
		return cerrors.NewInvalidConfig("gate.lo", "low threshold exceeds high threshold")
	}
	switch cfg.CacheBackend {
	case "", CacheMemory, CacheNone:
	case CacheDisk, CacheSQLite:
		if strings.TrimSpace(cfg.CacheDir) == "" {
			return cerrors.NewInvalidConfig("cache.dir", cfg.CacheBackend+" cache needs a directory")
		}
	default:
		return cerrors.NewInvalidConfig("cache.backend", fmt.Sprintf("unknown cache backend %q", cfg.CacheBackend))
	}
	if cfg.CacheTTL < 0 || cfg.CacheMaxAge < 0 {
		return cerrors.NewInvalidConfig("cache.ttl", "negative durations are not allowed")
	}
	if cfg.RenderURL != "" {
		if err := fetch.CheckURL(cfg.RenderURL); err != nil {
			return cerrors.Wrap(cerrors.ErrInvalidConfig, "render.url", "render endpoint must be http or https", err)
		}
	}
	if cfg.RenderRPS < 0 || cfg.RenderScrollSteps < 0 {
		return cerrors.NewInvalidConfig("render.rps", "negative render limits are not allowed")
	}
	if _, err := strategy.DefaultTable().WithOverrides(cfg.Chunking); err != nil {
		return err
	}
	return nil
}
