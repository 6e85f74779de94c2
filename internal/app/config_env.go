package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Fields still holding their default count as unset.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.GateHi == 0 || cfg.GateHi == defaultGateHi {
		envFloat(&cfg.GateHi, "GATE_HI_THRESHOLD")
	}
	if cfg.GateLo == 0 || cfg.GateLo == defaultGateLo {
		envFloat(&cfg.GateLo, "GATE_LO_THRESHOLD")
	}
	if cfg.RenderURL == "" {
		cfg.RenderURL = strings.TrimSpace(os.Getenv("HEADLESS_URL"))
	}
	if cfg.CacheBackend == "" || cfg.CacheBackend == defaultCacheBackend {
		if v := strings.TrimSpace(os.Getenv("CACHE_BACKEND")); v != "" {
			cfg.CacheBackend = v
		}
	}
	if cfg.CacheDir == "" || cfg.CacheDir == defaultCacheDir {
		if v := os.Getenv("CACHE_DIR"); v != "" {
			cfg.CacheDir = v
		}
	}
	if cfg.CacheTTL == 0 || cfg.CacheTTL == defaultCacheTTL {
		envDuration(&cfg.CacheTTL, "CACHE_TTL")
	}
	if cfg.CacheMaxAge == 0 {
		envDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	}
	if cfg.RenderRPS == 0 || cfg.RenderRPS == defaultRenderRPS {
		envFloat(&cfg.RenderRPS, "RENDER_RPS")
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if b, ok := envBool(key); ok && b {
			*dst = true
		}
	}
	setBool(&cfg.ProbeFirstSPA, "PROBE_FIRST_SPA")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS")
}

// ApplyEnvOverrides overrides cfg with every environment variable that is
// set. It runs after the file config so env beats file; flags the user typed
// are re-applied by the caller.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	envFloat(&cfg.GateHi, "GATE_HI_THRESHOLD")
	envFloat(&cfg.GateLo, "GATE_LO_THRESHOLD")
	envFloat(&cfg.RenderRPS, "RENDER_RPS")
	if v := strings.TrimSpace(os.Getenv("HEADLESS_URL")); v != "" {
		cfg.RenderURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_BACKEND")); v != "" {
		cfg.CacheBackend = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	envDuration(&cfg.CacheTTL, "CACHE_TTL")
	envDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	for key, dst := range map[string]*bool{
		"PROBE_FIRST_SPA":    &cfg.ProbeFirstSPA,
		"VERBOSE":            &cfg.Verbose,
		"CACHE_CLEAR":        &cfg.CacheClear,
		"CACHE_STRICT_PERMS": &cfg.CacheStrictPerms,
		"IGNORE_ROBOTS":      &cfg.IgnoreRobots,
	} {
		if b, ok := envBool(key); ok {
			*dst = b
		}
	}
}

func envFloat(dst *float64, key string) {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}

// envBool reports the value of a boolean variable and whether it was set to
// a recognized spelling.
func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
