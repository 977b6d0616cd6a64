// Package config loads ndb settings.
//
// Three layers are unified in order, later layers winning:
//
//  1. the embedded CUE schema, which carries every default and constraint
//  2. an optional YAML file
//  3. NDB_* environment variables
//
// All three pass through the same CUE constraints, so an out-of-range value
// is rejected whichever layer it came from.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/JacobsonMT/ndb/internal/event"
)

//go:embed schema.cue
var schemaCUE string

// Config is the resolved configuration.
type Config struct {
	Database string
	LogLevel string
	Cache    CacheConfig
	Grouping GroupingConfig
}

// CacheConfig controls the statistics caches.
type CacheConfig struct {
	TTL  time.Duration
	TopN int
}

// GroupingConfig controls the complexity rule.
type GroupingConfig struct {
	LocusThreshold int64
	MaxChromosomes int
}

// fileConfig mirrors #Config for decoding out of CUE.
type fileConfig struct {
	Database string `json:"database"`
	LogLevel string `json:"log_level"`
	Cache    struct {
		TTL  string `json:"ttl"`
		TopN int    `json:"top_n"`
	} `json:"cache"`
	Grouping struct {
		LocusThreshold int64 `json:"locus_threshold"`
		MaxChromosomes int   `json:"max_chromosomes"`
	} `json:"grouping"`
}

// envOverrides are the recognized environment variables. Unset variables
// stay nil and leave the lower layers alone.
type envOverrides struct {
	Database       *string `env:"NDB_DATABASE"`
	LogLevel       *string `env:"NDB_LOG_LEVEL"`
	CacheTTL       *string `env:"NDB_CACHE_TTL"`
	TopN           *int    `env:"NDB_TOP_N"`
	LocusThreshold *int64  `env:"NDB_LOCUS_THRESHOLD"`
	MaxChromosomes *int    `env:"NDB_MAX_CHROMOSOMES"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return cfg
}

// Load resolves the configuration. An empty path skips the file layer.
func Load(path string) (Config, error) {
	values := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if values == nil {
			values = map[string]any{}
		}
	}

	if err := applyEnv(values); err != nil {
		return Config{}, err
	}

	return resolve(values)
}

// applyEnv copies set NDB_* variables into values.
func applyEnv(values map[string]any) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.Database != nil {
		values["database"] = *ov.Database
	}
	if ov.LogLevel != nil {
		values["log_level"] = strings.ToLower(*ov.LogLevel)
	}
	if ov.CacheTTL != nil {
		section(values, "cache")["ttl"] = *ov.CacheTTL
	}
	if ov.TopN != nil {
		section(values, "cache")["top_n"] = *ov.TopN
	}
	if ov.LocusThreshold != nil {
		section(values, "grouping")["locus_threshold"] = *ov.LocusThreshold
	}
	if ov.MaxChromosomes != nil {
		section(values, "grouping")["max_chromosomes"] = *ov.MaxChromosomes
	}
	return nil
}

// section returns values[name] as a map, creating it when absent. A
// non-map value is replaced; CUE reports the file's mistake either way.
func section(values map[string]any, name string) map[string]any {
	if m, ok := values[name].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	values[name] = m
	return m
}

// resolve unifies values with the schema and decodes the result.
func resolve(values map[string]any) (Config, error) {
	cctx := cuecontext.New()
	schema := cctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(cctx.Encode(values))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var fc fileConfig
	if err := v.Decode(&fc); err != nil {
		return Config{}, formatCUEError(err)
	}

	ttl, err := time.ParseDuration(fc.Cache.TTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: cache.ttl: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("invalid config: cache.ttl must be positive, got %s", fc.Cache.TTL)
	}

	return Config{
		Database: fc.Database,
		LogLevel: fc.LogLevel,
		Cache: CacheConfig{
			TTL:  ttl,
			TopN: fc.Cache.TopN,
		},
		Grouping: GroupingConfig{
			LocusThreshold: fc.Grouping.LocusThreshold,
			MaxChromosomes: fc.Grouping.MaxChromosomes,
		},
	}, nil
}

// formatCUEError reports the first CUE error with its path.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}
	first := errs[0]
	path := strings.TrimPrefix(strings.Join(first.Path(), "."), "#Config.")
	msg := first.Error()
	if path != "" && !strings.Contains(msg, path) {
		msg = path + ": " + msg
	}
	if n := len(errs); n > 1 {
		msg += " (and " + strconv.Itoa(n-1) + " more)"
	}
	return fmt.Errorf("invalid config: %s", msg)
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GroupingOptions returns the complexity rule settings as engine options.
func (c Config) GroupingOptions() []event.Option {
	return []event.Option{
		event.WithLocusThreshold(c.Grouping.LocusThreshold),
		event.WithMaxChromosomes(c.Grouping.MaxChromosomes),
	}
}
