package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "LEAGUEMODEL_"
	envFileVar = "LEAGUEMODEL_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LEAGUEMODEL_CONFIG is set
//  3. env (prefix LEAGUEMODEL_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(envFileVar))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(_ context.Context, path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LEAGUEMODEL_STORE_PATH -> store_path; flat keys keep their underscores.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.PrimaryDir) == "":
		return fmt.Errorf("%w: primary_dir must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.SecondaryDir) == "":
		return fmt.Errorf("%w: secondary_dir must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.StorePath) == "":
		return fmt.Errorf("%w: store_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AuthoritativeModelType) == "":
		return fmt.Errorf("%w: authoritative_model_type must not be empty", ErrInvalidConfig)
	case c.AccuracyTolerance <= 0:
		return fmt.Errorf("%w: accuracy_tolerance must be positive", ErrInvalidConfig)
	case c.ObjectStoreTimeoutMS < 0:
		return fmt.Errorf("%w: object_store_timeout_ms must not be negative", ErrInvalidConfig)
	case !sort.Float64sAreSorted(c.Metrics.LatencyBucketsMS):
		return fmt.Errorf("%w: metrics.latency_buckets_ms must be ascending", ErrInvalidConfig)
	}
	return nil
}
