package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FARBKLANG_"

// EnvConfigFile names the optional YAML config file.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FARBKLANG_CONFIG is set
//  3. env (prefix FARBKLANG_); FARBKLANG_EMOTIONS is a comma-separated list
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// FARBKLANG_SAVE_QUEUE_SIZE -> save_queue_size; underscores are kept to
	// match the flat koanf tags.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "emotions" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	// Lists decode into the existing slice without truncating it.
	if k.Exists("emotions") {
		cfg.Emotions = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverXLSX:
		if strings.TrimSpace(c.StorePath) == "" {
			return fmt.Errorf("%w: store_path is required for the %s driver", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.StoreDriver == DriverXLSX && strings.TrimSpace(c.SheetName) == "" {
		return fmt.Errorf("%w: sheet_name must not be empty", ErrInvalidConfig)
	}
	if c.MaxSimilarLimit < 1 {
		return fmt.Errorf("%w: max_similar_limit must be positive", ErrInvalidConfig)
	}
	if c.SimilarLimit < 0 || c.SimilarLimit > c.MaxSimilarLimit {
		return fmt.Errorf("%w: similar_limit must be within [0, %d]", ErrInvalidConfig, c.MaxSimilarLimit)
	}
	if c.MaxEmotions < 1 {
		return fmt.Errorf("%w: max_emotions must be positive", ErrInvalidConfig)
	}
	return nil
}
