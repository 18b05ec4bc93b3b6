package ivfile

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config groups everything needed to build and query an index.
//
//	index:
//	  weight: tfidf
//	  norm: l2
//	search:
//	  dist: l1
//	  overlapOnly: true
//	  k: 20
//	logging:
//	  level: info
//	  format: json
type Config struct {
	Index   Params        `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig holds the per-query ranking settings.
type SearchConfig struct {
	Dist        Dist `yaml:"dist"`
	OverlapOnly bool `yaml:"overlapOnly"`
	K           int  `yaml:"k"`
	Verbose     bool `yaml:"verbose"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns DefaultParams with L1 ranking over all documents.
func DefaultConfig() *Config {
	return &Config{
		Index: DefaultParams(),
		Search: SearchConfig{
			Dist: DistL1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML config file (if path is not empty) over the
// defaults, applies IVF_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the schemes and the result limit.
func (c *Config) Validate() error {
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if !c.Search.Dist.Valid() {
		return fmt.Errorf("%w: dist %d", ErrInvalidScheme, int32(c.Search.Dist))
	}
	if c.Search.K < 0 {
		return fmt.Errorf("search k cannot be negative: %d", c.Search.K)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("IVF_WEIGHT"); v != "" {
		if err := cfg.Index.Weight.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("IVF_WEIGHT: %w", err)
		}
	}
	if v := os.Getenv("IVF_NORM"); v != "" {
		if err := cfg.Index.Norm.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("IVF_NORM: %w", err)
		}
	}
	if v := os.Getenv("IVF_DIST"); v != "" {
		if err := cfg.Search.Dist.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("IVF_DIST: %w", err)
		}
	}
	if v := os.Getenv("IVF_OVERLAP_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("IVF_OVERLAP_ONLY: %w", err)
		}
		cfg.Search.OverlapOnly = b
	}
	if v := os.Getenv("IVF_K"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IVF_K: %w", err)
		}
		cfg.Search.K = k
	}
	if v := os.Getenv("IVF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IVF_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}
