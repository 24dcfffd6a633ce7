// Package config loads and validates the engine's configuration: the
// project root to analyze, cache tiering, CDC, and query/traversal bounds.
// It mirrors the teacher's viper-backed layered load (flags > env > file >
// defaults) trimmed to the options this engine actually recognizes.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TTLConfig holds the per-purpose L1 TTLs.
type TTLConfig struct {
	LangDetectionSeconds int `mapstructure:"lang_detection"`
	FileParseSeconds     int `mapstructure:"file_parse"`
}

// LangDetection returns the language-detection TTL as a duration.
func (t TTLConfig) LangDetection() time.Duration {
	return time.Duration(t.LangDetectionSeconds) * time.Second
}

// FileParse returns the file-parse cache TTL as a duration.
func (t TTLConfig) FileParse() time.Duration {
	return time.Duration(t.FileParseSeconds) * time.Second
}

// Config is the engine's full recognized configuration surface (spec §6).
type Config struct {
	RootPath          string   `mapstructure:"root_path"`
	IgnoreFileNames   []string `mapstructure:"ignore_file_names"`
	MaxFileBytes      int64    `mapstructure:"max_file_bytes"`
	ParserParallelism int      `mapstructure:"parser_parallelism"`

	L1CacheEntries int       `mapstructure:"l1_cache_entries"`
	L1TTLSeconds   TTLConfig `mapstructure:"l1_ttl_seconds"`

	L2Enabled bool   `mapstructure:"l2_enabled"`
	L2URL     string `mapstructure:"l2_url"`

	CDCEnabled bool   `mapstructure:"cdc_enabled"`
	StreamName string `mapstructure:"stream_name"`

	TraversalMaxDepth      int     `mapstructure:"traversal_max_depth"`
	PaginationMaxLimit     int     `mapstructure:"pagination_max_limit"`
	PaginationDefaultLimit int     `mapstructure:"pagination_default_limit"`
	HubPercentile          float64 `mapstructure:"hub_percentile"`
}

// setDefaults installs every default named in spec §6.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ignore_file_names", []string{".gitignore", ".codegraphignore"})
	v.SetDefault("max_file_bytes", 10*1024*1024)
	v.SetDefault("parser_parallelism", 0) // 0 means "use runtime.NumCPU()"

	v.SetDefault("l1_cache_entries", 100_000)
	v.SetDefault("l1_ttl_seconds.lang_detection", 1800)
	v.SetDefault("l1_ttl_seconds.file_parse", 7200)

	v.SetDefault("l2_enabled", false)
	v.SetDefault("l2_url", "")

	v.SetDefault("cdc_enabled", false)
	v.SetDefault("stream_name", "codegraph:events")

	v.SetDefault("traversal_max_depth", 10)
	v.SetDefault("pagination_max_limit", 500)
	v.SetDefault("pagination_default_limit", 50)
	v.SetDefault("hub_percentile", 0.95)
}

// Load reads configuration from (in increasing priority) defaults, a config
// file, environment variables prefixed `CODEGRAPH_`, and whatever was bound
// onto the passed viper instance by the CLI layer (flags).
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("CODEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("codegraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.codegraph")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// validate enforces the invariants spec §6/§4.6 depend on.
func validate(cfg *Config) error {
	if cfg.RootPath == "" {
		return fmt.Errorf("root_path is required")
	}
	abs, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return fmt.Errorf("root_path %q: %w", cfg.RootPath, err)
	}
	cfg.RootPath = abs

	if cfg.MaxFileBytes <= 0 {
		return fmt.Errorf("max_file_bytes must be positive, got %d", cfg.MaxFileBytes)
	}
	if cfg.L2Enabled && cfg.L2URL == "" {
		return fmt.Errorf("l2_url is required when l2_enabled is true")
	}
	if cfg.CDCEnabled && cfg.StreamName == "" {
		return fmt.Errorf("stream_name is required when cdc_enabled is true")
	}
	if cfg.TraversalMaxDepth <= 0 {
		return fmt.Errorf("traversal_max_depth must be positive, got %d", cfg.TraversalMaxDepth)
	}
	if cfg.PaginationMaxLimit <= 0 || cfg.PaginationMaxLimit > 500 {
		return fmt.Errorf("pagination_max_limit must be in (0, 500], got %d", cfg.PaginationMaxLimit)
	}
	if cfg.PaginationDefaultLimit <= 0 || cfg.PaginationDefaultLimit > cfg.PaginationMaxLimit {
		return fmt.Errorf("pagination_default_limit must be in (0, pagination_max_limit], got %d", cfg.PaginationDefaultLimit)
	}
	if cfg.HubPercentile <= 0 || cfg.HubPercentile >= 1 {
		return fmt.Errorf("hub_percentile must be in (0, 1), got %f", cfg.HubPercentile)
	}
	return nil
}
