// Package config provides configuration management for window evaluation
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for window evaluation
type Config struct {
	// Spill Configuration
	InMemoryRowThreshold int    `json:"in_memory_row_threshold" yaml:"in_memory_row_threshold"` // Rows buffered in memory before spilling
	SpillBatchRows       int    `json:"spill_batch_rows" yaml:"spill_batch_rows"`               // Rows per spilled record batch
	SpillDir             string `json:"spill_dir" yaml:"spill_dir"`                             // Spill directory ("" = OS temp dir)

	// Parallel Processing Configuration
	MaxPartitionParallelism int `json:"max_partition_parallelism" yaml:"max_partition_parallelism"` // Concurrent partition-stream evaluations (0 = auto-detect)

	// Evaluation Configuration
	TimeZone string `json:"time_zone" yaml:"time_zone"` // Time zone for timestamp boundary arithmetic ("" = UTC)

	// Debugging Configuration
	VerboseLogging    bool `json:"verbose_logging" yaml:"verbose_logging"`       // Enable verbose logging
	MetricsCollection bool `json:"metrics_collection" yaml:"metrics_collection"` // Enable metrics collection
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultInMemoryRowThreshold = 4096
	DefaultSpillBatchRows       = 1024
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		InMemoryRowThreshold:    DefaultInMemoryRowThreshold,
		SpillBatchRows:          DefaultSpillBatchRows,
		SpillDir:                "",
		MaxPartitionParallelism: 0, // Auto-detect
		TimeZone:                "",
		VerboseLogging:          false,
		MetricsCollection:       false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.InMemoryRowThreshold <= 0 {
		return fmt.Errorf("InMemoryRowThreshold must be positive, got %d", c.InMemoryRowThreshold)
	}

	if c.SpillBatchRows <= 0 {
		return fmt.Errorf("SpillBatchRows must be positive, got %d", c.SpillBatchRows)
	}

	if c.MaxPartitionParallelism < 0 {
		return fmt.Errorf("MaxPartitionParallelism must be non-negative, got %d", c.MaxPartitionParallelism)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.InMemoryRowThreshold == 0 {
		c.InMemoryRowThreshold = defaults.InMemoryRowThreshold
	}
	if c.SpillBatchRows == 0 {
		c.SpillBatchRows = defaults.SpillBatchRows
	}

	// Boolean fields are intentionally not defaulted here so that an
	// explicitly set false stays distinguishable from unset.

	return c
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("WINDMILL_IN_MEMORY_ROW_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.InMemoryRowThreshold = parsed
		}
	}

	if val := os.Getenv("WINDMILL_SPILL_BATCH_ROWS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.SpillBatchRows = parsed
		}
	}

	if val := os.Getenv("WINDMILL_SPILL_DIR"); val != "" {
		config.SpillDir = val
	}

	if val := os.Getenv("WINDMILL_MAX_PARTITION_PARALLELISM"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxPartitionParallelism = parsed
		}
	}

	if val := os.Getenv("WINDMILL_TIME_ZONE"); val != "" {
		config.TimeZone = val
	}

	if val := os.Getenv("WINDMILL_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv("WINDMILL_METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}
