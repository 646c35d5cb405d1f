package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
)

// Config represents the complete application configuration.
type Config struct {
	Memory    MemoryConfig    `mapstructure:"memory"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// MemoryConfig is the [memory] table: the admissible memory types, the
// operator instructions surfaced in the MCP startup banner, and the
// document/database sub-tables.
type MemoryConfig struct {
	Types        []string       `mapstructure:"types"`
	Instructions string         `mapstructure:"instructions"`
	Document     DocumentConfig `mapstructure:"document"`
	Database     DatabaseConfig `mapstructure:"database"`
}

// DocumentConfig holds the [memory.document] table.
type DocumentConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Format    string `mapstructure:"format"`
}

// DatabaseConfig holds the [memory.database] table.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// RateLimitConfig holds rate limiting configuration for the MCP tools.
type RateLimitConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	Global  LimitConfig       `mapstructure:"global"`
	Tools   []ToolLimitConfig `mapstructure:"tools"`
}

// LimitConfig defines rate limit parameters
type LimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// ToolLimitConfig defines per-tool rate limiting
type ToolLimitConfig struct {
	Name              string  `mapstructure:"name"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// DefaultInstructions is the operator guidance emitted in the server's
// startup banner when the config file does not override it.
const DefaultInstructions = "Use remember to store typed notes (tech, project-tech, domain, workflow, decision) " +
	"and recall to retrieve them by free-text query plus type/tag filters."

// DefaultConfig returns configuration with hard-coded defaults equivalent
// to the documented config.toml.
func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			Types:        []string{"tech", "project-tech", "domain", "workflow", "decision"},
			Instructions: DefaultInstructions,
			Document: DocumentConfig{
				OutputDir: ".kiro/memory",
				Format:    "markdown",
			},
			Database: DatabaseConfig{
				Path: filepath.Join(".kiro", "memory", "db.sqlite3"),
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Global:  LimitConfig{RequestsPerSecond: 100, BurstSize: 200},
			Tools: []ToolLimitConfig{
				{Name: "remember", RequestsPerSecond: 30, BurstSize: 60},
				{Name: "recall", RequestsPerSecond: 20, BurstSize: 40},
			},
		},
	}
}

// Load loads configuration from a TOML file with fallback to defaults.
// cfgFile, if non-empty, names the exact file to read; otherwise the
// search order is:
// 1. ./config.toml (current directory)
// 2. ~/.kiro/config.toml (user home)
// A missing file is not an error; defaults are used.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".kiro"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if cfgFile == "" && (notFound || os.IsNotExist(err)) {
			// No config file anywhere; defaults already validate.
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values in Viper
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("memory.types", d.Memory.Types)
	v.SetDefault("memory.instructions", d.Memory.Instructions)
	v.SetDefault("memory.document.output_dir", d.Memory.Document.OutputDir)
	v.SetDefault("memory.document.format", d.Memory.Document.Format)
	v.SetDefault("memory.database.path", d.Memory.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.global.requests_per_second", d.RateLimit.Global.RequestsPerSecond)
	v.SetDefault("rate_limit.global.burst_size", d.RateLimit.Global.BurstSize)
	v.SetDefault("rate_limit.tools", d.RateLimit.Tools)
}

// Validate validates the configuration. A failure here is a startup
// failure: the process must exit non-zero before serving.
func (c *Config) Validate() error {
	if len(c.Memory.Types) == 0 {
		return fmt.Errorf("memory.types must not be empty")
	}
	for _, name := range c.Memory.Types {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("memory.types must not contain empty entries")
		}
	}

	if c.Memory.Database.Path == "" {
		return fmt.Errorf("memory.database.path is required")
	}

	// Document generation is out of core scope but its knob is still
	// validated so a malformed file fails fast at startup.
	if c.Memory.Document.Format != "markdown" {
		return fmt.Errorf("memory.document.format must be 'markdown'")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	if c.RateLimit.Global.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.global.requests_per_second must be >= 0")
	}
	for _, tool := range c.RateLimit.Tools {
		if tool.Name == "" {
			return fmt.Errorf("rate_limit.tools entries require a name")
		}
		if tool.RequestsPerSecond < 0 {
			return fmt.Errorf("rate_limit.tools[%s].requests_per_second must be >= 0", tool.Name)
		}
	}

	return nil
}

// ProjectConfig derives the domain-layer view of this configuration: the
// admissible memory types, the banner instructions, and the storage paths.
func (c *Config) ProjectConfig() *memorycore.ProjectConfig {
	return &memorycore.ProjectConfig{
		Types:        c.Memory.Types,
		Instructions: c.Memory.Instructions,
		DatabasePath: c.Memory.Database.Path,
		DocumentDir:  c.Memory.Document.OutputDir,
		DocumentFmt:  c.Memory.Document.Format,
	}
}
