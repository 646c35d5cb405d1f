package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	wantTypes := []string{"tech", "project-tech", "domain", "workflow", "decision"}
	if len(cfg.Memory.Types) != len(wantTypes) {
		t.Fatalf("Expected %d default types, got %d", len(wantTypes), len(cfg.Memory.Types))
	}
	for i, want := range wantTypes {
		if cfg.Memory.Types[i] != want {
			t.Errorf("Expected type[%d]=%s, got %s", i, want, cfg.Memory.Types[i])
		}
	}

	if cfg.Memory.Database.Path != filepath.Join(".kiro", "memory", "db.sqlite3") {
		t.Errorf("Unexpected default database path: %s", cfg.Memory.Database.Path)
	}
	if cfg.Memory.Document.OutputDir != ".kiro/memory" {
		t.Errorf("Unexpected default output dir: %s", cfg.Memory.Document.OutputDir)
	}
	if cfg.Memory.Document.Format != "markdown" {
		t.Errorf("Expected format=markdown, got %s", cfg.Memory.Document.Format)
	}
	if cfg.Memory.Instructions == "" {
		t.Error("Expected non-empty default instructions")
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}

	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{
			name:      "valid config",
			modify:    func(c *Config) {},
			expectErr: false,
		},
		{
			name: "empty types list",
			modify: func(c *Config) {
				c.Memory.Types = nil
			},
			expectErr: true,
		},
		{
			name: "whitespace type entry",
			modify: func(c *Config) {
				c.Memory.Types = []string{"tech", "  "}
			},
			expectErr: true,
		},
		{
			name: "empty database path",
			modify: func(c *Config) {
				c.Memory.Database.Path = ""
			},
			expectErr: true,
		},
		{
			name: "unsupported document format",
			modify: func(c *Config) {
				c.Memory.Document.Format = "html"
			},
			expectErr: true,
		},
		{
			name: "invalid logging level",
			modify: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectErr: true,
		},
		{
			name: "invalid logging format",
			modify: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectErr: true,
		},
		{
			name: "negative global rate",
			modify: func(c *Config) {
				c.RateLimit.Global.RequestsPerSecond = -1
			},
			expectErr: true,
		},
		{
			name: "unnamed tool limit",
			modify: func(c *Config) {
				c.RateLimit.Tools = append(c.RateLimit.Tools, ToolLimitConfig{RequestsPerSecond: 5})
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	// Change to temp directory where no config exists
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	// Temporarily override HOME to prevent finding user's config
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error with missing config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}

	// Verify it's using defaults
	if len(cfg.Memory.Types) != 5 {
		t.Errorf("Expected 5 default types, got %d", len(cfg.Memory.Types))
	}
}

func TestLoadConfig_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[memory]
types = ["tech", "workflow"]
instructions = "Store decisions as you make them."

[memory.document]
output_dir = "docs/memory"
format = "markdown"

[memory.database]
path = "/tmp/test-memory.sqlite3"

[logging]
level = "debug"
format = "json"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(cfg.Memory.Types) != 2 || cfg.Memory.Types[0] != "tech" || cfg.Memory.Types[1] != "workflow" {
		t.Errorf("Unexpected types: %v", cfg.Memory.Types)
	}
	if cfg.Memory.Instructions != "Store decisions as you make them." {
		t.Errorf("Unexpected instructions: %q", cfg.Memory.Instructions)
	}
	if cfg.Memory.Database.Path != "/tmp/test-memory.sqlite3" {
		t.Errorf("Unexpected database path: %s", cfg.Memory.Database.Path)
	}
	if cfg.Memory.Document.OutputDir != "docs/memory" {
		t.Errorf("Unexpected output dir: %s", cfg.Memory.Document.OutputDir)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}

	// Rate limiting falls back to defaults when the file omits it.
	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting to default to enabled")
	}
}

func TestLoadConfig_InvalidFileFailsStartup(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[memory]
types = []

[memory.database]
path = "/tmp/test-memory.sqlite3"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for empty types list, got nil")
	}
}

func TestProjectConfig(t *testing.T) {
	cfg := DefaultConfig()
	pc := cfg.ProjectConfig()

	if len(pc.Types) != len(cfg.Memory.Types) {
		t.Errorf("Expected %d types, got %d", len(cfg.Memory.Types), len(pc.Types))
	}
	if pc.Instructions != cfg.Memory.Instructions {
		t.Error("Instructions not carried into ProjectConfig")
	}
	if pc.DatabasePath != cfg.Memory.Database.Path {
		t.Error("DatabasePath not carried into ProjectConfig")
	}

	types := pc.TypeSet()
	if _, err := types.Validate("tech"); err != nil {
		t.Errorf("Expected 'tech' to validate, got: %v", err)
	}
	if _, err := types.Validate("nonsense"); err == nil {
		t.Error("Expected 'nonsense' to be rejected")
	}
}
