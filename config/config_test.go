package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbagg/ProjectAlignment/document"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Alignment.DriftThreshold != 0.5 {
		t.Errorf("expected drift threshold 0.5, got %f", cfg.Alignment.DriftThreshold)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if cfg.Metrics.Listen != ":9090" {
		t.Errorf("expected metrics listen :9090, got %s", cfg.Metrics.Listen)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "drift threshold zero",
			modify:  func(c *Config) { c.Alignment.DriftThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "drift threshold above one",
			modify:  func(c *Config) { c.Alignment.DriftThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "max attempts below one",
			modify:  func(c *Config) { c.Oracle.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name: "type rule without pattern",
			modify: func(c *Config) {
				c.Documents.TypeRules = []TypeRuleConfig{{Pattern: "", Type: "requirements"}}
			},
			wantErr: true,
		},
		{
			name: "type rule with unknown type",
			modify: func(c *Config) {
				c.Documents.TypeRules = []TypeRuleConfig{{Pattern: "**/prd*", Type: "roadmap"}}
			},
			wantErr: true,
		},
		{
			name: "valid type rule",
			modify: func(c *Config) {
				c.Documents.TypeRules = []TypeRuleConfig{{Pattern: "**/prd*", Type: "requirements"}}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "projectalignment.yaml")

	cfg := DefaultConfig()
	cfg.Alignment.DriftThreshold = 0.75
	cfg.Logging.Level = "debug"
	cfg.Documents.TypeRules = []TypeRuleConfig{
		{Pattern: "**/prd*", Type: "requirements"},
	}

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loaded.Alignment.DriftThreshold != 0.75 {
		t.Errorf("expected drift threshold 0.75, got %f", loaded.Alignment.DriftThreshold)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", loaded.Logging.Level)
	}
	if len(loaded.Documents.TypeRules) != 1 || loaded.Documents.TypeRules[0].Pattern != "**/prd*" {
		t.Errorf("type rules did not survive round trip: %+v", loaded.Documents.TypeRules)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	// A file setting only one value keeps defaults for the rest.
	content := []byte("alignment:\n  drift_threshold: 0.3\n")
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loaded.Alignment.DriftThreshold != 0.3 {
		t.Errorf("expected drift threshold 0.3, got %f", loaded.Alignment.DriftThreshold)
	}
	if loaded.Metrics.Listen != ":9090" {
		t.Errorf("expected default metrics listen, got %s", loaded.Metrics.Listen)
	}
	if !loaded.NATS.Embedded {
		t.Error("expected embedded NATS default to survive partial load")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()

	overlay := &Config{}
	overlay.Alignment.DriftThreshold = 0.8
	overlay.Logging.Level = "warn"
	overlay.NATS.URL = "nats://remote:4222"

	base.Merge(overlay)

	if base.Alignment.DriftThreshold != 0.8 {
		t.Errorf("expected merged drift threshold 0.8, got %f", base.Alignment.DriftThreshold)
	}
	if base.Logging.Level != "warn" {
		t.Errorf("expected merged log level warn, got %s", base.Logging.Level)
	}
	if base.NATS.URL != "nats://remote:4222" {
		t.Errorf("expected merged NATS URL, got %s", base.NATS.URL)
	}
	if base.NATS.Embedded {
		t.Error("setting a NATS URL should disable the embedded server")
	}
	if base.Metrics.Listen != ":9090" {
		t.Errorf("merge should not clobber unset fields, got %s", base.Metrics.Listen)
	}
}

func TestTypeRulesFallback(t *testing.T) {
	cfg := DefaultConfig()

	rules := cfg.TypeRules()
	if len(rules) != len(document.DefaultTypeRules()) {
		t.Errorf("expected default type rules, got %d rules", len(rules))
	}

	cfg.Documents.TypeRules = []TypeRuleConfig{{Pattern: "**/strategy*", Type: "strategy"}}
	rules = cfg.TypeRules()
	if len(rules) != 1 || rules[0].Type != document.TypeStrategy {
		t.Errorf("expected single configured rule, got %+v", rules)
	}
}

func TestLoaderFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}

	configPath := filepath.Join(tmpDir, ProjectConfigFile)
	if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	if err := os.Chdir(nested); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}

	loader := NewLoader(nil)
	found := loader.FindProjectConfig()
	if found == "" {
		t.Fatal("expected to find project config in ancestor directory")
	}
	if filepath.Base(found) != ProjectConfigFile {
		t.Errorf("unexpected config path: %s", found)
	}
}
