package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(Config{})

	if cfg.LowConfidence != 0.5 {
		t.Errorf("LowConfidence = %f, want 0.5", cfg.LowConfidence)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.BatchSize)
	}
	if cfg.RetryBudget != 2 {
		t.Errorf("RetryBudget = %d, want 2", cfg.RetryBudget)
	}
	if cfg.CacheTTLMinutes != 30 {
		t.Errorf("CacheTTLMinutes = %d, want 30", cfg.CacheTTLMinutes)
	}
	if cfg.CachePrefixChars != 2000 {
		t.Errorf("CachePrefixChars = %d, want 2000", cfg.CachePrefixChars)
	}
	if cfg.SweepSchedule == "" {
		t.Error("SweepSchedule default missing")
	}
	if cfg.DBPath == "" {
		t.Error("DBPath default missing")
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := applyDefaults(Config{LowConfidence: 0.8, BatchSize: 2})
	if cfg.LowConfidence != 0.8 || cfg.BatchSize != 2 {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}

func TestLoadConfigYamlAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `
groq_api_key: from-yaml
low_confidence_threshold: 0.6
batch_size: 3
db_path: ` + filepath.Join(dir, "test.db") + `
`
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_PATH", configPath)
	t.Setenv("GROQ_API_KEY", "from-env")
	t.Setenv("CACHE_TTL_MINUTES", "10")

	cfg := LoadConfig()

	if cfg.GroqAPIKey != "from-env" {
		t.Errorf("GroqAPIKey = %q, env must override yaml", cfg.GroqAPIKey)
	}
	if cfg.LowConfidence != 0.6 {
		t.Errorf("LowConfidence = %f, want yaml value 0.6", cfg.LowConfidence)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("BatchSize = %d, want yaml value 3", cfg.BatchSize)
	}
	if cfg.CacheTTLMinutes != 10 {
		t.Errorf("CacheTTLMinutes = %d, want env value 10", cfg.CacheTTLMinutes)
	}
	// Untouched fields still get defaults.
	if cfg.RetryBudget != 2 {
		t.Errorf("RetryBudget = %d, want default 2", cfg.RetryBudget)
	}
}
