package main

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GroqAPIKey       string `yaml:"groq_api_key"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`

	LowConfidence      float64 `yaml:"low_confidence_threshold"`
	ContentPrefixChars int     `yaml:"content_prefix_chars"`
	BatchSize          int     `yaml:"batch_size"`
	RetryBudget        int     `yaml:"retry_budget"`
	CooldownSeconds    int     `yaml:"cooldown_seconds"`

	CacheTTLMinutes  int    `yaml:"cache_ttl_minutes"`
	CacheMaxEntries  int    `yaml:"cache_max_entries"`
	CachePrefixChars int    `yaml:"cache_prefix_chars"`
	SweepSchedule    string `yaml:"sweep_schedule"`

	DBPath       string `yaml:"db_path"`
	GlossaryPath string `yaml:"glossary_path"`
	WatchDir     string `yaml:"watch_dir"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.GroqAPIKey, "GROQ_API_KEY")
	envOverride(&cfg.OpenRouterAPIKey, "OPENROUTER_API_KEY")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverrideFloat(&cfg.LowConfidence, "LOW_CONFIDENCE_THRESHOLD")
	envOverrideInt(&cfg.ContentPrefixChars, "CONTENT_PREFIX_CHARS")
	envOverrideInt(&cfg.BatchSize, "BATCH_SIZE")
	envOverrideInt(&cfg.RetryBudget, "RETRY_BUDGET")
	envOverrideInt(&cfg.CooldownSeconds, "COOLDOWN_SECONDS")
	envOverrideInt(&cfg.CacheTTLMinutes, "CACHE_TTL_MINUTES")
	envOverrideInt(&cfg.CacheMaxEntries, "CACHE_MAX_ENTRIES")
	envOverrideInt(&cfg.CachePrefixChars, "CACHE_PREFIX_CHARS")
	envOverride(&cfg.SweepSchedule, "SWEEP_SCHEDULE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.GlossaryPath, "GLOSSARY_PATH")
	envOverride(&cfg.WatchDir, "WATCH_DIR")

	cfg = applyDefaults(cfg)

	// Validate ranges
	if cfg.LowConfidence < 0 || cfg.LowConfidence > 1 {
		log.Fatalf("invalid low_confidence_threshold '%f': must be between 0 and 1", cfg.LowConfidence)
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > 5 {
		log.Fatalf("invalid batch_size '%d': must be between 1 and 5", cfg.BatchSize)
	}
	if cfg.RetryBudget < 0 {
		log.Fatalf("invalid retry_budget '%d': must be >= 0", cfg.RetryBudget)
	}
	if cfg.CacheTTLMinutes < 1 {
		log.Fatalf("invalid cache_ttl_minutes '%d': must be >= 1", cfg.CacheTTLMinutes)
	}
	if cfg.CachePrefixChars < 100 {
		log.Fatalf("invalid cache_prefix_chars '%d': must be >= 100", cfg.CachePrefixChars)
	}
	if cfg.GlossaryPath != "" {
		if _, err := LoadSectionGlossary(cfg.GlossaryPath); err != nil {
			log.Fatalf("invalid glossary_path '%s': %v", cfg.GlossaryPath, err)
		}
	}

	return cfg
}

func applyDefaults(cfg Config) Config {
	if cfg.LowConfidence == 0 {
		cfg.LowConfidence = 0.5
	}
	if cfg.ContentPrefixChars == 0 {
		cfg.ContentPrefixChars = 4000
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5
	}
	if cfg.RetryBudget == 0 {
		cfg.RetryBudget = 2
	}
	if cfg.CooldownSeconds == 0 {
		cfg.CooldownSeconds = 15
	}
	if cfg.CacheTTLMinutes == 0 {
		cfg.CacheTTLMinutes = 30
	}
	if cfg.CacheMaxEntries == 0 {
		cfg.CacheMaxEntries = 500
	}
	if cfg.CachePrefixChars == 0 {
		cfg.CachePrefixChars = 2000
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "*/10 * * * *"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./redaktor.db"
	}
	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
