package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:                "8080",
		DataBackend:         "memory",
		ProviderTimeout:     10 * time.Second,
		MaxStaleness:        5 * time.Minute,
		RefreshInterval:     5 * time.Minute,
		SimilarityThreshold: 0.55,
		MinConfidence:       0.6,
		SuggestHalfLife:     2160 * time.Hour,
		TrailingMonths:      3,
		AnomalyMultiplier:   1.5,
		RequestsPerMinute:   60,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid memory backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid rest backend config",
			mutate: func(c *Config) {
				c.DataBackend = "rest"
				c.ProviderBaseURL = "https://api.example.com/v1"
				c.ProviderToken = "tok-123"
			},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range low",
			mutate:      func(c *Config) { c.Port = "0" },
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sqlite" },
			wantErr:     true,
			errorString: "invalid data backend 'sqlite': must be one of [memory rest]",
		},
		{
			name: "rest backend missing base URL",
			mutate: func(c *Config) {
				c.DataBackend = "rest"
				c.ProviderToken = "tok-123"
			},
			wantErr:     true,
			errorString: "provider base URL is required when using rest backend",
		},
		{
			name: "rest backend invalid base URL scheme",
			mutate: func(c *Config) {
				c.DataBackend = "rest"
				c.ProviderBaseURL = "ftp://api.example.com"
				c.ProviderToken = "tok-123"
			},
			wantErr:     true,
			errorString: "invalid provider base URL scheme 'ftp': must be 'http' or 'https'",
		},
		{
			name: "rest backend missing token",
			mutate: func(c *Config) {
				c.DataBackend = "rest"
				c.ProviderBaseURL = "https://api.example.com/v1"
			},
			wantErr:     true,
			errorString: "provider token is required when using rest backend",
		},
		{
			name:        "provider timeout too short",
			mutate:      func(c *Config) { c.ProviderTimeout = 100 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid provider timeout 100ms: must be at least 1 second",
		},
		{
			name:        "provider timeout too long",
			mutate:      func(c *Config) { c.ProviderTimeout = 10 * time.Minute },
			wantErr:     true,
			errorString: "invalid provider timeout 10m0s: must be at most 5 minutes",
		},
		{
			name:        "cache staleness too short",
			mutate:      func(c *Config) { c.MaxStaleness = 500 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid cache max staleness 500ms: must be at least 1 second",
		},
		{
			name:        "cache staleness too long",
			mutate:      func(c *Config) { c.MaxStaleness = 25 * time.Hour },
			wantErr:     true,
			errorString: "invalid cache max staleness 25h0m0s: must be at most 24 hours",
		},
		{
			name:        "refresh interval too short",
			mutate:      func(c *Config) { c.RefreshInterval = 10 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid refresh interval 10ms: must be at least 1 second",
		},
		{
			name:        "resolver similarity zero",
			mutate:      func(c *Config) { c.SimilarityThreshold = 0 },
			wantErr:     true,
			errorString: "invalid resolver similarity 0: must be in (0, 1]",
		},
		{
			name:        "resolver similarity above one",
			mutate:      func(c *Config) { c.SimilarityThreshold = 1.5 },
			wantErr:     true,
			errorString: "invalid resolver similarity 1.5: must be in (0, 1]",
		},
		{
			name:        "suggestion confidence out of range",
			mutate:      func(c *Config) { c.MinConfidence = 1.2 },
			wantErr:     true,
			errorString: "invalid suggestion min confidence 1.2: must be in (0, 1]",
		},
		{
			name:        "suggestion half-life zero",
			mutate:      func(c *Config) { c.SuggestHalfLife = 0 },
			wantErr:     true,
			errorString: "invalid suggestion half-life 0s: must be positive",
		},
		{
			name:        "trend months too small",
			mutate:      func(c *Config) { c.TrailingMonths = 0 },
			wantErr:     true,
			errorString: "invalid trend months 0: must be between 1 and 12",
		},
		{
			name:        "trend months too large",
			mutate:      func(c *Config) { c.TrailingMonths = 13 },
			wantErr:     true,
			errorString: "invalid trend months 13: must be between 1 and 12",
		},
		{
			name:        "trend multiplier not above one",
			mutate:      func(c *Config) { c.AnomalyMultiplier = 1.0 },
			wantErr:     true,
			errorString: "invalid trend multiplier 1: must be greater than 1",
		},
		{
			name:        "rate limit too small",
			mutate:      func(c *Config) { c.RequestsPerMinute = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0: must be at least 1 request per minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestConfig_ValidateSeedFile(t *testing.T) {
	tmpDir := t.TempDir()
	seedFile := filepath.Join(tmpDir, "seed.json")
	if err := os.WriteFile(seedFile, []byte(`{"budget_id":"demo"}`), 0644); err != nil {
		t.Fatalf("Failed to create test seed file: %v", err)
	}

	config := validConfig()
	config.SeedFile = seedFile
	if err := config.Validate(); err != nil {
		t.Errorf("Config.Validate() error = %v, want nil for existing seed file", err)
	}

	config.SeedFile = filepath.Join(tmpDir, "missing.json")
	err := config.Validate()
	if err == nil {
		t.Fatal("Config.Validate() error = nil, want error for missing seed file")
	}
	if !strings.Contains(err.Error(), "seed file does not exist") {
		t.Errorf("Config.Validate() error = %v, want seed file error", err)
	}
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"PORT":                   os.Getenv("PORT"),
		"DATA_BACKEND":           os.Getenv("DATA_BACKEND"),
		"BUDGET_ID":              os.Getenv("BUDGET_ID"),
		"PROVIDER_BASE_URL":      os.Getenv("PROVIDER_BASE_URL"),
		"PROVIDER_TOKEN":         os.Getenv("PROVIDER_TOKEN"),
		"PROVIDER_TIMEOUT":       os.Getenv("PROVIDER_TIMEOUT"),
		"SEED_FILE":              os.Getenv("SEED_FILE"),
		"CACHE_MAX_STALENESS":    os.Getenv("CACHE_MAX_STALENESS"),
		"REFRESH_INTERVAL":       os.Getenv("REFRESH_INTERVAL"),
		"RESOLVER_SIMILARITY":    os.Getenv("RESOLVER_SIMILARITY"),
		"SUGGEST_MIN_CONFIDENCE": os.Getenv("SUGGEST_MIN_CONFIDENCE"),
		"SUGGEST_HALF_LIFE":      os.Getenv("SUGGEST_HALF_LIFE"),
		"TREND_MONTHS":           os.Getenv("TREND_MONTHS"),
		"TREND_MULTIPLIER":       os.Getenv("TREND_MULTIPLIER"),
		"RATE_LIMIT_RPM":         os.Getenv("RATE_LIMIT_RPM"),
	}

	// Clean environment
	for key := range originalVars {
		os.Unsetenv(key)
	}

	// Restore env vars at end of test
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8080" {
			t.Errorf("Load() Port = %v, want 8080", cfg.Port)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("Load() DataBackend = %v, want memory", cfg.DataBackend)
		}
		if cfg.BudgetID != "" {
			t.Errorf("Load() BudgetID = %v, want empty", cfg.BudgetID)
		}
		if cfg.ProviderTimeout != 10*time.Second {
			t.Errorf("Load() ProviderTimeout = %v, want 10s", cfg.ProviderTimeout)
		}
		if cfg.MaxStaleness != 5*time.Minute {
			t.Errorf("Load() MaxStaleness = %v, want 5m", cfg.MaxStaleness)
		}
		if cfg.RefreshInterval != 5*time.Minute {
			t.Errorf("Load() RefreshInterval = %v, want 5m", cfg.RefreshInterval)
		}
		if cfg.SimilarityThreshold != 0.55 {
			t.Errorf("Load() SimilarityThreshold = %v, want 0.55", cfg.SimilarityThreshold)
		}
		if cfg.MinConfidence != 0.6 {
			t.Errorf("Load() MinConfidence = %v, want 0.6", cfg.MinConfidence)
		}
		if cfg.SuggestHalfLife != 2160*time.Hour {
			t.Errorf("Load() SuggestHalfLife = %v, want 2160h", cfg.SuggestHalfLife)
		}
		if cfg.TrailingMonths != 3 {
			t.Errorf("Load() TrailingMonths = %v, want 3", cfg.TrailingMonths)
		}
		if cfg.AnomalyMultiplier != 1.5 {
			t.Errorf("Load() AnomalyMultiplier = %v, want 1.5", cfg.AnomalyMultiplier)
		}
		if cfg.RequestsPerMinute != 60 {
			t.Errorf("Load() RequestsPerMinute = %v, want 60", cfg.RequestsPerMinute)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("DATA_BACKEND", "rest")
		os.Setenv("BUDGET_ID", "b-42")
		os.Setenv("PROVIDER_BASE_URL", "https://api.example.com/v1")
		os.Setenv("PROVIDER_TOKEN", "tok-xyz")
		os.Setenv("PROVIDER_TIMEOUT", "30s")
		os.Setenv("CACHE_MAX_STALENESS", "90s")
		os.Setenv("RESOLVER_SIMILARITY", "0.7")
		os.Setenv("TREND_MONTHS", "6")
		os.Setenv("RATE_LIMIT_RPM", "120")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DataBackend != "rest" {
			t.Errorf("Load() DataBackend = %v, want rest", cfg.DataBackend)
		}
		if cfg.BudgetID != "b-42" {
			t.Errorf("Load() BudgetID = %v, want b-42", cfg.BudgetID)
		}
		if cfg.ProviderBaseURL != "https://api.example.com/v1" {
			t.Errorf("Load() ProviderBaseURL = %v", cfg.ProviderBaseURL)
		}
		if cfg.ProviderToken != "tok-xyz" {
			t.Errorf("Load() ProviderToken = %v", cfg.ProviderToken)
		}
		if cfg.ProviderTimeout != 30*time.Second {
			t.Errorf("Load() ProviderTimeout = %v, want 30s", cfg.ProviderTimeout)
		}
		if cfg.MaxStaleness != 90*time.Second {
			t.Errorf("Load() MaxStaleness = %v, want 90s", cfg.MaxStaleness)
		}
		if cfg.SimilarityThreshold != 0.7 {
			t.Errorf("Load() SimilarityThreshold = %v, want 0.7", cfg.SimilarityThreshold)
		}
		if cfg.TrailingMonths != 6 {
			t.Errorf("Load() TrailingMonths = %v, want 6", cfg.TrailingMonths)
		}
		if cfg.RequestsPerMinute != 120 {
			t.Errorf("Load() RequestsPerMinute = %v, want 120", cfg.RequestsPerMinute)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		os.Setenv("PROVIDER_TIMEOUT", "soon")
		os.Setenv("TREND_MONTHS", "several")
		os.Setenv("RESOLVER_SIMILARITY", "high")

		cfg := Load()

		if cfg.ProviderTimeout != 10*time.Second {
			t.Errorf("Load() ProviderTimeout = %v, want 10s (default for invalid input)", cfg.ProviderTimeout)
		}
		if cfg.TrailingMonths != 3 {
			t.Errorf("Load() TrailingMonths = %v, want 3 (default for invalid input)", cfg.TrailingMonths)
		}
		if cfg.SimilarityThreshold != 0.55 {
			t.Errorf("Load() SimilarityThreshold = %v, want 0.55 (default for invalid input)", cfg.SimilarityThreshold)
		}
	})
}
