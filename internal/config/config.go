package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Budget provider. BudgetID left empty picks the backend default:
	// "last-used" for rest, the demo budget for memory.
	BudgetID        string
	ProviderBaseURL string
	ProviderToken   string
	ProviderTimeout time.Duration

	// Memory backend seed
	SeedFile string

	// Snapshot cache
	MaxStaleness    time.Duration
	RefreshInterval time.Duration

	// Entity resolution
	SimilarityThreshold float64

	// Category suggestions
	MinConfidence   float64
	SuggestHalfLife time.Duration

	// Trend detection
	TrailingMonths    int
	AnomalyMultiplier float64

	// Rate limiting
	RequestsPerMinute int
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		BudgetID:        getEnv("BUDGET_ID", ""),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", ""),
		ProviderToken:   getEnv("PROVIDER_TOKEN", ""),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),

		SeedFile: getEnv("SEED_FILE", ""),

		MaxStaleness:    getEnvDuration("CACHE_MAX_STALENESS", 5*time.Minute),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),

		SimilarityThreshold: getEnvFloat("RESOLVER_SIMILARITY", 0.55),

		MinConfidence:   getEnvFloat("SUGGEST_MIN_CONFIDENCE", 0.6),
		SuggestHalfLife: getEnvDuration("SUGGEST_HALF_LIFE", 2160*time.Hour),

		TrailingMonths:    getEnvInt("TREND_MONTHS", 3),
		AnomalyMultiplier: getEnvFloat("TREND_MULTIPLIER", 1.5),

		RequestsPerMinute: getEnvInt("RATE_LIMIT_RPM", 60),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "rest"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate provider configuration if backend is rest
	if c.DataBackend == "rest" {
		if c.ProviderBaseURL == "" {
			errors = append(errors, "provider base URL is required when using rest backend")
		} else if parsedURL, err := url.Parse(c.ProviderBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid provider base URL '%s': %v", c.ProviderBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid provider base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.ProviderToken == "" {
			errors = append(errors, "provider token is required when using rest backend")
		}
	}

	if c.ProviderTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid provider timeout %v: must be at least 1 second", c.ProviderTimeout))
	} else if c.ProviderTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid provider timeout %v: must be at most 5 minutes", c.ProviderTimeout))
	}

	// Validate seed file if provided
	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	// Validate cache configuration
	if c.MaxStaleness < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache max staleness %v: must be at least 1 second", c.MaxStaleness))
	} else if c.MaxStaleness > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache max staleness %v: must be at most 24 hours", c.MaxStaleness))
	}

	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	// Validate resolver configuration
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid resolver similarity %g: must be in (0, 1]", c.SimilarityThreshold))
	}

	// Validate suggestion configuration
	if c.MinConfidence <= 0 || c.MinConfidence > 1 {
		errors = append(errors, fmt.Sprintf("invalid suggestion min confidence %g: must be in (0, 1]", c.MinConfidence))
	}
	if c.SuggestHalfLife <= 0 {
		errors = append(errors, fmt.Sprintf("invalid suggestion half-life %v: must be positive", c.SuggestHalfLife))
	}

	// Validate trend configuration
	if c.TrailingMonths < 1 || c.TrailingMonths > 12 {
		errors = append(errors, fmt.Sprintf("invalid trend months %d: must be between 1 and 12", c.TrailingMonths))
	}
	if c.AnomalyMultiplier <= 1 {
		errors = append(errors, fmt.Sprintf("invalid trend multiplier %g: must be greater than 1", c.AnomalyMultiplier))
	}

	// Validate rate limiting
	if c.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RequestsPerMinute))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
