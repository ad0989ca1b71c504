package backend

import (
	"fmt"

	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/provider/memory"
	"bilancio/internal/provider/rest"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a backend factory.
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the provider the config names.
func (f *DefaultFactory) Create(cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case RestBackend:
		return f.createRest(cfg)
	default:
		return f.createMemory(cfg)
	}
}

func (f *DefaultFactory) createRest(cfg *config.Config) (*Result, error) {
	client, err := rest.New(rest.Config{
		BaseURL: cfg.ProviderBaseURL,
		Token:   cfg.ProviderToken,
		Timeout: cfg.ProviderTimeout,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("rest backend: %w", err)
	}

	budgetID := cfg.BudgetID
	if budgetID == "" {
		budgetID = DefaultRestBudgetID
	}

	f.logger.Info("rest backend initialized",
		"base_url", cfg.ProviderBaseURL,
		log.FieldBudgetID, budgetID)
	return &Result{Provider: client, BudgetID: budgetID}, nil
}

func (f *DefaultFactory) createMemory(cfg *config.Config) (*Result, error) {
	var (
		store *memory.Store
		err   error
	)
	if cfg.SeedFile != "" {
		store, err = memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("memory backend: %w", err)
		}
	} else {
		store = memory.NewDemoStore()
	}

	budgetID := cfg.BudgetID
	if budgetID == "" {
		budgetID = store.BudgetID()
	}

	f.logger.Info("memory backend initialized",
		"seed_file", cfg.SeedFile,
		log.FieldBudgetID, budgetID)
	return &Result{Provider: store, BudgetID: budgetID}, nil
}
