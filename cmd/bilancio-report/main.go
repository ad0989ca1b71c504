// Command bilancio-report fetches one snapshot and writes the analyzer
// suite's findings for a month as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"bilancio/internal/analyzer"
	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

const upcomingWindow = 14 * 24 * time.Hour

type report struct {
	BudgetID    string                      `json:"budget_id"`
	Month       core.Month                  `json:"month"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Cursor      string                      `json:"cursor"`
	Overspent   []analyzer.Overspend        `json:"overspent"`
	Trends      []analyzer.Trend            `json:"trends"`
	Forecasts   []analyzer.Forecast         `json:"forecasts"`
	CreditCards []analyzer.CreditCardStatus `json:"credit_cards"`
	Upcoming    []core.ScheduledTransaction `json:"upcoming"`
}

func main() {
	monthFlag := flag.String("month", "", "report month as 2006-01 (default: current)")
	backendFlag := flag.String("backend", "", "data backend: rest or memory (default: $DATA_BACKEND)")
	seedFlag := flag.String("seed", "", "seed file for the memory backend")
	prettyFlag := flag.Bool("pretty", false, "indent the JSON output")
	flag.Parse()

	// The report goes to stdout; everything else goes to stderr.
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	logCfg.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logCfg.Level})
	logger := log.New(logCfg)
	log.SetDefault(logger)

	cli.LoadEnvFile()
	cfg := config.Load()
	if *backendFlag != "" {
		cfg.DataBackend = *backendFlag
	}
	if *seedFlag != "" {
		cfg.SeedFile = *seedFlag
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, "configuration validation failed", err)
	}

	month := core.MonthOf(time.Now())
	if *monthFlag != "" {
		var err error
		if month, err = core.ParseMonth(*monthFlag); err != nil {
			fatal(logger, "invalid month flag", err)
		}
	}

	if err := run(cfg, month, *prettyFlag, logger); err != nil {
		fatal(logger, "report failed", err)
	}
}

func run(cfg *config.Config, month core.Month, pretty bool, logger *log.Logger) error {
	result, err := backend.NewFactory(logger).Create(cfg)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	defer func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout+5*time.Second)
	defer cancel()

	snap, err := cache.New(result.Provider, result.BudgetID, logger).ForceRefresh(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	now := time.Now()
	rep := report{
		BudgetID:    snap.BudgetID,
		Month:       month,
		GeneratedAt: now,
		Cursor:      snap.Cursor,
		Overspent:   analyzer.DetectOverspending(snap),
		Trends: analyzer.DetectTrends(snap, month, analyzer.TrendConfig{
			TrailingMonths:    cfg.TrailingMonths,
			AnomalyMultiplier: cfg.AnomalyMultiplier,
		}),
		Forecasts:   analyzer.ForecastMonth(snap, month, now),
		CreditCards: analyzer.AnalyzeCreditCards(snap),
		Upcoming:    upcoming(snap, now),
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rep)
}

// upcoming lists scheduled transactions due within the window, soonest
// first. Overdue items count as upcoming.
func upcoming(snap *core.Snapshot, now time.Time) []core.ScheduledTransaction {
	horizon := core.DateOf(now.Add(upcomingWindow))
	out := make([]core.ScheduledTransaction, 0)
	for _, st := range snap.Scheduled {
		if st.Deleted || st.DateNext.IsZero() || st.DateNext.After(horizon.Time) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateNext.Equal(out[j].DateNext.Time) {
			return out[i].DateNext.Before(out[j].DateNext.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err.Error())
	os.Exit(1)
}
