package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/pipeline"
	"github.com/afriplan/takeoff-cli/internal/pricing"
	"github.com/afriplan/takeoff-cli/internal/store"
	"github.com/afriplan/takeoff-cli/pkg/anthropic"
)

// initStore opens the configured store backend and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadRateBook resolves the pricing rate book: configured YAML book if any,
// otherwise the built-in ZAR defaults, with the contractor XLSX price list
// layered on top when configured.
func loadRateBook() (*pricing.RateBook, error) {
	book := pricing.DefaultRateBook()
	if cfg.Pricing.RateBookPath != "" {
		loaded, err := pricing.Load(cfg.Pricing.RateBookPath)
		if err != nil {
			return nil, eris.Wrap(err, "load rate book")
		}
		book = loaded
	}

	if cfg.Pricing.OverridesPath != "" {
		overrides, err := pricing.LoadXLSXOverrides(cfg.Pricing.OverridesPath)
		if err != nil {
			return nil, eris.Wrap(err, "load price overrides")
		}
		book = book.WithOverrides(overrides)
		zap.L().Info("contractor price list loaded",
			zap.String("path", cfg.Pricing.OverridesPath),
			zap.Int("overrides", len(overrides)),
		)
	}
	return book, nil
}

// pipelineEnv bundles the pipeline with its closable dependencies.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Store    store.Store
}

func (e *pipelineEnv) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

// initPipeline wires the store, provider client and rate book into a
// ready-to-run pipeline.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	book, err := loadRateBook()
	if err != nil {
		st.Close()
		return nil, err
	}

	client := anthropic.NewClient(cfg.Anthropic.Key,
		anthropic.WithRateLimit(cfg.Anthropic.RateLimitRPS))

	return &pipelineEnv{
		Pipeline: pipeline.New(cfg, st, client, book),
		Store:    st,
	}, nil
}
