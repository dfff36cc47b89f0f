package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/deal-scout/internal/config"
	"github.com/sells-group/deal-scout/internal/feed"
	"github.com/sells-group/deal-scout/internal/memory"
	"github.com/sells-group/deal-scout/internal/messenger"
	"github.com/sells-group/deal-scout/internal/planner"
	"github.com/sells-group/deal-scout/internal/pricer"
	"github.com/sells-group/deal-scout/internal/scanner"
	"github.com/sells-group/deal-scout/pkg/anthropic"
	"github.com/sells-group/deal-scout/pkg/modal"
	"github.com/sells-group/deal-scout/pkg/pushover"
	"github.com/sells-group/deal-scout/pkg/vectorstore"
)

// env holds the wired pipeline components for a command invocation.
type env struct {
	Planner *planner.Planner
	Store   memory.Store
}

// initEnv wires every component from config.
func initEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	store, err := memory.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "open memory store")
	}

	ai := anthropic.NewClient(cfg.Anthropic.Key)

	source := feed.NewSource(cfg.Feeds.URLs, cfg.Feeds.MaxPerFeed,
		feed.WithDetailFetch(cfg.Feeds.FetchDetails),
		feed.WithRequestsPerSec(cfg.Feeds.RequestsPerSec),
	)

	selector := scanner.New(ai, cfg.Anthropic, cfg.Scanner.MaxDeals)

	rag := pricer.NewRAG(ai,
		vectorstore.NewClient(vectorstore.WithBaseURL(cfg.VectorStore.BaseURL)),
		cfg.Anthropic, cfg.VectorStore.TopK)
	standalone := pricer.NewStandalone(modal.NewClient(cfg.Modal.BaseURL))
	ensemble := pricer.NewEnsemble(rag, standalone,
		cfg.Pricing.RAGWeight, cfg.Pricing.ModelWeight)

	gate := messenger.New(ai,
		pushover.NewClient(cfg.Pushover.User, cfg.Pushover.Token),
		cfg.Anthropic, cfg.Messenger.Threshold, cfg.Messenger.Temperature)

	return &env{
		Planner: planner.New(source, selector, ensemble, gate, store, cfg.Pricing.MaxConcurrent),
		Store:   store,
	}, nil
}

// Close releases the store.
func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("closing memory store", zap.Error(err))
	}
}
