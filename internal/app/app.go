// Package app wires the consultant bot together: price catalog, knowledge
// base, dialogue engine, transport and command registry.
package app

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/consultbot/core/config"
	"github.com/m3rciful/consultbot/core/dialog"
	coretelegram "github.com/m3rciful/consultbot/core/telegram"
	"github.com/m3rciful/consultbot/core/telegram/router"
	tgsender "github.com/m3rciful/consultbot/core/telegram/sender"
	"github.com/m3rciful/consultbot/internal/flows"
	"github.com/m3rciful/consultbot/internal/knowledge"
	"github.com/m3rciful/consultbot/internal/pricing"

	"github.com/jmoiron/sqlx"
)

// Options carries the external resources the application depends on.
type Options struct {
	Config *coreconfig.Config
	// DB is required when the pricing source is postgres; nil otherwise.
	DB *sqlx.DB
}

// Build assembles the bot and returns run options for telegram.RunTelegram.
func Build(ctx context.Context, opts Options) (coretelegram.RunOptions, error) {
	cfg := opts.Config
	if cfg == nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: nil config")
	}

	catalog, err := loadCatalog(ctx, cfg, opts.DB)
	if err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: load catalog: %w", err)
	}

	base := knowledge.New(knowledge.Config{
		APIKey:         cfg.Knowledge.APIKey,
		BaseURL:        cfg.Knowledge.BaseURL,
		ChatModel:      cfg.Knowledge.ChatModel,
		EmbeddingModel: cfg.Knowledge.EmbeddingModel,
		Temperature:    cfg.Knowledge.Temperature,
		TopK:           cfg.Knowledge.TopK,
	})
	if cfg.Knowledge.CorpusDir != "" {
		if err := base.LoadCorpusDir(ctx, cfg.Knowledge.CorpusDir); err != nil {
			return coretelegram.RunOptions{}, fmt.Errorf("app: load corpus: %w", err)
		}
	}

	dispatcher := tgsender.NewDispatcher(tgsender.Options{})
	transport := NewTransport(dispatcher)

	engine, err := flows.NewEngine(flows.Deps{
		Transport: transport,
		Lifecycle: dialog.NewLifecycle(transport),
		Catalog:   catalog,
		Knowledge: base,
	})
	if err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: build engine: %w", err)
	}
	conv := NewConversation(engine)

	reg := coretelegram.NewRegistry()
	registerCommands(reg, conv)

	routes := []coretelegram.Route{
		router.CallbackRoute(conv, reg, router.CallbackOptions{}),
	}
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: cfg.Telegram.AdminID,
	})...)
	routes = append(routes, router.TextRoutes(conv, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Dispatcher:  dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			transport.Bind(rt.Bot)
			return nil
		},
	}, nil
}

func loadCatalog(ctx context.Context, cfg *coreconfig.Config, db *sqlx.DB) (*pricing.Catalog, error) {
	switch cfg.Pricing.Source {
	case coreconfig.PricingSourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("pricing source is postgres but no database is configured")
		}
		return pricing.LoadPostgres(ctx, db)
	default:
		return pricing.LoadFile(cfg.Pricing.CatalogPath)
	}
}
