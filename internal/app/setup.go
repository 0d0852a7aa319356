package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/mymr-ai/mymr/db"
	"github.com/mymr-ai/mymr/internal/chat"
	"github.com/mymr-ai/mymr/internal/config"
	"github.com/mymr-ai/mymr/internal/intent"
	"github.com/mymr-ai/mymr/internal/memory"
	"github.com/mymr-ai/mymr/internal/observability"
	"github.com/mymr-ai/mymr/internal/retrieval"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Memory = memory.NewStore(cfg.MaxExchanges)
	a.Documents = retrieval.NewStore(pool, embedder, logger)

	svc, err := provideChatService(a, g, logger)
	if err != nil {
		return nil, err
	}
	a.Chat = svc

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit initialization.
// Must be called before provideGenkit to ensure TracerProvider is ready.
func provideOtelShutdown(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		AgentHost:   cfg.Tracing.AgentHost,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		slog.Warn("setting up tracing", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the Google AI plugin.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	slog.Info("initialized Genkit", "model", cfg.FullModelName())
	return g, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Every connection registers pgvector types so embeddings scan natively.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideChatService assembles the chat orchestrator from the shared parts.
// Pricing falls back to the built-in rate table when the config carries no
// explicit per-token prices.
func provideChatService(a *App, g *genkit.Genkit, logger *slog.Logger) (*chat.Service, error) {
	cfg := a.Config

	pricing := chat.Pricing{
		InputPerMTok:  cfg.PriceInputPerMTok,
		OutputPerMTok: cfg.PriceOutputPerMTok,
	}
	if pricing.InputPerMTok == 0 && pricing.OutputPerMTok == 0 {
		if known, ok := chat.PricingFor(cfg.FullModelName()); ok {
			pricing = known
		}
	}

	svc, err := chat.New(chat.Config{
		Memory:     a.Memory,
		Classifier: intent.New(g, cfg.FullModelName(), logger),
		Retriever:  a.Documents,
		Configs:    retrieval.NewConfigBuilder(cfg.ChunksToFetch, cfg.RerankResults, cfg.RerankModelID),
		Generator:  chat.NewGenkitGenerator(g, cfg.FullModelName(), cfg.MaxTokens, float64(cfg.Temperature)),
		Logger:     logger,
		ModelName:  cfg.FullModelName(),
		Pricing:    pricing,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat service: %w", err)
	}

	return svc, nil
}
