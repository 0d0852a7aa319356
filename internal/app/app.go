// Package app provides application initialization and dependency injection.
//
// App is the core container that wires the chat pipeline together: Genkit,
// the database pool, the document store, the intent classifier, conversation
// memory, and the chat service.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mymr-ai/mymr/internal/chat"
	"github.com/mymr-ai/mymr/internal/config"
	"github.com/mymr-ai/mymr/internal/memory"
	"github.com/mymr-ai/mymr/internal/retrieval"
)

// App is the core application container.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Memory    *memory.Store
	Documents *retrieval.Store
	Chat      *chat.Service

	// Lifecycle management
	otelCleanup func()
	dbCleanup   func()
	cancel      context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	slog.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		slog.Info("database pool closed")
	}

	// Flush pending spans last so the teardown itself is traced.
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
