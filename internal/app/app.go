// Package app initializes the application: configuration, tracing,
// database, Genkit providers and the domain services, wired together
// with explicit provide* constructors.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sabaqhq/sabaq/internal/cache"
	"github.com/sabaqhq/sabaq/internal/chat"
	"github.com/sabaqhq/sabaq/internal/config"
	"github.com/sabaqhq/sabaq/internal/content"
	"github.com/sabaqhq/sabaq/internal/knowledge"
	"github.com/sabaqhq/sabaq/internal/llm"
	"github.com/sabaqhq/sabaq/internal/log"
	"github.com/sabaqhq/sabaq/internal/study"
	"github.com/sabaqhq/sabaq/internal/transform"
)

// App is the application container. Built by Setup, released by Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Content   *content.Store
	Cache     *cache.Store
	Knowledge *knowledge.Store
	Gateway   *llm.Gateway
	Pipeline  *transform.Pipeline
	Chat      *chat.Service
	Study     *study.Service

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
