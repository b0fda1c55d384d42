package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sabaqhq/sabaq/db"
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

// Setup builds the application container. On error everything already
// initialized is cleaned up before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Gateway, err = provideGateway(g, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Content = content.New(os.DirFS(cfg.DocsDir), logger)
	a.Cache = cache.New(cache.NewPGXQuerier(pool), logger)
	a.Knowledge = knowledge.New(knowledge.NewPGXQuerier(pool), a.Embedder, logger)

	a.Pipeline, err = transform.NewPipeline(
		a.Cache,
		a.Content,
		a.Gateway,
		transform.PromptBuilder{MaxSourceBytes: cfg.MaxSourceBytes},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	a.Chat, err = chat.New(chat.Config{
		Retriever: a.Knowledge,
		Gateway:   a.Gateway,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building chat service: %w", err)
	}

	a.Study, err = study.New(a.Gateway, logger)
	if err != nil {
		return nil, fmt.Errorf("building study service: %w", err)
	}

	return a, nil
}

// provideOtelShutdown exports traces over OTLP HTTP to a local agent.
// An empty TraceAgentHost disables tracing. Must run before
// provideGenkit so the TracerProvider is ready.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.TraceAgentHost == "" {
		return func() {}
	}

	// os.Setenv is not concurrent-safe, but this runs exactly once
	// during startup before any goroutines are spawned.
	if cfg.TraceServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.TraceServiceName)
	}
	if cfg.TraceEnvironment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.TraceEnvironment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.TraceAgentHost),
		otlptracehttp.WithInsecure(), // local agent, no TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"agent", cfg.TraceAgentHost,
		"service", cfg.TraceServiceName,
		"environment", cfg.TraceEnvironment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the connection pool.
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

// provideGenkit initializes Genkit with both provider plugins so the
// gateway can fall over between them.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit
	if cfg.SecondaryProvider == config.ProviderOpenAI {
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}, &openai.OpenAI{}))
	} else {
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	}
	if g == nil {
		return nil, errors.New("initializing genkit")
	}

	logger.Info("initialized genkit",
		"primary_model", cfg.PrimaryModel,
		"secondary_model", cfg.SecondaryModel,
	)
	return g, nil
}

// provideGateway builds the ordered provider chain.
func provideGateway(g *genkit.Genkit, cfg *config.Config, logger log.Logger) (*llm.Gateway, error) {
	providers := []llm.Provider{llm.NewGenkitModel(g, cfg.PrimaryModel)}
	if cfg.SecondaryProvider != "" && cfg.SecondaryModel != "" {
		providers = append(providers, llm.NewGenkitModel(g, cfg.SecondaryModel))
	}

	timeout := time.Duration(cfg.GenerateTimeoutSeconds) * time.Second
	gateway, err := llm.NewGateway(providers, timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("building llm gateway: %w", err)
	}
	return gateway, nil
}
