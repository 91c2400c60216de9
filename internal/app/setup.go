package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/chat"
	"github.com/jovyan/nbagent/internal/config"
	"github.com/jovyan/nbagent/internal/database"
	"github.com/jovyan/nbagent/internal/jupyter"
	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/mcp"
	"github.com/jovyan/nbagent/internal/security"
	"github.com/jovyan/nbagent/internal/session"
	"github.com/jovyan/nbagent/internal/tools"
)

// Options tunes optional parts of Setup.
type Options struct {
	// SkipJupyter leaves the Jupyter MCP connection out. Used by CLI
	// commands that only read local notebook files.
	SkipJupyter bool

	// SkipFlow leaves the chat flow undefined. Used by CLI commands that
	// call the agent directly.
	SkipFlow bool
}

// Setup initializes the application. Call Close on the returned App.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger, opts Options) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
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

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	db, err := provideDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.SessionStore = session.New(db, cfg.MaxHistoryMessages, logger)

	registry, err := mcp.NewRegistry(cfg.RegistryPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("loading MCP registry: %w", err)
	}
	a.Registry = registry
	a.Prober = mcp.NewProber(nil, logger)

	agentTools, host, err := provideTools(ctx, a, opts)
	if err != nil {
		return nil, err
	}
	a.Host = host

	ag, err := agent.New(agent.Config{
		Genkit:    g,
		Logger:    logger,
		Tools:     agentTools,
		ModelName: cfg.FullModelName(),
		MaxTurns:  cfg.MaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	c, err := chat.New(ag, a.SessionStore, logger)
	if err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	a.Chat = c

	if !opts.SkipFlow {
		a.Flow = chat.NewFlow(g, c)
	}

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export when an endpoint is
// configured. Must run before Genkit initialization so the TracerProvider
// is ready.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	tc := cfg.Trace
	if tc.Endpoint == "" {
		return func() {}
	}

	// Genkit's TracerProvider picks these up at Init.
	// SAFETY: called once during startup, before goroutines are spawned.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(tc.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", tc.Endpoint,
		"service", tc.ServiceName,
	)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama needs explicit model registration.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)

	default: // google
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with google provider")
		}
		logger.Info("initialized genkit with google provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideDatabase opens the SQLite database and applies migrations.
func provideDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// provideTools registers the builtin tools and connects the MCP host,
// returning the combined tool set. MCP connection failures degrade to the
// builtin tools only.
func provideTools(ctx context.Context, a *App, opts Options) ([]ai.Tool, *mcp.Host, error) {
	pathVal, err := security.NewPathValidator("")
	if err != nil {
		return nil, nil, fmt.Errorf("creating path validator: %w", err)
	}

	agentTools, err := tools.Register(a.Genkit, pathVal, a.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("registering builtin tools: %w", err)
	}

	var clientConfigs []mcp.ClientConfig
	if !opts.SkipJupyter && a.Config.JupyterURL != "" {
		clientConfigs = append(clientConfigs, jupyter.ClientConfig(a.Config.JupyterURL, a.Config.JupyterToken))
	}
	for _, server := range a.Registry.Enabled() {
		clientConfigs = append(clientConfigs, mcp.HTTPClientConfig(server.Name, server.URL, ""))
	}

	// The host is created even with no initial servers so entries added
	// through the API can attach at runtime.
	host, err := mcp.NewHost(ctx, a.Genkit, clientConfigs, a.Logger)
	if err != nil {
		a.Logger.Warn("MCP host unavailable, continuing with builtin tools", "error", err)
		return agentTools, nil, nil
	}

	hostTools, err := host.Tools(ctx)
	if err != nil {
		a.Logger.Warn("MCP tools unavailable", "error", err)
		return agentTools, host, nil
	}

	return append(agentTools, hostTools...), host, nil
}
