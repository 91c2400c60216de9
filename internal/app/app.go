// Package app assembles the application: configuration, tracing, Genkit,
// the local database, the MCP host, and the agent.
package app

import (
	"database/sql"

	"github.com/firebase/genkit/go/genkit"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/chat"
	"github.com/jovyan/nbagent/internal/config"
	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/mcp"
	"github.com/jovyan/nbagent/internal/session"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit       *genkit.Genkit
	DB           *sql.DB
	SessionStore *session.Store
	Registry     *mcp.Registry
	Host         *mcp.Host
	Agent        *agent.Agent
	Chat         *chat.Chat
	Flow         *chat.Flow
	Prober       *mcp.Prober

	otelCleanup func()
}

// Close releases all resources. Safe to call on a partially initialized
// App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}

	var firstErr error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return firstErr
}
