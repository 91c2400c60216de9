// Package api is the HTTP surface of the agent server: frontend
// configuration, chat, MCP server registry CRUD, and session management.
package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jovyan/nbagent/internal/chat"
	"github.com/jovyan/nbagent/internal/config"
	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/mcp"
	"github.com/jovyan/nbagent/internal/session"
)

// ServerConfig configures the API server.
type ServerConfig struct {
	Logger       log.Logger
	Config       *config.Config  // Required
	Registry     *mcp.Registry   // Required
	SessionStore *session.Store  // Required
	ChatFlow     *chat.Flow      // Optional: nil disables chat endpoints
	Prober       *mcp.Prober     // Optional: nil disables tool discovery
	Host         *mcp.Host       // Optional: nil disables runtime attach/detach
	DB           *sql.DB         // Optional: nil disables readiness DB ping
	APIToken     string          // Optional: empty disables auth
	CORSOrigins  []string
	TrustProxy   bool
	RateBurst    int // 0 = default 60
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	// Frontend bootstrap
	cfgHandler := &configureHandler{cfg: cfg.Config, registry: cfg.Registry, logger: logger}
	mux.HandleFunc("GET /api/v1/configure", cfgHandler.get)

	// MCP server registry CRUD
	mh := &mcpHandler{registry: cfg.Registry, prober: cfg.Prober, host: cfg.Host, logger: logger}
	mux.HandleFunc("GET /api/v1/mcp/servers", mh.list)
	mux.HandleFunc("POST /api/v1/mcp/servers", mh.create)
	mux.HandleFunc("PUT /api/v1/mcp/servers/{id}", mh.update)
	mux.HandleFunc("DELETE /api/v1/mcp/servers/{id}", mh.remove)

	// Sessions
	sh := &sessionHandler{store: cfg.SessionStore, logger: logger}
	mux.HandleFunc("GET /api/v1/sessions", sh.list)
	mux.HandleFunc("POST /api/v1/sessions", sh.create)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.messages)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.remove)

	// Chat
	ch := &chatHandler{flow: cfg.ChatFlow, logger: logger}
	ch.registerRoutes(mux)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> CORS -> RateLimit -> Auth -> Routes
	// CORS runs before RateLimit so preflight OPTIONS gets proper headers.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.APIToken, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.DB, cfg.Host, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
