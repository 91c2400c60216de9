package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/mcp"
)

// health is a liveness probe. Returns 200 with {"status":"ok"}.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readyResponse is the /ready payload. MCP lists the connection status of
// each attached MCP server when a host is running.
type readyResponse struct {
	Status string            `json:"status"`
	MCP    map[string]string `json:"mcp,omitempty"`
}

// readiness reports whether the database is reachable and the connection
// states of the MCP host. Nil dependencies degrade to a plain ok.
func readiness(db *sql.DB, host *mcp.Host, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyResponse{Status: "ok"}

		if host != nil {
			states := host.States()
			resp.MCP = make(map[string]string, len(states))
			for name, state := range states {
				resp.MCP[name] = string(state.Status)
			}
		}

		if db != nil {
			ctx, cancel := contextWithTimeout(r, 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				logger.Warn("readiness check failed", "error", err)
				resp.Status = "unavailable"
				writeJSON(w, http.StatusServiceUnavailable, resp, logger)
				return
			}
		}

		writeJSON(w, http.StatusOK, resp, logger)
	}
}
