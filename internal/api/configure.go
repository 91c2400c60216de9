package api

import (
	"net/http"

	"github.com/jovyan/nbagent/internal/config"
	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/mcp"
)

// configureHandler serves the frontend bootstrap configuration: which
// models are usable with the present API keys, the builtin tools, and the
// registered MCP servers.
type configureHandler struct {
	cfg      *config.Config
	registry *mcp.Registry
	logger   log.Logger
}

// FrontendConfig is the configure endpoint payload. Field names match the
// chat sidebar's wire format.
type FrontendConfig struct {
	Models       []config.AIModel     `json:"models"`
	DefaultModel string               `json:"defaultModel,omitempty"`
	BuiltinTools []config.BuiltinTool `json:"builtinTools"`
	MCPServers   []mcp.Server         `json:"mcpServers"`
}

func (h *configureHandler) get(w http.ResponseWriter, _ *http.Request) {
	servers := h.registry.List()
	if servers == nil {
		servers = []mcp.Server{}
	}
	models := h.cfg.Models()
	if models == nil {
		models = []config.AIModel{}
	}

	writeJSON(w, http.StatusOK, FrontendConfig{
		Models:       models,
		DefaultModel: h.cfg.Provider + ":" + h.cfg.ModelName,
		BuiltinTools: config.BuiltinTools(),
		MCPServers:   servers,
	}, h.logger)
}
