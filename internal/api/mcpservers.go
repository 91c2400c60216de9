package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/mcp"
)

// mcpHandler implements CRUD for the MCP server registry. Tool discovery
// and host attachment on create and update are best-effort: an unreachable
// server is stored anyway with an empty tool list and a failed connection
// state.
type mcpHandler struct {
	registry *mcp.Registry
	prober   *mcp.Prober
	host     *mcp.Host
	logger   log.Logger
}

const discoverTimeout = 10 * time.Second

// list handles GET /api/v1/mcp/servers.
func (h *mcpHandler) list(w http.ResponseWriter, _ *http.Request) {
	servers := h.registry.List()
	if servers == nil {
		servers = []mcp.Server{}
	}
	writeJSON(w, http.StatusOK, servers, h.logger)
}

// create handles POST /api/v1/mcp/servers. The entry is persisted first,
// then probed and attached to the running host.
func (h *mcpHandler) create(w http.ResponseWriter, r *http.Request) {
	var server mcp.Server
	if err := decodeBody(w, r, &server); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	created, err := h.registry.Add(server)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.attach(r, &created)
	writeJSON(w, http.StatusCreated, created, h.logger)
}

// update handles PUT /api/v1/mcp/servers/{id}. The previous connection is
// detached before the updated entry is re-attached, so renames and the
// enabled flag take effect without a restart.
func (h *mcpHandler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var server mcp.Server
	if err := decodeBody(w, r, &server); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	// A missing id surfaces as not found from Update below.
	prev, _ := h.registry.Get(id)

	updated, err := h.registry.Update(id, server)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.detach(r, prev)
	h.attach(r, &updated)
	writeJSON(w, http.StatusOK, updated, h.logger)
}

// remove handles DELETE /api/v1/mcp/servers/{id}. Responds 204 on success.
func (h *mcpHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	prev, _ := h.registry.Get(id)

	if err := h.registry.Remove(id); err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.detach(r, prev)
	w.WriteHeader(http.StatusNoContent)
}

// attach probes an enabled server for its tool names, persists them, and
// joins the server to the running host. Failures are logged; a probe
// failure leaves the submitted tool list untouched.
func (h *mcpHandler) attach(r *http.Request, server *mcp.Server) {
	if !server.Enabled || server.URL == "" {
		return
	}

	ctx, cancel := contextWithTimeout(r, discoverTimeout)
	defer cancel()

	if h.prober != nil {
		tools, err := h.prober.DiscoverTools(ctx, server.URL)
		switch {
		case err != nil:
			h.logger.Warn("tool discovery failed",
				"url", server.URL,
				"error", err,
			)
		default:
			if err := h.registry.SetTools(server.ID, tools); err != nil {
				h.logger.Warn("persisting discovered tools",
					"id", server.ID,
					"error", err,
				)
			} else {
				server.Tools = tools
			}
		}
	}

	if h.host == nil {
		return
	}
	if err := h.host.Connect(ctx, mcp.HTTPClientConfig(server.Name, server.URL, "")); err != nil {
		h.logger.Warn("attaching MCP server", "name", server.Name, "error", err)
	}
}

// detach removes a previously attached server from the running host.
func (h *mcpHandler) detach(r *http.Request, server mcp.Server) {
	if h.host == nil || !server.Enabled || server.Name == "" {
		return
	}

	ctx, cancel := contextWithTimeout(r, discoverTimeout)
	defer cancel()

	if err := h.host.Disconnect(ctx, server.Name); err != nil {
		h.logger.Warn("detaching MCP server", "name", server.Name, "error", err)
	}
}

func (h *mcpHandler) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mcp.ErrServerNotFound):
		writeError(w, http.StatusNotFound, err.Error(), h.logger)
	case errors.Is(err, mcp.ErrDuplicateServer):
		writeError(w, http.StatusConflict, err.Error(), h.logger)
	case errors.Is(err, mcp.ErrInvalidServer):
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
	default:
		h.logger.Error("registry operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", h.logger)
	}
}

// decodeBody decodes a JSON request body with a 1 MB size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)
	return json.NewDecoder(r.Body).Decode(dst)
}
