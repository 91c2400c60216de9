package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"

	"github.com/jovyan/nbagent/internal/log"
)

// ClientConfig describes one MCP server connection for the Host.
type ClientConfig struct {
	Name          string
	ClientOptions mcp.MCPClientOptions
}

// HTTPClientConfig builds a ClientConfig for an MCP server reachable over
// streamable HTTP. An optional bearer token is injected on every request.
func HTTPClientConfig(name, url, token string) ClientConfig {
	httpClient := http.DefaultClient
	if token != "" {
		httpClient = &http.Client{
			Transport: &tokenTransport{token: token, base: http.DefaultTransport},
		}
	}
	return ClientConfig{
		Name: name,
		ClientOptions: mcp.MCPClientOptions{
			Name: name,
			StreamableHTTP: &mcp.StreamableHTTPConfig{
				BaseURL:    url,
				HTTPClient: httpClient,
			},
		},
	}
}

// tokenTransport adds a bearer token to outgoing MCP requests.
// Jupyter servers also accept this form for their token auth.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// Host manages connections to the configured MCP servers and hands their
// tools to the agent. Connection failures degrade gracefully: a failed
// server is tracked as Failed and the remaining servers keep working.
type Host struct {
	host   *mcp.MCPHost
	g      *genkit.Genkit
	logger log.Logger

	mu     sync.RWMutex
	states map[string]*State
}

// NewHost creates a Host and connects it to the given servers.
func NewHost(ctx context.Context, g *genkit.Genkit, configs []ClientConfig, logger log.Logger) (*Host, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	serverConfigs := make([]mcp.MCPServerConfig, len(configs))
	states := make(map[string]*State, len(configs))
	for i, cfg := range configs {
		serverConfigs[i] = mcp.MCPServerConfig{
			Name:   cfg.Name,
			Config: cfg.ClientOptions,
		}
		states[cfg.Name] = &State{
			Name:        cfg.Name,
			Status:      Connecting,
			LastAttempt: time.Now(),
		}
	}

	logger.Info("creating MCP host", "server_count", len(configs))
	host, err := mcp.NewMCPHost(g, mcp.MCPHostOptions{
		Name:       "nbagent",
		Version:    "1.0.0",
		MCPServers: serverConfigs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP host: %w", err)
	}

	// MCPHost does not report per-server status, so connections are
	// tracked optimistically and corrected on the first failed call.
	for _, state := range states {
		state.Status = Connected
		state.SuccessCount++
	}

	return &Host{host: host, g: g, logger: logger, states: states}, nil
}

// Tools returns all tools from all connected MCP servers.
func (h *Host) Tools(ctx context.Context) ([]ai.Tool, error) {
	tools, err := h.host.GetActiveTools(ctx, h.g)
	if err != nil {
		h.markAll(Failed, err)
		return nil, fmt.Errorf("getting MCP tools: %w", err)
	}

	h.markAll(Connected, nil)
	h.logger.Debug("retrieved MCP tools", "tool_count", len(tools))
	return tools, nil
}

// Connect attaches an additional MCP server at runtime (e.g. after a
// registry entry is added through the API).
func (h *Host) Connect(ctx context.Context, cfg ClientConfig) error {
	h.mu.Lock()
	h.states[cfg.Name] = &State{
		Name:        cfg.Name,
		Status:      Connecting,
		LastAttempt: time.Now(),
	}
	h.mu.Unlock()

	if err := h.host.Connect(ctx, h.g, cfg.Name, cfg.ClientOptions); err != nil {
		h.mark(cfg.Name, Failed, err)
		return fmt.Errorf("connecting to MCP server %s: %w", cfg.Name, err)
	}

	h.mark(cfg.Name, Connected, nil)
	return nil
}

// Disconnect detaches an MCP server at runtime. The tracked state is
// dropped even when the underlying client refuses to close, so the host
// stays aligned with the registry.
func (h *Host) Disconnect(ctx context.Context, name string) error {
	h.mu.Lock()
	delete(h.states, name)
	h.mu.Unlock()

	if err := h.host.Disconnect(ctx, name); err != nil {
		return fmt.Errorf("disconnecting MCP server %s: %w", name, err)
	}
	return nil
}

// States returns copies of all connection states.
func (h *Host) States() map[string]State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]State, len(h.states))
	for name, state := range h.states {
		out[name] = *state
	}
	return out
}

func (h *Host) mark(name string, status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.states[name]
	if !ok {
		return
	}
	state.Status = status
	state.LastError = err
	state.LastAttempt = time.Now()
	if err != nil {
		state.FailureCount++
	} else {
		state.SuccessCount++
	}
}

func (h *Host) markAll(status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, state := range h.states {
		state.Status = status
		state.LastError = err
		state.LastAttempt = time.Now()
		if err != nil {
			state.FailureCount++
		} else {
			state.SuccessCount++
		}
	}
}
