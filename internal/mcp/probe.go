package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jovyan/nbagent/internal/log"
)

// probeTimeout bounds a single discovery round-trip.
const probeTimeout = 10 * time.Second

// Prober discovers the tool names exposed by an MCP server over the
// streamable HTTP transport. Discovery is best-effort: the registry keeps
// an entry even when its server is unreachable at configuration time.
type Prober struct {
	client *http.Client
	logger log.Logger
}

// NewProber creates a Prober. A nil httpClient falls back to a default
// client with the probe timeout applied.
func NewProber(httpClient *http.Client, logger log.Logger) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: probeTimeout}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Prober{client: httpClient, logger: logger}
}

// DiscoverTools connects to the MCP server at url, lists its tools, and
// returns the sorted tool names. The session is closed before returning.
func (p *Prober) DiscoverTools(ctx context.Context, url string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := sdk.NewClient(&sdk.Implementation{
		Name:    "nbagent",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdk.StreamableClientTransport{
		Endpoint:   url,
		HTTPClient: p.client,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %s: %w", url, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Debug("closing probe session", "url", url, "error", err)
		}
	}()

	res, err := session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing tools from %s: %w", url, err)
	}

	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)

	p.logger.Debug("discovered MCP tools", "url", url, "count", len(names))
	return names, nil
}
