package jupyter

import (
	"strings"

	"github.com/jovyan/nbagent/internal/mcp"
)

// ServerName is the MCP connection name used for the Jupyter server.
const ServerName = "jupyter"

// ClientConfig builds the MCP connection for a Jupyter server running the
// MCP extension. The server exposes its MCP endpoint under /mcp, so the
// path is appended when the base URL does not already carry it. The token
// is the standard Jupyter server token.
func ClientConfig(baseURL, token string) mcp.ClientConfig {
	url := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(url, "/mcp") {
		url += "/mcp"
	}
	return mcp.HTTPClientConfig(ServerName, url, token)
}
