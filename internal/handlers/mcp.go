package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
)

// MCPHandler serves the MCP tool server over streamable HTTP
type MCPHandler struct {
	http   *server.StreamableHTTPServer
	logger arbor.ILogger
}

// NewMCPHandler creates a stateless streamable HTTP transport at /mcp
func NewMCPHandler(mcpServer *server.MCPServer, logger arbor.ILogger) *MCPHandler {
	return &MCPHandler{
		http: server.NewStreamableHTTPServer(mcpServer,
			server.WithEndpointPath("/mcp"),
			server.WithStateLess(true),
		),
		logger: logger,
	}
}

// HandleMCP handles JSON-RPC requests from MCP clients
func (h *MCPHandler) HandleMCP(w http.ResponseWriter, r *http.Request) {
	h.logger.Trace().Str("method", r.Method).Msg("MCP request")
	h.http.ServeHTTP(w, r)
}
