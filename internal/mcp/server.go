// ABOUTME: MCP server implementation for feedsync
// ABOUTME: Provides tools, resources, and prompts for AI agents to manage feeds and favorites

package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/harper/feedsync/internal/collection"
	"github.com/harper/feedsync/internal/discover"
)

// Server wraps the MCP server with the feed collection it operates on
type Server struct {
	mcpServer  *server.MCPServer
	manager    *collection.Manager
	discoverer *discover.Discoverer
}

// NewServer creates a new MCP server instance. The manager must already be
// initialized. A nil discoverer disables discovery in add_feed.
func NewServer(manager *collection.Manager, discoverer *discover.Discoverer, version string) *Server {
	s := &Server{
		manager:    manager,
		discoverer: discoverer,
	}

	s.mcpServer = server.NewMCPServer(
		"feedsync",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
