package mcpadapter

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/strataworks/geoassist/internal/core/ports"
)

const (
	serverName    = "geoassist"
	serverVersion = "1.0.0"
)

// Server exposes knowledge-base search and the geotechnical calculators
// as MCP tools over stdio.
type Server struct {
	mcp       *server.MCPServer
	retrieval ports.RetrievalService
}

func NewServer(retrieval ports.RetrievalService) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(serverName, serverVersion),
		retrieval: retrieval,
	}
	s.registerTools()
	return s
}

// Serve reads MCP requests from stdin until the stream closes or the
// context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchKnowledgeTool(), s.handleSearchKnowledge)
	s.mcp.AddTool(settlementTool(), s.handleCalculateSettlement)
	s.mcp.AddTool(bearingCapacityTool(), s.handleCalculateBearingCapacity)
}
