// Package mcpserver exposes persisted analysis results as MCP tools so
// agent clients can query exercise status and team fairness reports.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/collabscope/collabscope/internal/state"
	"github.com/collabscope/collabscope/pkg/models"
)

// ResultReader is the slice of the store the MCP tools need.
type ResultReader interface {
	ListParticipations(exerciseID int64) ([]models.TeamParticipation, error)
	GetChunks(participationID int64) ([]models.AnalyzedChunk, error)
}

// Server wraps the MCP server and registers the analysis tools.
type Server struct {
	server  *mcp.Server
	machine *state.Machine
	store   ResultReader
}

// NewServer creates a new MCP server with the analysis tools registered.
func NewServer(version string, machine *state.Machine, store ResultReader) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "collabscope",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, machine: machine, store: store}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analysis_status",
		Description: "Current analysis lifecycle state and progress of an exercise.",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "team_results",
		Description: "Persisted per-team collaboration quality results of an exercise.",
	}, s.handleTeamResults)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "team_chunks",
		Description: "Analyzed chunks of one team's latest successful run, with effort ratings.",
	}, s.handleTeamChunks)
}
