package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"
)

// StatusInput identifies the exercise to inspect.
type StatusInput struct {
	ExerciseID int64 `json:"exercise_id" jsonschema:"Exercise to inspect."`
}

// TeamResultsInput identifies the exercise whose results to list.
type TeamResultsInput struct {
	ExerciseID int64 `json:"exercise_id" jsonschema:"Exercise whose persisted team results to list."`
}

// TeamChunksInput identifies one team's participation.
type TeamChunksInput struct {
	ParticipationID int64 `json:"participation_id" jsonschema:"Participation whose analyzed chunks to fetch."`
	IncludeDiffs    bool  `json:"include_diffs,omitempty" jsonschema:"Include raw diff text. Default false to keep responses small."`
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, any, error) {
	status, err := s.machine.Status(input.ExerciseID)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(status)
}

func (s *Server) handleTeamResults(ctx context.Context, req *mcp.CallToolRequest, input TeamResultsInput) (*mcp.CallToolResult, any, error) {
	teams, err := s.store.ListParticipations(input.ExerciseID)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(teams)
}

func (s *Server) handleTeamChunks(ctx context.Context, req *mcp.CallToolRequest, input TeamChunksInput) (*mcp.CallToolResult, any, error) {
	chunks, err := s.store.GetChunks(input.ParticipationID)
	if err != nil {
		return toolError(err.Error())
	}
	if !input.IncludeDiffs {
		for i := range chunks {
			chunks[i].DiffText = ""
			for j := range chunks[i].Files {
				chunks[i].Files[j].DiffText = ""
			}
		}
	}
	return toolResult(chunks)
}

// toolResult renders data as TOON, the most token-efficient shape for
// agent clients.
func toolResult(data any) (*mcp.CallToolResult, any, error) {
	text, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}
