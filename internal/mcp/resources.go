package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const boardURI = "stickers://board"

func (s *Server) registerResources() {
	// ── stickers://board ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		boardURI,
		"Sticker Board",
		mcp.WithResourceDescription("Every sticker on the board with the next id and viewport"),
		mcp.WithMIMEType("application/json"),
	), s.handleBoardResource)
}

func (s *Server) handleBoardResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.view(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      boardURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
