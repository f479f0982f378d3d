package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("brainstorm",
		mcp.WithPromptDescription("Put one sticker per idea on the board"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What to brainstorm about"),
			mcp.RequiredArgument(),
		),
	), s.handleBrainstormPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_board",
		mcp.WithPromptDescription("Lay the existing stickers out in a grid without overlaps"),
	), s.handleTidyPrompt)
}

func (s *Server) handleBrainstormPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Brainstorm about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Brainstorm about "%s" on the sticker board. Follow these steps:

1. Read the board with get_board so you do not repeat existing ideas
2. For each new idea, call add_sticker, then update_sticker with its id and the idea as text
3. Keep each sticker short: one idea, at most a sentence

Stop after about eight ideas.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	vp := s.board.Viewport()
	return &mcp.GetPromptResult{
		Description: "Tidy the sticker board",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Tidy the sticker board. The viewport is %gx%g pixels. Follow these steps:

1. Read the board with get_board
2. Compute a grid where stickers do not overlap, in id order, left to right then top to bottom
3. Move each sticker into its cell with move_sticker

Do not change any sticker's text.`, vp.Width, vp.Height),
				},
			},
		},
	}, nil
}
