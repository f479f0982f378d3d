package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"stickers/internal/domain"
)

// Board is the controller surface the MCP server drives. *app.App
// implements it.
type Board interface {
	domain.DragHandler

	Board() domain.Board
	Viewport() domain.Viewport
	SetViewport(vp domain.Viewport)
	AddSticker(ctx context.Context) domain.Sticker
	UpdateSticker(ctx context.Context, id int, patch domain.StickerPatch) (domain.Sticker, bool)
	MoveSticker(ctx context.Context, id int, rawX, rawY float64) (domain.Sticker, bool)
	DeleteSticker(ctx context.Context, id int) bool
	ClearAll(ctx context.Context)
}

// Server is the MCP server for the sticker board.
// It exposes tools, a resource and prompts so AI agents can read and edit it.
type Server struct {
	mcp   *server.MCPServer
	board Board
	log   zerolog.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(board Board, log zerolog.Logger) *Server {
	s := &Server{
		board: board,
		log:   log.With().Str("component", "mcp").Logger(),
	}

	s.mcp = server.NewMCPServer(
		"stickers-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerStickerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// numberArg reads a required numeric argument.
func numberArg(args map[string]any, name string) (float64, error) {
	v, ok := args[name].(float64)
	if !ok || !finite(v) {
		return 0, fmt.Errorf("%s is required and must be a finite number", name)
	}
	return v, nil
}

// optionalNumber reads a numeric argument that may be omitted.
func optionalNumber(args map[string]any, name string) (*float64, error) {
	raw, present := args[name]
	if !present || raw == nil {
		return nil, nil
	}
	v, ok := raw.(float64)
	if !ok || !finite(v) {
		return nil, fmt.Errorf("%s must be a finite number", name)
	}
	return &v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// stickerID reads the "id" argument, which must be a whole number.
func stickerID(args map[string]any) (int, error) {
	v, err := numberArg(args, "id")
	if err != nil {
		return 0, err
	}
	if v != float64(int(v)) || v < 1 {
		return 0, fmt.Errorf("id must be a positive integer, got %v", v)
	}
	return int(v), nil
}

func notFound(id int) *mcp.CallToolResult {
	return textResult(fmt.Sprintf("No sticker with id %d; the board is unchanged.", id))
}
