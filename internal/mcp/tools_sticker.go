package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"stickers/internal/domain"
)

func (s *Server) registerStickerTools() {
	// ── get_board ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Return every sticker on the board, the next id and the current viewport"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetBoard)

	// ── add_sticker ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_sticker",
		mcp.WithDescription("Add an empty sticker at a random spot inside the viewport. Set its text with update_sticker."),
	), s.handleAddSticker)

	// ── update_sticker ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_sticker",
		mcp.WithDescription("Change a sticker's text and/or position. Positions given here are stored as-is; use move_sticker to keep the sticker inside the viewport."),
		mcp.WithNumber("id", mcp.Description("Sticker ID"), mcp.Required()),
		mcp.WithString("text", mcp.Description("New text (optional)")),
		mcp.WithNumber("x", mcp.Description("New X position (optional)")),
		mcp.WithNumber("y", mcp.Description("New Y position (optional)")),
	), s.handleUpdateSticker)

	// ── move_sticker ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_sticker",
		mcp.WithDescription("Move a sticker to a position, clamped so it stays inside the viewport"),
		mcp.WithNumber("id", mcp.Description("Sticker ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveSticker)

	// ── drag_sticker ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("drag_sticker",
		mcp.WithDescription("Drag a sticker by a relative offset (dx, dy), clamped to the viewport"),
		mcp.WithNumber("id", mcp.Description("Sticker ID"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
	), s.handleDragSticker)

	// ── delete_sticker (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_sticker",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a sticker"),
		mcp.WithNumber("id", mcp.Description("Sticker ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSticker)

	// ── clear_board (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("clear_board",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove every sticker and reset ids. Only runs with confirm=true."),
		mcp.WithBoolean("confirm", mcp.Description("Must be true to clear the board"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleClearBoard)

	// ── set_viewport ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_viewport",
		mcp.WithDescription("Set the viewport size used to place new stickers and clamp moves"),
		mcp.WithNumber("width", mcp.Description("Viewport width in pixels"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Viewport height in pixels"), mcp.Required()),
	), s.handleSetViewport)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

type boardView struct {
	Stickers []domain.Sticker `json:"stickers"`
	NextID   int              `json:"nextId"`
	Viewport domain.Viewport  `json:"viewport"`
}

func (s *Server) view() boardView {
	b := s.board.Board()
	if b.Stickers == nil {
		b.Stickers = []domain.Sticker{}
	}
	return boardView{Stickers: b.Stickers, NextID: b.NextID, Viewport: s.board.Viewport()}
}

func (s *Server) handleGetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.view())
}

func (s *Server) handleAddSticker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.board.AddSticker(ctx)
	s.log.Debug().Int("id", st.ID).Msg("add_sticker")
	return jsonResult(st)
}

func (s *Server) handleUpdateSticker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stickerID(args)
	if err != nil {
		return nil, err
	}

	var patch domain.StickerPatch
	if raw, present := args["text"]; present && raw != nil {
		text, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("text must be a string")
		}
		patch.Text = &text
	}
	if patch.X, err = optionalNumber(args, "x"); err != nil {
		return nil, err
	}
	if patch.Y, err = optionalNumber(args, "y"); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("nothing to update: pass text, x or y")
	}

	st, ok := s.board.UpdateSticker(ctx, id, patch)
	if !ok {
		return notFound(id), nil
	}
	return jsonResult(st)
}

func (s *Server) handleMoveSticker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stickerID(args)
	if err != nil {
		return nil, err
	}
	x, err := numberArg(args, "x")
	if err != nil {
		return nil, err
	}
	y, err := numberArg(args, "y")
	if err != nil {
		return nil, err
	}

	st, ok := s.board.MoveSticker(ctx, id, x, y)
	if !ok {
		return notFound(id), nil
	}
	return jsonResult(st)
}

func (s *Server) handleDragSticker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stickerID(args)
	if err != nil {
		return nil, err
	}
	dx, err := numberArg(args, "dx")
	if err != nil {
		return nil, err
	}
	dy, err := numberArg(args, "dy")
	if err != nil {
		return nil, err
	}

	origin, ok := s.board.BeginDrag(id)
	if !ok {
		return notFound(id), nil
	}
	s.board.EndDrag(ctx, origin, dx, dy)
	st, ok := s.board.Board().Find(id)
	if !ok {
		return notFound(id), nil
	}
	return jsonResult(st)
}

func (s *Server) handleDeleteSticker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := stickerID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if !s.board.DeleteSticker(ctx, id) {
		return notFound(id), nil
	}
	return textResult(fmt.Sprintf("Deleted sticker %d.", id)), nil
}

func (s *Server) handleClearBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, _ := req.GetArguments()["confirm"].(bool)
	if !confirm {
		return nil, fmt.Errorf("clear_board removes every sticker; call it again with confirm=true")
	}
	n := len(s.board.Board().Stickers)
	s.board.ClearAll(ctx)
	s.log.Info().Int("removed", n).Msg("clear_board")
	return textResult(fmt.Sprintf("Cleared the board (%d stickers removed).", n)), nil
}

func (s *Server) handleSetViewport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, err := numberArg(args, "width")
	if err != nil {
		return nil, err
	}
	h, err := numberArg(args, "height")
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("viewport must be positive, got %gx%g", w, h)
	}
	s.board.SetViewport(domain.Viewport{Width: w, Height: h})
	return jsonResult(s.board.Viewport())
}
