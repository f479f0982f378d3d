package domain

import "context"

// BoardStore persists the whole board as one snapshot.
// Save and Clear never fail from the caller's point of view; Load reports
// false when there is no usable prior state.
type BoardStore interface {
	Save(ctx context.Context, b Board)
	Load(ctx context.Context) (Board, bool)
	Clear(ctx context.Context)
}

// DragOrigin is the sticker position captured when a drag gesture begins.
type DragOrigin struct {
	StickerID int     `json:"stickerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// DragHandler is implemented by anything that commits drag gestures.
// Only the net displacement at the end of the gesture reaches the board.
type DragHandler interface {
	BeginDrag(id int) (DragOrigin, bool)
	EndDrag(ctx context.Context, origin DragOrigin, dx, dy float64)
}
