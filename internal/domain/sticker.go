package domain

// Default sticker geometry and placement policy.
const (
	DefaultStickerWidth  = 250.0
	DefaultStickerHeight = 200.0

	// PlacementMargin is the minimum offset of a new sticker from the board origin.
	PlacementMargin = 50.0
	// PlacementReserve is subtracted from the viewport when picking a random
	// position. Assumes the default sticker size.
	PlacementReserve = 300.0
)

// Palette holds the colors a new sticker can be painted with.
var Palette = []string{
	"#FFE5B4", // Peach
	"#B4E5FF", // Sky Blue
	"#B4FFB4", // Mint Green
	"#FFB4E5", // Pink
	"#E5B4FF", // Lavender
	"#FFFFB4", // Yellow
	"#FFD4B4", // Apricot
}

// Sticker is a single freeform note on the board.
type Sticker struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Text   string  `json:"text"`
	Color  string  `json:"color"`
}

// StickerPatch is a partial update. Nil fields are left untouched.
type StickerPatch struct {
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Text *string  `json:"text,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p StickerPatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Text == nil
}

// Apply returns s with the patch fields merged over it.
func (p StickerPatch) Apply(s Sticker) Sticker {
	if p.X != nil {
		s.X = *p.X
	}
	if p.Y != nil {
		s.Y = *p.Y
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	return s
}

// Viewport is the visible board area supplied by the rendering layer.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Board is the full sticker collection plus the id counter.
// Sticker order is insertion order.
type Board struct {
	Stickers []Sticker `json:"stickers"`
	NextID   int       `json:"nextId"`
}

// EmptyBoard returns the canonical empty board.
func EmptyBoard() Board {
	return Board{Stickers: []Sticker{}, NextID: 1}
}

// IsEmpty reports whether b is the canonical empty board.
func (b Board) IsEmpty() bool {
	return len(b.Stickers) == 0 && b.NextID <= 1
}

// Clone returns a deep copy of b.
func (b Board) Clone() Board {
	stickers := make([]Sticker, len(b.Stickers))
	copy(stickers, b.Stickers)
	return Board{Stickers: stickers, NextID: b.NextID}
}

// Find returns the sticker with the given id.
func (b Board) Find(id int) (Sticker, bool) {
	for _, s := range b.Stickers {
		if s.ID == id {
			return s, true
		}
	}
	return Sticker{}, false
}

// Float64 returns a pointer to v. Handy for building patches.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
