package service

import (
	"math"
	"math/rand/v2"

	"stickers/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// BoardManager: pure state transitions for the sticker board
// ─────────────────────────────────────────────────────────────

// RandomSource supplies the randomness used for sticker placement and color.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// BoardManager applies transitions to board values. It never mutates the
// board it is given; every method returns a fresh value.
type BoardManager struct {
	rng RandomSource
}

// NewBoardManager creates a BoardManager. A nil source falls back to the
// global math/rand/v2 generator.
func NewBoardManager(rng RandomSource) *BoardManager {
	if rng == nil {
		rng = globalRand{}
	}
	return &BoardManager{rng: rng}
}

// Add appends a new sticker at a random position inside the viewport and
// returns the new board along with the created sticker.
func (m *BoardManager) Add(b domain.Board, vp domain.Viewport) (domain.Board, domain.Sticker) {
	s := domain.Sticker{
		ID:     b.NextID,
		X:      domain.PlacementMargin + m.rng.Float64()*max(0, vp.Width-domain.PlacementReserve),
		Y:      domain.PlacementMargin + m.rng.Float64()*max(0, vp.Height-domain.PlacementReserve),
		Width:  domain.DefaultStickerWidth,
		Height: domain.DefaultStickerHeight,
		Text:   "",
		Color:  domain.Palette[m.rng.IntN(len(domain.Palette))],
	}

	next := domain.Board{
		Stickers: make([]domain.Sticker, 0, len(b.Stickers)+1),
		NextID:   b.NextID + 1,
	}
	next.Stickers = append(next.Stickers, b.Stickers...)
	next.Stickers = append(next.Stickers, s)
	return next, s
}

// Update merges patch over the sticker with the given id.
// An unknown id returns the board unchanged.
func (m *BoardManager) Update(b domain.Board, id int, patch domain.StickerPatch) domain.Board {
	next := b.Clone()
	for i := range next.Stickers {
		if next.Stickers[i].ID == id {
			next.Stickers[i] = patch.Apply(next.Stickers[i])
			return next
		}
	}
	return b
}

// Delete removes the sticker with the given id. NextID is left alone so ids
// are never reused.
func (m *BoardManager) Delete(b domain.Board, id int) domain.Board {
	if _, ok := b.Find(id); !ok {
		return b
	}
	next := domain.Board{
		Stickers: make([]domain.Sticker, 0, len(b.Stickers)-1),
		NextID:   b.NextID,
	}
	for _, s := range b.Stickers {
		if s.ID != id {
			next.Stickers = append(next.Stickers, s)
		}
	}
	return next
}

// ClearAll returns the canonical empty board.
func (m *BoardManager) ClearAll(domain.Board) domain.Board {
	return domain.EmptyBoard()
}

// Move places the sticker at (rawX, rawY) clamped so that it stays fully
// inside the viewport.
func (m *BoardManager) Move(b domain.Board, id int, rawX, rawY float64, vp domain.Viewport) domain.Board {
	s, ok := b.Find(id)
	if !ok {
		return b
	}
	x := Clamp(rawX, 0, vp.Width-s.Width)
	y := Clamp(rawY, 0, vp.Height-s.Height)
	return m.Update(b, id, domain.StickerPatch{X: &x, Y: &y})
}

// Clamp constrains v to [lo, hi]. When hi < lo the lower bound wins, and
// NaN lands on the lower bound.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(hi, v))
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }
