package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickers/internal/domain"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	b := domain.Board{
		Stickers: []domain.Sticker{
			{ID: 1, X: 12.345678901234567, Y: 0.1, Width: 250, Height: 200, Text: "line\nbreak \"quoted\" <tag> & ünïcødé 🎉", Color: "#FFE5B4"},
			{ID: 4, X: 0, Y: 999.5, Width: 250, Height: 200, Text: "", Color: "#B4FFB4"},
		},
		NextID: 7,
	}

	snap, err := domain.EncodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, "7", snap.NextID)

	got, err := domain.DecodeSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestEncodeSnapshot_NilStickers(t *testing.T) {
	snap, err := domain.EncodeSnapshot(domain.Board{NextID: 3})
	require.NoError(t, err)
	assert.Equal(t, "[]", snap.Stickers)
}

func TestDecodeSnapshot_Invalid(t *testing.T) {
	const okSticker = `{"id":1,"x":1,"y":2,"width":250,"height":200,"text":"a","color":"#FFE5B4"}`

	tests := []struct {
		name     string
		stickers string
		nextID   string
	}{
		{"negative next id", "[]", "-1"},
		{"zero next id", "[]", "0"},
		{"non numeric next id", "[]", "abc"},
		{"empty next id", "[]", ""},
		{"fractional next id", "[]", "1.5"},
		{"next id above max", "[]", "9007199254740993"},
		{"not json", "{nope", "2"},
		{"object instead of array", `{"id":1}`, "2"},
		{"array of numbers", "[1,2]", "3"},
		{"missing color", `[{"id":1,"x":1,"y":2,"width":250,"height":200,"text":"a"}]`, "2"},
		{"string x", `[{"id":1,"x":"1","y":2,"width":250,"height":200,"text":"a","color":"c"}]`, "2"},
		{"numeric text", `[{"id":1,"x":1,"y":2,"width":250,"height":200,"text":5,"color":"c"}]`, "2"},
		{"null height", `[{"id":1,"x":1,"y":2,"width":250,"height":null,"text":"a","color":"c"}]`, "2"},
		{"fractional id", `[{"id":1.5,"x":1,"y":2,"width":250,"height":200,"text":"a","color":"c"}]`, "2"},
		{"duplicate id", "[" + okSticker + "," + okSticker + "]", "2"},
		{"id not below next id", "[" + okSticker + "]", "1"},
		{"one bad among good", "[" + okSticker + `,{"id":2}]`, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.DecodeSnapshot(domain.Snapshot{Stickers: tt.stickers, NextID: tt.nextID})
			require.Error(t, err)
			var verr *domain.ValidationError
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			assert.Equal(t, domain.Board{}, got)
		})
	}
}

func TestDecodeSnapshot_EmptyArray(t *testing.T) {
	got, err := domain.DecodeSnapshot(domain.Snapshot{Stickers: "[]", NextID: " 5 "})
	require.NoError(t, err)
	assert.Empty(t, got.Stickers)
	assert.Equal(t, 5, got.NextID)
}

func TestStickerPatch_Apply(t *testing.T) {
	s := domain.Sticker{ID: 3, X: 1, Y: 2, Width: 250, Height: 200, Text: "old", Color: "#FFB4E5"}

	got := domain.StickerPatch{Text: domain.String("new")}.Apply(s)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, 1.0, got.X)
	assert.Equal(t, 2.0, got.Y)

	got = domain.StickerPatch{X: domain.Float64(40), Y: domain.Float64(50)}.Apply(s)
	assert.Equal(t, "old", got.Text)
	assert.Equal(t, 40.0, got.X)
	assert.Equal(t, 50.0, got.Y)

	assert.True(t, domain.StickerPatch{}.Empty())
	assert.Equal(t, s, domain.StickerPatch{}.Apply(s))
}

func TestBoard_CloneIsIndependent(t *testing.T) {
	b := domain.Board{Stickers: []domain.Sticker{{ID: 1, Text: "a"}}, NextID: 2}
	c := b.Clone()
	c.Stickers[0].Text = "changed"
	assert.Equal(t, "a", b.Stickers[0].Text)
	assert.True(t, domain.EmptyBoard().IsEmpty())
	assert.False(t, b.IsEmpty())
}

func TestEncodeDecode_LargeIDs(t *testing.T) {
	b := domain.Board{
		Stickers: []domain.Sticker{
			{ID: 1 << 31, X: 1, Y: 2, Width: 250, Height: 200, Text: "a", Color: "#FFE5B4"},
			{ID: domain.MaxNextID - 1, X: 3, Y: 4, Width: 250, Height: 200, Text: "b", Color: "#B4FFB4"},
		},
		NextID: domain.MaxNextID,
	}

	snap, err := domain.EncodeSnapshot(b)
	require.NoError(t, err)
	got, err := domain.DecodeSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = domain.EncodeSnapshot(domain.Board{NextID: domain.MaxNextID + 1})
	assert.Error(t, err)
}
