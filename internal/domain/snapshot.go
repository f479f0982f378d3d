package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Snapshot is the serialized form of a Board as it sits in the key-value store.
type Snapshot struct {
	Stickers string // JSON array of stickers
	NextID   string // decimal next-id
}

// ValidationError explains why a stored snapshot was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid board snapshot: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// MaxNextID is the largest accepted next-id. Every id below it survives the
// float64 round trip of a JSON number.
const MaxNextID = 1 << 53

// EncodeSnapshot serializes a board.
func EncodeSnapshot(b Board) (Snapshot, error) {
	if b.NextID > MaxNextID {
		return Snapshot{}, fmt.Errorf("encode next id: %d is above %d", b.NextID, MaxNextID)
	}
	stickers := b.Stickers
	if stickers == nil {
		stickers = []Sticker{}
	}
	data, err := json.Marshal(stickers)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode stickers: %w", err)
	}
	return Snapshot{
		Stickers: string(data),
		NextID:   strconv.Itoa(b.NextID),
	}, nil
}

// DecodeSnapshot parses and validates a stored snapshot. Either the whole
// snapshot is accepted or a *ValidationError is returned; there is no
// partial recovery.
func DecodeSnapshot(snap Snapshot) (Board, error) {
	nextID, err := strconv.Atoi(strings.TrimSpace(snap.NextID))
	if err != nil {
		return Board{}, invalid("next id %q is not an integer", snap.NextID)
	}
	if nextID < 1 {
		return Board{}, invalid("next id %d is below 1", nextID)
	}
	if nextID > MaxNextID {
		return Board{}, invalid("next id %d is above %d", nextID, MaxNextID)
	}

	var raw any
	if err := json.Unmarshal([]byte(snap.Stickers), &raw); err != nil {
		return Board{}, invalid("stickers: %v", err)
	}
	items, ok := raw.([]any)
	if !ok {
		return Board{}, invalid("stickers is not an array")
	}

	stickers := make([]Sticker, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for i, item := range items {
		s, err := decodeSticker(item)
		if err != nil {
			return Board{}, invalid("sticker %d: %v", i, err)
		}
		if _, dup := seen[s.ID]; dup {
			return Board{}, invalid("sticker %d: duplicate id %d", i, s.ID)
		}
		if s.ID >= nextID {
			return Board{}, invalid("sticker %d: id %d not below next id %d", i, s.ID, nextID)
		}
		seen[s.ID] = struct{}{}
		stickers = append(stickers, s)
	}

	return Board{Stickers: stickers, NextID: nextID}, nil
}

func decodeSticker(item any) (Sticker, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Sticker{}, fmt.Errorf("not an object")
	}

	var nums [5]float64
	for i, field := range []string{"id", "x", "y", "width", "height"} {
		v, ok := obj[field].(float64)
		if !ok {
			return Sticker{}, fmt.Errorf("field %q missing or not a number", field)
		}
		nums[i] = v
	}
	var strs [2]string
	for i, field := range []string{"text", "color"} {
		v, ok := obj[field].(string)
		if !ok {
			return Sticker{}, fmt.Errorf("field %q missing or not a string", field)
		}
		strs[i] = v
	}

	id := nums[0]
	if id != math.Trunc(id) || id < 1 || id >= MaxNextID {
		return Sticker{}, fmt.Errorf("id %v is not a positive integer", id)
	}

	return Sticker{
		ID:     int(id),
		X:      nums[1],
		Y:      nums[2],
		Width:  nums[3],
		Height: nums[4],
		Text:   strs[0],
		Color:  strs[1],
	}, nil
}
