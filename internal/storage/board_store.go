package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"stickers/internal/domain"
	"stickers/internal/kv"
)

// Fixed keys the board is stored under.
const (
	KeyStickers = "sticker-dashboard-data"
	KeyNextID   = "sticker-dashboard-next-id"
)

var (
	// ErrNoSnapshot means neither key is present: nothing was ever saved, or
	// the board was cleared.
	ErrNoSnapshot = errors.New("no saved board")
	// ErrIncompleteSnapshot means only one of the two keys is present.
	ErrIncompleteSnapshot = errors.New("incomplete saved board")
)

var _ domain.BoardStore = (*BoardStore)(nil)

// BoardStore implements domain.BoardStore on a key-value store.
type BoardStore struct {
	kv  kv.Store
	log zerolog.Logger
}

// NewBoardStore creates a BoardStore.
func NewBoardStore(store kv.Store, log zerolog.Logger) *BoardStore {
	return &BoardStore{kv: store, log: log.With().Str("component", "board-store").Logger()}
}

// Save writes the next-id counter and then the sticker sequence. Failures are
// logged as warnings and never returned: the in-memory board stays the
// source of truth for the session.
func (s *BoardStore) Save(ctx context.Context, b domain.Board) {
	snap, err := domain.EncodeSnapshot(b)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode board")
		return
	}
	if err := s.write(ctx, snap); err != nil {
		if errors.Is(err, kv.ErrQuotaExceeded) {
			s.log.Warn().Err(err).
				Int("stickers", len(b.Stickers)).
				Msg("storage quota exceeded, consider removing old stickers")
			return
		}
		s.log.Warn().Err(err).Msg("save board")
		return
	}
	s.log.Debug().Int("stickers", len(b.Stickers)).Int("next_id", b.NextID).Msg("board saved")
}

// write stores the counter first. The counter never shrinks between clears,
// so an interrupted write leaves the old sequence under a newer counter,
// which still loads.
func (s *BoardStore) write(ctx context.Context, snap domain.Snapshot) error {
	if err := s.kv.Set(ctx, KeyNextID, snap.NextID); err != nil {
		return fmt.Errorf("write next id: %w", err)
	}
	if err := s.kv.Set(ctx, KeyStickers, snap.Stickers); err != nil {
		return fmt.Errorf("write stickers: %w", err)
	}
	return nil
}

// Load returns the saved board, or false when there is none or it does not
// pass validation. A rejected snapshot is never partially used.
func (s *BoardStore) Load(ctx context.Context) (domain.Board, bool) {
	b, err := s.Inspect(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			s.log.Warn().Err(err).Msg("ignoring saved board")
		}
		return domain.Board{}, false
	}
	return b, true
}

// Inspect is Load with the reason for rejection: ErrNoSnapshot,
// ErrIncompleteSnapshot, a *domain.ValidationError, or a store error.
func (s *BoardStore) Inspect(ctx context.Context) (domain.Board, error) {
	stickers, hasStickers, err := s.kv.Get(ctx, KeyStickers)
	if err != nil {
		return domain.Board{}, fmt.Errorf("read stickers: %w", err)
	}
	nextID, hasNextID, err := s.kv.Get(ctx, KeyNextID)
	if err != nil {
		return domain.Board{}, fmt.Errorf("read next id: %w", err)
	}
	switch {
	case !hasStickers && !hasNextID:
		return domain.Board{}, ErrNoSnapshot
	case !hasStickers || !hasNextID:
		return domain.Board{}, ErrIncompleteSnapshot
	}
	return domain.DecodeSnapshot(domain.Snapshot{Stickers: stickers, NextID: nextID})
}

// Fingerprint returns a string that changes whenever either stored value
// changes. Used to detect edits by other processes on stores that cannot
// push notifications.
func (s *BoardStore) Fingerprint(ctx context.Context) (string, error) {
	stickers, hasStickers, err := s.kv.Get(ctx, KeyStickers)
	if err != nil {
		return "", fmt.Errorf("read stickers: %w", err)
	}
	nextID, hasNextID, err := s.kv.Get(ctx, KeyNextID)
	if err != nil {
		return "", fmt.Errorf("read next id: %w", err)
	}
	return fmt.Sprintf("%t:%d:%s|%t:%s", hasStickers, len(stickers), stickers, hasNextID, nextID), nil
}

// Clear removes both keys. Safe to call when nothing is stored.
func (s *BoardStore) Clear(ctx context.Context) {
	for _, key := range []string{KeyStickers, KeyNextID} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("clear board")
		}
	}
}

// Watch forwards external changes of the board keys to onChange when the
// underlying store supports it. It reports false when it does not.
func (s *BoardStore) Watch(ctx context.Context, onChange func()) (bool, error) {
	w, ok := s.kv.(kv.Watcher)
	if !ok {
		return false, nil
	}
	return true, w.Watch(ctx, func(key string) {
		if key == KeyStickers || key == KeyNextID {
			onChange()
		}
	})
}
