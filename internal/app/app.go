package app

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stickers/internal/domain"
	"stickers/internal/service"
	"stickers/internal/storage"
)

// App owns the one live board value. Every front end (CLI, MCP server,
// watchers) goes through its methods, which apply a BoardManager transition,
// write the new snapshot through to the store and emit a change event.
type App struct {
	mu sync.Mutex

	store    domain.BoardStore
	boards   *service.BoardManager
	emitter  service.EventEmitter
	log      zerolog.Logger
	session  string
	board    domain.Board
	viewport domain.Viewport
	poll     time.Duration
}

// BoardChange is the payload of service.EventBoardChanged.
type BoardChange struct {
	SessionID string       `json:"sessionId"`
	Board     domain.Board `json:"board"`
}

// Option customizes an App.
type Option func(*App)

// WithEmitter sets where board events go.
func WithEmitter(e service.EventEmitter) Option {
	return func(a *App) { a.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithViewport sets the initial viewport.
func WithViewport(vp domain.Viewport) Option {
	return func(a *App) { a.viewport = vp }
}

// WithPollInterval sets how often WatchStore polls stores that cannot push
// change notifications.
func WithPollInterval(d time.Duration) Option {
	return func(a *App) { a.poll = d }
}

// New creates an App holding the empty board. Call Startup to load the
// saved one.
func New(store domain.BoardStore, boards *service.BoardManager, opts ...Option) *App {
	a := &App{
		store:    store,
		boards:   boards,
		emitter:  service.NoopEmitter{},
		log:      zerolog.Nop(),
		session:  uuid.NewString(),
		board:    domain.EmptyBoard(),
		viewport: domain.Viewport{Width: 1440, Height: 900},
		poll:     defaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With().Str("component", "app").Str("session", a.session).Logger()
	return a
}

// Startup seeds the board from the store. Missing or invalid saved state
// starts an empty board.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if b, ok := a.store.Load(ctx); ok {
		a.board = b
	} else {
		a.board = domain.EmptyBoard()
	}
	a.log.Info().Int("stickers", len(a.board.Stickers)).Int("next_id", a.board.NextID).Msg("board loaded")
}

// SessionID identifies this App instance in events and logs.
func (a *App) SessionID() string {
	return a.session
}

// Board returns a copy of the current board.
func (a *App) Board() domain.Board {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.board.Clone()
}

// Viewport returns the viewport used for placement and clamping.
func (a *App) Viewport() domain.Viewport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewport
}

// SetViewport updates the viewport. Existing stickers are not moved.
func (a *App) SetViewport(vp domain.Viewport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewport = vp
}

// AddSticker creates a sticker at a random spot in the viewport.
func (a *App) AddSticker(ctx context.Context) domain.Sticker {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, s := a.boards.Add(a.board, a.viewport)
	a.commit(ctx, next)
	return s
}

// UpdateSticker applies patch to the sticker with id. It reports false
// when no such sticker exists, which is not an error.
func (a *App) UpdateSticker(ctx context.Context, id int, patch domain.StickerPatch) (domain.Sticker, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.commit(ctx, a.boards.Update(a.board, id, patch))
	return a.board.Find(id)
}

// MoveSticker moves the sticker to (rawX, rawY), clamped to the viewport.
func (a *App) MoveSticker(ctx context.Context, id int, rawX, rawY float64) (domain.Sticker, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.commit(ctx, a.boards.Move(a.board, id, rawX, rawY, a.viewport))
	return a.board.Find(id)
}

// DeleteSticker removes the sticker with id and reports whether it existed.
func (a *App) DeleteSticker(ctx context.Context, id int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, existed := a.board.Find(id)
	a.commit(ctx, a.boards.Delete(a.board, id))
	return existed
}

// ClearAll empties the board, resets the id counter and purges the store
// in one step.
func (a *App) ClearAll(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.board = a.boards.ClearAll(a.board)
	a.store.Clear(ctx)
	a.log.Info().Msg("board cleared")
	a.emitter.Emit(ctx, service.EventBoardCleared, BoardChange{SessionID: a.session, Board: a.board.Clone()})
}

// commit installs next as the current board. Unchanged boards are neither
// saved nor announced. Must be called with a.mu held.
func (a *App) commit(ctx context.Context, next domain.Board) {
	if reflect.DeepEqual(next, a.board) {
		return
	}
	a.board = next
	if !next.IsEmpty() {
		a.store.Save(ctx, next)
	}
	a.emitter.Emit(ctx, service.EventBoardChanged, BoardChange{SessionID: a.session, Board: next.Clone()})
}

// ── drag gestures ──────────────────────────────────────────

var _ domain.DragHandler = (*App)(nil)

// BeginDrag captures the sticker's position before the gesture.
// Nothing on the board changes until EndDrag.
func (a *App) BeginDrag(id int) (domain.DragOrigin, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.board.Find(id)
	if !ok {
		return domain.DragOrigin{}, false
	}
	return domain.DragOrigin{StickerID: id, X: s.X, Y: s.Y}, true
}

// EndDrag commits the gesture: the sticker lands at origin + (dx, dy),
// clamped to the viewport. If the sticker was deleted mid-gesture this is a
// no-op.
func (a *App) EndDrag(ctx context.Context, origin domain.DragOrigin, dx, dy float64) {
	a.MoveSticker(ctx, origin.StickerID, origin.X+dx, origin.Y+dy)
}

// ── external changes ───────────────────────────────────────

type inspector interface {
	Inspect(ctx context.Context) (domain.Board, error)
}

type watcher interface {
	Watch(ctx context.Context, onChange func()) (bool, error)
}

// Reload re-reads the store, e.g. after another process edited it.
// A cleared store resets the board; an unreadable or half-written one keeps
// the current board.
func (a *App) Reload(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		next domain.Board
		err  error
	)
	if in, ok := a.store.(inspector); ok {
		next, err = in.Inspect(ctx)
	} else if b, ok := a.store.Load(ctx); ok {
		next = b
	} else {
		err = storage.ErrNoSnapshot
	}

	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		next = domain.EmptyBoard()
	case err != nil:
		a.log.Warn().Err(err).Msg("reload skipped, keeping current board")
		return
	}
	if reflect.DeepEqual(next, a.board) {
		return
	}
	a.board = next
	a.log.Info().Int("stickers", len(next.Stickers)).Msg("board reloaded")
	a.emitter.Emit(ctx, service.EventBoardChanged, BoardChange{SessionID: a.session, Board: next.Clone()})
}

// WatchStore reloads the board whenever another process changes the store.
// Stores that push notifications are watched directly; others are polled.
// It blocks until ctx is done and returns false right away when the store
// can be neither watched nor polled.
func (a *App) WatchStore(ctx context.Context) (bool, error) {
	if w, ok := a.store.(watcher); ok {
		supported, err := w.Watch(ctx, func() { a.Reload(ctx) })
		if supported || err != nil {
			return supported, err
		}
	}
	if f, ok := a.store.(fingerprinter); ok {
		a.log.Debug().Dur("interval", a.poll).Msg("polling store for changes")
		p := &boardPoller{app: a, src: f, interval: a.poll}
		return true, p.run(ctx)
	}
	return false, nil
}
