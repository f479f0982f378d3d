package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickers/internal/app"
	"stickers/internal/domain"
	"stickers/internal/kv"
	"stickers/internal/service"
	"stickers/internal/storage"
)

type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0.5 }
func (fixedRand) IntN(int) int     { return 2 }

// countingStore counts writes that reach the kv layer.
type countingStore struct {
	kv.Store
	sets    int
	removes int
}

func (c *countingStore) Set(ctx context.Context, key, value string) error {
	c.sets++
	return c.Store.Set(ctx, key, value)
}

func (c *countingStore) Remove(ctx context.Context, key string) error {
	c.removes++
	return c.Store.Remove(ctx, key)
}

type fixture struct {
	app     *app.App
	kv      *countingStore
	boards  *storage.BoardStore
	emitter *service.MockEmitter
}

func newFixture(t *testing.T, backing kv.Store) fixture {
	t.Helper()
	counting := &countingStore{Store: backing}
	boards := storage.NewBoardStore(counting, zerolog.Nop())
	emitter := &service.MockEmitter{}
	a := app.New(boards, service.NewBoardManager(fixedRand{}),
		app.WithEmitter(emitter),
		app.WithViewport(domain.Viewport{Width: 1440, Height: 900}),
	)
	a.Startup(context.Background())
	return fixture{app: a, kv: counting, boards: boards, emitter: emitter}
}

func TestApp_StartupEmpty(t *testing.T) {
	f := newFixture(t, kv.NewMemoryStore(0))
	assert.Equal(t, domain.EmptyBoard(), f.app.Board())
	assert.Zero(t, f.kv.sets, "loading must not write")
	assert.Empty(t, f.emitter.Events)
}

func TestApp_AddPersistsAndEmits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))

	s := f.app.AddSticker(ctx)
	assert.Equal(t, 1, s.ID)
	assert.Equal(t, 620.0, s.X)
	assert.Equal(t, 350.0, s.Y)
	assert.Equal(t, domain.Palette[2], s.Color)

	saved, ok := f.boards.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, f.app.Board(), saved)
	assert.Equal(t, 2, saved.NextID)

	require.Equal(t, []string{service.EventBoardChanged}, f.emitter.Names())
	change, ok := f.emitter.Events[0].Data.(app.BoardChange)
	require.True(t, ok)
	assert.Equal(t, f.app.SessionID(), change.SessionID)
	assert.Len(t, change.Board.Stickers, 1)
}

func TestApp_StartupRestoresSavedBoard(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore(0)

	first := newFixture(t, mem)
	first.app.AddSticker(ctx)
	first.app.AddSticker(ctx)
	first.app.DeleteSticker(ctx, 1)

	second := newFixture(t, mem)
	b := second.app.Board()
	require.Len(t, b.Stickers, 1)
	assert.Equal(t, 2, b.Stickers[0].ID)
	assert.Equal(t, 3, b.NextID)

	s := second.app.AddSticker(ctx)
	assert.Equal(t, 3, s.ID, "ids continue from the saved counter")
}

func TestApp_NoOpsDoNotWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)
	sets := f.kv.sets
	events := len(f.emitter.Events)

	_, ok := f.app.UpdateSticker(ctx, 99, domain.StickerPatch{Text: domain.String("x")})
	assert.False(t, ok)
	assert.False(t, f.app.DeleteSticker(ctx, 99))
	_, ok = f.app.MoveSticker(ctx, 99, 10, 10)
	assert.False(t, ok)
	_, ok = f.app.UpdateSticker(ctx, 1, domain.StickerPatch{})
	assert.True(t, ok)

	assert.Equal(t, sets, f.kv.sets)
	assert.Len(t, f.emitter.Events, events)
}

func TestApp_UpdateAndMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)

	s, ok := f.app.UpdateSticker(ctx, 1, domain.StickerPatch{Text: domain.String("buy milk")})
	require.True(t, ok)
	assert.Equal(t, "buy milk", s.Text)

	s, ok = f.app.MoveSticker(ctx, 1, -40, 5000)
	require.True(t, ok)
	assert.Equal(t, 0.0, s.X)
	assert.Equal(t, 700.0, s.Y)

	saved, ok := f.boards.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, s, saved.Stickers[0])
}

func TestApp_DeleteLastStickerStillSaves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)
	require.True(t, f.app.DeleteSticker(ctx, 1))

	saved, ok := f.boards.Load(ctx)
	require.True(t, ok)
	assert.Empty(t, saved.Stickers)
	assert.Equal(t, 2, saved.NextID, "counter survives deleting every sticker")
}

func TestApp_ClearAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)
	f.app.AddSticker(ctx)

	f.app.ClearAll(ctx)

	assert.Equal(t, domain.EmptyBoard(), f.app.Board())
	_, ok := f.boards.Load(ctx)
	assert.False(t, ok, "storage is purged")
	assert.Equal(t, service.EventBoardCleared, f.emitter.Names()[len(f.emitter.Events)-1])

	s := f.app.AddSticker(ctx)
	assert.Equal(t, 1, s.ID, "ids restart after a clear")
}

func TestApp_Drag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)
	sets := f.kv.sets

	origin, ok := f.app.BeginDrag(1)
	require.True(t, ok)
	assert.Equal(t, domain.DragOrigin{StickerID: 1, X: 620, Y: 350}, origin)
	assert.Equal(t, sets, f.kv.sets, "beginning a drag changes nothing")

	f.app.EndDrag(ctx, origin, 100, -400)
	s, ok := f.app.Board().Find(1)
	require.True(t, ok)
	assert.Equal(t, 720.0, s.X)
	assert.Equal(t, 0.0, s.Y)

	_, ok = f.app.BeginDrag(42)
	assert.False(t, ok)
}

func TestApp_DragOfDeletedSticker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)

	origin, ok := f.app.BeginDrag(1)
	require.True(t, ok)
	f.app.DeleteSticker(ctx, 1)
	before := f.app.Board()

	f.app.EndDrag(ctx, origin, 10, 10)
	assert.Equal(t, before, f.app.Board())
}

func TestApp_SetViewportAffectsClamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))
	f.app.AddSticker(ctx)

	f.app.SetViewport(domain.Viewport{Width: 400, Height: 300})
	assert.Equal(t, domain.Viewport{Width: 400, Height: 300}, f.app.Viewport())

	s, _ := f.app.MoveSticker(ctx, 1, 1000, 1000)
	assert.Equal(t, 150.0, s.X)
	assert.Equal(t, 100.0, s.Y)
}

func TestApp_Reload(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore(0)
	f := newFixture(t, mem)
	f.app.AddSticker(ctx)

	other := storage.NewBoardStore(mem, zerolog.Nop())
	external := domain.Board{
		Stickers: []domain.Sticker{{ID: 7, X: 1, Y: 2, Width: 250, Height: 200, Text: "from elsewhere", Color: domain.Palette[0]}},
		NextID:   8,
	}
	other.Save(ctx, external)

	f.app.Reload(ctx)
	assert.Equal(t, external, f.app.Board())
	assert.Equal(t, service.EventBoardChanged, f.emitter.Names()[len(f.emitter.Events)-1])

	// A half-written store keeps the current board.
	require.NoError(t, mem.Remove(ctx, storage.KeyNextID))
	f.app.Reload(ctx)
	assert.Equal(t, external, f.app.Board())

	// A cleared store resets it.
	other.Clear(ctx)
	f.app.Reload(ctx)
	assert.Equal(t, domain.EmptyBoard(), f.app.Board())
}

// plainStore is a domain.BoardStore with no change detection.
type plainStore struct{ domain.BoardStore }

func TestApp_WatchStoreUnsupported(t *testing.T) {
	boards := storage.NewBoardStore(kv.NewMemoryStore(0), zerolog.Nop())
	a := app.New(plainStore{boards}, service.NewBoardManager(fixedRand{}))
	ok, err := a.WatchStore(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_WatchStorePolls(t *testing.T) {
	mem := kv.NewMemoryStore(0)
	boards := storage.NewBoardStore(mem, zerolog.Nop())
	emitter := &service.MockEmitter{}
	a := app.New(boards, service.NewBoardManager(fixedRand{}),
		app.WithEmitter(emitter),
		app.WithPollInterval(10*time.Millisecond),
	)
	a.Startup(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan bool)
	go func() {
		ok, _ := a.WatchStore(ctx)
		done <- ok
	}()

	time.Sleep(30 * time.Millisecond)
	storage.NewBoardStore(mem, zerolog.Nop()).Save(ctx, domain.Board{
		Stickers: []domain.Sticker{{ID: 3, X: 1, Y: 1, Width: 250, Height: 200, Text: "polled", Color: domain.Palette[1]}},
		NextID:   4,
	})

	assert.Eventually(t, func() bool {
		s, ok := a.Board().Find(3)
		return ok && s.Text == "polled"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.True(t, <-done)
}

func TestApp_WatchStoreFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := kv.OpenFileStore(dir, 0)
	require.NoError(t, err)
	defer fs.Close()

	f := newFixture(t, fs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.app.WatchStore(ctx)
	}()

	// Give the watcher a moment to register before editing from "outside".
	time.Sleep(100 * time.Millisecond)
	outside, err := kv.OpenFileStore(dir, 0)
	require.NoError(t, err)
	defer outside.Close()
	storage.NewBoardStore(outside, zerolog.Nop()).Save(ctx, domain.Board{
		Stickers: []domain.Sticker{{ID: 1, X: 5, Y: 5, Width: 250, Height: 200, Color: domain.Palette[3]}},
		NextID:   2,
	})

	assert.Eventually(t, func() bool {
		return len(f.app.Board().Stickers) == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestApp_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemoryStore(0))

	const n = 20
	done := make(chan struct{}, n)
	for range n {
		go func() {
			f.app.AddSticker(ctx)
			done <- struct{}{}
		}()
	}
	for range n {
		<-done
	}

	b := f.app.Board()
	assert.Len(t, b.Stickers, n)
	assert.Equal(t, n+1, b.NextID)
	seen := map[int]bool{}
	for _, s := range b.Stickers {
		assert.False(t, seen[s.ID], "duplicate id %d", s.ID)
		seen[s.ID] = true
	}
}
