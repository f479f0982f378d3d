// Package cli implements the stickers command: one subcommand per board
// operation plus long-running watch and mcp modes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"stickers/internal/app"
	"stickers/internal/config"
	"stickers/internal/domain"
	"stickers/internal/kv"
	"stickers/internal/logging"
	mcpserver "stickers/internal/mcp"
	"stickers/internal/service"
	"stickers/internal/storage"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Placeholder is shown for stickers without text.
const Placeholder = "Double-click to edit"

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage")

// IO bundles the streams and environment a command runs with.
type IO struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Environ map[string]string
}

type command struct {
	name  string
	args  string
	help  string
	flags func(fs *pflag.FlagSet) any
	run   func(ctx context.Context, s *session, rest []string) error
}

var commands = []command{
	{name: "list", help: "show every sticker", flags: listFlags, run: runList},
	{name: "add", args: "[text...]", help: "add a sticker at a random spot", run: runAdd},
	{name: "edit", args: "<id> <text...>", help: "replace a sticker's text", run: runEdit},
	{name: "move", args: "<id> <x> <y>", help: "move a sticker, clamped to the viewport", run: runMove},
	{name: "drag", args: "<id> <dx> <dy>", help: "drag a sticker by an offset", run: runDrag},
	{name: "delete", args: "<id>", help: "delete a sticker", run: runDelete},
	{name: "clear", help: "remove every sticker and reset ids", flags: clearFlags, run: runClear},
	{name: "watch", help: "print the board whenever another process changes it", run: runWatch},
	{name: "mcp", help: "serve the board to AI agents over MCP stdio", run: runMCP},
}

// session is everything a subcommand needs once configuration is parsed.
type session struct {
	io     IO
	cfg    config.Config
	log    *logging.Logger
	boards *storage.BoardStore
	app    *app.App
	extra  any
}

// Run executes the subcommand in args[0] and returns the process exit code.
func Run(ctx context.Context, args []string, streams IO) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(streams.Stderr)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}

	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(streams.Stderr, "stickers: unknown command %q\n\n", args[0])
		usage(streams.Stderr)
		return ExitUsage
	}

	fs := pflag.NewFlagSet("stickers "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(streams.Stderr)
	// Stop at the first positional so negative coordinates are not read as flags.
	fs.SetInterspersed(false)
	var extra any
	if cmd.flags != nil {
		extra = cmd.flags(fs)
	}
	cfg, rest, err := config.Parse(fs, args[1:], streams.Environ)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(streams.Stderr, "stickers %s: %v\n", cmd.name, err)
		return ExitUsage
	}

	s, closeFn, err := open(ctx, cfg, streams)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "stickers: %v\n", err)
		return ExitError
	}
	defer closeFn()
	s.extra = extra

	if err := cmd.run(ctx, s, rest); err != nil {
		fmt.Fprintf(streams.Stderr, "stickers %s: %v\n", cmd.name, err)
		if errors.Is(err, errUsage) {
			fmt.Fprintf(streams.Stderr, "usage: stickers %s [flags] %s\n", cmd.name, cmd.args)
			return ExitUsage
		}
		return ExitError
	}
	return ExitOK
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: stickers <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %-16s %s\n", c.name, c.args, c.help)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags must come before arguments. Run 'stickers <command> --help' for flags.")
}

// open wires logger, store and controller for one invocation.
func open(ctx context.Context, cfg config.Config, streams IO) (*session, func(), error) {
	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Path:    cfg.LogFile,
		Writer:  streams.Stderr,
		Console: true,
	})
	if err != nil {
		return nil, nil, err
	}

	opts, err := cfg.StoreOptions()
	if err != nil {
		logger.Close()
		return nil, nil, err
	}
	store, err := kv.Open(ctx, opts)
	if err != nil {
		logger.Close()
		return nil, nil, fmt.Errorf("open %s store: %w", opts.Driver, err)
	}
	logger.Debug().Str("driver", string(opts.Driver)).Msg("store opened")

	boards := storage.NewBoardStore(store, logger.Logger)
	a := app.New(boards, service.NewBoardManager(nil),
		app.WithLogger(logger.Logger),
		app.WithEmitter(service.LogEmitter{Log: logger.Logger}),
		app.WithViewport(cfg.Viewport()),
		app.WithPollInterval(cfg.PollInterval),
	)
	a.Startup(ctx)

	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
		logger.Close()
	}
	return &session{io: streams, cfg: cfg, log: logger, boards: boards, app: a}, closeFn, nil
}

// ── argument helpers ───────────────────────────────────────

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid sticker id %q", errUsage, s)
	}
	return id, nil
}

func parseNumber(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: invalid %s %q", errUsage, name, s)
	}
	return v, nil
}

func exactArgs(rest []string, n int) error {
	if len(rest) != n {
		return fmt.Errorf("%w: expected %d arguments, got %d", errUsage, n, len(rest))
	}
	return nil
}

// ── list ───────────────────────────────────────────────────

type listOptions struct {
	json bool
}

func listFlags(fs *pflag.FlagSet) any {
	o := &listOptions{}
	fs.BoolVar(&o.json, "json", false, "print the board as JSON")
	return o
}

func runList(ctx context.Context, s *session, rest []string) error {
	if err := exactArgs(rest, 0); err != nil {
		return err
	}
	b := s.app.Board()
	if o, _ := s.extra.(*listOptions); o != nil && o.json {
		if b.Stickers == nil {
			b.Stickers = []domain.Sticker{}
		}
		enc := json.NewEncoder(s.io.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	if len(b.Stickers) == 0 {
		fmt.Fprintln(s.io.Stdout, "No stickers yet. Add one with 'stickers add'.")
		return nil
	}
	renderTable(s.io.Stdout, b.Stickers)
	return nil
}

func renderTable(w io.Writer, stickers []domain.Sticker) {
	sorted := append([]domain.Sticker(nil), stickers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "X", "Y", "Color", "Text"})
	table.SetAutoWrapText(false)
	for _, st := range sorted {
		text := st.Text
		if text == "" {
			text = Placeholder
		}
		table.Append([]string{
			strconv.Itoa(st.ID),
			strconv.FormatFloat(st.X, 'f', -1, 64),
			strconv.FormatFloat(st.Y, 'f', -1, 64),
			st.Color,
			strings.ReplaceAll(text, "\n", " ⏎ "),
		})
	}
	table.Render()
}

// ── mutations ──────────────────────────────────────────────

func runAdd(ctx context.Context, s *session, rest []string) error {
	st := s.app.AddSticker(ctx)
	if len(rest) > 0 {
		st, _ = s.app.UpdateSticker(ctx, st.ID, domain.StickerPatch{Text: domain.String(strings.Join(rest, " "))})
	}
	fmt.Fprintf(s.io.Stdout, "Added sticker %d at (%g, %g)\n", st.ID, st.X, st.Y)
	return nil
}

func runEdit(ctx context.Context, s *session, rest []string) error {
	if len(rest) < 1 {
		return fmt.Errorf("%w: missing sticker id", errUsage)
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	if _, ok := s.app.UpdateSticker(ctx, id, domain.StickerPatch{Text: domain.String(strings.Join(rest[1:], " "))}); !ok {
		return fmt.Errorf("no sticker with id %d", id)
	}
	fmt.Fprintf(s.io.Stdout, "Updated sticker %d\n", id)
	return nil
}

func runMove(ctx context.Context, s *session, rest []string) error {
	id, x, y, err := idAndPair(rest, "x", "y")
	if err != nil {
		return err
	}
	st, ok := s.app.MoveSticker(ctx, id, x, y)
	if !ok {
		return fmt.Errorf("no sticker with id %d", id)
	}
	fmt.Fprintf(s.io.Stdout, "Moved sticker %d to (%g, %g)\n", id, st.X, st.Y)
	return nil
}

func runDrag(ctx context.Context, s *session, rest []string) error {
	id, dx, dy, err := idAndPair(rest, "dx", "dy")
	if err != nil {
		return err
	}
	origin, ok := s.app.BeginDrag(id)
	if !ok {
		return fmt.Errorf("no sticker with id %d", id)
	}
	s.app.EndDrag(ctx, origin, dx, dy)
	st, _ := s.app.Board().Find(id)
	fmt.Fprintf(s.io.Stdout, "Dragged sticker %d to (%g, %g)\n", id, st.X, st.Y)
	return nil
}

func idAndPair(rest []string, a, b string) (int, float64, float64, error) {
	if err := exactArgs(rest, 3); err != nil {
		return 0, 0, 0, err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return 0, 0, 0, err
	}
	va, err := parseNumber(a, rest[1])
	if err != nil {
		return 0, 0, 0, err
	}
	vb, err := parseNumber(b, rest[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return id, va, vb, nil
}

func runDelete(ctx context.Context, s *session, rest []string) error {
	if err := exactArgs(rest, 1); err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	if !s.app.DeleteSticker(ctx, id) {
		return fmt.Errorf("no sticker with id %d", id)
	}
	fmt.Fprintf(s.io.Stdout, "Deleted sticker %d\n", id)
	return nil
}

type clearOptions struct {
	yes bool
}

func clearFlags(fs *pflag.FlagSet) any {
	o := &clearOptions{}
	fs.BoolVarP(&o.yes, "yes", "y", false, "confirm deleting every sticker")
	return o
}

func runClear(ctx context.Context, s *session, rest []string) error {
	if err := exactArgs(rest, 0); err != nil {
		return err
	}
	n := len(s.app.Board().Stickers)
	if o, _ := s.extra.(*clearOptions); o == nil || !o.yes {
		return fmt.Errorf("%w: this deletes all %d stickers; pass --yes to confirm", errUsage, n)
	}
	s.app.ClearAll(ctx)
	if n == 0 {
		fmt.Fprintln(s.io.Stdout, "Nothing to clear.")
		return nil
	}
	fmt.Fprintf(s.io.Stdout, "Cleared %d stickers\n", n)
	return nil
}

// ── long-running modes ─────────────────────────────────────

// printEmitter renders every board change as a table.
type printEmitter struct {
	w io.Writer
}

func (e printEmitter) Emit(_ context.Context, event string, data any) {
	change, ok := data.(app.BoardChange)
	if !ok {
		return
	}
	fmt.Fprintf(e.w, "%s: %d stickers\n", event, len(change.Board.Stickers))
	if len(change.Board.Stickers) > 0 {
		renderTable(e.w, change.Board.Stickers)
	}
}

func runWatch(ctx context.Context, s *session, rest []string) error {
	if err := exactArgs(rest, 0); err != nil {
		return err
	}
	if driver, _ := kv.ParseDriver(s.cfg.Store); driver == kv.DriverMemory {
		return fmt.Errorf("the memory store cannot be watched; it is private to this process")
	}
	out := printEmitter{w: s.io.Stdout}
	watched := app.New(s.boards, service.NewBoardManager(nil),
		app.WithLogger(s.log.Logger),
		app.WithEmitter(out),
		app.WithViewport(s.cfg.Viewport()),
		app.WithPollInterval(s.cfg.PollInterval),
	)
	watched.Startup(ctx)
	out.Emit(ctx, "board", app.BoardChange{SessionID: watched.SessionID(), Board: watched.Board()})

	ok, err := watched.WatchStore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("the %s store cannot be watched; use --store file", s.cfg.Store)
	}
	return nil
}

func runMCP(ctx context.Context, s *session, rest []string) error {
	if err := exactArgs(rest, 0); err != nil {
		return err
	}
	srv := mcpserver.New(s.app, s.log.Logger)
	if driver, _ := kv.ParseDriver(s.cfg.Store); driver == kv.DriverMemory {
		return srv.ServeStdio()
	}
	// Pick up edits made by other processes (e.g. the CLI) while serving.
	return serveWhileWatching(ctx, func(ctx context.Context) {
		if _, err := s.app.WatchStore(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("watch store")
		}
	}, srv.ServeStdio)
}

// serveWhileWatching runs watch in the background for as long as serve runs.
// When serve returns, watch is cancelled and has returned too, so the caller
// may close the store.
func serveWhileWatching(ctx context.Context, watch func(ctx context.Context), serve func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	return serve()
}
