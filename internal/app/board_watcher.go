package app

import (
	"context"
	"time"
)

const defaultPollInterval = 2 * time.Second

type fingerprinter interface {
	Fingerprint(ctx context.Context) (string, error)
}

// boardPoller polls the store for changes to the board, detecting external
// modifications (e.g. from another CLI process or an MCP server) on backends
// that cannot push change notifications.
type boardPoller struct {
	app      *App
	src      fingerprinter
	interval time.Duration
	last     string
}

// run polls until ctx is done.
func (p *boardPoller) run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Baseline; the first poll only reports differences from here.
	p.last, _ = p.src.Fingerprint(ctx)

	for {
		select {
		case <-ticker.C:
			p.check(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *boardPoller) check(ctx context.Context) {
	fp, err := p.src.Fingerprint(ctx)
	if err != nil {
		p.app.log.Debug().Err(err).Msg("poll board")
		return
	}
	if fp == p.last {
		return
	}
	p.last = fp
	p.app.Reload(ctx)
}
