package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stickers/internal/cli"
	"stickers/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cli.Run(ctx, os.Args[1:], cli.IO{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Environ: config.Environ(),
	})
	stop()
	os.Exit(code)
}
