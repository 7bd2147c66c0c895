package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/quarry-labs/recall/internal/adapters/driving/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(cli.Execute(ctx))
}
