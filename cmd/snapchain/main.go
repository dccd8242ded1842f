package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/martijn/snapchain/internal/cli"
)

func main() {
	// Cancel running engine commands on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
