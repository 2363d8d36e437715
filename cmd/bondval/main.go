package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bondval/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd, app := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if closeErr := app.Close(); closeErr != nil {
		app.Logger.Warn().Err(closeErr).Msg("Shutdown incomplete")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
