package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// GracefulShutdown waits for an interrupt or for ctx to end, runs cleanup
// once and cancels ctx.
func GracefulShutdown(ctx context.Context, cancel context.CancelFunc, cleanup func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
	case <-ctx.Done():
	}

	if cleanup != nil {
		cleanup()
	}
	cancel()
}
