package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals are the signals that stop a saturn command.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler returns a context cancelled on the first SIGINT or
// SIGTERM, so an in-flight submission can unwind and persist its outcome
// instead of dying mid-transaction.
func SetupSignalHandler() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), shutdownSignals...)
	return ctx
}

// WaitForShutdown blocks until a shutdown signal arrives or ctx is
// cancelled. It returns the signal that ended the wait, or nil when the
// context cancelled first.
func WaitForShutdown(ctx context.Context) os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		return sig
	case <-ctx.Done():
		return nil
	}
}
