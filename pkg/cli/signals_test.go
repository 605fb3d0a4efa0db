package cli

import (
	"context"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()

	// No signal has been delivered, so the context must still be live.
	select {
	case <-ctx.Done():
		t.Error("context cancelled without a signal")
	default:
	}

	if ctx.Done() == nil {
		t.Error("context should expose a Done channel")
	}
}

func TestWaitForShutdown_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if sig := WaitForShutdown(ctx); sig != nil {
		t.Errorf("expected nil signal when the context cancels first, got %v", sig)
	}
}
