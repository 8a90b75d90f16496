package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSignalContextNotCancelledInitially(t *testing.T) {
	ctx, stop := SignalContext(context.Background())
	defer stop()

	select {
	case <-ctx.Done():
		t.Error("context cancelled before any signal")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSignalContextCancelsOnSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal test in short mode")
	}

	ctx, stop := SignalContext(context.Background())
	defer stop()

	go func() {
		time.Sleep(50 * time.Millisecond)
		p, _ := os.FindProcess(os.Getpid())
		_ = p.Signal(syscall.SIGTERM)
	}()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after SIGTERM")
	}
}

func TestWaitForShutdownEmptyInitially(t *testing.T) {
	ch := WaitForShutdown()
	if ch == nil {
		t.Fatal("WaitForShutdown() returned nil channel")
	}

	select {
	case sig := <-ch:
		t.Errorf("unexpected signal %v before any was sent", sig)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestWaitForShutdownReceivesSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal test in short mode")
	}

	ch := WaitForShutdown()

	go func() {
		time.Sleep(50 * time.Millisecond)
		p, _ := os.FindProcess(os.Getpid())
		_ = p.Signal(syscall.SIGTERM)
	}()

	select {
	case sig := <-ch:
		if sig != syscall.SIGTERM {
			t.Errorf("received %v, want SIGTERM", sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}
}
