package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestContinuousStopsAtBatchLimit(t *testing.T) {
	h := newHarness(1, 2, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.orch.RunContinuous(ctx, BatchOptions{}, 2); err != nil {
		t.Fatalf("RunContinuous: %v", err)
	}

	stats := h.orch.Stats()
	if stats.BatchesExecuted != 2 {
		t.Fatalf("batches = %d, want exactly the limit of 2", stats.BatchesExecuted)
	}
	if h.monitor.logCalls == 0 || h.monitor.cleanupCalls == 0 {
		t.Fatalf("usage log/cleanup never ran: log=%d cleanup=%d",
			h.monitor.logCalls, h.monitor.cleanupCalls)
	}
}

func TestContinuousHaltsOnEmergency(t *testing.T) {
	h := newHarness(1, 2)
	h.monitor.emergency = true
	h.monitor.reasons = []string{"memory exhausted: 97.0%"}
	h.lifecycle.running = []int{1, 2}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.orch.RunContinuous(ctx, BatchOptions{}, 0); err != nil {
		t.Fatalf("RunContinuous: %v", err)
	}

	if h.orch.Stats().BatchesExecuted != 0 {
		t.Fatal("batch executed despite emergency halt")
	}
	// Final cleanup must stop whatever is still running.
	if len(h.lifecycle.shutdownCalls) != 1 {
		t.Fatalf("cleanup shutdowns = %d, want 1", len(h.lifecycle.shutdownCalls))
	}
	if got := h.lifecycle.shutdownCalls[0]; len(got) != 2 {
		t.Fatalf("cleanup covered %v, want both running instances", got)
	}
}

func TestContinuousCancellation(t *testing.T) {
	h := newHarness(1, 2)
	h.orch.batch.IntervalSec = 3600 // force a real wait after the first batch

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.RunContinuous(ctx, BatchOptions{}, 0) }()

	// Give the first batch time to finish, then cancel during the sleep.
	deadline := time.After(10 * time.Second)
	for h.orch.Stats().BatchesExecuted == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("first batch never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(35 * time.Second):
		t.Fatal("cancellation not honored during interval sleep")
	}
}

func TestInterruptibleSleepSlices(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled context returns promptly even for a long wait.
	began := time.Now()
	if h.orch.interruptibleSleep(ctx, time.Hour) {
		t.Fatal("sleep survived a cancelled context")
	}
	if time.Since(began) > 5*time.Second {
		t.Fatal("sleep did not return promptly on cancellation")
	}
}
