package pipeline

import (
	"testing"
)

func TestOrchestratorRejectsSubmitAfterStop(t *testing.T) {
	cfg := testRunnerConfig()
	orch := NewOrchestrator(cfg, NewRunner(cfg, testLogger()), testLogger())

	orch.Stop()

	run := NewRun("https://example.com/docs", "auto")
	if err := orch.Submit(run); err == nil {
		t.Fatal("expected error submitting to a stopped orchestrator")
	}
	if snap := run.Snapshot(); snap.Status != StatusFailed {
		t.Errorf("status = %q, want failed", snap.Status)
	}

	// Stopping twice must not panic.
	orch.Stop()
}

func TestOrchestratorQueueFull(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.MaxQueueSize = 1
	orch := NewOrchestrator(cfg, NewRunner(cfg, testLogger()), testLogger())

	// Workers never started, so the first run occupies the whole queue.
	if err := orch.Submit(NewRun("https://example.com/a", "auto")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	overflow := NewRun("https://example.com/b", "auto")
	if err := orch.Submit(overflow); err == nil {
		t.Fatal("expected queue-full error")
	}
	if snap := overflow.Snapshot(); snap.Status != StatusFailed {
		t.Errorf("status = %q, want failed", snap.Status)
	}
}
