package jobs

import (
	"testing"

	"batch-archiver/internal/domain"
)

// TestManagerLifecycle verifies normal progression to done state.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	if err := m.Start("job-1", domain.JobModeCompress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("expected running after start")
	}

	for _, status := range []domain.JobStatus{
		domain.JobStatusProcessing,
		domain.JobStatusDone,
	} {
		if err := m.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	current := m.Current()
	if current.Status != domain.JobStatusDone {
		t.Fatalf("current status = %s, want done", current.Status)
	}
	if current.Mode != domain.JobModeCompress {
		t.Fatalf("current mode = %s, want compress", current.Mode)
	}
}

// TestManagerRejectsSecondStart checks the single-active-job constraint.
func TestManagerRejectsSecondStart(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", domain.JobModeVerify); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Start("job-2", domain.JobModeCompress); err != ErrJobAlreadyRunning {
		t.Fatalf("second start error = %v, want %v", err, ErrJobAlreadyRunning)
	}
}

// TestManagerRejectsInvalidTransition checks state machine constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", domain.JobModeCompress); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Transition(domain.JobStatusDone); err == nil {
		t.Fatal("expected invalid transition error")
	}
}

// TestManagerCancel verifies cancel behavior and repeated cancel handling.
func TestManagerCancel(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", domain.JobModeVerify); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if m.Current().Status != domain.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled", m.Current().Status)
	}

	if err := m.Cancel(); err != ErrNoRunningJob {
		t.Fatalf("second cancel error = %v, want %v", err, ErrNoRunningJob)
	}
}

// TestManagerRestartsAfterTerminalState checks reuse after a finished run.
func TestManagerRestartsAfterTerminalState(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", domain.JobModeCompress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if err := m.Start("job-2", domain.JobModeVerify); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if m.Current().ID != "job-2" {
		t.Fatalf("current id = %q, want job-2", m.Current().ID)
	}
}
