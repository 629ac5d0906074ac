package swarm

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestManager(t *testing.T, timeout time.Duration, script string) *SwarmManager {
	t.Helper()
	m := NewSwarmManager(timeout)
	m.newCommand = func(task, role string) *exec.Cmd {
		return exec.Command("sh", "-c", script)
	}
	return m
}

func TestSpawn_Success(t *testing.T) {
	m := newTestManager(t, time.Minute, `printf '  result text\n'`)

	out, err := m.Spawn(context.Background(), "task", "Tester")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if out != "result text" {
		t.Errorf("stdout not trimmed: %q", out)
	}
}

func TestSpawn_NonZeroExit(t *testing.T) {
	m := newTestManager(t, time.Minute, `echo boom >&2; exit 3`)

	_, err := m.Spawn(context.Background(), "task", "Tester")
	if err == nil {
		t.Fatal("expected failure")
	}
	failure, ok := err.(*SporeFailure)
	if !ok {
		t.Fatalf("error type: %T", err)
	}
	if failure.Kind != FailureNonZeroExit {
		t.Errorf("kind: got %v", failure.Kind)
	}
	if failure.ExitCode != 3 {
		t.Errorf("exit code: got %d, want 3", failure.ExitCode)
	}
	if !strings.Contains(failure.Stderr, "boom") {
		t.Errorf("stderr not captured: %q", failure.Stderr)
	}
}

func TestSpawn_Timeout(t *testing.T) {
	m := newTestManager(t, 100*time.Millisecond, `sleep 30`)

	start := time.Now()
	_, err := m.Spawn(context.Background(), "task", "Tester")
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	failure, ok := err.(*SporeFailure)
	if !ok || failure.Kind != FailureTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	// The process must have been killed, not waited out.
	if time.Since(start) > 5*time.Second {
		t.Error("timed-out spore was not killed promptly")
	}
}

func TestSpawn_PermitReleasedOnTimeout(t *testing.T) {
	Configure(1)
	defer Configure(DefaultMaxSpores)

	m := newTestManager(t, 50*time.Millisecond, `sleep 30`)
	if _, err := m.Spawn(context.Background(), "a", "r"); err == nil {
		t.Fatal("expected timeout")
	}

	// A second spawn must acquire the single permit immediately.
	m2 := newTestManager(t, time.Minute, `echo ok`)
	done := make(chan struct{})
	go func() {
		m2.Spawn(context.Background(), "b", "r")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("permit leaked after timeout")
	}
}

func TestSpawn_AtMostSixConcurrent(t *testing.T) {
	Configure(6)
	defer Configure(DefaultMaxSpores)

	var inFlight, peak atomic.Int32
	m := NewSwarmManager(time.Minute)
	m.newCommand = func(task, role string) *exec.Cmd {
		// The permit is already held when the command runs.
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return exec.Command("sh", "-c", "sleep 0.2; true")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Spawn(context.Background(), "task", "r"); err != nil {
				t.Errorf("Spawn: %v", err)
			}
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 6 {
		t.Errorf("peak concurrency %d exceeds permit pool of 6", got)
	}
	if got := peak.Load(); got < 2 {
		t.Errorf("expected real concurrency, peak was %d", got)
	}
}

func TestSpawn_ContextCancelledWhileWaitingForPermit(t *testing.T) {
	Configure(1)
	defer Configure(DefaultMaxSpores)

	blocker := newTestManager(t, time.Minute, `sleep 1`)
	go blocker.Spawn(context.Background(), "hold", "r")
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m := newTestManager(t, time.Minute, `echo never`)
	_, err := m.Spawn(ctx, "task", "r")
	if err == nil {
		t.Fatal("expected error while waiting for permit")
	}
	if failure, ok := err.(*SporeFailure); !ok || failure.Kind != FailureSpawnError {
		t.Errorf("expected spawn error kind, got %v", err)
	}
}
