// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package swarm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/witong42/OpenSpore/pkg/logger"
)

const (
	// DefaultMaxSpores caps concurrently running sub-spores process-wide.
	DefaultMaxSpores = 6
	// DefaultSporeTimeout is how long a sub-spore may run before it is killed.
	DefaultSporeTimeout = 180 * time.Second

	// EnvSporeMarker identifies a process as a sub-spore. A marked
	// process must not delegate further and must not write the parent's
	// journal.
	EnvSporeMarker = "OPENSPORE_SPORE"
	// EnvSporeRole carries the delegated role into the sub-spore.
	EnvSporeRole = "OPENSPORE_ROLE"
)

// sporePermits is the global permit pool gating sub-spore spawns.
// One permit is held for the full spawn+wait lifetime of a job.
var sporePermits = make(chan struct{}, DefaultMaxSpores)

// Configure resizes the global permit pool. Call once at startup,
// before any Spawn.
func Configure(maxSpores int) {
	if maxSpores > 0 {
		sporePermits = make(chan struct{}, maxSpores)
	}
}

// FailureKind classifies why a sub-spore produced no output.
type FailureKind int

const (
	FailureSpawnError FailureKind = iota
	FailureTimeout
	FailureNonZeroExit
)

func (k FailureKind) String() string {
	switch k {
	case FailureSpawnError:
		return "spawn error"
	case FailureTimeout:
		return "timeout"
	case FailureNonZeroExit:
		return "non-zero exit"
	default:
		return "unknown"
	}
}

// SporeFailure is the error returned for every non-success outcome.
type SporeFailure struct {
	Kind     FailureKind
	ExitCode int
	Stderr   string
	Err      error
}

func (f *SporeFailure) Error() string {
	switch f.Kind {
	case FailureTimeout:
		return fmt.Sprintf("sub-spore timeout after %s", DefaultSporeTimeout)
	case FailureNonZeroExit:
		return fmt.Sprintf("sub-spore failed (exit %d):\n%s", f.ExitCode, f.Stderr)
	default:
		return fmt.Sprintf("sub-spore spawn error: %v", f.Err)
	}
}

func (f *SporeFailure) Unwrap() error { return f.Err }

// IsSpore reports whether this process is itself a sub-spore.
func IsSpore() bool {
	return strings.EqualFold(os.Getenv(EnvSporeMarker), "true")
}

// Role returns the role assigned to this sub-spore process, if any.
func Role() string {
	return os.Getenv(EnvSporeRole)
}

type SwarmManager struct {
	binaryPath string
	timeout    time.Duration

	// newCommand builds the sub-spore process; replaced in tests.
	newCommand func(task, role string) *exec.Cmd
}

func NewSwarmManager(timeout time.Duration) *SwarmManager {
	binaryPath, err := os.Executable()
	if err != nil {
		binaryPath = "openspore"
	}
	if timeout <= 0 {
		timeout = DefaultSporeTimeout
	}

	m := &SwarmManager{binaryPath: binaryPath, timeout: timeout}
	m.newCommand = func(task, role string) *exec.Cmd {
		cmd := exec.Command(m.binaryPath, "think", task, "--role", role)
		cmd.Env = append(os.Environ(),
			EnvSporeMarker+"=true",
			EnvSporeRole+"="+role,
		)
		return cmd
	}
	return m
}

// Spawn runs one delegated task in an independent agent process and
// returns its trimmed stdout. It blocks until a permit is free; the
// permit is released on every exit path.
func (m *SwarmManager) Spawn(ctx context.Context, task, role string) (string, error) {
	select {
	case sporePermits <- struct{}{}:
	case <-ctx.Done():
		return "", &SporeFailure{Kind: FailureSpawnError, Err: ctx.Err()}
	}
	defer func() { <-sporePermits }()

	logger.InfoCF("swarm", "Spawning sub-spore",
		map[string]interface{}{"role": role, "task": task})

	cmd := m.newCommand(task, role)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &SporeFailure{Kind: FailureSpawnError, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return strings.TrimSpace(stdout.String()), nil
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return "", &SporeFailure{
			Kind:     FailureNonZeroExit,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String() + "\n" + stdout.String()),
			Err:      err,
		}
	case <-time.After(m.timeout):
		// Kill so the OS process is reclaimed along with the permit.
		cmd.Process.Kill()
		<-done
		logger.WarnCF("swarm", "Sub-spore timed out",
			map[string]interface{}{"role": role, "timeout": m.timeout.String()})
		return "", &SporeFailure{Kind: FailureTimeout}
	}
}

// Discovery lists live sub-spore processes from the process table.
func (m *SwarmManager) Discovery(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "ps", "aux").Output()
	if err != nil {
		return nil, err
	}

	var spores []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "openspore think") && !strings.Contains(line, "grep") {
			spores = append(spores, line)
		}
	}
	return spores, nil
}
