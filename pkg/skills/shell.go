// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package skills

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"
)

const execTimeout = 60 * time.Second

// execDenyPatterns blocks obviously destructive shell commands before
// they reach the OS.
var execDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\b(format|mkfs|diskpart)\b\s`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`>\s*/dev/sd[a-z]\b`),
	regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`),
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`),
}

type ExecSkill struct {
	workingDir string
}

func NewExecSkill(workingDir string) *ExecSkill {
	return &ExecSkill{workingDir: workingDir}
}

func (s *ExecSkill) Name() string { return "exec" }

func (s *ExecSkill) Description() string {
	return "Execute a shell command in the workspace. Usage: [EXEC: \"command\"]"
}

func (s *ExecSkill) Execute(ctx context.Context, arg string) (string, error) {
	command := SanitizePath(arg)
	if command == "" {
		return "", fmt.Errorf("usage: [EXEC: \"command\"]")
	}

	for _, pattern := range execDenyPatterns {
		if pattern.MatchString(command) {
			return "", fmt.Errorf("command blocked by safety guard")
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	if s.workingDir != "" {
		cmd.Dir = s.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\nSTDERR:\n" + stderr.String()
	}

	if err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %v", execTimeout)
		}
		return "", fmt.Errorf("command failed (%v):\n%s", err, output)
	}

	if output == "" {
		output = "(no output)"
	}

	const maxLen = 10000
	if len(output) > maxLen {
		output = output[:maxLen] + fmt.Sprintf("\n... (truncated, %d more chars)", len(output)-maxLen)
	}

	return output, nil
}
