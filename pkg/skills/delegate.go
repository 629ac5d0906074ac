// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/witong42/OpenSpore/pkg/swarm"
)

const defaultSporeRole = "GeneralExpert"

type DelegateSkill struct {
	swarm *swarm.SwarmManager
}

func NewDelegateSkill(manager *swarm.SwarmManager) *DelegateSkill {
	return &DelegateSkill{swarm: manager}
}

func (s *DelegateSkill) Name() string { return "delegate" }

func (s *DelegateSkill) Description() string {
	return "Spawn a specialized sub-spore for parallel task execution.\n" +
		"Usage: [DELEGATE: \"task description\" --role=\"ExpertRole\"]"
}

func (s *DelegateSkill) Execute(ctx context.Context, arg string) (string, error) {
	taskPart, role, hasRole := flagValue(arg, "--role=")
	task := strings.Trim(strings.TrimSpace(taskPart), `"'`)
	if task == "" {
		return "", fmt.Errorf("usage: [DELEGATE: \"task\" --role=\"ExpertRole\"]")
	}
	if !hasRole || role == "" {
		role = defaultSporeRole
	}

	output, err := s.swarm.Spawn(ctx, task, role)
	if err != nil {
		return "", fmt.Errorf("delegation failed: %w", err)
	}

	return fmt.Sprintf("--- Sub-spore report (Role: %s) ---\n%s", role, output), nil
}
