// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package agent

import (
	"github.com/witong42/OpenSpore/pkg/config"
	"github.com/witong42/OpenSpore/pkg/memory"
	"github.com/witong42/OpenSpore/pkg/providers"
	"github.com/witong42/OpenSpore/pkg/skills"
	"github.com/witong42/OpenSpore/pkg/swarm"
)

// Agent drives one conversation at a time: it completes against the
// provider, extracts tool invocations from the reply, runs them, and
// feeds the results back until the model answers in plain text or the
// depth limit trips.
type Agent struct {
	provider  providers.CompletionProvider
	loader    *skills.SkillLoader
	store     *memory.Store
	workspace string
	maxDepth  int
	isSpore   bool
	role      string

	// events receives progress notifications; nil means no observer.
	// Sends never block.
	events chan<- AgentEvent

	// learnEnabled gates the background memory-extraction pass that
	// runs after a turn completes. Off for sub-spores and in tests.
	learnEnabled bool
}

// defaultMaxDepth bounds the tool loop when configuration does not say
// otherwise.
const defaultMaxDepth = 12

// New builds an agent from loaded configuration. The skill loader is
// provided by the caller so channel glue and tests can swap skills in.
func New(cfg *config.Config, provider providers.CompletionProvider, loader *skills.SkillLoader, store *memory.Store) *Agent {
	maxDepth := cfg.Agents.Defaults.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	isSpore := swarm.IsSpore()
	return &Agent{
		provider:     provider,
		loader:       loader,
		store:        store,
		workspace:    cfg.WorkspacePath(),
		maxDepth:     maxDepth,
		isSpore:      isSpore,
		role:         swarm.Role(),
		learnEnabled: !isSpore,
	}
}

// SetObserver attaches an event channel. The loop works identically
// with or without one; a full channel only drops events.
func (a *Agent) SetObserver(ch chan<- AgentEvent) {
	a.events = ch
}
