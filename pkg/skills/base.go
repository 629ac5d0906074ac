// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package skills

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Skill is a named unit of executable behavior. The argument is an
// opaque string owned by the skill; each skill documents its own
// argument syntax in Description.
type Skill interface {
	Name() string
	Description() string
	Execute(ctx context.Context, arg string) (string, error)
}

// SkillLoader is the skill registry. Populated once at startup,
// lookup is case-insensitive.
type SkillLoader struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

func NewSkillLoader() *SkillLoader {
	return &SkillLoader{skills: make(map[string]Skill)}
}

func (l *SkillLoader) Register(s Skill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skills[strings.ToUpper(s.Name())] = s
}

func (l *SkillLoader) Get(name string) (Skill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.skills[strings.ToUpper(name)]
	return s, ok
}

func (l *SkillLoader) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// Names returns the registered skill names in invocation form
// (uppercase), sorted.
func (l *SkillLoader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.skills))
	for name := range l.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manual renders the skills reference injected into the system prompt.
// Skills named in exclude are omitted (sub-spores lose DELEGATE).
func (l *SkillLoader) Manual(exclude ...string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[strings.ToUpper(name)] = true
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.skills))
	for name := range l.skills {
		if !excluded[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("## AVAILABLE SKILLS\n")
	for _, name := range names {
		fmt.Fprintf(&b, "\n### %s\n%s\n", name, l.skills[name].Description())
	}
	return b.String()
}
