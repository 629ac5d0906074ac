package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/witong42/OpenSpore/pkg/memory"
)

type MemorySaveSkill struct {
	store *memory.Store
}

func NewMemorySaveSkill(store *memory.Store) *MemorySaveSkill {
	return &MemorySaveSkill{store: store}
}

func (s *MemorySaveSkill) Name() string { return "memory_save" }

func (s *MemorySaveSkill) Description() string {
	return "Save a fact to long-term memory under a key.\n" +
		"Usage: [MEMORY_SAVE: \"key\" --content=\"the fact\"] (optional --category=core|daily|custom)"
}

func (s *MemorySaveSkill) Execute(ctx context.Context, arg string) (string, error) {
	// --category= is a single token and may appear on either side of
	// --content=, so strip it with the token parser first.
	rest, category, _ := flagToken(arg, "--category=")
	keyPart, content, hasContent := flagValue(rest, "--content=")
	if !hasContent {
		return "", fmt.Errorf("usage: [MEMORY_SAVE: \"key\" --content=\"the fact\"]")
	}

	key := strings.Trim(strings.TrimSpace(keyPart), `"'`)
	if key == "" {
		return "", fmt.Errorf("empty memory key")
	}

	if err := s.store.Save(key, Unescape(content), category); err != nil {
		return "", err
	}
	return fmt.Sprintf("Memory saved under %q", key), nil
}
