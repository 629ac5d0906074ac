package skills

import (
	"context"
	"testing"
	"time"

	"github.com/witong42/OpenSpore/pkg/memory"
)

func TestMemorySave_FlagOrderIndependent(t *testing.T) {
	store, err := memory.Open(t.TempDir(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	skill := NewMemorySaveSkill(store)

	// Content first, category last.
	if _, err := skill.Execute(context.Background(), `"first" --content="fact one" --category=core`); err != nil {
		t.Fatalf("content-first order: %v", err)
	}
	// Category first, content last.
	if _, err := skill.Execute(context.Background(), `"second" --category=daily --content="fact two"`); err != nil {
		t.Fatalf("category-first order: %v", err)
	}

	first := store.Get("first")
	if first == nil || first.Content != "fact one" || first.Category != "core" {
		t.Fatalf("got %+v", first)
	}
	second := store.Get("second")
	if second == nil || second.Content != "fact two" || second.Category != "daily" {
		t.Fatalf("got %+v", second)
	}
}

func TestMemorySave_RequiresContent(t *testing.T) {
	store, err := memory.Open(t.TempDir(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := NewMemorySaveSkill(store).Execute(context.Background(), `"key-only"`); err == nil {
		t.Fatal("missing --content= must error")
	}
}
