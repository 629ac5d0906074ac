package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("user_timezone", "Europe/Berlin", "core"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entry := s.Get("user_timezone")
	if entry == nil {
		t.Fatal("Get returned nil")
	}
	if entry.Content != "Europe/Berlin" {
		t.Errorf("content: got %q", entry.Content)
	}
	if entry.Category != "core" {
		t.Errorf("category: got %q", entry.Category)
	}
}

func TestStore_SaveReplacesByKey(t *testing.T) {
	s := openTestStore(t)

	s.Save("k", "first", "custom")
	s.Save("k", "second", "custom")

	entry := s.Get("k")
	if entry == nil || entry.Content != "second" {
		t.Fatalf("replace failed: %+v", entry)
	}

	entries, err := s.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("duplicate keys after replace: %d entries", len(entries))
	}
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	s.Save("gone", "x", "custom")
	if !s.Delete("gone") {
		t.Error("Delete returned false for existing key")
	}
	if s.Get("gone") != nil {
		t.Error("entry still present after delete")
	}
	if s.Delete("never-existed") {
		t.Error("Delete returned true for missing key")
	}
}

func TestJournal_Appends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	s.SaveJournal("first entry\n")
	s.SaveJournal("second entry\n")

	data, err := os.ReadFile(filepath.Join(dir, "memory", JournalFile))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "first entry") || !strings.Contains(text, "second entry") {
		t.Errorf("journal lost entries: %q", text)
	}
	if strings.Index(text, "first") > strings.Index(text, "second") {
		t.Error("journal order wrong")
	}
}

func TestSummary_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	if got := s.ReadSummary(); got != "" {
		t.Errorf("empty summary: got %q", got)
	}
	if err := s.WriteSummary("the story so far"); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if got := s.ReadSummary(); got != "the story so far" {
		t.Errorf("summary: got %q", got)
	}
}

func TestWrittenRecently_Expires(t *testing.T) {
	s := openTestStore(t)

	s.MarkWritten("/tmp/x.txt")
	if !s.WrittenRecently("/tmp/x.txt") {
		t.Error("fresh write not detected")
	}
	if s.WrittenRecently("/tmp/other.txt") {
		t.Error("unwritten path reported as written")
	}

	time.Sleep(80 * time.Millisecond)
	if s.WrittenRecently("/tmp/x.txt") {
		t.Error("entry did not expire after TTL")
	}
}
