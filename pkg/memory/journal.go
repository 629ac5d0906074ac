package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SaveJournal appends an entry to the operational log (LOGS.md).
// The journal is append-only; prior entries are never rewritten.
func (s *Store) SaveJournal(entry string) error {
	path := filepath.Join(s.workspace, "memory", JournalFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// ReadSummary returns the current session summary, or "" when none exists.
func (s *Store) ReadSummary() string {
	data, err := os.ReadFile(filepath.Join(s.workspace, "memory", SummaryFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WriteSummary replaces the session summary.
func (s *Store) WriteSummary(summary string) error {
	path := filepath.Join(s.workspace, "memory", SummaryFile)
	return os.WriteFile(path, []byte(summary), 0644)
}
