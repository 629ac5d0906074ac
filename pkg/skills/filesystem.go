// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxReadLines caps READ_FILE output to prevent context flooding.
const maxReadLines = 500

type ReadFileSkill struct{}

func NewReadFileSkill() *ReadFileSkill { return &ReadFileSkill{} }

func (s *ReadFileSkill) Name() string { return "read_file" }

func (s *ReadFileSkill) Description() string {
	return "Read contents of a file. Supports an optional line range to save context.\n" +
		"Usage: [READ_FILE: \"/path/to/file\"] or [READ_FILE: \"/path/to/file\" --lines=50-80]"
}

func (s *ReadFileSkill) Execute(ctx context.Context, arg string) (string, error) {
	pathPart, rangePart, hasRange := flagValue(arg, "--lines=")
	path := SanitizePath(pathPart)
	if path == "" {
		return "", fmt.Errorf("usage: [READ_FILE: \"/path/to/file\"]")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	if hasRange {
		start, end := parseLineRange(rangePart, total)
		if start > total {
			return "", fmt.Errorf("line range %s beyond end of file (%d lines)", rangePart, total)
		}
		var b strings.Builder
		for i := start - 1; i < end && i < total; i++ {
			fmt.Fprintf(&b, "%d: %s\n", i+1, lines[i])
		}
		return b.String(), nil
	}

	if total > maxReadLines {
		var b strings.Builder
		for i := 0; i < maxReadLines; i++ {
			fmt.Fprintf(&b, "%d: %s\n", i+1, lines[i])
		}
		fmt.Fprintf(&b, "\n[... %d more lines. Use --lines= to view specific ranges]", total-maxReadLines)
		return b.String(), nil
	}

	return string(data), nil
}

// parseLineRange parses "50-80" or "50" into a 1-indexed inclusive range.
func parseLineRange(s string, total int) (int, int) {
	if dash := strings.Index(s, "-"); dash != -1 {
		start, err1 := strconv.Atoi(strings.TrimSpace(s[:dash]))
		end, err2 := strconv.Atoi(strings.TrimSpace(s[dash+1:]))
		if err1 != nil || start < 1 {
			start = 1
		}
		if err2 != nil || end > total {
			end = total
		}
		return start, end
	}
	if single, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return single, single
	}
	return 1, total
}

type WriteFileSkill struct {
	// markWritten records a self-written path so the filesystem watcher
	// can suppress its own feedback loop. May be nil.
	markWritten func(path string)
}

func NewWriteFileSkill(markWritten func(path string)) *WriteFileSkill {
	return &WriteFileSkill{markWritten: markWritten}
}

func (s *WriteFileSkill) Name() string { return "write_file" }

func (s *WriteFileSkill) Description() string {
	return "Write content to a file, creating parent directories as needed.\n" +
		"Usage: [WRITE_FILE: \"/path\" --content=\"content\"]"
}

func (s *WriteFileSkill) Execute(ctx context.Context, arg string) (string, error) {
	pathPart, content, hasContent := flagValue(arg, "--content=")
	if !hasContent {
		return "", fmt.Errorf("usage: [WRITE_FILE: \"/path\" --content=\"content\"]")
	}

	path := SanitizePath(pathPart)
	if path == "" {
		return "", fmt.Errorf("empty file path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	final := Unescape(content)
	if err := os.WriteFile(path, []byte(final), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if s.markWritten != nil {
		s.markWritten(path)
	}

	return fmt.Sprintf("Wrote %d bytes to %s", len(final), path), nil
}

type EditFileSkill struct {
	markWritten func(path string)
}

func NewEditFileSkill(markWritten func(path string)) *EditFileSkill {
	return &EditFileSkill{markWritten: markWritten}
}

func (s *EditFileSkill) Name() string { return "edit_file" }

func (s *EditFileSkill) Description() string {
	return "Replace an exact text fragment in a file. The find text must appear exactly once.\n" +
		"Usage: [EDIT_FILE: \"/path\" --find=\"old text\" --replace=\"new text\"]"
}

func (s *EditFileSkill) Execute(ctx context.Context, arg string) (string, error) {
	findIdx := strings.Index(arg, "--find=")
	replaceIdx := strings.Index(arg, "--replace=")
	if findIdx == -1 || replaceIdx == -1 || replaceIdx < findIdx {
		return "", fmt.Errorf("usage: [EDIT_FILE: \"/path\" --find=\"old\" --replace=\"new\"]")
	}

	path := SanitizePath(arg[:findIdx])
	find := Unescape(strings.Trim(strings.TrimSpace(arg[findIdx+len("--find="):replaceIdx]), `"'`))
	replace := Unescape(strings.Trim(strings.TrimSpace(arg[replaceIdx+len("--replace="):]), `"'`))

	if path == "" || find == "" {
		return "", fmt.Errorf("empty path or find text")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)

	switch count := strings.Count(content, find); {
	case count == 0:
		return "", fmt.Errorf("find text not present in %s", path)
	case count > 1:
		return "", fmt.Errorf("find text appears %d times in %s, must be unique", count, path)
	}

	content = strings.Replace(content, find, replace, 1)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if s.markWritten != nil {
		s.markWritten(path)
	}

	return fmt.Sprintf("Edited %s", path), nil
}

type ListDirSkill struct{}

func NewListDirSkill() *ListDirSkill { return &ListDirSkill{} }

func (s *ListDirSkill) Name() string { return "list_dir" }

func (s *ListDirSkill) Description() string {
	return "List files and directories at a path. Usage: [LIST_DIR: \"/path\"]"
}

func (s *ListDirSkill) Execute(ctx context.Context, arg string) (string, error) {
	path := SanitizePath(arg)
	if path == "" {
		path = "."
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			b.WriteString("DIR:  " + entry.Name() + "\n")
		} else {
			b.WriteString("FILE: " + entry.Name() + "\n")
		}
	}
	return b.String(), nil
}
