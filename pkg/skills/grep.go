package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxGrepMatches = 200

type GrepSkill struct {
	workingDir string
}

func NewGrepSkill(workingDir string) *GrepSkill {
	return &GrepSkill{workingDir: workingDir}
}

func (s *GrepSkill) Name() string { return "grep" }

func (s *GrepSkill) Description() string {
	return "Search files recursively for a regex pattern.\n" +
		"Usage: [GREP: \"pattern\"] or [GREP: \"pattern\" --dir=\"/path\"]"
}

func (s *GrepSkill) Execute(ctx context.Context, arg string) (string, error) {
	patternPart, dir, hasDir := flagValue(arg, "--dir=")
	pattern := strings.Trim(strings.TrimSpace(patternPart), `"'`)
	if pattern == "" {
		return "", fmt.Errorf("usage: [GREP: \"pattern\"]")
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	root := s.workingDir
	if hasDir {
		root = SanitizePath(dir)
	}
	if root == "" {
		root = "."
	}

	var b strings.Builder
	matches := 0
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || matches >= maxGrepMatches {
			return filepath.SkipAll
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > 1<<20 {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || !isText(data) {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				fmt.Fprintf(&b, "%s:%d: %s\n", path, i+1, strings.TrimSpace(line))
				matches++
				if matches >= maxGrepMatches {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if matches == 0 {
		return "No matches found.", nil
	}
	out := b.String()
	if matches >= maxGrepMatches {
		out += fmt.Sprintf("\n[Capped at %d matches]", maxGrepMatches)
	}
	return out, nil
}

// isText rejects binary files by checking for NUL bytes in the head.
func isText(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	for _, b := range head {
		if b == 0 {
			return false
		}
	}
	return true
}
