package skills

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type DiffPatchSkill struct {
	markWritten func(path string)
}

func NewDiffPatchSkill(markWritten func(path string)) *DiffPatchSkill {
	return &DiffPatchSkill{markWritten: markWritten}
}

func (s *DiffPatchSkill) Name() string { return "diff_patch" }

func (s *DiffPatchSkill) Description() string {
	return "Apply a unified diff to a file. Usage: [DIFF_PATCH: \"/path/to/file|||patch_text\"]"
}

func (s *DiffPatchSkill) Execute(ctx context.Context, arg string) (string, error) {
	parts := strings.SplitN(arg, "|||", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("usage: [DIFF_PATCH: \"/path/to/file|||patch_text\"]")
	}

	path := SanitizePath(parts[0])
	patchText := Unescape(strings.TrimSpace(parts[1]))
	patchText = stripCodeFence(patchText)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	patched, err := applyUnifiedDiff(string(data), patchText)
	if err != nil {
		return "", fmt.Errorf("failed to apply patch to %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(patched), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if s.markWritten != nil {
		s.markWritten(path)
	}

	return fmt.Sprintf("Patched %s", path), nil
}

// stripCodeFence removes surrounding markdown fences the model may
// have wrapped the patch in.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	start := 1
	end := len(lines)
	if strings.HasPrefix(lines[end-1], "```") {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// applyUnifiedDiff applies a unified-format patch by locating each
// hunk's removal/context block verbatim in the input. Hunk line
// numbers are treated as hints only; content matching decides.
func applyUnifiedDiff(content, patch string) (string, error) {
	lines := strings.Split(content, "\n")
	var out []string
	cursor := 0

	patchLines := strings.Split(patch, "\n")
	i := 0
	for i < len(patchLines) {
		line := patchLines[i]
		if !strings.HasPrefix(line, "@@") {
			i++
			continue
		}

		// Collect one hunk
		var oldBlock, newBlock []string
		i++
		for i < len(patchLines) {
			hl := patchLines[i]
			if strings.HasPrefix(hl, "@@") {
				break
			}
			switch {
			case strings.HasPrefix(hl, "-"):
				oldBlock = append(oldBlock, hl[1:])
			case strings.HasPrefix(hl, "+"):
				newBlock = append(newBlock, hl[1:])
			case strings.HasPrefix(hl, " "):
				oldBlock = append(oldBlock, hl[1:])
				newBlock = append(newBlock, hl[1:])
			case hl == "":
				oldBlock = append(oldBlock, "")
				newBlock = append(newBlock, "")
			}
			i++
		}
		// Trim trailing empty context picked up from the patch tail.
		for len(oldBlock) > 0 && oldBlock[len(oldBlock)-1] == "" && len(newBlock) > 0 && newBlock[len(newBlock)-1] == "" {
			oldBlock = oldBlock[:len(oldBlock)-1]
			newBlock = newBlock[:len(newBlock)-1]
		}

		pos := findBlock(lines, oldBlock, cursor)
		if pos == -1 {
			return "", fmt.Errorf("hunk context not found in file")
		}

		out = append(out, lines[cursor:pos]...)
		out = append(out, newBlock...)
		cursor = pos + len(oldBlock)
	}

	out = append(out, lines[cursor:]...)
	return strings.Join(out, "\n"), nil
}

func findBlock(lines, block []string, from int) int {
	if len(block) == 0 {
		return -1
	}
	for i := from; i+len(block) <= len(lines); i++ {
		match := true
		for j := range block {
			if lines[i+j] != block[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
