package agent

import (
	"fmt"
	"strings"

	"github.com/witong42/OpenSpore/pkg/memory"
	"github.com/witong42/OpenSpore/pkg/skills"
)

// destructiveSkills are the operations that can overwrite state the
// model has never looked at. They pass the gate only when their target
// path already appears verbatim in the conversation.
var destructiveSkills = map[string]bool{
	"WRITE_FILE": true,
	"EDIT_FILE":  true,
	"DIFF_PATCH": true,
	"DELEGATE":   true,
}

// pathAliases are the structured-argument keys a target path may hide
// under when the argument is a JSON object.
var pathAliases = []string{"path", "file", "filename", "file_path", "target"}

// verifyWriteTarget checks a destructive invocation against the accumulated
// conversation. It returns ok=false with a synthetic failure message when
// the target path was never mentioned in history or the system prompt,
// which forces the model to read before it writes.
//
// This is a textual containment check, not a filesystem ACL: a path that
// history only mentions in a different form (relative vs. absolute, with
// or without a trailing slash) is refused even though the file itself may
// be perfectly known. That conservatism is deliberate.
func verifyWriteTarget(name, argument, history string) (ok bool, refusal string) {
	if !destructiveSkills[strings.ToUpper(name)] {
		return true, ""
	}
	target := extractTargetPath(argument)
	if target == "" || isExemptPath(target) {
		return true, ""
	}
	if strings.Contains(history, target) {
		return true, ""
	}
	return false, fmt.Sprintf(
		"STATE VERIFICATION FAILED: You are attempting to modify '%s' without having read it first. Use [READ_FILE: %s] to inspect the current state, then retry.",
		target, target)
}

// extractTargetPath pulls the probable target path out of a skill
// argument. JSON objects are checked for the usual key aliases; plain
// arguments contribute their first token, but only when it actually
// looks like a path.
func extractTargetPath(argument string) string {
	if obj, ok := skills.TryParseJSON(argument); ok {
		for _, key := range pathAliases {
			if v, ok := obj[key].(string); ok && v != "" {
				return skills.SanitizePath(v)
			}
		}
		return ""
	}
	tokens := skills.SplitArguments(argument)
	if len(tokens) == 0 {
		return ""
	}
	first := skills.SanitizePath(tokens[0])
	if strings.ContainsAny(first, "/\\") {
		return first
	}
	return ""
}

// isExemptPath reports whether the path is internal bookkeeping that the
// agent itself maintains and may always write.
func isExemptPath(path string) bool {
	return strings.HasSuffix(path, memory.JournalFile) ||
		strings.HasSuffix(path, memory.SummaryFile) ||
		strings.Contains(path, "/memory/"+memory.ContextDir+"/")
}
