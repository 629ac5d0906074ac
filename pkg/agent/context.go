package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/witong42/OpenSpore/pkg/memory"
)

// buildSystemPrompt assembles the system turn for one conversation:
// identity and preference memories, the skills manual, a shallow
// directory pulse of the workspace, and the session summary. Sub-spores
// get a leaner prompt with their role and no DELEGATE entry.
func (a *Agent) buildSystemPrompt(task string) string {
	var identity, prefs, summary string
	if a.store != nil {
		identity = joinMemories(a.store, "identity", 5)
		prefs = joinMemories(a.store, "preferences", 5)
		summary = a.store.ReadSummary()
	}

	fsPulse := fmt.Sprintf("<FILE_SYSTEM_PULSE>\nCURRENT_LOCATION: %s\nSTRUCTURE (Depth 2):\n%s</FILE_SYSTEM_PULSE>",
		a.workspace, directoryTree(a.workspace, 2))

	if a.isSpore {
		role := a.role
		if role == "" {
			role = "Sub-Agent"
		}
		return fmt.Sprintf(`You are a specialized OpenSpore Sub-Agent.
Role: %s

%s

<PRIME_DIRECTIVE>
1. **ROLE IDENTITY**: You are a specialized sub-agent performing the role of '%s'.
2. **VALIDATION PULSE**: Never assume file content or directory state from history alone. Use READ_FILE or LIST_DIR to verify reality before editing.
3. **CHAIN-OF-THOUGHT**: Explain your reasoning before taking action.
4. **NO RECURSION**: Do NOT use the [DELEGATE] tool.
5. **FORMAT**: Use `+"`[TOOL_NAME: arg]`"+`. Final answer MUST be natural language (Markdown), never raw JSON.
6. **STOPPING CRITERIA**: If the task is finished in history, stop and report.
</PRIME_DIRECTIVE>

%s

<TASK>
%s
</TASK>`, role, a.loader.Manual("DELEGATE"), role, fsPulse, task)
	}

	var sections []string
	sections = append(sections, fmt.Sprintf("You are OpenSpore, an autonomous AI system.\nCurrent Time: %s", time.Now().Format("2006-01-02 15:04")))
	if identity != "" {
		sections = append(sections, "<IDENTITY>\n"+identity+"\n</IDENTITY>")
	}
	if prefs != "" {
		sections = append(sections, "<USER_PREFERENCES>\n"+prefs+"\n</USER_PREFERENCES>")
	}
	sections = append(sections, a.loader.Manual())
	sections = append(sections, `<PRIME_DIRECTIVE>
1. **ACTION FIRST**: Explain your logic briefly before calling tools. Stay focused on the immediate task.
2. **VALIDATION PULSE**: Never assume file content or directory state from history alone. Use READ_FILE or LIST_DIR to verify reality before editing or executing scripts you did not create this turn.
3. **TOOL SYNTAX**: Use `+"`[TOOL_NAME: arg]`"+`. For JSON args: `+"`[TOOL_NAME: {\"k\": \"v\"}]`"+`. No markdown code blocks for tool calls.
4. **PARALLELISM**: Use multiple tool calls in one turn for maximum efficiency.
5. **RESPONSE FORMAT**: Use natural language (Markdown). Never respond with a raw JSON object. Use code blocks ONLY for file content.
6. **STOPPING CRITERIA**: If the task is clearly finished in the session summary, do NOT re-run it. Provide a final summary and stop.
</PRIME_DIRECTIVE>`)
	sections = append(sections, fsPulse)
	if summary != "" {
		sections = append(sections, "<SESSION_SUMMARY>\n"+summary+"\n</SESSION_SUMMARY>")
	}
	return strings.Join(sections, "\n\n")
}

func joinMemories(store *memory.Store, category string, limit int) string {
	entries, err := store.ListByCategory(category, limit)
	if err != nil || len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "- "+e.Content)
	}
	return strings.Join(lines, "\n")
}

// directoryTree renders a two-level listing of root. Hidden entries and
// obviously noisy directories are skipped; output is bounded so a huge
// workspace cannot flood the prompt.
func directoryTree(root string, maxDepth int) string {
	var b strings.Builder
	var walk func(dir string, depth int, indent string)
	lines := 0

	walk = func(dir string, depth int, indent string) {
		if depth > maxDepth || lines > 200 {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") || name == "node_modules" {
				continue
			}
			lines++
			if lines > 200 {
				b.WriteString(indent + "...\n")
				return
			}
			if entry.IsDir() {
				b.WriteString(indent + name + "/\n")
				walk(filepath.Join(dir, name), depth+1, indent+"  ")
			} else {
				b.WriteString(indent + name + "\n")
			}
		}
	}
	walk(root, 1, "")
	if b.Len() == 0 {
		return "(empty)\n"
	}
	return b.String()
}
