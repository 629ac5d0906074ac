// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/witong42/OpenSpore/pkg/logger"
	"github.com/witong42/OpenSpore/pkg/providers"
	"github.com/witong42/OpenSpore/pkg/utils"
)

const (
	depthNotice = "\n\n[SYSTEM: Maximum thinking depth reached. Please summarize your findings.]"

	selfCorrectionMessage = "SYSTEM ERROR: You attempted to use a tool using Markdown code blocks (```). THIS IS INVALID. \n\nREQUIRED SYNTAX: `[TOOL_NAME: argument]`\n\nExample: `[DELEGATE: \"task\"]`\n\nPlease retry immediately with the correct syntax."

	feedbackInstruction = "Process the results. If more actions needed, use tools. If done, provide final answer."
)

// toolResult is one finished execution within a round.
type toolResult struct {
	name   string
	output string
	err    error
}

// Think runs the full control loop for one user prompt and returns the
// final answer text. Everything recoverable becomes feedback for the
// next round; only completion failure terminates the loop abnormally,
// and even that is returned as an error string rather than an error
// value so channel consumers can relay it as-is.
func (a *Agent) Think(ctx context.Context, userPrompt string) string {
	started := time.Now()
	logger.InfoCF("agent", "thinking", map[string]interface{}{"prompt": utils.Truncate(userPrompt, 120)})

	if a.store != nil && !a.isSpore {
		entry := fmt.Sprintf("\n[%s] User: %s\n", time.Now().Format("2006-01-02 15:04:05"), userPrompt)
		if err := a.store.SaveJournal(entry); err != nil {
			logger.WarnCF("agent", "journal write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	systemPrompt := a.buildSystemPrompt(userPrompt)
	messages := []providers.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	content, err := a.provider.Complete(ctx, messages)
	if err != nil {
		a.emit(AgentEvent{Type: EventError, Content: err.Error()})
		return fmt.Sprintf("Errors: %v", err)
	}

	depth := 0
	for {
		if depth >= a.maxDepth {
			logger.WarnCF("agent", "depth limit hit, terminating tool loop", map[string]interface{}{"max_depth": a.maxDepth})
			content += depthNotice
			break
		}

		a.emit(AgentEvent{Type: EventThoughtLayer, Depth: depth, Content: content})

		invocations := ExtractInvocations(content, a.loader.Has)

		// The model sometimes wraps tool calls in a code fence instead
		// of brackets. That yields zero invocations, so check for the
		// telltale fences before deciding the answer is final.
		if len(invocations) == 0 && looksLikeMarkdownToolUse(content) {
			logger.WarnC("agent", "invalid markdown tool usage, triggering self-correction")
			messages = append(messages,
				providers.Message{Role: "assistant", Content: content},
				providers.Message{Role: "user", Content: selfCorrectionMessage},
			)
			retried, err := a.provider.Complete(ctx, messages)
			if err != nil {
				logger.ErrorCF("agent", "completion failed during self-correction", map[string]interface{}{"error": err.Error()})
				a.emit(AgentEvent{Type: EventError, Content: err.Error()})
				break
			}
			content = retried
			depth++
			continue
		}

		if len(invocations) == 0 {
			break
		}

		// Gate lookups search prior turns only. The current assistant
		// text always names the target path inside the invocation
		// itself, so including it would approve everything.
		history := conversationText(messages)
		results := a.executeRound(ctx, invocations, history)

		var feedback strings.Builder
		feedback.WriteString("\n<TOOL_OUTPUTS>\n")
		for _, r := range results {
			if r.err != nil {
				logger.ErrorCF("agent", "tool failed", map[string]interface{}{"tool": r.name, "error": r.err.Error()})
				fmt.Fprintf(&feedback, "\n--- Error from %s ---\n%v\n", r.name, r.err)
			} else {
				fmt.Fprintf(&feedback, "\n--- Output from %s ---\n%s\n", r.name, r.output)
			}
		}
		feedback.WriteString("\n</TOOL_OUTPUTS>\n")

		messages = append(messages,
			providers.Message{Role: "assistant", Content: content},
			providers.Message{Role: "user", Content: feedback.String() + "\n\n" + feedbackInstruction},
		)

		next, err := a.provider.Complete(ctx, messages)
		if err != nil {
			logger.ErrorCF("agent", "completion failed mid-loop", map[string]interface{}{"error": err.Error()})
			a.emit(AgentEvent{Type: EventError, Content: err.Error()})
			break
		}
		content = next
		depth++
	}

	a.emit(AgentEvent{Type: EventFinalAnswer, Content: content})

	if a.learnEnabled {
		go a.learn(userPrompt, content)
	}

	if a.store != nil && !a.isSpore {
		if err := a.store.SaveJournal(fmt.Sprintf("\nAI: %s\n", content)); err != nil {
			logger.ErrorCF("agent", "journal write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	logger.InfoCF("agent", "cycle finished", map[string]interface{}{"elapsed": time.Since(started).String()})
	return content
}

// executeRound applies the write-safety gate to every invocation, then
// runs the survivors concurrently. Results arrive in completion order;
// refused invocations contribute synthetic failures without ever
// touching the skill.
func (a *Agent) executeRound(ctx context.Context, invocations []Invocation, history string) []toolResult {
	resultCh := make(chan toolResult, len(invocations))

	for _, inv := range invocations {
		a.emit(AgentEvent{Type: EventToolStart, Tool: inv.Name, Content: inv.Argument})

		if ok, refusal := verifyWriteTarget(inv.Name, inv.Argument, history); !ok {
			logger.WarnCF("agent", "write-safety gate refused", map[string]interface{}{"tool": inv.Name})
			a.emit(AgentEvent{Type: EventToolResult, Tool: inv.Name, Content: refusal, Success: false})
			resultCh <- toolResult{name: inv.Name, err: fmt.Errorf("%s", refusal)}
			continue
		}

		go func(inv Invocation) {
			logger.InfoCF("agent", "executing", map[string]interface{}{"tool": inv.Name, "arg": utils.Truncate(inv.Argument, 200)})
			skill, ok := a.loader.Get(inv.Name)
			if !ok {
				err := fmt.Errorf("unknown tool '%s'", inv.Name)
				a.emit(AgentEvent{Type: EventToolResult, Tool: inv.Name, Content: err.Error(), Success: false})
				resultCh <- toolResult{name: inv.Name, err: err}
				return
			}
			output, err := skill.Execute(ctx, inv.Argument)
			if err != nil {
				a.emit(AgentEvent{Type: EventToolResult, Tool: inv.Name, Content: err.Error(), Success: false})
			} else {
				a.emit(AgentEvent{Type: EventToolResult, Tool: inv.Name, Content: output, Success: true})
			}
			resultCh <- toolResult{name: inv.Name, output: output, err: err}
		}(inv)
	}

	results := make([]toolResult, 0, len(invocations))
	for range invocations {
		results = append(results, <-resultCh)
	}
	return results
}

// learn runs after the answer is already returned: it asks the model to
// distill one durable fact from the exchange and saves it. Failures are
// logged and dropped; this must never block or fail a turn.
func (a *Agent) learn(prompt, answer string) {
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	extraction, err := a.provider.Complete(ctx, []providers.Message{
		{Role: "system", Content: "Extract ONE durable user preference or fact from this exchange, as a single short sentence. If there is nothing worth remembering, reply exactly NONE."},
		{Role: "user", Content: fmt.Sprintf("**User**: %s\n\n**Assistant**: %s", utils.Truncate(prompt, 2000), utils.Truncate(answer, 2000))},
	})
	if err != nil {
		logger.DebugCF("agent", "learning pass skipped", map[string]interface{}{"error": err.Error()})
		return
	}
	fact := strings.TrimSpace(extraction)
	if fact == "" || strings.EqualFold(fact, "NONE") {
		return
	}
	key := fmt.Sprintf("learned_%d", time.Now().UnixNano())
	if err := a.store.Save(key, fact, "learned"); err != nil {
		logger.DebugCF("agent", "learning save failed", map[string]interface{}{"error": err.Error()})
	}
}

// looksLikeMarkdownToolUse spots the common hallucinated invocation
// formats: an executable-language fence where a bracket call belongs.
func looksLikeMarkdownToolUse(content string) bool {
	for _, marker := range []string{"```tool_code", "```python", "```javascript", "```bash"} {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// conversationText flattens accumulated turns (system prompt included)
// into one searchable blob for the write-safety gate.
func conversationText(messages []providers.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
