package agent

// AgentEventType classifies the progress events an Agent emits while it
// works through a task.
type AgentEventType string

const (
	EventThoughtLayer AgentEventType = "thought_layer"
	EventToolStart    AgentEventType = "tool_start"
	EventToolResult   AgentEventType = "tool_result"
	EventFinalAnswer  AgentEventType = "final_answer"
	EventError        AgentEventType = "error"
)

// AgentEvent is a single progress notification. Depth is the thinking
// round the event belongs to, starting at 0. Success is meaningful for
// ToolResult events only: it distinguishes a failed tool from a
// successful one whose output happens to look like an error.
type AgentEvent struct {
	Type    AgentEventType
	Depth   int
	Tool    string
	Content string
	Success bool
}

// emit delivers an event to the observer channel without ever blocking
// the thinking loop. A slow or absent observer only loses events.
func (a *Agent) emit(ev AgentEvent) {
	if a.events == nil {
		return
	}
	select {
	case a.events <- ev:
	default:
	}
}
