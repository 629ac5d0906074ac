package providers

import "context"

// Message is one turn of a conversation sent to the completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionProvider produces a free-text completion for a message
// history. Implementations own retry behavior; a returned error is
// terminal for the caller.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
