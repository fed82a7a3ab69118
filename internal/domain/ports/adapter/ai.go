package adapter

import "context"

// Message represents a chat message in the wire shape providers accept.
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

// ReplyGenerator is the port for the external collaborator that produces the
// assistant's reply. The core only records whatever text it is given.
type ReplyGenerator interface {
	ListModels(ctx context.Context) ([]string, error)

	// Reply returns only the assistant text.
	Reply(ctx context.Context, model string, messages []Message) (string, error)
}
