// Package assistant provides the conversational tenancy helper backed by a
// chat completion model.
package assistant

import "context"

// Message is a single turn in an assistant conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a reply given a system prompt and conversation history.
type Provider interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}
