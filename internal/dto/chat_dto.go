package dto

// ChatMessage is one turn in an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// ChatRequest is a conversation sent to the AI assistant.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=40,dive"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}
