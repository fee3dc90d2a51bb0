// Package llm defines the text-completion capability consumed by the agent
// loop and the retrieval tool.
package llm

import "context"

// Provider is the interface all completion backends implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the full input to a completion call.
type Prompt struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// UserPrompt builds a prompt with a single user message.
func UserPrompt(system, user string) *Prompt {
	return &Prompt{SystemPrompt: system, Messages: []Message{{Role: RoleUser, Content: user}}}
}

// RequestOptions tunes a single completion request. Nil fields use provider defaults.
type RequestOptions struct {
	Temperature *float64
	MaxTokens   *int
	StopSeqs    []string
}

// Response wraps a completion result.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}
