package provider

import "context"

// Message is one turn in a chat-completions conversation. Role is one of
// system, user, assistant or tool.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the requested function name and its JSON-encoded
// arguments exactly as the model produced them.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition is the declarative schema handed to the model: name,
// natural-language description and a JSON-schema parameter shape.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatResponse is the model's reply: either final content or one or more
// tool calls to execute before the next round.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is the language-model transport. Chat runs one completion with
// optional tool definitions; passing nil tools forces a plain text answer.
// Embed turns texts into vectors for the semantic indexes.
type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (ChatResponse, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
