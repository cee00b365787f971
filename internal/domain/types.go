// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the gateway.
package domain

import "encoding/json"

// Message roles understood by the unified request shape.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported in unified responses.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
	FinishFiltered  = "content_filter"
)

// ChatRequest is the unified chat completion request. The wire shape is
// OpenAI-compatible; adapters translate it into each upstream's native form.
type ChatRequest struct {
	// Provider names the target upstream. Selection is always
	// caller-specified; the gateway never routes by cost or quality.
	Provider string `json:"provider,omitempty"`

	// Model is the upstream model identifier. Empty falls back to the
	// provider's configured default model.
	Model string `json:"model,omitempty"`

	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`

	// Temperature controls randomness. Optional.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens limits the response length. Optional.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP is the nucleus sampling parameter. Optional.
	TopP *float64 `json:"top_p,omitempty"`

	// Stop sequences halt generation. Optional.
	Stop []string `json:"stop,omitempty"`

	// Tools the model may invoke. On upstreams without native tool
	// calling these are emulated through prompt injection.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice is "auto", "none" or "required". Optional.
	ToolChoice string `json:"tool_choice,omitempty"`

	// User is an opaque end-user identifier. Optional.
	User string `json:"user,omitempty"`
}

// Message is a single turn in the conversation.
type Message struct {
	// Role is one of "system", "user", "assistant" or "tool".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Name identifies the tool that produced a "tool" turn. Optional.
	Name string `json:"name,omitempty"`

	// ToolCalls carries structured tool invocations on assistant turns.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a "tool" turn back to the invocation it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the invoked function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a callable tool offered to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the schema of a single tool: name, description and a
// JSON-schema-like parameters object kept raw for pass-through.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatResponse is the unified chat completion response. Every response
// carries at least one choice.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is a single completion. Its message is either a plain-text
// assistant turn or a structured tool-invocation turn, never both.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
