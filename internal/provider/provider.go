package provider

import (
	"context"
	"encoding/json"
)

// Turn roles. Function turns carry the executed function's name and the
// JSON-serialized result as content.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Turn is one message in a conversation, in provider-neutral form.
type Turn struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// FunctionCall is a tool invocation requested by the assistant, either via
// the backend's native tool-calling or embedded in the reply JSON.
type FunctionCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// FunctionDeclaration describes one callable function to the backend.
// Parameters is a JSON-Schema object.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Options tune a single completion request.
type Options struct {
	Temperature float64
	JSONMode    bool
	Functions   []FunctionDeclaration
}

// Backend generates a completion against one provider API.
type Backend interface {
	Name() string
	SupportsJSONMode() bool
	GenerateCompletion(ctx context.Context, model string, turns []Turn, opts Options) (Turn, error)
}

// Sentinel is the assistant content substituted when a backend fails. The
// orchestration loop treats it like any other assistant reply, so provider
// outages surface as a normal apologetic turn instead of an error channel.
const Sentinel = `{"message": "I'm having trouble communicating with my language model right now. Please try again in a moment."}`
