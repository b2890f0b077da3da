package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/metrics"
	"github.com/coachd-platform/coachd/internal/provider"
)

// HandlerFunc executes one function on behalf of a user and returns a
// JSON-serializable result.
type HandlerFunc func(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error)

// Registry maps function names to handlers. The executable surface exactly
// matches the declarations handed to the provider.
type Registry struct {
	handlers     map[string]HandlerFunc
	declarations []provider.FunctionDeclaration
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(declaration provider.FunctionDeclaration, handler HandlerFunc) {
	r.handlers[declaration.Name] = handler
	r.declarations = append(r.declarations, declaration)
}

func (r *Registry) Declarations() []provider.FunctionDeclaration {
	return r.declarations
}

// Execute runs the named function and always returns a JSON payload. An
// unknown name, a handler error, or a handler panic becomes an error payload
// the model can react to; execution failures never abort the loop.
func (r *Registry) Execute(ctx context.Context, userID uuid.UUID, call *provider.FunctionCall) (payload json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("function handler panicked", "function", call.Name, "panic", rec)
			metrics.FunctionCallsTotal.WithLabelValues(call.Name, "panic").Inc()
			payload = errorPayload(fmt.Sprintf("internal error executing %s", call.Name))
		}
	}()

	handler, ok := r.handlers[call.Name]
	if !ok {
		slog.Warn("unknown function requested", "function", call.Name, "user_id", userID)
		metrics.FunctionCallsTotal.WithLabelValues(call.Name, "unknown").Inc()
		return errorPayload(fmt.Sprintf("unknown function: %s", call.Name))
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := handler(ctx, userID, args)
	if err != nil {
		slog.Warn("function execution failed", "function", call.Name, "user_id", userID, "error", err)
		metrics.FunctionCallsTotal.WithLabelValues(call.Name, "error").Inc()
		return errorPayload(err.Error())
	}

	metrics.FunctionCallsTotal.WithLabelValues(call.Name, "ok").Inc()
	encoded, err := json.Marshal(result)
	if err != nil {
		return errorPayload("encoding function result")
	}
	return encoded
}

func errorPayload(message string) json.RawMessage {
	encoded, _ := json.Marshal(map[string]string{"error": message})
	return encoded
}
