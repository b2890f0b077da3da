package functions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachd-platform/coachd/internal/provider"
)

func testDeclaration(name string) provider.FunctionDeclaration {
	return provider.FunctionDeclaration{Name: name, Parameters: objectSchema(nil)}
}

func TestRegistryExecuteSuccess(t *testing.T) {
	registry := NewRegistry()
	registry.Register(testDeclaration("echo"), func(_ context.Context, _ uuid.UUID, args json.RawMessage) (any, error) {
		return map[string]string{"got": string(args)}, nil
	})

	payload := registry.Execute(context.Background(), uuid.New(), &provider.FunctionCall{
		Name:      "echo",
		Arguments: json.RawMessage(`{"a":1}`),
	})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, `{"a":1}`, decoded["got"])
}

func TestRegistryUnknownFunction(t *testing.T) {
	registry := NewRegistry()

	payload := registry.Execute(context.Background(), uuid.New(), &provider.FunctionCall{Name: "nope"})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "unknown function: nope", decoded["error"])
}

func TestRegistryHandlerErrorBecomesPayload(t *testing.T) {
	registry := NewRegistry()
	registry.Register(testDeclaration("fail"), func(context.Context, uuid.UUID, json.RawMessage) (any, error) {
		return nil, errors.New("task not found")
	})

	payload := registry.Execute(context.Background(), uuid.New(), &provider.FunctionCall{Name: "fail"})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "task not found", decoded["error"])
}

func TestRegistryHandlerPanicBecomesPayload(t *testing.T) {
	registry := NewRegistry()
	registry.Register(testDeclaration("boom"), func(context.Context, uuid.UUID, json.RawMessage) (any, error) {
		panic("unexpected")
	})

	payload := registry.Execute(context.Background(), uuid.New(), &provider.FunctionCall{Name: "boom"})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Contains(t, decoded["error"], "internal error")
}

func TestRegistryEmptyArgumentsDefaultToObject(t *testing.T) {
	registry := NewRegistry()
	registry.Register(testDeclaration("args"), func(_ context.Context, _ uuid.UUID, args json.RawMessage) (any, error) {
		var decoded map[string]any
		if err := json.Unmarshal(args, &decoded); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})

	payload := registry.Execute(context.Background(), uuid.New(), &provider.FunctionCall{Name: "args"})
	assert.JSONEq(t, `{"status":"ok"}`, string(payload))
}

func TestCoachRegistryDeclarationsMatchHandlers(t *testing.T) {
	registry := NewCoachRegistry(Deps{})

	require.NotEmpty(t, registry.Declarations())
	for _, declaration := range registry.Declarations() {
		_, ok := registry.handlers[declaration.Name]
		assert.True(t, ok, "declaration %s has no handler", declaration.Name)
	}
	assert.Len(t, registry.handlers, len(registry.Declarations()))
}
