package provider

import (
	"encoding/json"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeMessage(t *testing.T, raw string) openai.ChatCompletionMessage {
	t.Helper()
	var message openai.ChatCompletionMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &message))
	return message
}

func TestMessageToTurnPlainText(t *testing.T) {
	message := decodeMessage(t, `{"role":"assistant","content":"All set for tomorrow."}`)

	turn := messageToTurn(message)

	assert.Equal(t, RoleAssistant, turn.Role)
	assert.Equal(t, "All set for tomorrow.", turn.Content)
	assert.Nil(t, turn.FunctionCall)
}

func TestMessageToTurnSingleToolCall(t *testing.T) {
	message := decodeMessage(t, `{
		"role": "assistant",
		"content": "",
		"tool_calls": [
			{"id":"call_1","type":"function","function":{"name":"create_task","arguments":"{\"title\":\"Run\"}"}}
		]
	}`)

	turn := messageToTurn(message)

	require.NotNil(t, turn.FunctionCall)
	assert.Equal(t, "create_task", turn.FunctionCall.Name)
	assert.Equal(t, "call_1", turn.ToolCallID)
	assert.JSONEq(t, `{"title":"Run"}`, string(turn.FunctionCall.Arguments))
}

func TestMessageToTurnExtraToolCallsHonorFirst(t *testing.T) {
	message := decodeMessage(t, `{
		"role": "assistant",
		"content": "",
		"tool_calls": [
			{"id":"call_1","type":"function","function":{"name":"create_task","arguments":"{\"title\":\"Run\"}"}},
			{"id":"call_2","type":"function","function":{"name":"delete_task","arguments":"{}"}}
		]
	}`)

	turn := messageToTurn(message)

	require.NotNil(t, turn.FunctionCall)
	assert.Equal(t, "create_task", turn.FunctionCall.Name)
	assert.Equal(t, "call_1", turn.ToolCallID)
}
