package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIBackend talks to the OpenAI chat completions API, or any
// API-compatible endpoint when a base URL is configured.
type OpenAIBackend struct {
	client openai.Client
	name   string
}

func NewOpenAIBackend(name, apiKey, baseURL string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		name:   name,
	}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) SupportsJSONMode() bool { return true }

func (b *OpenAIBackend) GenerateCompletion(ctx context.Context, model string, turns []Turn, opts Options) (Turn, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toMessages(turns),
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	for _, declaration := range opts.Functions {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        declaration.Name,
			Description: openai.String(declaration.Description),
			Parameters:  shared.FunctionParameters(declaration.Parameters),
		}))
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Turn{}, fmt.Errorf("creating chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Turn{}, fmt.Errorf("completion returned no choices")
	}

	return messageToTurn(completion.Choices[0].Message), nil
}

// messageToTurn maps a completion message onto a Turn. One function call per
// iteration is the protocol; a model emitting more than one is violating it,
// so the extras are logged before only the first is honored.
func messageToTurn(message openai.ChatCompletionMessage) Turn {
	turn := Turn{
		Role:    RoleAssistant,
		Content: message.Content,
	}
	if len(message.ToolCalls) > 1 {
		slog.Warn("model returned multiple tool calls in one turn, honoring the first",
			"count", len(message.ToolCalls))
	}
	for _, toolCall := range message.ToolCalls {
		turn.FunctionCall = &FunctionCall{
			ID:        toolCall.ID,
			Name:      toolCall.Function.Name,
			Arguments: []byte(toolCall.Function.Arguments),
		}
		turn.ToolCallID = toolCall.ID
		break
	}
	return turn
}

func toMessages(turns []Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, assistantMessage(turn))
		case RoleFunction:
			if turn.ToolCallID != "" {
				messages = append(messages, openai.ToolMessage(turn.Content, turn.ToolCallID))
			} else {
				// Embedded-JSON protocol: the result goes back as user
				// text the model can read without native tool wiring.
				messages = append(messages, openai.UserMessage(
					fmt.Sprintf("Function %s returned: %s", turn.Name, turn.Content)))
			}
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	return messages
}

func assistantMessage(turn Turn) openai.ChatCompletionMessageParamUnion {
	if turn.FunctionCall == nil || turn.ToolCallID == "" {
		return openai.AssistantMessage(turn.Content)
	}
	assistant := openai.ChatCompletionAssistantMessageParam{
		ToolCalls: []openai.ChatCompletionMessageToolCallUnionParam{{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: turn.ToolCallID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      turn.FunctionCall.Name,
					Arguments: string(turn.FunctionCall.Arguments),
				},
			},
		}},
	}
	if turn.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(turn.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}
