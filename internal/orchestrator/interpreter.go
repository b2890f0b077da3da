package orchestrator

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/coachd-platform/coachd/internal/provider"
)

// Interpretation is the structured reading of a raw assistant reply.
type Interpretation struct {
	Message      string
	FunctionCall *provider.FunctionCall
}

// Interpret decodes an assistant reply that should be a JSON object with a
// "message" string and an optional "function_call". The interpreter never
// drops content: if the text is not usable JSON, the original text is the
// message. Markers inside the message are preserved verbatim.
func Interpret(raw string) Interpretation {
	text := stripFence(strings.TrimSpace(raw))

	if !gjson.Valid(text) {
		return Interpretation{Message: raw}
	}
	parsed := gjson.Parse(text)
	if !parsed.IsObject() {
		return Interpretation{Message: raw}
	}

	out := Interpretation{}
	if message := parsed.Get("message"); message.Type == gjson.String {
		out.Message = message.Str
	}
	out.FunctionCall = extractFunctionCall(parsed)

	// A JSON object with neither a usable message nor a function call is
	// treated as plain text rather than swallowed.
	if out.Message == "" && out.FunctionCall == nil {
		return Interpretation{Message: raw}
	}
	return out
}

// extractFunctionCall accepts a call only when it carries a non-empty string
// name and an object of arguments. Anything else is discarded and logged,
// never surfaced to the model as an error.
func extractFunctionCall(parsed gjson.Result) *provider.FunctionCall {
	call := parsed.Get("function_call")
	if !call.Exists() {
		return nil
	}
	if !call.IsObject() {
		slog.Warn("discarding malformed function call", "raw", call.Raw)
		return nil
	}

	name := call.Get("name")
	if name.Type != gjson.String || name.Str == "" {
		slog.Warn("discarding function call without name", "raw", call.Raw)
		return nil
	}

	arguments := call.Get("arguments")
	if arguments.Exists() && !arguments.IsObject() {
		slog.Warn("discarding function call with non-object arguments", "function", name.Str)
		return nil
	}

	args := json.RawMessage(`{}`)
	if arguments.Exists() {
		args = json.RawMessage(arguments.Raw)
	}
	return &provider.FunctionCall{Name: name.Str, Arguments: args}
}

// stripFence removes a single layer of fenced-code wrapping, with or without
// a language tag.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") {
		return text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	if newline := strings.IndexByte(inner, '\n'); newline >= 0 {
		firstLine := strings.TrimSpace(inner[:newline])
		// The first fence line may be a language tag like "json".
		if firstLine == "" || !strings.ContainsAny(firstLine, " {[") {
			inner = inner[newline+1:]
		}
	}
	return strings.TrimSpace(inner)
}
