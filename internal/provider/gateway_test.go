package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBackend struct {
	name      string
	jsonMode  bool
	reply     Turn
	err       error
	lastModel string
	lastOpts  Options
}

func (f *fakeBackend) Name() string           { return f.name }
func (f *fakeBackend) SupportsJSONMode() bool { return f.jsonMode }

func (f *fakeBackend) GenerateCompletion(_ context.Context, model string, _ []Turn, opts Options) (Turn, error) {
	f.lastModel = model
	f.lastOpts = opts
	return f.reply, f.err
}

func TestGatewayPrefixDispatch(t *testing.T) {
	fallback := &fakeBackend{name: "default", jsonMode: true, reply: Turn{Role: RoleAssistant, Content: "default"}}
	gpt := &fakeBackend{name: "openai", jsonMode: true, reply: Turn{Role: RoleAssistant, Content: "gpt"}}
	local := &fakeBackend{name: "local", reply: Turn{Role: RoleAssistant, Content: "local"}}

	gw := NewGateway(fallback, "gpt-4o-mini")
	gw.Register("gpt", gpt)
	gw.Register("llama", local)

	turn := gw.GenerateCompletion(context.Background(), "gpt-4o", nil, Options{})
	assert.Equal(t, "gpt", turn.Content)
	assert.Equal(t, "gpt-4o", gpt.lastModel)

	turn = gw.GenerateCompletion(context.Background(), "llama-3.1-70b", nil, Options{})
	assert.Equal(t, "local", turn.Content)
}

func TestGatewayUnknownPrefixFallsBack(t *testing.T) {
	fallback := &fakeBackend{name: "default", jsonMode: true, reply: Turn{Role: RoleAssistant, Content: "default"}}
	gw := NewGateway(fallback, "gpt-4o-mini")
	gw.Register("gpt", &fakeBackend{name: "openai", jsonMode: true})

	turn := gw.GenerateCompletion(context.Background(), "mystery-model", nil, Options{})
	assert.Equal(t, "default", turn.Content)
	assert.Equal(t, "gpt-4o-mini", fallback.lastModel)
}

func TestGatewayLongestPrefixWins(t *testing.T) {
	short := &fakeBackend{name: "short", jsonMode: true, reply: Turn{Role: RoleAssistant, Content: "short"}}
	long := &fakeBackend{name: "long", jsonMode: true, reply: Turn{Role: RoleAssistant, Content: "long"}}

	gw := NewGateway(short, "gpt-4o-mini")
	gw.Register("gpt", short)
	gw.Register("gpt-4o", long)

	turn := gw.GenerateCompletion(context.Background(), "gpt-4o-mini", nil, Options{})
	assert.Equal(t, "long", turn.Content)
}

func TestGatewayFailureReturnsSentinel(t *testing.T) {
	failing := &fakeBackend{name: "openai", jsonMode: true, err: errors.New("boom")}
	gw := NewGateway(failing, "gpt-4o-mini")

	turn := gw.GenerateCompletion(context.Background(), "gpt-4o", nil, Options{})
	assert.Equal(t, RoleAssistant, turn.Role)
	assert.Equal(t, Sentinel, turn.Content)
}

func TestGatewayClearsJSONModeWhenUnsupported(t *testing.T) {
	backend := &fakeBackend{name: "local", jsonMode: false, reply: Turn{Role: RoleAssistant}}
	gw := NewGateway(backend, "llama-3.1")

	gw.GenerateCompletion(context.Background(), "llama-3.1", nil, Options{JSONMode: true})
	assert.False(t, backend.lastOpts.JSONMode)
}
