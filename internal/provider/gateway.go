package provider

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/coachd-platform/coachd/internal/metrics"
)

// Gateway routes completion requests to a backend by model-name prefix and
// shields callers from backend failures. It never returns an error: any
// failure is replaced with the sentinel assistant turn.
type Gateway struct {
	routes         map[string]Backend
	prefixes       []string // sorted longest-first so "gpt-4o" wins over "gpt"
	defaultBackend Backend
	defaultModel   string
}

func NewGateway(defaultBackend Backend, defaultModel string) *Gateway {
	return &Gateway{
		routes:         make(map[string]Backend),
		defaultBackend: defaultBackend,
		defaultModel:   defaultModel,
	}
}

// Register routes models whose name starts with prefix to the backend.
func (g *Gateway) Register(prefix string, backend Backend) {
	g.routes[prefix] = backend
	g.prefixes = append(g.prefixes, prefix)
	sort.Slice(g.prefixes, func(i, j int) bool {
		return len(g.prefixes[i]) > len(g.prefixes[j])
	})
}

// resolve picks the backend for a model. Unknown prefixes fall back to the
// default backend and default model pair.
func (g *Gateway) resolve(model string) (Backend, string) {
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(model, prefix) {
			return g.routes[prefix], model
		}
	}
	return g.defaultBackend, g.defaultModel
}

// GenerateCompletion runs the request against the resolved backend. JSON
// mode is only passed through when the backend supports it reliably.
func (g *Gateway) GenerateCompletion(ctx context.Context, model string, turns []Turn, opts Options) Turn {
	backend, resolvedModel := g.resolve(model)
	if !backend.SupportsJSONMode() {
		opts.JSONMode = false
	}

	turn, err := backend.GenerateCompletion(ctx, resolvedModel, turns, opts)
	if err != nil {
		slog.Error("provider request failed",
			"backend", backend.Name(), "model", resolvedModel, "error", err)
		metrics.ProviderRequestsTotal.WithLabelValues(backend.Name(), "error").Inc()
		return Turn{Role: RoleAssistant, Content: Sentinel}
	}

	metrics.ProviderRequestsTotal.WithLabelValues(backend.Name(), "ok").Inc()
	return turn
}
