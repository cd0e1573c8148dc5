package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/clawinfra/skrills/internal/cache"
	"github.com/clawinfra/skrills/internal/cliadapter"
	"github.com/clawinfra/skrills/internal/recommend"
	"github.com/clawinfra/skrills/internal/runstore"
	"github.com/clawinfra/skrills/internal/skillsrc"
	"github.com/clawinfra/skrills/internal/sync"
	"github.com/clawinfra/skrills/internal/usage"
)

// AgentsDocURI is the synthetic resource entry for the AGENTS guide,
// emitted alongside every discovered skill (spec §6).
const AgentsDocURI = "doc://agents"

// AdapterFactory returns a sync.Adapter rooted at the named client
// ("claude", "codex", "copilot"), or nil if the client is unrecognized.
type AdapterFactory func(client string) sync.Adapter

// Handler owns the shared cache and dependency graph and answers every
// protocol method by reading a consistent snapshot via the cache,
// optionally delegating to the orchestrator (sync), scorer
// (recommend), or run store (subagents). It is safe for concurrent use
// by multiple in-flight tool calls (spec §5: calls within a connection
// are answered in arrival order but not internally serialized).
type Handler struct {
	Cache      *cache.Cache
	Scorer     *recommend.Scorer
	Stats      *usage.Stats
	Adapters   AdapterFactory
	Runs       runstore.Store
	CLI        *cliadapter.Adapter
	Trace      *TraceRecorder
	AgentsDoc  string
	Logger     *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ListResources implements the list_resources method: one entry per
// discovered skill plus the synthetic AGENTS doc entry.
func (h *Handler) ListResources(ctx context.Context) (ListResourcesResult, error) {
	skills, _, err := h.Cache.CurrentSkills(ctx)
	if err != nil {
		return ListResourcesResult{}, fmt.Errorf("protocol: list_resources: %w", err)
	}

	resources := make([]Resource, 0, len(skills)+1)
	for _, m := range skills {
		resources = append(resources, Resource{
			URI:         m.URI(),
			Name:        m.Name,
			Description: m.Description,
		})
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })
	resources = append(resources, Resource{URI: AgentsDocURI, Name: "AGENTS"})

	return ListResourcesResult{Resources: resources}, nil
}

// ReadResource implements the read_resource method.
func (h *Handler) ReadResource(ctx context.Context, uri string) (ReadResourceResult, error) {
	if uri == AgentsDocURI {
		return ReadResourceResult{Contents: []TextResourceContents{{URI: uri, Text: h.AgentsDoc}}}, nil
	}

	contents, err := h.Cache.ReadResource(ctx, uri)
	if err != nil {
		return ReadResourceResult{}, err
	}

	out := make([]TextResourceContents, 0, len(contents))
	for _, c := range contents {
		out = append(out, TextResourceContents{
			URI:  c.URI,
			Text: c.Text,
			Meta: map[string]any{"role": c.Role},
		})
	}
	return ReadResourceResult{Contents: out}, nil
}

// toolAliases maps every accepted snake_case alias back to its
// kebab-case canonical tool name (spec §6: "the dispatcher additionally
// accepts snake_case aliases for every tool").
func toolAliases(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// ListTools implements the list_tools method.
func (h *Handler) ListTools(ctx context.Context) (ListToolsResult, error) {
	return ListToolsResult{Tools: toolDescriptors()}, nil
}

// CallTool implements the call_tool method, dispatching by (aliased)
// tool name.
func (h *Handler) CallTool(ctx context.Context, name string, args map[string]any) (CallToolResult, error) {
	canonical := toolAliases(name)
	fn, ok := toolDispatch[canonical]
	if !ok {
		return errorResult(fmt.Sprintf("unknown tool: %s", name)), nil
	}
	return fn(ctx, h, args), nil
}

// byURI is a small helper used across tool implementations.
func (h *Handler) byURI(ctx context.Context) (map[string]skillsrc.Meta, error) {
	skills, _, err := h.Cache.CurrentSkills(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]skillsrc.Meta, len(skills))
	for _, s := range skills {
		m[s.URI()] = s
	}
	return m, nil
}
