package protocol

import (
	"context"

	"github.com/clawinfra/skrills/internal/sync"
)

func syncParams(args map[string]any, fields sync.Params) sync.Params {
	fields.DryRun = argBool(args, "dry_run", false)
	fields.IncludeMarketplace = argBool(args, "include_marketplace", false)
	fields.SkipExistingCommands = argBool(args, "skip_existing_commands", false)
	fields.Force = argBool(args, "force", false)
	return fields
}

func otherClient(from string) string {
	if from == "codex" {
		return "claude"
	}
	return "codex"
}

func runSync(h *Handler, args map[string]any, params sync.Params) CallToolResult {
	if h.Adapters == nil {
		return errorResult("sync: no adapter factory configured")
	}
	from := argString(args, "from", "claude")
	to := argString(args, "to", otherClient(from))

	src := h.Adapters(from)
	dst := h.Adapters(to)
	if src == nil || dst == nil {
		return errorResult("sync: unrecognized client in from/to")
	}

	report, err := sync.Sync(src, dst, params)
	if err != nil {
		return CallToolResult{
			Content:           []Content{{Type: "text", Text: err.Error()}},
			StructuredContent: report,
			IsError:           true,
		}
	}
	return textResult(report)
}

func toolSyncSkills(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	return runSync(h, args, syncParams(args, sync.Params{Skills: true}))
}

func toolSyncCommands(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	return runSync(h, args, syncParams(args, sync.Params{Commands: true}))
}

func toolSyncMCPServers(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	return runSync(h, args, syncParams(args, sync.Params{MCPServers: true}))
}

func toolSyncPreferences(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	return runSync(h, args, syncParams(args, sync.Params{Preferences: true}))
}

func toolSyncAll(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	return runSync(h, args, syncParams(args, sync.Params{
		Commands: true, Skills: true, MCPServers: true, Preferences: true,
		Hooks: true, Agents: true, Instructions: true,
	}))
}

func toolSyncStatus(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	params := syncParams(args, sync.Params{
		Commands: true, Skills: true, MCPServers: true, Preferences: true,
		Hooks: true, Agents: true, Instructions: true,
	})
	params.DryRun = true
	return runSync(h, args, params)
}
