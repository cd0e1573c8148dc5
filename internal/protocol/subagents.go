package protocol

import (
	"context"

	"github.com/clawinfra/skrills/internal/runstore"
)

func toolRunSubagent(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.CLI == nil {
		return errorResult("run-subagent: no CLI adapter configured")
	}
	prompt := argString(args, "prompt", "")
	if prompt == "" {
		return errorResult("run-subagent: prompt is required")
	}
	req := runstore.Request{
		Backend:    argString(args, "backend", "auto"),
		Prompt:     prompt,
		TemplateID: argString(args, "template_id", ""),
		Async:      argBool(args, "async", true),
		Tracing:    argBool(args, "tracing", false),
	}
	id, err := h.CLI.Dispatch(ctx, req)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(map[string]any{"run_id": id, "state": runstore.Pending.String()})
}

func toolSubagentStatus(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.Runs == nil {
		return errorResult("subagent-status: no run store configured")
	}
	id := argString(args, "run_id", "")
	if id == "" {
		return errorResult("subagent-status: run_id is required")
	}
	includeEvents := argBool(args, "include_events", false)
	if includeEvents {
		rec, err := h.Runs.Run(id)
		if err != nil {
			return errorResult(err.Error())
		}
		return textResult(rec)
	}
	status, err := h.Runs.Status(id)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(status)
}

func toolSubagentHistory(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	if h.Runs == nil {
		return errorResult("subagent-history: no run store configured")
	}
	limit := argInt(args, "limit", 20)
	records, err := h.Runs.History(limit)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(records)
}

func toolStopSubagent(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	id := argString(args, "run_id", "")
	if id == "" {
		return errorResult("stop-subagent: run_id is required")
	}
	var stopped bool
	var err error
	if h.CLI != nil {
		stopped, err = h.CLI.Stop(id)
	} else if h.Runs != nil {
		stopped, err = h.Runs.Stop(id)
	} else {
		return errorResult("stop-subagent: no run store or CLI adapter configured")
	}
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(map[string]any{"stopped": stopped})
}
