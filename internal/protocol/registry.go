package protocol

import "context"

// toolFunc is the shape every dispatchable tool implements.
type toolFunc func(ctx context.Context, h *Handler, args map[string]any) CallToolResult

// toolDispatch maps a canonical kebab-case tool name to its
// implementation. toolAliases normalizes snake_case spellings before
// this lookup.
var toolDispatch = map[string]toolFunc{
	"validate-skills":         toolValidateSkills,
	"resolve-dependencies":    toolResolveDependencies,
	"recommend-skills":        toolRecommendSkills,
	"recommend-skills-smart":  toolRecommendSkillsSmart,
	"sync-skills":              toolSyncSkills,
	"sync-commands":            toolSyncCommands,
	"sync-mcp-servers":         toolSyncMCPServers,
	"sync-preferences":         toolSyncPreferences,
	"sync-all":                 toolSyncAll,
	"sync-status":              toolSyncStatus,
	"skill-metrics":            toolSkillMetrics,
	"search-skills-fuzzy":      toolSearchSkillsFuzzy,
	"skill-loading-status":     toolSkillLoadingStatus,
	"enable-skill-trace":       toolEnableSkillTrace,
	"disable-skill-trace":      toolDisableSkillTrace,
	"skill-loading-selftest":   toolSkillLoadingSelftest,
	"run-subagent":             toolRunSubagent,
	"subagent-status":          toolSubagentStatus,
	"subagent-history":         toolSubagentHistory,
	"stop-subagent":            toolStopSubagent,
}

// toolDescriptors returns the JSON-schema input descriptor for every
// tool, in a fixed deterministic order matching the table in spec §6.
func toolDescriptors() []ToolDescriptor {
	strProp := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	boolProp := func(desc string) map[string]any { return map[string]any{"type": "boolean", "description": desc} }
	numProp := func(desc string) map[string]any { return map[string]any{"type": "number", "description": desc} }
	intProp := func(desc string) map[string]any { return map[string]any{"type": "integer", "description": desc} }

	return []ToolDescriptor{
		{
			Name:        "validate-skills",
			Description: "Validate discovered skills' frontmatter and optionally their dependency graph.",
			InputSchema: schema(map[string]any{
				"target":             strProp("claude | codex | both"),
				"errors_only":        boolProp("only include skills with issues"),
				"check_dependencies": boolProp("also surface graph diagnostics"),
			}, nil),
		},
		{
			Name:        "resolve-dependencies",
			Description: "List a skill's direct or transitive dependencies/dependents.",
			InputSchema: schema(map[string]any{
				"uri":        strProp("skill URI"),
				"direction":  strProp("dependencies | dependents"),
				"transitive": boolProp("follow the full closure"),
			}, []string{"uri"}),
		},
		{
			Name:        "recommend-skills",
			Description: "Score skills related to uri by dependency, usage, and quality signals.",
			InputSchema: schema(map[string]any{
				"uri":             strProp("skill URI"),
				"limit":           intProp("max results"),
				"include_quality": boolProp("include the quality sub-score"),
			}, []string{"uri"}),
		},
		{
			Name:        "recommend-skills-smart",
			Description: "Like recommend-skills, enhanced with a free-text prompt and usage recency.",
			InputSchema: schema(map[string]any{
				"uri":             strProp("skill URI"),
				"prompt":          strProp("free-text context"),
				"project_dir":     strProp("project directory hint"),
				"limit":           intProp("max results"),
				"include_quality": boolProp("include the quality sub-score"),
			}, nil),
		},
		syncDescriptor("sync-skills", "Sync skill files from one client to another."),
		syncDescriptor("sync-commands", "Sync command/prompt files from one client to another."),
		syncDescriptor("sync-mcp-servers", "Sync MCP server configuration from one client to another."),
		syncDescriptor("sync-preferences", "Sync client preferences from one client to another."),
		syncDescriptor("sync-all", "Sync every supported field from one client to another."),
		syncDescriptor("sync-status", "Dry-run every field and report what would change."),
		{
			Name:        "skill-metrics",
			Description: "Aggregate counts over currently discovered skills.",
			InputSchema: schema(map[string]any{
				"include_validation": boolProp("also validate each skill"),
			}, nil),
		},
		{
			Name:        "search-skills-fuzzy",
			Description: "Fuzzy-match skills by name/description trigram similarity.",
			InputSchema: schema(map[string]any{
				"query":               strProp("search text"),
				"threshold":           numProp("minimum similarity in [0,1]"),
				"limit":               intProp("max results"),
				"include_description": boolProp("also match against description"),
			}, []string{"query"}),
		},
		{
			Name:        "skill-loading-status",
			Description: "Report whether skill-loading trace instrumentation is installed.",
			InputSchema: schema(map[string]any{"target": strProp("claude | codex | both")}, nil),
		},
		{
			Name:        "enable-skill-trace",
			Description: "Install trace/probe skills and instrument skill files with loading markers.",
			InputSchema: schema(map[string]any{
				"target":     strProp("claude | codex | both"),
				"instrument": boolProp("instrument skill files with markers"),
				"dry_run":    boolProp("report without writing"),
			}, nil),
		},
		{
			Name:        "disable-skill-trace",
			Description: "Remove the installed trace/probe skills.",
			InputSchema: schema(map[string]any{
				"target":  strProp("claude | codex | both"),
				"dry_run": boolProp("report without writing"),
			}, nil),
		},
		{
			Name:        "skill-loading-selftest",
			Description: "Check that trace instrumentation is installed and markers are present.",
			InputSchema: schema(map[string]any{"target": strProp("claude | codex | both")}, nil),
		},
		{
			Name:        "run-subagent",
			Description: "Dispatch a prompt to an external assistant CLI as a tracked background run.",
			InputSchema: schema(map[string]any{
				"backend":     strProp("claude | codex | gemini | qwen | auto"),
				"prompt":      strProp("prompt text"),
				"template_id": strProp("optional output template id"),
				"async":       boolProp("return immediately (default true)"),
				"tracing":     boolProp("enable skill-loading trace for this run"),
			}, []string{"prompt"}),
		},
		{
			Name:        "subagent-status",
			Description: "Read a run's current status, optionally with its full event log.",
			InputSchema: schema(map[string]any{
				"run_id":         strProp("run id"),
				"include_events": boolProp("include the full record"),
			}, []string{"run_id"}),
		},
		{
			Name:        "subagent-history",
			Description: "List recent runs, newest first.",
			InputSchema: schema(map[string]any{"limit": intProp("max records")}, nil),
		},
		{
			Name:        "stop-subagent",
			Description: "Cancel a running subagent, killing its child process.",
			InputSchema: schema(map[string]any{"run_id": strProp("run id")}, []string{"run_id"}),
		},
	}
}

func syncDescriptor(name, desc string) ToolDescriptor {
	return ToolDescriptor{
		Name:        name,
		Description: desc,
		InputSchema: schema(map[string]any{
			"from":                    map[string]any{"type": "string", "description": "claude | codex"},
			"dry_run":                 map[string]any{"type": "boolean", "description": "report without writing"},
			"include_marketplace":     map[string]any{"type": "boolean", "description": "also sync marketplace-sourced skills"},
			"skip_existing_commands":  map[string]any{"type": "boolean", "description": "never overwrite an existing command file"},
			"force":                   map[string]any{"type": "boolean", "description": "overwrite even on hash mismatch"},
		}, nil),
	}
}

func schema(props map[string]any, required []string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
