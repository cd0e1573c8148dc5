package protocol

import "context"

func toolResolveDependencies(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	uri := argString(args, "uri", "")
	if uri == "" {
		return errorResult("resolve-dependencies: uri is required")
	}
	direction := argString(args, "direction", "dependencies")
	transitive := argBool(args, "transitive", false)

	if _, err := h.Cache.CurrentSkills(ctx); err != nil {
		return errorResult(err.Error())
	}
	g := h.Cache.Graph()
	if g == nil {
		return textResult([]string{})
	}

	var uris []string
	switch {
	case direction == "dependents" && transitive:
		uris = g.TransitiveDependents(uri)
	case direction == "dependents":
		uris = g.DirectDependents(uri)
	case transitive:
		uris = g.TransitiveDependencies(uri)
	default:
		uris = g.DirectDependencies(uri)
	}
	return textResult(uris)
}
