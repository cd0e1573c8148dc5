package protocol

import (
	"context"

	"github.com/clawinfra/skrills/internal/recommend"
)

// FuzzyResult is one matched skill from search-skills-fuzzy.
type FuzzyResult struct {
	URI          string  `json:"uri"`
	Similarity   float64 `json:"similarity"`
	MatchedField string  `json:"matched_field"`
}

func toolSearchSkillsFuzzy(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	query := argString(args, "query", "")
	if query == "" {
		return errorResult("search-skills-fuzzy: query is required")
	}
	threshold := argFloat(args, "threshold", 0.0)
	limit := argInt(args, "limit", 20)
	includeDescription := argBool(args, "include_description", true)

	skills, _, err := h.Cache.CurrentSkills(ctx)
	if err != nil {
		return errorResult(err.Error())
	}

	var results []FuzzyResult
	for _, m := range skills {
		nameSim := recommend.Similarity(query, m.Name)
		best := FuzzyResult{URI: m.URI(), Similarity: nameSim, MatchedField: "Name"}
		if includeDescription && m.Description != "" {
			descSim := recommend.Similarity(query, m.Description)
			if descSim > best.Similarity {
				best = FuzzyResult{URI: m.URI(), Similarity: descSim, MatchedField: "Description"}
			}
		}
		if best.Similarity > threshold {
			results = append(results, best)
		}
	}

	sortFuzzyResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return textResult(results)
}

func sortFuzzyResults(results []FuzzyResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && less(results[j], results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func less(a, b FuzzyResult) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.URI < b.URI
}
