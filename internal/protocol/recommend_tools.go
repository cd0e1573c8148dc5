package protocol

import (
	"context"
	"sort"
	"strings"

	"github.com/clawinfra/skrills/internal/recommend"
)

// Recommendation is one scored candidate in a recommend-* response.
type Recommendation struct {
	URI        string             `json:"uri"`
	Total      float64            `json:"total"`
	Breakdown  recommend.Breakdown `json:"breakdown"`
	Explanation string            `json:"explanation"`
}

func toolRecommendSkills(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	uri := argString(args, "uri", "")
	if uri == "" {
		return errorResult("recommend-skills: uri is required")
	}
	limit := argInt(args, "limit", 10)
	includeQuality := argBool(args, "include_quality", true)

	if _, err := h.Cache.CurrentSkills(ctx); err != nil {
		return errorResult(err.Error())
	}
	g := h.Cache.Graph()
	if g == nil {
		return textResult([]Recommendation{})
	}

	candidates := graphCandidateSignals(g, uri)
	recs := h.rankCandidates(candidates, includeQuality)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return textResult(recs)
}

func toolRecommendSkillsSmart(ctx context.Context, h *Handler, args map[string]any) CallToolResult {
	uri := argString(args, "uri", "")
	prompt := argString(args, "prompt", "")
	limit := argInt(args, "limit", 10)
	includeQuality := argBool(args, "include_quality", true)

	byURI, err := h.byURI(ctx)
	if err != nil {
		return errorResult(err.Error())
	}
	g := h.Cache.Graph()

	candidates := map[string][]recommend.Signal{}
	if uri != "" && g != nil {
		candidates = graphCandidateSignals(g, uri)
	}
	if candidates == nil {
		candidates = map[string][]recommend.Signal{}
	}

	if prompt != "" {
		keywords := strings.Fields(strings.ToLower(prompt))
		for candURI, meta := range byURI {
			if candURI == uri {
				continue
			}
			sim := recommend.Similarity(prompt, meta.Description+" "+meta.Name)
			sigs := candidates[candURI]
			if sim > 0 {
				sigs = append(sigs, recommend.Signal{Kind: recommend.SimilarityMatch, Query: prompt, Similarity: sim})
			}
			if len(keywords) > 0 {
				sigs = append(sigs, recommend.Signal{Kind: recommend.PromptMatch, Keywords: keywords})
			}
			if len(sigs) > 0 {
				candidates[candURI] = sigs
			}
		}
	}

	if h.Stats != nil {
		for candURI := range candidates {
			meta, ok := byURI[candURI]
			if !ok {
				continue
			}
			last, _ := h.Stats.LastUsed(meta.Path)
			if last > 0 {
				candidates[candURI] = append(candidates[candURI], recommend.Signal{Kind: recommend.RecentlyUsed, LastUsedUnix: last})
			}
		}
	}

	recs := h.rankCandidates(candidates, includeQuality)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return textResult(recs)
}

// rankCandidates scores every candidate signal list and returns them
// sorted by descending total, then URI, for deterministic output.
func (h *Handler) rankCandidates(candidates map[string][]recommend.Signal, includeQuality bool) []Recommendation {
	scorer := h.Scorer
	if scorer == nil {
		scorer = recommend.NewScorer()
	}

	out := make([]Recommendation, 0, len(candidates))
	for uri, sigs := range candidates {
		if !includeQuality {
			filtered := sigs[:0:0]
			for _, s := range sigs {
				if s.Kind != recommend.HighQuality {
					filtered = append(filtered, s)
				}
			}
			sigs = filtered
		}
		b := scorer.Score(uri, sigs)
		out = append(out, Recommendation{
			URI:         uri,
			Total:       b.Total(),
			Breakdown:   b,
			Explanation: recommend.Explain(sigs),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].URI < out[j].URI
	})
	return out
}

// graphDeps is a small local interface so graphCandidateSignals doesn't
// need to import the graph package's concrete type beyond its queries.
type graphDeps interface {
	DirectDependencies(uri string) []string
	DirectDependents(uri string) []string
}

// graphCandidateSignals builds the Dependency/Dependent/Sibling signal
// lists for every candidate related to uri: its direct dependencies,
// its direct dependents, and siblings (skills sharing a dependency).
func graphCandidateSignals(g graphDeps, uri string) map[string][]recommend.Signal {
	out := map[string][]recommend.Signal{}
	deps := g.DirectDependencies(uri)
	for _, d := range deps {
		out[d] = append(out[d], recommend.Signal{Kind: recommend.Dependency})
	}
	dependents := g.DirectDependents(uri)
	for _, d := range dependents {
		out[d] = append(out[d], recommend.Signal{Kind: recommend.Dependent})
	}
	siblingSet := map[string]bool{}
	for _, dep := range deps {
		for _, sib := range g.DirectDependents(dep) {
			if sib != uri {
				siblingSet[sib] = true
			}
		}
	}
	for sib := range siblingSet {
		if _, already := out[sib]; !already {
			out[sib] = append(out[sib], recommend.Signal{Kind: recommend.Sibling})
		}
	}
	return out
}
