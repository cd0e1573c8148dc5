package recommend

import (
	"fmt"
	"strings"
)

// Explain produces a single human-readable sentence from the same
// signal list Score consumes, for surfacing why a skill was
// recommended.
func Explain(signals []Signal) string {
	var clauses []string
	for _, sig := range signals {
		switch sig.Kind {
		case Dependency:
			clauses = append(clauses, "is a dependency of the current skill")
		case Dependent:
			clauses = append(clauses, "depends on the current skill")
		case Sibling:
			clauses = append(clauses, "shares a dependency with the current skill")
		case CoUsed:
			if sig.Count > 0 {
				clauses = append(clauses, fmt.Sprintf("was used alongside the current skill %d times", sig.Count))
			}
		case RecentlyUsed:
			clauses = append(clauses, "was used recently")
		case ProjectMatch:
			if len(sig.Matched) > 0 {
				clauses = append(clauses, "matches project context ("+strings.Join(sig.Matched, ", ")+")")
			}
		case PromptMatch:
			if len(sig.Keywords) > 0 {
				clauses = append(clauses, "matches keywords in the prompt")
			}
		case SimilarityMatch:
			clauses = append(clauses, fmt.Sprintf("is similar to %q", sig.Query))
		case HighQuality:
			clauses = append(clauses, "is a high-quality skill")
		}
	}

	if len(clauses) == 0 {
		return "Recommended with no specific signal."
	}
	return "Recommended because it " + strings.Join(clauses, "; ") + "."
}
