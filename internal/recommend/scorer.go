package recommend

import (
	"math"
	"strings"
)

// Breakdown is the four additive sub-scores a Score call produces; the
// total is their sum.
type Breakdown struct {
	Dependency float64
	Usage      float64
	Context    float64
	Quality    float64
}

func (b Breakdown) Total() float64 {
	return b.Dependency + b.Usage + b.Context + b.Quality
}

// Scorer holds per-URI quality entries separately from the per-call
// signal list, since a HighQuality signal may be omitted from the list
// yet still apply once from the scorer's own table.
type Scorer struct {
	quality map[string]float64
}

// NewScorer returns a Scorer with no quality entries.
func NewScorer() *Scorer {
	return &Scorer{quality: map[string]float64{}}
}

// SetQuality records a quality score (expected in [0,1]) for uri, to be
// applied if no explicit HighQuality signal is present for that URI in
// a later Score call.
func (s *Scorer) SetQuality(uri string, score float64) {
	s.quality[uri] = score
}

// Score combines signals for uri into a Breakdown, applying the
// scorer's own quality entry once if no HighQuality signal was given.
func (s *Scorer) Score(uri string, signals []Signal) Breakdown {
	var b Breakdown
	sawHighQuality := false

	for _, sig := range signals {
		switch sig.Kind {
		case Dependency:
			b.Dependency += WeightDependency
		case Dependent:
			b.Dependency += WeightDependent
		case Sibling:
			b.Dependency += WeightSibling
		case CoUsed:
			if sig.Count > 0 {
				b.Usage += WeightCoUsed * math.Max(math.Log2(float64(sig.Count)+1), 1.0)
			}
		case RecentlyUsed:
			b.Usage += WeightRecency
		case ProjectMatch:
			b.Context += WeightContextMatch * float64(len(sig.Matched))
		case PromptMatch:
			b.Context += WeightPromptMatch * math.Min(float64(len(sig.Keywords)), 3)
		case SimilarityMatch:
			sim := sig.Similarity
			if sim < 0 {
				sim = 0
			}
			if sim > 1 {
				sim = 1
			}
			b.Context += WeightSimilarity * sim
		case HighQuality:
			b.Quality += WeightQuality * sig.QualityScore
			sawHighQuality = true
		}
	}

	if !sawHighQuality {
		if q, ok := s.quality[uri]; ok {
			b.Quality += WeightQuality * q
		}
	}

	return b
}

// Enhance appends derived signals to base given ambient state: a
// ProjectMatch if the URI's name contains (case-insensitively) any
// configured project label, a RecentlyUsed if a positive last-used
// timestamp is known, and a HighQuality if the scorer's quality entry
// for the URI is >= 0.7.
func (s *Scorer) Enhance(uri string, base []Signal, nameLower string, projectLabels []string, lastUsedUnix int64) []Signal {
	out := append([]Signal(nil), base...)

	var matched []string
	for _, label := range projectLabels {
		if containsFold(nameLower, label) {
			matched = append(matched, label)
		}
	}
	if len(matched) > 0 {
		out = append(out, Signal{Kind: ProjectMatch, Matched: matched})
	}

	if lastUsedUnix > 0 {
		out = append(out, Signal{Kind: RecentlyUsed, LastUsedUnix: lastUsedUnix})
	}

	if q, ok := s.quality[uri]; ok && q >= 0.7 {
		out = append(out, Signal{Kind: HighQuality, QualityScore: q})
	}

	return out
}

func containsFold(haystackLower, needle string) bool {
	needleLower := strings.ToLower(needle)
	if needleLower == "" {
		return false
	}
	return strings.Contains(haystackLower, needleLower)
}
