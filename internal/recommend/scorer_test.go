package recommend

import (
	"math"
	"testing"
)

func TestScoreCombinedScenario(t *testing.T) {
	s := NewScorer()
	signals := []Signal{
		{Kind: Dependency},
		{Kind: CoUsed, Count: 4},
		{Kind: ProjectMatch, Matched: []string{"Rust"}},
	}
	b := s.Score("skill://skrills/codex/example/SKILL.md", signals)

	want := 10.80
	if math.Abs(b.Total()-want) > 0.01 {
		t.Fatalf("total = %v, want %v +/- 0.01", b.Total(), want)
	}
	if b.Dependency <= 0 {
		t.Fatalf("expected positive dependency sub-score, got %v", b.Dependency)
	}
	if b.Usage <= 0 {
		t.Fatalf("expected positive usage sub-score, got %v", b.Usage)
	}
	if b.Context <= 0 {
		t.Fatalf("expected positive context sub-score, got %v", b.Context)
	}
}

func TestCoUsedZeroContributesNothing(t *testing.T) {
	s := NewScorer()
	b := s.Score("u", []Signal{{Kind: CoUsed, Count: 0}})
	if b.Total() != 0 {
		t.Fatalf("expected zero total, got %v", b.Total())
	}
}

func TestCoUsedMonotonic(t *testing.T) {
	s := NewScorer()
	low := s.Score("u", []Signal{{Kind: CoUsed, Count: 2}}).Usage
	high := s.Score("u", []Signal{{Kind: CoUsed, Count: 20}}).Usage
	if !(high > low) {
		t.Fatalf("expected higher count to score higher: low=%v high=%v", low, high)
	}
}

func TestScorerQualityFallbackAppliesOnce(t *testing.T) {
	s := NewScorer()
	s.SetQuality("u", 0.8)

	b := s.Score("u", []Signal{{Kind: Dependency}})
	if math.Abs(b.Quality-WeightQuality*0.8) > 1e-9 {
		t.Fatalf("expected fallback quality applied once, got %v", b.Quality)
	}

	// An explicit HighQuality signal suppresses the fallback rather than
	// stacking with it.
	b2 := s.Score("u", []Signal{{Kind: HighQuality, QualityScore: 0.5}})
	if math.Abs(b2.Quality-WeightQuality*0.5) > 1e-9 {
		t.Fatalf("expected explicit signal only, got %v", b2.Quality)
	}
}

func TestScoreLinearAcrossIndependentSignals(t *testing.T) {
	s := NewScorer()
	dep := s.Score("u", []Signal{{Kind: Dependency}}).Total()
	sib := s.Score("u", []Signal{{Kind: Sibling}}).Total()
	combined := s.Score("u", []Signal{{Kind: Dependency}, {Kind: Sibling}}).Total()
	if math.Abs(combined-(dep+sib)) > 1e-9 {
		t.Fatalf("expected additive scoring, got dep=%v sib=%v combined=%v", dep, sib, combined)
	}
}

func TestEnhanceAppendsDerivedSignals(t *testing.T) {
	s := NewScorer()
	s.SetQuality("skill://skrills/codex/rust-helper/SKILL.md", 0.9)

	enhanced := s.Enhance(
		"skill://skrills/codex/rust-helper/SKILL.md",
		nil,
		"rust-helper",
		[]string{"Rust"},
		1700000000,
	)

	var sawProject, sawRecency, sawQuality bool
	for _, sig := range enhanced {
		switch sig.Kind {
		case ProjectMatch:
			sawProject = true
		case RecentlyUsed:
			sawRecency = true
		case HighQuality:
			sawQuality = true
		}
	}
	if !sawProject || !sawRecency || !sawQuality {
		t.Fatalf("expected all three derived signals, got %+v", enhanced)
	}
}
