package mission

import "github.com/hbollon/go-edlib"

// FuzzyMatcher scores partial-match candidates with Jaro-Winkler
// similarity, matching the wrapper shape used elsewhere in the example
// pack for the same algorithm.
type FuzzyMatcher struct {
	threshold float64
}

// NewFuzzyMatcher builds a FuzzyMatcher. A threshold outside [0,1] falls
// back to 0.75, the floor the cross-checker's test suite pins against.
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold < 0 || threshold > 1 {
		threshold = 0.75
	}
	return &FuzzyMatcher{threshold: threshold}
}

// Threshold returns the configured similarity floor.
func (fm *FuzzyMatcher) Threshold() float64 {
	return fm.threshold
}

// Similarity returns the Jaro-Winkler similarity of a and b in [0, 1].
func (fm *FuzzyMatcher) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}
