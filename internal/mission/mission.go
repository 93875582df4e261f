// Package mission cross-checks class names referenced from mission files
// against the scanned game-data class graph, producing one verdict per
// reference (verdicts sorted by reference name). Each reference's verdict is
// the most specific match found: exact, then case-insensitive, then
// partial/fuzzy, then not found.
package mission

import (
	"context"
	"sort"
	"strings"

	"github.com/arma3tool/arma3tool/internal/logging"
	"github.com/arma3tool/arma3tool/internal/store"
	"golang.org/x/sync/errgroup"
)

// MatchKind ranks a verdict by specificity; lower values are more specific.
type MatchKind int

const (
	ExactMatch MatchKind = iota
	CaseInsensitiveMatch
	PartialMatch
	NotFound
)

func (k MatchKind) String() string {
	switch k {
	case ExactMatch:
		return "ExactMatch"
	case CaseInsensitiveMatch:
		return "CaseInsensitiveMatch"
	case PartialMatch:
		return "PartialMatch"
	default:
		return "NotFound"
	}
}

// Candidate is one suggested alternative for a PartialMatch verdict.
type Candidate struct {
	ClassName  string
	Similarity float64
}

// Verdict is the cross-check result for a single referenced class name.
type Verdict struct {
	Reference  string
	Kind       MatchKind
	MatchedAs  string // stored spelling, for ExactMatch/CaseInsensitiveMatch
	Candidates []Candidate
}

// MaxFuzzyMatches bounds how many PartialMatch candidates are returned.
const MaxFuzzyMatches = 5

// prefixes stripped before a direct lookup is retried, mirroring common
// Arma config naming conventions for item variants.
var stripPrefixes = []string{"_xx_", "item_", "weapon_", "magazine_", "backpack_", "uniform_", "vest_", "headgear_"}

// CrossChecker resolves mission class references against a class database.
type CrossChecker struct {
	db      *store.DB
	fuzzy   *FuzzyMatcher
	workers int
}

// New builds a CrossChecker. workers bounds the concurrent fan-out used by
// CheckAll; a value <= 0 defaults to 4.
func New(db *store.DB, fuzzy *FuzzyMatcher, workers int) *CrossChecker {
	if workers <= 0 {
		workers = 4
	}
	return &CrossChecker{db: db, fuzzy: fuzzy, workers: workers}
}

// CheckAll resolves every reference concurrently, bounded by c.workers, and
// returns verdicts sorted by reference name for deterministic output.
func (c *CrossChecker) CheckAll(ctx context.Context, references []string) ([]Verdict, error) {
	timer := logging.StartTimer(logging.CategoryMission, "CheckAll")
	defer timer.Stop()

	all, err := c.db.ListClasses()
	if err != nil {
		return nil, err
	}
	index := newClassIndex(all)

	verdicts := make([]Verdict, len(references))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, ref := range references {
		i, ref := i, ref
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = c.checkOne(ref, index)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].Reference < verdicts[j].Reference })
	return verdicts, nil
}

// Check resolves a single reference without spawning a worker pool.
func (c *CrossChecker) Check(reference string) (Verdict, error) {
	all, err := c.db.ListClasses()
	if err != nil {
		return Verdict{}, err
	}
	return c.checkOne(reference, newClassIndex(all)), nil
}

func (c *CrossChecker) checkOne(reference string, index *classIndex) Verdict {
	if name, ok := index.exact(reference); ok {
		return Verdict{Reference: reference, Kind: ExactMatch, MatchedAs: name}
	}
	if name, ok := index.caseInsensitive(reference); ok {
		return Verdict{Reference: reference, Kind: CaseInsensitiveMatch, MatchedAs: name}
	}

	candidates := c.findCandidates(reference, index)
	if len(candidates) > 0 {
		return Verdict{Reference: reference, Kind: PartialMatch, Candidates: candidates}
	}
	return Verdict{Reference: reference, Kind: NotFound}
}

// findCandidates mirrors the reference validator's two-phase heuristic:
// first strip a known item-variant prefix and retry a direct lookup, then
// fall back to substring/prefix/suffix matching scored by the fuzzy
// matcher and capped at MaxFuzzyMatches.
func (c *CrossChecker) findCandidates(reference string, index *classIndex) []Candidate {
	lower := strings.ToLower(reference)

	for _, prefix := range stripPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		stripped := lower[len(prefix):]
		if name, ok := index.caseInsensitive(stripped); ok {
			return []Candidate{{ClassName: name, Similarity: 1.0}}
		}
	}

	var candidates []Candidate
	for _, known := range index.names {
		knownLower := strings.ToLower(known)
		if knownLower == lower || len(knownLower) < 3 {
			continue
		}
		related := strings.HasPrefix(knownLower, lower) || strings.HasPrefix(lower, knownLower) ||
			strings.HasSuffix(knownLower, lower) || strings.HasSuffix(lower, knownLower) ||
			strings.Contains(knownLower, lower) || strings.Contains(lower, knownLower)
		if !related {
			continue
		}
		similarity := c.fuzzy.Similarity(lower, knownLower)
		if similarity < c.fuzzy.Threshold() {
			continue
		}
		candidates = append(candidates, Candidate{ClassName: known, Similarity: similarity})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if len(candidates) > MaxFuzzyMatches {
		candidates = candidates[:MaxFuzzyMatches]
	}
	return candidates
}

// classIndex holds an in-memory snapshot of class names for one CheckAll
// run, avoiding a database round trip per reference.
type classIndex struct {
	byExactName map[string]string
	byLowerName map[string]string
	names       []string
}

func newClassIndex(classes []store.Class) *classIndex {
	idx := &classIndex{
		byExactName: make(map[string]string, len(classes)),
		byLowerName: make(map[string]string, len(classes)),
		names:       make([]string, 0, len(classes)),
	}
	for _, c := range classes {
		idx.byExactName[c.Name] = c.Name
		if _, exists := idx.byLowerName[strings.ToLower(c.Name)]; !exists {
			idx.byLowerName[strings.ToLower(c.Name)] = c.Name
		}
		idx.names = append(idx.names, c.Name)
	}
	return idx
}

func (idx *classIndex) exact(name string) (string, bool) {
	v, ok := idx.byExactName[name]
	return v, ok
}

func (idx *classIndex) caseInsensitive(name string) (string, bool) {
	v, ok := idx.byLowerName[strings.ToLower(name)]
	return v, ok
}
