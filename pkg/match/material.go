package match

import (
	"sort"
	"strings"

	"github.com/coolbeans/insuquote/pkg/catalog"
)

// Tuning holds the empirical acceptance thresholds. The divisors are
// relative to the search string length, so shorter descriptions tolerate
// less absolute edit distance. Values carried over from historical quote
// data; treat as tunable, not truth.
type Tuning struct {
	// AcceptDivisor gates the best match: accepted when
	// distance < len(search)/AcceptDivisor.
	AcceptDivisor float64 `yaml:"accept_divisor"`

	// ShortlistDivisor gates near-best alternatives kept for manual
	// disambiguation: distance < len(search)/ShortlistDivisor.
	ShortlistDivisor float64 `yaml:"shortlist_divisor"`

	// ShortlistSize caps the number of alternatives retained.
	ShortlistSize int `yaml:"shortlist_size"`
}

// DefaultTuning returns the thresholds used in production.
func DefaultTuning() Tuning {
	return Tuning{
		AcceptDivisor:    1.5,
		ShortlistDivisor: 1.2,
		ShortlistSize:    5,
	}
}

// MaterialQuery describes one material lookup.
type MaterialQuery struct {
	// Description is the extracted line-item description to score against
	// catalog names.
	Description string

	// RValue, when non-empty, filters candidates by exact string equality
	// including any grade suffix: "2.5HD" never matches "2.5".
	RValue string

	// Brand, when non-empty, filters candidates to the operator-selected
	// insulation brand.
	Brand string

	// Area, when non-empty, filters candidates by category substring.
	Area string
}

// ScoredMaterial is a candidate with its edit distance.
type ScoredMaterial struct {
	Material *catalog.Material `json:"material"`
	Distance int               `json:"distance"`
}

// MaterialResult holds the accepted best match (nil when nothing clears
// the threshold) and a shortlist of near-best alternatives.
type MaterialResult struct {
	Best         *catalog.Material `json:"best,omitempty"`
	BestDistance int               `json:"best_distance,omitempty"`
	Shortlist    []ScoredMaterial  `json:"shortlist,omitempty"`
}

// MatchMaterial filters the catalog by the query's attributes, scores the
// survivors by edit distance against the description, and applies the
// relative-error thresholds from t.
func MatchMaterial(q MaterialQuery, materials []catalog.Material, t Tuning) MaterialResult {
	search := strings.ToLower(strings.TrimSpace(q.Description))
	if search == "" {
		return MaterialResult{}
	}

	var scored []ScoredMaterial
	for i := range materials {
		m := &materials[i]
		if q.RValue != "" && !sameRValue(m.RValue, q.RValue) {
			continue
		}
		if q.Brand != "" && !strings.EqualFold(strings.TrimSpace(m.Brand), strings.TrimSpace(q.Brand)) {
			continue
		}
		if q.Area != "" && !categoryContains(m.Category, q.Area) {
			continue
		}
		scored = append(scored, ScoredMaterial{
			Material: m,
			Distance: Distance(search, m.Name),
		})
	}

	// Ascending by distance; name tiebreak keeps output deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Material.Name < scored[j].Material.Name
	})

	result := MaterialResult{}
	acceptLimit := float64(len(search)) / t.AcceptDivisor
	shortlistLimit := float64(len(search)) / t.ShortlistDivisor

	for _, s := range scored {
		if result.Best == nil && float64(s.Distance) < acceptLimit {
			result.Best = s.Material
			result.BestDistance = s.Distance
			continue
		}
		if float64(s.Distance) < shortlistLimit && len(result.Shortlist) < t.ShortlistSize {
			result.Shortlist = append(result.Shortlist, s)
		}
	}
	return result
}

// sameRValue compares R-value strings exactly, ignoring case and internal
// spaces, with no numeric coercion. Grade suffixes are significant.
func sameRValue(a, b string) bool {
	clean := func(s string) string {
		return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	}
	return clean(a) == clean(b)
}

func categoryContains(category, area string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	a := strings.ToLower(strings.TrimSpace(area))
	if c == "" || a == "" {
		return false
	}
	return strings.Contains(c, a) || strings.Contains(a, c)
}
