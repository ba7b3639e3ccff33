package match

import (
	"strings"

	"github.com/coolbeans/insuquote/pkg/catalog"
)

// LabourResult splits the labour catalog into accepted matches and weaker
// candidates for manual override. The labour keyword vocabulary is curated
// to be low-ambiguity, so every rate meeting a condition is accepted
// outright; there is no ranking.
type LabourResult struct {
	Best     []*catalog.LabourRate `json:"best,omitempty"`
	Possible []*catalog.LabourRate `json:"possible,omitempty"`
}

// MatchLabour returns the labour rates applicable to a line item. A rate
// matches when any of its keywords appears literally in the lower-cased
// description, when its area name is a substring of the description, or
// when its application name is a substring of the group's area hint.
func MatchLabour(description, areaHint string, rates []catalog.LabourRate) LabourResult {
	desc := strings.ToLower(strings.TrimSpace(description))
	hint := strings.ToLower(strings.TrimSpace(areaHint))

	var result LabourResult
	for i := range rates {
		r := &rates[i]
		if labourMatches(r, desc, hint) {
			result.Best = append(result.Best, r)
		} else {
			result.Possible = append(result.Possible, r)
		}
	}
	return result
}

func labourMatches(r *catalog.LabourRate, desc, hint string) bool {
	for _, kw := range r.Keywords {
		kw = catalog.NormalizeKeyword(kw)
		if kw != "" && strings.Contains(desc, kw) {
			return true
		}
	}
	if area := strings.ToLower(strings.TrimSpace(r.Area)); area != "" && desc != "" && strings.Contains(desc, area) {
		return true
	}
	if app := strings.ToLower(strings.TrimSpace(r.Application)); app != "" && hint != "" && strings.Contains(hint, app) {
		return true
	}
	return false
}
