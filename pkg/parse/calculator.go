package parse

import (
	"fmt"
	"math"
	"strings"

	"github.com/coolbeans/insuquote/pkg/catalog"
)

// DerivedCount is the result of deriving a panel count from area.
type DerivedCount struct {
	Count      int    `json:"count"`
	Unit       string `json:"unit"`
	Dimensions string `json:"dimensions"`
}

// rigidPanelAliases maps item categories to the loose catalog category
// tokens accepted when resolving panel dimensions. "rigid" covers the
// rigid-panel brand lines that are filed under their own category.
var rigidPanelAliases = map[Category][]string{
	CategoryXPS:    {"xps", "panel", "rigid"},
	CategoryPanels: {"panel", "xps", "rigid"},
}

// DeriveCount derives a panel count for an XPS/rigid-panel item whose
// count was not stated. Dimensions parsed from the line win; otherwise the
// first catalog material with a loosely matching category (and matching
// thickness/R-value where the item states them) supplies width and length.
// Returns nil when no dimensions can be resolved; the item is then left
// for manual entry.
func DeriveCount(item *RawLineItem, materials []catalog.Material) *DerivedCount {
	aliases, panelLike := rigidPanelAliases[item.Category]
	if !panelLike || item.ProductCount > 0 || item.Quantity <= 0 {
		return nil
	}

	width, length, ok := ParseDimensions(item.Dimensions)
	dims := item.Dimensions
	if !ok {
		for i := range materials {
			m := &materials[i]
			if !categoryMatchesLoosely(m.Category, aliases) {
				continue
			}
			if item.Thickness != "" && !sameToken(m.Thickness, item.Thickness) {
				continue
			}
			if item.RValue != "" && !sameToken(m.RValue, item.FullRValue()) {
				continue
			}
			if m.Width > 0 && m.Length > 0 {
				width, length = m.Width, m.Length
				dims = fmt.Sprintf("%.0fx%.0fmm", width, length)
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil
	}

	areaPerUnit := width * length / 1e6
	if areaPerUnit <= 0 {
		return nil
	}
	return &DerivedCount{
		Count:      int(math.Ceil(item.Quantity / areaPerUnit)),
		Unit:       "panel",
		Dimensions: dims,
	}
}

// ApplyDerivedCount sets the derived count on the item and records the
// auto-calculation in its notes.
func ApplyDerivedCount(item *RawLineItem, d *DerivedCount) {
	if d == nil {
		return
	}
	item.ProductCount = d.Count
	item.ProductUnit = d.Unit
	if item.Dimensions == "" {
		item.Dimensions = d.Dimensions
	}
	item.Notes = append(item.Notes, fmt.Sprintf(
		"Auto-calculated %d %ss from %s for %.2f%s",
		d.Count, d.Unit, d.Dimensions, item.Quantity, item.Unit))
}

func categoryMatchesLoosely(materialCategory string, aliases []string) bool {
	lower := strings.ToLower(materialCategory)
	for _, a := range aliases {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}

// sameToken compares attribute tokens ("70mm", "2.5HD") ignoring case and
// internal spaces.
func sameToken(a, b string) bool {
	clean := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	}
	return clean(a) == clean(b)
}
