// Package parse converts unstructured pasted quote text into a structured
// worksheet tree: blocks and location groups containing material line items
// with extracted attributes and catalog match suggestions.
package parse

// Unit is the measurement unit of a line item quantity.
type Unit string

const (
	UnitSquareMetre Unit = "m²"
	UnitLinearMetre Unit = "LM"
	UnitItem        Unit = "item"
	UnitPanel       Unit = "panel"
)

// Category classifies a line item into a pricing family.
type Category string

const (
	CategoryBulkInsulation Category = "Bulk Insulation"
	CategoryWallWrap       Category = "Wall Wrap"
	CategoryPanels         Category = "Panels"
	CategoryXPS            Category = "XPS"
	CategoryDampcourse     Category = "Dampcourse"
	CategoryOther          Category = "Other"
)

// RawLineItem is one parsed material line. OriginalText is preserved
// verbatim so the review UI can show raw vs. interpreted side by side;
// it is never normalized or rewritten after extraction.
type RawLineItem struct {
	ID           string   `json:"id"`
	OriginalText string   `json:"original_text"`
	Confidence   float64  `json:"confidence"`
	Description  string   `json:"description"`
	Quantity     float64  `json:"quantity"`
	Unit         Unit     `json:"unit"`
	RValue       string   `json:"r_value,omitempty"`
	Grade        string   `json:"grade,omitempty"`
	ColourHint   string   `json:"colour_hint,omitempty"`
	SupplyOnly   bool     `json:"supply_only,omitempty"`
	Layered      bool     `json:"layered,omitempty"`
	ProductCount int      `json:"product_count,omitempty"`
	ProductUnit  string   `json:"product_unit,omitempty"`
	Thickness    string   `json:"thickness,omitempty"`
	Dimensions   string   `json:"dimensions,omitempty"`
	Category     Category `json:"category"`
	Notes        []string `json:"notes,omitempty"`

	// Match suggestions. MaterialID holds the accepted best match (empty
	// when unmatched); the shortlist and possible lists are offered to the
	// reviewer for manual override, never auto-applied.
	MaterialID        string   `json:"material_id,omitempty"`
	MaterialShortlist []string `json:"material_shortlist,omitempty"`
	LabourIDs         []string `json:"labour_ids,omitempty"`
	LabourPossibleIDs []string `json:"labour_possible_ids,omitempty"`

	// Location is the group context the item was parsed under.
	Location string `json:"location,omitempty"`
}

// FullRValue returns the R-value with its grade suffix attached, e.g.
// "2.5HD". Grade suffixes are significant for matching: a "2.5HD" item
// must never match a plain "2.5" catalog entry.
func (it *RawLineItem) FullRValue() string {
	if it.RValue == "" {
		return ""
	}
	return it.RValue + it.Grade
}

// RawGroup is one section of the worksheet: a room or location heading and
// the line items parsed under it.
type RawGroup struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Location   string         `json:"location,omitempty"`
	ItemType   string         `json:"item_type,omitempty"`
	Category   Category       `json:"category,omitempty"`
	Block      string         `json:"block,omitempty"`
	SupplyOnly bool           `json:"supply_only,omitempty"`
	Items      []*RawLineItem `json:"items"`
}

// RawWorksheet is the root of a parsed quote.
type RawWorksheet struct {
	Groups []*RawGroup `json:"groups"`
}

// Statistics summarizes a parse for validation output.
type Statistics struct {
	Groups    int `json:"groups"`
	Items     int `json:"items"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Notes     int `json:"notes"`
}

// Statistics returns summary counts for the worksheet.
func (ws *RawWorksheet) Statistics() Statistics {
	stats := Statistics{Groups: len(ws.Groups)}
	for _, g := range ws.Groups {
		stats.Items += len(g.Items)
		for _, it := range g.Items {
			if it.MaterialID != "" {
				stats.Matched++
			} else {
				stats.Unmatched++
			}
			stats.Notes += len(it.Notes)
		}
	}
	return stats
}
