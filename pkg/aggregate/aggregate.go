// Package aggregate merges equivalent line items across worksheet groups
// that share a location/category/item-type key, reconstructing a combined
// group label (unit ranges like "U1" + "U2" become "U1-2") while keeping
// traceability back to the source groups. Aggregation is a pure function
// of the raw worksheet: every run rebuilds the output from scratch.
package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coolbeans/insuquote/pkg/parse"
)

var idNamespace = uuid.MustParse("c8f1a5e2-41d6-5a7f-9c3b-8e2d4f6a1b0c")

// unitNumberPattern matches a leading unit identifier, including ranges
// produced by a previous aggregation pass ("U1-2").
var unitNumberPattern = regexp.MustCompile(`(?i)^U(\d+)(?:\s*-\s*(\d+))?\b`)

// GroupKey identifies an aggregation bucket. Typed fields with field-wise
// equality avoid the silent collisions delimiter-joined strings invite.
type GroupKey struct {
	Location string
	Category parse.Category
	ItemType string
}

// ItemKey identifies line items that represent the same real-world item.
type ItemKey struct {
	Description string
	RValue      string
	ColourHint  string
	Category    parse.Category
}

// Item is a merged line item: quantity is the sum over all contributing
// raw items, notes are the duplicate-free union of their notes.
type Item struct {
	ID            string         `json:"id"`
	OriginalText  string         `json:"original_text"`
	Description   string         `json:"description"`
	Quantity      float64        `json:"quantity"`
	Unit          parse.Unit     `json:"unit"`
	RValue        string         `json:"r_value,omitempty"`
	Grade         string         `json:"grade,omitempty"`
	ColourHint    string         `json:"colour_hint,omitempty"`
	SupplyOnly    bool           `json:"supply_only,omitempty"`
	Layered       bool           `json:"layered,omitempty"`
	ProductCount  int            `json:"product_count,omitempty"`
	ProductUnit   string         `json:"product_unit,omitempty"`
	Thickness     string         `json:"thickness,omitempty"`
	Dimensions    string         `json:"dimensions,omitempty"`
	Category      parse.Category `json:"category"`
	Notes         []string       `json:"notes,omitempty"`
	MaterialID    string         `json:"material_id,omitempty"`
	LabourIDs     []string       `json:"labour_ids,omitempty"`
	SourceItemIDs []string       `json:"source_item_ids"`
}

// Group is a merged worksheet section.
type Group struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Location       string         `json:"location,omitempty"`
	ItemType       string         `json:"item_type,omitempty"`
	Category       parse.Category `json:"category,omitempty"`
	Units          []int          `json:"units,omitempty"`
	SourceGroupIDs []string       `json:"source_group_ids"`
	Items          []*Item        `json:"items"`
}

// Worksheet is the root of an aggregated quote.
type Worksheet struct {
	Groups []*Group `json:"groups"`
}

// Aggregator merges raw worksheets. Safe for reuse across runs; it keeps
// no state between Aggregate calls.
type Aggregator struct {
	log zerolog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger attaches a logger for internal invariant-violation reports.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Aggregator) { a.log = log }
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// bucket accumulates one aggregation group while merging.
type bucket struct {
	key       GroupKey
	units     map[int]bool
	sourceIDs []string
	items     map[ItemKey]*Item
	itemOrder []ItemKey
}

// Aggregate merges the raw worksheet into aggregation buckets. Buckets are
// emitted in the order of their first contributing raw group; items keep
// first-appearance order within a bucket. Deterministic: the same input
// always yields byte-identical output.
func (a *Aggregator) Aggregate(raw *parse.RawWorksheet) *Worksheet {
	buckets := make(map[GroupKey]*bucket)
	var order []GroupKey

	for _, group := range raw.Groups {
		key := groupKeyFor(group)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key, units: make(map[int]bool), items: make(map[ItemKey]*Item)}
			buckets[key] = b
			order = append(order, key)
		}

		if lo, hi, ok := parseUnitNumbers(group.Name); ok {
			for u := lo; u <= hi; u++ {
				b.units[u] = true
			}
		}
		b.sourceIDs = appendUnique(b.sourceIDs, group.ID)

		for _, item := range group.Items {
			a.mergeItem(b, item)
		}
	}

	ws := &Worksheet{Groups: make([]*Group, 0, len(order))}
	for _, key := range order {
		ws.Groups = append(ws.Groups, a.finishBucket(buckets[key]))
	}
	return ws
}

// mergeItem folds one raw item into its bucket entry: sum quantities,
// union notes, keep the first occurrence's remaining fields.
func (a *Aggregator) mergeItem(b *bucket, item *parse.RawLineItem) {
	key := ItemKey{
		Description: item.Description,
		RValue:      item.FullRValue(),
		ColourHint:  item.ColourHint,
		Category:    item.Category,
	}

	existing, ok := b.items[key]
	if !ok {
		b.items[key] = &Item{
			OriginalText:  item.OriginalText,
			Description:   item.Description,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			RValue:        item.RValue,
			Grade:         item.Grade,
			ColourHint:    item.ColourHint,
			SupplyOnly:    item.SupplyOnly,
			Layered:       item.Layered,
			ProductCount:  item.ProductCount,
			ProductUnit:   item.ProductUnit,
			Thickness:     item.Thickness,
			Dimensions:    item.Dimensions,
			Category:      item.Category,
			Notes:         appendAllUnique(nil, item.Notes),
			MaterialID:    item.MaterialID,
			LabourIDs:     appendAllUnique(nil, item.LabourIDs),
			SourceItemIDs: []string{item.ID},
		}
		b.itemOrder = append(b.itemOrder, key)
		return
	}

	existing.Quantity += item.Quantity
	existing.ProductCount += item.ProductCount
	existing.Notes = appendAllUnique(existing.Notes, item.Notes)
	existing.LabourIDs = appendAllUnique(existing.LabourIDs, item.LabourIDs)
	existing.SourceItemIDs = append(existing.SourceItemIDs, item.ID)
	existing.SupplyOnly = existing.SupplyOnly && item.SupplyOnly
	// Layered is disjunctive: any source needing a layered install means the
	// reviewer must see the flag on the merged item.
	existing.Layered = existing.Layered || item.Layered
	if existing.MaterialID == "" {
		existing.MaterialID = item.MaterialID
	}
}

// finishBucket freezes a bucket into an output group with a reconstructed
// name and deterministic ids.
func (a *Aggregator) finishBucket(b *bucket) *Group {
	units := make([]int, 0, len(b.units))
	for u := range b.units {
		units = append(units, u)
	}
	sort.Ints(units)

	group := &Group{
		Name:           buildGroupName(units, b.key),
		Location:       b.key.Location,
		ItemType:       b.key.ItemType,
		Category:       b.key.Category,
		Units:          units,
		SourceGroupIDs: b.sourceIDs,
		Items:          make([]*Item, 0, len(b.itemOrder)),
	}
	group.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("group|%s|%s|%s", b.key.Location, b.key.Category, b.key.ItemType))).String()

	for _, key := range b.itemOrder {
		item := b.items[key]
		item.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("item|%s|%s|%s|%s|%s", group.ID, key.Description, key.RValue, key.ColourHint, key.Category))).String()
		group.Items = append(group.Items, item)
	}

	if len(group.SourceGroupIDs) == 0 {
		// Bug in the key logic, not bad input. Logged, never surfaced as a
		// parse failure.
		a.log.Error().Str("group", group.Name).Msg("aggregated group has no source groups")
	}
	return group
}

// groupKeyFor derives the aggregation key from whichever explicit fields
// the group carries, falling back to the trimmed group name as location.
func groupKeyFor(group *parse.RawGroup) GroupKey {
	location := strings.TrimSpace(group.Location)
	if location == "" {
		location = strings.TrimSpace(group.Name)
	}
	return GroupKey{
		Location: location,
		Category: group.Category,
		ItemType: strings.TrimSpace(group.ItemType),
	}
}

// parseUnitNumbers reads a leading "U<digits>" (or "U<lo>-<hi>" range)
// from a group name.
func parseUnitNumbers(name string) (lo, hi int, ok bool) {
	m := unitNumberPattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	hi = lo
	if m[2] != "" {
		if h, err := strconv.Atoi(m[2]); err == nil && h > lo {
			hi = h
		}
	}
	return lo, hi, true
}

// buildGroupName rebuilds a display label: unit-range prefix, location,
// then item type (or category when the type is unknown).
func buildGroupName(units []int, key GroupKey) string {
	var sb strings.Builder

	if len(units) == 1 {
		fmt.Fprintf(&sb, "U%d, ", units[0])
	} else if len(units) > 1 {
		fmt.Fprintf(&sb, "U%d-%d, ", units[0], units[len(units)-1])
	}

	sb.WriteString(key.Location)

	if key.ItemType != "" {
		sb.WriteString(" – ")
		sb.WriteString(key.ItemType)
	} else if key.Category != "" && key.Category != parse.CategoryOther && !strings.EqualFold(string(key.Category), key.Location) {
		sb.WriteString(" – ")
		sb.WriteString(string(key.Category))
	}
	return sb.String()
}

// ToRawShape converts an aggregated worksheet back into the raw shape so
// it can be fed through Aggregate again, e.g. after a manual group merge.
func (ws *Worksheet) ToRawShape() *parse.RawWorksheet {
	raw := &parse.RawWorksheet{Groups: make([]*parse.RawGroup, 0, len(ws.Groups))}
	for _, g := range ws.Groups {
		rg := &parse.RawGroup{
			ID:       g.ID,
			Name:     g.Name,
			Location: g.Location,
			ItemType: g.ItemType,
			Category: g.Category,
			Items:    make([]*parse.RawLineItem, 0, len(g.Items)),
		}
		for _, it := range g.Items {
			rg.Items = append(rg.Items, &parse.RawLineItem{
				ID:           it.ID,
				OriginalText: it.OriginalText,
				Description:  it.Description,
				Quantity:     it.Quantity,
				Unit:         it.Unit,
				RValue:       it.RValue,
				Grade:        it.Grade,
				ColourHint:   it.ColourHint,
				SupplyOnly:   it.SupplyOnly,
				Layered:      it.Layered,
				ProductCount: it.ProductCount,
				ProductUnit:  it.ProductUnit,
				Thickness:    it.Thickness,
				Dimensions:   it.Dimensions,
				Category:     it.Category,
				Notes:        append([]string(nil), it.Notes...),
				MaterialID:   it.MaterialID,
				LabourIDs:    append([]string(nil), it.LabourIDs...),
				Location:     g.Location,
			})
		}
		raw.Groups = append(raw.Groups, rg)
	}
	return raw
}

// Validate checks the aggregation invariants: every group must trace back
// to at least one source group and hold at least one item. Violations
// indicate a defect in the key logic and are logged as well as returned.
func (a *Aggregator) Validate(ws *Worksheet) error {
	var problems []string
	for _, g := range ws.Groups {
		if len(g.SourceGroupIDs) == 0 {
			problems = append(problems, fmt.Sprintf("group %q has no source groups", g.Name))
		}
		if len(g.Items) == 0 {
			problems = append(problems, fmt.Sprintf("group %q has no items", g.Name))
		}
	}
	if len(problems) > 0 {
		a.log.Error().Strs("problems", problems).Msg("aggregation invariant violated")
		return fmt.Errorf("aggregation invariants violated: %s", strings.Join(problems, "; "))
	}
	return nil
}

func appendUnique(slice []string, value string) []string {
	for _, v := range slice {
		if v == value {
			return slice
		}
	}
	return append(slice, value)
}

func appendAllUnique(slice []string, values []string) []string {
	for _, v := range values {
		slice = appendUnique(slice, v)
	}
	return slice
}
