package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultDiscrepancyTolerance is the relative tolerance applied when a
// stated panel count is cross-checked against the quoted area. Empirical
// value carried over from historical quotes; override via SetTolerance.
const DefaultDiscrepancyTolerance = 0.05

// Extractor turns a classified line-item line into a RawLineItem. Patterns
// are tried in a fixed order and the first match wins; a line that matches
// nothing yields nil and the caller falls back to note/header handling.
type Extractor struct {
	// Primary line-shape patterns, in priority order.
	dampCoursePattern *regexp.Regexp
	panelPattern      *regexp.Regexp
	generalPattern    *regexp.Regexp

	// Secondary patterns applied to the matched description.
	productCountPattern *regexp.Regexp
	dimensionsPattern   *regexp.Regexp
	thicknessPattern    *regexp.Regexp
	supplyOnlyPattern   *regexp.Regexp
	layeredPattern      *regexp.Regexp
	markedPattern       *regexp.Regexp
	rValuePattern       *regexp.Regexp
	noteSplitPattern    *regexp.Regexp

	tolerance float64
}

// NewExtractor creates an extractor with the default discrepancy tolerance.
func NewExtractor() *Extractor {
	return &Extractor{
		// Digit-free prefix: a quantity before the keyword means the damp
		// course is embedded in another item's remainder, not the line itself.
		// The \b applies only to the ASCII-ending unit spellings: ² is not a
		// word rune, so "m²\b" can never match.
		dampCoursePattern: regexp.MustCompile(`(?i)^([^0-9]*?\b(?:damp\s*-?\s*course|flashing)\b[^\d–—-]*)(?:(\d+\s*mm)\b)?\s*[-–—]?\s*(\d+(?:[.,]\d+)?)\s*(m²|(?:lm|m2|sqm|items?)\b)\s*(.*)$`),
		panelPattern:      regexp.MustCompile(`(?i)^(\d+)\s*(?:x\s*)?panels?\s+of\s+(\d+\s*mm)\s+([a-z0-9 ]*?)\s*\(\s*(\d+\s*x\s*\d+\s*mm)\s*\)\s*(?:R\s*-?\s*(\d+(?:\.\d+)?)\s*(HD|SHD|NB)?)?\s*[-–—]\s*(\d+(?:[.,]\d+)?)\s*(m²|(?:m2|sqm|lm|panels?|items?)\b)\s*(.*)$`),
		generalPattern:    regexp.MustCompile(`(?i)^(.+?)\s*(?:\(\s*marked\s+([^)]+)\))?\s*(?:R\s*-?\s*(\d+(?:\.\d+)?)\s*(HD|SHD|NB)?)?\s*[-–—]\s*(\d+(?:[.,]\d+)?)\s*(m²|(?:m2|sqm|lm|panels?|items?|ea|each)\b)\s*(.*)$`),

		productCountPattern: regexp.MustCompile(`(?i)\b(\d+)\s*(panels?|bags?|rolls?|sheets?)\b`),
		dimensionsPattern:   regexp.MustCompile(`(?i)\b(\d+)\s*x\s*(\d+)\s*mm\b`),
		thicknessPattern:    regexp.MustCompile(`(?i)\b(\d+)\s*mm\b`),
		supplyOnlyPattern:   regexp.MustCompile(`(?i)supply\s*only`),
		layeredPattern:      regexp.MustCompile(`(?i)\blayered\b`),
		markedPattern:       regexp.MustCompile(`(?i)\(\s*marked\s+([^)]+)\)`),
		rValuePattern:       regexp.MustCompile(`(?i)\bR\s*-?\s*(\d+(?:\.\d+)?)\s*(HD|SHD|NB)?\b`),
		noteSplitPattern:    regexp.MustCompile(`\s*;\s*|\s{3,}|\s+-\s+|\s*--\s*|\s*—\s*`),

		tolerance: DefaultDiscrepancyTolerance,
	}
}

// SetTolerance overrides the count/area discrepancy tolerance.
func (e *Extractor) SetTolerance(tol float64) {
	if tol > 0 {
		e.tolerance = tol
	}
}

// Extract parses a line-item line. trailing carries any continuation lines
// already known to follow the item (used for the supply-only scan). The
// second return value holds sibling items spawned from embedded
// damp-course text in the remainder; they belong to the same group.
func (e *Extractor) Extract(line string, trailing []string) (*RawLineItem, []*RawLineItem) {
	original := strings.TrimSpace(line)
	cleaned := StripBullet(line)

	item, remainder := e.matchPrimary(cleaned)
	if item == nil {
		return nil, nil
	}
	item.OriginalText = original

	e.extractSecondary(item, cleaned, trailing)

	siblings := e.consumeRemainder(item, remainder)

	e.crossCheckQuantity(item)

	return item, siblings
}

// matchPrimary applies the ordered line-shape patterns. First match wins.
func (e *Extractor) matchPrimary(cleaned string) (*RawLineItem, string) {
	if m := e.dampCoursePattern.FindStringSubmatch(cleaned); m != nil {
		return e.buildDampCourse(m), m[5]
	}

	if m := e.panelPattern.FindStringSubmatch(cleaned); m != nil {
		count, _ := strconv.Atoi(m[1])
		desc := strings.TrimSpace(m[3])
		category := CategoryPanels
		if strings.Contains(strings.ToLower(desc), "xps") {
			category = CategoryXPS
		}
		return &RawLineItem{
			Confidence:   0.95,
			Description:  desc,
			ProductCount: count,
			ProductUnit:  "panel",
			Thickness:    normalizeMM(m[2]),
			Dimensions:   normalizeDims(m[4]),
			RValue:       m[5],
			Grade:        strings.ToUpper(m[6]),
			Quantity:     parseQuantity(m[7]),
			Unit:         normalizeUnit(m[8]),
			Category:     category,
		}, m[9]
	}

	if m := e.generalPattern.FindStringSubmatch(cleaned); m != nil {
		return &RawLineItem{
			Confidence:  0.8,
			Description: strings.TrimSpace(m[1]),
			ColourHint:  strings.TrimSpace(m[2]),
			RValue:      m[3],
			Grade:       strings.ToUpper(m[4]),
			Quantity:    parseQuantity(m[5]),
			Unit:        normalizeUnit(m[6]),
		}, m[7]
	}

	return nil, ""
}

// connectorPrefixPattern strips joining words left over when a damp
// course is lifted out of another item's remainder.
var connectorPrefixPattern = regexp.MustCompile(`(?i)^(?:plus|and|with|including|incl\.?|\+)\s+`)

// buildDampCourse constructs a damp-course/flashing item from a
// dampCoursePattern match.
func (e *Extractor) buildDampCourse(m []string) *RawLineItem {
	desc := strings.TrimSpace(connectorPrefixPattern.ReplaceAllString(strings.TrimSpace(m[1]), ""))
	if size := normalizeMM(m[2]); size != "" {
		desc = desc + " " + size
	}
	return &RawLineItem{
		Confidence:  0.9,
		Description: desc,
		Thickness:   normalizeMM(m[2]),
		Quantity:    parseQuantity(m[3]),
		Unit:        normalizeUnit(m[4]),
		Category:    CategoryDampcourse,
	}
}

// extractSecondary pulls attribute tokens out of the description and scans
// the line plus trailing context for flags. Runs for every primary pattern.
func (e *Extractor) extractSecondary(item *RawLineItem, cleaned string, trailing []string) {
	if item.Dimensions == "" {
		if m := e.dimensionsPattern.FindStringSubmatch(cleaned); m != nil {
			item.Dimensions = m[1] + "x" + m[2] + "mm"
		}
	}

	// Thickness is searched with the dimension token removed so "2400x600mm"
	// never bleeds into a "600mm" thickness.
	if item.Thickness == "" {
		descNoDims := e.dimensionsPattern.ReplaceAllString(item.Description, "")
		if m := e.thicknessPattern.FindStringSubmatch(descNoDims); m != nil {
			item.Thickness = m[1] + "mm"
		}
	}

	if item.ProductCount == 0 {
		if m := e.productCountPattern.FindStringSubmatch(cleaned); m != nil {
			item.ProductCount, _ = strconv.Atoi(m[1])
			item.ProductUnit = strings.ToLower(strings.TrimSuffix(m[2], "s"))
		}
	}

	if item.ColourHint == "" {
		if m := e.markedPattern.FindStringSubmatch(cleaned); m != nil {
			item.ColourHint = strings.TrimSpace(m[1])
		}
	}
	item.Description = strings.TrimSpace(e.markedPattern.ReplaceAllString(item.Description, ""))

	if item.RValue == "" {
		if m := e.rValuePattern.FindStringSubmatch(item.Description); m != nil {
			item.RValue = m[1]
			item.Grade = strings.ToUpper(m[2])
			item.Description = strings.TrimSpace(e.rValuePattern.ReplaceAllString(item.Description, ""))
		}
	}

	if e.supplyOnlyPattern.MatchString(cleaned) {
		item.SupplyOnly = true
	}
	if e.layeredPattern.MatchString(cleaned) {
		item.Layered = true
	}
	for _, t := range trailing {
		if e.supplyOnlyPattern.MatchString(t) {
			item.SupplyOnly = true
		}
		if e.layeredPattern.MatchString(t) {
			item.Layered = true
		}
	}

	if item.Category == "" {
		item.Category = CategorizeDescription(item.Description)
	}
}

// consumeRemainder handles text after the quantity/unit token: an embedded
// damp-course sub-pattern spawns a sibling item; whatever is left becomes
// discrete notes on the parent.
func (e *Extractor) consumeRemainder(item *RawLineItem, remainder string) []*RawLineItem {
	remainder = strings.TrimSpace(remainder)
	if remainder == "" {
		return nil
	}

	var siblings []*RawLineItem
	if m := e.dampCoursePattern.FindStringSubmatch(remainder); m != nil {
		sib := e.buildDampCourse(m)
		src := strings.Trim(strings.TrimSuffix(remainder, m[5]), " -–—;,")
		sib.OriginalText = src
		e.extractSecondary(sib, src, nil)
		siblings = append(siblings, sib)
		remainder = strings.TrimSpace(m[5])
	}

	for _, note := range e.noteSplitPattern.Split(remainder, -1) {
		note = strings.Trim(note, " -–—")
		if note != "" {
			item.Notes = append(item.Notes, note)
		}
	}
	return siblings
}

// crossCheckQuantity compares a stated product count against the quoted
// area when dimensions are known. A mismatch beyond the tolerance appends
// a warning note; the item is still emitted.
func (e *Extractor) crossCheckQuantity(item *RawLineItem) {
	if item.ProductCount == 0 || item.Quantity <= 0 || item.Unit != UnitSquareMetre {
		return
	}
	width, length, ok := ParseDimensions(item.Dimensions)
	if !ok {
		return
	}
	theoretical := float64(item.ProductCount) * width * length / 1e6
	if math.Abs(theoretical-item.Quantity) > e.tolerance*item.Quantity {
		item.Notes = append(item.Notes, fmt.Sprintf(
			"Check quantity: %d x %s covers %.2fm² but %.2fm² quoted",
			item.ProductCount, item.Dimensions, theoretical, item.Quantity))
	}
}

// CategorizeDescription derives an item category from description keywords.
// Returns "" when no keyword applies, letting the caller fall back to the
// group's category hint.
func CategorizeDescription(desc string) Category {
	lower := strings.ToLower(desc)
	switch {
	case strings.Contains(lower, "batt"):
		return CategoryBulkInsulation
	case strings.Contains(lower, "wrap") || strings.Contains(lower, "brane"):
		return CategoryWallWrap
	case strings.Contains(lower, "xps"):
		return CategoryXPS
	case strings.Contains(lower, "panel"):
		return CategoryPanels
	case strings.Contains(lower, "damp") || strings.Contains(lower, "flashing"):
		return CategoryDampcourse
	}
	return ""
}

var dimsTokenPattern = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d+)`)

// ParseDimensions parses a "2400x600mm" token into width and length in
// millimetres.
func ParseDimensions(dims string) (width, length float64, ok bool) {
	m := dimsTokenPattern.FindStringSubmatch(dims)
	if m == nil {
		return 0, 0, false
	}
	width, _ = strconv.ParseFloat(m[1], 64)
	length, _ = strconv.ParseFloat(m[2], 64)
	return width, length, width > 0 && length > 0
}

func parseQuantity(s string) float64 {
	s = strings.ReplaceAll(s, ",", ".")
	q, _ := strconv.ParseFloat(s, 64)
	return q
}

func normalizeUnit(u string) Unit {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "m²", "m2", "sqm":
		return UnitSquareMetre
	case "lm":
		return UnitLinearMetre
	case "panel", "panels":
		return UnitPanel
	default:
		return UnitItem
	}
}

func normalizeMM(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return ""
	}
	return s
}

func normalizeDims(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
