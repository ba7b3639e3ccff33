package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coolbeans/insuquote/pkg/catalog"
	"github.com/coolbeans/insuquote/pkg/match"
)

// idNamespace seeds deterministic SHA1 ids so the same text and catalog
// snapshot always produce byte-identical output.
var idNamespace = uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")

var (
	// unitPrefixPattern matches a leading unit identifier on a group
	// header, e.g. "U1, Basement – Ceiling Insulation".
	unitPrefixPattern = regexp.MustCompile(`(?i)^(U\d+)\s*[,.]?\s+(.*)$`)

	// headerSplitPattern separates location from item type in a header.
	headerSplitPattern = regexp.MustCompile(`\s+[–—]\s+|\s+-\s+`)
)

// UngroupedName labels the fallback group for items parsed before any
// group header.
const UngroupedName = "Ungrouped Items"

// Builder drives the full parse: classify each line, extract items, derive
// counts, attach catalog match suggestions, and assemble the worksheet
// tree. A Builder is stateless between Build calls.
type Builder struct {
	classifier *Classifier
	extractor  *Extractor
	snapshot   *catalog.Snapshot
	tuning     match.Tuning
	brandHint  string
	log        zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithBrandHint applies an operator-selected brand filter during material
// matching of bulk-insulation items.
func WithBrandHint(brand string) Option {
	return func(b *Builder) { b.brandHint = strings.TrimSpace(brand) }
}

// WithTuning overrides the matcher acceptance thresholds.
func WithTuning(t match.Tuning) Option {
	return func(b *Builder) { b.tuning = t }
}

// WithTolerance overrides the count/area discrepancy tolerance.
func WithTolerance(tol float64) Option {
	return func(b *Builder) { b.extractor.SetTolerance(tol) }
}

// WithLogger attaches a logger for debug tracing of classification.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// NewBuilder creates a Builder over a catalog snapshot. The snapshot may
// be nil or empty; parsing still proceeds and every item is simply left
// unmatched.
func NewBuilder(snap *catalog.Snapshot, opts ...Option) *Builder {
	b := &Builder{
		classifier: NewClassifier(),
		extractor:  NewExtractor(),
		snapshot:   snap,
		tuning:     match.DefaultTuning(),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// parseState is the ambient context threaded through the line walk.
type parseState struct {
	worksheet  *RawWorksheet
	block      string
	group      *RawGroup
	lastItem   *RawLineItem
	groupCount int
}

// Build parses pasted quote text into a raw worksheet. Malformed input is
// never an error: unrecognized lines surface as group headers, orphan
// notes are dropped, and empty input yields an empty worksheet.
func (b *Builder) Build(text string) *RawWorksheet {
	state := &parseState{worksheet: &RawWorksheet{Groups: make([]*RawGroup, 0)}}

	for _, line := range SplitLines(text) {
		class := b.classifier.Classify(line, state.lastItem != nil)
		b.log.Debug().Str("class", string(class)).Str("line", strings.TrimSpace(line)).Msg("classified")

		switch class {
		case LineBlank:
			continue
		case LineBlockHeader:
			state.block = titleCase(strings.TrimSpace(line))
		case LineItem:
			b.handleItemLine(state, line)
		case LineNote:
			b.attachNote(state, line)
		case LineGroupHeader:
			b.handleGroupHeader(state, line)
		}
	}

	b.flushGroup(state)
	return state.worksheet
}

// handleItemLine runs the extractor and falls back to note or header
// handling when the line-shape patterns reject the candidate.
func (b *Builder) handleItemLine(state *parseState, line string) {
	item, siblings := b.extractor.Extract(line, nil)
	if item == nil {
		trimmed := strings.TrimSpace(line)
		if state.lastItem != nil && (bulletPattern.MatchString(line) || noteSignalPattern.MatchString(trimmed)) {
			b.attachNote(state, line)
		} else {
			b.handleGroupHeader(state, line)
		}
		return
	}

	if state.group == nil {
		state.group = &RawGroup{
			Name:     UngroupedName,
			Location: UngroupedName,
			Block:    state.block,
			Items:    make([]*RawLineItem, 0),
		}
	}

	b.enrichItem(state.group, item)
	state.group.Items = append(state.group.Items, item)
	for _, sib := range siblings {
		b.enrichItem(state.group, sib)
		state.group.Items = append(state.group.Items, sib)
	}
	state.lastItem = item
}

// enrichItem fills group-derived fields, derives missing panel counts, and
// attaches catalog match suggestions.
func (b *Builder) enrichItem(group *RawGroup, item *RawLineItem) {
	item.Location = group.Location
	if item.Location == "" {
		item.Location = group.Name
	}
	if item.Category == "" {
		item.Category = group.Category
	}
	if item.Category == "" {
		item.Category = CategoryOther
	}
	if group.SupplyOnly {
		item.SupplyOnly = true
	}

	if b.snapshot == nil {
		return
	}

	if d := DeriveCount(item, b.snapshot.Materials); d != nil {
		ApplyDerivedCount(item, d)
	}

	brand := ""
	if item.Category == CategoryBulkInsulation {
		brand = b.brandHint
	}
	mat := match.MatchMaterial(match.MaterialQuery{
		Description: item.Description,
		RValue:      item.FullRValue(),
		Brand:       brand,
	}, b.snapshot.Materials, b.tuning)
	if mat.Best != nil {
		item.MaterialID = mat.Best.ID
	}
	for _, s := range mat.Shortlist {
		item.MaterialShortlist = append(item.MaterialShortlist, s.Material.ID)
	}

	areaHint := strings.TrimSpace(group.Location + " " + group.ItemType)
	lab := match.MatchLabour(item.Description, areaHint, b.snapshot.LabourRates)
	for _, r := range lab.Best {
		item.LabourIDs = append(item.LabourIDs, r.ID)
	}
	for _, r := range lab.Possible {
		item.LabourPossibleIDs = append(item.LabourPossibleIDs, r.ID)
	}
}

// attachNote appends a continuation line to the most recent item and
// promotes any flags embedded in the note text. Orphan notes are dropped.
func (b *Builder) attachNote(state *parseState, line string) {
	if state.lastItem == nil {
		b.log.Debug().Str("line", strings.TrimSpace(line)).Msg("dropping orphan note")
		return
	}
	note := StripBullet(line)
	if note == "" {
		return
	}
	state.lastItem.Notes = append(state.lastItem.Notes, note)
	if b.extractor.supplyOnlyPattern.MatchString(note) {
		state.lastItem.SupplyOnly = true
	}
	if b.extractor.layeredPattern.MatchString(note) {
		state.lastItem.Layered = true
	}
}

// handleGroupHeader opens a new group, or extends the pending header when
// the previous group is still empty so multi-line headings collapse into
// one compound name.
func (b *Builder) handleGroupHeader(state *parseState, line string) {
	header := titleCase(strings.TrimSpace(line))

	if state.group != nil && len(state.group.Items) == 0 && state.group.Name != UngroupedName {
		state.group.Name = state.group.Name + ", " + header
		deriveGroupFields(state.group)
		return
	}

	b.flushGroup(state)
	group := &RawGroup{
		Name:  header,
		Block: state.block,
		Items: make([]*RawLineItem, 0),
	}
	deriveGroupFields(group)
	state.group = group
	state.lastItem = nil
}

// flushGroup emits the current group into the worksheet if it holds at
// least one item; empty headers are discarded.
func (b *Builder) flushGroup(state *parseState) {
	group := state.group
	state.group = nil
	if group == nil || len(group.Items) == 0 {
		return
	}

	group.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("group|%d|%s", state.groupCount, group.Name))).String()
	for i, item := range group.Items {
		item.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("item|%d|%d|%s", state.groupCount, i, item.OriginalText))).String()
	}
	state.groupCount++
	state.worksheet.Groups = append(state.worksheet.Groups, group)
}

// deriveGroupFields splits a header into location and item type and infers
// a category hint from the heading text.
func deriveGroupFields(group *RawGroup) {
	rest := group.Name
	if m := unitPrefixPattern.FindStringSubmatch(rest); m != nil {
		rest = strings.TrimSpace(m[2])
	}

	parts := headerSplitPattern.Split(rest, 2)
	group.Location = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		group.ItemType = strings.TrimSpace(parts[1])
	}
	if group.Location == "" {
		group.Location = strings.TrimSpace(group.Name)
	}

	group.Category = groupCategory(group.ItemType)
	if group.Category == "" {
		group.Category = groupCategory(group.Name)
	}
	if supplyOnlyHeaderPattern.MatchString(group.Name) {
		group.SupplyOnly = true
	}
}

var supplyOnlyHeaderPattern = regexp.MustCompile(`(?i)supply\s*only`)

// groupCategory infers a category hint from heading text.
func groupCategory(text string) Category {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "xps"):
		return CategoryXPS
	case strings.Contains(lower, "panel"):
		return CategoryPanels
	case strings.Contains(lower, "wrap"):
		return CategoryWallWrap
	case strings.Contains(lower, "damp") || strings.Contains(lower, "flashing"):
		return CategoryDampcourse
	case strings.Contains(lower, "insulation") || strings.Contains(lower, "batt"):
		return CategoryBulkInsulation
	}
	return ""
}

// titleCase uppercases the first letter of each word, leaving existing
// capitals (and tokens like "U1" or "XPS") untouched.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if r[0] >= 'a' && r[0] <= 'z' {
			r[0] = r[0] - 'a' + 'A'
			words[i] = string(r)
		}
	}
	return strings.Join(words, " ")
}
