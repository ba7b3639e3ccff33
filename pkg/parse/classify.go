package parse

import (
	"regexp"
	"strings"
)

// LineClass is the classification bucket for one input line.
type LineClass string

const (
	// LineBlank is an empty or whitespace-only line; skipped.
	LineBlank LineClass = "blank"

	// LineBlockHeader names a top-level block ("Block 2", "Existing",
	// "New build", "Extension"). Updates the ambient block context but
	// does not start a group.
	LineBlockHeader LineClass = "block_header"

	// LineItem is a material line-item candidate. The extractor decides
	// whether it actually parses; on failure the builder falls back to
	// note or group-header handling.
	LineItem LineClass = "line_item"

	// LineNote is a continuation line attached to the most recent item.
	LineNote LineClass = "note"

	// LineGroupHeader opens (or extends) a location group. This is the
	// safe default bucket: unrecognized text surfaces as a heading for
	// manual review instead of being dropped.
	LineGroupHeader LineClass = "group_header"
)

// materialKeywords is the fixed vocabulary that marks a line as a
// line-item candidate. Checked case-insensitively on word boundaries.
var materialKeywords = []string{
	"batt", "batts", "panel", "panels", "wrap", "floor", "wall",
	"ceiling", "damp course", "dampcourse", "damp-course", "flashing",
	"insulation", "xps", "foil", "blanket", "pump", "soffit",
}

var (
	// blockHeaderPattern matches standalone block markers. Anchored to the
	// whole line so "New ceiling batts R4.0 - 50m²" stays a line item.
	blockHeaderPattern = regexp.MustCompile(`(?i)^\s*(block\s*\d+|existing(\s+(building|dwelling|house|garage))?|new(\s+(build|building|dwelling|house))?|extension(\s+\d+)?)\s*$`)

	// bulletPattern matches leading bullet or indent markers.
	bulletPattern = regexp.MustCompile(`^\s*([-–—*•>]+|\t+)\s*`)

	// noteSignalPattern matches keywords that mark a trailing note line.
	noteSignalPattern = regexp.MustCompile(`(?i)\b(supply\s*only|layered|note:)`)

	// measurementPattern matches a quantity token like "45.5m²" or "12 LM";
	// used with the damp-course/flashing keyword check. The \b applies only
	// to the ASCII spellings; ² is not a word rune.
	measurementPattern = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(m²|(?:m2|sqm|lm)\b)`)

	keywordPatterns []*regexp.Regexp
)

func init() {
	for _, kw := range materialKeywords {
		keywordPatterns = append(keywordPatterns,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
}

// Classifier assigns each input line to one of the five buckets.
// It never rejects a line; ambiguous text lands in LineGroupHeader.
type Classifier struct{}

// NewClassifier creates a line classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify buckets a single line. hasCurrentItem reports whether the
// builder has a line item that a note could attach to.
func (c *Classifier) Classify(line string, hasCurrentItem bool) LineClass {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineBlank
	}

	if blockHeaderPattern.MatchString(trimmed) {
		return LineBlockHeader
	}

	if containsMaterialKeyword(trimmed) {
		return LineItem
	}
	// Damp course / flashing lines with a measurement are items even when
	// the keyword list misses them (covered above, kept for safety with
	// measurement-only flashing variants).
	if measurementPattern.MatchString(trimmed) && strings.Contains(strings.ToLower(trimmed), "flash") {
		return LineItem
	}

	if hasCurrentItem && (bulletPattern.MatchString(line) || noteSignalPattern.MatchString(trimmed)) {
		return LineNote
	}

	return LineGroupHeader
}

func containsMaterialKeyword(line string) bool {
	for _, p := range keywordPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// StripBullet removes a leading bullet or indent marker from a line.
func StripBullet(line string) string {
	return strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
}
