package parse

import "strings"

// NormalizeText prepares pasted quote text for line classification:
// strips a UTF-8 BOM, normalizes CRLF/CR line endings to LF, and replaces
// non-breaking spaces with regular spaces. Content is otherwise untouched;
// the verbatim per-line text survives into RawLineItem.OriginalText.
func NormalizeText(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return text
}

// SplitLines normalizes the text and splits it into lines.
func SplitLines(text string) []string {
	return strings.Split(NormalizeText(text), "\n")
}
