package reminder

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the form used for duplicate detection: NFC, case folded,
// ё folded to е, inner whitespace collapsed, edge punctuation trimmed.
func Normalize(description string) string {
	s := norm.NFC.String(description)
	s = cases.Fold().String(s) // Caser хранит состояние, не шарим между горутинами
	s = strings.ReplaceAll(s, "ё", "е")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .,;:!?-–—")
}
