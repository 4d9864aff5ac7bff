package judge

import (
	"strings"

	pkgerrors "algohub/pkg/errors"
)

// languageIDs maps user-facing language labels to the remote judge's
// numeric language identifiers. Single source of truth: every dispatch
// path resolves through Resolve, never through an inline table.
var languageIDs = map[string]int{
	"c++":        54,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

// languageAliases normalizes common alternate spellings before lookup.
var languageAliases = map[string]string{
	"cpp": "c++",
}

// Resolve maps a language label to the judge's language id. Lookup is
// case-insensitive and alias-aware. Callers must resolve before any
// dispatch so unsupported languages fail without a network round trip.
func Resolve(label string) (int, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if canonical, ok := languageAliases[normalized]; ok {
		normalized = canonical
	}
	id, ok := languageIDs[normalized]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.LanguageNotSupported).WithDetail("language", label)
	}
	return id, nil
}

// SupportedLanguages returns the canonical labels accepted by Resolve.
func SupportedLanguages() []string {
	labels := make([]string, 0, len(languageIDs))
	for label := range languageIDs {
		labels = append(labels, label)
	}
	return labels
}
