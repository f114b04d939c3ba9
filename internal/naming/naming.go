// Package naming classifies entity and container names by naming convention,
// renders them in alternate conventions, and scores the similarity of two
// names. All functions are pure.
package naming

import (
	"strings"
	"unicode"
)

// Pattern is a detected naming convention.
type Pattern string

const (
	PatternUpper   Pattern = "upper"
	PatternSnake   Pattern = "snake"
	PatternTitle   Pattern = "title"
	PatternCamel   Pattern = "camel"
	PatternMixed   Pattern = "mixed"
	PatternUnknown Pattern = "unknown"
)

// Rule names the similarity rule that produced a score.
type Rule string

const (
	RuleExact       Rule = "exact"
	RuleNormalized  Rule = "normalized"
	RuleContainment Rule = "containment"
	RuleNone        Rule = "none"
)

// Similarity scores under each rule. Scores are fixed; the matcher's
// confidence threshold is calibrated against them.
const (
	ScoreExact       = 1.0
	ScoreNormalized  = 0.9
	ScoreContainment = 0.8
)

// Analysis is the result of classifying a single name.
type Analysis struct {
	Name        string
	Pattern     Pattern
	Suggestions map[Pattern]string // renderings in alternate conventions
	Issues      []string           // double spaces, special characters, etc.
}

// Classify detects the naming convention of a raw name and produces candidate
// renderings in each alternate convention. An empty name classifies as
// unknown with no suggestions.
func Classify(name string) Analysis {
	a := Analysis{Name: name, Pattern: PatternUnknown}
	if name == "" {
		return a
	}

	if strings.Contains(name, "  ") {
		a.Issues = append(a.Issues, "double spaces")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '_' {
			a.Issues = append(a.Issues, "special characters")
			break
		}
	}

	a.Pattern = detectPattern(name)

	words := splitWords(name)
	if len(words) == 0 {
		return a
	}

	a.Suggestions = map[Pattern]string{
		PatternUpper: strings.ToUpper(strings.Join(words, " ")),
		PatternSnake: strings.ToLower(strings.Join(words, "_")),
		PatternTitle: titleCase(words),
		PatternCamel: camelCase(words),
	}
	delete(a.Suggestions, a.Pattern)

	return a
}

// Similarity computes a symmetric score in [0,1] for two names.
//
// Scoring table: exact case-insensitive match 1.0; equality after stripping
// whitespace, underscores, and case 0.9; substring containment in either
// direction 0.8; otherwise 0.
func Similarity(a, b string) (float64, Rule) {
	if a == "" || b == "" {
		return 0, RuleNone
	}

	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return ScoreExact, RuleExact
	}

	if Normalize(a) == Normalize(b) {
		return ScoreNormalized, RuleNormalized
	}

	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return ScoreContainment, RuleContainment
	}

	return 0, RuleNone
}

// Normalize strips whitespace, underscores, and case from a name, reducing it
// to a bare comparison key.
func Normalize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r == '_' || r == '\t' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// detectPattern applies pattern checks from most to least specific. A name
// that satisfies none of them is mixed.
func detectPattern(name string) Pattern {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return PatternUnknown
	}

	switch {
	case isUpper(name):
		return PatternUpper
	case isSnake(name):
		return PatternSnake
	case isTitle(name):
		return PatternTitle
	case isCamel(name):
		return PatternCamel
	default:
		return PatternMixed
	}
}

func isUpper(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isSnake(name string) bool {
	if !strings.Contains(name, "_") {
		return false
	}
	for _, r := range name {
		if unicode.IsLetter(r) && !unicode.IsLower(r) {
			return false
		}
		if r == ' ' {
			return false
		}
	}
	return true
}

// isTitle matches space-separated words that each start with an upper-case
// letter ("Sales Invoice Item").
func isTitle(name string) bool {
	words := strings.Fields(name)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// isCamel matches a single word with interior case changes ("salesInvoice").
func isCamel(name string) bool {
	if strings.ContainsAny(name, " _") {
		return false
	}
	runes := []rune(name)
	if !unicode.IsLower(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// splitWords breaks a name into lower-case words across spaces, underscores,
// and camel-case boundaries.
func splitWords(name string) []string {
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	for _, r := range name {
		switch {
		case r == ' ' || r == '_' || r == '\t':
			flush()
		case unicode.IsUpper(r) && len(current) > 0 && unicode.IsLower(current[len(current)-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	return words
}

func titleCase(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		runes := []rune(w)
		out[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	return strings.Join(out, " ")
}

func camelCase(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		if i == 0 {
			out[i] = w
			continue
		}
		runes := []rune(w)
		out[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	return strings.Join(out, "")
}
