// Package normalize turns raw spreadsheet cells into comparable values:
// amounts, calendar dates, folded text and canonical identifiers.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
}

// StripDiacritics removes combining marks, so "José" becomes "Jose".
func StripDiacritics(s string) string {
	result, _, err := transform.String(foldTransformer(), s)
	if err != nil {
		return s
	}
	return result
}

// Fold lowercases and strips diacritics.
func Fold(s string) string {
	return strings.ToLower(StripDiacritics(s))
}

// Tokens splits a folded description on whitespace, dropping empty tokens.
func Tokens(s string) []string {
	return strings.Fields(Fold(s))
}

// CommonWords counts the tokens of a that also occur in b. Every token of a is
// counted on its own, so a repeated word in a counts once per occurrence.
func CommonWords(a, b string) int {
	bTokens := Tokens(b)
	if len(bTokens) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(bTokens))
	for _, t := range bTokens {
		set[t] = struct{}{}
	}
	return CountIn(Tokens(a), set)
}

// CountIn counts the tokens present in set.
func CountIn(tokens []string, set map[string]struct{}) int {
	count := 0
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			count++
		}
	}
	return count
}

// DocumentID canonicalizes a document number or identifier.
func DocumentID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// TaxID canonicalizes a CPF/CNPJ by removing separators and whitespace.
func TaxID(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || r == '/' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Key folds s into an uppercase alphanumeric key, used to compare headers.
func Key(s string) string {
	folded := strings.ToUpper(StripDiacritics(s))
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
