// Package engine turns raw sales lines into ingredient usage: name
// normalization, tiered product matching, modifier graph resolution,
// modifier rules over a recipe map, and usage aggregation.
//
// Everything in this package is per import run and single goroutine.
package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// descriptorWords is the closed set of size and temperature words
var descriptorWords = map[string]bool{
	"small":   true,
	"medium":  true,
	"large":   true,
	"xl":      true,
	"extra":   true,
	"regular": true,
	"iced":    true,
	"hot":     true,
}

// Normalized is a cleaned item name split into core and descriptors
type Normalized struct {
	Full        string   `json:"full"`
	Core        string   `json:"core"`
	Descriptors []string `json:"descriptors"`
}

// Normalize lowercases, folds accents, drops everything outside
// [a-z0-9 ] and collapses whitespace, then separates descriptor words
// from the core name. An empty core falls back to the full string.
func Normalize(raw string) Normalized {
	full := cleanName(raw)
	if full == "" {
		return Normalized{Descriptors: []string{}}
	}

	tokens := strings.Fields(full)
	core := make([]string, 0, len(tokens))
	descriptors := make([]string, 0, 2)
	for _, tok := range tokens {
		if descriptorWords[tok] {
			descriptors = append(descriptors, tok)
			continue
		}
		core = append(core, tok)
	}

	n := Normalized{Full: full, Core: strings.Join(core, " "), Descriptors: descriptors}
	if n.Core == "" {
		n.Core = full
	}
	return n
}

// NormalizeName returns only the cleaned full string
func NormalizeName(raw string) string {
	return cleanName(raw)
}

// NormalizeToken is the light form used to compare modifier and
// ingredient names: trimmed, lowercased, typographic quotes folded.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(strings.ToLower(token))
	return tokenReplacer.Replace(token)
}

var tokenReplacer = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u2013", "-", "\u2014", "-")

func cleanName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	folded, _, err := transform.String(accentFolder(), raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// accentFolder decomposes and drops combining marks so "Café" becomes "Cafe".
// transform.Chain is stateful, so build one per call.
func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
