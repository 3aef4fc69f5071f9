// Package textnorm provides the lexical primitives shared by pattern
// matching, clustering and the risk gate: locale-aware normalization,
// token-set Jaccard similarity and stable content fingerprints.
package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HashLen is the fingerprint truncation length in hex characters.
const HashLen = 32

// Lower lowercases s with Turkish casing rules (dotted/dotless I) but leaves
// punctuation and spacing untouched. Used where snippets must stay readable.
func Lower(s string) string {
	// cases.Caser carries internal transform state, so build one per call
	// rather than sharing a package-level instance across goroutines.
	return cases.Lower(language.Turkish).String(s)
}

// Normalize lowercases s, replaces every non-letter, non-digit rune with a
// space (accented letters count as letters) and collapses whitespace runs.
// Empty or garbage input degrades to the empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	lowered := Lower(s)

	var b strings.Builder
	b.Grow(len(lowered))
	space := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		} else {
			space = true
		}
	}
	return b.String()
}

// Tokens splits the normalized form of s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// TokenSet returns the distinct normalized tokens of s.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard computes token-set Jaccard similarity between two texts:
// |intersection| / |union|, 0 if either token set is empty.
func Jaccard(a, b string) float64 {
	return JaccardSets(TokenSet(a), TokenSet(b))
}

// JaccardSets computes Jaccard similarity over precomputed token sets.
func JaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Hash returns a stable fingerprint of the normalized form of s: the first
// HashLen hex characters of its SHA-256 digest.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])[:HashLen]
}
