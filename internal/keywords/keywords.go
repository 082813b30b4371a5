package keywords

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Set is an immutable, deduplicated set of lowercase keywords
type Set struct {
	words []string
}

// Expand merges the base list with every translation key and every synonym.
// Entries are trimmed, NFC-normalized and lowercased; blanks are dropped.
// Both inputs empty yields an empty set.
func Expand(base []string, translations map[string][]string) Set {
	seen := make(map[string]struct{}, len(base)+len(translations))
	add := func(w string) {
		w = Normalize(w)
		if w == "" {
			return
		}
		seen[w] = struct{}{}
	}

	for _, w := range base {
		add(w)
	}
	for key, synonyms := range translations {
		add(key)
		for _, s := range synonyms {
			add(s)
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return Set{words: words}
}

// NewSet builds a Set from already expanded words
func NewSet(words ...string) Set {
	return Expand(words, nil)
}

// Normalize trims, NFC-normalizes and lowercases a keyword
func Normalize(w string) string {
	w = strings.TrimSpace(w)
	if w == "" {
		return ""
	}
	return strings.ToLower(norm.NFC.String(w))
}

// Words returns the keywords in lexical order
func (s Set) Words() []string {
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

// Len returns the number of keywords
func (s Set) Len() int {
	return len(s.words)
}

// Empty reports whether the set has no keywords
func (s Set) Empty() bool {
	return len(s.words) == 0
}

// Contains reports whether w, normalized, is in the set
func (s Set) Contains(w string) bool {
	w = Normalize(w)
	i := sort.SearchStrings(s.words, w)
	return i < len(s.words) && s.words[i] == w
}
