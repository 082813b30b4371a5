// Package matcher tests free text against a keyword set with a single
// compiled regular expression.
//
// A keyword matches only as a whole token: the runes immediately before and
// after the occurrence must be absent or must not be a letter, digit or
// underscore. RE2's \b is ASCII-only, so the boundary is spelled out with
// Unicode classes instead; "élevage" matches in "Élevage bovin" and "art"
// does not match "party".
package matcher

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrNoKeywords is returned by New when no usable keyword is supplied
var ErrNoKeywords = errors.New("matcher: no keywords")

const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	boundaryAfter  = `(?:$|[^\p{L}\p{N}_])`
)

// Matcher is an immutable compiled keyword matcher, safe for concurrent use.
// A nil *Matcher matches nothing.
type Matcher struct {
	re    *regexp.Regexp
	words []string
}

// New compiles words into one case-insensitive alternation. Words are
// trimmed, NFC-normalized, lowercased and deduplicated; blanks are dropped.
func New(words []string) (*Matcher, error) {
	seen := make(map[string]struct{}, len(words))
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = normalize(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		clean = append(clean, w)
	}
	if len(clean) == 0 {
		return nil, ErrNoKeywords
	}

	// Longest first keeps the pattern independent of input order.
	sort.Slice(clean, func(i, j int) bool {
		if len(clean[i]) != len(clean[j]) {
			return len(clean[i]) > len(clean[j])
		}
		return clean[i] < clean[j]
	})

	quoted := make([]string, len(clean))
	for i, w := range clean {
		quoted[i] = regexp.QuoteMeta(w)
	}
	pattern := `(?i)` + boundaryBefore + `(?:` + strings.Join(quoted, "|") + `)` + boundaryAfter

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re, words: clean}, nil
}

// MustNew is like New but panics on error
func MustNew(words []string) *Matcher {
	m, err := New(words)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether any keyword occurs in text as a whole token
func (m *Matcher) Match(text string) bool {
	if m == nil || text == "" {
		return false
	}
	return m.re.MatchString(normalize(text))
}

// MatchedWords returns the distinct keywords found in text, longest first
func (m *Matcher) MatchedWords(text string) []string {
	if !m.Match(text) {
		return nil
	}
	lower := strings.ToLower(normalize(text))
	var found []string
	for _, w := range m.words {
		if containsToken(lower, w) {
			found = append(found, w)
		}
	}
	return found
}

// Words returns the compiled keywords, longest first
func (m *Matcher) Words() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.words...)
}

// Len returns the number of compiled keywords
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.words)
}

// Pattern returns the compiled expression source
func (m *Matcher) Pattern() string {
	if m == nil {
		return ""
	}
	return m.re.String()
}

func normalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(norm.NFC.String(s))
}

// containsToken scans for word in text (both lowercase) and checks the
// boundary runes around every occurrence.
func containsToken(text, word string) bool {
	for offset := 0; offset <= len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)

		before, after := true, true
		if start > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			before = !isWordRune(r)
		}
		if end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			after = !isWordRune(r)
		}
		if before && after {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
