package gender

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"contactsift/pkg/contracts/domain"
)

// FirstNameToken extracts the lookup token from a full-name cell: trim,
// split on whitespace, keep the first segment, lowercase.
func FirstNameToken(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return normalizeToken(fields[0])
}

func normalizeToken(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// validToken reports whether s looks like a name: letters and combining
// marks, with apostrophes or hyphens allowed between letters.
func validToken(s string) bool {
	if s == "" {
		return false
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r), unicode.Is(unicode.Mn, r):
		case r == '\'' || r == '’' || r == '-':
			if i == 0 || i == len(runes)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Stats counts resolver activity for one run
type Stats struct {
	Lookups   int `json:"lookups"`
	CacheHits int `json:"cache_hits"`
	Unknown   int `json:"unknown"`
}

// Resolver memoizes a Lookup for the lifetime of one pipeline run. Each
// distinct token reaches the Lookup at most once. A Resolver is not safe
// for concurrent use and must not be shared between runs.
type Resolver struct {
	lookup Lookup
	logger *slog.Logger
	memo   map[string]domain.GenderLabel
	stats  Stats
}

// NewResolver creates a run-scoped resolver. A nil lookup uses DefaultTable.
func NewResolver(lookup Lookup, logger *slog.Logger) *Resolver {
	if lookup == nil {
		lookup = DefaultTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		lookup: lookup,
		logger: logger.With(slog.String("component", "gender_resolver")),
		memo:   make(map[string]domain.GenderLabel),
	}
}

// Resolve returns the label for an already extracted first-name token.
// Empty and non-alphabetic tokens resolve to unknown without a lookup.
// Lookup failures resolve to unknown and are never returned.
func (r *Resolver) Resolve(token string) domain.GenderLabel {
	token = normalizeToken(token)
	if !validToken(token) {
		r.stats.Unknown++
		return domain.GenderUnknown
	}

	if label, ok := r.memo[token]; ok {
		r.stats.CacheHits++
		if label == domain.GenderUnknown {
			r.stats.Unknown++
		}
		return label
	}

	r.stats.Lookups++
	label := r.safeLookup(token)
	r.memo[token] = label
	if label == domain.GenderUnknown {
		r.stats.Unknown++
	}
	return label
}

// ResolveFullName extracts the first-name token from full and resolves it
func (r *Resolver) ResolveFullName(full string) domain.GenderLabel {
	return r.Resolve(FirstNameToken(full))
}

// Stats returns the counters accumulated so far
func (r *Resolver) Stats() Stats {
	return r.stats
}

func (r *Resolver) safeLookup(token string) (label domain.GenderLabel) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.LogAttrs(context.Background(), slog.LevelDebug, "name lookup panicked",
				slog.String("name", token),
				slog.String("panic", fmt.Sprint(rec)))
			label = domain.GenderUnknown
		}
	}()

	got, err := r.lookup.Gender(token)
	if err != nil {
		r.logger.LogAttrs(context.Background(), slog.LevelDebug, "name lookup failed",
			slog.String("name", token),
			slog.String("error", err.Error()))
		return domain.GenderUnknown
	}
	if !got.Valid() {
		return domain.GenderUnknown
	}
	return got
}
