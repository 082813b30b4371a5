package domain

import "strings"

// GenderLabel is the heuristic gender guessed from a first name
type GenderLabel string

const (
	GenderMale         GenderLabel = "male"
	GenderFemale       GenderLabel = "female"
	GenderMostlyMale   GenderLabel = "mostly_male"
	GenderMostlyFemale GenderLabel = "mostly_female"
	// GenderAndy marks names used about equally for both genders
	GenderAndy    GenderLabel = "andy"
	GenderUnknown GenderLabel = "unknown"
)

// GenderLabels lists every label in display order
func GenderLabels() []GenderLabel {
	return []GenderLabel{
		GenderMale,
		GenderFemale,
		GenderMostlyMale,
		GenderMostlyFemale,
		GenderAndy,
		GenderUnknown,
	}
}

// Valid reports whether g is one of the known labels
func (g GenderLabel) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderMostlyMale, GenderMostlyFemale, GenderAndy, GenderUnknown:
		return true
	}
	return false
}

func (g GenderLabel) String() string {
	return string(g)
}

// ParseGenderLabel accepts the canonical labels case-insensitively. Hyphens
// and spaces are treated as underscores ("mostly-male", "Mostly Male").
func ParseGenderLabel(s string) (GenderLabel, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	g := GenderLabel(norm)
	if !g.Valid() {
		return GenderUnknown, false
	}
	return g, true
}
