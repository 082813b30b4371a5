package domain

import (
	"fmt"
	"strings"
)

// PartitionMode selects how matched rows relate to the remaining rows
type PartitionMode string

const (
	// PartitionCopy keeps the full dataset and copies matched rows out
	PartitionCopy PartitionMode = "copy"
	// PartitionSplit moves every row into exactly one of matched or remaining
	PartitionSplit PartitionMode = "split"
)

// ParsePartitionMode parses "copy" or "split"
func ParsePartitionMode(s string) (PartitionMode, error) {
	switch m := PartitionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PartitionCopy, PartitionSplit:
		return m, nil
	}
	return "", fmt.Errorf("unknown partition mode %q", s)
}

// GenderOrder places gender tagging relative to keyword filtering
type GenderOrder string

const (
	// GenderBefore tags every row, then filters
	GenderBefore GenderOrder = "before"
	// GenderAfter filters first and tags only the matched rows
	GenderAfter GenderOrder = "after"
	// GenderOff disables tagging
	GenderOff GenderOrder = "off"
)

// ParseGenderOrder parses "before", "after" or "off"
func ParseGenderOrder(s string) (GenderOrder, error) {
	switch o := GenderOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case GenderBefore, GenderAfter, GenderOff:
		return o, nil
	}
	return "", fmt.Errorf("unknown gender order %q", s)
}

// Severity grades a Condition
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// ConditionCode identifies a reported condition
type ConditionCode string

const (
	CondNoFilterConfigured ConditionCode = "NO_FILTER_CONFIGURED"
	CondMissingTextColumn  ConditionCode = "MISSING_TEXT_COLUMN"
	CondMissingNameColumn  ConditionCode = "MISSING_NAME_COLUMN"
	CondEmptyDataset       ConditionCode = "EMPTY_DATASET"
	CondNoMatches          ConditionCode = "NO_MATCHES"
)

// Condition is a non-fatal problem found during a run. Conditions are
// reported to the user next to the results instead of aborting the run.
type Condition struct {
	Severity Severity      `json:"severity"`
	Code     ConditionCode `json:"code"`
	Message  string        `json:"message"`
	Column   string        `json:"column,omitempty"`
}

// Blocking reports whether the condition prevents a download
func (c Condition) Blocking() bool {
	return c.Severity == SeverityBlocking
}

// NoFilterConfigured is raised when the keyword set is empty
func NoFilterConfigured() Condition {
	return Condition{
		Severity: SeverityBlocking,
		Code:     CondNoFilterConfigured,
		Message:  "No filter words are configured. Add words to the keyword file to enable filtering.",
	}
}

// MissingColumn is raised when an expected column is absent from the upload
func MissingColumn(code ConditionCode, column string) Condition {
	return Condition{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf("Column %q was not found in the uploaded file", column),
		Column:   column,
	}
}

// Conditions is an ordered list of reported conditions
type Conditions []Condition

// Add appends c unless an identical condition is already present
func (cs *Conditions) Add(c Condition) {
	for _, existing := range *cs {
		if existing == c {
			return
		}
	}
	*cs = append(*cs, c)
}

// Blocking reports whether any condition is blocking
func (cs Conditions) Blocking() bool {
	for _, c := range cs {
		if c.Blocking() {
			return true
		}
	}
	return false
}

// Has reports whether a condition with the given code is present
func (cs Conditions) Has(code ConditionCode) bool {
	for _, c := range cs {
		if c.Code == code {
			return true
		}
	}
	return false
}
