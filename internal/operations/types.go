package operations

import (
	"contactsift/internal/dataprocessing"
	"contactsift/internal/gender"
	"contactsift/pkg/contracts/domain"
)

// Step identifiers
const (
	StageIDGender = "gender"
	StageIDFilter = "filter"
)

// Step names
const (
	StageNameGender = "Gender Detection"
	StageNameFilter = "Keyword Filter"
)

// OperationRequest describes one sift run
type OperationRequest struct {
	ID      string
	Dataset *domain.Dataset
	// Matcher is nil when no filter words are configured
	Matcher     dataprocessing.TextMatcher
	Lookup      gender.Lookup
	Classifier  dataprocessing.Classifier
	GenderOrder domain.GenderOrder
}

// BuildSteps returns the steps for req.GenderOrder. Tagging before
// filtering tags every row; tagging after filtering tags only what the
// filter kept.
func BuildSteps(req OperationRequest) []Step {
	switch req.GenderOrder {
	case domain.GenderBefore:
		return []Step{
			NewGenderStage(req.Classifier, req.Lookup, TaggedAll),
			NewFilterStage(req.Classifier, req.Matcher),
		}
	case domain.GenderOff:
		return []Step{NewFilterStage(req.Classifier, req.Matcher)}
	default:
		return []Step{
			NewFilterStage(req.Classifier, req.Matcher),
			NewGenderStage(req.Classifier, req.Lookup, TaggedMatched),
		}
	}
}
