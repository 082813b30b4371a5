package operations

import (
	"context"
	"fmt"
	"log/slog"

	"contactsift/internal/dataprocessing"
	"contactsift/internal/gender"
	"contactsift/pkg/contracts/domain"
)

// GenderStage adds the gender column. With scope TaggedAll it tags the
// working dataset; with TaggedMatched it tags the filter's matched rows,
// or every row when the filter did not run.
type GenderStage struct {
	BaseStage
	classifier dataprocessing.Classifier
	lookup     gender.Lookup
	scope      string
	logger     *slog.Logger
}

// NewGenderStage creates a gender tagging step
func NewGenderStage(c dataprocessing.Classifier, lookup gender.Lookup, scope string) *GenderStage {
	return &GenderStage{
		BaseStage:  NewBaseStage(StageIDGender, StageNameGender),
		classifier: c,
		lookup:     lookup,
		scope:      scope,
		logger:     slog.Default().With(slog.String("Step", StageIDGender)),
	}
}

// SetLogger sets the step logger
func (s *GenderStage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger.With(slog.String("Step", StageIDGender))
	}
}

// Execute implements Step
func (s *GenderStage) Execute(ctx context.Context, state *OperationState) error {
	// one resolver per run keeps the memo private to this upload
	resolver := gender.NewResolver(s.lookup, s.logger)
	defer func() { state.GenderStats = resolver.Stats() }()

	if s.scope == TaggedMatched && state.Filtered {
		tagged, cond := s.classifier.TagGender(state.Partition.Matched, resolver)
		if cond != nil {
			return Skip(*cond)
		}
		state.Partition.Matched = tagged
		state.Tagged = TaggedMatched
	} else {
		tagged, cond := s.classifier.TagGender(state.Working, resolver)
		if cond != nil {
			return Skip(*cond)
		}
		// the filter has not classified anything yet, so every row remains
		state.Working = tagged
		state.Partition.Remaining = tagged
		state.Partition.Matched = tagged.Subset(nil)
		state.Tagged = TaggedAll
	}

	s.logger.DebugContext(ctx, "gender tagging finished",
		slog.String("scope", state.Tagged),
		slog.Int("lookups", resolver.Stats().Lookups),
		slog.Int("cache_hits", resolver.Stats().CacheHits))
	return nil
}

// Summary is the completion message stored on the step state
func (s *GenderStage) Summary(state *OperationState) string {
	return fmt.Sprintf("Looked up %d distinct first names", state.GenderStats.Lookups)
}

// FilterStage partitions the working dataset by keyword match
type FilterStage struct {
	BaseStage
	classifier dataprocessing.Classifier
	matcher    dataprocessing.TextMatcher
}

// NewFilterStage creates a keyword filter step. m may be nil when no
// filter words are configured; the step then skips.
func NewFilterStage(c dataprocessing.Classifier, m dataprocessing.TextMatcher) *FilterStage {
	return &FilterStage{
		BaseStage:  NewBaseStage(StageIDFilter, StageNameFilter),
		classifier: c,
		matcher:    m,
	}
}

// Execute implements Step
func (s *FilterStage) Execute(ctx context.Context, state *OperationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, cond := s.classifier.Partition(state.Working, s.matcher)
	state.Partition = p
	if cond != nil {
		return Skip(*cond)
	}

	state.Filtered = true
	if p.Matched.Empty() && !state.Working.Empty() {
		state.Report(domain.Condition{
			Severity: domain.SeverityInfo,
			Code:     domain.CondNoMatches,
			Message:  "No rows matched the filter words",
		})
	}
	return nil
}

// Summary is the completion message stored on the step state
func (s *FilterStage) Summary(state *OperationState) string {
	return fmt.Sprintf("Found %d matching rows", state.Partition.Matched.Len())
}
