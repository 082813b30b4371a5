package dataprocessing

import (
	"contactsift/internal/config"
	"contactsift/pkg/contracts/domain"
)

// TextMatcher reports whether free text contains a configured keyword.
// *matcher.Matcher satisfies it.
type TextMatcher interface {
	Match(text string) bool
}

// NameResolver maps a full-name cell to a gender label.
// *gender.Resolver satisfies it.
type NameResolver interface {
	ResolveFullName(full string) domain.GenderLabel
}

// Partition is the result of classifying a dataset against the keywords.
// In split mode Matched and Remaining are disjoint and together hold every
// source row. In copy mode Remaining is the whole dataset.
type Partition struct {
	Matched   *domain.Dataset
	Remaining *domain.Dataset
	// MatchedRows are the source indices of the matched rows, ascending
	MatchedRows []int
}

// Classifier tags and partitions datasets. The zero value uses the
// default column names and copy mode.
type Classifier struct {
	TextColumn   string
	NameColumn   string
	GenderColumn string
	Mode         domain.PartitionMode
}

// NewClassifier builds a Classifier from the filter configuration
func NewClassifier(cfg config.FilterConfig) Classifier {
	return Classifier{
		TextColumn:   cfg.TextColumn,
		NameColumn:   cfg.NameColumn,
		GenderColumn: cfg.GenderColumn,
		Mode:         domain.PartitionMode(cfg.PartitionMode),
	}
}

func (c Classifier) textColumn() string {
	if c.TextColumn == "" {
		return config.DefaultTextColumn
	}
	return c.TextColumn
}

func (c Classifier) nameColumn() string {
	if c.NameColumn == "" {
		return config.DefaultNameColumn
	}
	return c.NameColumn
}

func (c Classifier) genderColumn() string {
	if c.GenderColumn == "" {
		return config.DefaultGenderColumn
	}
	return c.GenderColumn
}

func (c Classifier) mode() domain.PartitionMode {
	if c.Mode == domain.PartitionSplit {
		return domain.PartitionSplit
	}
	return domain.PartitionCopy
}

// TagGender returns a copy of ds with the gender column set from the name
// column. Without a name column the dataset is returned unchanged along
// with a warning.
func (c Classifier) TagGender(ds *domain.Dataset, resolver NameResolver) (*domain.Dataset, *domain.Condition) {
	names, ok := ds.Column(c.nameColumn())
	if !ok {
		cond := domain.MissingColumn(domain.CondMissingNameColumn, c.nameColumn())
		return ds, &cond
	}

	labels := make([]string, len(names))
	for i, n := range names {
		labels[i] = resolver.ResolveFullName(n).String()
	}
	return ds.WithColumn(c.genderColumn(), labels), nil
}

// Partition splits ds by whether the text column matches m. A nil matcher
// or a missing text column leaves Matched empty and Remaining equal to ds,
// and reports why.
func (c Classifier) Partition(ds *domain.Dataset, m TextMatcher) (Partition, *domain.Condition) {
	if isNilMatcher(m) {
		cond := domain.NoFilterConfigured()
		return c.unclassified(ds), &cond
	}

	texts, ok := ds.Column(c.textColumn())
	if !ok {
		cond := domain.MissingColumn(domain.CondMissingTextColumn, c.textColumn())
		return c.unclassified(ds), &cond
	}

	matched := make([]int, 0)
	remaining := make([]int, 0, len(texts))
	for i, text := range texts {
		if m.Match(text) {
			matched = append(matched, i)
		} else {
			remaining = append(remaining, i)
		}
	}

	p := Partition{
		Matched:     ds.Subset(matched),
		MatchedRows: matched,
	}
	if c.mode() == domain.PartitionSplit {
		p.Remaining = ds.Subset(remaining)
	} else {
		p.Remaining = ds.Clone()
	}
	return p, nil
}

func (c Classifier) unclassified(ds *domain.Dataset) Partition {
	return Partition{
		Matched:     ds.Subset(nil),
		Remaining:   ds.Clone(),
		MatchedRows: []int{},
	}
}

// isNilMatcher catches both a nil interface and a typed nil pointer
func isNilMatcher(m TextMatcher) bool {
	if m == nil {
		return true
	}
	if n, ok := m.(interface{ Len() int }); ok {
		return n.Len() == 0
	}
	return false
}
