package dataprocessing

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactsift/internal/gender"
	"contactsift/internal/matcher"
	"contactsift/pkg/contracts/domain"
)

func sample() *domain.Dataset {
	return domain.NewDataset(
		[]string{"first name", "last name", "compt"},
		[]domain.Row{
			{"Maria", "Lopez", "Art supplies wholesale"},
			{"Alex", "Smith", "party planning"},
			{"John", "Doe", "This is a SCAM company"},
			{"", "Nobody", ""},
			{"Alex", "Jones", "estafa piramidal"},
		},
	)
}

func mustMatcher(t *testing.T, words ...string) *matcher.Matcher {
	t.Helper()
	m, err := matcher.New(words)
	require.NoError(t, err)
	return m
}

func TestPartition_SplitMode(t *testing.T) {
	c := Classifier{Mode: domain.PartitionSplit}
	ds := sample()

	p, cond := c.Partition(ds, mustMatcher(t, "art", "scam", "estafa"))
	require.Nil(t, cond)

	assert.Equal(t, []int{0, 2, 4}, p.MatchedRows)
	assert.Equal(t, 3, p.Matched.Len())
	assert.Equal(t, 2, p.Remaining.Len())
	assert.Equal(t, "party planning", p.Remaining.Rows[0][2], "art must not match inside party")
	assert.Equal(t, ds.Headers, p.Matched.Headers)
}

func TestPartition_CopyMode(t *testing.T) {
	c := Classifier{}
	ds := sample()

	p, cond := c.Partition(ds, mustMatcher(t, "scam"))
	require.Nil(t, cond)

	assert.Equal(t, 1, p.Matched.Len())
	if diff := cmp.Diff(ds, p.Remaining); diff != "" {
		t.Errorf("copy mode must keep the whole dataset (-want +got):\n%s", diff)
	}
}

func TestPartition_MissingTextColumn(t *testing.T) {
	ds := sample().Project("first name", "last name")

	for _, mode := range []domain.PartitionMode{domain.PartitionCopy, domain.PartitionSplit} {
		t.Run(string(mode), func(t *testing.T) {
			p, cond := Classifier{Mode: mode}.Partition(ds, mustMatcher(t, "scam"))
			require.NotNil(t, cond)
			assert.Equal(t, domain.CondMissingTextColumn, cond.Code)
			assert.Equal(t, domain.SeverityWarning, cond.Severity)
			assert.Equal(t, "compt", cond.Column)

			assert.True(t, p.Matched.Empty())
			assert.Equal(t, ds.Headers, p.Matched.Headers)
			assert.Empty(t, cmp.Diff(ds, p.Remaining))
		})
	}
}

func TestPartition_NoMatcher(t *testing.T) {
	ds := sample()
	var nilMatcher *matcher.Matcher

	for name, m := range map[string]TextMatcher{"nil interface": nil, "typed nil": nilMatcher} {
		t.Run(name, func(t *testing.T) {
			p, cond := Classifier{Mode: domain.PartitionSplit}.Partition(ds, m)
			require.NotNil(t, cond)
			assert.Equal(t, domain.CondNoFilterConfigured, cond.Code)
			assert.True(t, cond.Blocking())
			assert.True(t, p.Matched.Empty())
			assert.Equal(t, ds.Len(), p.Remaining.Len())
		})
	}
}

func TestPartition_CaseInsensitiveColumn(t *testing.T) {
	ds := domain.NewDataset([]string{"First Name", " COMPT "}, []domain.Row{{"Ann", "scam"}})
	p, cond := Classifier{}.Partition(ds, mustMatcher(t, "scam"))
	require.Nil(t, cond)
	assert.Equal(t, 1, p.Matched.Len())
}

// rowKeys renders rows as sortable strings for multiset comparison
func rowKeys(rows []domain.Row) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = strings.Join(r, "\x1f")
	}
	sort.Strings(keys)
	return keys
}

func TestPartition_SplitIsCompleteAndDisjoint(t *testing.T) {
	vocab := []string{"art", "party", "scam", "fraud", "shop", "the", "a", "supplies", "co"}
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(30)
		rows := make([]domain.Row, n)
		for i := range rows {
			words := make([]string, rng.Intn(5))
			for j := range words {
				words[j] = vocab[rng.Intn(len(vocab))]
			}
			// the id column keeps rows distinct so disjointness is observable
			rows[i] = domain.Row{fmt.Sprint(i), strings.Join(words, " ")}
		}
		ds := domain.NewDataset([]string{"id", "compt"}, rows)
		m := mustMatcher(t, vocab[rng.Intn(len(vocab))], vocab[rng.Intn(len(vocab))])

		p, cond := Classifier{Mode: domain.PartitionSplit}.Partition(ds, m)
		require.Nil(t, cond)
		require.Equal(t, ds.Len(), p.Matched.Len()+p.Remaining.Len())

		union := append(append([]domain.Row{}, p.Matched.Rows...), p.Remaining.Rows...)
		assert.Equal(t, rowKeys(ds.Rows), rowKeys(union), "iteration %d", iter)

		seen := map[string]bool{}
		for _, r := range p.Matched.Rows {
			seen[r[0]] = true
		}
		for _, r := range p.Remaining.Rows {
			assert.False(t, seen[r[0]], "row %s in both subsets", r[0])
		}
	}
}

func TestTagGender(t *testing.T) {
	c := Classifier{}
	ds := sample()

	tagged, cond := c.TagGender(ds, gender.NewResolver(nil, nil))
	require.Nil(t, cond)

	labels, ok := tagged.Column("gender")
	require.True(t, ok)
	assert.Equal(t, []string{"female", "andy", "male", "unknown", "andy"}, labels)
	assert.Len(t, ds.Headers, 3, "source dataset is not modified")
}

func TestTagGender_OverwritesExistingColumn(t *testing.T) {
	ds := domain.NewDataset([]string{"first name", "Gender"}, []domain.Row{{"Maria", "stale"}})
	tagged, cond := Classifier{}.TagGender(ds, gender.NewResolver(nil, nil))
	require.Nil(t, cond)
	assert.Equal(t, []string{"first name", "Gender"}, tagged.Headers)
	assert.Equal(t, "female", tagged.Rows[0][1])
}

func TestTagGender_MissingNameColumn(t *testing.T) {
	ds := sample().Project("last name", "compt")
	tagged, cond := Classifier{}.TagGender(ds, gender.NewResolver(nil, nil))

	require.NotNil(t, cond)
	assert.Equal(t, domain.CondMissingNameColumn, cond.Code)
	assert.False(t, cond.Blocking())
	assert.False(t, tagged.HasColumn("gender"))
	assert.Same(t, ds, tagged)
}

func TestClassifier_Idempotent(t *testing.T) {
	run := func() (*domain.Dataset, Partition) {
		c := Classifier{Mode: domain.PartitionSplit}
		tagged, _ := c.TagGender(sample(), gender.NewResolver(nil, nil))
		p, _ := c.Partition(tagged, mustMatcher(t, "scam", "art", "estafa"))
		return tagged, p
	}

	t1, p1 := run()
	t2, p2 := run()
	assert.Empty(t, cmp.Diff(t1, t2))
	assert.Empty(t, cmp.Diff(p1, p2))
}
