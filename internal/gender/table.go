package gender

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	apperrors "contactsift/internal/errors"
	"contactsift/pkg/contracts/domain"
)

//go:embed names.yaml
var embeddedNames []byte

// Lookup maps a lowercase first name to a gender label. Implementations
// return domain.GenderUnknown when the name is not known.
type Lookup interface {
	Gender(name string) (domain.GenderLabel, error)
}

// LookupFunc adapts a function to Lookup
type LookupFunc func(name string) (domain.GenderLabel, error)

// Gender implements Lookup
func (f LookupFunc) Gender(name string) (domain.GenderLabel, error) {
	return f(name)
}

// Table is a static name table. It is read-only after load.
type Table struct {
	names map[string]domain.GenderLabel
}

// tableFile is the on-disk shape: label -> names
type tableFile map[string][]string

// LoadTable decodes a YAML name table. Labels must be known gender labels
// other than "unknown", and a name may not appear under two labels.
func LoadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw tableFile
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.UnmarshalStrict(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid name table: %w", err)
		}
	}

	t := &Table{names: make(map[string]domain.GenderLabel)}
	for key, names := range raw {
		label, ok := domain.ParseGenderLabel(key)
		if !ok || label == domain.GenderUnknown {
			return nil, fmt.Errorf("invalid name table label %q", key)
		}
		for _, n := range names {
			n = normalizeToken(n)
			if n == "" {
				continue
			}
			if prev, dup := t.names[n]; dup && prev != label {
				return nil, fmt.Errorf("name %q listed as both %s and %s", n, prev, label)
			}
			t.names[n] = label
		}
	}
	return t, nil
}

// LoadTableFile reads a name table from disk
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to open name table", err).
			WithContext("path", path)
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load name table", err).
			WithContext("path", path)
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// DefaultTable returns the embedded name table
func DefaultTable() *Table {
	defaultOnce.Do(func() {
		t, err := LoadTable(bytes.NewReader(embeddedNames))
		if err != nil {
			panic(fmt.Sprintf("embedded name table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Gender implements Lookup. Hyphenated names fall back to their first part
// ("jean-pierre" resolves as "jean" when the full form is not listed).
func (t *Table) Gender(name string) (domain.GenderLabel, error) {
	if t == nil {
		return domain.GenderUnknown, nil
	}
	name = normalizeToken(name)
	if label, ok := t.names[name]; ok {
		return label, nil
	}
	if i := strings.IndexByte(name, '-'); i > 0 {
		if label, ok := t.names[name[:i]]; ok {
			return label, nil
		}
	}
	return domain.GenderUnknown, nil
}

// Len returns the number of names in the table
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}
