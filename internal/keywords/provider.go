package keywords

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	apperrors "contactsift/internal/errors"
)

// Config is the raw keyword configuration before expansion
type Config struct {
	Base         []string            `json:"base" yaml:"base"`
	Translations map[string][]string `json:"translations" yaml:"translations"`
}

// Provider supplies keyword configuration on demand
type Provider interface {
	Load(ctx context.Context) (Config, error)
}

// StaticProvider serves a fixed configuration
type StaticProvider struct {
	Config Config
}

// Load implements Provider
func (p StaticProvider) Load(ctx context.Context) (Config, error) {
	return p.Config, ctx.Err()
}

// FileProvider reads the newline-delimited keyword file and the YAML
// translation map. A missing file contributes nothing.
type FileProvider struct {
	KeywordsFile     string
	TranslationsFile string
}

// Load implements Provider
func (p FileProvider) Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := ctx.Err(); err != nil {
		return cfg, err
	}

	if p.KeywordsFile != "" {
		data, err := readOptional(p.KeywordsFile)
		if err != nil {
			return cfg, apperrors.NewConfigError("failed to read keyword file", err).
				WithContext("path", p.KeywordsFile)
		}
		if cfg.Base, err = ParseKeywords(bytes.NewReader(data)); err != nil {
			return cfg, apperrors.NewConfigError("failed to parse keyword file", err).
				WithContext("path", p.KeywordsFile)
		}
	}

	if p.TranslationsFile != "" {
		data, err := readOptional(p.TranslationsFile)
		if err != nil {
			return cfg, apperrors.NewConfigError("failed to read translations file", err).
				WithContext("path", p.TranslationsFile)
		}
		if cfg.Translations, err = ParseTranslations(data); err != nil {
			return cfg, apperrors.NewConfigError("failed to parse translations file", err).
				WithContext("path", p.TranslationsFile)
		}
	}

	return cfg, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// ParseKeywords reads one keyword per line. Lines are trimmed and
// lowercased; blank lines are skipped.
func ParseKeywords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if w := Normalize(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// ParseTranslations decodes a YAML mapping of word to synonym list.
// Empty input yields an empty map.
func ParseTranslations(data []byte) (map[string][]string, error) {
	out := map[string][]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := yaml.UnmarshalStrict(data, &out); err != nil {
		return nil, fmt.Errorf("translations must map words to lists of synonyms: %w", err)
	}
	return out, nil
}
