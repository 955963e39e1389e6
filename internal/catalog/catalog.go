// Package catalog holds the fixed option lists a listing is classified with.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Multi-select caps.
const (
	MaxCategories = 3
	MaxCountries  = 3
	MaxLanguages  = 3
	MaxKeywords   = 5
)

//go:embed options.yaml
var optionsYAML []byte

// OptionSet is the full set of selectable values.
type OptionSet struct {
	Categories          []string `yaml:"categories" json:"categories"`
	Countries           []string `yaml:"countries" json:"countries"`
	Languages           []string `yaml:"languages" json:"languages"`
	SensitiveCategories []string `yaml:"sensitiveCategories" json:"sensitiveCategories"`
	Limits              Limits   `yaml:"-" json:"limits"`
}

// Limits reports the caps alongside the options so clients can enforce them.
type Limits struct {
	Categories int `json:"categories"`
	Countries  int `json:"countries"`
	Languages  int `json:"languages"`
	Keywords   int `json:"keywords"`
}

var (
	loadOnce sync.Once
	loaded   *OptionSet
	loadErr  error
)

// Options returns the embedded option lists.
func Options() (*OptionSet, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(optionsYAML)
	})
	return loaded, loadErr
}

// Parse decodes an options document.
func Parse(data []byte) (*OptionSet, error) {
	var set OptionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse catalog options: %w", err)
	}
	set.Limits = Limits{
		Categories: MaxCategories,
		Countries:  MaxCountries,
		Languages:  MaxLanguages,
		Keywords:   MaxKeywords,
	}
	return &set, nil
}

// IsCategory reports whether value is a known category.
func (s *OptionSet) IsCategory(value string) bool {
	return slices.Contains(s.Categories, value)
}

// IsCountry reports whether value is a known country.
func (s *OptionSet) IsCountry(value string) bool {
	return slices.Contains(s.Countries, value)
}

// IsLanguage reports whether value is a known language.
func (s *OptionSet) IsLanguage(value string) bool {
	return slices.Contains(s.Languages, value)
}

// IsSensitiveCategory reports whether value is a known sensitive category.
func (s *OptionSet) IsSensitiveCategory(value string) bool {
	return slices.Contains(s.SensitiveCategories, value)
}
