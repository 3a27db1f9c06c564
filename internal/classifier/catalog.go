package classifier

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordLabel binds a filename keyword to an internal label.
type KeywordLabel struct {
	Keyword string `yaml:"keyword"`
	Label   string `yaml:"label"`
}

// Catalog is the immutable pair of keyword->label and label->display mappings.
// Keyword order is first-match priority.
type Catalog struct {
	keywords []KeywordLabel
	display  map[string]string
}

type catalogFile struct {
	Keywords []KeywordLabel    `yaml:"keywords"`
	Display  map[string]string `yaml:"display"`
}

// DefaultCatalog returns the built-in brain scan catalog.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		[]KeywordLabel{
			{Keyword: "glioma", Label: "glioma_tumor"},
			{Keyword: "meningioma", Label: "meningioma_tumor"},
			{Keyword: "pituitary", Label: "pituitary_tumor"},
			{Keyword: "no", Label: "no_tumor"},
		},
		map[string]string{
			"glioma_tumor":     "Glioma Tumor",
			"meningioma_tumor": "Meningioma Tumor",
			"pituitary_tumor":  "Pituitary Tumor",
			"no_tumor":         "No Detectable Anomaly",
		},
	)
	if err != nil {
		panic(err)
	}
	return catalog
}

// NewCatalog validates and copies the given mappings. Keywords are lowercased; every label
// must have a display string.
func NewCatalog(keywords []KeywordLabel, display map[string]string) (*Catalog, error) {
	if len(keywords) == 0 {
		return nil, errors.New("catalog: at least one keyword is required")
	}

	seen := make(map[string]struct{}, len(keywords))
	entries := make([]KeywordLabel, 0, len(keywords))
	for i, entry := range keywords {
		keyword := strings.ToLower(strings.TrimSpace(entry.Keyword))
		label := strings.TrimSpace(entry.Label)
		if keyword == "" {
			return nil, fmt.Errorf("catalog: keyword #%d is empty", i+1)
		}
		if label == "" {
			return nil, fmt.Errorf("catalog: keyword %q has no label", keyword)
		}
		if _, dup := seen[keyword]; dup {
			return nil, fmt.Errorf("catalog: duplicate keyword %q", keyword)
		}
		if strings.TrimSpace(display[label]) == "" {
			return nil, fmt.Errorf("catalog: label %q has no display name", label)
		}
		seen[keyword] = struct{}{}
		entries = append(entries, KeywordLabel{Keyword: keyword, Label: label})
	}

	names := make(map[string]string, len(display))
	for label, name := range display {
		names[label] = name
	}
	return &Catalog{keywords: entries, display: names}, nil
}

// LoadCatalog reads a YAML catalog. The order of the keywords list is kept.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return NewCatalog(file.Keywords, file.Display)
}

// Match returns the label of the first keyword contained in name.
func (c *Catalog) Match(name string) (string, bool) {
	for _, entry := range c.keywords {
		if strings.Contains(name, entry.Keyword) {
			return entry.Label, true
		}
	}
	return "", false
}

// DisplayName returns the human readable name for label.
func (c *Catalog) DisplayName(label string) (string, bool) {
	name, ok := c.display[label]
	return name, ok
}

// Keywords returns a copy of the keyword mappings in priority order.
func (c *Catalog) Keywords() []KeywordLabel {
	out := make([]KeywordLabel, len(c.keywords))
	copy(out, c.keywords)
	return out
}
