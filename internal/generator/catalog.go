package generator

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type TitleType struct {
	Name           string   `yaml:"name"`
	Subject        string   `yaml:"subject"`
	Label          string   `yaml:"label"`
	PromptKeywords []string `yaml:"prompt_keywords"`
	Focus          []string `yaml:"focus"`
	Keywords       []string `yaml:"keywords"`
	Templates      []string `yaml:"templates"`
	BackupTitles   []string `yaml:"backup_titles"`
}

type Personality struct {
	Name     string   `yaml:"name"`
	Role     string   `yaml:"role"`
	Keywords []string `yaml:"keywords"`
}

type keywordCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Catalog is the static data behind the local title generators.
type Catalog struct {
	Types                []TitleType       `yaml:"types"`
	Personalities        []Personality     `yaml:"personalities"`
	PersonalityTemplates []string          `yaml:"personality_templates"`
	KeywordCategories    []keywordCategory `yaml:"keyword_categories"`
	Companies            []string          `yaml:"companies"`
	GenericKeywords      []string          `yaml:"generic_keywords"`
}

var defaultCatalog = mustLoadCatalog(catalogYAML)

func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func loadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing title catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func mustLoadCatalog(data []byte) *Catalog {
	c, err := loadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	if len(c.Types) == 0 {
		return fmt.Errorf("title catalog: no types")
	}
	for _, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("title catalog: type without name")
		}
		if len(t.Keywords) == 0 || len(t.Templates) == 0 {
			return fmt.Errorf("title catalog: type %q needs keywords and templates", t.Name)
		}
		if n := t.distinctTitles(); n < MaxTitleCount {
			return fmt.Errorf("title catalog: type %q produces %d distinct titles, need %d", t.Name, n, MaxTitleCount)
		}
	}
	if len(c.Personalities) == 0 || len(c.PersonalityTemplates) == 0 {
		return fmt.Errorf("title catalog: personalities and personality templates are required")
	}
	return nil
}

// distinctTitles counts the different titles Fallback can build for t.
func (t TitleType) distinctTitles() int {
	seen := make(map[string]bool)
	for _, title := range t.BackupTitles {
		if title != "" {
			seen[title] = true
		}
	}
	for _, template := range t.Templates {
		for _, keyword := range t.Keywords {
			seen[strings.ReplaceAll(template, "{keyword}", keyword)] = true
		}
	}
	return len(seen)
}

// Type looks a title type up by name.
func (c *Catalog) Type(name string) (TitleType, bool) {
	for _, t := range c.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TitleType{}, false
}

func (c *Catalog) TypeNames() []string {
	names := make([]string, 0, len(c.Types))
	for _, t := range c.Types {
		names = append(names, t.Name)
	}
	return names
}
