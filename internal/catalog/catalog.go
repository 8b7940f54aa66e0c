// Package catalog holds the immutable Test Spec Catalog: one declarative
// TestSpec per integration test, partitioned by category, loaded once at
// process start from the YAML documents embedded under testdata.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category closes the enum a TestSpec's category must belong to.
type Category string

const (
	CategoryScope       Category = "scope"
	CategoryDate        Category = "date"
	CategoryArchive     Category = "archive"
	CategoryRegression  Category = "regression"
	CategoryCLI         Category = "cli"
	CategoryAcceptance  Category = "acceptance"
	CategoryIntegration Category = "integration"
)

var validCategories = map[Category]bool{
	CategoryScope: true, CategoryDate: true, CategoryArchive: true,
	CategoryRegression: true, CategoryCLI: true, CategoryAcceptance: true,
	CategoryIntegration: true,
}

// InputType closes the kind of fixture input a spec drives.
type InputType string

const (
	InputText     InputType = "text"
	InputURL      InputType = "url"
	InputPhoto    InputType = "photo"
	InputDocument InputType = "document"
	InputVoice    InputType = "voice"
	InputAudio    InputType = "audio"
)

// Input describes how the spec's fixture should be constructed if missing.
type Input struct {
	Type        InputType `yaml:"type" json:"type"`
	Example     string    `yaml:"example,omitempty" json:"example,omitempty"`
	LocalAsset  string    `yaml:"localAsset,omitempty" json:"localAsset,omitempty"`
}

// SemanticSpec is the optional semantic-judge sub-contract on a TestSpec.
type SemanticSpec struct {
	Description string   `yaml:"description" json:"description"`
	Checkpoints []string `yaml:"checkpoints" json:"checkpoints"`
	// TargetClass is "raw" or "derived", selecting which vault file the
	// judge reads when a spec produces more than one.
	TargetClass string `yaml:"targetClass,omitempty" json:"targetClass,omitempty"`
	Threshold   int    `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

func (s *SemanticSpec) effectiveThreshold() int {
	if s == nil || s.Threshold <= 0 {
		return 80
	}
	return s.Threshold
}

// Expectations is the closed record of declarative facets the Validation
// Engine can check. Every facet is optional; only present facets are
// checked.
type Expectations struct {
	Pipeline              string            `yaml:"pipeline,omitempty" json:"pipeline,omitempty"`
	RequiredTags          []string          `yaml:"requiredTags,omitempty" json:"requiredTags,omitempty"`
	ForbiddenTags         []string          `yaml:"forbiddenTags,omitempty" json:"forbiddenTags,omitempty"`
	Frontmatter           map[string]string `yaml:"frontmatter,omitempty" json:"frontmatter,omitempty"`
	FilenamePattern       string            `yaml:"filenamePattern,omitempty" json:"filenamePattern,omitempty"`
	ContentContains       []string          `yaml:"contentContains,omitempty" json:"contentContains,omitempty"`
	ContentNotContains    []string          `yaml:"contentNotContains,omitempty" json:"contentNotContains,omitempty"`
	VerboseContains       []string          `yaml:"verboseContains,omitempty" json:"verboseContains,omitempty"`
	ArchiveFilenamePattern string           `yaml:"archiveFilenamePattern,omitempty" json:"archiveFilenamePattern,omitempty"`
	ArchiveSync           bool              `yaml:"archiveSync,omitempty" json:"archiveSync,omitempty"`
	NotificationSeverity  string            `yaml:"notificationSeverity,omitempty" json:"notificationSeverity,omitempty"`
	NotificationFields    []string          `yaml:"notificationFields,omitempty" json:"notificationFields,omitempty"`
	TargetFileDate        string            `yaml:"targetFileDate,omitempty" json:"targetFileDate,omitempty"`
	Semantic              *SemanticSpec     `yaml:"semantic,omitempty" json:"semantic,omitempty"`
}

// EffectiveSemanticThreshold returns the confidence threshold the semantic
// judge should apply, defaulting to 80.
func (e Expectations) EffectiveSemanticThreshold() int {
	return e.Semantic.effectiveThreshold()
}

// Meta carries optional documentation/skip metadata.
type Meta struct {
	DocRef     string `yaml:"docRef,omitempty" json:"docRef,omitempty"`
	SkipReason string `yaml:"skip,omitempty" json:"skip,omitempty"`
}

// TestSpec is one immutable, declarative integration test description.
type TestSpec struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Category     Category     `yaml:"category" json:"category"`
	Group        string       `yaml:"group,omitempty" json:"group,omitempty"`
	FixtureRef   string       `yaml:"fixtureRef" json:"fixtureRef"`
	Input        Input        `yaml:"input" json:"input"`
	Expectations Expectations `yaml:"expectations" json:"expectations"`
	Meta         Meta         `yaml:"meta,omitempty" json:"meta,omitempty"`
	TimeoutMS    int          `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
}

// HasSemantic reports whether the spec carries a semantic sub-spec.
func (t TestSpec) HasSemantic() bool {
	return t.Expectations.Semantic != nil
}

// Skipped reports whether the spec's meta marks it as skipped and, if so,
// the reason.
func (t TestSpec) Skipped() (bool, string) {
	if strings.TrimSpace(t.Meta.SkipReason) == "" {
		return false, ""
	}
	return true, t.Meta.SkipReason
}

type specFile struct {
	Specs []TestSpec `yaml:"specs"`
}

//go:embed testdata/*.yaml
var embedded embed.FS

// Catalog is the loaded, validated, immutable set of TestSpecs.
type Catalog struct {
	all []TestSpec
	byID map[string]TestSpec
}

// Load reads every *.yaml document under testdata (embedded at
// build time), validates the uniqueness and fixture-reference invariants,
// and returns the compiled Catalog.
func Load() (*Catalog, error) {
	entries, err := fs.ReadDir(embedded, "testdata")
	if err != nil {
		return nil, fmt.Errorf("catalog: read testdata: %w", err)
	}

	var all []TestSpec
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		raw, err := fs.ReadFile(embedded, path.Join("testdata", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", e.Name(), err)
		}
		dec := yaml.NewDecoder(strings.NewReader(string(raw)))
		dec.KnownFields(true)
		var sf specFile
		if err := dec.Decode(&sf); err != nil {
			return nil, fmt.Errorf("catalog: decode %s: %w", e.Name(), err)
		}
		all = append(all, sf.Specs...)
	}

	return newCatalog(all)
}

// LoadFromSpecs builds a Catalog from an in-memory spec list, applying the
// same validation Load uses.
func LoadFromSpecs(specs []TestSpec) (*Catalog, error) {
	return newCatalog(specs)
}

func newCatalog(all []TestSpec) (*Catalog, error) {
	byID := make(map[string]TestSpec, len(all))
	for _, s := range all {
		if !validCategories[s.Category] {
			return nil, fmt.Errorf("catalog: spec %s has unknown category %q", s.ID, s.Category)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate spec id %q", s.ID)
		}
		if !strings.HasPrefix(s.FixtureRef, string(s.Category)+"/") {
			return nil, fmt.Errorf("catalog: spec %s fixtureRef %q must start with category %q", s.ID, s.FixtureRef, s.Category)
		}
		byID[s.ID] = s
	}

	sorted := make([]TestSpec, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return &Catalog{all: sorted, byID: byID}, nil
}

// All returns every spec in catalog (id-sorted) order.
func (c *Catalog) All() []TestSpec {
	out := make([]TestSpec, len(c.all))
	copy(out, c.all)
	return out
}

// ByCategory returns every spec in the given category, in catalog order.
func (c *Catalog) ByCategory(cat Category) []TestSpec {
	var out []TestSpec
	for _, s := range c.all {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// ByID looks a spec up by its identifier.
func (c *Catalog) ByID(id string) (TestSpec, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// ByGroup returns every spec tagged with the given group, in catalog order.
func (c *Catalog) ByGroup(group string) []TestSpec {
	var out []TestSpec
	for _, s := range c.all {
		if s.Group == group {
			out = append(out, s)
		}
	}
	return out
}

// WithSemantic returns every spec carrying a semantic sub-spec.
func (c *Catalog) WithSemantic() []TestSpec {
	var out []TestSpec
	for _, s := range c.all {
		if s.HasSemantic() {
			out = append(out, s)
		}
	}
	return out
}
