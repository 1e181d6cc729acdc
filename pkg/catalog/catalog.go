// Package catalog provides the read-only set of room templates from which
// instances are created. Catalogs are loaded from YAML; the default catalog
// ships embedded in the binary.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shipyard/pkg/domain"
)

//go:embed rooms.yaml
var defaultRooms []byte

// ErrEmptyCatalog is returned when a document declares no templates.
var ErrEmptyCatalog = errors.New("catalog declares no templates")

// Catalog is an ordered, immutable collection of templates.
type Catalog struct {
	templates []domain.Template
	byID      map[string]int
}

type document struct {
	Templates []domain.Template `yaml:"templates"`
}

// Default returns the embedded template library. It panics only if the
// embedded document is invalid, which the package tests guard against.
func Default() *Catalog {
	c, err := Parse(defaultRooms)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded rooms.yaml: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file on disk.
func Load(path string) (c *Catalog, err error) {
	clean := filepath.Clean(path)
	f, err := os.Open(clean) // #nosec G304: operator supplied catalog path
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close catalog: %w", cerr)
		}
	}()
	return Read(f)
}

// Read decodes a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Templates)
}

// New builds a catalog from templates, preserving their order. Ids must be
// unique and non-empty, categories known and max health positive.
func New(templates []domain.Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		templates: make([]domain.Template, 0, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}
	for i, t := range templates {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("templates[%d]: id is required", i)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("templates[%d]: duplicate id %q", i, t.ID)
		}
		if !t.Category.Valid() {
			return nil, fmt.Errorf("templates[%d] %s: unknown type %q", i, t.ID, t.Category)
		}
		if t.HPMax <= 0 {
			return nil, fmt.Errorf("templates[%d] %s: hpMax must be positive", i, t.ID)
		}
		t.Traits = normalize(t.Traits)
		t.Disabled = normalize(t.Disabled)
		t.Stabilized = normalize(t.Stabilized)
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// Lookup returns the template registered under id.
func (c *Catalog) Lookup(id string) (domain.Template, bool) {
	if c == nil {
		return domain.Template{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return domain.Template{}, false
	}
	return cloneTemplate(c.templates[idx]), true
}

// Templates returns every template in declaration order.
func (c *Catalog) Templates() []domain.Template {
	if c == nil {
		return nil
	}
	out := make([]domain.Template, len(c.templates))
	for i, t := range c.templates {
		out[i] = cloneTemplate(t)
	}
	return out
}

// ByCategory returns the templates of a single category in declaration order.
func (c *Catalog) ByCategory(category domain.Category) []domain.Template {
	var out []domain.Template
	for _, t := range c.Templates() {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Len reports the number of templates.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.templates)
}

func cloneTemplate(t domain.Template) domain.Template {
	t.Traits = normalize(t.Traits)
	t.Disabled = normalize(t.Disabled)
	t.Stabilized = normalize(t.Stabilized)
	return t
}

func normalize(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
