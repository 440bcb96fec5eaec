// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed catalog.json
var defaultCatalog []byte

// Catalog is an indexed, read-only view of a SolutionCatalog.
type Catalog struct {
	raw   SolutionCatalog
	byID  map[string]Solution
	order []string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded solution catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and indexes catalog JSON. IDs must be unique and non-empty.
func Parse(data []byte) (*Catalog, error) {
	var raw SolutionCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(raw.Solutions) < 2 {
		return nil, fmt.Errorf("catalog needs at least two solutions, got %d", len(raw.Solutions))
	}

	c := &Catalog{raw: raw, byID: make(map[string]Solution, len(raw.Solutions))}
	for _, s := range raw.Solutions {
		if s.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", s.Title)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate solution id %q", s.ID)
		}
		c.byID[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

// IDs returns solution identifiers in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Lookup(id string) (Solution, bool) {
	s, ok := c.byID[id]
	return s, ok
}

func (c *Catalog) IsValid(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Solutions() []Solution {
	out := make([]Solution, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Version() string {
	return c.raw.Version
}
