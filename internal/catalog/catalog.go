// Package catalog is the registry of named analytical queries. It is
// populated once at startup from the fixed built-in set; definitions are
// immutable after registration.
package catalog

import (
	"fmt"
	"sort"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query"
)

// Catalog maps query names to their definitions.
type Catalog struct {
	defs map[string]query.Definition
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{defs: make(map[string]query.Definition)}
}

// Register adds a definition. A name collision is an error.
func (c *Catalog) Register(def query.Definition) error {
	if _, exists := c.defs[def.Name()]; exists {
		return fmt.Errorf("query %s already registered", def.Name())
	}
	c.defs[def.Name()] = def
	return nil
}

// Get returns the definition for a name, or ErrUnknownQuery.
func (c *Catalog) Get(name string) (query.Definition, error) {
	def, ok := c.defs[name]
	if !ok {
		return query.Definition{}, fmt.Errorf("%w: %s", domain.ErrUnknownQuery, name)
	}
	return def, nil
}

// Names returns all registered query names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBuiltin creates a catalog holding the fixed built-in definitions.
// Registration failures here are programming errors.
func NewBuiltin() *Catalog {
	c := New()
	for _, def := range builtinDefinitions() {
		if err := c.Register(def); err != nil {
			panic(err)
		}
	}
	return c
}
