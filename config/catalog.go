package config

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agoramesh/core"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the set of known scenarios and personas.
type Catalog struct {
	Scenarios []core.Scenario `yaml:"scenarios"`
	Personas  []core.Persona  `yaml:"personas"`
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = ParseCatalog(catalogYAML)
	})
	return builtin, builtinErr
}

// MustBuiltin is like Builtin but panics on a malformed embedded catalog.
func MustBuiltin() *Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultPersonas returns the built-in personas.
func DefaultPersonas() []core.Persona {
	return append([]core.Persona(nil), MustBuiltin().Personas...)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if seen[sc.ID] {
			return nil, &core.ConfigError{Field: "scenarios", Message: fmt.Sprintf("duplicate scenario %s", sc.ID)}
		}
		seen[sc.ID] = true
	}
	if len(c.Personas) == 0 {
		return nil, &core.ConfigError{Field: "personas", Message: "catalog has no personas"}
	}
	return &c, nil
}

// Scenario looks up a scenario by id.
func (c *Catalog) Scenario(id string) (core.Scenario, error) {
	for _, sc := range c.Scenarios {
		if sc.ID == id {
			return sc, nil
		}
	}
	return core.Scenario{}, &core.ConfigError{Field: "scenario", Message: fmt.Sprintf("unknown scenario %q", id)}
}
