package progs

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manifest is a textual description of a progs image's definitions, used by
// tooling and tests that have no compiled progs at hand.
type Manifest struct {
	// Builtins maps builtin names to the numbers progs call them by.
	Builtins map[string]int32 `yaml:"builtins,omitempty"`

	// Globals lists global definitions. Struct members use "container.member".
	Globals []ManifestDef `yaml:"globals"`

	// Fields lists entity field definitions; Offset is the field id.
	Fields []ManifestDef `yaml:"fields"`

	// Functions lists function names in function-table order, starting at 1.
	Functions []string `yaml:"functions,omitempty"`
}

// ManifestDef is one definition entry.
type ManifestDef struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Offset uint32 `yaml:"offset"`
	Span   uint32 `yaml:"span,omitempty"`
	Saved  bool   `yaml:"saved,omitempty"`
}

// LoadManifest reads and parses a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Definitions converts the manifest entries into global and field definitions.
func (m *Manifest) Definitions() (globals, fields []Definition, err error) {
	globals, err = convertDefs(m.Globals)
	if err != nil {
		return nil, nil, fmt.Errorf("globals: %w", err)
	}
	fields, err = convertDefs(m.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("fields: %w", err)
	}
	return globals, fields, nil
}

// FunctionRef returns the function-table index of a named function.
func (m *Manifest) FunctionRef(name string) (FuncRef, bool) {
	for i, fn := range m.Functions {
		if fn == name {
			return FuncRef(i + 1), true
		}
	}
	return 0, false
}

// BuiltinNames returns the declared builtin names sorted by number.
func (m *Manifest) BuiltinNames() []string {
	names := make([]string, 0, len(m.Builtins))
	for name := range m.Builtins {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.Builtins[names[i]] < m.Builtins[names[j]]
	})
	return names
}

func convertDefs(entries []ManifestDef) ([]Definition, error) {
	defs := make([]Definition, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("definition at offset %d has no name", e.Offset)
		}
		t, err := ParseType(e.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		if e.Saved {
			t |= TypeGlobal
		}
		defs = append(defs, Definition{
			Name:   e.Name,
			Type:   t,
			Offset: e.Offset,
			Span:   e.Span,
		})
	}
	return defs, nil
}
