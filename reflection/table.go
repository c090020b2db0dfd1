package reflection

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/progs"
)

type space uint8

const (
	spaceGlobal space = iota
	spaceField
)

type node struct {
	next  *node
	def   progs.Definition
	space space
}

// Table maps qualified names and field ids to definitions.
type Table struct {
	buckets []*node
	fields  []*progs.Definition
	globals []progs.Definition
	nfields int
}

func hashName(name string, buckets int) int {
	return int(xxh3.HashString(name) % uint64(buckets))
}

// Build indexes globals by name and fields by name and id.
func Build(globals, fields []progs.Definition) (*Table, error) {
	size := len(globals) + len(fields)
	if size == 0 {
		size = 1
	}
	t := &Table{
		buckets: make([]*node, size),
		globals: append([]progs.Definition(nil), globals...),
		nfields: len(fields),
	}

	for _, def := range globals {
		if err := t.insert(def, spaceGlobal); err != nil {
			return nil, err
		}
	}

	var maxID uint32
	for _, def := range fields {
		if end := def.Offset + 1; end > maxID {
			maxID = end
		}
	}
	t.fields = make([]*progs.Definition, maxID)
	for i := range fields {
		def := fields[i]
		if t.fields[def.Offset] != nil {
			return nil, errors.Configuration(errors.PhaseLoad, []string{def.Name},
				fmt.Sprintf("field id %d already used by %s", def.Offset, t.fields[def.Offset].Name))
		}
		t.fields[def.Offset] = &def
		if err := t.insert(def, spaceField); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) insert(def progs.Definition, sp space) error {
	if def.Name == "" {
		return nil
	}
	if _, ok := t.find(def.Name, sp); ok {
		return errors.Configuration(errors.PhaseLoad, []string{def.Name}, "duplicate definition name")
	}
	b := hashName(def.Name, len(t.buckets))
	t.buckets[b] = &node{def: def, space: sp, next: t.buckets[b]}
	return nil
}

func (t *Table) find(name string, sp space) (progs.Definition, bool) {
	for n := t.buckets[hashName(name, len(t.buckets))]; n != nil; n = n.next {
		if n.space == sp && n.def.Name == name {
			return n.def, true
		}
	}
	return progs.Definition{}, false
}

// Lookup finds a global by qualified name. A miss is a normal result.
func (t *Table) Lookup(name string) (progs.Definition, bool) {
	return t.find(name, spaceGlobal)
}

// LookupMember finds the global "container.member".
func (t *Table) LookupMember(container, member string) (progs.Definition, bool) {
	return t.Lookup(progs.QualifiedName(container, member))
}

// LookupField finds a field by name.
func (t *Table) LookupField(name string) (progs.Definition, bool) {
	return t.find(name, spaceField)
}

// Field finds a field by id.
func (t *Table) Field(id int32) (progs.Definition, error) {
	if id < 0 || int(id) >= len(t.fields) || t.fields[id] == nil {
		return progs.Definition{}, errors.UnknownField(errors.PhaseReflect, id)
	}
	return *t.fields[id], nil
}

// Globals returns the global definitions in load order.
func (t *Table) Globals() []progs.Definition {
	return append([]progs.Definition(nil), t.globals...)
}

// Fields returns the field definitions ordered by id.
func (t *Table) Fields() []progs.Definition {
	out := make([]progs.Definition, 0, t.nfields)
	for _, d := range t.fields {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// Buckets reports the bucket count and the longest chain.
func (t *Table) Buckets() (count, longest int) {
	for _, n := range t.buckets {
		chain := 0
		for ; n != nil; n = n.next {
			chain++
		}
		longest = max(longest, chain)
	}
	return len(t.buckets), longest
}
