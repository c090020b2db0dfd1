package progs

import "strings"

// Definition describes one named storage location. Offset is a global slot
// for globals and a field id (slot within the entity record) for fields.
// Definitions are immutable once loaded.
type Definition struct {
	Name   string
	Type   Type
	Offset uint32
	Span   uint32
}

// Slots returns the number of slots the definition covers.
func (d Definition) Slots() uint32 {
	if d.Span > 0 {
		return d.Span
	}
	return d.Type.Slots()
}

// Split returns the container and member of a "container.member" name.
// Bare names have an empty container.
func (d Definition) Split() (container, member string) {
	if c, m, ok := strings.Cut(d.Name, "."); ok {
		return c, m
	}
	return "", d.Name
}

// QualifiedName joins a container and member the way definitions are named.
func QualifiedName(container, member string) string {
	if container == "" {
		return member
	}
	return container + "." + member
}
