package progs

import (
	"fmt"
	"strings"
)

// Type is the tag attached to a definition. The tag, not the slot, decides
// how a slot's 32 bits are interpreted.
type Type uint16

const (
	TypeVoid Type = iota
	TypeString
	TypeFloat
	TypeVector
	TypeEntity
	TypeField
	TypeFunction
	TypePointer
	TypeInteger
	TypeStruct
)

// TypeGlobal marks definitions saved with the game state.
const TypeGlobal Type = 1 << 15

// Base strips flag bits.
func (t Type) Base() Type {
	return t &^ TypeGlobal
}

// Slots returns the storage width of a value of this type.
func (t Type) Slots() uint32 {
	if t.Base() == TypeVector {
		return 3
	}
	return 1
}

func (t Type) String() string {
	switch t.Base() {
	case TypeVoid:
		return "void"
	case TypeString:
		return "string"
	case TypeFloat:
		return "float"
	case TypeVector:
		return "vector"
	case TypeEntity:
		return "entity"
	case TypeField:
		return "field"
	case TypeFunction:
		return "function"
	case TypePointer:
		return "pointer"
	case TypeInteger:
		return "int"
	case TypeStruct:
		return "struct"
	default:
		return fmt.Sprintf("type(%d)", uint16(t.Base()))
	}
}

// ParseType maps a type name to its tag.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "void":
		return TypeVoid, nil
	case "string":
		return TypeString, nil
	case "float":
		return TypeFloat, nil
	case "vector":
		return TypeVector, nil
	case "entity":
		return TypeEntity, nil
	case "field":
		return TypeField, nil
	case "function":
		return TypeFunction, nil
	case "pointer":
		return TypePointer, nil
	case "int", "integer":
		return TypeInteger, nil
	case "struct":
		return TypeStruct, nil
	}
	return TypeVoid, fmt.Errorf("unknown type %q", name)
}

// FuncRef is a VM function value. 0 is the null function.
type FuncRef int32

// EntityRef is a VM entity index.
type EntityRef int32

const (
	// EntityWorld is entity 0, also the "no entity" value in fields.
	EntityWorld EntityRef = 0
	// EntityInvalid marks "no entity" in composite host responses.
	EntityInvalid EntityRef = -1
)
