package progs

import "testing"

func TestType_BaseAndSlots(t *testing.T) {
	saved := TypeVector | TypeGlobal
	if saved.Base() != TypeVector {
		t.Errorf("Base() = %v", saved.Base())
	}
	if saved.Slots() != 3 {
		t.Errorf("vector Slots() = %d", saved.Slots())
	}
	if TypeFloat.Slots() != 1 {
		t.Errorf("float Slots() = %d", TypeFloat.Slots())
	}
	if saved.String() != "vector" {
		t.Errorf("String() = %q", saved.String())
	}
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"void", "string", "float", "vector", "entity", "field", "function", "pointer", "int", "integer", "struct"} {
		typ, err := ParseType(name)
		if err != nil {
			t.Errorf("ParseType(%q) failed: %v", name, err)
			continue
		}
		if name != "integer" && typ.String() != name {
			t.Errorf("ParseType(%q).String() = %q", name, typ.String())
		}
	}
	if _, err := ParseType("quaternion"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDefinition_Split(t *testing.T) {
	c, m := Definition{Name: "weapon.ammo"}.Split()
	if c != "weapon" || m != "ammo" {
		t.Errorf("Split = %q, %q", c, m)
	}
	c, m = Definition{Name: "health"}.Split()
	if c != "" || m != "health" {
		t.Errorf("Split bare = %q, %q", c, m)
	}
	if QualifiedName("weapon", "ammo") != "weapon.ammo" || QualifiedName("", "x") != "x" {
		t.Error("QualifiedName mismatch")
	}
	if (Definition{Type: TypeStruct, Span: 14}).Slots() != 14 {
		t.Error("Span should override type width")
	}
}
