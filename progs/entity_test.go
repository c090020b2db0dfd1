package progs

import (
	"testing"

	qcbridge "github.com/wippyai/qcvm-bridge"
	qcerrors "github.com/wippyai/qcvm-bridge/errors"
)

type recordingReleaser struct {
	calls [][2]uint32
}

func (r *recordingReleaser) ReleaseRange(addr, span uint32) {
	r.calls = append(r.calls, [2]uint32{addr, span})
}

func newTestEntities(t *testing.T, maxClients int32) (*Entities, *qcbridge.SliceMemory) {
	t.Helper()
	layout := NewLayout(32, 8, 16)
	mem := qcbridge.NewSliceMemory(layout.TotalSlots())
	ents, err := NewEntities(mem, layout, maxClients)
	if err != nil {
		t.Fatalf("NewEntities failed: %v", err)
	}
	return ents, mem
}

func TestEntities_StampsIndices(t *testing.T) {
	ents, _ := newTestEntities(t, 2)
	for i := int32(0); i < ents.Max(); i++ {
		n, err := ents.Number(EntityRef(i))
		if err != nil {
			t.Fatalf("Number(%d) failed: %v", i, err)
		}
		if n != EntityRef(i) {
			t.Errorf("entity %d slot 0 = %d", i, n)
		}
	}
}

func TestEntities_ClearPreservesIndex(t *testing.T) {
	ents, mem := newTestEntities(t, 2)
	if err := ents.SetNum(ents.Max()); err != nil {
		t.Fatalf("SetNum failed: %v", err)
	}
	layout := ents.Layout()

	for i := int32(0); i < ents.Num(); i++ {
		ref := EntityRef(i)
		for f := uint32(1); f < layout.EntityFields; f++ {
			if err := mem.WriteU32(layout.FieldAddr(ref, f), 0xdeadbeef); err != nil {
				t.Fatal(err)
			}
		}

		rel := &recordingReleaser{}
		if err := ents.Clear(ref, rel); err != nil {
			t.Fatalf("Clear(%d) failed: %v", i, err)
		}

		n, _ := ents.Number(ref)
		if n != ref {
			t.Errorf("after clear entity %d has index %d", i, n)
		}
		for f := uint32(1); f < layout.EntityFields; f++ {
			v, _ := mem.ReadU32(layout.FieldAddr(ref, f))
			if v != 0 {
				t.Errorf("entity %d field %d = %#x after clear", i, f, v)
			}
		}
		if len(rel.calls) != 1 || rel.calls[0] != [2]uint32{layout.EntityAddr(ref), layout.EntityFields} {
			t.Errorf("unexpected release calls: %v", rel.calls)
		}
	}
}

func TestEntities_ClearReattachesClients(t *testing.T) {
	ents, _ := newTestEntities(t, 2)
	type client struct{ name string }
	a, b := &client{"a"}, &client{"b"}
	if err := ents.SetClients([]any{a, b}); err != nil {
		t.Fatalf("SetClients failed: %v", err)
	}

	if ents.Client(1) != a || ents.Client(2) != b {
		t.Fatal("clients not attached")
	}

	for _, ref := range []EntityRef{1, 2, 3} {
		if err := ents.Clear(ref, nil); err != nil {
			t.Fatalf("Clear(%d) failed: %v", ref, err)
		}
	}
	if ents.Client(1) != a || ents.Client(2) != b {
		t.Error("clients not re-attached after clear")
	}
	if ents.Client(3) != nil {
		t.Error("non-client entity should have no client data")
	}
	if ents.Client(0) != nil {
		t.Error("world should have no client data")
	}
}

func TestEntities_Valid(t *testing.T) {
	ents, _ := newTestEntities(t, 1)
	if err := ents.SetNum(4); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ref   EntityRef
		valid bool
	}{
		{EntityWorld, true},
		{3, true},
		{4, false},
		{EntityInvalid, false},
		{100, false},
	}
	for _, tt := range tests {
		if got := ents.Valid(tt.ref); got != tt.valid {
			t.Errorf("Valid(%d) = %v, want %v", tt.ref, got, tt.valid)
		}
	}

	if err := ents.SetNum(0); qcerrors.KindOf(err) != qcerrors.KindOutOfRange {
		t.Errorf("SetNum(0) = %v, want out_of_range", err)
	}
	if err := ents.SetNum(ents.Max() + 1); qcerrors.KindOf(err) != qcerrors.KindOutOfRange {
		t.Errorf("SetNum beyond max = %v, want out_of_range", err)
	}
}

func TestEntities_ClearOutOfRange(t *testing.T) {
	ents, _ := newTestEntities(t, 1)
	for _, ref := range []EntityRef{EntityRef(ents.Max()), EntityInvalid} {
		err := ents.Clear(ref, nil)
		e, ok := err.(*qcerrors.Error)
		if !ok || e.Kind != qcerrors.KindOutOfRange || e.Phase != qcerrors.PhaseBuiltin {
			t.Errorf("Clear(%d) = %v, want builtin out_of_range", ref, err)
		}
	}
}

func TestNewEntities_TooManyClients(t *testing.T) {
	layout := NewLayout(32, 4, 4)
	mem := qcbridge.NewSliceMemory(layout.TotalSlots())
	if _, err := NewEntities(mem, layout, 4); err == nil {
		t.Error("expected error when clients fill every record")
	}
}
