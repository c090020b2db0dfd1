package intern

import (
	"errors"
	"testing"

	qcbridge "github.com/wippyai/qcvm-bridge"
	qcerrors "github.com/wippyai/qcvm-bridge/errors"
)

func slotAddr(i uint32) uint32 { return i * qcbridge.SlotSize }

func TestTable_StoreOrFind(t *testing.T) {
	tbl := NewTable()

	a := tbl.StoreOrFind("hello")
	b := tbl.StoreOrFind("hello")
	c := tbl.StoreOrFind("world")

	if !a.IsDynamic() {
		t.Fatal("expected dynamic handle")
	}
	if a != b {
		t.Error("equal text should share a handle")
	}
	if a == c {
		t.Error("different text should not share a handle")
	}
	if tbl.RefCount(a) != 0 {
		t.Errorf("new handle refcount = %d, want 0", tbl.RefCount(a))
	}
	if tbl.StoreOrFind("") != Empty {
		t.Error("empty text should map to Empty")
	}

	text, err := tbl.Get(a.Raw())
	if err != nil || text != "hello" {
		t.Errorf("Get = %q, %v", text, err)
	}
}

func TestTable_StaticFollowsPointer(t *testing.T) {
	tbl := NewTable()
	value := "1"
	h := tbl.StoreStatic(&value)
	if !h.IsStatic() {
		t.Fatal("expected static handle")
	}

	value = "2"
	text, err := tbl.Get(h.Raw())
	if err != nil || text != "2" {
		t.Errorf("Get = %q, %v; want updated pointee", text, err)
	}

	mem := qcbridge.NewSliceMemory(4)
	if err := tbl.Assign(mem, 0, h); err != nil {
		t.Fatal(err)
	}
	if tbl.Owners() != 0 {
		t.Error("static handles must not be owned")
	}
	if tbl.StoreStatic(nil) != Empty {
		t.Error("nil static should be Empty")
	}
}

func TestTable_AssignReleaseAcrossSlots(t *testing.T) {
	for _, n := range []uint32{1, 2, 5, 16} {
		mem := qcbridge.NewSliceMemory(n)
		tbl := NewTable()

		var freed []string
		tbl.OnFree(func(_ Handle, text string) { freed = append(freed, text) })

		h := tbl.StoreOrFind("dynamic")
		for i := uint32(0); i < n; i++ {
			if err := tbl.Assign(mem, slotAddr(i), h); err != nil {
				t.Fatalf("Assign slot %d failed: %v", i, err)
			}
		}
		if got := tbl.RefCount(h); got != int32(n) {
			t.Fatalf("n=%d: refcount = %d", n, got)
		}

		for i := uint32(0); i < n; i++ {
			if len(freed) != 0 {
				t.Fatalf("n=%d: freed before last release", n)
			}
			tbl.Release(slotAddr(i))
		}

		if tbl.RefCount(h) != 0 {
			t.Errorf("n=%d: refcount after release = %d", n, tbl.RefCount(h))
		}
		if len(freed) != 1 || freed[0] != "dynamic" {
			t.Errorf("n=%d: freed = %v, want exactly once", n, freed)
		}
		if tbl.Live(h) {
			t.Errorf("n=%d: handle still live", n)
		}

		// A second release of the same slots must not free again.
		tbl.ReleaseRange(0, n)
		if tbl.Frees() != 1 {
			t.Errorf("n=%d: frees = %d after double release", n, tbl.Frees())
		}
	}
}

func TestTable_UseAfterFree(t *testing.T) {
	mem := qcbridge.NewSliceMemory(2)
	tbl := NewTable()
	h := tbl.StoreOrFind("gone")
	if err := tbl.Assign(mem, 0, h); err != nil {
		t.Fatal(err)
	}
	tbl.Release(0)

	_, err := tbl.Get(h.Raw())
	if !errors.Is(err, &qcerrors.Error{Phase: qcerrors.PhaseIntern, Kind: qcerrors.KindOutOfRange}) {
		t.Errorf("Get of freed handle: %v", err)
	}
	if err := tbl.Assign(mem, 4, h); err == nil {
		t.Error("expected Assign of freed handle to fail")
	}

	again := tbl.StoreOrFind("gone")
	if again == h {
		t.Error("re-interned text must get a fresh handle")
	}
}

func TestTable_OverwriteReleasesPrevious(t *testing.T) {
	mem := qcbridge.NewSliceMemory(2)
	tbl := NewTable()

	a := tbl.StoreOrFind("a")
	b := tbl.StoreOrFind("b")
	if err := tbl.Assign(mem, 0, a); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Assign(mem, 0, b); err != nil {
		t.Fatal(err)
	}

	if tbl.Live(a) {
		t.Error("overwritten string should be freed")
	}
	if tbl.RefCount(b) != 1 {
		t.Errorf("refcount(b) = %d", tbl.RefCount(b))
	}
	raw, _ := mem.ReadU32(0)
	if int32(raw) != b.Raw() {
		t.Errorf("slot holds %d, want %d", int32(raw), b.Raw())
	}

	// Reassigning the same handle keeps the count stable.
	if err := tbl.Assign(mem, 0, b); err != nil {
		t.Fatal(err)
	}
	if tbl.RefCount(b) != 1 || !tbl.Live(b) {
		t.Errorf("self-assign changed count to %d", tbl.RefCount(b))
	}

	if err := tbl.Assign(mem, 0, Empty); err != nil {
		t.Fatal(err)
	}
	if tbl.Live(b) {
		t.Error("assigning empty should release b")
	}
}

func slots(n uint32) []uint32 {
	addrs := make([]uint32, n)
	for i := range addrs {
		addrs[i] = slotAddr(uint32(i))
	}
	return addrs
}

func TestTable_Reconcile(t *testing.T) {
	mem := qcbridge.NewSliceMemory(3)
	tbl := NewTable()
	h := tbl.StoreOrFind("x")
	for i := uint32(0); i < 3; i++ {
		if err := tbl.Assign(mem, slotAddr(i), h); err != nil {
			t.Fatal(err)
		}
	}

	// VM stores a float over slot 1 without telling the table.
	if err := mem.WriteU32(slotAddr(1), 0x3f800000); err != nil {
		t.Fatal(err)
	}
	n, err := tbl.Reconcile(mem, slots(3))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("changed = %d, want 1", n)
	}
	if tbl.RefCount(h) != 2 {
		t.Errorf("refcount after reconcile = %d, want 2", tbl.RefCount(h))
	}
	if n, _ := tbl.Reconcile(mem, slots(3)); n != 0 {
		t.Errorf("second reconcile changed %d slots", n)
	}
}

func TestTable_ReconcileAdoptsCopies(t *testing.T) {
	mem := qcbridge.NewSliceMemory(3)
	tbl := NewTable()
	h := tbl.StoreOrFind("copy")

	// Raw copy with no owner recorded.
	if err := mem.WriteU32(slotAddr(2), uint32(h.Raw())); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Reconcile(mem, slots(3)); err != nil {
		t.Fatal(err)
	}
	if tbl.RefCount(h) != 1 || tbl.Owners() != 1 {
		t.Fatalf("refcount = %d owners = %d, want 1 and 1", tbl.RefCount(h), tbl.Owners())
	}
	if n := tbl.Collect(); n != 0 {
		t.Errorf("Collect freed %d adopted strings", n)
	}
}

func TestTable_ReconcileMovedString(t *testing.T) {
	mem := qcbridge.NewSliceMemory(2)
	tbl := NewTable()
	h := tbl.StoreOrFind("moved")
	if err := tbl.Assign(mem, slotAddr(0), h); err != nil {
		t.Fatal(err)
	}

	// VM copies slot 0 to slot 1, then overwrites slot 0.
	if err := mem.WriteU32(slotAddr(1), uint32(h.Raw())); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteU32(slotAddr(0), 0); err != nil {
		t.Fatal(err)
	}
	n, err := tbl.Reconcile(mem, slots(2))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("changed = %d, want 2", n)
	}
	if !tbl.Live(h) || tbl.RefCount(h) != 1 {
		t.Fatalf("live = %v refcount = %d, want true and 1", tbl.Live(h), tbl.RefCount(h))
	}
	if tbl.Frees() != 0 {
		t.Errorf("frees = %d, want 0", tbl.Frees())
	}

	tbl.Release(slotAddr(1))
	if tbl.Live(h) {
		t.Error("releasing the adopted slot should free the text")
	}
}

func TestTable_ReconcileIgnoresDeadHandles(t *testing.T) {
	mem := qcbridge.NewSliceMemory(1)
	tbl := NewTable()
	dead := int32(-7)
	if err := mem.WriteU32(0, uint32(dead)); err != nil {
		t.Fatal(err)
	}
	n, err := tbl.Reconcile(mem, slots(1))
	if err != nil || n != 0 {
		t.Fatalf("Reconcile = %d, %v", n, err)
	}
	if _, err := tbl.Reconcile(mem, []uint32{64}); err == nil {
		t.Error("reconcile past memory should fail")
	}
}

func TestTable_Collect(t *testing.T) {
	mem := qcbridge.NewSliceMemory(1)
	tbl := NewTable()
	kept := tbl.StoreOrFind("kept")
	tbl.StoreOrFind("temp")
	if err := tbl.Assign(mem, 0, kept); err != nil {
		t.Fatal(err)
	}

	if n := tbl.Collect(); n != 1 {
		t.Errorf("Collect freed %d, want 1", n)
	}
	if tbl.Len() != 1 || !tbl.Live(kept) {
		t.Error("owned string must survive Collect")
	}
}

func TestTable_HandleValidation(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Handle(5); err == nil {
		t.Error("expected error for unknown static")
	}
	if _, err := tbl.Handle(-5); err == nil {
		t.Error("expected error for unknown dynamic")
	}
	h, err := tbl.Handle(0)
	if err != nil || !h.IsEmpty() {
		t.Error("raw 0 must be the empty string")
	}
	lit := tbl.Literal("const")
	if got, _ := tbl.Get(lit.Raw()); got != "const" {
		t.Errorf("Literal text = %q", got)
	}
}
