package codec

import (
	"errors"
	"math"
	"testing"

	qcbridge "github.com/wippyai/qcvm-bridge"
	qcerrors "github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	layout := progs.NewLayout(64, 8, 8)
	mem := qcbridge.NewSliceMemory(layout.TotalSlots())
	ents, err := progs.NewEntities(mem, layout, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ents.SetNum(4); err != nil {
		t.Fatal(err)
	}
	return New(mem, intern.NewTable(), ents)
}

func TestCodec_VectorRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	vectors := []Vec3{
		{0, 0, 0},
		{1.5, -2.25, 3.125},
		{math.MaxFloat32, -math.SmallestNonzeroFloat32, 0.1},
		{float32(math.Inf(1)), float32(math.Inf(-1)), -0},
	}
	for _, want := range vectors {
		for _, addr := range []uint32{c.Global(progs.Parm(2)), c.Global(40), c.Field(2, 3)} {
			if err := c.SetVector(addr, want); err != nil {
				t.Fatalf("SetVector failed: %v", err)
			}
			got, err := c.Vector(addr)
			if err != nil {
				t.Fatalf("Vector failed: %v", err)
			}
			for i := range want {
				if math.Float32bits(got[i]) != math.Float32bits(want[i]) {
					t.Errorf("component %d: got %v, want %v", i, got[i], want[i])
				}
			}
		}
	}
}

func TestCodec_Scalars(t *testing.T) {
	c := newTestCodec(t)
	addr := c.Global(40)

	if err := c.SetFloat(addr, 2.5); err != nil {
		t.Fatal(err)
	}
	if f, _ := c.Float(addr); f != 2.5 {
		t.Errorf("Float = %v", f)
	}
	if err := c.SetInt(addr, -7); err != nil {
		t.Fatal(err)
	}
	if i, _ := c.Int(addr); i != -7 {
		t.Errorf("Int = %v", i)
	}
	if err := c.Write(addr, true); err != nil {
		t.Fatal(err)
	}
	if i, _ := c.Int(addr); i != 1 {
		t.Errorf("bool write = %v", i)
	}
	if err := c.Write(addr, progs.FuncRef(9)); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.Read(addr, progs.TypeFunction); v != progs.FuncRef(9) {
		t.Errorf("function read = %v", v)
	}
	if err := c.Write(addr, struct{}{}); qcerrors.KindOf(err) != qcerrors.KindTypeMismatch {
		t.Errorf("unsupported write: %v", err)
	}
}

func TestCodec_EntityRange(t *testing.T) {
	c := newTestCodec(t)
	addr := c.Global(40)

	for _, ref := range []progs.EntityRef{progs.EntityWorld, 3} {
		if err := c.SetEntity(addr, ref); err != nil {
			t.Fatal(err)
		}
		got, err := c.Entity(addr)
		if err != nil || got != ref {
			t.Errorf("Entity = %d, %v; want %d", got, err, ref)
		}
	}

	for _, bad := range []progs.EntityRef{4, 7, progs.EntityInvalid} {
		if err := c.SetEntity(addr, bad); err != nil {
			t.Fatal(err)
		}
		_, err := c.Entity(addr)
		if !errors.Is(err, &qcerrors.Error{Phase: qcerrors.PhaseCodec, Kind: qcerrors.KindOutOfRange}) {
			t.Errorf("Entity(%d) err = %v, want out of range", bad, err)
		}
	}
}

func TestCodec_ReadDefTypeMismatch(t *testing.T) {
	c := newTestCodec(t)
	def := progs.Definition{Name: "time", Type: progs.TypeFloat | progs.TypeGlobal, Offset: 40}

	if _, err := c.ReadDef(c.Global(def.Offset), def, progs.TypeFloat); err != nil {
		t.Errorf("matching read failed: %v", err)
	}
	_, err := c.ReadDef(c.Global(def.Offset), def, progs.TypeInteger)
	if qcerrors.KindOf(err) != qcerrors.KindTypeMismatch {
		t.Errorf("float read as int: err = %v", err)
	}
}

func TestCodec_StringPersistence(t *testing.T) {
	c := newTestCodec(t)
	strs := c.Strings()
	h := strs.StoreOrFind("spawn")

	// Frame slots are not owners.
	if err := c.SetString(c.Global(progs.GlobalReturn), h); err != nil {
		t.Fatal(err)
	}
	if strs.RefCount(h) != 0 {
		t.Errorf("frame write changed refcount to %d", strs.RefCount(h))
	}

	// Globals and fields are.
	if err := c.SetString(c.Global(40), h); err != nil {
		t.Fatal(err)
	}
	if err := c.SetString(c.Field(2, 1), h); err != nil {
		t.Fatal(err)
	}
	if strs.RefCount(h) != 2 {
		t.Errorf("refcount = %d, want 2", strs.RefCount(h))
	}

	s, err := c.Read(c.Field(2, 1), progs.TypeString)
	if err != nil || s.(String).Text != "spawn" {
		t.Errorf("Read string = %v, %v", s, err)
	}
	if strs.RefCount(h) != 2 {
		t.Error("reads must not change refcounts")
	}

	// Overwriting a persistent string slot with a float releases it.
	if err := c.SetFloat(c.Global(40), 1); err != nil {
		t.Fatal(err)
	}
	if strs.RefCount(h) != 1 {
		t.Errorf("refcount after float overwrite = %d, want 1", strs.RefCount(h))
	}
	// A vector spanning the field releases it too.
	if err := c.SetVector(c.Field(2, 0), Vec3{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if strs.Live(h) {
		t.Error("string should be freed once no slot owns it")
	}
}

func TestCodec_SetText(t *testing.T) {
	c := newTestCodec(t)
	if err := c.SetText(c.Global(41), "hello"); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.String(c.Global(41)); s != "hello" {
		t.Errorf("String = %q", s)
	}
	if err := c.Write(c.Global(42), "world"); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.String(c.Global(42)); s != "world" {
		t.Errorf("String = %q", s)
	}
}

func TestCodec_OutOfBounds(t *testing.T) {
	c := newTestCodec(t)
	beyond := c.Layout().TotalSlots() * qcbridge.SlotSize
	if _, err := c.Float(beyond); qcerrors.KindOf(err) != qcerrors.KindOutOfRange {
		t.Errorf("read past end: %v", err)
	}
	if err := c.SetInt(beyond, 1); qcerrors.KindOf(err) != qcerrors.KindOutOfRange {
		t.Errorf("write past end: %v", err)
	}
}
