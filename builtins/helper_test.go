package builtins

import (
	"context"
	"testing"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/host/hosttest"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/reflection"
	"github.com/wippyai/qcvm-bridge/resource"
)

type harness struct {
	t       *testing.T
	reg     *Registry
	env     *Env
	codec   *codec.Codec
	host    *hosttest.Fake
	numbers map[string]int32
}

var testGlobals = []progs.Definition{
	{Name: "weapon.ammo", Type: progs.TypeInteger, Offset: 40},
	{Name: "weapon.name", Type: progs.TypeString, Offset: 41},
}

var testFields = []progs.Definition{
	{Name: "number", Type: progs.TypeInteger, Offset: 0},
	{Name: "origin", Type: progs.TypeVector, Offset: 1},
	{Name: "classname", Type: progs.TypeString, Offset: 4},
	{Name: "health", Type: progs.TypeFloat, Offset: 5},
}

func newHarness(t *testing.T, extra ...Builtin) *harness {
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
	c := codec.New(mem, intern.NewTable(), ents)
	table, err := reflection.Build(testGlobals, testFields)
	if err != nil {
		t.Fatal(err)
	}
	fake := hosttest.New()
	env := NewEnv(c, reflection.NewParser(table, c, 0), fake, resource.NewTable())

	reg := NewRegistry()
	for _, install := range []func(*Registry) error{InstallGame, InstallVector, InstallGI} {
		if err := install(reg); err != nil {
			t.Fatalf("install: %v", err)
		}
	}
	for _, b := range extra {
		reg.MustRegister(b)
	}

	numbers := make(map[string]int32)
	for i, name := range reg.Names() {
		numbers[name] = int32(i + 1)
	}
	if err := reg.Bind(numbers); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return &harness{t: t, reg: reg, env: env, codec: c, host: fake, numbers: numbers}
}

// call writes args into the parameter slots and invokes the named builtin.
func (h *harness) call(name string, args ...any) error {
	h.t.Helper()
	for i, a := range args {
		if err := h.codec.Write(h.codec.Global(progs.Parm(i)), a); err != nil {
			h.t.Fatalf("%s: write arg %d: %v", name, i, err)
		}
	}
	num, ok := h.numbers[name]
	if !ok {
		h.t.Fatalf("builtin %s not registered", name)
	}
	return h.reg.Call(context.Background(), h.env, num, len(args))
}

func (h *harness) mustCall(name string, args ...any) {
	h.t.Helper()
	if err := h.call(name, args...); err != nil {
		h.t.Fatalf("%s: %v", name, err)
	}
}

func (h *harness) retInt() int32 {
	v, err := h.codec.Int(h.codec.Global(progs.GlobalReturn))
	if err != nil {
		h.t.Fatal(err)
	}
	return v
}

func (h *harness) retFloat() float32 {
	v, err := h.codec.Float(h.codec.Global(progs.GlobalReturn))
	if err != nil {
		h.t.Fatal(err)
	}
	return v
}

func (h *harness) retString() string {
	v, err := h.codec.String(h.codec.Global(progs.GlobalReturn))
	if err != nil {
		h.t.Fatal(err)
	}
	return v
}

func (h *harness) parmVector(n int) codec.Vec3 {
	v, err := h.codec.Vector(h.codec.Global(progs.Parm(n)))
	if err != nil {
		h.t.Fatal(err)
	}
	return v
}

func (h *harness) parmInt(n int) int32 {
	v, err := h.codec.Int(h.codec.Global(progs.Parm(n)))
	if err != nil {
		h.t.Fatal(err)
	}
	return v
}
