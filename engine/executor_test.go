package engine

import (
	"context"
	"testing"

	"github.com/wippyai/qcvm-bridge/engine/enginetest"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/vm"
)

type recorded struct {
	num  int32
	argc int
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	return e
}

func mustExecutor(t *testing.T, e *Engine, guest []byte, opts Options) *Executor {
	t.Helper()
	x, err := e.NewExecutor(context.Background(), guest, opts)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	return x
}

func mustFunc(t *testing.T, x *Executor, name string) vm.Function {
	t.Helper()
	f, ok := x.Lookup(name)
	if !ok {
		t.Fatalf("function %q not exported", name)
	}
	return f
}

func readSlot(t *testing.T, x *Executor, addr uint32) uint32 {
	t.Helper()
	v, err := x.Memory().ReadU32(addr)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNewExecutor_MemoryOnly(t *testing.T) {
	e := newEngine(t)
	x := mustExecutor(t, e, enginetest.MemoryOnly, Options{})

	if got := x.Memory().Size(); got != 65536 {
		t.Errorf("memory size = %d, want 65536", got)
	}
	if n := len(x.Functions()); n != 0 {
		t.Errorf("functions = %d", n)
	}
	if _, err := x.FindFunction(1); errors.KindOf(err) != errors.KindNotFound {
		t.Errorf("FindFunction(1) = %v", err)
	}
	if _, err := x.FindFunction(0); err == nil {
		t.Error("null function must not resolve")
	}
}

func TestNewExecutor_Errors(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{Name: "a"}, enginetest.Func{Name: "b"})

	tests := []struct {
		opts Options
		name string
		kind errors.Kind
	}{
		{Options{Memory: "heap"}, "missing memory", errors.KindConfiguration},
		{Options{Functions: []string{"a", "nope"}}, "unknown function", errors.KindConfiguration},
		{Options{Functions: []string{"a", "a"}}, "duplicate function", errors.KindConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.NewExecutor(context.Background(), guest, tc.opts)
			if errors.KindOf(err) != tc.kind {
				t.Errorf("got %v, want %s", err, tc.kind)
			}
		})
	}

	if _, err := e.NewExecutor(context.Background(), []byte("not wasm"), Options{}); errors.KindOf(err) != errors.KindConfiguration {
		t.Errorf("bad module: %v", err)
	}
}

func TestExportTableOrder(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{Name: "think"}, enginetest.Func{Name: "main"}, enginetest.Func{Name: "touch"})

	sorted := mustExecutor(t, e, guest, Options{})
	var names []string
	for _, f := range sorted.Functions() {
		names = append(names, f.Name())
	}
	if len(names) != 3 || names[0] != "main" || names[1] != "think" || names[2] != "touch" {
		t.Errorf("default order = %v", names)
	}

	fixed := mustExecutor(t, e, guest, Options{Functions: []string{"touch", "think"}})
	f, err := fixed.FindFunction(1)
	if err != nil || f.Name() != "touch" {
		t.Errorf("ref 1 = %v, %v", f, err)
	}
	if _, ok := fixed.Lookup("main"); ok {
		t.Error("main is not in the fixed table")
	}
	if f, _ := fixed.FindFunction(2); f.Ref() != 2 {
		t.Errorf("ref = %d", f.Ref())
	}
}

func TestExecute_DispatchesBuiltins(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{
		Name: "think",
		Code: enginetest.Body(enginetest.CallBuiltin(7, 2), enginetest.CallBuiltin(3, 0), enginetest.Store(64, 99)),
	})

	var calls []recorded
	x := mustExecutor(t, e, guest, Options{
		Dispatcher: vm.DispatcherFunc(func(_ context.Context, num int32, argc int) error {
			calls = append(calls, recorded{num, argc})
			return nil
		}),
	})

	if err := x.Execute(context.Background(), mustFunc(t, x, "think")); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(calls) != 2 || calls[0] != (recorded{7, 2}) || calls[1] != (recorded{3, 0}) {
		t.Errorf("calls = %v", calls)
	}
	if v := readSlot(t, x, 64); v != 99 {
		t.Errorf("slot = %d", v)
	}
}

func TestExecute_FatalLatched(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{
		Name: "think",
		Code: enginetest.Body(enginetest.CallBuiltin(1, 0), enginetest.Store(64, 1), enginetest.CallBuiltin(2, 0), enginetest.Store(68, 1)),
	})

	x := mustExecutor(t, e, guest, Options{
		Dispatcher: vm.DispatcherFunc(func(_ context.Context, num int32, _ int) error {
			switch num {
			case 1:
				return errors.UnknownDefinition(errors.PhaseReflect, "frags")
			case 2:
				return errors.OutOfRange(errors.PhaseBuiltin, []string{"itoe"}, 900, 64)
			}
			return nil
		}),
	})

	err := x.Execute(context.Background(), mustFunc(t, x, "think"))
	if errors.KindOf(err) != errors.KindOutOfRange {
		t.Fatalf("got %v, want the latched out_of_range error", err)
	}
	if v := readSlot(t, x, 64); v != 1 {
		t.Error("non-fatal error must not abort the guest")
	}
	if v := readSlot(t, x, 68); v != 0 {
		t.Error("fatal error must abort the guest")
	}
	if x.Depth() != 0 {
		t.Errorf("depth = %d", x.Depth())
	}
}

func TestExecute_NoDispatcher(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{Name: "think", Code: enginetest.CallBuiltin(1, 0)})
	x := mustExecutor(t, e, guest, Options{})

	err := x.Execute(context.Background(), mustFunc(t, x, "think"))
	if errors.KindOf(err) != errors.KindNotInitialized {
		t.Errorf("got %v", err)
	}
}

func TestExecute_Trap(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{Name: "crash", Code: enginetest.Unreachable()})
	x := mustExecutor(t, e, guest, Options{})

	err := x.Execute(context.Background(), mustFunc(t, x, "crash"))
	qerr, ok := err.(*errors.Error)
	if !ok || qerr.Phase != errors.PhaseRuntime {
		t.Fatalf("got %v", err)
	}
	if qerr.Path[0] != "crash" {
		t.Errorf("path = %v", qerr.Path)
	}
}

func TestExecute_Nested(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(
		enginetest.Func{Name: "outer", Code: enginetest.Body(enginetest.CallBuiltin(1, 0), enginetest.Store(64, 1))},
		enginetest.Func{Name: "callback", Code: enginetest.Store(68, 2)},
		enginetest.Func{Name: "broken", Code: enginetest.CallBuiltin(2, 0)},
	)

	var x *Executor
	maxDepth := 0
	nested := "callback"
	x = mustExecutor(t, e, guest, Options{
		Dispatcher: vm.DispatcherFunc(func(ctx context.Context, num int32, _ int) error {
			maxDepth = max(maxDepth, x.Depth())
			switch num {
			case 1:
				f, _ := x.Lookup(nested)
				return x.Execute(ctx, f)
			case 2:
				return errors.InvalidInput(errors.PhaseBuiltin, "bad argument")
			}
			return nil
		}),
	})

	if err := x.Execute(context.Background(), mustFunc(t, x, "outer")); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if readSlot(t, x, 64) != 1 || readSlot(t, x, 68) != 2 {
		t.Error("nested call did not complete")
	}
	if maxDepth != 1 {
		t.Errorf("max depth in builtin = %d", maxDepth)
	}

	// A fatal error inside the nested call aborts the outer one too.
	nested = "broken"
	if err := x.Memory().WriteU32(64, 0); err != nil {
		t.Fatal(err)
	}
	err := x.Execute(context.Background(), mustFunc(t, x, "outer"))
	if errors.KindOf(err) != errors.KindInvalidInput {
		t.Fatalf("got %v", err)
	}
	if readSlot(t, x, 64) != 0 {
		t.Error("outer guest continued after nested fatal error")
	}

	// The latch is cleared for the next top-level call.
	nested = "callback"
	if err := x.Execute(context.Background(), mustFunc(t, x, "outer")); err != nil {
		t.Errorf("next call failed: %v", err)
	}
}

func TestExecute_ForeignFunction(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{Name: "main"})
	a := mustExecutor(t, e, guest, Options{})
	b := mustExecutor(t, e, guest, Options{})

	if err := b.Execute(context.Background(), mustFunc(t, a, "main")); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("got %v", err)
	}
}

func TestExecutor_Close(t *testing.T) {
	e := newEngine(t)
	x := mustExecutor(t, e, enginetest.Build(enginetest.Func{Name: "main"}), Options{})
	fn := mustFunc(t, x, "main")
	ctx := context.Background()

	if err := x.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := x.Close(ctx); err != nil {
		t.Error("second Close must be a no-op")
	}
	if err := x.Execute(ctx, fn); errors.KindOf(err) != errors.KindNotInitialized {
		t.Errorf("got %v", err)
	}
}

func TestExecutors_Isolated(t *testing.T) {
	e := newEngine(t)
	guest := enginetest.Build(enginetest.Func{Name: "main", Code: enginetest.CallBuiltin(5, 1)})

	var seen []string
	mk := func(tag string) *Executor {
		return mustExecutor(t, e, guest, Options{
			Dispatcher: vm.DispatcherFunc(func(context.Context, int32, int) error {
				seen = append(seen, tag)
				return nil
			}),
		})
	}
	a, b := mk("a"), mk("b")
	ctx := context.Background()
	if err := b.Execute(ctx, mustFunc(t, b, "main")); err != nil {
		t.Fatal(err)
	}
	if err := a.Execute(ctx, mustFunc(t, a, "main")); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "b" || seen[1] != "a" {
		t.Errorf("dispatch order = %v", seen)
	}
}
