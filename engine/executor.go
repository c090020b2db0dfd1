package engine

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/vm"
)

// errAbort unwinds the guest after a fatal builtin error. The real error is
// latched on the executor.
var errAbort = stderrors.New("qcvm: guest aborted")

// Options configure a guest instance.
type Options struct {
	// Dispatcher services builtin calls. It can also be set later with
	// SetDispatcher.
	Dispatcher vm.BuiltinDispatcher

	// Memory names the exported memory holding VM storage. Defaults to
	// "memory".
	Memory string

	// Functions fixes the export table order. Empty means every exported
	// () -> () function sorted by name.
	Functions []string

	// StorageBase is the byte offset of VM storage in linear memory.
	StorageBase uint32
}

type function struct {
	exec *Executor
	name string
	ref  progs.FuncRef
}

func (f *function) Ref() progs.FuncRef { return f.ref }
func (f *function) Name() string       { return f.name }

// Executor runs one guest module. It implements vm.Executor.
type Executor struct {
	engine     *Engine
	module     api.Module
	memory     *WazeroMemory
	dispatcher vm.BuiltinDispatcher
	fatal      error
	byName     map[string]*function
	name       string
	funcs      []*function
	depth      int
	closed     bool
}

var _ vm.Executor = (*Executor)(nil)

// NewExecutor compiles and instantiates guest.
func (e *Engine) NewExecutor(ctx context.Context, guest []byte, opts Options) (*Executor, error) {
	compiled, err := e.runtime.CompileModule(ctx, guest)
	if err != nil {
		return nil, errors.Load("compile guest", err)
	}

	memName := opts.Memory
	if memName == "" {
		memName = DefaultMemory
	}
	if _, ok := compiled.ExportedMemories()[memName]; !ok {
		_ = compiled.Close(ctx)
		return nil, errors.Configuration(errors.PhaseLoad, []string{memName}, "guest does not export storage memory")
	}

	names, err := exportTable(compiled.ExportedFunctions(), opts.Functions)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	x := &Executor{
		engine:     e,
		dispatcher: opts.Dispatcher,
		name:       e.nextName(),
		byName:     make(map[string]*function, len(names)),
	}
	for i, name := range names {
		f := &function{exec: x, name: name, ref: progs.FuncRef(i + 1)}
		x.funcs = append(x.funcs, f)
		x.byName[name] = f
	}

	// Registered first: start functions may already call builtins.
	e.register(x)
	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(x.name).WithStartFunctions())
	if err != nil {
		e.unregister(x)
		_ = compiled.Close(ctx)
		return nil, errors.Load("instantiate guest", err)
	}
	x.module = mod
	x.memory = NewWazeroMemory(mod.ExportedMemory(memName), opts.StorageBase)

	Logger().Debug("guest instantiated",
		zap.String("module", x.name),
		zap.Int("functions", len(x.funcs)),
		zap.Uint32("memory", x.memory.Size()))
	return x, nil
}

// exportTable resolves the ordered list of callable exports.
func exportTable(defs map[string]api.FunctionDefinition, order []string) ([]string, error) {
	callable := func(d api.FunctionDefinition) bool {
		return len(d.ParamTypes()) == 0 && len(d.ResultTypes()) == 0
	}

	if len(order) > 0 {
		seen := make(map[string]bool, len(order))
		for _, name := range order {
			d, ok := defs[name]
			switch {
			case !ok:
				return nil, errors.Configuration(errors.PhaseLoad, []string{name}, "function is not exported by the guest")
			case !callable(d):
				return nil, errors.Configuration(errors.PhaseLoad, []string{name}, "exported function must take and return nothing")
			case seen[name]:
				return nil, errors.Configuration(errors.PhaseLoad, []string{name}, "function listed twice")
			}
			seen[name] = true
		}
		return append([]string(nil), order...), nil
	}

	names := make([]string, 0, len(defs))
	for name, d := range defs {
		if callable(d) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Memory returns the guest's VM storage.
func (x *Executor) Memory() *WazeroMemory {
	return x.memory
}

// SetDispatcher sets where builtin calls go.
func (x *Executor) SetDispatcher(d vm.BuiltinDispatcher) {
	x.dispatcher = d
}

// Functions returns the export table in reference order.
func (x *Executor) Functions() []vm.Function {
	out := make([]vm.Function, len(x.funcs))
	for i, f := range x.funcs {
		out[i] = f
	}
	return out
}

// FindFunction resolves a stored function reference.
func (x *Executor) FindFunction(ref progs.FuncRef) (vm.Function, error) {
	if ref <= 0 || int(ref) > len(x.funcs) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindNotFound).
			Value(int32(ref)).
			Detail("no function #%d (%d exported)", ref, len(x.funcs)).
			Build()
	}
	return x.funcs[ref-1], nil
}

// Lookup resolves a function by export name.
func (x *Executor) Lookup(name string) (vm.Function, bool) {
	f, ok := x.byName[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// Depth returns how many Execute calls are in progress.
func (x *Executor) Depth() int {
	return x.depth
}

// Execute runs fn to completion. A fatal builtin error raised anywhere under
// the outermost call is returned by every enclosing Execute.
func (x *Executor) Execute(ctx context.Context, fn vm.Function) error {
	f, ok := fn.(*function)
	if !ok || f.exec != x {
		return errors.InvalidInput(errors.PhaseRuntime, "function belongs to another executor")
	}
	if x.closed {
		return errors.NotInitialized(errors.PhaseRuntime, "executor")
	}

	if x.depth == 0 {
		x.fatal = nil
	}
	x.depth++
	defer func() { x.depth-- }()

	debugf("execute %s depth=%d", f.name, x.depth)
	_, err := x.module.ExportedFunction(f.name).Call(ctx)
	if x.fatal != nil {
		return x.fatal
	}
	if err != nil {
		return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(f.name).
			Detail("guest trapped").
			Cause(err).
			Build()
	}
	return nil
}

// dispatch runs one builtin on behalf of the guest. Fatal errors are latched
// and unwind the guest by panicking through wazero.
func (x *Executor) dispatch(ctx context.Context, num int32, argc int) {
	var err error
	if x.dispatcher == nil {
		err = errors.NotInitialized(errors.PhaseRuntime, "builtin dispatcher")
	} else {
		err = x.dispatcher.DispatchBuiltin(ctx, num, argc)
	}
	if err == nil {
		return
	}
	if !errors.IsFatal(err) {
		Logger().Warn("builtin failed", zap.Int32("num", num), zap.Error(err))
		return
	}
	if x.fatal == nil {
		x.fatal = err
	}
	panic(errAbort)
}

// Close releases the guest instance.
func (x *Executor) Close(ctx context.Context) error {
	if x.closed {
		return nil
	}
	x.closed = true
	x.engine.unregister(x)
	return x.module.Close(ctx)
}
