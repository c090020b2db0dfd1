package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/builtins"
	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/config"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/reflection"
	"github.com/wippyai/qcvm-bridge/resource"
	"github.com/wippyai/qcvm-bridge/trampoline"
	"github.com/wippyai/qcvm-bridge/vm"
)

// Instance is one isolated bridge over a VM's storage. It implements
// vm.BuiltinDispatcher.
type Instance struct {
	cfg        *config.Config
	services   host.Services
	codec      *codec.Codec
	table      *reflection.Table
	parser     *reflection.Parser
	handles    *resource.Table
	env        *builtins.Env
	registry   *builtins.Registry
	trampoline *trampoline.Trampoline
	exec       vm.Executor
	manifest   *progs.Manifest
	closer     func(context.Context) error
}

var _ vm.BuiltinDispatcher = (*Instance)(nil)

// dispatcherSetter is implemented by executors that call back into the
// instance for builtins.
type dispatcherSetter interface {
	SetDispatcher(vm.BuiltinDispatcher)
}

// New builds an instance over mem. A nil cfg uses config.Default.
func New(cfg *config.Config, mem qcbridge.Memory, services host.Services, opts ...Option) (*Instance, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if services == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "host services")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	layout := cfg.Layout()
	if sizer, ok := mem.(qcbridge.MemorySizer); ok {
		need := uint64(layout.TotalSlots()) * qcbridge.SlotSize
		if uint64(sizer.Size()) < need {
			return nil, errors.Configuration(errors.PhaseRuntime, []string{"memory"},
				fmt.Sprintf("storage holds %d bytes, layout needs %d", sizer.Size(), need))
		}
	}

	ents, err := progs.NewEntities(mem, layout, cfg.Progs.MaxClients)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindConfiguration, err, "entity storage")
	}

	strs := intern.NewTable()
	strs.OnFree(func(h intern.Handle, text string) {
		Logger().Debug("string freed", zap.Int32("handle", h.Raw()), zap.Int("len", len(text)))
	})
	c := codec.New(mem, strs, ents)

	globals, fields := o.globals, o.fields
	numbers := o.numbers
	if o.manifest != nil {
		if globals == nil && fields == nil {
			globals, fields, err = o.manifest.Definitions()
			if err != nil {
				return nil, errors.Load("manifest definitions", err)
			}
		}
		if numbers == nil {
			numbers = o.manifest.Builtins
		}
	}
	table, err := reflection.Build(globals, fields)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		cfg:      cfg,
		services: services,
		codec:    c,
		table:    table,
		parser:   reflection.NewParser(table, c, cfg.Strings.MaxInfo),
		handles:  resource.NewTable(),
		registry: builtins.NewRegistry(),
		manifest: o.manifest,
	}
	inst.env = builtins.NewEnv(c, inst.parser, services, inst.handles)
	inst.trampoline = trampoline.New(inst.env)

	install := []Installer{
		builtins.InstallGame,
		builtins.InstallGI,
		builtins.InstallVector,
		func(r *builtins.Registry) error { return trampoline.Install(r, inst.trampoline) },
	}
	for _, fn := range append(install, o.installers...) {
		if err := fn(inst.registry); err != nil {
			return nil, err
		}
	}

	if len(numbers) > 0 {
		if err := inst.Bind(numbers); err != nil {
			return nil, err
		}
	}

	count, longest := table.Buckets()
	Logger().Debug("instance created",
		zap.Uint32("globals", layout.GlobalCount),
		zap.Uint32("fields", layout.EntityFields),
		zap.Uint32("max_entities", layout.MaxEntities),
		zap.Int("definitions", len(globals)+len(fields)),
		zap.Int("buckets", count),
		zap.Int("longest_bucket", longest))
	return inst, nil
}

// Attach sets the executor top-level calls and callbacks run on. Executors
// that accept a dispatcher are pointed back at the instance.
func (i *Instance) Attach(exec vm.Executor) {
	i.exec = exec
	i.trampoline.SetExecutor(exec)
	if ds, ok := exec.(dispatcherSetter); ok {
		ds.SetDispatcher(i)
	}
}

// Bind maps builtin names to the numbers progs call them by. Every declared
// name must have an implementation.
func (i *Instance) Bind(numbers map[string]int32) error {
	if err := i.registry.Bind(numbers); err != nil {
		return err
	}
	Logger().Debug("builtins bound", zap.Int("count", len(numbers)))
	return nil
}

// DispatchBuiltin runs builtin num with argc arguments already in the
// parameter slots.
func (i *Instance) DispatchBuiltin(ctx context.Context, num int32, argc int) error {
	return i.registry.Call(ctx, i.env, num, argc)
}

// Run executes a top-level function. A fatal error is reported to the host
// console and returned. Afterwards string slots are reconciled with what the
// VM stored in them and unowned dynamic strings are collected.
func (i *Instance) Run(ctx context.Context, ref progs.FuncRef) error {
	if i.exec == nil {
		return errors.NotInitialized(errors.PhaseRuntime, "executor")
	}
	fn, err := i.exec.FindFunction(ref)
	if err != nil {
		return err
	}
	return i.run(ctx, fn)
}

// RunNamed executes a top-level function by name, resolved through the
// manifest's function table or the executor's exports.
func (i *Instance) RunNamed(ctx context.Context, name string) error {
	if i.exec == nil {
		return errors.NotInitialized(errors.PhaseRuntime, "executor")
	}
	if i.manifest != nil {
		if ref, ok := i.manifest.FunctionRef(name); ok {
			return i.Run(ctx, ref)
		}
	}
	if l, ok := i.exec.(interface {
		Lookup(string) (vm.Function, bool)
	}); ok {
		if fn, ok := l.Lookup(name); ok {
			return i.run(ctx, fn)
		}
	}
	return errors.NotFound(errors.PhaseRuntime, "function", name)
}

func (i *Instance) run(ctx context.Context, fn vm.Function) error {
	err := i.exec.Execute(ctx, fn)
	if err != nil && errors.IsFatal(err) {
		i.services.Dprintf(fmt.Sprintf("%s: %v\n", fn.Name(), err))
		Logger().Error("progs call aborted",
			zap.String("function", fn.Name()),
			zap.Int32("ref", int32(fn.Ref())),
			zap.Error(err))
	}
	if i.cfg.Strings.CollectAfterRun {
		// Handles the VM copied with plain stores become owners first.
		if rerr := i.parser.Reconcile(); rerr != nil {
			Logger().Error("string reconcile failed", zap.Error(rerr))
			if err == nil {
				err = rerr
			}
			return err
		}
		if n := i.codec.Strings().Collect(); n > 0 {
			Logger().Debug("collected strings", zap.Int("count", n))
		}
	}
	return err
}

// Close releases the executor if the instance created it.
func (i *Instance) Close(ctx context.Context) error {
	err := i.handles.Close()
	if i.closer != nil {
		if cerr := i.closer(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

func (i *Instance) Config() *config.Config             { return i.cfg }
func (i *Instance) Codec() *codec.Codec                { return i.codec }
func (i *Instance) Strings() *intern.Table             { return i.codec.Strings() }
func (i *Instance) Entities() *progs.Entities          { return i.codec.Entities() }
func (i *Instance) Reflection() *reflection.Table      { return i.table }
func (i *Instance) Parser() *reflection.Parser         { return i.parser }
func (i *Instance) Handles() *resource.Table           { return i.handles }
func (i *Instance) Env() *builtins.Env                 { return i.env }
func (i *Instance) Registry() *builtins.Registry       { return i.registry }
func (i *Instance) Trampoline() *trampoline.Trampoline { return i.trampoline }
func (i *Instance) Executor() vm.Executor              { return i.exec }
