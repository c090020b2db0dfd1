package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/qcvm-bridge/errors"
)

// Host import names guests link against.
const (
	HostModule    = "qcvm"
	BuiltinFunc   = "builtin"
	DefaultMemory = "memory"
)

// Engine owns a wazero runtime and the qcvm host module shared by every
// executor created from it.
type Engine struct {
	runtime wazero.Runtime
	host    api.Module
	execs   map[string]*Executor
	seq     atomic.Uint64
	mu      sync.Mutex
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per guest in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// CloseOnContextDone aborts guest execution when the call context is
	// cancelled. The aborted guest cannot be used again.
	CloseOnContextDone bool
}

// New creates a new engine with a nil config.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a new engine with custom configuration
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		execs:   make(map[string]*Executor),
	}

	host, err := e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.builtin),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
		WithParameterNames("num", "argc").
		Export(BuiltinFunc).
		Instantiate(ctx)
	if err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindConfiguration, err, "instantiate host module")
	}
	e.host = host
	return e, nil
}

// Close releases the runtime and every guest instantiated from it.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.execs = make(map[string]*Executor)
	e.mu.Unlock()
	return e.runtime.Close(ctx)
}

func (e *Engine) register(x *Executor) {
	e.mu.Lock()
	e.execs[x.name] = x
	e.mu.Unlock()
}

func (e *Engine) unregister(x *Executor) {
	e.mu.Lock()
	delete(e.execs, x.name)
	e.mu.Unlock()
}

func (e *Engine) lookup(name string) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execs[name]
}

func (e *Engine) nextName() string {
	return fmt.Sprintf("progs-%d", e.seq.Add(1))
}

// builtin is qcvm.builtin. The caller module identifies the executor.
func (e *Engine) builtin(ctx context.Context, caller api.Module, stack []uint64) {
	num := api.DecodeI32(stack[0])
	argc := int(api.DecodeI32(stack[1]))

	x := e.lookup(caller.Name())
	if x == nil {
		Logger().Error("builtin call from unknown guest", zap.String("module", caller.Name()))
		panic(errAbort)
	}
	x.dispatch(ctx, num, argc)
}
