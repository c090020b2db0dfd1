package runtime

import (
	"context"

	"github.com/wippyai/qcvm-bridge/config"
	"github.com/wippyai/qcvm-bridge/engine"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Runtime owns a wazero engine shared by the instances it loads.
type Runtime struct {
	engine *engine.Engine
	cfg    *config.Config
}

// NewRuntime creates a runtime. A nil cfg uses config.Default.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	eng, err := engine.NewWithConfig(ctx, &engine.Config{
		MemoryLimitPages: cfg.Guest.MemoryLimitPages,
	})
	if err != nil {
		return nil, errors.Load("create engine", err)
	}
	return &Runtime{engine: eng, cfg: cfg}, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Load instantiates a guest module and builds an instance over its memory.
// The manifest's function list fixes the guest's export order.
func (r *Runtime) Load(ctx context.Context, wasm []byte, manifest *progs.Manifest, services host.Services, opts ...Option) (*Instance, error) {
	var funcs []string
	if manifest != nil {
		funcs = manifest.Functions
		opts = append([]Option{WithManifest(manifest)}, opts...)
	}

	exec, err := r.engine.NewExecutor(ctx, wasm, engine.Options{
		Memory:      r.cfg.Guest.Memory,
		Functions:   funcs,
		StorageBase: r.cfg.Guest.StorageBase,
	})
	if err != nil {
		return nil, err
	}

	inst, err := New(r.cfg, exec.Memory(), services, opts...)
	if err != nil {
		_ = exec.Close(ctx)
		return nil, err
	}
	inst.Attach(exec)
	inst.closer = exec.Close
	return inst, nil
}
