// Package runtime assembles bridge instances.
//
// An Instance owns everything one running progs image needs: its string
// intern table, reflection table, handle table, builtin registry and callback
// trampoline. Nothing is shared between instances.
//
//	inst, err := runtime.New(cfg, mem, services, runtime.WithManifest(m))
//	inst.Attach(executor)
//	err = inst.Run(ctx, worldspawn)
//
// A Runtime wraps a wazero engine and creates instances whose storage lives
// in a guest module's linear memory:
//
//	rt, err := runtime.NewRuntime(ctx, cfg)
//	defer rt.Close(ctx)
//	inst, err := rt.Load(ctx, wasm, manifest, services)
//	err = inst.RunNamed(ctx, "worldspawn")
//
// Instances are single-threaded. Callbacks from host code re-enter the
// executor synchronously on the calling goroutine.
package runtime
