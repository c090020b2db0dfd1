// Package qcbridge marshals values between a progs bytecode VM and the native
// host that embeds it.
//
// Scripts run against VM storage made of 32-bit slots (globals and per-entity
// fields). The host exposes its services as builtins. This module converts
// values across that boundary in both directions, resolves field and global
// names to storage offsets, reference-counts strings written into VM storage,
// and lets host algorithms call back into the VM while they run.
//
// # Architecture Overview
//
//	qcbridge/         Root package with the slot Memory interface
//	├── progs/        Types, definitions, storage layout, entity records
//	├── intern/       Dynamic string pool with slot-ownership reference counts
//	├── codec/        Typed slot reads and writes
//	├── reflection/   Name/id lookup of definitions and typed text parsing
//	├── resource/     Generation-checked tables for opaque host handles
//	├── host/         Capabilities the host provides to builtins
//	├── vm/           Execution interface consumed from the interpreter
//	├── builtins/     Builtin call adapter and builtin sets
//	├── trampoline/   Re-entrant VM callbacks for movement simulation
//	├── engine/       wazero executor backend
//	├── runtime/      Per-VM instance wiring
//	├── config/       TOML configuration
//	├── cmd/qcdefs/   Definition browser and guest runner
//	└── errors/       Structured error types
//
// # Quick Start
//
//	cfg := config.Default()
//	mem := qcbridge.NewSliceMemory(cfg.Layout().TotalSlots())
//	inst, err := runtime.New(cfg, mem, services, runtime.WithDefinitions(globals, fields))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst.Attach(executor)
//	err = inst.Run(ctx, progs.FuncRef(startFunc))
//
// # Thread Safety
//
// An Instance and everything it owns is confined to one goroutine. Separate
// Instances share nothing and may run concurrently.
package qcbridge
