// Package engine runs progs compiled to WebAssembly under wazero.
//
// A guest module imports one host function and exports its progs functions
// and its linear memory:
//
//	(import "qcvm" "builtin" (func (param i32 i32)))   ;; builtin number, argc
//	(export "memory" (memory 0))
//	(export "worldspawn" (func ...))                   ;; () -> ()
//
// VM storage (globals then entity fields) lives in the guest's memory at
// Options.StorageBase, so the bridge and the guest see the same slots.
//
// # Function references
//
// A function value stored in a slot is a 1-based index into the executor's
// export table. The table is Options.Functions when given, otherwise every
// exported () -> () function in name order. Reference 0 is the null function.
//
// # Builtins and errors
//
// Each guest call to qcvm.builtin is routed to the executor's
// vm.BuiltinDispatcher. A fatal error aborts the guest: it is latched, the
// guest is unwound, and the outermost Execute returns it. Non-fatal errors
// are logged and execution continues.
//
// # Re-entry
//
// Execute may be called from inside a builtin while an outer Execute is
// running. The nested call runs synchronously on the same goroutine.
//
// # Thread Safety
//
// Engine is safe for concurrent use. An Executor is NOT thread-safe and
// belongs to a single instance.
package engine
