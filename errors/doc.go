// Package errors provides structured error types for the VM bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the definition path, the VM type involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindTypeMismatch).
//		Path("weapon", "ammo").
//		VMType("vector").
//		Detail("expected integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfRange(errors.PhaseCodec, path, 10, 5)
//
// Every kind except KindUnknownDefinition is fatal: it aborts the current VM
// execution. A missed definition lookup is a soft result callers branch on.
// Use IsFatal to tell them apart.
package errors
