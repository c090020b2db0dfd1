// Package vm declares the boundary between the bridge and whatever executes
// progs code. The bridge never interprets bytecode; it asks an Executor to
// run functions and is called back through a BuiltinDispatcher.
package vm

import (
	"context"

	"github.com/wippyai/qcvm-bridge/progs"
)

// Function is an executable function resolved by an Executor.
type Function interface {
	Ref() progs.FuncRef
	Name() string
}

// Executor runs progs functions against shared VM storage.
type Executor interface {
	// FindFunction resolves a function value stored in a slot. Ref 0 is the
	// null function and never resolves.
	FindFunction(ref progs.FuncRef) (Function, error)

	// Execute runs fn to completion. It may be called again from inside a
	// builtin while an outer Execute is in progress; the nested call runs
	// synchronously on the same goroutine.
	Execute(ctx context.Context, fn Function) error
}

// BuiltinDispatcher services builtin calls made by executing code. Arguments
// are already in the parameter slots; argc is the count the caller passed.
type BuiltinDispatcher interface {
	DispatchBuiltin(ctx context.Context, num int32, argc int) error
}

// DispatcherFunc adapts a function to BuiltinDispatcher.
type DispatcherFunc func(ctx context.Context, num int32, argc int) error

func (f DispatcherFunc) DispatchBuiltin(ctx context.Context, num int32, argc int) error {
	return f(ctx, num, argc)
}
