// Package trampoline lets host code call back into the VM while a builtin
// is still running.
//
// Player movement is simulated by the host, but the collision decisions it
// needs are answered by script functions. The Pmove builtin binds those
// functions, hands the host a Binding that implements host.PmoveCallbacks,
// and each callback re-enters the executor synchronously:
//
//	Idle --Bind--> Bound --shim--> Invoked --return--> Bound ... --Unbind--> Idle
//
// Only one binding may be in flight per instance. The first error raised
// inside a callback is latched; later callbacks return neutral results and
// the error is reported when the binding is released.
package trampoline
