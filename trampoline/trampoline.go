package trampoline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/qcvm-bridge/builtins"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/vm"
)

// State is the trampoline's position in its binding lifecycle.
type State int

const (
	StateIdle State = iota
	StateBound
	StateInvoked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBound:
		return "bound"
	case StateInvoked:
		return "invoked"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Trampoline routes host callbacks to VM functions for one instance.
type Trampoline struct {
	env     *builtins.Env
	exec    vm.Executor
	binding *Binding
	state   State
}

// New creates a trampoline over an instance's builtin state.
func New(env *builtins.Env) *Trampoline {
	return &Trampoline{env: env}
}

// SetExecutor attaches the executor callbacks re-enter.
func (t *Trampoline) SetExecutor(exec vm.Executor) {
	t.exec = exec
}

// State returns the current lifecycle state.
func (t *Trampoline) State() State {
	return t.state
}

// Bind captures the callback functions for one outer host call. Binding
// while another binding is in flight is rejected.
func (t *Trampoline) Bind(ctx context.Context, trace, contents progs.FuncRef) (*Binding, error) {
	if t.exec == nil {
		return nil, errors.NotInitialized(errors.PhaseTrampoline, "executor")
	}
	if t.state != StateIdle {
		return nil, errors.New(errors.PhaseTrampoline, errors.KindUnsupported).
			Detail("nested callback binding while %s", t.state).
			Build()
	}

	b := &Binding{t: t, ctx: ctx, trace: trace, contents: contents}
	t.binding = b
	t.state = StateBound
	Logger().Debug("trampoline bound",
		zap.Int32("trace", int32(trace)),
		zap.Int32("pointcontents", int32(contents)))
	return b, nil
}

// Binding is an active set of callbacks. It implements host.PmoveCallbacks.
type Binding struct {
	t        *Trampoline
	ctx      context.Context
	err      error
	trace    progs.FuncRef
	contents progs.FuncRef
	calls    int
	released bool
}

var _ host.PmoveCallbacks = (*Binding)(nil)

// Err returns the first error raised by a callback.
func (b *Binding) Err() error {
	return b.err
}

// Calls returns how many callbacks re-entered the VM.
func (b *Binding) Calls() int {
	return b.calls
}

// Unbind releases the binding and returns the latched callback error.
// Releasing twice is a no-op.
func (b *Binding) Unbind() error {
	if b.released {
		return b.err
	}
	b.released = true
	if b.t.binding == b {
		b.t.binding = nil
		b.t.state = StateIdle
	}
	Logger().Debug("trampoline unbound", zap.Int("calls", b.calls), zap.Error(b.err))
	return b.err
}

func (b *Binding) fail(err error) {
	if b.err == nil {
		b.err = err
		Logger().Debug("trampoline callback failed", zap.Error(err))
	}
}

// invoke runs ref after the caller has marshalled its arguments.
func (b *Binding) invoke(role string, ref progs.FuncRef) bool {
	if b.released || b.err != nil {
		return false
	}
	t := b.t
	if t.state == StateInvoked {
		b.fail(errors.New(errors.PhaseTrampoline, errors.KindUnsupported).
			Path(role).
			Detail("callback re-entered while a callback is running").
			Build())
		return false
	}

	fn, err := t.exec.FindFunction(ref)
	if err != nil {
		b.fail(errors.New(errors.PhaseTrampoline, errors.KindNotFound).
			Path(role).
			Value(int32(ref)).
			Cause(err).
			Build())
		return false
	}

	t.state = StateInvoked
	b.calls++
	err = t.exec.Execute(b.ctx, fn)
	t.state = StateBound
	if err != nil {
		b.fail(err)
		return false
	}
	return true
}

// Trace re-enters the bound trace function. The shared trace state is reset
// to an unobstructed result first, so a function that never traces reports
// no collision.
func (b *Binding) Trace(start, mins, maxs, end host.Vec3) host.Trace {
	env := b.t.env
	noHit := host.NoHit(end)
	if b.released || b.err != nil {
		return noHit
	}

	c := env.Codec()
	for i, v := range []host.Vec3{start, mins, maxs, end} {
		if err := c.SetVector(c.Global(progs.Parm(i)), v); err != nil {
			b.fail(err)
			return noHit
		}
	}
	env.SetLastTrace(noHit)

	if !b.invoke("trace", b.trace) {
		return noHit
	}
	return env.LastTrace()
}

// PointContents re-enters the bound point contents function and returns
// its integer result.
func (b *Binding) PointContents(pos host.Vec3) int32 {
	if b.released || b.err != nil {
		return 0
	}
	c := b.t.env.Codec()
	if err := c.SetVector(c.Global(progs.Parm(0)), pos); err != nil {
		b.fail(err)
		return 0
	}
	if !b.invoke("pointcontents", b.contents) {
		return 0
	}
	v, err := c.Int(c.Global(progs.GlobalReturn))
	if err != nil {
		b.fail(err)
		return 0
	}
	return v
}
