package builtins

import (
	"strconv"

	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Frame is the call frame of one builtin invocation. Arguments live in the
// parameter globals, the result in the return global. A frame is valid only
// for the duration of its call.
type Frame struct {
	env     *Env
	codec   *codec.Codec
	builtin *Builtin
	argc    int
}

func newFrame(env *Env, b *Builtin, argc int) *Frame {
	return &Frame{env: env, codec: env.codec, builtin: b, argc: argc}
}

// Env returns the instance state.
func (f *Frame) Env() *Env {
	return f.env
}

// Name returns the name of the running builtin.
func (f *Frame) Name() string {
	return f.builtin.Name
}

// Argc returns the number of arguments passed.
func (f *Frame) Argc() int {
	return f.argc
}

func (f *Frame) arg(i int, t progs.Type) (uint32, error) {
	if i < 0 || i >= f.argc {
		return 0, errors.OutOfRange(errors.PhaseBuiltin, []string{f.builtin.Name, "arg"}, i, f.argc)
	}
	if i < len(f.builtin.Params) && f.builtin.Params[i].Base() != t {
		return 0, errors.TypeMismatch(errors.PhaseBuiltin, []string{f.builtin.Name, argName(i)},
			f.builtin.Params[i].Base().String(), t.String())
	}
	return f.codec.Global(progs.Parm(i)), nil
}

func argName(i int) string {
	return "parm" + strconv.Itoa(i)
}

func (f *Frame) ArgFloat(i int) (float32, error) {
	addr, err := f.arg(i, progs.TypeFloat)
	if err != nil {
		return 0, err
	}
	return f.codec.Float(addr)
}

func (f *Frame) ArgInt(i int) (int32, error) {
	addr, err := f.arg(i, progs.TypeInteger)
	if err != nil {
		return 0, err
	}
	return f.codec.Int(addr)
}

// ArgBool reads an integer argument as a truth value.
func (f *Frame) ArgBool(i int) (bool, error) {
	v, err := f.ArgInt(i)
	return v != 0, err
}

func (f *Frame) ArgVector(i int) (codec.Vec3, error) {
	addr, err := f.arg(i, progs.TypeVector)
	if err != nil {
		return codec.Vec3{}, err
	}
	return f.codec.Vector(addr)
}

// ArgEntity reads an entity argument; it must be world or an active entity.
func (f *Frame) ArgEntity(i int) (progs.EntityRef, error) {
	addr, err := f.arg(i, progs.TypeEntity)
	if err != nil {
		return 0, err
	}
	return f.codec.Entity(addr)
}

func (f *Frame) ArgString(i int) (string, error) {
	addr, err := f.arg(i, progs.TypeString)
	if err != nil {
		return "", err
	}
	return f.codec.String(addr)
}

func (f *Frame) ArgHandle(i int) (intern.Handle, error) {
	addr, err := f.arg(i, progs.TypeString)
	if err != nil {
		return intern.Empty, err
	}
	return f.codec.Handle(addr)
}

func (f *Frame) ArgFunc(i int) (progs.FuncRef, error) {
	addr, err := f.arg(i, progs.TypeFunction)
	if err != nil {
		return 0, err
	}
	v, err := f.codec.Int(addr)
	return progs.FuncRef(v), err
}

// ParamSource returns the global slot a by-reference argument points at.
// The argument must be declared as a pointer and the referenced span must
// lie inside the globals.
func (f *Frame) ParamSource(i int, span uint32) (uint32, error) {
	addr, err := f.arg(i, progs.TypePointer)
	if err != nil {
		return 0, err
	}
	v, err := f.codec.Int(addr)
	if err != nil {
		return 0, err
	}
	count := f.codec.Layout().GlobalCount
	if v <= 0 || uint64(v)+uint64(span) > uint64(count) {
		return 0, errors.OutOfRange(errors.PhaseBuiltin, []string{f.builtin.Name, argName(i)}, int(v), int(count))
	}
	return uint32(v), nil
}

func (f *Frame) ret() uint32 {
	return f.codec.Global(progs.GlobalReturn)
}

func (f *Frame) ReturnFloat(v float32) error {
	return f.codec.SetFloat(f.ret(), v)
}

func (f *Frame) ReturnInt(v int32) error {
	return f.codec.SetInt(f.ret(), v)
}

func (f *Frame) ReturnBool(v bool) error {
	return f.codec.Write(f.ret(), v)
}

func (f *Frame) ReturnVector(v codec.Vec3) error {
	return f.codec.SetVector(f.ret(), v)
}

func (f *Frame) ReturnEntity(ref progs.EntityRef) error {
	return f.codec.SetEntity(f.ret(), ref)
}

func (f *Frame) ReturnHandle(h intern.Handle) error {
	return f.codec.SetString(f.ret(), h)
}

// ReturnString interns text and returns it. The handle is unowned until
// the script stores it somewhere persistent.
func (f *Frame) ReturnString(text string) error {
	return f.codec.SetText(f.ret(), text)
}

// SetParmVector writes an auxiliary vector output into parameter slot n.
func (f *Frame) SetParmVector(n int, v codec.Vec3) error {
	return f.codec.SetVector(f.codec.Global(progs.Parm(n)), v)
}

// SetParmInt writes an auxiliary integer output into parameter slot n.
func (f *Frame) SetParmInt(n int, v int32) error {
	return f.codec.SetInt(f.codec.Global(progs.Parm(n)), v)
}

// SetParm writes any codec value into parameter slot n and the slots after it.
func (f *Frame) SetParm(n int, v any) error {
	return f.codec.Write(f.codec.Global(progs.Parm(n)), v)
}
