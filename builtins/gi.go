package builtins

import (
	"context"

	"github.com/wippyai/qcvm-bridge/errors"
)

// InstallGI registers the engine service builtins: printing, sounds, asset
// indices, network messages and console commands. Spatial, trace and cvar
// builtins are registered alongside.
func InstallGI(r *Registry) error {
	list := []Builtin{
		{Name: "bprintf", Params: params(tInt, tString), Fn: bprintf},
		{Name: "dprintf", Params: params(tString), Fn: dprintf},
		{Name: "cprintf", Params: params(tEntity, tInt, tString), Fn: cprintf},
		{Name: "centerprintf", Params: params(tEntity, tString), Fn: centerprintf},
		{Name: "error", Params: params(tString), Fn: scriptError},

		{Name: "sound", Params: params(tEntity, tInt, tInt, tFloat, tFloat, tFloat), Fn: sound},
		{Name: "positioned_sound", Params: params(tVector, tEntity, tInt, tInt, tFloat, tFloat, tFloat), Fn: positionedSound},

		{Name: "configstring", Params: params(tInt, tString), Fn: configString},
		{Name: "modelindex", Params: params(tString), Fn: assetIndex(func(f *Frame, s string) int32 { return f.Env().Host().ModelIndex(s) })},
		{Name: "soundindex", Params: params(tString), Fn: assetIndex(func(f *Frame, s string) int32 { return f.Env().Host().SoundIndex(s) })},
		{Name: "imageindex", Params: params(tString), Fn: assetIndex(func(f *Frame, s string) int32 { return f.Env().Host().ImageIndex(s) })},
		{Name: "setmodel", Params: params(tEntity, tString), Fn: setModel},

		{Name: "multicast", Params: params(tVector, tInt), Fn: multicast},
		{Name: "unicast", Params: params(tEntity, tInt), Fn: unicast},
		{Name: "WriteChar", Params: params(tInt), Fn: writeInt(func(f *Frame, v int32) { f.Env().Host().WriteChar(v) })},
		{Name: "WriteByte", Params: params(tInt), Fn: writeInt(func(f *Frame, v int32) { f.Env().Host().WriteUint8(v) })},
		{Name: "WriteShort", Params: params(tInt), Fn: writeInt(func(f *Frame, v int32) { f.Env().Host().WriteShort(v) })},
		{Name: "WriteLong", Params: params(tInt), Fn: writeInt(func(f *Frame, v int32) { f.Env().Host().WriteLong(v) })},
		{Name: "WriteFloat", Params: params(tFloat), Fn: writeFloat(func(f *Frame, v float32) { f.Env().Host().WriteFloat(v) })},
		{Name: "WriteAngle", Params: params(tFloat), Fn: writeFloat(func(f *Frame, v float32) { f.Env().Host().WriteAngle(v) })},
		{Name: "WriteString", Params: params(tString), Fn: writeString},
		{Name: "WritePosition", Params: params(tVector), Fn: writeVector(func(f *Frame, v Vec3) { f.Env().Host().WritePosition(v) })},
		{Name: "WriteDir", Params: params(tVector), Fn: writeVector(func(f *Frame, v Vec3) { f.Env().Host().WriteDir(v) })},

		{Name: "argv", Params: params(tInt), Fn: argv},
		{Name: "argc", Fn: argc},
		{Name: "args", Fn: args},
	}
	list = append(list, spatialBuiltins()...)
	list = append(list, traceBuiltins()...)
	list = append(list, cvarBuiltins()...)
	return r.registerAll(list)
}

func bprintf(_ context.Context, f *Frame) error {
	level, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	msg, err := formatArg(f, 1)
	if err != nil {
		return err
	}
	f.Env().Host().Bprintf(level, msg)
	return nil
}

func dprintf(_ context.Context, f *Frame) error {
	msg, err := formatArg(f, 0)
	if err != nil {
		return err
	}
	f.Env().Host().Dprintf(msg)
	return nil
}

func cprintf(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	level, err := f.ArgInt(1)
	if err != nil {
		return err
	}
	msg, err := formatArg(f, 2)
	if err != nil {
		return err
	}
	f.Env().Host().Cprintf(ent, level, msg)
	return nil
}

func centerprintf(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	msg, err := formatArg(f, 1)
	if err != nil {
		return err
	}
	f.Env().Host().Centerprintf(ent, msg)
	return nil
}

// scriptError reports the message to the host and aborts the script.
func scriptError(_ context.Context, f *Frame) error {
	msg, err := formatArg(f, 0)
	if err != nil {
		return err
	}
	f.Env().Host().Error(msg)
	return errors.New(errors.PhaseBuiltin, errors.KindInvalidInput).
		Path("error").
		Detail("script error: %s", msg).
		Build()
}

// formatArg expands the format string at index i with the arguments after it.
func formatArg(f *Frame, i int) (string, error) {
	format, err := f.ArgString(i)
	if err != nil {
		return "", err
	}
	return Format(f, format, i+1)
}

func sound(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	var ints [2]int32
	for i := range ints {
		if ints[i], err = f.ArgInt(1 + i); err != nil {
			return err
		}
	}
	var floats [3]float32
	for i := range floats {
		if floats[i], err = f.ArgFloat(3 + i); err != nil {
			return err
		}
	}
	f.Env().Host().Sound(ent, ints[0], ints[1], floats[0], floats[1], floats[2])
	return nil
}

func positionedSound(_ context.Context, f *Frame) error {
	origin, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	ent, err := f.ArgEntity(1)
	if err != nil {
		return err
	}
	var ints [2]int32
	for i := range ints {
		if ints[i], err = f.ArgInt(2 + i); err != nil {
			return err
		}
	}
	var floats [3]float32
	for i := range floats {
		if floats[i], err = f.ArgFloat(4 + i); err != nil {
			return err
		}
	}
	f.Env().Host().PositionedSound(origin, ent, ints[0], ints[1], floats[0], floats[1], floats[2])
	return nil
}

func configString(_ context.Context, f *Frame) error {
	index, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	value, err := f.ArgString(1)
	if err != nil {
		return err
	}
	f.Env().Host().ConfigString(index, value)
	return nil
}

func assetIndex(lookup func(*Frame, string) int32) Func {
	return func(_ context.Context, f *Frame) error {
		name, err := f.ArgString(0)
		if err != nil {
			return err
		}
		return f.ReturnInt(lookup(f, name))
	}
}

func setModel(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	name, err := f.ArgString(1)
	if err != nil {
		return err
	}
	f.Env().Host().SetModel(ent, name)
	return nil
}

func multicast(_ context.Context, f *Frame) error {
	origin, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	to, err := f.ArgInt(1)
	if err != nil {
		return err
	}
	f.Env().Host().Multicast(origin, to)
	return nil
}

func unicast(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	reliable, err := f.ArgBool(1)
	if err != nil {
		return err
	}
	f.Env().Host().Unicast(ent, reliable)
	return nil
}

func writeInt(write func(*Frame, int32)) Func {
	return func(_ context.Context, f *Frame) error {
		v, err := f.ArgInt(0)
		if err != nil {
			return err
		}
		write(f, v)
		return nil
	}
}

func writeFloat(write func(*Frame, float32)) Func {
	return func(_ context.Context, f *Frame) error {
		v, err := f.ArgFloat(0)
		if err != nil {
			return err
		}
		write(f, v)
		return nil
	}
}

func writeVector(write func(*Frame, Vec3)) Func {
	return func(_ context.Context, f *Frame) error {
		v, err := f.ArgVector(0)
		if err != nil {
			return err
		}
		write(f, v)
		return nil
	}
}

func writeString(_ context.Context, f *Frame) error {
	s, err := f.ArgString(0)
	if err != nil {
		return err
	}
	f.Env().Host().WriteString(s)
	return nil
}

func argv(_ context.Context, f *Frame) error {
	n, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	return f.ReturnString(f.Env().Host().Argv(n))
}

func argc(_ context.Context, f *Frame) error {
	return f.ReturnInt(f.Env().Host().Argc())
}

func args(_ context.Context, f *Frame) error {
	return f.ReturnString(f.Env().Host().Args())
}
