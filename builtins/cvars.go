package builtins

import (
	"context"

	"github.com/wippyai/qcvm-bridge/errors"
)

func cvarBuiltins() []Builtin {
	return []Builtin{
		{Name: "cvar", Params: params(tString, tString, tInt), Fn: cvar},
		{Name: "cvar_set", Params: params(tString, tString), Fn: cvarSet},
		{Name: "cvar_forceset", Params: params(tString, tString), Fn: cvarForceSet},
		{Name: "cvar_get_name", Params: params(tInt), Fn: cvarGetName},
		{Name: "cvar_get_string", Params: params(tInt), Fn: cvarGetString},
		{Name: "cvar_get_latched_string", Params: params(tInt), Fn: cvarGetLatched},
		{Name: "cvar_get_modified", Params: params(tInt), Fn: cvarGetModified},
		{Name: "cvar_set_modified", Params: params(tInt, tInt), Fn: cvarSetModified},
		{Name: "cvar_get_floatVal", Params: params(tInt), Fn: cvarGetFloat},
		{Name: "cvar_get_intVal", Params: params(tInt), Fn: cvarGetInt},
	}
}

// cvar registers a variable with the host and returns a 1-based handle.
// The string handles read through the host's fields, so later host updates
// are visible to the script without re-registration. A cvar the host already
// returned keeps its handle.
func cvar(_ context.Context, f *Frame) error {
	name, err := f.ArgString(0)
	if err != nil {
		return err
	}
	value, err := f.ArgString(1)
	if err != nil {
		return err
	}
	flags, err := f.ArgInt(2)
	if err != nil {
		return err
	}

	env := f.Env()
	cv := env.Host().Cvar(name, value, flags)
	if cv == nil {
		return errors.NotFound(errors.PhaseHost, "cvar", name)
	}
	if id, ok := env.cvarIDs[cv]; ok {
		return f.ReturnInt(id)
	}
	strs := env.Strings()
	env.cvars = append(env.cvars, cvarRef{
		cvar:    cv,
		name:    strs.StoreStatic(&cv.Name),
		value:   strs.StoreStatic(&cv.String),
		latched: strs.StoreStatic(&cv.LatchedString),
	})
	id := int32(len(env.cvars))
	env.cvarIDs[cv] = id
	return f.ReturnInt(id)
}

func cvarSet(_ context.Context, f *Frame) error {
	name, value, err := twoStrings(f)
	if err != nil {
		return err
	}
	f.Env().Host().CvarSet(name, value)
	return nil
}

func cvarForceSet(_ context.Context, f *Frame) error {
	name, value, err := twoStrings(f)
	if err != nil {
		return err
	}
	f.Env().Host().CvarForceSet(name, value)
	return nil
}

func twoStrings(f *Frame) (string, string, error) {
	a, err := f.ArgString(0)
	if err != nil {
		return "", "", err
	}
	b, err := f.ArgString(1)
	return a, b, err
}

func cvarArg(f *Frame) (*cvarRef, error) {
	id, err := f.ArgInt(0)
	if err != nil {
		return nil, err
	}
	cvars := f.Env().cvars
	if id < 1 || int(id) > len(cvars) {
		return nil, errors.OutOfRange(errors.PhaseBuiltin, []string{f.Name()}, int(id), len(cvars))
	}
	return &cvars[id-1], nil
}

func cvarGetName(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	return f.ReturnHandle(cv.name)
}

func cvarGetString(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	return f.ReturnHandle(cv.value)
}

func cvarGetLatched(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	return f.ReturnHandle(cv.latched)
}

func cvarGetModified(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	return f.ReturnBool(cv.cvar.Modified)
}

func cvarSetModified(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	modified, err := f.ArgBool(1)
	if err != nil {
		return err
	}
	cv.cvar.Modified = modified
	return nil
}

func cvarGetFloat(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	return f.ReturnFloat(cv.cvar.Value)
}

func cvarGetInt(_ context.Context, f *Frame) error {
	cv, err := cvarArg(f)
	if err != nil {
		return err
	}
	return f.ReturnInt(int32(cv.cvar.Value))
}
