package builtins

import (
	"context"

	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/progs"
)

// InstallGame registers entity bookkeeping and key/value parsing builtins.
func InstallGame(r *Registry) error {
	return r.registerAll([]Builtin{
		{Name: "SetNumEdicts", Params: params(tInt), Fn: setNumEdicts},
		{Name: "ClearEntity", Params: params(tEntity), Fn: clearEntity},
		{Name: "SyncPlayerState", Params: params(tEntity), Fn: syncPlayerState},
		{Name: "entity_key_parse", Params: params(tEntity, tInt, tString), Fn: entityKeyParse},
		{Name: "struct_key_parse", Params: params(tString, tString, tString), Fn: structKeyParse},
		{Name: "itoe", Params: params(tInt), Fn: itoe},
		{Name: "etoi", Params: params(tEntity), Fn: etoi},
	})
}

func setNumEdicts(_ context.Context, f *Frame) error {
	n, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	return f.Env().Entities().SetNum(n)
}

func clearEntity(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	ents := f.Env().Entities()
	layout := ents.Layout()
	if err := f.Env().Parser().ReconcileSpan(layout.EntityAddr(ent), layout.EntityFields); err != nil {
		return err
	}
	return ents.Clear(ent, f.Env().Strings())
}

func syncPlayerState(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	f.Env().Host().SyncPlayerState(ent)
	return nil
}

func entityKeyParse(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	field, err := f.ArgInt(1)
	if err != nil {
		return err
	}
	value, err := f.ArgString(2)
	if err != nil {
		return err
	}
	return f.Env().Parser().ParseEntityField(ent, field, value)
}

func structKeyParse(_ context.Context, f *Frame) error {
	name, err := f.ArgString(0)
	if err != nil {
		return err
	}
	key, err := f.ArgString(1)
	if err != nil {
		return err
	}
	value, err := f.ArgString(2)
	if err != nil {
		return err
	}
	ok, err := f.Env().Parser().ParseStructKey(name, key, value)
	if err != nil {
		return err
	}
	return f.ReturnBool(ok)
}

func itoe(_ context.Context, f *Frame) error {
	n, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	ents := f.Env().Entities()
	if n < 0 || n >= ents.Max() {
		return errors.OutOfRange(errors.PhaseBuiltin, []string{"itoe"}, int(n), int(ents.Max()))
	}
	return f.ReturnEntity(progs.EntityRef(n))
}

func etoi(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	return f.ReturnInt(int32(ent))
}
