package builtins

import (
	"context"

	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/resource"
)

func spatialBuiltins() []Builtin {
	return []Builtin{
		{Name: "linkentity", Params: params(tEntity), Fn: linkEntity},
		{Name: "unlinkentity", Params: params(tEntity), Fn: unlinkEntity},
		{Name: "inPVS", Params: params(tVector, tVector), Fn: inPVS},
		{Name: "inPHS", Params: params(tVector, tVector), Fn: inPHS},
		{Name: "SetAreaPortalState", Params: params(tInt, tInt), Fn: setAreaPortalState},
		{Name: "AreasConnected", Params: params(tInt, tInt), Fn: areasConnected},
		{Name: "BoxEdicts", Params: params(tVector, tVector, tInt, tInt), Fn: boxEdicts},
		{Name: "FreeBoxEdicts", Params: params(tInt), Fn: freeBoxEdicts},
		{Name: "box_edicts_length", Params: params(tInt), Fn: boxEdictsLength},
		{Name: "box_edicts_get", Params: params(tInt, tInt), Fn: boxEdictsGet},
	}
}

func linkEntity(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	f.Env().Host().LinkEntity(ent)
	return nil
}

func unlinkEntity(_ context.Context, f *Frame) error {
	ent, err := f.ArgEntity(0)
	if err != nil {
		return err
	}
	f.Env().Host().UnlinkEntity(ent)
	return nil
}

func twoVectors(f *Frame) (Vec3, Vec3, error) {
	a, err := f.ArgVector(0)
	if err != nil {
		return Vec3{}, Vec3{}, err
	}
	b, err := f.ArgVector(1)
	return a, b, err
}

func inPVS(_ context.Context, f *Frame) error {
	a, b, err := twoVectors(f)
	if err != nil {
		return err
	}
	return f.ReturnBool(f.Env().Host().InPVS(a, b))
}

func inPHS(_ context.Context, f *Frame) error {
	a, b, err := twoVectors(f)
	if err != nil {
		return err
	}
	return f.ReturnBool(f.Env().Host().InPHS(a, b))
}

func setAreaPortalState(_ context.Context, f *Frame) error {
	portal, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	open, err := f.ArgBool(1)
	if err != nil {
		return err
	}
	f.Env().Host().SetAreaPortalState(portal, open)
	return nil
}

func areasConnected(_ context.Context, f *Frame) error {
	a, err := f.ArgInt(0)
	if err != nil {
		return err
	}
	b, err := f.ArgInt(1)
	if err != nil {
		return err
	}
	return f.ReturnBool(f.Env().Host().AreasConnected(a, b))
}

// boxEdicts returns a handle to the list of entities in the box and the
// list length in parm4. A non-positive maxCount yields an empty list
// without consulting the host.
func boxEdicts(_ context.Context, f *Frame) error {
	mins, maxs, err := twoVectors(f)
	if err != nil {
		return err
	}
	maxCount, err := f.ArgInt(2)
	if err != nil {
		return err
	}
	area, err := f.ArgInt(3)
	if err != nil {
		return err
	}

	list := []progs.EntityRef{}
	if maxCount > 0 {
		found := f.Env().Host().BoxEdicts(mins, maxs, int(maxCount), area)
		if len(found) > int(maxCount) {
			found = found[:maxCount]
		}
		list = append(list, found...)
	}

	h, err := f.Env().boxes.Insert(list)
	if err != nil {
		return err
	}
	if err := f.ReturnInt(int32(h)); err != nil {
		return err
	}
	return f.SetParmInt(4, int32(len(list)))
}

func boxArg(f *Frame) ([]progs.EntityRef, resource.Handle, error) {
	raw, err := f.ArgInt(0)
	if err != nil {
		return nil, 0, err
	}
	h := resource.Handle(raw)
	list, err := f.Env().boxes.Get(h)
	return list, h, err
}

func freeBoxEdicts(_ context.Context, f *Frame) error {
	_, h, err := boxArg(f)
	if err != nil {
		return err
	}
	_, err = f.Env().boxes.Remove(h)
	return err
}

func boxEdictsLength(_ context.Context, f *Frame) error {
	list, _, err := boxArg(f)
	if err != nil {
		return err
	}
	return f.ReturnInt(int32(len(list)))
}

func boxEdictsGet(_ context.Context, f *Frame) error {
	list, _, err := boxArg(f)
	if err != nil {
		return err
	}
	i, err := f.ArgInt(1)
	if err != nil {
		return err
	}
	if i < 0 || int(i) >= len(list) {
		return errors.OutOfRange(errors.PhaseBuiltin, []string{"box_edicts_get"}, int(i), len(list))
	}
	return f.ReturnEntity(list[i])
}
