package builtins

import (
	"context"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/resource"
)

// TraceSlots is the width of the trace result struct written by
// trace_result: allsolid, startsolid, fraction, endpos[3], plane normal[3],
// plane dist, plane type|signbits<<8, surface, contents, ent.
const TraceSlots = 14

func traceBuiltins() []Builtin {
	return []Builtin{
		{Name: "trace", Params: params(tVector, tVector, tVector, tVector, tEntity, tInt), Fn: trace},
		{Name: "trace_result", Fn: traceResult},
		{Name: "pointcontents", Params: params(tVector), Fn: pointContents},
		{Name: "csurface_get_name", Params: params(tInt), Fn: surfaceName},
		{Name: "csurface_get_flags", Params: params(tInt), Fn: surfaceFlags},
		{Name: "csurface_get_value", Params: params(tInt), Fn: surfaceValue},
	}
}

// trace runs a host trace and keeps the result for trace_result.
func trace(_ context.Context, f *Frame) error {
	var v [4]Vec3
	for i := range v {
		var err error
		if v[i], err = f.ArgVector(i); err != nil {
			return err
		}
	}
	pass, err := f.ArgEntity(4)
	if err != nil {
		return err
	}
	mask, err := f.ArgInt(5)
	if err != nil {
		return err
	}
	f.Env().SetLastTrace(f.Env().Host().Trace(v[0], v[1], v[2], v[3], pass, mask))
	return nil
}

// traceResult copies the last trace into the parameter slots.
func traceResult(_ context.Context, f *Frame) error {
	return f.Env().WriteTrace(f.Env().codec.Global(progs.Parm(0)), f.Env().LastTrace())
}

// WriteTrace stores t as a trace result struct at addr.
func (e *Env) WriteTrace(addr uint32, t host.Trace) error {
	surf, err := e.surfaceHandle(t.Surface)
	if err != nil {
		return err
	}
	ent := t.Ent
	if !e.Entities().Valid(ent) {
		ent = progs.EntityInvalid
	}
	values := []any{
		t.AllSolid,
		t.StartSolid,
		t.Fraction,
		t.EndPos,
		t.Plane.Normal,
		t.Plane.Dist,
		int32(t.Plane.Type) | int32(t.Plane.SignBits)<<8,
		int32(surf),
		t.Contents,
		ent,
	}
	for _, v := range values {
		if err := e.codec.Write(addr, v); err != nil {
			return err
		}
		if _, ok := v.(Vec3); ok {
			addr += 3 * qcbridge.SlotSize
		} else {
			addr += qcbridge.SlotSize
		}
	}
	return nil
}

func pointContents(_ context.Context, f *Frame) error {
	pos, err := f.ArgVector(0)
	if err != nil {
		return err
	}
	return f.ReturnInt(f.Env().Host().PointContents(pos))
}

// surfaceArg resolves a surface handle argument. Handle 0 is "no surface".
func surfaceArg(f *Frame) (*surfaceRef, error) {
	raw, err := f.ArgInt(0)
	if err != nil || raw == 0 {
		return nil, err
	}
	return f.Env().surfaces.Get(resource.Handle(raw))
}

func surfaceName(_ context.Context, f *Frame) error {
	s, err := surfaceArg(f)
	if err != nil {
		return err
	}
	if s == nil {
		return f.ReturnHandle(intern.Empty)
	}
	return f.ReturnHandle(s.name)
}

func surfaceFlags(_ context.Context, f *Frame) error {
	s, err := surfaceArg(f)
	if err != nil {
		return err
	}
	if s == nil {
		return f.ReturnInt(0)
	}
	return f.ReturnInt(s.surface.Flags)
}

func surfaceValue(_ context.Context, f *Frame) error {
	s, err := surfaceArg(f)
	if err != nil {
		return err
	}
	if s == nil {
		return f.ReturnInt(0)
	}
	return f.ReturnInt(s.surface.Value)
}
