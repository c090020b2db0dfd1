package trampoline

import (
	"context"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/builtins"
	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Slot offsets of the script-side pmove struct.
const (
	pmType          = 0
	pmOrigin        = 1
	pmVelocity      = 4
	pmFlags         = 7
	pmTime          = 8
	pmGravity       = 9
	pmDeltaAngles   = 10
	pmCmdMsec       = 13
	pmCmdButtons    = 14
	pmCmdAngles     = 15
	pmCmdForward    = 18
	pmCmdSide       = 19
	pmCmdUp         = 20
	pmCmdImpulse    = 21
	pmCmdLightLevel = 22
	pmSnapInitial   = 23
	pmNumTouch      = 24
	pmTouchEnts     = 25
	pmViewAngles    = pmTouchEnts + host.MaxTouch
	pmViewHeight    = pmViewAngles + 3
	pmMins          = pmViewHeight + 1
	pmMaxs          = pmMins + 3
	pmGroundEntity  = pmMaxs + 3
	pmWaterType     = pmGroundEntity + 1
	pmWaterLevel    = pmWaterType + 1
	pmTraceFunc     = pmWaterLevel + 1
	pmContentsFunc  = pmTraceFunc + 1

	// PmoveSlots is the width of the pmove struct.
	PmoveSlots = pmContentsFunc + 1
)

// Install registers the Pmove builtin. Its single argument points at the
// pmove struct in globals, which is updated in place.
func Install(r *builtins.Registry, t *Trampoline) error {
	return r.Register(builtins.Builtin{
		Name:   "Pmove",
		Params: []progs.Type{progs.TypePointer},
		Fn:     t.pmove,
	})
}

func (t *Trampoline) pmove(ctx context.Context, f *builtins.Frame) error {
	base, err := f.ParamSource(0, PmoveSlots)
	if err != nil {
		return err
	}
	s := structAt(f.Env().Codec(), base)

	var pm host.Pmove
	s.readPmove(&pm)
	traceFn, contentsFn := progs.FuncRef(s.getInt(pmTraceFunc)), progs.FuncRef(s.getInt(pmContentsFunc))
	if s.err != nil {
		return s.err
	}

	b, err := t.Bind(ctx, traceFn, contentsFn)
	if err != nil {
		return err
	}
	defer b.Unbind()

	t.env.Host().Pmove(&pm, b)

	if err := b.Unbind(); err != nil {
		return err
	}
	s.writePmove(&pm, f.Env().Entities())
	return s.err
}

// slots reads and writes a struct in globals, keeping the first error.
type slots struct {
	c    *codec.Codec
	base uint32
	err  error
}

func structAt(c *codec.Codec, globalSlot uint32) *slots {
	return &slots{c: c, base: c.Global(globalSlot)}
}

func (s *slots) addr(off uint32) uint32 {
	return s.base + off*qcbridge.SlotSize
}

func (s *slots) keep(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *slots) getInt(off uint32) int32 {
	v, err := s.c.Int(s.addr(off))
	s.keep(err)
	return v
}

func (s *slots) ints(off uint32, out []int32) {
	for i := range out {
		out[i] = s.getInt(off + uint32(i))
	}
}

func (s *slots) setInt(off uint32, v int32) {
	if s.err == nil {
		s.keep(s.c.SetInt(s.addr(off), v))
	}
}

func (s *slots) setFloat(off uint32, v float32) {
	if s.err == nil {
		s.keep(s.c.SetFloat(s.addr(off), v))
	}
}

func (s *slots) setVector(off uint32, v codec.Vec3) {
	if s.err == nil {
		s.keep(s.c.SetVector(s.addr(off), v))
	}
}

func (s *slots) setInts(off uint32, v []int32) {
	for i, x := range v {
		s.setInt(off+uint32(i), x)
	}
}

func (s *slots) readPmove(pm *host.Pmove) {
	pm.State.Type = s.getInt(pmType)
	s.ints(pmOrigin, pm.State.Origin[:])
	s.ints(pmVelocity, pm.State.Velocity[:])
	pm.State.Flags = s.getInt(pmFlags)
	pm.State.Time = s.getInt(pmTime)
	pm.State.Gravity = s.getInt(pmGravity)
	s.ints(pmDeltaAngles, pm.State.DeltaAngles[:])

	pm.Cmd.Msec = s.getInt(pmCmdMsec)
	pm.Cmd.Buttons = s.getInt(pmCmdButtons)
	s.ints(pmCmdAngles, pm.Cmd.Angles[:])
	pm.Cmd.ForwardMove = s.getInt(pmCmdForward)
	pm.Cmd.SideMove = s.getInt(pmCmdSide)
	pm.Cmd.UpMove = s.getInt(pmCmdUp)
	pm.Cmd.Impulse = s.getInt(pmCmdImpulse)
	pm.Cmd.LightLevel = s.getInt(pmCmdLightLevel)

	pm.SnapInitial = s.getInt(pmSnapInitial) != 0
	pm.GroundEntity = progs.EntityInvalid
}

func (s *slots) writePmove(pm *host.Pmove, ents *progs.Entities) {
	s.setInt(pmType, pm.State.Type)
	s.setInts(pmOrigin, pm.State.Origin[:])
	s.setInts(pmVelocity, pm.State.Velocity[:])
	s.setInt(pmFlags, pm.State.Flags)
	s.setInt(pmTime, pm.State.Time)
	s.setInt(pmGravity, pm.State.Gravity)
	s.setInts(pmDeltaAngles, pm.State.DeltaAngles[:])

	touches := pm.TouchEnts
	if len(touches) > host.MaxTouch {
		touches = touches[:host.MaxTouch]
	}
	s.setInt(pmNumTouch, int32(len(touches)))
	for i, ent := range touches {
		s.setInt(pmTouchEnts+uint32(i), int32(toScript(ent, ents)))
	}

	s.setVector(pmViewAngles, pm.ViewAngles)
	s.setFloat(pmViewHeight, pm.ViewHeight)
	s.setVector(pmMins, pm.Mins)
	s.setVector(pmMaxs, pm.Maxs)
	s.setInt(pmGroundEntity, int32(toScript(pm.GroundEntity, ents)))
	s.setInt(pmWaterType, pm.WaterType)
	s.setInt(pmWaterLevel, pm.WaterLevel)
}

// toScript maps a host entity to a script reference, using EntityInvalid
// for "none" and for anything outside the active range.
func toScript(ent progs.EntityRef, ents *progs.Entities) progs.EntityRef {
	if !ents.Valid(ent) {
		return progs.EntityInvalid
	}
	return ent
}
