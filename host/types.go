package host

import (
	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Vec3 is a position, direction or angle triple.
type Vec3 = codec.Vec3

// Plane is the collision plane hit by a trace.
type Plane struct {
	Normal   Vec3
	Dist     float32
	Type     uint8
	SignBits uint8
}

// Surface describes the brush face hit by a trace.
type Surface struct {
	Name  string
	Flags int32
	Value int32
}

// Trace is the result of a swept box test. Fraction 1 means nothing was hit.
type Trace struct {
	Surface    *Surface
	Plane      Plane
	EndPos     Vec3
	Fraction   float32
	Contents   int32
	Ent        progs.EntityRef
	AllSolid   bool
	StartSolid bool
}

// NoHit returns the trace of an unobstructed move that ends at end.
func NoHit(end Vec3) Trace {
	return Trace{Fraction: 1, EndPos: end, Ent: progs.EntityInvalid}
}

// Cvar is a host-owned configuration variable. The host updates the fields
// in place; scripts read String and LatchedString through static handles.
type Cvar struct {
	Name          string
	String        string
	LatchedString string
	Value         float32
	Flags         int32
	Modified      bool
}

// PmoveState is the networked part of player movement. Origin and velocity
// are in 1/8 units.
type PmoveState struct {
	Origin      [3]int32
	Velocity    [3]int32
	DeltaAngles [3]int32
	Type        int32
	Flags       int32
	Time        int32
	Gravity     int32
}

// UserCmd is one client input frame.
type UserCmd struct {
	Angles      [3]int32
	Msec        int32
	Buttons     int32
	ForwardMove int32
	SideMove    int32
	UpMove      int32
	Impulse     int32
	LightLevel  int32
}

// MaxTouch bounds the entities one movement step can report.
const MaxTouch = 32

// Pmove carries movement input and output.
type Pmove struct {
	TouchEnts    []progs.EntityRef
	State        PmoveState
	Cmd          UserCmd
	ViewAngles   Vec3
	Mins         Vec3
	Maxs         Vec3
	ViewHeight   float32
	GroundEntity progs.EntityRef
	WaterType    int32
	WaterLevel   int32
	SnapInitial  bool
}
