// Package hosttest provides a recording host.Services for tests.
package hosttest

import (
	"fmt"
	"strings"

	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Call is one recorded host call.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Fake implements host.Services. Every call is recorded; behavior can be
// overridden through the function fields.
type Fake struct {
	BoxEdictsFunc     func(mins, maxs host.Vec3, maxCount int, area int32) []progs.EntityRef
	TraceFunc         func(start, mins, maxs, end host.Vec3, pass progs.EntityRef, mask int32) host.Trace
	PointContentsFunc func(pos host.Vec3) int32
	PmoveFunc         func(pm *host.Pmove, cb host.PmoveCallbacks)

	Indices     map[string]int32
	Cvars       map[string]*host.Cvar
	CommandLine []string

	Calls []Call
}

// New returns a Fake with empty tables.
func New() *Fake {
	return &Fake{
		Indices: make(map[string]int32),
		Cvars:   make(map[string]*host.Cvar),
	}
}

func (f *Fake) record(name string, args ...any) {
	f.Calls = append(f.Calls, Call{Name: name, Args: args})
}

// Count returns how many times name was called.
func (f *Fake) Count(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Last returns the most recent call to name.
func (f *Fake) Last(name string) (Call, bool) {
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Name == name {
			return f.Calls[i], true
		}
	}
	return Call{}, false
}

func (f *Fake) BoxEdicts(mins, maxs host.Vec3, maxCount int, area int32) []progs.EntityRef {
	f.record("BoxEdicts", mins, maxs, maxCount, area)
	if f.BoxEdictsFunc != nil {
		return f.BoxEdictsFunc(mins, maxs, maxCount, area)
	}
	return nil
}

func (f *Fake) LinkEntity(ent progs.EntityRef)   { f.record("LinkEntity", ent) }
func (f *Fake) UnlinkEntity(ent progs.EntityRef) { f.record("UnlinkEntity", ent) }

func (f *Fake) InPVS(a, b host.Vec3) bool {
	f.record("InPVS", a, b)
	return true
}

func (f *Fake) InPHS(a, b host.Vec3) bool {
	f.record("InPHS", a, b)
	return true
}

func (f *Fake) SetAreaPortalState(portal int32, open bool) {
	f.record("SetAreaPortalState", portal, open)
}

func (f *Fake) AreasConnected(a, b int32) bool {
	f.record("AreasConnected", a, b)
	return a == b
}

func (f *Fake) Trace(start, mins, maxs, end host.Vec3, pass progs.EntityRef, mask int32) host.Trace {
	f.record("Trace", start, mins, maxs, end, pass, mask)
	if f.TraceFunc != nil {
		return f.TraceFunc(start, mins, maxs, end, pass, mask)
	}
	return host.NoHit(end)
}

func (f *Fake) PointContents(pos host.Vec3) int32 {
	f.record("PointContents", pos)
	if f.PointContentsFunc != nil {
		return f.PointContentsFunc(pos)
	}
	return 0
}

func (f *Fake) index(kind, name string) int32 {
	key := kind + ":" + name
	if i, ok := f.Indices[key]; ok {
		return i
	}
	i := int32(len(f.Indices) + 1)
	f.Indices[key] = i
	return i
}

func (f *Fake) ModelIndex(name string) int32 {
	f.record("ModelIndex", name)
	return f.index("model", name)
}

func (f *Fake) SoundIndex(name string) int32 {
	f.record("SoundIndex", name)
	return f.index("sound", name)
}

func (f *Fake) ImageIndex(name string) int32 {
	f.record("ImageIndex", name)
	return f.index("image", name)
}

func (f *Fake) SetModel(ent progs.EntityRef, name string) { f.record("SetModel", ent, name) }
func (f *Fake) ConfigString(index int32, value string)    { f.record("ConfigString", index, value) }

func (f *Fake) Pmove(pm *host.Pmove, cb host.PmoveCallbacks) {
	f.record("Pmove")
	if f.PmoveFunc != nil {
		f.PmoveFunc(pm, cb)
	}
}

func (f *Fake) WriteChar(v int32)         { f.record("WriteChar", v) }
func (f *Fake) WriteUint8(v int32)        { f.record("WriteUint8", v) }
func (f *Fake) WriteShort(v int32)        { f.record("WriteShort", v) }
func (f *Fake) WriteLong(v int32)         { f.record("WriteLong", v) }
func (f *Fake) WriteFloat(v float32)      { f.record("WriteFloat", v) }
func (f *Fake) WriteString(s string)      { f.record("WriteString", s) }
func (f *Fake) WritePosition(v host.Vec3) { f.record("WritePosition", v) }
func (f *Fake) WriteDir(v host.Vec3)      { f.record("WriteDir", v) }
func (f *Fake) WriteAngle(v float32)      { f.record("WriteAngle", v) }

func (f *Fake) Multicast(origin host.Vec3, to int32) { f.record("Multicast", origin, to) }

func (f *Fake) Unicast(ent progs.EntityRef, reliable bool) { f.record("Unicast", ent, reliable) }

func (f *Fake) Bprintf(level int32, msg string) { f.record("Bprintf", level, msg) }
func (f *Fake) Dprintf(msg string)              { f.record("Dprintf", msg) }

func (f *Fake) Cprintf(ent progs.EntityRef, level int32, msg string) {
	f.record("Cprintf", ent, level, msg)
}

func (f *Fake) Centerprintf(ent progs.EntityRef, msg string) { f.record("Centerprintf", ent, msg) }
func (f *Fake) Error(msg string)                             { f.record("Error", msg) }

func (f *Fake) Sound(ent progs.EntityRef, channel, index int32, volume, attenuation, timeOffset float32) {
	f.record("Sound", ent, channel, index, volume, attenuation, timeOffset)
}

func (f *Fake) PositionedSound(origin host.Vec3, ent progs.EntityRef, channel, index int32, volume, attenuation, timeOffset float32) {
	f.record("PositionedSound", origin, ent, channel, index, volume, attenuation, timeOffset)
}

func (f *Fake) Cvar(name, value string, flags int32) *host.Cvar {
	f.record("Cvar", name, value, flags)
	if cv, ok := f.Cvars[name]; ok {
		return cv
	}
	cv := &host.Cvar{Name: name, String: value, Value: parseValue(value), Flags: flags}
	f.Cvars[name] = cv
	return cv
}

func (f *Fake) set(name, value string) {
	cv, ok := f.Cvars[name]
	if !ok {
		cv = &host.Cvar{Name: name}
		f.Cvars[name] = cv
	}
	cv.String = value
	cv.Value = parseValue(value)
	cv.Modified = true
}

func (f *Fake) CvarSet(name, value string) {
	f.record("CvarSet", name, value)
	f.set(name, value)
}

func (f *Fake) CvarForceSet(name, value string) {
	f.record("CvarForceSet", name, value)
	f.set(name, value)
}

func (f *Fake) Argc() int32 {
	f.record("Argc")
	return int32(len(f.CommandLine))
}

func (f *Fake) Argv(n int32) string {
	f.record("Argv", n)
	if n < 0 || int(n) >= len(f.CommandLine) {
		return ""
	}
	return f.CommandLine[n]
}

func (f *Fake) Args() string {
	f.record("Args")
	if len(f.CommandLine) < 2 {
		return ""
	}
	return strings.Join(f.CommandLine[1:], " ")
}

func (f *Fake) SyncPlayerState(ent progs.EntityRef) { f.record("SyncPlayerState", ent) }

func parseValue(s string) float32 {
	var v float32
	_, _ = fmt.Sscan(s, &v)
	return v
}

var _ host.Services = (*Fake)(nil)
