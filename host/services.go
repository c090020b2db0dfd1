package host

import "github.com/wippyai/qcvm-bridge/progs"

// Spatial answers area queries and maintains the spatial index.
type Spatial interface {
	// BoxEdicts returns at most maxCount entities touching the box.
	BoxEdicts(mins, maxs Vec3, maxCount int, area int32) []progs.EntityRef
	LinkEntity(ent progs.EntityRef)
	UnlinkEntity(ent progs.EntityRef)
	InPVS(a, b Vec3) bool
	InPHS(a, b Vec3) bool
	SetAreaPortalState(portal int32, open bool)
	AreasConnected(a, b int32) bool
}

// Collision runs world collision tests.
type Collision interface {
	Trace(start, mins, maxs, end Vec3, pass progs.EntityRef, mask int32) Trace
	PointContents(pos Vec3) int32
}

// Assets maps resource names to precache indices.
type Assets interface {
	ModelIndex(name string) int32
	SoundIndex(name string) int32
	ImageIndex(name string) int32
	SetModel(ent progs.EntityRef, name string)
	ConfigString(index int32, value string)
}

// PmoveCallbacks are the decision points movement simulation delegates
// back to the caller.
type PmoveCallbacks interface {
	Trace(start, mins, maxs, end Vec3) Trace
	PointContents(pos Vec3) int32
}

// Movement runs player movement simulation.
type Movement interface {
	Pmove(pm *Pmove, cb PmoveCallbacks)
}

// Messages writes to the outgoing network message.
type Messages interface {
	WriteChar(v int32)
	WriteUint8(v int32)
	WriteShort(v int32)
	WriteLong(v int32)
	WriteFloat(v float32)
	WriteString(s string)
	WritePosition(v Vec3)
	WriteDir(v Vec3)
	WriteAngle(v float32)
	Multicast(origin Vec3, to int32)
	Unicast(ent progs.EntityRef, reliable bool)
}

// Printer delivers formatted text.
type Printer interface {
	Bprintf(level int32, msg string)
	Dprintf(msg string)
	Cprintf(ent progs.EntityRef, level int32, msg string)
	Centerprintf(ent progs.EntityRef, msg string)
	// Error reports a script error. The calling script is aborted afterward.
	Error(msg string)
}

// Sounds starts sounds.
type Sounds interface {
	Sound(ent progs.EntityRef, channel, index int32, volume, attenuation, timeOffset float32)
	PositionedSound(origin Vec3, ent progs.EntityRef, channel, index int32, volume, attenuation, timeOffset float32)
}

// Cvars looks up and updates configuration variables.
type Cvars interface {
	// Cvar finds or creates a variable. The returned pointer stays valid
	// for the life of the host.
	Cvar(name, value string, flags int32) *Cvar
	CvarSet(name, value string)
	CvarForceSet(name, value string)
}

// Commands exposes the current console command line.
type Commands interface {
	Argc() int32
	Argv(n int32) string
	Args() string
}

// Clients synchronizes per-client state derived from entity fields.
type Clients interface {
	SyncPlayerState(ent progs.EntityRef)
}

// Services is everything a game host provides.
type Services interface {
	Spatial
	Collision
	Assets
	Movement
	Messages
	Printer
	Sounds
	Cvars
	Commands
	Clients
}
