package builtins

import (
	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/host"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/reflection"
	"github.com/wippyai/qcvm-bridge/resource"
)

// Vec3 is a three-component vector.
type Vec3 = codec.Vec3

type cvarRef struct {
	cvar    *host.Cvar
	name    intern.Handle
	value   intern.Handle
	latched intern.Handle
}

type surfaceRef struct {
	surface *host.Surface
	name    intern.Handle
}

// Env is the per-instance state builtins operate on.
type Env struct {
	codec    *codec.Codec
	parser   *reflection.Parser
	host     host.Services
	handles  *resource.Table
	boxes    *resource.TypedTable[[]progs.EntityRef]
	surfaces *resource.TypedTable[*surfaceRef]
	surfIDs  map[*host.Surface]resource.Handle
	cvars    []cvarRef
	cvarIDs  map[*host.Cvar]int32
	trace    host.Trace
}

// NewEnv creates builtin state over one VM instance's storage.
func NewEnv(c *codec.Codec, p *reflection.Parser, services host.Services, handles *resource.Table) *Env {
	return &Env{
		codec:    c,
		parser:   p,
		host:     services,
		handles:  handles,
		boxes:    resource.NewTypedTable[[]progs.EntityRef](handles, resource.KindBoxEdicts),
		surfaces: resource.NewTypedTable[*surfaceRef](handles, resource.KindSurface),
		surfIDs:  make(map[*host.Surface]resource.Handle),
		cvarIDs:  make(map[*host.Cvar]int32),
		trace:    host.NoHit(host.Vec3{}),
	}
}

func (e *Env) Codec() *codec.Codec        { return e.codec }
func (e *Env) Parser() *reflection.Parser { return e.parser }
func (e *Env) Host() host.Services        { return e.host }
func (e *Env) Handles() *resource.Table   { return e.handles }
func (e *Env) Strings() *intern.Table     { return e.codec.Strings() }
func (e *Env) Entities() *progs.Entities  { return e.codec.Entities() }
func (e *Env) LastTrace() host.Trace      { return e.trace }
func (e *Env) SetLastTrace(t host.Trace)  { e.trace = t }
func (e *Env) Cvars() int                 { return len(e.cvars) }

// surfaceHandle returns a stable handle for a host surface. Surfaces are
// world data, so each gets one handle for the life of the instance.
func (e *Env) surfaceHandle(s *host.Surface) (resource.Handle, error) {
	if s == nil {
		return 0, nil
	}
	if h, ok := e.surfIDs[s]; ok {
		return h, nil
	}
	h, err := e.surfaces.Insert(&surfaceRef{surface: s, name: e.Strings().StoreStatic(&s.Name)})
	if err != nil {
		return 0, err
	}
	e.surfIDs[s] = h
	return h, nil
}
