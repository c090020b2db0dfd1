package progs

import (
	"fmt"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/errors"
)

// Releaser drops string ownership for a span of slots before they are zeroed.
type Releaser interface {
	ReleaseRange(addr, span uint32)
}

// Entities manages the fixed-stride entity records in Memory. Slot 0 of every
// record holds the record's own index.
type Entities struct {
	mem        qcbridge.Memory
	clients    []any
	attached   []any
	layout     Layout
	num        int32
	maxClients int32
}

// NewEntities binds entity records to mem and stamps every record's index.
func NewEntities(mem qcbridge.Memory, layout Layout, maxClients int32) (*Entities, error) {
	if maxClients < 0 || uint32(maxClients) >= layout.MaxEntities {
		return nil, fmt.Errorf("entities: %d clients do not fit in %d entities", maxClients, layout.MaxEntities)
	}
	e := &Entities{
		mem:        mem,
		layout:     layout,
		maxClients: maxClients,
		attached:   make([]any, layout.MaxEntities),
		num:        maxClients + 1,
	}
	for i := uint32(0); i < layout.MaxEntities; i++ {
		if err := mem.WriteU32(layout.EntityAddr(EntityRef(i)), i); err != nil {
			return nil, fmt.Errorf("entities: stamp %d: %w", i, err)
		}
	}
	return e, nil
}

// Layout returns the storage layout.
func (e *Entities) Layout() Layout {
	return e.layout
}

// Num is the size of the active entity range.
func (e *Entities) Num() int32 {
	return e.num
}

// Max is the number of entity records.
func (e *Entities) Max() int32 {
	return int32(e.layout.MaxEntities)
}

// MaxClients is the number of client entities following world.
func (e *Entities) MaxClients() int32 {
	return e.maxClients
}

// SetNum changes the active range.
func (e *Entities) SetNum(n int32) error {
	if n < 1 || n > e.Max() {
		return errors.OutOfRange(errors.PhaseBuiltin, []string{"entities", "num"}, int(n), int(e.Max())+1)
	}
	e.num = n
	return nil
}

// Valid reports whether ref addresses world or an active entity.
func (e *Entities) Valid(ref EntityRef) bool {
	return ref >= 0 && int32(ref) < e.num
}

// SetClients installs host-side per-client data. clients[i] belongs to
// entity i+1 and is attached immediately.
func (e *Entities) SetClients(clients []any) error {
	if int32(len(clients)) > e.maxClients {
		return fmt.Errorf("entities: %d clients exceed max %d", len(clients), e.maxClients)
	}
	e.clients = clients
	for i, c := range clients {
		e.attached[i+1] = c
	}
	return nil
}

// Client returns the host data attached to an entity, if any.
func (e *Entities) Client(ref EntityRef) any {
	if ref < 0 || uint32(ref) >= e.layout.MaxEntities {
		return nil
	}
	return e.attached[ref]
}

// Number reads slot 0 of an entity record.
func (e *Entities) Number(ref EntityRef) (EntityRef, error) {
	v, err := e.mem.ReadU32(e.layout.EntityAddr(ref))
	if err != nil {
		return 0, err
	}
	return EntityRef(int32(v)), nil
}

// Clear zeroes an entity record, keeping its index and re-attaching client
// data for client slots. rel drops string ownership before the zeroing.
func (e *Entities) Clear(ref EntityRef, rel Releaser) error {
	if ref < 0 || uint32(ref) >= e.layout.MaxEntities {
		return errors.OutOfRange(errors.PhaseBuiltin, []string{"entities", "clear"}, int(ref), int(e.layout.MaxEntities))
	}
	addr := e.layout.EntityAddr(ref)

	number, err := e.Number(ref)
	if err != nil {
		return err
	}

	if rel != nil {
		rel.ReleaseRange(addr, e.layout.EntityFields)
	}
	if err := qcbridge.Zero(e.mem, addr, e.layout.EntityStride()); err != nil {
		return err
	}
	if err := e.mem.WriteU32(addr, uint32(number)); err != nil {
		return err
	}

	e.attached[ref] = nil
	if number > 0 && int32(number) <= e.maxClients && int(number) <= len(e.clients) {
		e.attached[ref] = e.clients[number-1]
	}
	return nil
}
