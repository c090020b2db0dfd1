package progs

import (
	"fmt"

	qcbridge "github.com/wippyai/qcvm-bridge"
)

// Well-known global slots of the call convention.
const (
	GlobalNull   uint32 = 0
	GlobalReturn uint32 = 1
	GlobalParm0  uint32 = 4
	ParmStride   uint32 = 3
	MaxParms            = 8
)

// Parm returns the global slot of parameter n.
func Parm(n int) uint32 {
	return GlobalParm0 + uint32(n)*ParmStride
}

// Layout places globals and entity records in Memory.
type Layout struct {
	GlobalsBase  uint32 // byte offset of global slot 0
	GlobalCount  uint32 // number of global slots
	EntitiesBase uint32 // byte offset of entity 0
	EntityFields uint32 // slots per entity record
	MaxEntities  uint32
}

// NewLayout packs globals followed by entity records starting at offset 0.
func NewLayout(globals, fields, maxEntities uint32) Layout {
	return Layout{
		GlobalsBase:  0,
		GlobalCount:  globals,
		EntitiesBase: globals * qcbridge.SlotSize,
		EntityFields: fields,
		MaxEntities:  maxEntities,
	}
}

// Validate checks the layout can hold the call convention and entity slot 0.
func (l Layout) Validate() error {
	if l.GlobalCount < Parm(MaxParms) {
		return fmt.Errorf("layout: %d globals cannot hold %d parameters", l.GlobalCount, MaxParms)
	}
	if l.EntityFields == 0 {
		return fmt.Errorf("layout: entity records need at least one field")
	}
	if l.MaxEntities == 0 {
		return fmt.Errorf("layout: max entities must be positive")
	}
	gEnd := uint64(l.GlobalsBase) + uint64(l.GlobalCount)*qcbridge.SlotSize
	eEnd := uint64(l.EntitiesBase) + uint64(l.EntityStride())*uint64(l.MaxEntities)
	if l.GlobalsBase < l.EntitiesBase && gEnd > uint64(l.EntitiesBase) {
		return fmt.Errorf("layout: globals overlap entities")
	}
	if l.EntitiesBase < l.GlobalsBase && eEnd > uint64(l.GlobalsBase) {
		return fmt.Errorf("layout: entities overlap globals")
	}
	return nil
}

// EntityStride is the size of one entity record in bytes.
func (l Layout) EntityStride() uint32 {
	return l.EntityFields * qcbridge.SlotSize
}

// TotalSlots is the number of slots needed to back this layout.
func (l Layout) TotalSlots() uint32 {
	gEnd := l.GlobalsBase + l.GlobalCount*qcbridge.SlotSize
	eEnd := l.EntitiesBase + l.EntityStride()*l.MaxEntities
	return max(gEnd, eEnd) / qcbridge.SlotSize
}

// GlobalAddr is the byte address of a global slot.
func (l Layout) GlobalAddr(slot uint32) uint32 {
	return l.GlobalsBase + slot*qcbridge.SlotSize
}

// EntityAddr is the byte address of an entity record.
func (l Layout) EntityAddr(ent EntityRef) uint32 {
	return l.EntitiesBase + uint32(ent)*l.EntityStride()
}

// FieldAddr is the byte address of a field in an entity record.
func (l Layout) FieldAddr(ent EntityRef, field uint32) uint32 {
	return l.EntityAddr(ent) + field*qcbridge.SlotSize
}

// EntityAt maps a byte address inside the entity region back to its record.
func (l Layout) EntityAt(addr uint32) (EntityRef, bool) {
	if addr < l.EntitiesBase {
		return 0, false
	}
	idx := (addr - l.EntitiesBase) / l.EntityStride()
	if idx >= l.MaxEntities {
		return 0, false
	}
	return EntityRef(idx), true
}

// IsGlobal reports whether a byte address falls in the globals region.
func (l Layout) IsGlobal(addr uint32) bool {
	return addr >= l.GlobalsBase && addr < l.GlobalsBase+l.GlobalCount*qcbridge.SlotSize
}

// IsFrameSlot reports whether addr is a call-frame slot (return value or
// parameters). Frame slots are transient and never own strings.
func (l Layout) IsFrameSlot(addr uint32) bool {
	lo := l.GlobalAddr(GlobalReturn)
	hi := l.GlobalAddr(Parm(MaxParms))
	return addr >= lo && addr < hi
}
