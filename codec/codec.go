package codec

import (
	"fmt"
	"math"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Vec3 is a three-component vector occupying three consecutive slots.
type Vec3 [3]float32

// String pairs a handle with its resolved text.
type String struct {
	Text   string
	Handle intern.Handle
}

// Codec reads and writes typed values in VM storage.
type Codec struct {
	mem      qcbridge.Memory
	strings  *intern.Table
	entities *progs.Entities
	layout   progs.Layout
}

// New creates a codec over the storage described by entities' layout.
func New(mem qcbridge.Memory, strings *intern.Table, entities *progs.Entities) *Codec {
	return &Codec{
		mem:      mem,
		strings:  strings,
		entities: entities,
		layout:   entities.Layout(),
	}
}

// Memory returns the underlying storage.
func (c *Codec) Memory() qcbridge.Memory {
	return c.mem
}

// Strings returns the intern table.
func (c *Codec) Strings() *intern.Table {
	return c.strings
}

// Entities returns the entity records.
func (c *Codec) Entities() *progs.Entities {
	return c.entities
}

// Layout returns the storage layout.
func (c *Codec) Layout() progs.Layout {
	return c.layout
}

// Global returns the byte address of a global slot.
func (c *Codec) Global(slot uint32) uint32 {
	return c.layout.GlobalAddr(slot)
}

// Field returns the byte address of an entity field.
func (c *Codec) Field(ent progs.EntityRef, field uint32) uint32 {
	return c.layout.FieldAddr(ent, field)
}

func (c *Codec) load(addr uint32) (uint32, error) {
	v, err := c.mem.ReadU32(addr)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCodec, errors.KindOutOfRange, err, fmt.Sprintf("read slot at %d", addr))
	}
	return v, nil
}

func (c *Codec) store(addr, span uint32) func(uint32) error {
	if !c.layout.IsFrameSlot(addr) {
		c.strings.ReleaseRange(addr, span)
	}
	return func(v uint32) error {
		if err := c.mem.WriteU32(addr, v); err != nil {
			return errors.Wrap(errors.PhaseCodec, errors.KindOutOfRange, err, fmt.Sprintf("write slot at %d", addr))
		}
		addr += qcbridge.SlotSize
		return nil
	}
}

// Float reads a float slot.
func (c *Codec) Float(addr uint32) (float32, error) {
	v, err := c.load(addr)
	return math.Float32frombits(v), err
}

// Int reads an integer slot.
func (c *Codec) Int(addr uint32) (int32, error) {
	v, err := c.load(addr)
	return int32(v), err
}

// Vector reads three consecutive float slots.
func (c *Codec) Vector(addr uint32) (Vec3, error) {
	var out Vec3
	for i := range out {
		v, err := c.load(addr + uint32(i)*qcbridge.SlotSize)
		if err != nil {
			return Vec3{}, err
		}
		out[i] = math.Float32frombits(v)
	}
	return out, nil
}

// Entity reads an entity reference; it must address world or an active entity.
func (c *Codec) Entity(addr uint32) (progs.EntityRef, error) {
	v, err := c.load(addr)
	if err != nil {
		return 0, err
	}
	ref := progs.EntityRef(int32(v))
	if !c.entities.Valid(ref) {
		return 0, errors.OutOfRange(errors.PhaseCodec, []string{"entity"}, int(ref), int(c.entities.Num()))
	}
	return ref, nil
}

// Handle reads a string slot as a validated handle.
func (c *Codec) Handle(addr uint32) (intern.Handle, error) {
	v, err := c.load(addr)
	if err != nil {
		return intern.Empty, err
	}
	return c.strings.Handle(int32(v))
}

// String reads a string slot and resolves its text.
func (c *Codec) String(addr uint32) (string, error) {
	v, err := c.load(addr)
	if err != nil {
		return "", err
	}
	return c.strings.Get(int32(v))
}

// SetFloat writes a float slot.
func (c *Codec) SetFloat(addr uint32, v float32) error {
	return c.store(addr, 1)(math.Float32bits(v))
}

// SetInt writes an integer slot.
func (c *Codec) SetInt(addr uint32, v int32) error {
	return c.store(addr, 1)(uint32(v))
}

// SetVector writes three consecutive float slots.
func (c *Codec) SetVector(addr uint32, v Vec3) error {
	put := c.store(addr, 3)
	for _, f := range v {
		if err := put(math.Float32bits(f)); err != nil {
			return err
		}
	}
	return nil
}

// SetEntity writes an entity reference.
func (c *Codec) SetEntity(addr uint32, ref progs.EntityRef) error {
	return c.store(addr, 1)(uint32(int32(ref)))
}

// SetString writes a string handle. Persistent slots become owners.
func (c *Codec) SetString(addr uint32, h intern.Handle) error {
	if c.layout.IsFrameSlot(addr) {
		if _, err := c.strings.Handle(h.Raw()); err != nil {
			return err
		}
		return c.store(addr, 1)(uint32(h.Raw()))
	}
	return c.strings.Assign(c.mem, addr, h)
}

// SetText interns text and writes its handle.
func (c *Codec) SetText(addr uint32, text string) error {
	return c.SetString(addr, c.strings.StoreOrFind(text))
}

// Read decodes the slot at addr as the given type.
func (c *Codec) Read(addr uint32, t progs.Type) (any, error) {
	switch t.Base() {
	case progs.TypeFloat:
		return c.Float(addr)
	case progs.TypeInteger, progs.TypeField, progs.TypePointer:
		return c.Int(addr)
	case progs.TypeFunction:
		v, err := c.Int(addr)
		return progs.FuncRef(v), err
	case progs.TypeVector:
		return c.Vector(addr)
	case progs.TypeEntity:
		return c.Entity(addr)
	case progs.TypeString:
		h, err := c.Handle(addr)
		if err != nil {
			return nil, err
		}
		text, err := c.strings.Get(h.Raw())
		return String{Handle: h, Text: text}, err
	}
	return nil, errors.Unsupported(errors.PhaseCodec, fmt.Sprintf("read of %s", t))
}

// ReadDef reads a definition's storage, requiring its tag to match expected.
func (c *Codec) ReadDef(addr uint32, def progs.Definition, expected progs.Type) (any, error) {
	if def.Type.Base() != expected.Base() {
		return nil, errors.TypeMismatch(errors.PhaseCodec, []string{def.Name}, expected.String(), def.Type.String())
	}
	return c.Read(addr, expected)
}

// Write encodes a native value into the slot at addr.
func (c *Codec) Write(addr uint32, v any) error {
	switch v := v.(type) {
	case float32:
		return c.SetFloat(addr, v)
	case int32:
		return c.SetInt(addr, v)
	case bool:
		var i int32
		if v {
			i = 1
		}
		return c.SetInt(addr, i)
	case Vec3:
		return c.SetVector(addr, v)
	case progs.EntityRef:
		return c.SetEntity(addr, v)
	case progs.FuncRef:
		return c.SetInt(addr, int32(v))
	case intern.Handle:
		return c.SetString(addr, v)
	case String:
		return c.SetString(addr, v.Handle)
	case string:
		return c.SetText(addr, v)
	}
	return errors.New(errors.PhaseCodec, errors.KindTypeMismatch).
		Detail("cannot encode %T", v).
		Build()
}
