package reflection

import (
	"github.com/wippyai/qcvm-bridge/codec"
	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Parser writes untyped key/value text into typed VM storage.
type Parser struct {
	table   *Table
	codec   *codec.Codec
	globals []uint32
	fields  []uint32
	maxInfo int
}

// NewParser creates a parser. maxInfo bounds escaped string values; zero
// selects intern.MaxInfoString.
func NewParser(table *Table, c *codec.Codec, maxInfo int) *Parser {
	if maxInfo <= 0 {
		maxInfo = intern.MaxInfoString
	}
	p := &Parser{table: table, codec: c, maxInfo: maxInfo}
	layout := c.Layout()
	for _, def := range table.Globals() {
		if def.Type.Base() != progs.TypeString {
			continue
		}
		if addr := layout.GlobalAddr(def.Offset); !layout.IsFrameSlot(addr) {
			p.globals = append(p.globals, addr)
		}
	}
	for _, def := range table.Fields() {
		if def.Type.Base() == progs.TypeString {
			p.fields = append(p.fields, def.Offset)
		}
	}
	return p
}

// StringSlots lists the persistent slots typed string: string globals
// outside the call frame and string fields of every active entity.
func (p *Parser) StringSlots() []uint32 {
	num := p.codec.Entities().Num()
	addrs := make([]uint32, 0, len(p.globals)+len(p.fields)*int(num))
	addrs = append(addrs, p.globals...)
	for ent := progs.EntityRef(0); int32(ent) < num; ent++ {
		for _, id := range p.fields {
			addrs = append(addrs, p.codec.Field(ent, id))
		}
	}
	return addrs
}

// Reconcile records string handles the VM copied into string slots with
// plain stores, and drops ownership of slots it overwrote.
func (p *Parser) Reconcile() error {
	if len(p.globals) == 0 && len(p.fields) == 0 {
		return nil
	}
	_, err := p.codec.Strings().Reconcile(p.codec.Memory(), p.StringSlots())
	return err
}

// ReconcileSpan runs Reconcile when any of span slots at addr owns a string,
// so releasing them cannot free text another slot still holds.
func (p *Parser) ReconcileSpan(addr, span uint32) error {
	if !p.codec.Strings().Owns(addr, span) {
		return nil
	}
	return p.Reconcile()
}

// Table returns the reflection table the parser resolves against.
func (p *Parser) Table() *Table {
	return p.table
}

// ParseInto parses text according to def's type and stores it at addr.
// Any string previously owned by the target slots is released first.
func (p *Parser) ParseInto(def progs.Definition, text string, addr uint32) error {
	if err := p.ReconcileSpan(addr, def.Slots()); err != nil {
		return err
	}
	switch def.Type.Base() {
	case progs.TypeFloat:
		return p.codec.SetFloat(addr, ParseFloat(text))
	case progs.TypeInteger:
		return p.codec.SetInt(addr, ParseInt(text))
	case progs.TypeVector:
		prev, err := p.codec.Vector(addr)
		if err != nil {
			return err
		}
		return p.codec.SetVector(addr, codec.Vec3(ParseVector(text, prev)))
	case progs.TypeString:
		value, err := intern.Unescape(text, p.maxInfo)
		if err != nil {
			return errors.New(errors.PhaseParse, errors.KindMalformedInput).
				Path(def.Name).
				Cause(err).
				Build()
		}
		return p.codec.SetText(addr, value)
	}
	return errors.New(errors.PhaseParse, errors.KindConfiguration).
		Path(def.Name).
		VMType(def.Type.Base().String()).
		Detail("can't parse field").
		Build()
}

// ParseEntityField parses text into field id of entity ent.
func (p *Parser) ParseEntityField(ent progs.EntityRef, id int32, text string) error {
	def, err := p.table.Field(id)
	if err != nil {
		return err
	}
	return p.ParseInto(def, text, p.codec.Field(ent, uint32(id)))
}

// ParseStructKey parses text into the global "structName.key". It returns
// false, without error, when no such global exists.
func (p *Parser) ParseStructKey(structName, key, text string) (bool, error) {
	def, ok := p.table.LookupMember(structName, key)
	if !ok {
		return false, nil
	}
	if err := p.ParseInto(def, text, p.codec.Global(def.Offset)); err != nil {
		return false, err
	}
	return true, nil
}
