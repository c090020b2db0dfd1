package intern

import (
	"fmt"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/errors"
)

type entry struct {
	text string
	refs int32
}

// Table is the string pool of one VM instance. It is not safe for concurrent
// use; it belongs to the goroutine driving the VM.
type Table struct {
	dynamic map[int32]*entry
	byText  map[string]int32
	owners  map[uint32]int32
	onFree  func(Handle, string)
	statics []*string
	nextID  int32
	frees   uint64
}

// NewTable creates an empty string table.
func NewTable() *Table {
	return &Table{
		dynamic: make(map[int32]*entry),
		byText:  make(map[string]int32),
		owners:  make(map[uint32]int32),
		nextID:  1,
	}
}

// OnFree installs a hook called each time dynamic text is freed.
func (t *Table) OnFree(fn func(Handle, string)) {
	t.onFree = fn
}

// StoreOrFind returns the dynamic handle for text, allocating it with a
// reference count of 0 if needed. The caller must assign the handle into a
// persistent slot (or return it to the VM) before the next Collect.
func (t *Table) StoreOrFind(text string) Handle {
	if text == "" {
		return Empty
	}
	if id, ok := t.byText[text]; ok {
		return Handle{raw: -id}
	}
	if t.nextID == 1<<31-1 {
		panic("intern: dynamic string ids exhausted")
	}
	id := t.nextID
	t.nextID++
	t.dynamic[id] = &entry{text: text}
	t.byText[text] = id
	return Handle{raw: -id}
}

// StoreStatic wraps host-owned text. The table reads through the pointer on
// every lookup, so the host may update the text in place.
func (t *Table) StoreStatic(text *string) Handle {
	if text == nil {
		return Empty
	}
	t.statics = append(t.statics, text)
	return Handle{raw: int32(len(t.statics))}
}

// Literal stores constant text as a static handle.
func (t *Table) Literal(text string) Handle {
	if text == "" {
		return Empty
	}
	return t.StoreStatic(&text)
}

// Handle validates a raw slot value and returns its handle.
func (t *Table) Handle(raw int32) (Handle, error) {
	h := Handle{raw: raw}
	switch {
	case h.IsEmpty():
		return h, nil
	case h.IsStatic():
		if int(raw) > len(t.statics) {
			return Empty, errors.OutOfRange(errors.PhaseIntern, []string{"static"}, int(raw), len(t.statics))
		}
		return h, nil
	default:
		if _, ok := t.dynamic[h.id()]; !ok {
			return Empty, errors.New(errors.PhaseIntern, errors.KindOutOfRange).
				Value(raw).
				Detail("dynamic string %d is not live", raw).
				Build()
		}
		return h, nil
	}
}

// Get resolves a raw slot value to its text.
func (t *Table) Get(raw int32) (string, error) {
	h, err := t.Handle(raw)
	if err != nil {
		return "", err
	}
	switch {
	case h.IsEmpty():
		return "", nil
	case h.IsStatic():
		return *t.statics[raw-1], nil
	default:
		return t.dynamic[h.id()].text, nil
	}
}

// RefCount returns the number of slots owning a dynamic handle.
func (t *Table) RefCount(h Handle) int32 {
	if !h.IsDynamic() {
		return 0
	}
	if e, ok := t.dynamic[h.id()]; ok {
		return e.refs
	}
	return 0
}

// Live reports whether a dynamic handle still has backing text.
func (t *Table) Live(h Handle) bool {
	if !h.IsDynamic() {
		return true
	}
	_, ok := t.dynamic[h.id()]
	return ok
}

// Len returns the number of live dynamic strings.
func (t *Table) Len() int {
	return len(t.dynamic)
}

// Statics returns the number of static handles issued.
func (t *Table) Statics() int {
	return len(t.statics)
}

// Owners returns the number of slots currently owning dynamic strings.
func (t *Table) Owners() int {
	return len(t.owners)
}

// Frees returns how many dynamic strings have been freed.
func (t *Table) Frees() uint64 {
	return t.frees
}

// Assign stores h into the persistent slot at addr. The slot's previous
// dynamic occupant is released first; a dynamic h gains the slot as owner.
func (t *Table) Assign(mem qcbridge.Memory, addr uint32, h Handle) error {
	if h.IsDynamic() {
		if _, ok := t.dynamic[h.id()]; !ok {
			return errors.New(errors.PhaseIntern, errors.KindOutOfRange).
				Value(h.raw).
				Detail("assign of freed string %d", h.raw).
				Build()
		}
		if t.owners[addr] == h.id() {
			return mem.WriteU32(addr, uint32(h.raw))
		}
	}

	t.Release(addr)

	if err := mem.WriteU32(addr, uint32(h.raw)); err != nil {
		return errors.Wrap(errors.PhaseIntern, errors.KindOutOfRange, err, fmt.Sprintf("store string at %d", addr))
	}

	if h.IsDynamic() {
		t.dynamic[h.id()].refs++
		t.owners[addr] = h.id()
	}
	return nil
}

// Release drops addr's ownership of its dynamic string, freeing the text when
// the last owner goes. Releasing a slot that owns nothing is a no-op.
func (t *Table) Release(addr uint32) {
	id, ok := t.owners[addr]
	if !ok {
		return
	}
	delete(t.owners, addr)

	e := t.dynamic[id]
	e.refs--
	if e.refs <= 0 {
		t.free(id, e)
	}
}

// Owns reports whether any of span slots starting at addr owns a string.
func (t *Table) Owns(addr, span uint32) bool {
	if len(t.owners) == 0 {
		return false
	}
	for i := uint32(0); i < span; i++ {
		if _, ok := t.owners[addr+i*qcbridge.SlotSize]; ok {
			return true
		}
	}
	return false
}

// ReleaseRange releases span consecutive slots starting at addr.
func (t *Table) ReleaseRange(addr, span uint32) {
	if len(t.owners) == 0 {
		return
	}
	for i := uint32(0); i < span; i++ {
		t.Release(addr + i*qcbridge.SlotSize)
	}
}

// Reconcile brings slot ownership for addrs in line with what memory holds.
// A slot the VM copied a live dynamic handle into becomes an owner of it; a
// slot overwritten since it was assigned gives up its old string. New owners
// are counted before old ones are released, so text that merely moved between
// slots survives. It returns the number of slots whose ownership changed.
func (t *Table) Reconcile(mem qcbridge.Memory, addrs []uint32) (int, error) {
	type change struct {
		addr uint32
		id   int32
	}
	var changes []change
	for _, a := range addrs {
		v, err := mem.ReadU32(a)
		if err != nil {
			return 0, errors.Wrap(errors.PhaseIntern, errors.KindOutOfRange, err, fmt.Sprintf("read slot at %d", a))
		}
		h := Handle{raw: int32(v)}
		id := int32(0)
		if h.IsDynamic() {
			if _, ok := t.dynamic[h.id()]; ok {
				id = h.id()
			}
		}
		if t.owners[a] == id {
			continue
		}
		changes = append(changes, change{addr: a, id: id})
	}

	var stale []int32
	for _, c := range changes {
		if old, ok := t.owners[c.addr]; ok {
			stale = append(stale, old)
			delete(t.owners, c.addr)
		}
		if c.id != 0 {
			t.dynamic[c.id].refs++
			t.owners[c.addr] = c.id
		}
	}
	for _, id := range stale {
		e := t.dynamic[id]
		e.refs--
		if e.refs <= 0 {
			t.free(id, e)
		}
	}
	return len(changes), nil
}

// Collect frees dynamic strings that never reached an owning slot. Run
// Reconcile over persistent string slots first so raw VM copies count.
func (t *Table) Collect() int {
	n := 0
	for id, e := range t.dynamic {
		if e.refs == 0 {
			t.free(id, e)
			n++
		}
	}
	return n
}

func (t *Table) free(id int32, e *entry) {
	delete(t.dynamic, id)
	delete(t.byText, e.text)
	t.frees++
	if t.onFree != nil {
		t.onFree(Handle{raw: -id}, e.text)
	}
}
