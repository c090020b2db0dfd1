// Package resource manages opaque handles to host-side values.
//
// Scripts cannot hold Go pointers, so host values such as the result of an
// area query or a trace surface are stored in a Table and the script gets a
// Handle: an int32 that fits one VM slot.
//
//	table := resource.NewTable()
//	boxes := resource.NewTypedTable[[]progs.EntityRef](table, resource.KindBoxEdicts)
//
//	h, err := boxes.Insert(list)
//	list, err := boxes.Get(h)
//	_, err = boxes.Remove(h)
//
// # Validation
//
// Every handle carries a generation. Removing a value advances the
// generation of its entry, so a stale handle is rejected even after the
// entry is reused. Handles of one Kind are rejected where another Kind is
// expected. Both failures are out-of-range errors from the errors package.
//
// # Lifetime
//
// Values are not garbage collected. The script must remove what it
// creates; Clear drops everything, and Close additionally stops inserts.
// Values implementing Dropper are notified on removal.
package resource
