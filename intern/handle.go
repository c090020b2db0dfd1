package intern

// Handle is an opaque reference to a string in a Table. Only a Table can
// construct non-empty handles. The zero Handle is the empty string.
type Handle struct {
	raw int32
}

// Empty is the handle of the empty string.
var Empty = Handle{}

// Raw returns the slot encoding of the handle.
func (h Handle) Raw() int32 {
	return h.raw
}

// IsEmpty reports whether h is the empty string.
func (h Handle) IsEmpty() bool {
	return h.raw == 0
}

// IsStatic reports whether h wraps host-owned text.
func (h Handle) IsStatic() bool {
	return h.raw > 0
}

// IsDynamic reports whether h is reference-counted.
func (h Handle) IsDynamic() bool {
	return h.raw < 0
}

func (h Handle) id() int32 {
	return -h.raw
}
