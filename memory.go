package qcbridge

import (
	"encoding/binary"
	"fmt"
)

// SlotSize is the width of one VM storage slot in bytes.
const SlotSize = 4

// Memory represents VM-visible storage (globals and entity fields).
// Offsets are in bytes; values are little-endian.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
}

// MemorySizer provides the current size of VM storage in bytes.
type MemorySizer interface {
	Size() uint32
}

// SliceMemory is a Memory backed by a Go byte slice.
type SliceMemory struct {
	data []byte
}

// NewSliceMemory allocates storage for the given number of slots.
func NewSliceMemory(slots uint32) *SliceMemory {
	return &SliceMemory{data: make([]byte, int(slots)*SlotSize)}
}

func (m *SliceMemory) bounds(offset, length uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return fmt.Errorf("access out of bounds: offset=%d, length=%d, size=%d", offset, length, len(m.data))
	}
	return nil
}

func (m *SliceMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.bounds(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *SliceMemory) Write(offset uint32, data []byte) error {
	if err := m.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *SliceMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *SliceMemory) WriteU32(offset uint32, value uint32) error {
	if err := m.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *SliceMemory) Size() uint32 {
	return uint32(len(m.data))
}

// Zero clears length bytes starting at offset.
func Zero(mem Memory, offset, length uint32) error {
	if length == 0 {
		return nil
	}
	return mem.Write(offset, make([]byte, length))
}

var _ Memory = (*SliceMemory)(nil)
var _ MemorySizer = (*SliceMemory)(nil)
