package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	qcbridge "github.com/wippyai/qcvm-bridge"
)

// WazeroMemory wraps wazero memory to implement qcbridge.Memory. Offsets are
// relative to base, the start of VM storage in linear memory.
type WazeroMemory struct {
	mem  api.Memory
	base uint32
}

// NewWazeroMemory adapts mem with VM storage starting at base.
func NewWazeroMemory(mem api.Memory, base uint32) *WazeroMemory {
	return &WazeroMemory{mem: mem, base: base}
}

func (m *WazeroMemory) addr(offset uint32) (uint32, error) {
	a := uint64(m.base) + uint64(offset)
	if a > uint64(^uint32(0)) {
		return 0, fmt.Errorf("offset overflow: base=%d, offset=%d", m.base, offset)
	}
	return uint32(a), nil
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	a, err := m.addr(offset)
	if err != nil {
		return nil, err
	}
	data, ok := m.mem.Read(a, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	a, err := m.addr(offset)
	if err != nil {
		return err
	}
	if !m.mem.Write(a, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	a, err := m.addr(offset)
	if err != nil {
		return 0, err
	}
	val, ok := m.mem.ReadUint32Le(a)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	a, err := m.addr(offset)
	if err != nil {
		return err
	}
	if !m.mem.WriteUint32Le(a, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

// Size returns the bytes available to VM storage.
func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil || m.mem.Size() < m.base {
		return 0
	}
	return m.mem.Size() - m.base
}

var _ qcbridge.Memory = (*WazeroMemory)(nil)
var _ qcbridge.MemorySizer = (*WazeroMemory)(nil)
