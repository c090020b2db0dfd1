// Package enginetest encodes small WebAssembly guests for tests. Every
// guest imports qcvm.builtin, exports one page of memory named "memory", and
// exports () -> () functions.
package enginetest

// MemoryOnly is a module with a single exported one-page memory and nothing
// else.
var MemoryOnly = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

// Func is one exported guest function.
type Func struct {
	Name string
	Code []byte
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if done {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func encName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(body)))...)
	return append(out, body...)
}

func i32Const(v int32) []byte {
	return append([]byte{0x41}, sleb(v)...)
}

// CallBuiltin calls qcvm.builtin(num, argc).
func CallBuiltin(num, argc int32) []byte {
	out := i32Const(num)
	out = append(out, i32Const(argc)...)
	return append(out, 0x10, 0x00)
}

// Store writes v to the i32 at addr.
func Store(addr uint32, v int32) []byte {
	out := i32Const(int32(addr))
	out = append(out, i32Const(v)...)
	return append(out, 0x36, 0x02, 0x00)
}

// Unreachable traps.
func Unreachable() []byte { return []byte{0x00} }

// Body concatenates instructions.
func Body(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Build encodes a guest exporting funcs in order.
func Build(funcs ...Func) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// type 0: (i32 i32) -> (), type 1: () -> ()
	out = append(out, section(1, []byte{0x02, 0x60, 0x02, 0x7f, 0x7f, 0x00, 0x60, 0x00, 0x00})...)

	imp := []byte{0x01}
	imp = append(imp, encName("qcvm")...)
	imp = append(imp, encName("builtin")...)
	imp = append(imp, 0x00, 0x00)
	out = append(out, section(2, imp)...)

	fn := uleb(uint32(len(funcs)))
	for range funcs {
		fn = append(fn, 0x01)
	}
	out = append(out, section(3, fn)...)

	out = append(out, section(5, []byte{0x01, 0x00, 0x01})...)

	exp := uleb(uint32(len(funcs) + 1))
	exp = append(exp, encName("memory")...)
	exp = append(exp, 0x02, 0x00)
	for i, f := range funcs {
		exp = append(exp, encName(f.Name)...)
		exp = append(exp, 0x00)
		exp = append(exp, uleb(uint32(i+1))...)
	}
	out = append(out, section(7, exp)...)

	code := uleb(uint32(len(funcs)))
	for _, f := range funcs {
		b := append([]byte{0x00}, f.Code...)
		b = append(b, 0x0b)
		code = append(code, uleb(uint32(len(b)))...)
		code = append(code, b...)
	}
	return append(out, section(10, code)...)
}
