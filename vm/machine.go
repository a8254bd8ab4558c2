// Package vm is the register-based bytecode interpreter (component B): a
// byte-addressed call stack, a loaded-module list, a native function
// table, and the fetch-decode-execute loop in interp.go.
package vm

import (
	"encoding/binary"
	"errors"
	"math"

	"moonflower/bytecode"
)

// Sentinel runtime errors. Only TERMINATE (success or host-supplied exit
// code) and an invalid opcode are real runtime error classes per the
// design; a debug build additionally reports PC escaping text bounds as
// "runoff". Divide-by-zero and overflow inherit host (Go) semantics and
// are recovered as errIllegalOperation rather than trapped specially.
var (
	errInvalidOperation = errors.New("invalid operation")
	errRunoff           = errors.New("runoff")
	errIllegalOperation = errors.New("illegal operation at instruction")
)

// DefaultStackSize matches the host-picked size the design suggests (64
// MiB), the same order of magnitude the teacher's own VM reserves for its
// stack buffer.
const DefaultStackSize = 64 * 1024 * 1024

// Machine is the interpreter's runtime state: the stack buffer, the
// loaded modules in load order, and the native function table. A Machine
// is single-threaded and owns its stack/module list exclusively, matching
// §5's concurrency model — one Machine per independent program.
type Machine struct {
	Stack []byte

	modules []*bytecode.Module
	byName  map[string]int

	Natives NativeTable

	// Debug enables PC bounds checking and "runoff" reporting, and stack
	// address bounds checking on every frame offset access.
	Debug bool
}

// NewMachine allocates a Machine with a stack of stackSize bytes.
func NewMachine(stackSize int, debug bool) *Machine {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	return &Machine{
		Stack:  make([]byte, stackSize),
		byName: make(map[string]int),
		Debug:  debug,
	}
}

// LoadModule appends a preassembled/precompiled module and returns its
// load-order index.
func (m *Machine) LoadModule(mod *bytecode.Module) uint16 {
	idx := len(m.modules)
	m.modules = append(m.modules, mod)
	m.byName[mod.Name] = idx
	return uint16(idx)
}

// FindModule implements compiler.ModuleResolver and asm.ModuleResolver:
// both interfaces have the identical method shape, so Machine satisfies
// them without importing either package.
func (m *Machine) FindModule(name string) (uint16, *bytecode.Module, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return 0, nil, false
	}
	return uint16(idx), m.modules[idx], true
}

// ModuleAt returns the module loaded at index, or nil if out of range.
func (m *Machine) ModuleAt(index uint16) *bytecode.Module {
	if int(index) >= len(m.modules) {
		return nil
	}
	return m.modules[index]
}

func (m *Machine) checkAddr(addr int64, size int) {
	if !m.Debug {
		return
	}
	if addr < 0 || addr+int64(size) > int64(len(m.Stack)) {
		panic(errInvalidOperation)
	}
}

func (m *Machine) readI32(addr int64) int32 {
	m.checkAddr(addr, 4)
	return int32(binary.LittleEndian.Uint32(m.Stack[addr : addr+4]))
}

func (m *Machine) writeI32(addr int64, v int32) {
	m.checkAddr(addr, 4)
	binary.LittleEndian.PutUint32(m.Stack[addr:addr+4], uint32(v))
}

func (m *Machine) readF32(addr int64) float32 {
	return math.Float32frombits(uint32(m.readI32(addr)))
}

func (m *Machine) writeF32(addr int64, v float32) {
	m.writeI32(addr, int32(math.Float32bits(v)))
}

func (m *Machine) readByte(addr int64) byte {
	m.checkAddr(addr, 1)
	return m.Stack[addr]
}

func (m *Machine) writeByte(addr int64, v byte) {
	m.checkAddr(addr, 1)
	m.Stack[addr] = v
}

func (m *Machine) readBytes(addr int64, n int) []byte {
	m.checkAddr(addr, n)
	return m.Stack[addr : addr+int64(n)]
}

func (m *Machine) writeBytes(addr int64, b []byte) {
	m.checkAddr(addr, len(b))
	copy(m.Stack[addr:addr+int64(len(b))], b)
}

func (m *Machine) readAddr(addr int64) bytecode.ProgramAddress {
	m.checkAddr(addr, 4)
	var buf [4]byte
	copy(buf[:], m.Stack[addr:addr+4])
	return bytecode.ProgramAddress{
		Module: binary.LittleEndian.Uint16(buf[0:2]),
		Offset: binary.LittleEndian.Uint16(buf[2:4]),
	}
}

func (m *Machine) writeAddr(addr int64, pa bytecode.ProgramAddress) {
	m.checkAddr(addr, 4)
	binary.LittleEndian.PutUint16(m.Stack[addr:addr+2], pa.Module)
	binary.LittleEndian.PutUint16(m.Stack[addr+2:addr+4], pa.Offset)
}

func (m *Machine) readU16(addr int64) uint16 {
	m.checkAddr(addr, 2)
	return binary.LittleEndian.Uint16(m.Stack[addr : addr+2])
}

func (m *Machine) writeU16(addr int64, v uint16) {
	m.checkAddr(addr, 2)
	binary.LittleEndian.PutUint16(m.Stack[addr:addr+2], v)
}

func (m *Machine) readPolyFunc(addr int64) bytecode.PolyFunc {
	m.checkAddr(addr, bytecode.PolyFuncSize)
	var buf [bytecode.PolyFuncSize]byte
	copy(buf[:], m.Stack[addr:addr+bytecode.PolyFuncSize])
	return bytecode.DecodePolyFunc(buf)
}
