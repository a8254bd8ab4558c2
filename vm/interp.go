package vm

import (
	"fmt"
	goruntime "runtime"
	"runtime/debug"

	"moonflower/bytecode"
)

const (
	offRetAddr  = 0
	offRetStack = 4
	linkageSize = 8
)

// execState is the fetch-decode loop's mutable cursor: which module/text
// is executing, the program counter, and the current frame base — the
// four locals interp's algorithm threads through every dispatch.
type execState struct {
	m *Machine

	module  uint16
	text    []bytecode.Instruction
	data    []byte
	pc      uint16
	base    uint32
	retcode int32
	reason  string
	done    bool
}

// Execute is interp: it runs moduleIndex's function at funcOffset to
// completion and returns its exit code and, for a non-normal stop, a
// human-readable reason. retvalSize reserves room below the bootstrap
// frame for a caller that wants to read the called function's return
// value afterward.
func (m *Machine) Execute(moduleIndex uint16, funcOffset uint16, retvalSize uint16) (retcode int32, reason string) {
	mod := m.ModuleAt(moduleIndex)
	if mod == nil {
		return -1, "invalid operation"
	}

	st := &execState{
		m:      m,
		module: moduleIndex,
		text:   mod.Text,
		data:   mod.Data,
		pc:     funcOffset,
		base:   uint32(retvalSize),
	}

	st.m.writeAddr(int64(st.base)+offRetAddr, bytecode.ProgramAddress{Module: 0, Offset: 0})
	st.m.writeU16(int64(st.base)+offRetStack, 0)

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(goruntime.Error); ok {
				retcode, reason = -1, errIllegalOperation.Error()
				return
			}
			if err, ok := r.(error); ok {
				retcode, reason = -1, err.Error()
				return
			}
			retcode, reason = -1, fmt.Sprintf("%v", r)
		}
	}()

	gcPercent := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	for !st.done {
		st.step()
	}
	return st.retcode, st.reason
}

func (st *execState) operand(off int16) int64 {
	return int64(st.base) + int64(off)
}

func (st *execState) fetch() bytecode.Instruction {
	if int(st.pc) >= len(st.text) {
		if st.m.Debug {
			panic(errRunoff)
		}
		panic(errInvalidOperation)
	}
	instr := st.text[st.pc]
	st.pc++
	return instr
}

func (st *execState) step() {
	instr := st.fetch()
	m := st.m

	switch instr.Op {
	case bytecode.Terminate:
		st.retcode = instr.DI()
		st.done = true

	case bytecode.Isetc:
		m.writeI32(st.operand(instr.A), instr.DI())
	case bytecode.Fsetc:
		m.writeF32(st.operand(instr.A), instr.DF())
	case bytecode.Bsetc:
		m.writeByte(st.operand(instr.A), boolByte(instr.DB()))

	case bytecode.Setadr:
		m.writeAddr(st.operand(instr.A), instr.Addr())

	case bytecode.Setdat:
		b, c := instr.B(), instr.C()
		m.writeBytes(st.operand(instr.A), st.data[int(b):int(b)+int(c)])

	case bytecode.Cpy:
		b, c := instr.B(), instr.C()
		src := m.readBytes(st.operand(b), int(c))
		buf := make([]byte, len(src))
		copy(buf, src)
		m.writeBytes(st.operand(instr.A), buf)

	case bytecode.Iadd:
		st.binI(instr, func(a, b int32) int32 { return a + b })
	case bytecode.Isub:
		st.binI(instr, func(a, b int32) int32 { return a - b })
	case bytecode.Imul:
		st.binI(instr, func(a, b int32) int32 { return a * b })
	case bytecode.Idiv:
		st.binI(instr, func(a, b int32) int32 { return a / b })
	case bytecode.Iclt:
		a := m.readI32(st.operand(instr.B()))
		b := m.readI32(st.operand(instr.C()))
		m.writeByte(st.operand(instr.A), boolByte(a < b))

	case bytecode.Iaddc:
		a := m.readI32(st.operand(instr.B()))
		m.writeI32(st.operand(instr.A), a+int32(instr.C()))
	case bytecode.Icltc:
		a := m.readI32(st.operand(instr.B()))
		m.writeByte(st.operand(instr.A), boolByte(a < int32(instr.C())))

	case bytecode.Fadd:
		st.binF(instr, func(a, b float32) float32 { return a + b })
	case bytecode.Fsub:
		st.binF(instr, func(a, b float32) float32 { return a - b })
	case bytecode.Fmul:
		st.binF(instr, func(a, b float32) float32 { return a * b })
	case bytecode.Fdiv:
		st.binF(instr, func(a, b float32) float32 { return a / b })

	case bytecode.Jmp:
		st.pc = uint16(int32(st.pc) + instr.DI())
	case bytecode.Jmpifn:
		if m.readByte(st.operand(instr.A)) == 0 {
			st.pc = uint16(int32(st.pc) + instr.DI())
		}

	case bytecode.Call:
		st.doCall(instr.A, instr.B())
	case bytecode.Ret:
		st.doRet()

	case bytecode.Cfcall:
		st.doCfcall(instr.A)
	case bytecode.Pfcall:
		st.doPfcall(instr.A, instr.B())

	default:
		panic(errInvalidOperation)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (st *execState) binI(instr bytecode.Instruction, op func(a, b int32) int32) {
	a := st.m.readI32(st.operand(instr.B()))
	b := st.m.readI32(st.operand(instr.C()))
	st.m.writeI32(st.operand(instr.A), op(a, b))
}

func (st *execState) binF(instr bytecode.Instruction, op func(a, b float32) float32) {
	a := st.m.readF32(st.operand(instr.B()))
	b := st.m.readF32(st.operand(instr.C()))
	st.m.writeF32(st.operand(instr.A), op(a, b))
}

// doCall implements CALL: T = a is the linkage/return-value offset, b
// names the frame slot holding the target program address. A SelfModule
// sentinel in that address is resolved to the currently executing module
// (the compiler can't know its own eventual load-order index).
func (st *execState) doCall(a, b int16) {
	target := st.m.readAddr(st.operand(b))
	if target.Module == bytecode.SelfModule {
		target.Module = st.module
	}

	t := int64(a)
	st.m.writeAddr(int64(st.base)+t+offRetAddr, bytecode.ProgramAddress{Module: st.module, Offset: st.pc})
	st.m.writeU16(int64(st.base)+t+offRetStack, uint16(a))

	mod := st.m.ModuleAt(target.Module)
	if mod == nil {
		panic(errInvalidOperation)
	}
	st.module = target.Module
	st.text = mod.Text
	st.data = mod.Data
	st.pc = target.Offset
	st.base = uint32(int64(st.base) + t)
}

func (st *execState) doRet() {
	retAddr := st.m.readAddr(int64(st.base) + offRetAddr)
	savedDisplacement := st.m.readU16(int64(st.base) + offRetStack)

	mod := st.m.ModuleAt(retAddr.Module)
	if mod == nil {
		panic(errInvalidOperation)
	}
	st.module = retAddr.Module
	st.text = mod.Text
	st.data = mod.Data
	st.pc = retAddr.Offset
	st.base = uint32(int64(st.base) - int64(savedDisplacement))
}

// doCfcall implements CFCALL a: a is a module-data byte offset holding a
// 4-byte native-table index (there is no CFLOAD — a native function
// pointer can't be serialized portably, so the table index lives in data
// instead of a loaded register). The native runs against the current
// frame directly; CFCALL neither pushes a new frame nor writes linkage.
func (st *execState) doCfcall(a int16) {
	idx := readNativeIndex(st.data, a)
	fn, ok := st.m.Natives.get(idx)
	if !ok {
		panic(errInvalidOperation)
	}
	fn(st.m, st.base)
}

// doPfcall implements PFCALL a,b: a is the linkage/return-value offset
// exactly as for CALL, b names the frame slot holding a 16-byte PolyFunc
// record. A Moonflower target dispatches through the same path as CALL; a
// native target is invoked at the same frame-base-plus-T vantage point a
// Moonflower callee would have received, matching the native ABI's
// frame-relative argument layout, but — like CFCALL — synchronously and
// without persisting a new frame (natives have no RET).
func (st *execState) doPfcall(a, b int16) {
	poly := st.m.readPolyFunc(st.operand(b))
	switch poly.Tag {
	case bytecode.PolyTagMoonflower:
		target := poly.Addr
		if target.Module == bytecode.SelfModule {
			target.Module = st.module
		}
		t := int64(a)
		st.m.writeAddr(int64(st.base)+t+offRetAddr, bytecode.ProgramAddress{Module: st.module, Offset: st.pc})
		st.m.writeU16(int64(st.base)+t+offRetStack, uint16(a))

		mod := st.m.ModuleAt(target.Module)
		if mod == nil {
			panic(errInvalidOperation)
		}
		st.module = target.Module
		st.text = mod.Text
		st.data = mod.Data
		st.pc = target.Offset
		st.base = uint32(int64(st.base) + t)

	case bytecode.PolyTagNative:
		fn, ok := st.m.Natives.get(poly.NativeIndex)
		if !ok {
			panic(errInvalidOperation)
		}
		fn(st.m, uint32(int64(st.base)+int64(a)))

	default:
		panic(errInvalidOperation)
	}
}

func readNativeIndex(data []byte, off int16) uint32 {
	if int(off)+4 > len(data) || off < 0 {
		panic(errInvalidOperation)
	}
	return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
}
