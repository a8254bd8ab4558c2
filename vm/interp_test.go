package vm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/asm"
	"moonflower/bytecode"
)

type nullResolver struct{}

func (nullResolver) FindModule(name string) (uint16, *bytecode.Module, bool) {
	return 0, nil, false
}

func mustAssemble(t *testing.T, src string) *bytecode.Module {
	t.Helper()
	mod, msgs := asm.Assemble("m", src, nullResolver{})
	require.False(t, msgs.HasError(), "%v", msgs)
	return mod
}

func TestExecuteArithmeticAndTerminate(t *testing.T) {
	mod := mustAssemble(t, `
entry
main:
	isetc 0, 2
	isetc 4, 3
	imul 0, 0, 4
	terminate 0
`)
	m := NewMachine(4096, true)
	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, mod.EntryPoint, 0)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
	require.Equal(t, int32(6), int32(binary.LittleEndian.Uint32(m.Stack[0:4])))
}

func TestExecuteCallAndReturnValue(t *testing.T) {
	mod := mustAssemble(t, `
entry
main:
	isetc 24, 21
	setadr 12, doubleit
	call 16, 12
	terminate 0
doubleit:
	iadd -4, 8, 8
	ret
`)
	m := NewMachine(4096, true)
	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, mod.EntryPoint, 0)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
	require.Equal(t, int32(42), int32(binary.LittleEndian.Uint32(m.Stack[12:16])))
}

func TestExecuteLoopSumsOneToFive(t *testing.T) {
	// sum=0; i=1; while (i < 6) { sum += i; i += 1; } return sum
	mod := mustAssemble(t, `
entry
main:
	isetc 0, 0
	isetc 4, 1
loop:
	icltc 8, 4, 6
	jmpifn 8, done
	iadd 0, 0, 4
	iaddc 4, 4, 1
	jmp loop
done:
	cpy -4, 0, 4
	terminate 0
`)
	m := NewMachine(4096, true)
	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, mod.EntryPoint, 4)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
	require.Equal(t, int32(15), int32(binary.LittleEndian.Uint32(m.Stack[0:4])))
}

func TestExecuteBranch(t *testing.T) {
	mod := mustAssemble(t, `
entry
main:
	isetc 0, 5
	icltc 4, 0, 10
	jmpifn 4, notless
	terminate 1
notless:
	terminate 2
`)
	m := NewMachine(4096, true)
	idx := m.LoadModule(mod)
	code, _ := m.Execute(idx, mod.EntryPoint, 0)
	require.EqualValues(t, 1, code)
}

func TestExecuteCfcallInvokesNative(t *testing.T) {
	mod := mustAssemble(t, `
entry
main:
	isetc 8, 9
	cfcall 0
	terminate 0
`)
	m := NewMachine(4096, true)

	var seenArg int32
	idx := m.Natives.Register(func(m *Machine, frameBase uint32) {
		seenArg = m.ReadInt(frameBase, 8)
		m.WriteInt(frameBase, 12, seenArg*2)
	})

	var nativeIdx [4]byte
	binary.LittleEndian.PutUint32(nativeIdx[:], idx)
	mod.Data = nativeIdx[:]

	mIdx := m.LoadModule(mod)
	code, reason := m.Execute(mIdx, mod.EntryPoint, 0)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
	require.EqualValues(t, 9, seenArg)
	require.Equal(t, int32(18), int32(binary.LittleEndian.Uint32(m.Stack[12:16])))
}

// TestExecutePfcallDispatchesToNative builds its module directly with the
// bytecode package rather than through the assembler, since hand-placing a
// PolyFunc record at a frame offset isn't an assembler-level operation.
func TestExecutePfcallDispatchesToNative(t *testing.T) {
	m := NewMachine(4096, true)

	natIdx := m.Natives.Register(func(m *Machine, frameBase uint32) {
		v := m.ReadInt(frameBase, 8)
		m.WriteInt(frameBase, -4, v+100)
	})

	poly := bytecode.PolyFunc{Tag: bytecode.PolyTagNative, NativeIndex: natIdx}
	enc := poly.Encode()

	// The PolyFunc record is stored at frame offset 0 and the call uses
	// T=24, so the record's 16 bytes ([0,16)) never overlap the callee's
	// own linkage/argument region ([24,32) and up).
	mod := bytecode.NewModule("m")
	mod.Data = enc[:]
	mod.Text = append(mod.Text,
		bytecode.NewDI(bytecode.Isetc, 32, 4),
		bytecode.NewBC(bytecode.Setdat, 0, 0, bytecode.PolyFuncSize),
		bytecode.NewBC(bytecode.Pfcall, 24, 0, 0),
		bytecode.NewDI(bytecode.Terminate, 0, 0),
	)
	mod.EntryPoint = 1

	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, mod.EntryPoint, 0)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
	require.Equal(t, int32(104), int32(binary.LittleEndian.Uint32(m.Stack[20:24])))
}

func TestExecuteDivideByZeroIsIllegalOperation(t *testing.T) {
	mod := mustAssemble(t, `
entry
main:
	isetc 0, 1
	isetc 4, 0
	idiv 0, 0, 4
	terminate 0
`)
	m := NewMachine(4096, true)
	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, mod.EntryPoint, 0)
	require.EqualValues(t, -1, code)
	require.NotEmpty(t, reason)
}

func TestExecuteUnknownOpcodeIsInvalidOperation(t *testing.T) {
	mod := bytecode.NewModule("bad")
	mod.Text = append(mod.Text, bytecode.Instruction{Op: bytecode.Op(200)})

	m := NewMachine(4096, false)
	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, 1, 0)
	require.EqualValues(t, -1, code)
	require.Equal(t, "invalid operation", reason)
}

func TestExecuteRunoffInDebugMode(t *testing.T) {
	mod := bytecode.NewModule("short")

	m := NewMachine(4096, true)
	idx := m.LoadModule(mod)
	code, reason := m.Execute(idx, 50, 0)
	require.EqualValues(t, -1, code)
	require.Equal(t, "runoff", reason)
}

func TestExecuteUnloadedModuleIsInvalidOperation(t *testing.T) {
	m := NewMachine(4096, true)
	code, reason := m.Execute(7, 0, 0)
	require.EqualValues(t, -1, code)
	require.Equal(t, "invalid operation", reason)
}
