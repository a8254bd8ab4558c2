package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstructionEncodeRoundTrip(t *testing.T) {
	cases := []Instruction{
		NewBC(Iadd, 8, 12, 16),
		NewDI(Jmp, 0, -7),
		NewDF(Fsetc, 4, 3.5),
		NewDB(Bsetc, 0, true),
		NewDB(Bsetc, 0, false),
	}
	for _, in := range cases {
		got := DecodeInstruction(in.Encode())
		require.Equal(t, in, got)
	}
}

func TestInstructionAccessors(t *testing.T) {
	instr := NewBC(Cpy, 8, 16, 4)
	require.EqualValues(t, 16, instr.B())
	require.EqualValues(t, 4, instr.C())

	instr = NewDI(Jmp, 0, -3)
	require.EqualValues(t, -3, instr.DI())

	instr = NewDF(Fsetc, 0, 1.25)
	require.InDelta(t, 1.25, instr.DF(), 0.0001)

	instr = NewDB(Bsetc, 0, true)
	require.True(t, instr.DB())
}

func TestSetDIPatchesPlaceholder(t *testing.T) {
	instr := NewDI(Jmp, 0, 0)
	instr.SetDI(42)
	require.EqualValues(t, 42, instr.DI())
}

func TestAddrInstrRoundTrip(t *testing.T) {
	addr := ProgramAddress{Module: SelfModule, Offset: 12}
	instr := NewAddrInstr(Setadr, 8, addr)
	require.Equal(t, addr, instr.Addr())

	instr.SetAddr(ProgramAddress{Module: 3, Offset: 99})
	require.Equal(t, ProgramAddress{Module: 3, Offset: 99}, instr.Addr())
}
