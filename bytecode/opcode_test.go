package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpFromStringRoundTrip(t *testing.T) {
	for mnemonic, op := range strToOpMap {
		got, ok := OpFromString(mnemonic)
		require.True(t, ok)
		require.Equal(t, op, got)
		require.Equal(t, mnemonic, op.String())
	}
}

func TestOpFromStringUnknown(t *testing.T) {
	_, ok := OpFromString("nope")
	require.False(t, ok)
}

func TestIsRelativeJump(t *testing.T) {
	require.True(t, Jmp.IsRelativeJump())
	require.True(t, Jmpifn.IsRelativeJump())
	require.False(t, Call.IsRelativeJump())
	require.False(t, Cpy.IsRelativeJump())
}

func TestUsesBCPayload(t *testing.T) {
	require.True(t, Cpy.UsesBCPayload())
	require.True(t, Iadd.UsesBCPayload())
	require.False(t, Jmp.UsesBCPayload())
	require.False(t, Setadr.UsesBCPayload())
}
