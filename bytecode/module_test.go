package bytecode

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModuleWriteReadRoundTrip(t *testing.T) {
	mod := NewModule("arith")
	mod.Text = append(mod.Text, NewBC(Iadd, 8, 12, 16), NewDI(Ret, 0, 0))
	mod.Exports["add"] = 1
	mod.EntryPoint = 1

	var buf bytes.Buffer
	_, err := mod.WriteTo(&buf)
	require.NoError(t, err)

	var got Module
	_, err = got.ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, mod.EntryPoint, got.EntryPoint)
	require.Equal(t, mod.Text, got.Text)
	require.Equal(t, mod.Exports, got.Exports)
}

func TestModuleReadRejectsNegativeWordCount(t *testing.T) {
	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, int32(0))  // entry point
	binary.Write(&raw, binary.LittleEndian, int32(-1)) // negative word count

	var got Module
	_, err := got.ReadFrom(&raw)
	require.Error(t, err)
}

func TestModuleBootstrapsWithTerminate(t *testing.T) {
	mod := NewModule("empty")
	require.Len(t, mod.Text, 1)
	require.Equal(t, Terminate, mod.Text[0].Op)
}
