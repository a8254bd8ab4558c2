package runtime

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/asm"
)

func TestStateLoadAndRunAssembledModule(t *testing.T) {
	st := NewState(4096, true)

	mod, msgs := asm.Assemble("m", `
entry
main:
	isetc 0, 41
	iaddc 0, 0, 1
	cpy -4, 0, 4
	terminate 0
`, st)
	require.False(t, msgs.HasError())

	idx, err := st.Load(mod)
	require.NoError(t, err)

	off, err := st.EntryPoint(idx, "")
	require.NoError(t, err)
	require.Equal(t, mod.EntryPoint, off)

	code, reason := st.Run(idx, off, 4)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
}

func TestStateLoadRejectsMissingBootstrapTerminate(t *testing.T) {
	st := NewState(4096, true)
	mod, msgs := asm.Assemble("m", `
entry
main:
	isetc 0, 1
	terminate 0
`, st)
	require.False(t, msgs.HasError())
	mod.Text = mod.Text[1:]

	_, err := st.Load(mod)
	require.Error(t, err)
}

func TestStateEntryPointUnknownExportIsError(t *testing.T) {
	st := NewState(4096, true)
	mod, msgs := asm.Assemble("m", `
main:
	terminate 0
`, st)
	require.False(t, msgs.HasError())

	idx, err := st.Load(mod)
	require.NoError(t, err)

	_, err = st.EntryPoint(idx, "nope")
	require.Error(t, err)
}

func TestStateCrossModuleImportCallsExportedFunction(t *testing.T) {
	st := NewState(4096, true)

	lib, msgs := asm.Assemble("lib", `
export helper
helper:
	isetc -4, 7
	ret
`, st)
	require.False(t, msgs.HasError())
	_, err := st.Load(lib)
	require.NoError(t, err)

	mainMod, msgs := asm.Assemble("main", `
import lib { helper }
entry
start:
	setdat 12, helper, 16
	pfcall 16, 12
	terminate 0
`, st)
	require.False(t, msgs.HasError())

	mainIdx, err := st.Load(mainMod)
	require.NoError(t, err)

	code, reason := st.Run(mainIdx, mainMod.EntryPoint, 0)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)
	require.Equal(t, int32(7), int32(binary.LittleEndian.Uint32(st.Machine.Stack[12:16])))
}
