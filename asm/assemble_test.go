package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/bytecode"
	"moonflower/diag"
)

type nullResolver struct{}

func (nullResolver) FindModule(name string) (uint16, *bytecode.Module, bool) {
	return 0, nil, false
}

func TestAssembleSimpleEntry(t *testing.T) {
	mod, msgs := Assemble("m", `
entry
main: isetc 0, 7
terminate 0
`, nullResolver{})
	require.False(t, msgs.HasError())
	require.EqualValues(t, 1, mod.EntryPoint)
	require.Len(t, mod.Text, 3)
	require.Equal(t, bytecode.Isetc, mod.Text[1].Op)
	require.EqualValues(t, 7, mod.Text[1].DI())
}

func TestAssembleForwardJump(t *testing.T) {
	mod, msgs := Assemble("m", `
entry
main:
	jmp skip
	isetc 0, 99
skip:
	terminate 0
`, nullResolver{})
	require.False(t, msgs.HasError())

	jmpInstr := mod.Text[1]
	require.Equal(t, bytecode.Jmp, jmpInstr.Op)
	require.EqualValues(t, 1, jmpInstr.DI())
}

func TestAssembleUndefinedLabelIsError(t *testing.T) {
	_, msgs := Assemble("m", `
entry
main:
	jmp nowhere
	terminate 0
`, nullResolver{})
	require.True(t, msgs.HasError())
}

func TestAssembleExportAndNativeExport(t *testing.T) {
	mod, msgs := Assemble("m", `
export add
main:
	ret
export native_helper native
`, nullResolver{})
	require.False(t, msgs.HasError())
	require.Contains(t, mod.Exports, "add")
	require.Contains(t, mod.NativeExports, "native_helper")
}

func TestAssembleUnknownMnemonicIsError(t *testing.T) {
	_, msgs := Assemble("m", `
	bogus 1, 2, 3
`, nullResolver{})
	require.True(t, msgs.HasError())
}

func TestAssembleShadowedLabelWarns(t *testing.T) {
	_, msgs := Assemble("m", `
a:
	terminate 0
a:
	terminate 1
`, nullResolver{})
	foundWarning := false
	for _, m := range msgs {
		if m.Severity == diag.Warning {
			foundWarning = true
		}
	}
	require.True(t, foundWarning)
}

func TestAssembleDuplicateEntryIsError(t *testing.T) {
	_, msgs := Assemble("m", `
entry
main: terminate 0
entry
`, nullResolver{})
	require.True(t, msgs.HasError())
}
