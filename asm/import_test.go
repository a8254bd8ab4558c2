package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/bytecode"
)

type fakeResolver struct {
	mods map[string]*bytecode.Module
}

func (f fakeResolver) FindModule(name string) (uint16, *bytecode.Module, bool) {
	mod, ok := f.mods[name]
	if !ok {
		return 0, nil, false
	}
	return 0, mod, true
}

func TestAssembleImportMoonflowerSymbol(t *testing.T) {
	lib := bytecode.NewModule("lib")
	lib.Exports["helper"] = 3
	resolver := fakeResolver{mods: map[string]*bytecode.Module{"lib": lib}}

	mod, msgs := Assemble("m", `
import lib { helper }
main:
	setdat 8, helper, 16
	ret
`, resolver)
	require.False(t, msgs.HasError())
	require.Len(t, mod.Imports, 1)
	require.Equal(t, "helper", mod.Imports[0].Name)
	require.Len(t, mod.Data, 16)
}

func TestAssembleImportUnknownModuleIsError(t *testing.T) {
	_, msgs := Assemble("m", `
import missing { sym }
main:
	ret
`, nullResolver{})
	require.True(t, msgs.HasError())
}
