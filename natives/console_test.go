package natives

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/bytecode"
	"moonflower/vm"
)

func TestConsolePrintInt(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleOn(&out, strings.NewReader(""))

	m := vm.NewMachine(64, true)
	m.WriteInt(0, 8, 42)
	c.PrintInt(m, 0)

	require.Equal(t, "42", out.String())
}

func TestConsolePrintChar(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleOn(&out, strings.NewReader(""))

	m := vm.NewMachine(64, true)
	m.WriteInt(0, 8, int32('z'))
	c.PrintChar(m, 0)

	require.Equal(t, "z", out.String())
}

func TestConsoleReadCharReturnsNegativeOneOnEOF(t *testing.T) {
	c := NewConsoleOn(&bytes.Buffer{}, strings.NewReader(""))

	m := vm.NewMachine(64, true)
	c.ReadChar(m, 8)

	require.EqualValues(t, -1, m.ReadInt(8, -4))
}

func TestConsoleReadCharReadsRune(t *testing.T) {
	c := NewConsoleOn(&bytes.Buffer{}, strings.NewReader("q"))

	m := vm.NewMachine(64, true)
	c.ReadChar(m, 8)

	require.EqualValues(t, 'q', m.ReadInt(8, -4))
}

func TestNewModuleRegistersThreeNatives(t *testing.T) {
	var tbl vm.NativeTable
	mod := NewModule("console", NewConsoleOn(&bytes.Buffer{}, strings.NewReader("")), &tbl)

	require.Len(t, mod.NativeExports, 3)
	require.Contains(t, mod.NativeExports, NamePrintInt)
	require.Contains(t, mod.NativeExports, NamePrintChar)
	require.Contains(t, mod.NativeExports, NameReadChar)
	require.Equal(t, bytecode.Terminate, mod.Text[0].Op)
}
