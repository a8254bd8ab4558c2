// Package natives supplies host-implemented functions a Moonflower
// program reaches via CFCALL/PFCALL: console input/output, adapted from
// the teacher's consoleIO hardware device down to Moonflower's
// synchronous, interrupt-free native ABI (no response bus, no goroutine
// reader loop — a native call simply runs to completion on the calling
// goroutine before the interpreter resumes).
package natives

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"moonflower/bytecode"
	"moonflower/vm"
)

// Console wraps the buffered reader/writer pair every console native
// shares, mirroring the teacher's single-reader-of-stdin invariant
// ("This should be the only routine that accesses stdin in the whole
// codebase").
type Console struct {
	out *bufio.Writer
	in  *bufio.Reader
}

// NewConsole wraps stdout/stdin in the buffered pair the native
// functions below operate on.
func NewConsole() *Console {
	return NewConsoleOn(os.Stdout, os.Stdin)
}

// NewConsoleOn wraps an arbitrary reader/writer pair, letting tests
// substitute buffers for the real stdin/stdout.
func NewConsoleOn(w io.Writer, r io.Reader) *Console {
	return &Console{out: bufio.NewWriter(w), in: bufio.NewReader(r)}
}

// PrintInt writes the int argument at frameBase+8 to stdout in decimal,
// matching the teacher's TrySend command-2 write-and-flush.
func (c *Console) PrintInt(m *vm.Machine, frameBase uint32) {
	fmt.Fprintf(c.out, "%d", m.ReadInt(frameBase, 8))
	c.out.Flush()
}

// PrintChar writes the int argument at frameBase+8 as a single rune.
func (c *Console) PrintChar(m *vm.Machine, frameBase uint32) {
	c.out.WriteRune(rune(m.ReadInt(frameBase, 8)))
	c.out.Flush()
}

// ReadChar reads a single rune from stdin and writes it as an int to the
// return-value offset frameBase-4, or -1 on EOF.
func (c *Console) ReadChar(m *vm.Machine, frameBase uint32) {
	r, _, err := c.in.ReadRune()
	if err != nil {
		m.WriteInt(frameBase, -4, -1)
		return
	}
	m.WriteInt(frameBase, -4, int32(r))
}

// Names of the three native exports, in registration order.
const (
	NamePrintInt  = "print_int"
	NamePrintChar = "print_char"
	NameReadChar  = "read_char"
)

// NewModule registers c's native functions against tbl and returns a
// loadable Module exposing them as NativeExports, so Moonflower source
// can pull them in with `import console { print_int, print_char,
// read_char }`.
func NewModule(name string, c *Console, tbl *vm.NativeTable) *bytecode.Module {
	mod := bytecode.NewModule(name)
	mod.NativeExports[NamePrintInt] = tbl.Register(c.PrintInt)
	mod.NativeExports[NamePrintChar] = tbl.Register(c.PrintChar)
	mod.NativeExports[NameReadChar] = tbl.Register(c.ReadChar)
	return mod
}
