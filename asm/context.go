// Package asm implements the textual bytecode assembler (component C): a
// line-oriented directive parser that resolves labels, exports, and
// imports into a loadable bytecode.Module.
package asm

import (
	"fmt"

	"moonflower/bytecode"
	"moonflower/diag"
)

// Context is the assembler's scratch state while it walks a source file,
// the direct analogue of script_context for the textual surface: an
// in-progress instruction list, a label table, a forward-reference todo
// list, and the export/import tables a finished Module needs.
type Context struct {
	Program []bytecode.Instruction
	Data    []byte

	Labels map[string]uint16

	// LabelTodo holds, for each label referenced before it was defined,
	// the instruction indices whose operand must be patched once the
	// label's address is known.
	LabelTodo map[string][]int

	Exports       map[string]uint16
	NativeExports map[string]uint32
	Imports       []bytecode.Import

	EntryPoint uint16
	HasEntry   bool

	Messages diag.Messages
}

// NewContext returns a Context with a TERMINATE instruction already
// emitted at text offset 0, the same bootstrap-linkage invariant the
// compiler's Context establishes.
func NewContext() *Context {
	return &Context{
		Program:       []bytecode.Instruction{bytecode.NewDI(bytecode.Terminate, 0, 0)},
		Labels:        make(map[string]uint16),
		LabelTodo:     make(map[string][]int),
		Exports:       make(map[string]uint16),
		NativeExports: make(map[string]uint32),
	}
}

// AddLabel records name at the current end of program. A redefinition
// shadows the earlier one and raises a warning, matching asm_context's
// add_label behavior in the source this is grounded on.
func (c *Context) AddLabel(name string, loc diag.Location) {
	if _, exists := c.Labels[name]; exists {
		c.Messages = append(c.Messages, diag.Message{Severity: diag.Warning, Loc: loc, Text: "Shadowing label: " + name})
	}
	c.Labels[name] = uint16(len(c.Program))
}

func (c *Context) errorf(loc diag.Location, format string, args ...interface{}) {
	c.Messages = append(c.Messages, diag.Message{Severity: diag.Error, Loc: loc, Text: fmt.Sprintf(format, args...)})
}

func (c *Context) warnf(loc diag.Location, format string, args ...interface{}) {
	c.Messages = append(c.Messages, diag.Message{Severity: diag.Warning, Loc: loc, Text: fmt.Sprintf(format, args...)})
}
