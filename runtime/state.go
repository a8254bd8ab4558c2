// Package runtime glues the script compiler, the assembler, and the VM
// together into a single loaded-module space: compile or assemble source
// against it, then run whatever entry point the result exposes.
package runtime

import (
	"github.com/pkg/errors"

	"moonflower/bytecode"
	"moonflower/vm"
)

// State owns one vm.Machine and the name-to-index table of everything
// loaded into it so far. It implements compiler.ModuleResolver and
// asm.ModuleResolver by structural typing alone (both interfaces are just
// FindModule) — State never imports either package, which is what keeps
// compiler and asm siblings rather than both depending on runtime.
type State struct {
	Machine *vm.Machine
}

// NewState allocates a Machine with the given stack size (0 picks
// vm.DefaultStackSize) and debug flag.
func NewState(stackSize int, debug bool) *State {
	return &State{Machine: vm.NewMachine(stackSize, debug)}
}

// FindModule implements compiler.ModuleResolver / asm.ModuleResolver.
func (s *State) FindModule(name string) (uint16, *bytecode.Module, bool) {
	return s.Machine.FindModule(name)
}

// Load registers an already-built module (from Compile, Assemble, or
// bytecode.ReadFrom) and returns its load-order index.
func (s *State) Load(mod *bytecode.Module) (uint16, error) {
	if len(mod.Text) == 0 || mod.Text[0].Op != bytecode.Terminate {
		return 0, errors.Errorf("module %q does not open with a TERMINATE bootstrap instruction", mod.Name)
	}
	return s.Machine.LoadModule(mod), nil
}

// EntryPoint resolves name's exported function offset within the module
// loaded at index. If name is empty, the module's own declared
// EntryPoint (set by an `entry`/script `main`) is used instead.
func (s *State) EntryPoint(index uint16, name string) (uint16, error) {
	mod := s.Machine.ModuleAt(index)
	if mod == nil {
		return 0, errors.Errorf("no module loaded at index %d", index)
	}
	if name == "" {
		return mod.EntryPoint, nil
	}
	off, ok := mod.Exports[name]
	if !ok {
		return 0, errors.Errorf("module %q has no exported function %q", mod.Name, name)
	}
	return off, nil
}

// Run executes the function at funcOffset within the module loaded at
// index, reserving retvalSize bytes below the bootstrap frame.
func (s *State) Run(index uint16, funcOffset uint16, retvalSize uint16) (int32, string) {
	return s.Machine.Execute(index, funcOffset, retvalSize)
}
