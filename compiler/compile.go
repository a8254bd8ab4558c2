package compiler

import (
	"moonflower/bytecode"
	"moonflower/diag"
)

// Compile runs the single-pass compiler over source, producing a loadable
// Module under name along with whatever diagnostics were raised. It
// mirrors the driver sequence of mfsc.cpp: a fresh context (which seeds
// the bootstrap TERMINATE instruction), a full parse, then assembly of
// the finished module from the context's accumulated program/data/export
// state. Compilation proceeds past errors exactly as the original
// front end does, so a caller can see every message in one pass; the
// caller is responsible for checking messages.HasError() before trusting
// the result.
func Compile(name, source string, resolver ModuleResolver) (*bytecode.Module, diag.Messages) {
	ctx := NewContext(resolver)

	p := NewParser(source, ctx)
	p.Parse()

	mod := &bytecode.Module{
		Name:          name,
		Text:          ctx.Program,
		Data:          ctx.Data,
		Exports:       make(map[string]uint16),
		NativeExports: make(map[string]uint32),
		Imports:       ctx.imports,
	}

	for fname, entry := range ctx.StaticScope {
		if entry.Type.Kind == KindFunction && entry.TextOffset != unresolvedEntry {
			mod.Exports[fname] = uint16(entry.TextOffset)
		}
	}

	if ctx.HasMain {
		mod.EntryPoint = ctx.MainEntry
	}

	return mod, ctx.Messages
}
