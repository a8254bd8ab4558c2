package compiler

import "moonflower/bytecode"

// appendData appends raw bytes to the module's data segment and returns
// the offset they were written at.
func (c *Context) appendData(b []byte) uint16 {
	off := uint16(len(c.Data))
	c.Data = append(c.Data, b...)
	return off
}

// Import resolves a `import "module" { names };` declaration against the
// ModuleResolver (already-loaded modules, scanned at compile time exactly
// as script_context::begin_import/import does in the original design):
// for each named symbol it writes a 16-byte PolyFunc record to the
// importing module's data segment and registers a static_scope entry of
// function_ptr type so later expr_id/expr_call can reference it.
//
// An imported symbol's exact parameter/return types are not recoverable
// from the binary module format (SPEC_FULL.md §6 carries no signature
// section), so every import is typed as an erased-signature function_ptr;
// ExprCall accepts any argument list against such a signature.
func (c *Context) Import(moduleName string, names []string, loc Location) {
	if len(names) == 0 {
		c.warnf(loc, "Unused import")
		return
	}

	idx, mod, found := c.Resolver.FindModule(moduleName)

	for _, name := range names {
		if !found {
			c.errorf(loc, "import references an unloaded module: %s", moduleName)
			c.StaticScope[name] = &staticEntry{Type: NothingType}
			c.imports = append(c.imports, bytecode.Import{FromModule: moduleName, Name: name, AtOffset: 0})
			continue
		}

		var poly bytecode.PolyFunc
		if offset, ok := mod.Exports[name]; ok {
			poly = bytecode.PolyFunc{Tag: bytecode.PolyTagMoonflower, Addr: bytecode.ProgramAddress{Module: idx, Offset: offset}}
		} else if nativeIdx, ok := mod.NativeExports[name]; ok {
			poly = bytecode.PolyFunc{Tag: bytecode.PolyTagNative, NativeIndex: nativeIdx}
		} else {
			c.errorf(loc, "import references an unexported symbol: %s.%s", moduleName, name)
			c.StaticScope[name] = &staticEntry{Type: NothingType}
			c.imports = append(c.imports, bytecode.Import{FromModule: moduleName, Name: name, AtOffset: 0})
			continue
		}

		enc := poly.Encode()
		dataOff := c.appendData(enc[:])

		fnType := &Type{Kind: KindFunctionPtr, Poly: true, Func: &FuncSig{Params: nil, Return: NothingType}}
		c.StaticScope[name] = &staticEntry{Type: fnType, DataOffset: dataOff}
		c.imports = append(c.imports, bytecode.Import{FromModule: moduleName, Name: name, AtOffset: dataOff})
	}
}
