package compiler

import "moonflower/bytecode"

// EmitVardecl evaluates node and binds it to name: if the result already
// landed exactly where a fresh local of its type would go, it is promoted
// in place (no copy); otherwise a new local is added and the value copied
// into it.
func (c *Context) EmitVardecl(name string, node *ExprNode, loc Location) {
	fc := c.CurFunc
	target := getAlignedTop(fc, node.Type.Align(), true)
	obj := c.evalExpr(fc, node)

	if obj.Addr.Kind == AddrLocal && int16(obj.Addr.Offset) == target {
		c.promoteLocal(fc, name, loc)
		return
	}

	addr := c.addLocal(fc, name, obj.Type)
	c.emitCopy(fc, Object{Addr: Address{AddrLocal, int32(addr)}, Type: obj.Type}, obj)
}

// EmitReturn evaluates node (if present), copies it into the callee's
// return-value slot, and emits RET.
func (c *Context) EmitReturn(node *ExprNode, loc Location) {
	fc := c.CurFunc
	pre := len(fc.ExprStack)

	if node != nil {
		obj := c.evalExpr(fc, node)
		retObj := Object{Addr: Address{AddrLocal, int32(returnValueOffset(fc.RetType))}, Type: fc.RetType}
		c.emitCopy(fc, retObj, obj)
	}

	popObjectsUntil(fc, pre, true)
	fc.emit(bytecode.NewBC(bytecode.Ret, 0, 0, 0))
}

// EmitDiscard evaluates node for its side effects and releases the value.
func (c *Context) EmitDiscard(node *ExprNode) {
	fc := c.CurFunc
	pre := len(fc.ExprStack)
	c.evalExpr(fc, node)
	popObjectsUntil(fc, pre, false)
}

// EmitIf evaluates a bool-typed condition and emits a JMPIFN placeholder,
// returning its text index for a later SetJmp.
func (c *Context) EmitIf(node *ExprNode, loc Location) int {
	fc := c.CurFunc
	pre := len(fc.ExprStack)

	if !Equal(node.Type, BoolType) {
		c.errorf(loc, "if condition must be bool")
	}

	cond := c.evalExpr(fc, node)
	fc.emit(bytecode.NewDI(bytecode.Jmpifn, int16(cond.Addr.Offset), 0))
	patchAddr := len(fc.Text) - 1

	popObjectsUntil(fc, pre, false)
	return patchAddr
}

// EmitJmp emits an unconditional JMP placeholder, returning its text
// index for a later SetJmp.
func (c *Context) EmitJmp() int {
	fc := c.CurFunc
	fc.emit(bytecode.NewDI(bytecode.Jmp, 0, 0))
	return len(fc.Text) - 1
}

// SetJmp patches the placeholder at patchAddr to a PC-relative
// displacement targeting the current end of text. A jump that targets
// the instruction immediately following itself has displacement 0 and is
// defined to fall through (a no-op jump).
func (c *Context) SetJmp(patchAddr int) {
	fc := c.CurFunc
	rel := int32(len(fc.Text) - patchAddr - 1)
	fc.Text[patchAddr].SetDI(rel)
}

// BeginBlock returns the current local_stack length, to be passed to a
// matching EndBlock.
func (c *Context) BeginBlock() int {
	return len(c.CurFunc.LocalStack)
}

// EndBlock truncates local_stack back to unwindTo. cleanup is threaded
// through to stay faithful to the source design's end_block(unwind_to,
// cleanup) signature, though emit_destroy is presently a no-op.
func (c *Context) EndBlock(unwindTo int, cleanup bool) {
	fc := c.CurFunc
	if unwindTo > len(fc.LocalStack) {
		unwindTo = len(fc.LocalStack)
	}
	fc.LocalStack = fc.LocalStack[:unwindTo]
}

// EmitWhile compiles a while loop from a condition-evaluator and a
// body-emitter callback, composed from EmitIf/EmitJmp/SetJmp exactly as a
// hand-written front end would: no new opcode or invariant is needed
// beyond what if/else already uses.
func (c *Context) EmitWhile(evalCond func() *ExprNode, emitBody func(), loc Location) {
	fc := c.CurFunc
	top := len(fc.Text)

	cond := evalCond()
	exit := c.EmitIf(cond, loc)

	emitBody()
	backPatch := len(fc.Text)
	fc.emit(bytecode.NewDI(bytecode.Jmp, 0, int32(top-backPatch-1)))

	c.SetJmp(exit)
}

// BeginFunc resets cur_func and installs the two bookkeeping locals
// (?retaddr, ?retstack) whose sizes put the first user slot at frame
// offset 8, matching the VM's frame layout.
func (c *Context) BeginFunc(name string, loc Location) {
	fc := &FuncContext{Name: name, Loc: loc, ParamTypes: []*Type{}}
	c.CurFunc = fc

	c.addLocal(fc, "?retaddr", rawType(4, 4))
	c.addLocal(fc, "?retstack", rawType(4, 4))

	c.StaticScope[name] = &staticEntry{
		Type:       &Type{Kind: KindFunction, Func: &FuncSig{}},
		TextOffset: unresolvedEntry,
	}
}

// AddParam declares a parameter as both a local and an entry in the
// function's declared parameter type list.
func (c *Context) AddParam(name string, t *Type, loc Location) {
	fc := c.CurFunc
	c.addLocal(fc, name, t)
	fc.ParamTypes = append(fc.ParamTypes, t)
}

// SetReturnType records the function's declared return type and completes
// the function's static_scope signature, so a recursive call inside the
// body is checked and typed against the declared parameters and return.
func (c *Context) SetReturnType(t *Type) {
	fc := c.CurFunc
	fc.RetType = t
	if entry, ok := c.StaticScope[fc.Name]; ok {
		entry.Type.Func.Params = fc.ParamTypes
		entry.Type.Func.Return = t
	}
}

// EndFunc finalizes the current function: computes its entry offset,
// fixes up the static_scope placeholder and any self-referential SETADR
// placeholders, appends its text to the module program, and (if named
// "main") records the module's entry point.
func (c *Context) EndFunc() {
	fc := c.CurFunc
	entry := uint16(len(c.Program))
	fc.EntryOffset = entry

	entrySig := &FuncSig{Params: fc.ParamTypes, Return: fc.RetType}
	if existing, ok := c.StaticScope[fc.Name]; ok {
		existing.Type.Func = entrySig
		existing.TextOffset = int32(entry)
	}

	for _, idx := range fc.selfRefFixups {
		fc.Text[idx].SetAddr(bytecode.ProgramAddress{Module: bytecode.SelfModule, Offset: entry})
	}

	c.Program = append(c.Program, fc.Text...)

	if fc.Name == "main" {
		c.MainEntry = entry
		c.HasMain = true
	}

	c.CurFunc = nil
}
