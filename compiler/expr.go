package compiler

import "fmt"

// ExprID resolves an identifier: first against local_stack (a variable),
// then against static_scope (a top-level function or imported symbol).
func (c *Context) ExprID(name string, loc Location) *ExprNode {
	fc := c.CurFunc

	if slot, ok := stackLookup(fc, name); ok {
		return &ExprNode{Kind: ExprStackID, Type: slot.Type, Category: ObjectCategory, Loc: loc, StackOffset: slot.Addr}
	}

	if entry, ok := c.StaticScope[name]; ok {
		switch entry.Type.Kind {
		case KindFunction:
			// The static_scope entry's own type is `function` (size 0, a
			// bare label); referencing it as a value produces a callable
			// function_ptr (size 4, non-polymorphic: a same-module target
			// is always statically known Moonflower bytecode).
			unresolved := entry.TextOffset == unresolvedEntry
			offset := uint16(0)
			if !unresolved {
				offset = uint16(entry.TextOffset)
			}
			ptrType := &Type{Kind: KindFunctionPtr, Func: entry.Type.Func, Poly: false}
			return &ExprNode{Kind: ExprFunction, Type: ptrType, Category: ExpiringCategory, Loc: loc, TextOffset: offset, TextOffsetUnresolved: unresolved}
		case KindFunctionPtr:
			return &ExprNode{Kind: ExprImportedFunction, Type: entry.Type, Category: ExpiringCategory, Loc: loc, DataOffset: entry.DataOffset}
		}
	}

	c.errorf(loc, "Could not find name: %s", name)
	return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
}

// ExprConstInt pushes an int constant.
func (c *Context) ExprConstInt(v int32, loc Location) *ExprNode {
	return &ExprNode{Kind: ExprConstant, Type: IntType, Category: ExpiringCategory, Loc: loc, ConstInt: v}
}

// ExprConstFloat pushes a float constant.
func (c *Context) ExprConstFloat(v float32, loc Location) *ExprNode {
	return &ExprNode{Kind: ExprConstant, Type: FloatType, Category: ExpiringCategory, Loc: loc, ConstFloat: v}
}

// ExprConstBool pushes a bool constant.
func (c *Context) ExprConstBool(v bool, loc Location) *ExprNode {
	return &ExprNode{Kind: ExprConstant, Type: BoolType, Category: ExpiringCategory, Loc: loc, ConstBool: v}
}

// binopKindForToken maps a script grammar operator token to a BinopKind.
func binopKindForToken(tok string) (BinopKind, bool) {
	switch tok {
	case "+":
		return BinopAdd, true
	case "-":
		return BinopSub, true
	case "*":
		return BinopMul, true
	case "/":
		return BinopDiv, true
	case "<":
		return BinopClt, true
	}
	return 0, false
}

// ExprBinop requires lhs's type to be a usertype, looks up op in its
// operator table for a def whose RHS type matches rhs's type, and pushes
// the resulting binary expression.
func (c *Context) ExprBinop(lhs, rhs *ExprNode, tok string, loc Location) *ExprNode {
	op, ok := binopKindForToken(tok)
	if !ok {
		c.errorf(loc, "unknown operator: %s", tok)
		return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
	}

	if lhs.Type.Kind != KindUsertype {
		c.errorf(loc, "left operand of %s is not a value type", tok)
		return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
	}

	def, ok := GetBinop(lhs.Type.User, op, rhs.Type)
	if !ok {
		c.errorf(loc, "no operator overload for %s %s %s", lhs.Type.User.Name, tok, typeName(rhs.Type))
		return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
	}

	return &ExprNode{Kind: ExprBinary, Type: def.Result, Category: ExpiringCategory, Loc: loc, Binop: def, LHS: lhs, RHS: rhs}
}

// ExprCall requires fn's type to be function_ptr and the argument count
// to match its signature's parameter count.
func (c *Context) ExprCall(fn *ExprNode, args []*ExprNode, loc Location) *ExprNode {
	if fn.Type.Kind != KindFunctionPtr {
		c.errorf(loc, "expression is not callable")
		return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
	}

	sig := fn.Type.Func
	// A nil Params list means the target's signature is unknown (a
	// cross-module import: the binary module format of SPEC_FULL.md §6
	// carries no signature section, so an imported symbol's arity and
	// argument types cannot be recovered from it). Such calls are
	// accepted with whatever arguments the call site supplies.
	if sig.Params != nil {
		if len(args) != len(sig.Params) {
			c.errorf(loc, "wrong number of arguments: expected %d, got %d", len(sig.Params), len(args))
			return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
		}
		for i, a := range args {
			if !Equal(a.Type, sig.Params[i]) {
				c.errorf(loc, "argument %d: type mismatch", i+1)
			}
		}
	}

	return &ExprNode{Kind: ExprCall, Type: sig.Return, Category: ExpiringCategory, Loc: loc, Func: fn, Args: args}
}

// ExprField resolves a `name.field.field...` member-access chain: the base
// must be a local of usertype, and each field step is a structural offset
// adjustment, producing another ExprStackID exactly as plain identifier
// lookup does (a field is just a sub-object living inside its parent's
// frame slot).
func (c *Context) ExprField(baseName string, fieldPath []string, loc Location) *ExprNode {
	fc := c.CurFunc

	slot, ok := stackLookup(fc, baseName)
	if !ok {
		c.errorf(loc, "Could not find name: %s", baseName)
		return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
	}

	t := slot.Type
	offset := slot.Addr
	for _, f := range fieldPath {
		if t.Kind != KindUsertype {
			c.errorf(loc, "%s is not a struct type", typeName(t))
			return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
		}
		field, ok := t.User.Fields[f]
		if !ok {
			c.errorf(loc, "%s has no field named %s", t.User.Name, f)
			return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
		}
		offset += int16(field.Offset)
		t = field.Type
	}

	return &ExprNode{Kind: ExprStackID, Type: t, Category: ObjectCategory, Loc: loc, StackOffset: offset}
}

func typeName(t *Type) string {
	switch t.Kind {
	case KindNothing:
		return "nothing"
	case KindFunction, KindFunctionPtr:
		return "function"
	case KindUsertype:
		return t.User.Name
	}
	return fmt.Sprintf("?type(%d)?", t.Kind)
}
