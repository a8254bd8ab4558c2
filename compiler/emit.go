package compiler

import "moonflower/bytecode"

const maxScalarAlign = 4

func fitsInt16(v int32) bool {
	return v >= -32768 && v <= 32767
}

// evalExpr is eval_expr: it returns the Object naming where n's value now
// lives, emitting whatever code is required to put it there.
func (c *Context) evalExpr(fc *FuncContext, n *ExprNode) Object {
	switch n.Kind {
	case ExprNothing:
		return Object{Addr: Address{AddrLocal, 0}, Type: NothingType}

	case ExprStackID:
		return Object{Addr: Address{AddrLocal, int32(n.StackOffset)}, Type: n.Type}

	case ExprFunction:
		addr := c.pushObject(fc, n.Type, n.Loc)
		fc.emit(bytecode.NewAddrInstr(bytecode.Setadr, addr, bytecode.ProgramAddress{Module: bytecode.SelfModule, Offset: n.TextOffset}))
		if n.TextOffsetUnresolved {
			fc.selfRefFixups = append(fc.selfRefFixups, len(fc.Text)-1)
		}
		return Object{Addr: Address{AddrLocal, int32(addr)}, Type: n.Type}

	case ExprImportedFunction:
		addr := c.pushObject(fc, n.Type, n.Loc)
		fc.emit(bytecode.NewBC(bytecode.Setdat, addr, int16(n.DataOffset), int16(n.Type.Size())))
		return Object{Addr: Address{AddrLocal, int32(addr)}, Type: n.Type}

	case ExprConstant:
		addr := c.pushObject(fc, n.Type, n.Loc)
		switch {
		case Equal(n.Type, IntType):
			fc.emit(bytecode.NewDI(bytecode.Isetc, addr, n.ConstInt))
		case Equal(n.Type, FloatType):
			fc.emit(bytecode.NewDF(bytecode.Fsetc, addr, n.ConstFloat))
		case Equal(n.Type, BoolType):
			fc.emit(bytecode.NewDB(bytecode.Bsetc, addr, n.ConstBool))
		}
		return Object{Addr: Address{AddrLocal, int32(addr)}, Type: n.Type}

	case ExprBinary:
		return c.evalBinary(fc, n)

	case ExprCall:
		return c.evalCall(fc, n)

	case ExprDataload:
		addr := c.pushObject(fc, n.Type, n.Loc)
		fc.emit(bytecode.NewBC(bytecode.Setdat, addr, int16(n.DataOffset), int16(n.Type.Size())))
		return Object{Addr: Address{AddrLocal, int32(addr)}, Type: n.Type}
	}

	return Object{Addr: Address{AddrLocal, 0}, Type: NothingType}
}

func (c *Context) evalBinary(fc *FuncContext, n *ExprNode) Object {
	lhsObj := c.evalExpr(fc, n.LHS)

	var dest int16
	if lhsObj.Addr.Kind == AddrLocal && int16(lhsObj.Addr.Offset) == getAlignedTop(fc, n.Type.Align(), false) {
		dest = int16(lhsObj.Addr.Offset)
	} else {
		dest = c.pushObject(fc, n.Type, n.Loc)
	}

	unwind := len(fc.ExprStack)

	if n.Binop.EmitConstI16 != nil && n.RHS.Kind == ExprConstant && Equal(n.RHS.Type, IntType) && fitsInt16(n.RHS.ConstInt) {
		n.Binop.EmitConstI16(fc, dest, int16(lhsObj.Addr.Offset), int16(n.RHS.ConstInt))
	} else {
		rhsObj := c.evalExpr(fc, n.RHS)
		n.Binop.EmitGeneral(fc, dest, int16(lhsObj.Addr.Offset), int16(rhsObj.Addr.Offset))
	}

	popObjectsUntil(fc, unwind, false)

	return Object{Addr: Address{AddrLocal, int32(dest)}, Type: n.Type}
}

func (c *Context) evalCall(fc *FuncContext, n *ExprNode) Object {
	retType := n.Type

	retSize := roundUp(retType.Size(), retType.Align())
	top := getAlignedTop(fc, maxScalarAlign, false)
	retAddr := int16(roundUp(uint16(top)+retSize, maxScalarAlign))
	retObjAddr := retAddr - int16(retSize)

	fc.ExprStack = append(fc.ExprStack, frameSlot{Addr: retObjAddr, Type: retType})
	unwind := len(fc.ExprStack)

	// linkage: 8 bytes at retAddr, covering the return program address and
	// return stack displacement the callee's RET will read.
	fc.ExprStack = append(fc.ExprStack, frameSlot{Addr: retAddr, Type: rawType(8, maxScalarAlign)})

	for _, arg := range n.Args {
		before := getAlignedTop(fc, arg.Type.Align(), false)
		obj := c.evalExpr(fc, arg)
		if obj.Addr.Kind == AddrLocal && int16(obj.Addr.Offset) == before {
			continue
		}
		fc.emit(bytecode.NewBC(bytecode.Cpy, before, int16(obj.Addr.Offset), int16(arg.Type.Size())))
		fc.ExprStack = append(fc.ExprStack, frameSlot{Addr: before, Type: arg.Type})
	}

	fnObj := c.evalExpr(fc, n.Func)

	if n.Func.Type.Poly {
		fc.emit(bytecode.NewBC(bytecode.Pfcall, retAddr, int16(fnObj.Addr.Offset), 0))
	} else {
		fc.emit(bytecode.NewBC(bytecode.Call, retAddr, int16(fnObj.Addr.Offset), 0))
	}

	popObjectsUntil(fc, unwind, true)

	return Object{Addr: Address{AddrLocal, int32(retObjAddr)}, Type: retType}
}

// emitCopy writes a CPY from src to dest unless they already name the same
// address, in which case no instruction is emitted (the reuse path
// spec.md §8 requires: "a non-top RHS must produce exactly one CPY ...
// reuse path [must] produce no CPY instruction").
func (c *Context) emitCopy(fc *FuncContext, dest, src Object) {
	if dest.Addr.Kind == AddrLocal && src.Addr.Kind == AddrLocal && dest.Addr.Offset == src.Addr.Offset {
		return
	}
	fc.emit(bytecode.NewBC(bytecode.Cpy, int16(dest.Addr.Offset), int16(src.Addr.Offset), int16(dest.Type.Size())))
}
