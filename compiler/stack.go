package compiler

// getAlignedTop returns the smallest offset >= the current top of
// local_stack union (expr_stack unless excludeExprStack) that is a
// multiple of align.
func getAlignedTop(fc *FuncContext, align uint16, excludeExprStack bool) int16 {
	var top int16
	for _, s := range fc.LocalStack {
		if end := s.Addr + int16(s.Type.Size()); end > top {
			top = end
		}
	}
	if !excludeExprStack {
		for _, s := range fc.ExprStack {
			if end := s.Addr + int16(s.Type.Size()); end > top {
				top = end
			}
		}
	}
	return int16(roundUp(uint16(top), align))
}

// pushObject reserves a fresh expr_stack slot for t and returns its
// address, emitting an ERROR (and proceeding anyway with the invalid
// offset) if stack_max is exceeded.
func (c *Context) pushObject(fc *FuncContext, t *Type, loc Location) int16 {
	addr := getAlignedTop(fc, t.Align(), false)
	if int(addr)+int(t.Size()) > stackMax {
		c.errorf(loc, "compile-time stack overflow")
	}
	fc.ExprStack = append(fc.ExprStack, frameSlot{Addr: addr, Type: t})
	return addr
}

// popObjectsUntil truncates expr_stack to length pos. emit_destroy is
// presently a no-op hook reserved for future resource types, matching
// spec.md §4.2.1.
func popObjectsUntil(fc *FuncContext, pos int, skipDestroy bool) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(fc.ExprStack) {
		pos = len(fc.ExprStack)
	}
	fc.ExprStack = fc.ExprStack[:pos]
}

// promoteLocal moves the sole top entry of expr_stack into local_stack
// under name. Requires exactly one record on expr_stack.
func (c *Context) promoteLocal(fc *FuncContext, name string, loc Location) {
	if len(fc.ExprStack) != 1 {
		c.errorf(loc, "cannot declare %s: expression did not evaluate to a single value", name)
		if len(fc.ExprStack) == 0 {
			return
		}
	}
	top := fc.ExprStack[len(fc.ExprStack)-1]
	top.Name = name
	fc.ExprStack = fc.ExprStack[:len(fc.ExprStack)-1]
	fc.LocalStack = append(fc.LocalStack, top)
}

// addLocal appends a fresh named local at the next aligned offset.
func (c *Context) addLocal(fc *FuncContext, name string, t *Type) int16 {
	addr := getAlignedTop(fc, t.Align(), true)
	fc.LocalStack = append(fc.LocalStack, frameSlot{Name: name, Addr: addr, Type: t})
	return addr
}

// stackLookup searches local_stack from the most recently declared entry
// backward (shadowing: the innermost declaration wins).
func stackLookup(fc *FuncContext, name string) (frameSlot, bool) {
	for i := len(fc.LocalStack) - 1; i >= 0; i-- {
		if fc.LocalStack[i].Name == name {
			return fc.LocalStack[i], true
		}
	}
	return frameSlot{}, false
}
