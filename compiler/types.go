package compiler

import "moonflower/bytecode"

// Kind tags the compile-time type graph: nothing, function (a static label
// reference only, size 0), function_ptr (a storable callable value), or
// usertype (a host- or script-declared value type carrying size, fields,
// and operator overloads).
type Kind int

const (
	KindNothing Kind = iota
	KindFunction
	KindFunctionPtr
	KindUsertype
)

// FuncSig is the parameter/return shape shared by function and
// function_ptr types. Equality between two FuncSigs is structural: every
// parameter type and the return type must themselves compare equal.
type FuncSig struct {
	Params []*Type
	Return *Type
}

func (s *FuncSig) equal(o *FuncSig) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if !Equal(s.Params[i], o.Params[i]) {
			return false
		}
	}
	return Equal(s.Return, o.Return)
}

// Field is a named, offset member of a usertype.
type Field struct {
	Offset uint16
	Type   *Type
}

// BinopKind enumerates the binary operators the script grammar supports.
type BinopKind int

const (
	BinopAdd BinopKind = iota
	BinopSub
	BinopMul
	BinopDiv
	BinopClt
)

// BinopDef is one overload entry in a usertype's operator table: the RHS
// type it accepts, the result type it produces, and the two emit thunks
// (general form, and an optional fast path for a small integer RHS
// constant). Neither thunk closes over heap state beyond the FuncContext
// threaded in as an argument, matching the no-captures design spec.md §9
// calls for.
type BinopDef struct {
	RHS    *Type
	Result *Type

	EmitGeneral  func(fc *FuncContext, dest, lhs, rhs int16)
	EmitConstI16 func(fc *FuncContext, dest, lhs int16, c int16)
}

// UserType is a host- or script-declared value type: size/alignment in
// bytes, an optional field map (struct types), and an operator overload
// table keyed by BinopKind. Two UserTypes are equal only by identity (the
// same *UserType pointer) — never structurally.
type UserType struct {
	Name   string
	Size   uint16
	Align  uint16
	Fields map[string]Field
	Binops map[BinopKind][]*BinopDef
}

// Type is the compile-time type graph node. function, function_ptr, and
// usertype reference each other only through already-constructed nodes
// (the grammar never produces cycles), so a plain pointer graph suffices;
// no arena or refcounting is needed.
type Type struct {
	Kind Kind

	// Func is populated for KindFunction and KindFunctionPtr.
	Func *FuncSig

	// Poly is meaningful only for KindFunctionPtr: false means the value
	// is a plain 4-byte program address (same-module function, always
	// Moonflower bytecode, invoked with CALL); true means the value is a
	// 16-byte tagged PolyFunc record (cross-module import, may resolve to
	// either Moonflower bytecode or a native function, invoked with
	// PFCALL). See SPEC_FULL.md §1.
	Poly bool

	// User is populated for KindUsertype.
	User *UserType
}

// Size returns the value's size in bytes.
func (t *Type) Size() uint16 {
	switch t.Kind {
	case KindNothing, KindFunction:
		return 0
	case KindFunctionPtr:
		if t.Poly {
			return 16
		}
		return 4
	case KindUsertype:
		return t.User.Size
	}
	return 0
}

// Align returns the value's required alignment in bytes.
func (t *Type) Align() uint16 {
	switch t.Kind {
	case KindNothing, KindFunction:
		return 1
	case KindFunctionPtr:
		return 4
	case KindUsertype:
		return t.User.Align
	}
	return 1
}

// Equal compares two types: structural for function/function_ptr,
// identity for usertype.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNothing:
		return true
	case KindFunction:
		return a.Func.equal(b.Func)
	case KindFunctionPtr:
		return a.Poly == b.Poly && a.Func.equal(b.Func)
	case KindUsertype:
		return a.User == b.User
	}
	return false
}

// rawType builds a throwaway usertype of the given size/alignment, used
// only for the two bookkeeping frame slots begin_func installs (?retaddr,
// ?retstack) so their offsets land where the VM's frame layout expects.
func rawType(size, align uint16) *Type {
	return &Type{Kind: KindUsertype, User: &UserType{Name: "<raw>", Size: size, Align: align}}
}

// Builtin value types. Nothing has size 0 and carries no operators; Int,
// Float, and Bool are usertypes whose operator tables wire directly to
// the integer/float ALU opcodes (see newBuiltinBinops).
var (
	NothingType = &Type{Kind: KindNothing}

	intUser  = &UserType{Name: "int", Size: 4, Align: 4}
	IntType  = &Type{Kind: KindUsertype, User: intUser}
	fltUser  = &UserType{Name: "float", Size: 4, Align: 4}
	FloatType = &Type{Kind: KindUsertype, User: fltUser}
	boolUser = &UserType{Name: "bool", Size: 1, Align: 1}
	BoolType = &Type{Kind: KindUsertype, User: boolUser}
)

func init() {
	intUser.Binops = map[BinopKind][]*BinopDef{
		BinopAdd: {{
			RHS: IntType, Result: IntType,
			EmitGeneral:  func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Iadd, dest, lhs, rhs)) },
			EmitConstI16: func(fc *FuncContext, dest, lhs int16, c int16) { fc.emit(bytecode.NewBC(bytecode.Iaddc, dest, lhs, c)) },
		}},
		BinopSub: {{
			RHS: IntType, Result: IntType,
			EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Isub, dest, lhs, rhs)) },
		}},
		BinopMul: {{
			RHS: IntType, Result: IntType,
			EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Imul, dest, lhs, rhs)) },
		}},
		BinopDiv: {{
			RHS: IntType, Result: IntType,
			EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Idiv, dest, lhs, rhs)) },
		}},
		BinopClt: {{
			RHS: IntType, Result: BoolType,
			EmitGeneral:  func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Iclt, dest, lhs, rhs)) },
			EmitConstI16: func(fc *FuncContext, dest, lhs int16, c int16) { fc.emit(bytecode.NewBC(bytecode.Icltc, dest, lhs, c)) },
		}},
	}

	fltUser.Binops = map[BinopKind][]*BinopDef{
		BinopAdd: {{RHS: FloatType, Result: FloatType, EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Fadd, dest, lhs, rhs)) }}},
		BinopSub: {{RHS: FloatType, Result: FloatType, EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Fsub, dest, lhs, rhs)) }}},
		BinopMul: {{RHS: FloatType, Result: FloatType, EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Fmul, dest, lhs, rhs)) }}},
		BinopDiv: {{RHS: FloatType, Result: FloatType, EmitGeneral: func(fc *FuncContext, dest, lhs, rhs int16) { fc.emit(bytecode.NewBC(bytecode.Fdiv, dest, lhs, rhs)) }}},
	}
}

// GetBinop performs the linear scan spec.md §4.1 mandates: the first
// overload on lhs whose RHS type structurally equals rhsType.
func GetBinop(lhs *UserType, op BinopKind, rhsType *Type) (*BinopDef, bool) {
	for _, def := range lhs.Binops[op] {
		if Equal(def.RHS, rhsType) {
			return def, true
		}
	}
	return nil, false
}
