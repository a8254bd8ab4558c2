package compiler

import (
	"fmt"

	"moonflower/bytecode"
	"moonflower/diag"
)

// Location is a source position, used throughout the compiler's public
// contract so callers don't need to import diag directly.
type Location = diag.Location

// Category classifies where a compile-time value's address lives: Object
// values are durable (a local, or an imported data slot) and must not be
// relocated; Expiring values have no durable address and eval_expr may
// place them wherever is convenient.
type Category int

const (
	ObjectCategory Category = iota
	ExpiringCategory
)

// AddrKind tags an Address.
type AddrKind int

const (
	AddrLocal AddrKind = iota
	AddrGlobal
	AddrData
)

// Address names where a compile-time value lives: a frame-relative byte
// offset (AddrLocal), a static-scope entry (AddrGlobal, used only for
// name resolution bookkeeping), or a module data offset (AddrData).
type Address struct {
	Kind   AddrKind
	Offset int32
}

// Object pairs an Address with the Type stored there. eval_expr returns
// one for every expression it evaluates.
type Object struct {
	Addr Address
	Type *Type
}

// ExprKind tags a compile-time expression node.
type ExprKind int

const (
	ExprNothing ExprKind = iota
	ExprStackID
	ExprFunction
	ExprImportedFunction
	ExprConstant
	ExprBinary
	ExprCall
	ExprDataload
)

// ExprNode is one node of the expression tree a single statement builds.
// Unlike the bison-generated front end this design is distilled from,
// this hand-written recursive-descent parser naturally threads expression
// results as pointers rather than flat semantic-stack indices — the same
// "expression", "size", and evaluation-order semantics apply, just
// without the index arithmetic a flat array would need. No tree survives
// past the statement that built it.
type ExprNode struct {
	Kind     ExprKind
	Type     *Type
	Category Category
	Loc      diag.Location

	StackOffset int16  // ExprStackID
	TextOffset  uint16 // ExprFunction
	// TextOffsetUnresolved is true when ExprFunction refers to the
	// function currently being compiled (a recursive self-call) whose
	// entry offset isn't known until end_func runs. SETADR is emitted
	// with a placeholder and the instruction index recorded in
	// FuncContext.selfRefFixups for a later patch pass.
	TextOffsetUnresolved bool
	DataOffset           uint16 // ExprImportedFunction, ExprDataload

	ConstInt   int32 // ExprConstant (int)
	ConstFloat float32
	ConstBool  bool

	Binop   *BinopDef // ExprBinary
	LHS, RHS *ExprNode // ExprBinary

	Func *ExprNode   // ExprCall
	Args []*ExprNode // ExprCall, left-to-right source order
}

// GetExprSize returns the number of nodes n's subtree occupies — the
// direct analogue of the flat active_exprs record count the original
// design computes by a right-to-left walk. Exists chiefly so tests can
// assert the quantified invariant of spec.md §8 ("get_expr_size returns
// the exact count eval_expr's recursion will consume").
func GetExprSize(n *ExprNode) int {
	if n == nil {
		return 0
	}
	size := 1
	size += GetExprSize(n.LHS)
	size += GetExprSize(n.RHS)
	size += GetExprSize(n.Func)
	for _, a := range n.Args {
		size += GetExprSize(a)
	}
	return size
}

// frameSlot is one entry of local_stack or expr_stack: a byte offset and
// a type, named for locals and anonymous ("") for temporaries.
type frameSlot struct {
	Name string
	Addr int16
	Type *Type
}

const stackMax = 16384

// FuncContext is the compiler's per-function scratch state: the
// in-progress text, the two parallel LIFO stacks, and the declared
// signature.
type FuncContext struct {
	Name string
	Loc  diag.Location

	Text []bytecode.Instruction

	LocalStack []frameSlot
	ExprStack  []frameSlot

	ParamTypes []*Type
	RetType    *Type

	EntryOffset uint16
	// selfRefFixups holds indices into Text of SETADR instructions whose
	// placeholder address (offset 0) refers to this function's own entry point — only
	// possible for a recursive function referencing itself before
	// end_func has assigned a real entry offset.
	selfRefFixups []int
}

func (fc *FuncContext) emit(instr bytecode.Instruction) {
	fc.Text = append(fc.Text, instr)
}

// returnValueOffset computes return_value_offset(t) = -round_up(size(t),
// align(t)): the return value sits immediately below the callee's frame
// linkage.
func returnValueOffset(t *Type) int16 {
	sz := roundUp(t.Size(), t.Align())
	return -int16(sz)
}

func roundUp(n, align uint16) uint16 {
	if align == 0 {
		return n
	}
	if rem := n % align; rem != 0 {
		n += align - rem
	}
	return n
}

// staticEntry is one static_scope binding: a top-level function or an
// imported symbol. TextOffset is valid (and carries the -1 sentinel
// until end_func fixes it up) when Type.Kind == KindFunction. DataOffset
// is valid when Type.Kind == KindFunctionPtr (an imported symbol's
// resolved address/PolyFunc record lives in module data).
type staticEntry struct {
	Type       *Type
	TextOffset int32
	DataOffset uint16
}

const unresolvedEntry = -1

// ModuleResolver lets the compiler resolve a cross-module import against
// already-loaded modules without importing the runtime package (whose
// tests import compiler) — avoiding an import cycle.
type ModuleResolver interface {
	FindModule(name string) (index uint16, mod *bytecode.Module, found bool)
}

// Context is the compiler's top-level scratch state (script_context in
// the source this was distilled from): global type table, static scope,
// accumulated module text/data, and the in-progress function.
type Context struct {
	Resolver ModuleResolver

	Messages diag.Messages

	Program []bytecode.Instruction
	Data    []byte

	GlobalTypes map[string]*Type
	StaticScope map[string]*staticEntry

	CurFunc *FuncContext

	MainEntry uint16
	HasMain   bool

	CurrentImportModule string
	imports              []bytecode.Import
}

// NewContext returns a Context with the builtin types registered and a
// TERMINATE instruction already emitted at program offset 0, matching the
// bootstrap-linkage invariant every loaded module must hold.
func NewContext(resolver ModuleResolver) *Context {
	ctx := &Context{
		Resolver:    resolver,
		GlobalTypes: map[string]*Type{"int": IntType, "float": FloatType, "bool": BoolType},
		StaticScope: make(map[string]*staticEntry),
		Program:     []bytecode.Instruction{bytecode.NewDI(bytecode.Terminate, 0, 0)},
	}
	return ctx
}

func (c *Context) errorf(loc diag.Location, format string, args ...interface{}) {
	c.Messages = append(c.Messages, diag.Message{Severity: diag.Error, Loc: loc, Text: fmt.Sprintf(format, args...)})
}

func (c *Context) warnf(loc diag.Location, format string, args ...interface{}) {
	c.Messages = append(c.Messages, diag.Message{Severity: diag.Warning, Loc: loc, Text: fmt.Sprintf(format, args...)})
}
