package bytecode

/*
	Moonflower's instruction set is register-based in the sense that every
	operand names a byte offset into the current call frame rather than a
	stack slot. Each instruction is a fixed 8-byte record:

		(op:u8, reserved:u8, A:i16, payload:32 bits)

	payload is reinterpreted depending on the opcode as one of:
		- {B:i16, C:i16}   (two more frame offsets)
		- DI               (a 32-bit signed integer constant)
		- DF               (a 32-bit float constant)
		- DB               (a 4-byte boolean bit field)

	Encoding is little-endian and stable on disk (see Module.WriteTo).

	Opcodes:
		TERMINATE a          halt the program with exit code A
		ISETC/FSETC/BSETC a,c write a typed constant to frame offset A
		SETADR a,label       write a program address constant (module-local)
		SETDAT a,b,c         copy c bytes from module data offset b to frame offset a
		CPY a,b,c            copy c bytes from frame offset b to frame offset a
		IADD/ISUB/IMUL/IDIV/ICLT a,b,c   integer ALU, dest=a lhs=b rhs=c
		IADDC/ICLTC a,b,c    integer ALU against an inline i16 constant c
		FADD/FSUB/FMUL/FDIV a,b,c        float ALU, dest=a lhs=b rhs=c
		JMP label            PC-relative unconditional jump
		JMPIFN a,label       PC-relative jump if byte at frame offset a is zero
		CALL a,b             Moonflower call: a=linkage/return-value offset, b=program-address slot
		RET                  return via the callee frame's linkage words
		CFCALL a             invoke the native function whose table index lives at data offset a
		PFCALL a,b           polymorphic call: dispatch on the PolyFunc tag stored at frame offset b

	There is no CFLOAD: a native function pointer cannot be serialized onto
	the Go stack portably, so CFCALL's A operand is itself the data offset
	of a native-table index rather than a loaded register value.
*/

// Op identifies a Moonflower instruction.
type Op byte

const (
	Terminate Op = iota

	Isetc
	Fsetc
	Bsetc

	Setadr
	Setdat
	Cpy

	Iadd
	Isub
	Imul
	Idiv
	Iclt
	Iaddc
	Icltc

	Fadd
	Fsub
	Fmul
	Fdiv

	Jmp
	Jmpifn

	Call
	Ret

	Cfcall
	Pfcall
)

var (
	strToOpMap = map[string]Op{
		"terminate": Terminate,
		"isetc":     Isetc,
		"fsetc":     Fsetc,
		"bsetc":     Bsetc,
		"setadr":    Setadr,
		"setdat":    Setdat,
		"cpy":       Cpy,
		"iadd":      Iadd,
		"isub":      Isub,
		"imul":      Imul,
		"idiv":      Idiv,
		"iclt":      Iclt,
		"iaddc":     Iaddc,
		"icltc":     Icltc,
		"fadd":      Fadd,
		"fsub":      Fsub,
		"fmul":      Fmul,
		"fdiv":      Fdiv,
		"jmp":       Jmp,
		"jmpifn":    Jmpifn,
		"call":      Call,
		"ret":       Ret,
		"cfcall":    Cfcall,
		"pfcall":    Pfcall,
	}

	opToStrMap map[Op]string
)

func init() {
	opToStrMap = make(map[Op]string, len(strToOpMap))
	for s, o := range strToOpMap {
		opToStrMap[o] = s
	}
}

// OpFromString resolves a mnemonic (as it appears in assembler source) to
// its Op. ok is false for unknown mnemonics.
func OpFromString(s string) (Op, bool) {
	o, ok := strToOpMap[s]
	return o, ok
}

func (o Op) String() string {
	str, ok := opToStrMap[o]
	if !ok {
		return "?unknown?"
	}
	return str
}

// IsRelativeJump is true for the two opcodes whose DI payload is a
// PC-relative displacement rather than a data/immediate value.
func (o Op) IsRelativeJump() bool {
	return o == Jmp || o == Jmpifn
}

// UsesBCPayload is true for opcodes that read payload as {B,C} frame
// offsets rather than an immediate.
func (o Op) UsesBCPayload() bool {
	switch o {
	case Setdat, Cpy, Iadd, Isub, Imul, Idiv, Iclt, Fadd, Fsub, Fmul, Fdiv:
		return true
	}
	return false
}
