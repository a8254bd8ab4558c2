package bytecode

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Instruction is the fixed 8-byte on-disk and in-memory instruction record:
// (op:u8, reserved:u8, A:i16, payload:32 bits). Payload is reinterpreted by
// BC/DI/DF/DB depending on which shape the opcode expects.
type Instruction struct {
	Op       Op
	Reserved byte
	A        int16
	Payload  [4]byte
}

const instructionBytes = 8

func init() {
	if unsafe.Sizeof(Instruction{}) != instructionBytes {
		panic("bytecode: Instruction is not 8 bytes")
	}
}

// NewBC builds an instruction whose payload is the two frame offsets B, C.
func NewBC(op Op, a, b, c int16) Instruction {
	var instr Instruction
	instr.Op = op
	instr.A = a
	binary.LittleEndian.PutUint16(instr.Payload[0:2], uint16(b))
	binary.LittleEndian.PutUint16(instr.Payload[2:4], uint16(c))
	return instr
}

// NewDI builds an instruction whose payload is a 32-bit signed integer.
func NewDI(op Op, a int16, di int32) Instruction {
	var instr Instruction
	instr.Op = op
	instr.A = a
	binary.LittleEndian.PutUint32(instr.Payload[:], uint32(di))
	return instr
}

// NewDF builds an instruction whose payload is a 32-bit float.
func NewDF(op Op, a int16, df float32) Instruction {
	var instr Instruction
	instr.Op = op
	instr.A = a
	binary.LittleEndian.PutUint32(instr.Payload[:], math.Float32bits(df))
	return instr
}

// NewDB builds an instruction whose payload is a boolean bit field.
func NewDB(op Op, a int16, b bool) Instruction {
	var instr Instruction
	instr.Op = op
	instr.A = a
	if b {
		instr.Payload[0] = 1
	}
	return instr
}

// B reads the payload as the first of two frame offsets.
func (i Instruction) B() int16 {
	return int16(binary.LittleEndian.Uint16(i.Payload[0:2]))
}

// C reads the payload as the second of two frame offsets.
func (i Instruction) C() int16 {
	return int16(binary.LittleEndian.Uint16(i.Payload[2:4]))
}

// DI reads the payload as a 32-bit signed integer.
func (i Instruction) DI() int32 {
	return int32(binary.LittleEndian.Uint32(i.Payload[:]))
}

// DF reads the payload as a 32-bit float.
func (i Instruction) DF() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(i.Payload[:]))
}

// DB reads the payload as a boolean bit field.
func (i Instruction) DB() bool {
	return i.Payload[0] != 0
}

// SetDI overwrites the payload in place, used by label/self-reference
// fix-up passes that patch a placeholder instruction after the fact.
func (i *Instruction) SetDI(di int32) {
	binary.LittleEndian.PutUint32(i.Payload[:], uint32(di))
}

// Encode writes the instruction's stable 8-byte little-endian form.
func (i Instruction) Encode() [8]byte {
	var buf [8]byte
	buf[0] = byte(i.Op)
	buf[1] = i.Reserved
	binary.LittleEndian.PutUint16(buf[2:4], uint16(i.A))
	copy(buf[4:8], i.Payload[:])
	return buf
}

// DecodeInstruction reads an instruction from its stable 8-byte form.
func DecodeInstruction(buf [8]byte) Instruction {
	var instr Instruction
	instr.Op = Op(buf[0])
	instr.Reserved = buf[1]
	instr.A = int16(binary.LittleEndian.Uint16(buf[2:4]))
	copy(instr.Payload[:], buf[4:8])
	return instr
}

func (i Instruction) String() string {
	return i.Op.String()
}
