package bytecode

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ProgramAddress identifies a single instruction inside a loaded runtime
// state: which module, and the text offset within it.
type ProgramAddress struct {
	Module uint16
	Offset uint16
}

// SelfModule is the sentinel module index meaning "whichever module this
// program address is executing in" — the compiler cannot know a module's
// eventual load-order index for its own intra-module function references,
// so SETADR always writes SelfModule and the interpreter substitutes the
// currently executing module at CALL time.
const SelfModule uint16 = 0xFFFF

// NewAddrInstr builds an instruction whose payload is a packed
// ProgramAddress (module:u16, offset:u16), used by SETADR.
func NewAddrInstr(op Op, a int16, addr ProgramAddress) Instruction {
	var instr Instruction
	instr.Op = op
	instr.A = a
	binary.LittleEndian.PutUint16(instr.Payload[0:2], addr.Module)
	binary.LittleEndian.PutUint16(instr.Payload[2:4], addr.Offset)
	return instr
}

// Addr reads the payload as a packed ProgramAddress.
func (i Instruction) Addr() ProgramAddress {
	return ProgramAddress{
		Module: binary.LittleEndian.Uint16(i.Payload[0:2]),
		Offset: binary.LittleEndian.Uint16(i.Payload[2:4]),
	}
}

// SetAddr overwrites the payload in place with a packed ProgramAddress,
// used to patch a SETADR placeholder once a function's real entry offset
// is known (the self-reference fix-up of spec.md §4.2.4).
func (i *Instruction) SetAddr(addr ProgramAddress) {
	binary.LittleEndian.PutUint16(i.Payload[0:2], addr.Module)
	binary.LittleEndian.PutUint16(i.Payload[2:4], addr.Offset)
}

// Import records that a module consumed symbol Name from module FromModule,
// and at which module-data offset the resolved PolyFunc record was written. It is
// bookkeeping for introspection only — imports are resolved once, at
// compile/assemble time, not re-resolved on load.
type Import struct {
	FromModule string
	Name       string
	AtOffset   uint16
}

// Module is the in-memory unit produced by the assembler or the script
// compiler and consumed by a runtime state: a name, a text segment, a data
// segment, and the export/import tables that let other modules reference
// it (or it reference them).
type Module struct {
	Name string

	Text []Instruction
	Data []byte

	// Exports maps an exported symbol to its text offset (a Moonflower
	// function entry point).
	Exports map[string]uint16

	// NativeExports maps an exported symbol to an index into the loading
	// state's native function table, for modules that expose
	// host-implemented functions rather than Moonflower bytecode.
	NativeExports map[string]uint32

	Imports []Import

	EntryPoint uint16
}

// NewModule returns an empty module with its maps initialized and a
// TERMINATE instruction already at text offset 0, satisfying the
// bootstrap-linkage invariant every loaded module must hold.
func NewModule(name string) *Module {
	return &Module{
		Name:          name,
		Text:          []Instruction{NewDI(Terminate, 0, 0)},
		Exports:       make(map[string]uint16),
		NativeExports: make(map[string]uint32),
	}
}

const exportListTerminator = -1

// WriteTo serializes the module's entry point, text, and export table in
// the exact little-endian layout:
//
//	i32 entry_point
//	i32 text_word_count
//	text_word_count * 8 bytes
//	loop: i32 export_addr (-1 terminates); if != -1: i32 name_length, name bytes
//
// Data and imports are not part of the on-disk layout; they exist only for
// the duration of a single compile/load session.
func (m *Module) WriteTo(w io.Writer) (int64, error) {
	var written int64

	if err := binary.Write(w, binary.LittleEndian, int32(m.EntryPoint)); err != nil {
		return written, errors.Wrap(err, "writing entry point")
	}
	written += 4

	if err := binary.Write(w, binary.LittleEndian, int32(len(m.Text))); err != nil {
		return written, errors.Wrap(err, "writing text word count")
	}
	written += 4

	for _, instr := range m.Text {
		enc := instr.Encode()
		n, err := w.Write(enc[:])
		written += int64(n)
		if err != nil {
			return written, errors.Wrap(err, "writing text")
		}
	}

	for name, addr := range m.Exports {
		if err := binary.Write(w, binary.LittleEndian, int32(addr)); err != nil {
			return written, errors.Wrap(err, "writing export address")
		}
		written += 4
		if err := binary.Write(w, binary.LittleEndian, int32(len(name))); err != nil {
			return written, errors.Wrap(err, "writing export name length")
		}
		written += 4
		n, err := io.WriteString(w, name)
		written += int64(n)
		if err != nil {
			return written, errors.Wrap(err, "writing export name")
		}
	}

	if err := binary.Write(w, binary.LittleEndian, int32(exportListTerminator)); err != nil {
		return written, errors.Wrap(err, "writing export terminator")
	}
	written += 4

	return written, nil
}

// ReadFrom deserializes a module written by WriteTo. Name, Data, and
// Imports are not touched, so callers set m.Name themselves; NativeExports
// is set to an empty map if it is nil.
func (m *Module) ReadFrom(r io.Reader) (int64, error) {
	var read int64

	var entryPoint int32
	if err := binary.Read(r, binary.LittleEndian, &entryPoint); err != nil {
		return read, errors.Wrap(err, "reading entry point")
	}
	read += 4
	m.EntryPoint = uint16(entryPoint)

	var wordCount int32
	if err := binary.Read(r, binary.LittleEndian, &wordCount); err != nil {
		return read, errors.Wrap(err, "reading text word count")
	}
	read += 4
	if wordCount < 0 {
		return read, errors.Errorf("negative text word count: %d", wordCount)
	}

	m.Text = make([]Instruction, wordCount)
	for i := range m.Text {
		var buf [8]byte
		n, err := io.ReadFull(r, buf[:])
		read += int64(n)
		if err != nil {
			return read, errors.Wrapf(err, "reading instruction %d", i)
		}
		m.Text[i] = DecodeInstruction(buf)
	}

	m.Exports = make(map[string]uint16)
	for {
		var addr int32
		if err := binary.Read(r, binary.LittleEndian, &addr); err != nil {
			return read, errors.Wrap(err, "reading export address")
		}
		read += 4
		if addr == exportListTerminator {
			break
		}

		var nameLen int32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return read, errors.Wrap(err, "reading export name length")
		}
		read += 4
		if nameLen < 0 {
			return read, errors.Errorf("negative export name length: %d", nameLen)
		}

		nameBytes := make([]byte, nameLen)
		n, err := io.ReadFull(r, nameBytes)
		read += int64(n)
		if err != nil {
			return read, errors.Wrap(err, "reading export name")
		}

		m.Exports[string(nameBytes)] = uint16(addr)
	}

	if m.NativeExports == nil {
		m.NativeExports = make(map[string]uint32)
	}

	return read, nil
}
