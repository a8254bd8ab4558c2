package bytecode

import "encoding/binary"

// PolyFunc tag values: which union member of the 16-byte record is live.
const (
	PolyTagMoonflower uint32 = 0
	PolyTagNative     uint32 = 1
)

// PolyFunc is the tagged record a cross-module `imported_function`
// expression loads: it may resolve to either Moonflower bytecode or a
// native (host) function, and PFCALL dispatches at runtime on Tag rather
// than relying on any language-level virtual dispatch (spec.md §9).
type PolyFunc struct {
	Tag         uint32
	Addr        ProgramAddress // valid when Tag == PolyTagMoonflower
	NativeIndex uint32         // valid when Tag == PolyTagNative
}

const PolyFuncSize = 16

// Encode writes the 16-byte on-stack/in-data representation: tag (4
// bytes), then a 12-byte payload holding either the packed program
// address or the native table index, zero-padded.
func (p PolyFunc) Encode() [PolyFuncSize]byte {
	var buf [PolyFuncSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], p.Tag)
	switch p.Tag {
	case PolyTagMoonflower:
		binary.LittleEndian.PutUint16(buf[4:6], p.Addr.Module)
		binary.LittleEndian.PutUint16(buf[6:8], p.Addr.Offset)
	case PolyTagNative:
		binary.LittleEndian.PutUint32(buf[4:8], p.NativeIndex)
	}
	return buf
}

// DecodePolyFunc reads a PolyFunc from its 16-byte representation.
func DecodePolyFunc(buf [PolyFuncSize]byte) PolyFunc {
	p := PolyFunc{Tag: binary.LittleEndian.Uint32(buf[0:4])}
	switch p.Tag {
	case PolyTagMoonflower:
		p.Addr = ProgramAddress{
			Module: binary.LittleEndian.Uint16(buf[4:6]),
			Offset: binary.LittleEndian.Uint16(buf[6:8]),
		}
	case PolyTagNative:
		p.NativeIndex = binary.LittleEndian.Uint32(buf[4:8])
	}
	return p
}
