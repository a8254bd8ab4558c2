package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolyFuncEncodeRoundTripMoonflower(t *testing.T) {
	p := PolyFunc{Tag: PolyTagMoonflower, Addr: ProgramAddress{Module: 2, Offset: 40}}
	got := DecodePolyFunc(p.Encode())
	require.Equal(t, p, got)
}

func TestPolyFuncEncodeRoundTripNative(t *testing.T) {
	p := PolyFunc{Tag: PolyTagNative, NativeIndex: 7}
	got := DecodePolyFunc(p.Encode())
	require.Equal(t, p, got)
}

func TestPolyFuncSizeIs16(t *testing.T) {
	p := PolyFunc{Tag: PolyTagNative, NativeIndex: 1}
	require.Len(t, p.Encode(), PolyFuncSize)
}
