package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeEqualityStructuralForFunctionPtr(t *testing.T) {
	sigA := &FuncSig{Params: []*Type{IntType}, Return: BoolType}
	sigB := &FuncSig{Params: []*Type{IntType}, Return: BoolType}

	a := &Type{Kind: KindFunctionPtr, Func: sigA}
	b := &Type{Kind: KindFunctionPtr, Func: sigB}
	require.True(t, Equal(a, b))

	polyA := &Type{Kind: KindFunctionPtr, Func: sigA, Poly: true}
	require.False(t, Equal(a, polyA), "Poly must participate in function_ptr equality")
}

func TestTypeEqualityIdentityForUsertype(t *testing.T) {
	u1 := &UserType{Name: "Point", Size: 8, Align: 4}
	u2 := &UserType{Name: "Point", Size: 8, Align: 4}

	t1 := &Type{Kind: KindUsertype, User: u1}
	t2 := &Type{Kind: KindUsertype, User: u2}
	require.False(t, Equal(t1, t2), "usertypes of the same shape but different identity must not be equal")
	require.True(t, Equal(t1, t1))
}

func TestGetBinopLinearScan(t *testing.T) {
	def, ok := GetBinop(intUser, BinopAdd, IntType)
	require.True(t, ok)
	require.Same(t, IntType, def.Result)

	_, ok = GetBinop(intUser, BinopAdd, FloatType)
	require.False(t, ok)
}

func TestSizeAndAlign(t *testing.T) {
	require.EqualValues(t, 0, NothingType.Size())
	require.EqualValues(t, 4, IntType.Size())
	require.EqualValues(t, 4, (&Type{Kind: KindFunctionPtr}).Size())
	require.EqualValues(t, 16, (&Type{Kind: KindFunctionPtr, Poly: true}).Size())
}
