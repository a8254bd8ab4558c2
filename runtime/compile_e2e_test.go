package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/compiler"
)

// entryRetvalSize mirrors cmd/mfrun's reservation of space below the
// bootstrap frame for a scalar-returning entry point.
const entryRetvalSize = 4

func compileAndRun(t *testing.T, source string) int32 {
	t.Helper()
	st := NewState(4096, true)

	mod, msgs := compiler.Compile("test", source, st)
	require.False(t, msgs.HasError(), "unexpected errors: %v", msgs)

	idx, err := st.Load(mod)
	require.NoError(t, err)

	entry, err := st.EntryPoint(idx, "")
	require.NoError(t, err)

	code, reason := st.Run(idx, entry, entryRetvalSize)
	require.EqualValues(t, 0, code)
	require.Empty(t, reason)

	return st.Machine.ReadInt(entryRetvalSize, returnValueOffsetInt)
}

// returnValueOffsetInt mirrors compiler.returnValueOffset for a 4-byte,
// 4-aligned int return type.
const returnValueOffsetInt = -4

func TestCompileAndRunArithmeticReturns14(t *testing.T) {
	got := compileAndRun(t, `
		func main() -> int {
			return 2 + 3 * 4;
		}
	`)
	require.EqualValues(t, 14, got)
}

func TestCompileAndRunBranchReturns9(t *testing.T) {
	got := compileAndRun(t, `
		func main() -> int {
			let x = 1;
			if (x < 0) {
				return 7;
			} else {
				return 9;
			}
		}
	`)
	require.EqualValues(t, 9, got)
}

func TestCompileAndRunRecursionReturns55(t *testing.T) {
	got := compileAndRun(t, `
		func fib(n: int) -> int {
			if (n < 2) {
				return n;
			} else {
				return fib(n - 1) + fib(n - 2);
			}
		}

		func main() -> int {
			return fib(10);
		}
	`)
	require.EqualValues(t, 55, got)
}
