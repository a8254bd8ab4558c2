package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moonflower/bytecode"
)

// nullResolver never finds a module; used by tests that don't exercise
// cross-module imports.
type nullResolver struct{}

func (nullResolver) FindModule(name string) (uint16, *bytecode.Module, bool) {
	return 0, nil, false
}

func mustCompile(t *testing.T, source string) *bytecode.Module {
	t.Helper()
	mod, msgs := Compile("test", source, nullResolver{})
	require.False(t, msgs.HasError(), "unexpected errors: %v", msgs)
	return mod
}

func TestCompileArithmetic(t *testing.T) {
	mod := mustCompile(t, `
		func main() -> int {
			let a = 2;
			let b = 3;
			return a * b + 1;
		}
	`)
	require.True(t, mod.EntryPoint > 0 || len(mod.Text) > 1)
	require.Contains(t, mod.Exports, "main")
}

func TestCompileBranch(t *testing.T) {
	mod := mustCompile(t, `
		func choose(a: int, b: int) -> int {
			if (a < b) {
				return a;
			} else {
				return b;
			}
		}

		func main() -> int {
			return choose(4, 9);
		}
	`)
	require.Contains(t, mod.Exports, "choose")
	require.Contains(t, mod.Exports, "main")
}

func TestCompileWhileLoop(t *testing.T) {
	mod := mustCompile(t, `
		func spin(n: int) -> int {
			while (n < 0) {
				let unused = 1;
			}
			return n;
		}
	`)
	require.Contains(t, mod.Exports, "spin")
}

func TestCompileRecursion(t *testing.T) {
	mod := mustCompile(t, `
		func fact(n: int) -> int {
			if (n < 2) {
				return 1;
			}
			return n * fact(n - 1);
		}
	`)
	require.Contains(t, mod.Exports, "fact")
}

func TestCompileStructFieldAccess(t *testing.T) {
	mod := mustCompile(t, `
		type Point {
			x: int,
			y: int
		}

		func sum(p: Point) -> int {
			return p.x + p.y;
		}
	`)
	require.Contains(t, mod.Exports, "sum")
}

func TestCompileUndeclaredNameIsError(t *testing.T) {
	_, msgs := Compile("test", `
		func main() -> int {
			return missing;
		}
	`, nullResolver{})
	require.True(t, msgs.HasError())
}

func TestCompileArityMismatchIsError(t *testing.T) {
	_, msgs := Compile("test", `
		func takesOne(a: int) -> int {
			return a;
		}

		func main() -> int {
			return takesOne(1, 2);
		}
	`, nullResolver{})
	require.True(t, msgs.HasError())
}

func TestCompileUnclosedBlockIsError(t *testing.T) {
	_, msgs := Compile("test", `
		func main() -> int {
			return 0;
	`, nullResolver{})
	require.True(t, msgs.HasError())
}
