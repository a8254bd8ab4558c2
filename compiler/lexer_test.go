package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokKinds(src string) []TokKind {
	l := NewLexer(src)
	var out []TokKind
	for {
		tok := l.Next()
		out = append(out, tok.Kind)
		if tok.Kind == TokEOF {
			return out
		}
	}
}

func TestLexerKeywordsAndPunctuation(t *testing.T) {
	kinds := tokKinds(`func f(a: int) -> int { return a; }`)
	require.Equal(t, []TokKind{
		TokFunc, TokIdent, TokLParen, TokIdent, TokColon, TokIdent, TokRParen,
		TokArrow, TokIdent, TokLBrace, TokReturn, TokIdent, TokSemi, TokRBrace,
		TokEOF,
	}, kinds)
}

func TestLexerNumbers(t *testing.T) {
	l := NewLexer("42 3.5")
	tok := l.Next()
	require.Equal(t, TokInt, tok.Kind)
	require.EqualValues(t, 42, tok.IntVal)

	tok = l.Next()
	require.Equal(t, TokFloat, tok.Kind)
	require.InDelta(t, 3.5, tok.FltVal, 0.0001)
}

func TestLexerSkipsLineComments(t *testing.T) {
	kinds := tokKinds("// a comment\nlet x = 1;")
	require.Equal(t, []TokKind{TokLet, TokIdent, TokAssign, TokInt, TokSemi, TokEOF}, kinds)
}

func TestLexerStringLiteral(t *testing.T) {
	l := NewLexer(`import "mymodule" { f };`)
	l.Next() // import
	tok := l.Next()
	require.Equal(t, TokString, tok.Kind)
	require.Equal(t, "mymodule", tok.Text)
}
