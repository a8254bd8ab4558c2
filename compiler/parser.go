package compiler

// Parser is a hand-written recursive-descent parser over the script
// source surface of spec.md §6 (plus the while/type/member-access
// additions of SPEC_FULL.md §4.2), driving Context's semantic-action
// methods directly as it recognizes each production — there is no
// intermediate AST, matching the single-pass design this compiler
// implements.
type Parser struct {
	lex  *Lexer
	ctx  *Context
	cur  Tok
	peek Tok
}

// NewParser returns a Parser ready to drive ctx from src.
func NewParser(src string, ctx *Context) *Parser {
	p := &Parser{lex: NewLexer(src), ctx: ctx}
	p.cur = p.lex.Next()
	p.peek = p.lex.Next()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) expect(k TokKind, what string) Tok {
	if p.cur.Kind != k {
		p.ctx.errorf(p.cur.Loc, "expected %s", what)
		return p.cur
	}
	tok := p.cur
	p.advance()
	return tok
}

// Parse consumes the entire source as a sequence of top-level
// declarations.
func (p *Parser) Parse() {
	for p.cur.Kind != TokEOF {
		switch p.cur.Kind {
		case TokImport:
			p.parseImport()
		case TokType:
			p.parseTypeDecl()
		case TokFunc:
			p.parseFunc()
		default:
			p.ctx.errorf(p.cur.Loc, "expected import, type, or func declaration")
			p.advance()
		}
	}
}

func (p *Parser) parseImport() {
	loc := p.cur.Loc
	p.advance() // 'import'
	modTok := p.expect(TokString, "module name string")
	p.expect(TokLBrace, "{")

	var names []string
	if p.cur.Kind == TokIdent {
		names = append(names, p.cur.Text)
		p.advance()
		for p.cur.Kind == TokComma {
			p.advance()
			names = append(names, p.expect(TokIdent, "imported name").Text)
		}
	}
	p.expect(TokRBrace, "}")
	if p.cur.Kind == TokSemi {
		p.advance()
	}

	p.ctx.Import(modTok.Text, names, loc)
}

func (p *Parser) parseTypeDecl() {
	p.advance() // 'type'
	nameTok := p.expect(TokIdent, "type name")
	p.expect(TokLBrace, "{")

	fields := make(map[string]Field)
	var offset uint16
	var align uint16 = 1
	for p.cur.Kind != TokRBrace && p.cur.Kind != TokEOF {
		fieldName := p.expect(TokIdent, "field name").Text
		p.expect(TokColon, ":")
		fieldType := p.resolveTypeName(p.expect(TokIdent, "field type").Text, p.cur.Loc)

		fieldOff := roundUp(offset, fieldType.Align())
		fields[fieldName] = Field{Offset: fieldOff, Type: fieldType}
		offset = fieldOff + fieldType.Size()
		if fieldType.Align() > align {
			align = fieldType.Align()
		}

		if p.cur.Kind == TokComma {
			p.advance()
		}
	}
	p.expect(TokRBrace, "}")
	if p.cur.Kind == TokSemi {
		p.advance()
	}

	ut := &UserType{Name: nameTok.Text, Size: roundUp(offset, align), Align: align, Fields: fields}
	p.ctx.GlobalTypes[nameTok.Text] = &Type{Kind: KindUsertype, User: ut}
}

func (p *Parser) resolveTypeName(name string, loc Location) *Type {
	if t, ok := p.ctx.GlobalTypes[name]; ok {
		return t
	}
	p.ctx.errorf(loc, "unknown type: %s", name)
	return NothingType
}

func (p *Parser) parseFunc() {
	loc := p.cur.Loc
	p.advance() // 'func'
	nameTok := p.expect(TokIdent, "function name")

	p.ctx.BeginFunc(nameTok.Text, loc)

	p.expect(TokLParen, "(")
	for p.cur.Kind != TokRParen && p.cur.Kind != TokEOF {
		paramLoc := p.cur.Loc
		paramName := p.expect(TokIdent, "parameter name").Text
		p.expect(TokColon, ":")
		paramType := p.resolveTypeName(p.expect(TokIdent, "parameter type").Text, paramLoc)
		p.ctx.AddParam(paramName, paramType, paramLoc)
		if p.cur.Kind == TokComma {
			p.advance()
		}
	}
	p.expect(TokRParen, ")")

	p.expect(TokArrow, "->")
	retType := p.resolveTypeName(p.expect(TokIdent, "return type").Text, p.cur.Loc)
	p.ctx.SetReturnType(retType)

	p.parseBlock()
	p.ctx.EndFunc()
}

func (p *Parser) parseBlock() {
	p.expect(TokLBrace, "{")
	mark := p.ctx.BeginBlock()
	for p.cur.Kind != TokRBrace && p.cur.Kind != TokEOF {
		p.parseStmt()
	}
	p.expect(TokRBrace, "}")
	p.ctx.EndBlock(mark, true)
}

func (p *Parser) parseStmt() {
	switch p.cur.Kind {
	case TokLet:
		loc := p.cur.Loc
		p.advance()
		name := p.expect(TokIdent, "variable name").Text
		p.expect(TokAssign, "=")
		expr := p.parseExpr()
		p.expect(TokSemi, ";")
		p.ctx.EmitVardecl(name, expr, loc)

	case TokReturn:
		loc := p.cur.Loc
		p.advance()
		var expr *ExprNode
		if p.cur.Kind != TokSemi {
			expr = p.parseExpr()
		}
		p.expect(TokSemi, ";")
		p.ctx.EmitReturn(expr, loc)

	case TokIf:
		loc := p.cur.Loc
		p.advance()
		p.expect(TokLParen, "(")
		cond := p.parseExpr()
		p.expect(TokRParen, ")")
		exit := p.ctx.EmitIf(cond, loc)
		p.parseBlock()
		if p.cur.Kind == TokElse {
			elseJmp := p.ctx.EmitJmp()
			p.ctx.SetJmp(exit)
			p.advance()
			p.parseBlock()
			p.ctx.SetJmp(elseJmp)
		} else {
			p.ctx.SetJmp(exit)
		}

	case TokWhile:
		loc := p.cur.Loc
		p.advance()
		p.expect(TokLParen, "(")
		p.ctx.EmitWhile(func() *ExprNode {
			cond := p.parseExpr()
			return cond
		}, func() {
			p.expect(TokRParen, ")")
			p.parseBlock()
		}, loc)

	default:
		expr := p.parseExpr()
		p.expect(TokSemi, ";")
		p.ctx.EmitDiscard(expr)
	}
}

// parseExpr climbs precedence: comparison < additive < multiplicative <
// postfix/primary.
func (p *Parser) parseExpr() *ExprNode {
	return p.parseComparison()
}

func (p *Parser) parseComparison() *ExprNode {
	lhs := p.parseAdditive()
	if p.cur.Kind == TokLess {
		loc := p.cur.Loc
		p.advance()
		rhs := p.parseAdditive()
		return p.ctx.ExprBinop(lhs, rhs, "<", loc)
	}
	return lhs
}

func (p *Parser) parseAdditive() *ExprNode {
	lhs := p.parseMultiplicative()
	for p.cur.Kind == TokPlus || p.cur.Kind == TokMinus {
		op := "+"
		if p.cur.Kind == TokMinus {
			op = "-"
		}
		loc := p.cur.Loc
		p.advance()
		rhs := p.parseMultiplicative()
		lhs = p.ctx.ExprBinop(lhs, rhs, op, loc)
	}
	return lhs
}

func (p *Parser) parseMultiplicative() *ExprNode {
	lhs := p.parsePostfix()
	for p.cur.Kind == TokStar || p.cur.Kind == TokSlash {
		op := "*"
		if p.cur.Kind == TokSlash {
			op = "/"
		}
		loc := p.cur.Loc
		p.advance()
		rhs := p.parsePostfix()
		lhs = p.ctx.ExprBinop(lhs, rhs, op, loc)
	}
	return lhs
}

func (p *Parser) parsePostfix() *ExprNode {
	loc := p.cur.Loc

	if p.cur.Kind == TokIdent {
		name := p.cur.Text
		p.advance()

		if p.cur.Kind == TokDot {
			var fields []string
			for p.cur.Kind == TokDot {
				p.advance()
				fields = append(fields, p.expect(TokIdent, "field name").Text)
			}
			return p.ctx.ExprField(name, fields, loc)
		}

		if p.cur.Kind == TokLParen {
			p.advance()
			var args []*ExprNode
			if p.cur.Kind != TokRParen {
				args = append(args, p.parseExpr())
				for p.cur.Kind == TokComma {
					p.advance()
					args = append(args, p.parseExpr())
				}
			}
			p.expect(TokRParen, ")")
			fn := p.ctx.ExprID(name, loc)
			return p.ctx.ExprCall(fn, args, loc)
		}

		return p.ctx.ExprID(name, loc)
	}

	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *ExprNode {
	loc := p.cur.Loc
	switch p.cur.Kind {
	case TokInt:
		v := p.cur.IntVal
		p.advance()
		return p.ctx.ExprConstInt(v, loc)
	case TokFloat:
		v := p.cur.FltVal
		p.advance()
		return p.ctx.ExprConstFloat(v, loc)
	case TokTrue:
		p.advance()
		return p.ctx.ExprConstBool(true, loc)
	case TokFalse:
		p.advance()
		return p.ctx.ExprConstBool(false, loc)
	case TokLParen:
		p.advance()
		e := p.parseExpr()
		p.expect(TokRParen, ")")
		return e
	}

	p.ctx.errorf(loc, "expected expression")
	p.advance()
	return &ExprNode{Kind: ExprNothing, Type: NothingType, Category: ExpiringCategory, Loc: loc}
}
