package parse

import (
	"fmt"
	"strings"

	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/intern"
)

// parser is a hand-written recursive-descent reader over a flat token
// slice, adapted from the teacher's base_parser.go (which reads runes
// the same way, one rule per method). The only rewind is in
// parseComparison, which looks past `not` for `in`; the tuple/grouping-
// paren and dict/set-brace forms are told apart by the token that
// follows the first element.
type parser struct {
	toks []token
	pos  int
	strs *intern.Table
	li   *ast.LineIndex
	file string
}

func newParser(toks []token, strs *intern.Table, li *ast.LineIndex, file string) *parser {
	return &parser{toks: toks, strs: strs, li: li, file: file}
}

func (p *parser) cur() token      { return p.toks[p.pos] }
func (p *parser) at(k tokKind) bool { return p.cur().kind == k }
func (p *parser) atKeyword(kw string) bool {
	return p.cur().kind == tokKeyword && p.cur().str == kw
}
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) span(start token) ast.Span {
	return ast.Span{Start: p.li.At(start.pos), End: p.li.At(start.end)}
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Offset:   p.cur().pos,
		Loc:      p.li.At(p.cur().pos),
		Message:  fmt.Sprintf(format, args...),
		FileName: p.file,
	}
}

func (p *parser) expect(k tokKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, p.errorf("expected %s", what)
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw string) (token, error) {
	if !p.atKeyword(kw) {
		return token{}, p.errorf("expected %q", kw)
	}
	return p.advance(), nil
}

func (p *parser) expectNewlineIndent() error {
	if _, err := p.expect(tokNewline, "newline"); err != nil {
		return err
	}
	if _, err := p.expect(tokIndent, "indented block"); err != nil {
		return err
	}
	return nil
}

func placeholderIdent(id intern.ID, pos ast.Span) ast.Identifier {
	return ast.Identifier{NameID: id, Scope: ast.ScopeLocal, Slot: -1, Pos: pos}
}

// parseModule parses a whole token stream as module-level statements.
func parseModule(toks []token, strs *intern.Table, li *ast.LineIndex, file string) ([]ast.Stmt, error) {
	p := newParser(toks, strs, li, file)
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmts, nil
}

// parseStatements parses statements until EOF or a DEDENT, used for both
// the module body and any indented block body.
func (p *parser) parseStatements() ([]ast.Stmt, error) {
	var out []ast.Stmt
	for {
		for p.at(tokNewline) {
			p.advance()
		}
		if p.at(tokEOF) || p.at(tokDedent) {
			return out, nil
		}
		stmts, err := p.parseStatementUnit()
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
}

// parseStatementUnit parses one compound statement, or one line of
// ';'-separated simple statements terminated by NEWLINE.
func (p *parser) parseStatementUnit() ([]ast.Stmt, error) {
	switch {
	case p.atKeyword("def"):
		s, err := p.parseFuncDef()
		return []ast.Stmt{s}, err
	case p.atKeyword("if"):
		s, err := p.parseIfTail("if")
		return []ast.Stmt{s}, err
	case p.atKeyword("while"):
		s, err := p.parseWhile()
		return []ast.Stmt{s}, err
	case p.atKeyword("for"):
		s, err := p.parseFor()
		return []ast.Stmt{s}, err
	case p.atKeyword("try"):
		s, err := p.parseTry()
		return []ast.Stmt{s}, err
	}

	var out []ast.Stmt
	for {
		s, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if p.at(tokSemicolonMarker) {
			p.advance()
			if p.at(tokNewline) || p.at(tokEOF) {
				break
			}
			continue
		}
		break
	}
	if p.at(tokNewline) {
		p.advance()
	} else if !p.at(tokEOF) {
		return nil, p.errorf("expected newline")
	}
	return out, nil
}

func (p *parser) parseSimpleStmt() (ast.Stmt, error) {
	switch {
	case p.atKeyword("pass"):
		t := p.advance()
		return &ast.Pass{Pos: p.span(t)}, nil
	case p.atKeyword("break"):
		t := p.advance()
		return &ast.Break{Pos: p.span(t)}, nil
	case p.atKeyword("continue"):
		t := p.advance()
		return &ast.Continue{Pos: p.span(t)}, nil
	case p.atKeyword("return"):
		t := p.advance()
		if p.at(tokNewline) || p.at(tokEOF) || p.cur().kind == tokSemicolonMarker {
			return &ast.Return{Pos: p.span(t)}, nil
		}
		v, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: v, Pos: p.span(t)}, nil
	case p.atKeyword("raise"):
		t := p.advance()
		if p.at(tokNewline) || p.at(tokEOF) || p.cur().kind == tokSemicolonMarker {
			return &ast.Raise{Pos: p.span(t)}, nil
		}
		v, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		return &ast.Raise{Exc: v, Pos: p.span(t)}, nil
	}
	return p.parseAssignOrExprStmt()
}

var augOps = map[tokKind]ast.BinOpKind{
	tokPlusEq:      ast.OpAdd,
	tokMinusEq:     ast.OpSub,
	tokStarEq:      ast.OpMul,
	tokSlashEq:     ast.OpDiv,
	tokSlashSlashEq: ast.OpFloorDiv,
	tokPercentEq:   ast.OpMod,
}

func (p *parser) parseAssignOrExprStmt() (ast.Stmt, error) {
	start := p.cur()
	first, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if op, ok := augOps[p.cur().kind]; ok {
		p.advance()
		target, err := toTarget(first, p)
		if err != nil {
			return nil, err
		}
		value, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		return &ast.AugAssign{Target: target, Op: op, Value: value, Pos: p.span(start)}, nil
	}
	if !p.at(tokAssign) {
		return &ast.ExprStmt{X: first, Pos: p.span(start)}, nil
	}
	targets := []ast.Expr{first}
	for p.at(tokAssign) {
		p.advance()
		e, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		targets = append(targets, e)
	}
	value := targets[len(targets)-1]
	targetExprs := targets[:len(targets)-1]
	astTargets := make([]ast.Target, len(targetExprs))
	for i, e := range targetExprs {
		t, err := toTarget(e, p)
		if err != nil {
			return nil, err
		}
		astTargets[i] = t
	}
	return &ast.Assign{Targets: astTargets, Value: value, Pos: p.span(start)}, nil
}

func toTarget(e ast.Expr, p *parser) (ast.Target, error) {
	switch t := e.(type) {
	case *ast.Name:
		return t, nil
	case *ast.Subscript:
		return t, nil
	default:
		return nil, p.errorf("invalid assignment target")
	}
}

func (p *parser) parseIfTail(kw string) (ast.Stmt, error) {
	start, err := p.expectKeyword(kw)
	if err != nil {
		return nil, err
	}
	test, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	if err := p.expectNewlineIndent(); err != nil {
		return nil, err
	}
	thenBody, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDedent, "dedent"); err != nil {
		return nil, err
	}

	var elseBody []ast.Stmt
	switch {
	case p.atKeyword("elif"):
		elif, err := p.parseIfTail("elif")
		if err != nil {
			return nil, err
		}
		elseBody = []ast.Stmt{elif}
	case p.atKeyword("else"):
		p.advance()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if err := p.expectNewlineIndent(); err != nil {
			return nil, err
		}
		elseBody, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDedent, "dedent"); err != nil {
			return nil, err
		}
	}
	return &ast.If{Test: test, Then: thenBody, Else: elseBody, Pos: p.span(start)}, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	start, err := p.expectKeyword("while")
	if err != nil {
		return nil, err
	}
	test, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	if err := p.expectNewlineIndent(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDedent, "dedent"); err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.atKeyword("else") {
		p.advance()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if err := p.expectNewlineIndent(); err != nil {
			return nil, err
		}
		elseBody, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDedent, "dedent"); err != nil {
			return nil, err
		}
	}
	return &ast.While{Test: test, Body: body, Else: elseBody, Pos: p.span(start)}, nil
}

func (p *parser) parseFor() (ast.Stmt, error) {
	start, err := p.expectKeyword("for")
	if err != nil {
		return nil, err
	}
	targetExpr, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	target, err := toTarget(targetExpr, p)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	if err := p.expectNewlineIndent(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDedent, "dedent"); err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.atKeyword("else") {
		p.advance()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if err := p.expectNewlineIndent(); err != nil {
			return nil, err
		}
		elseBody, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDedent, "dedent"); err != nil {
			return nil, err
		}
	}
	return &ast.For{Target: target, Iter: iter, Body: body, Else: elseBody, Pos: p.span(start)}, nil
}

func (p *parser) parseTry() (ast.Stmt, error) {
	start, err := p.expectKeyword("try")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	if err := p.expectNewlineIndent(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDedent, "dedent"); err != nil {
		return nil, err
	}

	var handlers []ast.ExceptHandler
	for p.atKeyword("except") {
		p.advance()
		var types []intern.ID
		var name ast.Identifier
		bind := false
		if !p.at(tokColon) {
			if p.at(tokLParen) {
				p.advance()
				for {
					nt, err := p.expect(tokName, "exception type name")
					if err != nil {
						return nil, err
					}
					types = append(types, p.strs.Intern(nt.str))
					if p.at(tokComma) {
						p.advance()
						continue
					}
					break
				}
				if _, err := p.expect(tokRParen, "')'"); err != nil {
					return nil, err
				}
			} else {
				nt, err := p.expect(tokName, "exception type name")
				if err != nil {
					return nil, err
				}
				types = append(types, p.strs.Intern(nt.str))
			}
			if p.atKeyword("as") {
				p.advance()
				nameTok, err := p.expect(tokName, "bound name")
				if err != nil {
					return nil, err
				}
				name = placeholderIdent(p.strs.Intern(nameTok.str), p.span(nameTok))
				bind = true
			}
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if err := p.expectNewlineIndent(); err != nil {
			return nil, err
		}
		hbody, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDedent, "dedent"); err != nil {
			return nil, err
		}
		handlers = append(handlers, ast.ExceptHandler{Types: types, Name: name, Bind: bind, Body: hbody})
	}

	var elseBody, finallyBody []ast.Stmt
	if p.atKeyword("else") {
		p.advance()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if err := p.expectNewlineIndent(); err != nil {
			return nil, err
		}
		elseBody, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDedent, "dedent"); err != nil {
			return nil, err
		}
	}
	if p.atKeyword("finally") {
		p.advance()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		if err := p.expectNewlineIndent(); err != nil {
			return nil, err
		}
		finallyBody, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDedent, "dedent"); err != nil {
			return nil, err
		}
	}
	return &ast.Try{Body: body, Handlers: handlers, Else: elseBody, Finally: finallyBody, Pos: p.span(start)}, nil
}

func (p *parser) parseFuncDef() (ast.Stmt, error) {
	start, err := p.expectKeyword("def")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(tokName, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var params []intern.ID
	var defaults []ast.Expr
	seen := map[intern.ID]bool{}
	sawDefault := false
	if !p.at(tokRParen) {
		for {
			pTok, err := p.expect(tokName, "parameter name")
			if err != nil {
				return nil, err
			}
			pid := p.strs.Intern(pTok.str)
			if seen[pid] {
				return nil, p.errorf("duplicate parameter %q", pTok.str)
			}
			seen[pid] = true
			params = append(params, pid)
			if p.at(tokAssign) {
				p.advance()
				d, err := p.parseTest()
				if err != nil {
					return nil, err
				}
				defaults = append(defaults, d)
				sawDefault = true
			} else if sawDefault {
				return nil, p.errorf("non-default parameter follows default parameter")
			}
			if p.at(tokComma) {
				p.advance()
				if p.at(tokRParen) {
					break
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	if err := p.expectNewlineIndent(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDedent, "dedent"); err != nil {
		return nil, err
	}
	pos := p.span(start)
	fn := &ast.Function{
		Name:       p.strs.Intern(nameTok.str),
		ParamNames: params,
		Defaults:   defaults,
		Body:       body,
		Pos:        pos,
	}
	target := placeholderIdent(p.strs.Intern(nameTok.str), pos)
	return &ast.FuncDef{Target: target, Fn: fn, Pos: pos}, nil
}

// --- expressions ---

func (p *parser) parseTest() (ast.Expr, error) {
	e, err := p.parseOrTest()
	if err != nil {
		return nil, err
	}
	if p.atKeyword("if") {
		ifTok := p.advance()
		test, err := p.parseOrTest()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("else"); err != nil {
			return nil, err
		}
		elseExpr, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		return &ast.CondExpr{Test: test, Then: e, Else: elseExpr, Pos: p.span(ifTok)}, nil
	}
	return e, nil
}

func (p *parser) parseOrTest() (ast.Expr, error) {
	left, err := p.parseAndTest()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("or") {
		t := p.advance()
		right, err := p.parseAndTest()
		if err != nil {
			return nil, err
		}
		left = &ast.BoolOp{Op: ast.BoolOr, Left: left, Right: right, Pos: p.span(t)}
	}
	return left, nil
}

func (p *parser) parseAndTest() (ast.Expr, error) {
	left, err := p.parseNotTest()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("and") {
		t := p.advance()
		right, err := p.parseNotTest()
		if err != nil {
			return nil, err
		}
		left = &ast.BoolOp{Op: ast.BoolAnd, Left: left, Right: right, Pos: p.span(t)}
	}
	return left, nil
}

func (p *parser) parseNotTest() (ast.Expr, error) {
	if p.atKeyword("not") {
		t := p.advance()
		operand, err := p.parseNotTest()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: ast.UnaryNot, Operand: operand, Pos: p.span(t)}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	var op ast.CmpOpKind
	var tok token
	switch {
	case p.at(tokEq):
		tok, op = p.advance(), ast.CmpEq
	case p.at(tokNe):
		tok, op = p.advance(), ast.CmpNe
	case p.at(tokLt):
		tok, op = p.advance(), ast.CmpLt
	case p.at(tokLe):
		tok, op = p.advance(), ast.CmpLe
	case p.at(tokGt):
		tok, op = p.advance(), ast.CmpGt
	case p.at(tokGe):
		tok, op = p.advance(), ast.CmpGe
	case p.atKeyword("in"):
		tok, op = p.advance(), ast.CmpIn
	case p.atKeyword("is"):
		tok = p.advance()
		if p.atKeyword("not") {
			p.advance()
			op = ast.CmpIsNot
		} else {
			op = ast.CmpIs
		}
	case p.atKeyword("not"):
		save := p.pos
		p.advance()
		if p.atKeyword("in") {
			tok = p.advance()
			op = ast.CmpNotIn
		} else {
			p.pos = save
			return left, nil
		}
	default:
		return left, nil
	}
	right, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	return &ast.Compare{Op: op, Left: left, Right: right, Pos: p.span(tok)}, nil
}

func (p *parser) parseArith() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(tokPlus) || p.at(tokMinus) {
		t := p.advance()
		op := ast.OpAdd
		if t.kind == tokMinus {
			op = ast.OpSub
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Pos: p.span(t)}
	}
	return left, nil
}

func (p *parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOpKind
		switch {
		case p.at(tokStar):
			op = ast.OpMul
		case p.at(tokSlash):
			op = ast.OpDiv
		case p.at(tokSlashSlash):
			op = ast.OpFloorDiv
		case p.at(tokPercent):
			op = ast.OpMod
		default:
			return left, nil
		}
		t := p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Pos: p.span(t)}
	}
}

func (p *parser) parseFactor() (ast.Expr, error) {
	if p.at(tokMinus) {
		t := p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: ast.UnaryNeg, Operand: operand, Pos: p.span(t)}, nil
	}
	if p.at(tokPlus) {
		p.advance()
		return p.parseFactor()
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(tokLParen):
			t := p.advance()
			args, err := p.parseArgList(tokRParen)
			if err != nil {
				return nil, err
			}
			e = &ast.Call{Callable: e, Args: args, Pos: p.span(t)}
		case p.at(tokDot):
			t := p.advance()
			nameTok, err := p.expect(tokName, "method name")
			if err != nil {
				return nil, err
			}
			if !p.at(tokLParen) {
				return nil, p.errorf("attribute access requires a method call")
			}
			p.advance()
			args, err := p.parseArgList(tokRParen)
			if err != nil {
				return nil, err
			}
			e = &ast.AttrCall{Recv: e, Method: p.strs.Intern(nameTok.str), Args: args, Pos: p.span(t)}
		case p.at(tokLBracket):
			t := p.advance()
			idx, err := p.parseTest()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			e = &ast.Subscript{Recv: e, Index: idx, Pos: p.span(t)}
		default:
			return e, nil
		}
	}
}

func (p *parser) parseArgList(end tokKind) ([]ast.Expr, error) {
	var args []ast.Expr
	if p.at(end) {
		p.advance()
		return args, nil
	}
	for {
		a, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(tokComma) {
			p.advance()
			if p.at(end) {
				break
			}
			continue
		}
		break
	}
	if _, err := p.expect(end, "closing delimiter"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parseAtom() (ast.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.advance()
		return &ast.Lit{Kind: ast.LitInt, I: t.ival, Pos: p.span(t)}, nil
	case tokFloat:
		p.advance()
		return &ast.Lit{Kind: ast.LitFloat, F: t.fval, Pos: p.span(t)}, nil
	case tokString:
		p.advance()
		return &ast.Lit{Kind: ast.LitStr, S: p.strs.Intern(t.str), Pos: p.span(t)}, nil
	case tokBytes:
		p.advance()
		return &ast.Lit{Kind: ast.LitBytes, B: p.strs.InternBytes([]byte(t.str)), Pos: p.span(t)}, nil
	case tokFString:
		p.advance()
		return p.parseFString(t)
	case tokName:
		if t.str == "..." {
			p.advance()
			return &ast.Lit{Kind: ast.LitEllipsis, Pos: p.span(t)}, nil
		}
		p.advance()
		return &ast.Name{Ident: placeholderIdent(p.strs.Intern(t.str), p.span(t)), Pos: p.span(t)}, nil
	case tokKeyword:
		switch t.str {
		case "True":
			p.advance()
			return &ast.Lit{Kind: ast.LitBool, I: 1, Pos: p.span(t)}, nil
		case "False":
			p.advance()
			return &ast.Lit{Kind: ast.LitBool, I: 0, Pos: p.span(t)}, nil
		case "None":
			p.advance()
			return &ast.Lit{Kind: ast.LitNone, Pos: p.span(t)}, nil
		}
		return nil, p.errorf("unexpected keyword %q", t.str)
	case tokLParen:
		return p.parseParenOrTuple()
	case tokLBracket:
		return p.parseBracket()
	case tokLBrace:
		return p.parseBrace()
	}
	return nil, p.errorf("unexpected token")
}

func (p *parser) parseParenOrTuple() (ast.Expr, error) {
	start := p.advance() // '('
	if p.at(tokRParen) {
		p.advance()
		return &ast.TupleLit{Pos: p.span(start)}, nil
	}
	first, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if !p.at(tokComma) {
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return first, nil
	}
	elems := []ast.Expr{first}
	for p.at(tokComma) {
		p.advance()
		if p.at(tokRParen) {
			break
		}
		e, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.TupleLit{Elems: elems, Pos: p.span(start)}, nil
}

func (p *parser) parseBracket() (ast.Expr, error) {
	start := p.advance() // '['
	if p.at(tokRBracket) {
		p.advance()
		return &ast.ListLit{Pos: p.span(start)}, nil
	}
	first, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if p.atKeyword("for") {
		p.advance()
		targetExpr, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		target, err := toTarget(targetExpr, p)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("in"); err != nil {
			return nil, err
		}
		iter, err := p.parseOrTest()
		if err != nil {
			return nil, err
		}
		var cond ast.Expr
		if p.atKeyword("if") {
			p.advance()
			cond, err = p.parseOrTest()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &ast.ListComp{Elem: first, Target: target, Iter: iter, If: cond, Pos: p.span(start)}, nil
	}
	elems := []ast.Expr{first}
	for p.at(tokComma) {
		p.advance()
		if p.at(tokRBracket) {
			break
		}
		e, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &ast.ListLit{Elems: elems, Pos: p.span(start)}, nil
}

func (p *parser) parseBrace() (ast.Expr, error) {
	start := p.advance() // '{'
	if p.at(tokRBrace) {
		p.advance()
		return &ast.DictLit{Pos: p.span(start)}, nil
	}
	firstKey, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if p.at(tokColon) {
		p.advance()
		firstVal, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		pairs := []ast.DictPair{{Key: firstKey, Value: firstVal}}
		for p.at(tokComma) {
			p.advance()
			if p.at(tokRBrace) {
				break
			}
			k, err := p.parseTest()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokColon, "':'"); err != nil {
				return nil, err
			}
			v, err := p.parseTest()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ast.DictPair{Key: k, Value: v})
		}
		if _, err := p.expect(tokRBrace, "'}'"); err != nil {
			return nil, err
		}
		return &ast.DictLit{Pairs: pairs, Pos: p.span(start)}, nil
	}
	elems := []ast.Expr{firstKey}
	for p.at(tokComma) {
		p.advance()
		if p.at(tokRBrace) {
			break
		}
		e, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ast.SetLit{Elems: elems, Pos: p.span(start)}, nil
}

// parseFString splits a raw f-string body into literal/expression parts,
// re-lexing and re-parsing each {expr} segment as a standalone
// expression (spec.md §4.6 "f-string").
func (p *parser) parseFString(t token) (ast.Expr, error) {
	src := t.str
	var parts []ast.FStringPart
	var lit strings.Builder
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '{':
			if lit.Len() > 0 {
				parts = append(parts, ast.FStringPart{Lit: decodeFStringLit(lit.String())})
				lit.Reset()
			}
			depth := 1
			j := i + 1
			for j < len(src) && depth > 0 {
				switch src[j] {
				case '{':
					depth++
				case '}':
					depth--
					if depth == 0 {
						goto found
					}
				}
				j++
			}
		found:
			if depth != 0 {
				return nil, p.errorf("unterminated f-string expression")
			}
			body := src[i+1 : j]
			i = j + 1
			exprSrc, format := splitFormatSpec(body)
			expr, err := parseExprString(exprSrc, p.strs, p.file)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.FStringPart{Expr: expr, Format: format})
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if lit.Len() > 0 {
		parts = append(parts, ast.FStringPart{Lit: decodeFStringLit(lit.String())})
	}
	return &ast.FString{Parts: parts, Pos: p.span(t)}, nil
}

func decodeFStringLit(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(decodeEscape(s[i+1]))
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitFormatSpec splits "expr:fmt" into ("expr", "fmt"); slicing isn't
// supported by this language subset, so the first unescaped ':' is
// always the format-spec separator.
func splitFormatSpec(body string) (string, string) {
	for i := 0; i < len(body); i++ {
		if body[i] == ':' {
			return body[:i], body[i+1:]
		}
	}
	return body, ""
}

// parseExprString lexes and parses src as a single standalone expression,
// used for f-string {expr} segments.
func parseExprString(src string, strs *intern.Table, file string) (ast.Expr, error) {
	toks, err := lex(src + "\n")
	if err != nil {
		return nil, err
	}
	li := ast.NewLineIndex(src)
	p := newParser(toks, strs, li, file)
	e, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	return e, nil
}
