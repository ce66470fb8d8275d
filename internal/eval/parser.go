package eval

import (
	"strconv"
)

// expr is a node in the parsed expression tree.
type expr interface {
	exprPos() int
}

type numberLit struct {
	val float64
	pos int
}

type stringLit struct {
	val string
	pos int
}

type cellNode struct {
	id  string
	pos int
}

type rangeNode struct {
	start, end string
	pos        int
}

type callNode struct {
	name string
	args []expr
	// argSrc holds each argument's raw source text. IF returns its
	// selected branch as text without re-evaluating it, which requires
	// the original spelling rather than the parsed tree.
	argSrc []string
	pos    int
}

type unaryNode struct {
	op  tokenKind // tokenPlus or tokenMinus
	x   expr
	pos int
}

type binaryNode struct {
	op   tokenKind
	x, y expr
	pos  int
}

func (n *numberLit) exprPos() int  { return n.pos }
func (n *stringLit) exprPos() int  { return n.pos }
func (n *cellNode) exprPos() int   { return n.pos }
func (n *rangeNode) exprPos() int  { return n.pos }
func (n *callNode) exprPos() int   { return n.pos }
func (n *unaryNode) exprPos() int  { return n.pos }
func (n *binaryNode) exprPos() int { return n.pos }

// parser is a recursive-descent parser over the token stream.
//
// Grammar, loosest binding first:
//
//	expr    := addsub { ("=" | "<>" | "<" | "<=" | ">" | ">=") addsub }
//	addsub  := muldiv { ("+" | "-") muldiv }
//	muldiv  := unary  { ("*" | "/") unary }
//	unary   := [ "+" | "-" ] primary
//	primary := number | string | cell | range | call | "(" expr ")"
//	call    := IDENT "(" [ arg { "," arg } ] ")"
//	arg     := expr | WORD
//
// Commas only separate call arguments, so nested parentheses and quoted
// commas never confuse argument splitting.
type parser struct {
	input string
	toks  []token
	pos   int
}

func parse(input string) (expr, error) {
	toks, err := newLexer(input).lex()
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, errMalformed(tok.start, "unexpected %q after expression", tok.text)
	}
	return root, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) take() token {
	tok := p.toks[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpr() (expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokenEq, tokenNe, tokenLt, tokenLe, tokenGt, tokenGe:
			op := p.take()
			right, err := p.parseAddSub()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: op.kind, x: left, y: right, pos: op.start}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseAddSub() (expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokenPlus, tokenMinus:
			op := p.take()
			right, err := p.parseMulDiv()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: op.kind, x: left, y: right, pos: op.start}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMulDiv() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokenStar, tokenSlash:
			op := p.take()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: op.kind, x: left, y: right, pos: op.start}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (expr, error) {
	switch p.peek().kind {
	case tokenPlus, tokenMinus:
		op := p.take()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op.kind, x: x, pos: op.start}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	tok := p.take()
	switch tok.kind {
	case tokenNumber:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, errMalformed(tok.start, "malformed number %q", tok.text)
		}
		return &numberLit{val: v, pos: tok.start}, nil

	case tokenString:
		return &stringLit{val: tok.text, pos: tok.start}, nil

	case tokenCell:
		return &cellNode{id: tok.text, pos: tok.start}, nil

	case tokenRange:
		start, end, ok := splitRangeToken(tok.text)
		if !ok {
			return nil, errReference(tok.start, tok.text)
		}
		return &rangeNode{start: start, end: end, pos: tok.start}, nil

	case tokenIdent:
		if p.peek().kind != tokenLParen {
			return nil, errMalformed(tok.start, "unexpected identifier %q", tok.text)
		}
		p.take() // '('
		return p.parseCallArgs(tok)

	case tokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.take(); closing.kind != tokenRParen {
			return nil, errMalformed(closing.start, "expected ')'")
		}
		return inner, nil

	case tokenEOF:
		return nil, errMalformed(tok.start, "unexpected end of expression")

	default:
		return nil, errMalformed(tok.start, "unexpected %q", tok.text)
	}
}

// parseCallArgs parses the argument list of a call whose name token and
// opening paren have been consumed. Raw source spans are captured per
// argument alongside the parsed trees.
func (p *parser) parseCallArgs(name token) (expr, error) {
	c := &callNode{name: name.text, pos: name.start}

	if p.peek().kind == tokenRParen {
		p.take()
		return c, nil
	}

	for {
		argStart := p.peek().start
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		argEnd := p.prevEnd()
		c.args = append(c.args, arg)
		c.argSrc = append(c.argSrc, p.input[argStart:argEnd])

		switch tok := p.take(); tok.kind {
		case tokenComma:
			continue
		case tokenRParen:
			return c, nil
		default:
			return nil, errMalformed(tok.start, "expected ',' or ')' in %s arguments", name.text)
		}
	}
}

// parseArg parses one call argument. An argument that is a lone bare
// word is accepted as text rather than rejected as a dangling
// identifier: IF branches are raw text and are commonly written
// unquoted, as in IF(A1>5,big,small). The original spelling is taken
// from the source so the lexer's case normalization does not apply.
func (p *parser) parseArg() (expr, error) {
	if tok := p.peek(); tok.kind == tokenIdent {
		switch p.toks[p.pos+1].kind {
		case tokenComma, tokenRParen:
			p.take()
			return &stringLit{val: p.input[tok.start:tok.end], pos: tok.start}, nil
		}
	}
	return p.parseExpr()
}

// prevEnd returns the end offset of the most recently consumed token.
func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].end
}

func splitRangeToken(text string) (start, end string, ok bool) {
	for i := 0; i < len(text); i++ {
		if text[i] == ':' {
			return text[:i], text[i+1:], true
		}
	}
	return "", "", false
}
