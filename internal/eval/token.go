package eval

import (
	"strings"
)

// tokenKind represents the different token types in formula bodies.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString // quoted literal, case preserved
	tokenCell   // A1
	tokenRange  // A1:B5
	tokenIdent  // function name, uppercased
	tokenComma
	tokenLParen
	tokenRParen
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenEq // =
	tokenNe // <>
	tokenLt // <
	tokenLe // <=
	tokenGt // >
	tokenGe // >=
)

// token is one lexed unit. start/end are byte offsets into the formula
// body, so parse nodes can recover their raw source text.
type token struct {
	kind  tokenKind
	text  string // normalized text (uppercased except for strings)
	start int
	end   int
}

// lexer scans a formula body (the text after the "=" marker).
//
// Quoted spans are isolated here, before any case normalization: string
// literals keep their case while identifiers and cell references are
// uppercased. This is the lexer-rule treatment of the implicit
// case-insensitivity the grammar requires.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// lex tokenizes the whole input. Fails with MALFORMED_EXPRESSION on any
// character that cannot start a token and with MALFORMED_REFERENCE on a
// broken range.
func (l *lexer) lex() ([]token, error) {
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokenEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, start: start, end: start}, nil
	}

	c := l.input[l.pos]
	switch {
	case c == '"':
		return l.scanString()
	case c >= '0' && c <= '9' || c == '.':
		return l.scanNumber()
	case isLetter(c):
		return l.scanWord()
	}

	// Single and double character operators.
	l.pos++
	one := func(k tokenKind) (token, error) {
		return token{kind: k, text: string(c), start: start, end: l.pos}, nil
	}
	switch c {
	case ',':
		return one(tokenComma)
	case '(':
		return one(tokenLParen)
	case ')':
		return one(tokenRParen)
	case '+':
		return one(tokenPlus)
	case '-':
		return one(tokenMinus)
	case '*':
		return one(tokenStar)
	case '/':
		return one(tokenSlash)
	case '=':
		return one(tokenEq)
	case '<':
		if l.pos < len(l.input) && l.input[l.pos] == '>' {
			l.pos++
			return token{kind: tokenNe, text: "<>", start: start, end: l.pos}, nil
		}
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokenLe, text: "<=", start: start, end: l.pos}, nil
		}
		return one(tokenLt)
	case '>':
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokenGe, text: ">=", start: start, end: l.pos}, nil
		}
		return one(tokenGt)
	}

	return token{}, errMalformed(start, "unexpected character %q", string(c))
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

// scanString scans a double-quoted literal. The token text is the
// unquoted content with its original case. An embedded pair of quotes
// ("") escapes a single quote.
func (l *lexer) scanString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '"' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '"' {
				sb.WriteByte('"')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokenString, text: sb.String(), start: start, end: l.pos}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, errMalformed(start, "unterminated string literal")
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	sawDot := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '.' {
			if sawDot {
				return token{}, errMalformed(l.pos, "malformed number")
			}
			sawDot = true
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	text := l.input[start:l.pos]
	if text == "." {
		return token{}, errMalformed(start, "malformed number")
	}
	return token{kind: tokenNumber, text: text, start: start, end: l.pos}, nil
}

// scanWord scans a run of letters and digits and classifies it as a cell
// reference or a function identifier. A cell reference immediately
// followed by ':' and another cell reference merges into a range token.
func (l *lexer) scanWord() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isWordByte(l.input[l.pos]) {
		l.pos++
	}
	word := strings.ToUpper(l.input[start:l.pos])

	if !isCellWord(word) {
		return token{kind: tokenIdent, text: word, start: start, end: l.pos}, nil
	}

	// Possible range: "A1:B5".
	if l.pos < len(l.input) && l.input[l.pos] == ':' {
		colon := l.pos
		l.pos++
		endStart := l.pos
		for l.pos < len(l.input) && isWordByte(l.input[l.pos]) {
			l.pos++
		}
		endWord := strings.ToUpper(l.input[endStart:l.pos])
		if !isCellWord(endWord) {
			return token{}, errReference(colon, l.input[start:l.pos])
		}
		return token{kind: tokenRange, text: word + ":" + endWord, start: start, end: l.pos}, nil
	}

	return token{kind: tokenCell, text: word, start: start, end: l.pos}, nil
}

// isCellWord reports whether a (already uppercased) word has the shape
// of a single-letter-column cell identifier.
func isCellWord(word string) bool {
	if len(word) < 2 {
		return false
	}
	if word[0] < 'A' || word[0] > 'Z' {
		return false
	}
	if word[1] < '1' || word[1] > '9' {
		return false
	}
	for i := 2; i < len(word); i++ {
		if word[i] < '0' || word[i] > '9' {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isWordByte(c byte) bool {
	return isLetter(c) || c >= '0' && c <= '9'
}
