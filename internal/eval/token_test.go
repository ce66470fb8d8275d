package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, input string) []token {
	t.Helper()
	toks, err := newLexer(input).lex()
	require.NoError(t, err)
	return toks
}

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, tok := range toks {
		out[i] = tok.kind
	}
	return out
}

func TestLexer_Classification(t *testing.T) {
	toks := lexAll(t, `SUM(A1:B5,"x,y",3.5)+C2`)
	assert.Equal(t, []tokenKind{
		tokenIdent, tokenLParen, tokenRange, tokenComma, tokenString,
		tokenComma, tokenNumber, tokenRParen, tokenPlus, tokenCell, tokenEOF,
	}, kinds(toks))
}

func TestLexer_CaseNormalization(t *testing.T) {
	toks := lexAll(t, `sum(a1,"Keep Case")`)
	assert.Equal(t, "SUM", toks[0].text)
	assert.Equal(t, "A1", toks[2].text)
	// Quoted spans are isolated before case normalization.
	assert.Equal(t, "Keep Case", toks[4].text)
}

func TestLexer_QuotedQuote(t *testing.T) {
	toks := lexAll(t, `"say ""hi"""`)
	assert.Equal(t, tokenString, toks[0].kind)
	assert.Equal(t, `say "hi"`, toks[0].text)
}

func TestLexer_ComparisonOperators(t *testing.T) {
	toks := lexAll(t, "1<>2<=3>=4<5>6=7")
	assert.Equal(t, []tokenKind{
		tokenNumber, tokenNe, tokenNumber, tokenLe, tokenNumber, tokenGe,
		tokenNumber, tokenLt, tokenNumber, tokenGt, tokenNumber, tokenEq,
		tokenNumber, tokenEOF,
	}, kinds(toks))
}

func TestLexer_WordClassification(t *testing.T) {
	// Multi-letter columns are out of scope: "AB12" is an identifier,
	// not a cell reference.
	toks := lexAll(t, "AB12")
	assert.Equal(t, tokenIdent, toks[0].kind)

	// "A0" is not a valid cell either.
	toks = lexAll(t, "A0")
	assert.Equal(t, tokenIdent, toks[0].kind)

	toks = lexAll(t, "Z99")
	assert.Equal(t, tokenCell, toks[0].kind)
}

func TestLexer_SourceSpans(t *testing.T) {
	input := ` SUM( A1 )`
	toks := lexAll(t, input)
	for _, tok := range toks[:len(toks)-1] {
		assert.Less(t, tok.start, tok.end)
		if tok.kind != tokenString {
			assert.Equal(t, tok.text, strUpper(input[tok.start:tok.end]))
		}
	}
}

func strUpper(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

func TestLexer_Errors(t *testing.T) {
	_, err := newLexer(`"open`).lex()
	require.Error(t, err)
	assert.Equal(t, ErrCodeMalformedExpression, CodeOf(err))

	_, err = newLexer("1.2.3").lex()
	require.Error(t, err)

	_, err = newLexer("A1:5").lex()
	require.Error(t, err)
	assert.Equal(t, ErrCodeMalformedReference, CodeOf(err))
}
