package kaleidoscope_test

import (
	"errors"
	"kaleidoscope"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanTokensTest struct {
	source   []byte
	expected []kaleidoscope.TokenKind
}

var scanTokensTests = []scanTokensTest{
	{[]byte(""), []kaleidoscope.TokenKind{kaleidoscope.EOF}},
	{[]byte("\t"), []kaleidoscope.TokenKind{kaleidoscope.EOF}},
	{[]byte("\r\n"), []kaleidoscope.TokenKind{kaleidoscope.EOF}},
	{[]byte(" \n \n"), []kaleidoscope.TokenKind{kaleidoscope.EOF}},
	{[]byte("abc"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("a1b2"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("Def"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("define"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("123"), []kaleidoscope.TokenKind{kaleidoscope.NUMBER, kaleidoscope.EOF}},
	{[]byte("1.5"), []kaleidoscope.TokenKind{kaleidoscope.NUMBER, kaleidoscope.EOF}},
	{[]byte(".5"), []kaleidoscope.TokenKind{kaleidoscope.NUMBER, kaleidoscope.EOF}},
	{[]byte("."), []kaleidoscope.TokenKind{kaleidoscope.PUNCT, kaleidoscope.EOF}},
	{[]byte("123*123"), []kaleidoscope.TokenKind{kaleidoscope.NUMBER, kaleidoscope.PUNCT, kaleidoscope.NUMBER, kaleidoscope.EOF}},
	{[]byte("-1"), []kaleidoscope.TokenKind{kaleidoscope.PUNCT, kaleidoscope.NUMBER, kaleidoscope.EOF}},
	{[]byte("x1"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("1x"), []kaleidoscope.TokenKind{kaleidoscope.NUMBER, kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("_"), []kaleidoscope.TokenKind{kaleidoscope.PUNCT, kaleidoscope.EOF}},
	{[]byte("$"), []kaleidoscope.TokenKind{kaleidoscope.PUNCT, kaleidoscope.EOF}},
	{[]byte("é"), []kaleidoscope.TokenKind{kaleidoscope.PUNCT, kaleidoscope.EOF}},
	{[]byte("(),;+-*<="), []kaleidoscope.TokenKind{
		kaleidoscope.PUNCT, kaleidoscope.PUNCT, kaleidoscope.PUNCT,
		kaleidoscope.PUNCT, kaleidoscope.PUNCT, kaleidoscope.PUNCT,
		kaleidoscope.PUNCT, kaleidoscope.PUNCT, kaleidoscope.PUNCT,
		kaleidoscope.EOF,
	}},
	{[]byte("def"), []kaleidoscope.TokenKind{kaleidoscope.DEF, kaleidoscope.EOF}},
	{[]byte("extern"), []kaleidoscope.TokenKind{kaleidoscope.EXTERN, kaleidoscope.EOF}},
	{[]byte("if then else"), []kaleidoscope.TokenKind{kaleidoscope.IF, kaleidoscope.THEN, kaleidoscope.ELSE, kaleidoscope.EOF}},
	{[]byte("for in"), []kaleidoscope.TokenKind{kaleidoscope.FOR, kaleidoscope.IN, kaleidoscope.EOF}},
	{[]byte("# only a comment"), []kaleidoscope.TokenKind{kaleidoscope.EOF}},
	{[]byte("#"), []kaleidoscope.TokenKind{kaleidoscope.EOF}},
	{[]byte("# first\n# second\nx"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
	{[]byte("x#y"), []kaleidoscope.TokenKind{kaleidoscope.IDENTIFIER, kaleidoscope.EOF}},
}

func TestScanTokens(t *testing.T) {
	for _, test := range scanTokensTests {
		t.Logf("running test '%s'", test.source)
		tokens, err := kaleidoscope.ScanTokens("<test>", test.source)
		assert.NoError(t, err)
		kinds := []kaleidoscope.TokenKind{}
		for _, tok := range tokens {
			kinds = append(kinds, tok.Kind)
		}
		assert.Equal(t, test.expected, kinds)
	}
}

type scannerScanTest struct {
	source  []byte
	kind    kaleidoscope.TokenKind
	content []byte
}

var scannerScanTests = []scannerScanTest{
	{[]byte("123"), kaleidoscope.NUMBER, []byte("123")},
	{[]byte("123*123"), kaleidoscope.NUMBER, []byte("123")},
	{[]byte("0.0"), kaleidoscope.NUMBER, []byte("0.0")},
	{[]byte("a"), kaleidoscope.IDENTIFIER, []byte("a")},
	{[]byte("  foo(x)"), kaleidoscope.IDENTIFIER, []byte("foo")},
	{[]byte("# c\n<"), kaleidoscope.PUNCT, []byte("<")},
	{[]byte("é"), kaleidoscope.PUNCT, []byte("é")},
	{[]byte("else"), kaleidoscope.ELSE, []byte("else")},
}

func TestScanner_Scan(t *testing.T) {
	for _, test := range scannerScanTests {
		t.Logf("running test '%s'", test.source)
		sc := kaleidoscope.NewScanner("<test>", test.source)
		tok, err := sc.Scan()
		assert.NoError(t, err)
		assert.Equal(t, test.kind, tok.Kind)
		assert.Equal(t, test.content, tok.Content)
	}
}

var numberLiterals = []struct {
	source string
	value  float64
}{
	{"0", 0},
	{"1", 1},
	{"42", 42},
	{"3.14159", 3.14159},
	{"4.0", 4},
	{"42.", 42},
	{".25", 0.25},
	{"1000000", 1000000},
	{"007", 7},
}

func TestScanNumber(t *testing.T) {
	for _, test := range numberLiterals {
		t.Logf("running test '%s'", test.source)
		tokens, err := kaleidoscope.ScanTokens("<test>", []byte(test.source))
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, kaleidoscope.NUMBER, tokens[0].Kind)
		assert.Equal(t, test.value, tokens[0].Value)
		assert.Equal(t, kaleidoscope.EOF, tokens[1].Kind)
	}
}

func TestScanMalformedNumber(t *testing.T) {
	for _, source := range []string{"1.2.3", "1..", "0.1.", "x + 1.2.3"} {
		t.Logf("running test '%s'", source)
		_, err := kaleidoscope.ScanTokens("<test>", []byte(source))
		require.Error(t, err)
		var e kaleidoscope.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, kaleidoscope.LexicalError, e.Kind())
		assert.Contains(t, e.Message(), "malformed number literal")
	}
}

func TestScanOutOfRangeNumber(t *testing.T) {
	tests := []struct {
		source string
		value  float64
	}{
		{"1" + strings.Repeat("0", 400), math.Inf(1)},
		{strings.Repeat("9", 400) + ".5", math.Inf(1)},
		{"0." + strings.Repeat("0", 400) + "1", 0},
	}
	for _, test := range tests {
		t.Logf("running test '%.10s...'", test.source)
		tokens, err := kaleidoscope.ScanTokens("<test>", []byte(test.source))
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, kaleidoscope.NUMBER, tokens[0].Kind)
		assert.Equal(t, test.value, tokens[0].Value)
		assert.Equal(t, kaleidoscope.EOF, tokens[1].Kind)
	}
}

type strippedToken struct {
	Kind    kaleidoscope.TokenKind
	Content string
	Value   float64
}

func scanStripped(t *testing.T, source string) []strippedToken {
	tokens, err := kaleidoscope.ScanTokens("<test>", []byte(source))
	require.NoError(t, err)
	stripped := make([]strippedToken, 0, len(tokens))
	for _, tok := range tokens {
		stripped = append(stripped, strippedToken{tok.Kind, string(tok.Content), tok.Value})
	}
	return stripped
}

func TestCommentsAreTransparent(t *testing.T) {
	exprs := []string{
		"1",
		"x + 2 * y",
		"foo(y, 4.0)",
		"def f(a b) a < b",
		"for i = 1, 3 in putchard(42)",
		"if x then 1 else 0",
	}
	for _, expr := range exprs {
		t.Logf("running test '%s'", expr)
		expected := scanStripped(t, expr)
		assert.Equal(t, expected, scanStripped(t, expr+" # trailing comment"))
		assert.Equal(t, expected, scanStripped(t, expr+" # trailing comment\n"))
		assert.Equal(t, expected, scanStripped(t, expr+"#"))
	}
}

func TestScanPositions(t *testing.T) {
	tokens, err := kaleidoscope.ScanTokensAt(kaleidoscope.Pos{Filename: "<test>", Line: 3, Column: 1}, []byte("def f(x)\n  x"))
	require.NoError(t, err)
	expected := []kaleidoscope.Pos{
		{Filename: "<test>", Line: 3, Column: 1},
		{Filename: "<test>", Line: 3, Column: 5},
		{Filename: "<test>", Line: 3, Column: 6},
		{Filename: "<test>", Line: 3, Column: 7},
		{Filename: "<test>", Line: 3, Column: 8},
		{Filename: "<test>", Line: 4, Column: 3},
	}
	require.Len(t, tokens, len(expected)+1)
	for i, pos := range expected {
		assert.Equal(t, pos, tokens[i].Pos, "token %d", i)
	}
}

func TestTokenIsPunct(t *testing.T) {
	tok := kaleidoscope.Token{Kind: kaleidoscope.PUNCT, Content: []byte(";")}
	assert.True(t, tok.IsPunct(';'))
	assert.False(t, tok.IsPunct(','))
	ident := kaleidoscope.Token{Kind: kaleidoscope.IDENTIFIER, Content: []byte(";")}
	assert.False(t, ident.IsPunct(';'))
}
