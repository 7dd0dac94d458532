package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestTokenizeAssignment(t *testing.T) {
	tokens, err := Tokenize("x = 5")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Identifier, Equals, Int, EOF}, kinds(tokens))
	assert.Equal(t, "x", tokens[0].Text)
	assert.Equal(t, "5", tokens[2].Text)
}

func TestTokenizeGreedyOperators(t *testing.T) {
	tokens, err := Tokenize("a ??= b ?? c ** d <= e << f != g += h ++ --")
	require.NoError(t, err)

	var ops []string
	for _, tok := range tokens {
		if tok.Kind != Identifier && tok.Kind != EOF {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"??=", "??", "**", "<=", "<<", "!=", "+=", "++", "--"}, ops)
	assert.Equal(t, NullishAssign, tokens[1].Kind)
	assert.Equal(t, Logical, tokens[3].Kind)
}

func TestTokenizeSingleCharOperators(t *testing.T) {
	tokens, err := Tokenize("! ? & | < > = ^ %")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Negation, Ternary, Bitwise, Bitwise, Comparison, Comparison, Equals, BinaryOperator, BinaryOperator, EOF}, kinds(tokens))
}

func TestTokenizeKeywordsAndWordOperators(t *testing.T) {
	tokens, err := Tokenize("fn lambda out typeget typeof isdef a and b or c")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Fn, Lambda, Out, Typeof, Typeof, IsDef, Identifier, Logical, Identifier, Logical, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, "&&", tokens[7].Text)
	assert.Equal(t, "||", tokens[9].Text)
}

func TestTokenizeStrings(t *testing.T) {
	tokens, err := Tokenize(`"a\tb\n\"q\"\x" 'single \'x\''`)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "a\tb\n\"q\"x", tokens[0].Text)
	assert.Equal(t, "single 'x'", tokens[1].Text)
}

func TestTokenizeKeepsEscapedBraces(t *testing.T) {
	tokens, err := Tokenize(`"\{literal\} {x}"`)
	require.NoError(t, err)
	assert.Equal(t, `\{literal\} {x}`, tokens[0].Text)
}

func TestTokenizeUnterminatedStringReportsOpeningLine(t *testing.T) {
	_, err := Tokenize("x = 1\ny = \"abc\nmore")
	require.Error(t, err)
	lexErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "Unterminated STRING", lexErr.Message)
	assert.Equal(t, 2, lexErr.Line)
	assert.Equal(t, 5, lexErr.Column)
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, err := Tokenize("42 3.14")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Int, Float, EOF}, kinds(tokens))

	_, err = Tokenize("5.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unterminated FLOAT")
}

func TestTokenizeInvalidCharacter(t *testing.T) {
	_, err := Tokenize("x = ~1")
	require.Error(t, err)
	assert.Equal(t, "SyntaxError: Invalid UNICODE character '~' at 1:5", err.Error())
}

func TestTokenizeCommentsAndNewlines(t *testing.T) {
	tokens, err := Tokenize("a # trailing comment\n  b")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Identifier, NewLine, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, 2, tokens[2].Line)
	assert.Equal(t, 3, tokens[2].Column)
}

func TestTokenizePunctuation(t *testing.T) {
	tokens, err := Tokenize("(){}[],:;.")
	require.NoError(t, err)
	assert.Equal(t, []Kind{OpenParen, CloseParen, OpenBrace, CloseBrace, OpenBracket, CloseBracket, Comma, Colon, Semicolon, Dot, EOF}, kinds(tokens))
}
