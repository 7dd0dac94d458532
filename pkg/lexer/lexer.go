package lexer

import (
	"fmt"
	"strings"
)

// Error is a tokenization failure anchored at a source position.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("SyntaxError: %s at %d:%d", e.Message, e.Line, e.Column)
}

var escapes = map[rune]rune{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
}

// Operators are matched longest first.
var operators = []struct {
	text string
	kind Kind
}{
	{"??=", NullishAssign},
	{"**", BinaryOperator},
	{"+=", CompoundAssign},
	{"-=", CompoundAssign},
	{"*=", CompoundAssign},
	{"/=", CompoundAssign},
	{"%=", CompoundAssign},
	{"&=", CompoundAssign},
	{"|=", CompoundAssign},
	{"&&", Logical},
	{"||", Logical},
	{"??", Logical},
	{"<<", Bitwise},
	{">>", Bitwise},
	{"<=", Comparison},
	{">=", Comparison},
	{"==", Equality},
	{"!=", Equality},
	{"++", Increment},
	{"--", Decrement},
	{"+", BinaryOperator},
	{"-", BinaryOperator},
	{"*", BinaryOperator},
	{"/", BinaryOperator},
	{"%", BinaryOperator},
	{"^", BinaryOperator},
	{"&", Bitwise},
	{"|", Bitwise},
	{"<", Comparison},
	{">", Comparison},
	{"=", Equals},
	{"!", Negation},
	{"?", Ternary},
	{"@", At},
}

var punctuation = map[rune]Kind{
	'(': OpenParen,
	')': CloseParen,
	'{': OpenBrace,
	'}': CloseBrace,
	'[': OpenBracket,
	']': CloseBracket,
	',': Comma,
	':': Colon,
	';': Semicolon,
	'.': Dot,
}

// Lexer turns Luna source text into tokens.
type Lexer struct {
	src    []rune
	pos    int
	line   int
	column int
	tokens []Token
}

func New(source string) *Lexer {
	return &Lexer{src: []rune(source), line: 1, column: 1}
}

// Tokenize lexes source in one pass. The returned slice always ends in EOF.
func Tokenize(source string) ([]Token, error) {
	return New(source).Tokenize()
}

func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case ch == '\n':
			l.emit(NewLine, "\n", l.line, l.column)
			l.pos++
			l.line++
			l.column = 1
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '"' || ch == '\'':
			if err := l.lexString(ch); err != nil {
				return nil, err
			}
		case isIdentStart(ch):
			l.lexWord()
		case isDigit(ch):
			if err := l.lexNumber(); err != nil {
				return nil, err
			}
		case isPunctuation(ch):
			l.emit(punctuation[ch], string(ch), l.line, l.column)
			l.advance()
		case isSymbol(ch):
			l.lexOperator()
		default:
			return nil, &Error{Message: fmt.Sprintf("Invalid UNICODE character '%c'", ch), Line: l.line, Column: l.column}
		}
	}
	l.emit(EOF, "", l.line, l.column)
	return l.tokens, nil
}

func (l *Lexer) advance() {
	l.pos++
	l.column++
}

func (l *Lexer) emit(kind Kind, text string, line, column int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Line: line, Column: column})
}

// lexString decodes escapes except \{ and \}, which stay escaped so the
// evaluator can tell literal braces from interpolation spans.
func (l *Lexer) lexString(quote rune) error {
	line, column := l.line, l.column
	l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return &Error{Message: "Unterminated STRING", Line: line, Column: column}
		}
		ch := l.src[l.pos]
		if ch == quote {
			l.advance()
			break
		}
		if ch == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			l.advance()
			l.advance()
			if next == '{' || next == '}' {
				b.WriteRune('\\')
				b.WriteRune(next)
				continue
			}
			if decoded, ok := escapes[next]; ok {
				b.WriteRune(decoded)
			} else {
				b.WriteRune(next)
			}
			if next == '\n' {
				l.line++
				l.column = 1
			}
			continue
		}
		b.WriteRune(ch)
		if ch == '\n' {
			l.pos++
			l.line++
			l.column = 1
			continue
		}
		l.advance()
	}
	l.emit(String, b.String(), line, column)
	return nil
}

func (l *Lexer) lexWord() {
	line, column := l.line, l.column
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.advance()
	}
	word := string(l.src[start:l.pos])
	if op, ok := wordOperators[word]; ok {
		l.emit(Logical, op, line, column)
		return
	}
	if kind, ok := Keywords[word]; ok {
		l.emit(kind, word, line, column)
		return
	}
	l.emit(Identifier, word, line, column)
}

func (l *Lexer) lexNumber() error {
	line, column := l.line, l.column
	start := l.pos
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if strings.HasSuffix(text, ".") {
		return &Error{Message: "Unterminated FLOAT", Line: line, Column: column}
	}
	if strings.Count(text, ".") > 1 {
		return &Error{Message: fmt.Sprintf("Malformed FLOAT '%s'", text), Line: line, Column: column}
	}
	if strings.Contains(text, ".") {
		l.emit(Float, text, line, column)
	} else {
		l.emit(Int, text, line, column)
	}
	return nil
}

func (l *Lexer) lexOperator() {
	line, column := l.line, l.column
	rest := string(l.src[l.pos:min(l.pos+3, len(l.src))])
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.advance()
			}
			l.emit(op.kind, op.text, line, column)
			return
		}
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isPunctuation(ch rune) bool {
	_, ok := punctuation[ch]
	return ok
}

func isSymbol(ch rune) bool {
	return strings.ContainsRune("<&*/+|%-=^@!?>", ch)
}
