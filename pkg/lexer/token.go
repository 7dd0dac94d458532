package lexer

import "fmt"

type Kind int

const (
	EOF Kind = iota
	NewLine

	Identifier
	String
	Int
	Float

	// Keywords
	Fn
	Lambda
	Out
	If
	Else
	While
	For
	In
	To
	Break
	Continue
	Return
	Debug
	Use
	As
	From
	Tap
	Embed
	Undefined
	Typeof
	IsDef

	// Punctuation
	OpenParen
	CloseParen
	OpenBrace
	CloseBrace
	OpenBracket
	CloseBracket
	Comma
	Colon
	Semicolon
	Dot

	// Operators
	BinaryOperator // + - * / % ^ **
	Equals         // =
	CompoundAssign // += -= *= /= %= &= |=
	NullishAssign  // ??=
	Logical        // && || ??
	Bitwise        // & | << >>
	Comparison     // < > <= >=
	Equality       // == !=
	Increment
	Decrement
	Negation
	Ternary
	At
)

var kindNames = map[Kind]string{
	EOF:            "EOF",
	NewLine:        "NewLine",
	Identifier:     "Identifier",
	String:         "String",
	Int:            "Int",
	Float:          "Float",
	Fn:             "Fn",
	Lambda:         "Lambda",
	Out:            "Out",
	If:             "If",
	Else:           "Else",
	While:          "While",
	For:            "For",
	In:             "In",
	To:             "To",
	Break:          "Break",
	Continue:       "Continue",
	Return:         "Return",
	Debug:          "Debug",
	Use:            "Use",
	As:             "As",
	From:           "From",
	Tap:            "Tap",
	Embed:          "Embed",
	Undefined:      "Undefined",
	Typeof:         "Typeof",
	IsDef:          "IsDef",
	OpenParen:      "OpenParen",
	CloseParen:     "CloseParen",
	OpenBrace:      "OpenBrace",
	CloseBrace:     "CloseBrace",
	OpenBracket:    "OpenBracket",
	CloseBracket:   "CloseBracket",
	Comma:          "Comma",
	Colon:          "Colon",
	Semicolon:      "Semicolon",
	Dot:            "Dot",
	BinaryOperator: "BinaryOperator",
	Equals:         "Equals",
	CompoundAssign: "CompoundAssign",
	NullishAssign:  "NullishAssign",
	Logical:        "Logical",
	Bitwise:        "Bitwise",
	Comparison:     "Comparison",
	Equality:       "Equality",
	Increment:      "Increment",
	Decrement:      "Decrement",
	Negation:       "Negation",
	Ternary:        "Ternary",
	At:             "At",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps reserved words to their token kinds. `and`/`or` are spelled
// operators and lex as Logical tokens instead.
var Keywords = map[string]Kind{
	"fn":        Fn,
	"lambda":    Lambda,
	"out":       Out,
	"if":        If,
	"else":      Else,
	"while":     While,
	"for":       For,
	"in":        In,
	"to":        To,
	"break":     Break,
	"continue":  Continue,
	"return":    Return,
	"debug":     Debug,
	"use":       Use,
	"as":        As,
	"from":      From,
	"tap":       Tap,
	"embed":     Embed,
	"undefined": Undefined,
	"typeof":    Typeof,
	"typeget":   Typeof,
	"isdef":     IsDef,
}

var wordOperators = map[string]string{
	"and": "&&",
	"or":  "||",
}

// Token is a single lexeme. Line and Column are 1-based and point at the
// first character of the lexeme.
type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end-of-file"
	}
	if t.Kind == NewLine {
		return "end-of-line"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}
