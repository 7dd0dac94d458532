package parser

import (
	"errors"
	"fmt"
	"strings"

	"luna/interpreter-go/pkg/lexer"
)

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ParseError is raised for every lexing, parsing or preprocessing failure.
// Error renders the message together with a source excerpt.
type ParseError struct {
	Kind     string
	Message  string
	Location Location
	File     string
	Source   string
}

func (e *ParseError) ErrorKind() string { return e.Kind }

// Summary is the one-line `Kind: message` form without the excerpt.
func (e *ParseError) Summary() string {
	return e.Kind + ": " + e.Message
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return e.Summary()
	}
	return renderExcerpt(e.Source, e.Kind, e.File, e.Location.Line, e.Location.Column, e.Message)
}

func renderExcerpt(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}

func (p *Parser) errorAt(tok lexer.Token, kind, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: Location{Line: tok.Line, Column: tok.Column},
		File:     p.file,
		Source:   p.source,
	}
}

func (p *Parser) unexpected(tok lexer.Token, expecting string) *ParseError {
	if expecting == "" {
		return p.errorAt(tok, "SyntaxError", "Unexpected token %s", tok)
	}
	return p.errorAt(tok, "SyntaxError", "Unexpected token %s, expecting %s", tok, expecting)
}

func fromLexError(err error, source, file string) error {
	var lexErr *lexer.Error
	if !errors.As(err, &lexErr) {
		return err
	}
	return &ParseError{
		Kind:     "SyntaxError",
		Message:  lexErr.Message,
		Location: Location{Line: lexErr.Line, Column: lexErr.Column},
		File:     file,
		Source:   source,
	}
}
