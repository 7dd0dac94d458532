package parser

import (
	"os"
	"path/filepath"
	"strings"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/lexer"
)

// Parser is a recursive-descent parser over a token slice. Newlines end a
// statement unless a paren, bracket or object-literal brace is open.
type Parser struct {
	tokens    []lexer.Token
	pos       int
	source    string
	file      string
	baseDir   string
	depth     int
	noActions bool
	embedding map[string]bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithFile names the source for diagnostics and resolves embeds relative to
// the file's directory.
func WithFile(path string) Option {
	return func(p *Parser) {
		p.file = path
		if p.baseDir == "" {
			p.baseDir = filepath.Dir(path)
		}
	}
}

// WithBaseDir sets the directory embed paths resolve against.
func WithBaseDir(dir string) Option {
	return func(p *Parser) {
		p.baseDir = dir
	}
}

func withEmbedding(active map[string]bool) Option {
	return func(p *Parser) {
		p.embedding = active
	}
}

// New returns a parser over tokens. source is the text they were lexed
// from and is kept for diagnostics.
func New(tokens []lexer.Token, source string, opts ...Option) *Parser {
	p := &Parser{tokens: tokens, source: source}
	for _, opt := range opts {
		opt(p)
	}
	if p.baseDir == "" {
		p.baseDir = "."
	}
	if p.embedding == nil {
		p.embedding = map[string]bool{}
	}
	return p
}

// ParseSource lexes and parses source, then splices every embed.
func ParseSource(source string, opts ...Option) (*ast.Program, error) {
	probe := New(nil, source, opts...)
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, fromLexError(err, source, probe.file)
	}
	p := New(tokens, source, opts...)
	program, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	return Flatten(program), nil
}

// ParseFile reads and parses the file at path.
func ParseFile(path string, opts ...Option) (*ast.Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &ParseError{Kind: "FSError", Message: "'" + path + "' was not found on the FileSystem"}
	}
	return ParseSource(string(data), append([]Option{WithFile(abs)}, opts...)...)
}

// ResolveModulePath joins path onto baseDir and, when no Luna extension is
// given, picks `.ln` if that file exists, else `.lnx` if that exists, else
// `.ln`.
func ResolveModulePath(baseDir, path string) string {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, path)
	}
	if strings.HasSuffix(full, ".ln") || strings.HasSuffix(full, ".lnx") {
		return full
	}
	if fileExists(full + ".ln") {
		return full + ".ln"
	}
	if fileExists(full + ".lnx") {
		return full + ".lnx"
	}
	return full + ".ln"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ParseProgram parses every statement up to EOF.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	body, err := p.parseStatementList(lexer.EOF)
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Kind != lexer.EOF {
		return nil, p.unexpected(tok, "")
	}
	return ast.NewProgram(body), nil
}

func (p *Parser) parseStatementList(end lexer.Kind) ([]ast.Statement, error) {
	var body []ast.Statement
	for {
		p.skipSeparators()
		tok := p.current()
		if tok.Kind == end || tok.Kind == lexer.EOF {
			return body, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	return p.parseExpression()
}

func (p *Parser) parseBlock() ([]ast.Statement, error) {
	if _, err := p.expect(lexer.OpenBrace, "'{'"); err != nil {
		return nil, err
	}
	savedDepth, savedActions := p.depth, p.noActions
	p.depth, p.noActions = 0, false
	body, err := p.parseStatementList(lexer.CloseBrace)
	p.depth, p.noActions = savedDepth, savedActions
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.CloseBrace, "'}'"); err != nil {
		return nil, err
	}
	return body, nil
}

// Token access.

func (p *Parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.depth > 0 {
		p.skipNewlines()
	}
	return p.tokens[p.pos]
}

// peekAhead returns the n-th significant token after the current one without
// consuming anything.
func (p *Parser) peekAhead(n int) lexer.Token {
	idx := p.pos
	for seen := 0; ; idx++ {
		if idx >= len(p.tokens)-1 {
			return p.tokens[len(p.tokens)-1]
		}
		if p.tokens[idx].Kind == lexer.NewLine && p.depth > 0 {
			continue
		}
		if seen == n {
			return p.tokens[idx]
		}
		seen++
	}
}

// peekPastNewlines reports the first token after any run of newlines.
func (p *Parser) peekPastNewlines() lexer.Token {
	idx := p.pos
	for p.tokens[idx].Kind == lexer.NewLine {
		idx++
	}
	return p.tokens[idx]
}

func (p *Parser) next() lexer.Token {
	tok := p.peek()
	if tok.Kind != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) skipNewlines() {
	for p.tokens[p.pos].Kind == lexer.NewLine {
		p.pos++
	}
}

func (p *Parser) skipSeparators() {
	for p.tokens[p.pos].Kind == lexer.NewLine || p.tokens[p.pos].Kind == lexer.Semicolon {
		p.pos++
	}
}

func (p *Parser) at(kind lexer.Kind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) expect(kind lexer.Kind, what string) (lexer.Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.unexpected(tok, what)
	}
	p.pos++
	return tok, nil
}

// open and close track grouping depth so newlines inside are ignored.
func (p *Parser) open(kind lexer.Kind, what string) error {
	if _, err := p.expect(kind, what); err != nil {
		return err
	}
	p.depth++
	return nil
}

func (p *Parser) close(kind lexer.Kind, what string) error {
	_, err := p.expect(kind, what)
	p.depth--
	return err
}
