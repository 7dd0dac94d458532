package parser

import (
	"os"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/lexer"
)

// parseCondition reads the test of if/while/for with action-assignment
// disabled, so `if ready: go()` keeps its colon body.
func (p *Parser) parseCondition() (ast.Expression, error) {
	saved := p.noActions
	p.noActions = true
	defer func() { p.noActions = saved }()
	return p.parseExpression()
}

// parseBody reads either a braced block or a `: statement` body and reports
// which form was used.
func (p *Parser) parseBody(context string) ([]ast.Statement, bool, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.OpenBrace:
		body, err := p.parseBlock()
		return body, false, err
	case lexer.Colon:
		p.next()
		p.skipNewlines()
		saved := p.noActions
		p.noActions = false
		stmt, err := p.parseStatement()
		p.noActions = saved
		if err != nil {
			return nil, true, err
		}
		return []ast.Statement{stmt}, true, nil
	}
	return nil, false, p.errorAt(tok, "SyntaxError", "Expected '{' or ':' after %s", context)
}

func (p *Parser) parseIf() (ast.Expression, error) {
	p.next()
	test, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	consequent, inline, err := p.parseBody("'if' condition")
	if err != nil {
		return nil, err
	}
	stmt := ast.NewIfStatement(test, consequent, nil, nil, inline)

	if p.peekPastNewlines().Kind != lexer.Else {
		return stmt, nil
	}
	p.skipNewlines()
	p.next()
	switch {
	case p.at(lexer.If):
		elseIf, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.ElseIf = elseIf.(*ast.IfStatement)
	case p.at(lexer.OpenBrace):
		alternate, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alternate
	default:
		if p.at(lexer.Colon) {
			p.next()
		}
		p.skipNewlines()
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = []ast.Statement{alt}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Expression, error) {
	p.next()
	test, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, inline, err := p.parseBody("'while' condition")
	if err != nil {
		return nil, err
	}
	return ast.NewWhileStatement(test, body, inline), nil
}

func (p *Parser) parseFor() (ast.Expression, error) {
	p.next()
	init, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semicolon, "';' after the loop initializer"); err != nil {
		return nil, err
	}
	test, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semicolon, "';' after the loop condition"); err != nil {
		return nil, err
	}
	update, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, inline, err := p.parseBody("'for' header")
	if err != nil {
		return nil, err
	}
	return ast.NewForStatement(init, test, update, body, inline), nil
}

func (p *Parser) parseReturn() (ast.Expression, error) {
	p.next()
	switch p.current().Kind {
	case lexer.NewLine, lexer.Semicolon, lexer.EOF, lexer.CloseBrace:
		return ast.NewReturnExpr(nil), nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewReturnExpr(value), nil
}

func (p *Parser) parseDebug() (ast.Expression, error) {
	p.next()
	if !p.at(lexer.OpenBrace) {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewDebugStatement([]ast.Expression{value}), nil
	}
	if err := p.open(lexer.OpenBrace, "'{'"); err != nil {
		return nil, err
	}
	props := []ast.Expression{}
	for !p.at(lexer.CloseBrace) {
		prop, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
		if !p.at(lexer.Comma) {
			break
		}
		p.next()
	}
	if err := p.close(lexer.CloseBrace, "'}'"); err != nil {
		return nil, err
	}
	return ast.NewDebugStatement(props), nil
}

func (p *Parser) parseModulePath() (string, error) {
	tok, err := p.expect(lexer.String, "a module path")
	if err != nil {
		return "", err
	}
	if tok.Text == "" {
		return "", p.errorAt(tok, "ModuleError", "Cannot use un-named modules")
	}
	return tok.Text, nil
}

func (p *Parser) parseUse() (ast.Expression, error) {
	p.next()
	if !p.at(lexer.OpenParen) {
		path, err := p.parseModulePath()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.As, "'as'"); err != nil {
			return nil, err
		}
		name, err := p.expect(lexer.Identifier, "a namespace name")
		if err != nil {
			return nil, err
		}
		return ast.NewUseStatement(path, nil, name.Text), nil
	}

	if err := p.open(lexer.OpenParen, "'('"); err != nil {
		return nil, err
	}
	specs := []*ast.ImportSpecifier{}
	for !p.at(lexer.CloseParen) {
		name, err := p.expect(lexer.Identifier, "an imported name")
		if err != nil {
			return nil, err
		}
		spec := ast.NewImportSpecifier(name.Text, "")
		if p.at(lexer.As) {
			p.next()
			alias, err := p.expect(lexer.Identifier, "an alias")
			if err != nil {
				return nil, err
			}
			spec.Alias = alias.Text
		}
		specs = append(specs, spec)
		if !p.at(lexer.Comma) {
			break
		}
		p.next()
	}
	if err := p.close(lexer.CloseParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.From, "'from'"); err != nil {
		return nil, err
	}
	path, err := p.parseModulePath()
	if err != nil {
		return nil, err
	}
	return ast.NewUseStatement(path, specs, ""), nil
}

func (p *Parser) parseTap() (ast.Expression, error) {
	p.next()
	path, err := p.parseModulePath()
	if err != nil {
		return nil, err
	}
	return ast.NewTapStatement(path), nil
}

// parseEmbed lexes and parses the embedded file right away. Its statements
// ride along on the marker until Flatten splices them in.
func (p *Parser) parseEmbed() (ast.Expression, error) {
	p.next()
	pathTok := p.peek()
	path, err := p.parseModulePath()
	if err != nil {
		return nil, err
	}
	resolved := ResolveModulePath(p.baseDir, path)
	if p.embedding[resolved] {
		return nil, p.errorAt(pathTok, "PreprocessingError", "'%s' embeds itself", resolved)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, p.errorAt(pathTok, "PreprocessingError", "'%s' was not found on the FileSystem", resolved)
	}
	source := string(data)
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, fromLexError(err, source, resolved)
	}

	p.embedding[resolved] = true
	defer delete(p.embedding, resolved)
	nested := New(tokens, source, WithFile(resolved), withEmbedding(p.embedding))
	program, err := nested.ParseProgram()
	if err != nil {
		return nil, err
	}
	return ast.NewEmbedStatement(path, program.Body), nil
}
