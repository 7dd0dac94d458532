package parser

import (
	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/lexer"
)

// parseFunction handles `fn name params {}`, `fn name params: expr`,
// `fn: params ...` and `lambda params ...`.
func (p *Parser) parseFunction(export bool) (ast.Expression, error) {
	keyword := p.next()
	name := ast.AnonymousName
	if keyword.Kind == lexer.Fn {
		if p.at(lexer.Colon) {
			p.next()
		} else {
			nameTok, err := p.expect(lexer.Identifier, "a function name")
			if err != nil {
				return nil, err
			}
			name = nameTok.Text
		}
	}
	if export && name == ast.AnonymousName {
		return nil, p.errorAt(keyword, "SyntaxError", "Anonymous functions cannot be exported")
	}

	params, err := p.parseParameters()
	if err != nil {
		return nil, err
	}
	body, inline, err := p.parseBody("function parameters")
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDeclaration(name, params, body, export, inline), nil
}

func (p *Parser) parseParameters() ([]*ast.Parameter, error) {
	params := []*ast.Parameter{}
	for p.at(lexer.Identifier) {
		nameTok := p.next()
		param := ast.NewParameter(nameTok.Text, nil)
		if p.at(lexer.Equals) {
			p.next()
			if err := p.open(lexer.OpenParen, "'(' around the default value"); err != nil {
				return nil, err
			}
			def, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.close(lexer.CloseParen, "')'"); err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if p.at(lexer.Comma) {
			p.next()
		}
	}
	return params, nil
}
