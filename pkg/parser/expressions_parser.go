package parser

import (
	"strconv"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/lexer"
)

var actionNames = map[string]bool{
	"const": true,
	"var":   true,
	"react": true,
	"out":   true,
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	left, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.Ternary) {
		return left, nil
	}
	p.next()
	p.skipNewlines()

	saved := p.noActions
	p.noActions = true
	consequent, err := p.parseExpression()
	p.noActions = saved
	if err != nil {
		return nil, err
	}

	if sep := p.peekPastNewlines(); sep.Kind == lexer.Colon || sep.Kind == lexer.Else {
		p.skipNewlines()
		p.next()
	} else {
		return nil, p.unexpected(p.peek(), "':' or 'else'")
	}
	p.skipNewlines()
	alternate, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewTernaryExpr(left, consequent, alternate), nil
}

func (p *Parser) parseAssignment() (ast.Expression, error) {
	left, err := p.parseNumericAssignment()
	if err != nil {
		return nil, err
	}
	switch tok := p.peek(); tok.Kind {
	case lexer.Equals:
		p.next()
		p.skipNewlines()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewAssignmentExpr(left, value), nil
	case lexer.Colon:
		if p.noActions || !isAssignable(left) {
			return left, nil
		}
		return p.parseActionAssignment(left)
	}
	return left, nil
}

func isAssignable(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.MemberExpr:
		return true
	}
	return false
}

func (p *Parser) parseActionAssignment(target ast.Expression) (ast.Expression, error) {
	p.next()
	action, closedWithEquals, err := p.parseAction()
	if err != nil {
		return nil, err
	}
	if !closedWithEquals {
		tok := p.peek()
		if tok.Kind != lexer.Equals {
			return nil, p.errorAt(tok, "SyntaxError", "A Variable Declaration with an Action must contain a value")
		}
		p.next()
	}
	p.skipNewlines()
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewActionAssignmentExpr(target, action, value), nil
}

// parseAction reads `name` or `name<a, b>`. The lexer folds `>=` into one
// token, in which case the `=` of the assignment has already been consumed.
func (p *Parser) parseAction() (*ast.Action, bool, error) {
	nameTok := p.next()
	if nameTok.Kind != lexer.Identifier && nameTok.Kind != lexer.Out {
		return nil, false, p.unexpected(nameTok, "an action name")
	}
	action := ast.NewAction(nameTok.Text, nil)
	if !p.peek().Is(lexer.Comparison, "<") {
		return action, false, nil
	}
	p.next()
	for {
		arg, err := p.expect(lexer.Identifier, "a watched variable name")
		if err != nil {
			return nil, false, err
		}
		action.Args = append(action.Args, ast.NewIdentifier(arg.Text))
		tok := p.next()
		switch {
		case tok.Kind == lexer.Comma:
			continue
		case tok.Is(lexer.Comparison, ">"):
			return action, false, nil
		case tok.Is(lexer.Comparison, ">="):
			return action, true, nil
		default:
			return nil, false, p.unexpected(tok, "',' or '>'")
		}
	}
}

func (p *Parser) parseNumericAssignment() (ast.Expression, error) {
	left, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	switch tok.Kind {
	case lexer.CompoundAssign:
		p.next()
		p.skipNewlines()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewNumericAssignmentExpr(tok.Text, left, value), nil
	case lexer.NullishAssign:
		p.next()
		p.skipNewlines()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewNullishAssignmentExpr(left, value), nil
	}
	return left, nil
}

type binaryBuilder func(op string, left, right ast.Expression) ast.Expression

// parseLeftAssoc parses `operand (op operand)*` for operators accepted by
// match.
func (p *Parser) parseLeftAssoc(operand func() (ast.Expression, error), match func(lexer.Token) bool, build binaryBuilder) (ast.Expression, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if !match(tok) {
			return left, nil
		}
		p.next()
		p.skipNewlines()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = build(tok.Text, left, right)
	}
}

func (p *Parser) parseLogical() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseEquality,
		func(tok lexer.Token) bool { return tok.Kind == lexer.Logical },
		func(op string, l, r ast.Expression) ast.Expression { return ast.NewLogicalExpr(op, l, r) })
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseInequality,
		func(tok lexer.Token) bool { return tok.Kind == lexer.Equality },
		func(op string, l, r ast.Expression) ast.Expression { return ast.NewEqualityExpr(op, l, r) })
}

func (p *Parser) parseInequality() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseBitwise,
		func(tok lexer.Token) bool { return tok.Kind == lexer.Comparison },
		func(op string, l, r ast.Expression) ast.Expression { return ast.NewInequalityExpr(op, l, r) })
}

func (p *Parser) parseBitwise() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseAdditive,
		func(tok lexer.Token) bool { return tok.Kind == lexer.Bitwise },
		func(op string, l, r ast.Expression) ast.Expression { return ast.NewBinaryExpr(op, l, r) })
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseMultiplicative,
		func(tok lexer.Token) bool { return tok.Is(lexer.BinaryOperator, "+") || tok.Is(lexer.BinaryOperator, "-") },
		func(op string, l, r ast.Expression) ast.Expression { return ast.NewBinaryExpr(op, l, r) })
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseUnary,
		func(tok lexer.Token) bool {
			return tok.Kind == lexer.BinaryOperator && tok.Text != "+" && tok.Text != "-"
		},
		func(op string, l, r ast.Expression) ast.Expression { return ast.NewBinaryExpr(op, l, r) })
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	tok := p.peek()
	isPrefix := tok.Kind == lexer.Negation || tok.Kind == lexer.Increment || tok.Kind == lexer.Decrement ||
		tok.Is(lexer.BinaryOperator, "+") || tok.Is(lexer.BinaryOperator, "-")
	if !isPrefix {
		return p.parsePostfix()
	}
	p.next()
	switch after := p.current(); after.Kind {
	case lexer.NewLine, lexer.Semicolon, lexer.EOF:
		return nil, p.unexpected(after, "an operand for '"+tok.Text+"'")
	}
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return ast.NewUnaryExpr(tok.Text, operand, false), nil
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parseCallMember()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind == lexer.Increment || tok.Kind == lexer.Decrement {
		p.next()
		return ast.NewUnaryExpr(tok.Text, expr, true), nil
	}
	return expr, nil
}

// parseCallMember parses a primary followed by any mix of `.name`, `[expr]`
// and `(args)`. Consecutive accessors collapse into one MemberExpr; a call
// starts a fresh chain rooted at its result.
func (p *Parser) parseCallMember() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseAccessors(expr, true)
}

func (p *Parser) parseAccessors(expr ast.Expression, allowCalls bool) (ast.Expression, error) {
	for {
		tok := p.peek()
		switch {
		case tok.Kind == lexer.Dot:
			p.next()
			name := p.next()
			if !isPropertyName(name) {
				return nil, p.unexpected(name, "a property name")
			}
			expr = appendMember(expr, ast.NewMemberProperty(name.Text))
		case tok.Kind == lexer.OpenBracket:
			if err := p.open(lexer.OpenBracket, "'['"); err != nil {
				return nil, err
			}
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.close(lexer.CloseBracket, "']'"); err != nil {
				return nil, err
			}
			expr = appendMember(expr, ast.NewIndexProperty(index))
		case tok.Kind == lexer.OpenParen && allowCalls:
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = ast.NewCallExpr(expr, args)
		default:
			return expr, nil
		}
	}
}

// Keywords are accepted after a dot so `obj.in` or `x.out` stay readable.
func isPropertyName(tok lexer.Token) bool {
	if tok.Kind == lexer.Identifier {
		return true
	}
	_, keyword := lexer.Keywords[tok.Text]
	return keyword
}

func appendMember(expr ast.Expression, prop *ast.MemberProperty) ast.Expression {
	if member, ok := expr.(*ast.MemberExpr); ok {
		member.Properties = append(member.Properties, prop)
		return member
	}
	return ast.NewMemberExpr(expr, []*ast.MemberProperty{prop})
}

func (p *Parser) parseArguments() ([]ast.Expression, error) {
	if err := p.open(lexer.OpenParen, "'('"); err != nil {
		return nil, err
	}
	args := []ast.Expression{}
	for !p.at(lexer.CloseParen) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.at(lexer.Comma) {
			break
		}
		p.next()
	}
	if err := p.close(lexer.CloseParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Identifier:
		p.next()
		return ast.NewIdentifier(tok.Text), nil
	case lexer.Int, lexer.Float:
		p.next()
		value, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.errorAt(tok, "SyntaxError", "Malformed number '%s'", tok.Text)
		}
		return ast.NewNumericLiteral(value), nil
	case lexer.String:
		p.next()
		return ast.NewStringLiteral(tok.Text), nil
	case lexer.Undefined:
		p.next()
		return ast.NewUndefinedLiteral(), nil
	case lexer.OpenParen:
		if err := p.open(lexer.OpenParen, "'('"); err != nil {
			return nil, err
		}
		saved := p.noActions
		p.noActions = false
		expr, err := p.parseExpression()
		p.noActions = saved
		if err != nil {
			return nil, err
		}
		if err := p.close(lexer.CloseParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.OpenBracket:
		return p.parseArrayLiteral()
	case lexer.OpenBrace:
		return p.parseObjectLiteral()
	case lexer.Fn, lexer.Lambda:
		return p.parseFunction(false)
	case lexer.Out:
		p.next()
		if !p.at(lexer.Fn) {
			return nil, p.unexpected(p.peek(), "'fn' after 'out'")
		}
		return p.parseFunction(true)
	case lexer.If:
		return p.parseIf()
	case lexer.While:
		return p.parseWhile()
	case lexer.For:
		return p.parseFor()
	case lexer.Return:
		return p.parseReturn()
	case lexer.Break:
		p.next()
		return ast.NewBreakStatement(), nil
	case lexer.Continue:
		p.next()
		return ast.NewContinueStatement(), nil
	case lexer.Debug:
		return p.parseDebug()
	case lexer.Use:
		return p.parseUse()
	case lexer.Tap:
		return p.parseTap()
	case lexer.Embed:
		return p.parseEmbed()
	case lexer.Typeof:
		p.next()
		value, err := p.parseIntrospected()
		if err != nil {
			return nil, err
		}
		return ast.NewTypeofExpression(value), nil
	case lexer.IsDef:
		p.next()
		value, err := p.parseIntrospected()
		if err != nil {
			return nil, err
		}
		return ast.NewIsDefExpression(value), nil
	}
	return nil, p.unexpected(tok, "")
}

// parseIntrospected reads the operand of typeof/isdef: a primary with its
// member and call accessors, nothing looser.
func (p *Parser) parseIntrospected() (ast.Expression, error) {
	return p.parseCallMember()
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	if err := p.open(lexer.OpenBracket, "'['"); err != nil {
		return nil, err
	}
	elements := []ast.Expression{}
	for !p.at(lexer.CloseBracket) {
		el, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if !p.at(lexer.Comma) {
			break
		}
		p.next()
	}
	if err := p.close(lexer.CloseBracket, "']'"); err != nil {
		return nil, err
	}
	return ast.NewArrayLiteral(elements), nil
}

func (p *Parser) parseObjectLiteral() (ast.Expression, error) {
	if err := p.open(lexer.OpenBrace, "'{'"); err != nil {
		return nil, err
	}
	saved := p.noActions
	p.noActions = false
	defer func() { p.noActions = saved }()

	props := []*ast.Property{}
	for !p.at(lexer.CloseBrace) {
		keyTok := p.next()
		if keyTok.Kind != lexer.Identifier && keyTok.Kind != lexer.String && !isPropertyName(keyTok) {
			return nil, p.unexpected(keyTok, "a property key")
		}
		key := keyTok.Text

		switch tok := p.peek(); tok.Kind {
		case lexer.Comma, lexer.CloseBrace:
			props = append(props, ast.NewProperty(key, ast.NewIdentifier(key), nil, true))
		case lexer.Colon:
			p.next()
			var action *ast.Action
			if p.atPropertyAction() {
				parsed, closedWithEquals, err := p.parseAction()
				if err != nil {
					return nil, err
				}
				if closedWithEquals {
					return nil, p.unexpected(p.peek(), "':' after the action")
				}
				if _, err := p.expect(lexer.Colon, "':' after the action"); err != nil {
					return nil, err
				}
				action = parsed
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			props = append(props, ast.NewProperty(key, value, action, false))
		default:
			return nil, p.unexpected(tok, "',', ':' or '}'")
		}

		if !p.at(lexer.Comma) {
			break
		}
		p.next()
	}
	if err := p.close(lexer.CloseBrace, "'}'"); err != nil {
		return nil, err
	}
	return ast.NewObjectLiteral(props), nil
}

// atPropertyAction reports whether the value position holds `action:` or
// `action<...>:` rather than an ordinary expression.
func (p *Parser) atPropertyAction() bool {
	tok := p.peek()
	if tok.Kind != lexer.Out && !(tok.Kind == lexer.Identifier && actionNames[tok.Text]) {
		return false
	}
	after := p.peekAhead(1)
	return after.Kind == lexer.Colon || after.Is(lexer.Comparison, "<")
}
