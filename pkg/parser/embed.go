package parser

import "luna/interpreter-go/pkg/ast"

// Flatten splices the statements carried by every EmbedStatement into the
// enclosing statement list, leaving the bare marker behind them. It mutates
// and returns program.
func Flatten(program *ast.Program) *ast.Program {
	program.Body = flattenStatements(program.Body)
	ast.Walk(program, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.FunctionDeclaration:
			n.Body = flattenStatements(n.Body)
		case *ast.IfStatement:
			n.Consequent = flattenStatements(n.Consequent)
			n.Alternate = flattenStatements(n.Alternate)
		case *ast.WhileStatement:
			n.Body = flattenStatements(n.Body)
		case *ast.ForStatement:
			n.Body = flattenStatements(n.Body)
		}
		return true
	})
	return program
}

func flattenStatements(stmts []ast.Statement) []ast.Statement {
	if !containsEmbed(stmts) {
		return stmts
	}
	out := make([]ast.Statement, 0, len(stmts))
	for _, stmt := range stmts {
		embed, ok := stmt.(*ast.EmbedStatement)
		if !ok {
			out = append(out, stmt)
			continue
		}
		out = append(out, flattenStatements(embed.Body)...)
		out = append(out, ast.NewEmbedStatement(embed.Path, nil))
	}
	return out
}

func containsEmbed(stmts []ast.Statement) bool {
	for _, stmt := range stmts {
		if embed, ok := stmt.(*ast.EmbedStatement); ok && embed.Body != nil {
			return true
		}
	}
	return false
}
