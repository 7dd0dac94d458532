package ast

// Walk visits node and its descendants depth-first. Children are visited
// only when visit returns true, and are read after visit returns, so visit
// may rewrite them.
func Walk(node Node, visit func(Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		walkStatements(n.Body, visit)
	case *ArrayLiteral:
		walkExpressions(n.Elements, visit)
	case *ObjectLiteral:
		for _, prop := range n.Properties {
			Walk(prop, visit)
		}
	case *Property:
		Walk(n.Value, visit)
	case *BinaryExpr:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *EqualityExpr:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *InequalityExpr:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *LogicalExpr:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *UnaryExpr:
		Walk(n.Operand, visit)
	case *TernaryExpr:
		Walk(n.Condition, visit)
		Walk(n.Consequent, visit)
		Walk(n.Alternate, visit)
	case *AssignmentExpr:
		Walk(n.Target, visit)
		Walk(n.Value, visit)
	case *ActionAssignmentExpr:
		Walk(n.Target, visit)
		Walk(n.Value, visit)
	case *NullishAssignmentExpr:
		Walk(n.Target, visit)
		Walk(n.Value, visit)
	case *NumericAssignmentExpr:
		Walk(n.Target, visit)
		Walk(n.Value, visit)
	case *MemberExpr:
		Walk(n.Object, visit)
		for _, prop := range n.Properties {
			if prop.Index != nil {
				Walk(prop.Index, visit)
			}
		}
	case *CallExpr:
		Walk(n.Callee, visit)
		walkExpressions(n.Arguments, visit)
	case *FunctionDeclaration:
		for _, param := range n.Parameters {
			if param.Default != nil {
				Walk(param.Default, visit)
			}
		}
		walkStatements(n.Body, visit)
	case *IfStatement:
		Walk(n.Test, visit)
		walkStatements(n.Consequent, visit)
		if n.ElseIf != nil {
			Walk(n.ElseIf, visit)
		}
		walkStatements(n.Alternate, visit)
	case *WhileStatement:
		Walk(n.Test, visit)
		walkStatements(n.Body, visit)
	case *ForStatement:
		Walk(n.Init, visit)
		Walk(n.Test, visit)
		Walk(n.Update, visit)
		walkStatements(n.Body, visit)
	case *ReturnExpr:
		if n.Value != nil {
			Walk(n.Value, visit)
		}
	case *DebugStatement:
		walkExpressions(n.Props, visit)
	case *EmbedStatement:
		walkStatements(n.Body, visit)
	case *TypeofExpression:
		Walk(n.Value, visit)
	case *IsDefExpression:
		Walk(n.Value, visit)
	}
}

func walkStatements(stmts []Statement, visit func(Node) bool) {
	for _, stmt := range stmts {
		Walk(stmt, visit)
	}
}

func walkExpressions(exprs []Expression, visit func(Node) bool) {
	for _, expr := range exprs {
		Walk(expr, visit)
	}
}
