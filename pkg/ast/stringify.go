package ast

import (
	"regexp"
	"strconv"
	"strings"
)

var plainKey = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// Stringify renders a node back to Luna source. The output re-parses to a
// structurally equal tree; embed markers render as comments because their
// statements are already spliced in.
func Stringify(node Node) string {
	if node == nil {
		return ""
	}
	switch n := node.(type) {
	case *Program:
		return joinStatements(n.Body, "")
	case *Identifier:
		return n.Name
	case *NumericLiteral:
		return FormatNumber(n.Value)
	case *StringLiteral:
		return quote(n.Value)
	case *UndefinedLiteral:
		return "undefined"
	case *ArrayLiteral:
		parts := make([]string, 0, len(n.Elements))
		for _, el := range n.Elements {
			parts = append(parts, Stringify(el))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ObjectLiteral:
		parts := make([]string, 0, len(n.Properties))
		for _, prop := range n.Properties {
			parts = append(parts, stringifyProperty(prop))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *BinaryExpr:
		return operand(n.Left) + " " + n.Operator + " " + operand(n.Right)
	case *EqualityExpr:
		return operand(n.Left) + " " + n.Operator + " " + operand(n.Right)
	case *InequalityExpr:
		return operand(n.Left) + " " + n.Operator + " " + operand(n.Right)
	case *LogicalExpr:
		return operand(n.Left) + " " + n.Operator + " " + operand(n.Right)
	case *UnaryExpr:
		if n.Postfix {
			return operand(n.Operand) + n.Operator
		}
		if _, nested := n.Operand.(*UnaryExpr); nested {
			return n.Operator + "(" + Stringify(n.Operand) + ")"
		}
		return n.Operator + operand(n.Operand)
	case *TernaryExpr:
		return operand(n.Condition) + " ? " + Stringify(n.Consequent) + " : " + Stringify(n.Alternate)
	case *AssignmentExpr:
		return Stringify(n.Target) + " = " + Stringify(n.Value)
	case *ActionAssignmentExpr:
		return Stringify(n.Target) + ": " + stringifyAction(n.Action) + " = " + Stringify(n.Value)
	case *NullishAssignmentExpr:
		return Stringify(n.Target) + " ??= " + Stringify(n.Value)
	case *NumericAssignmentExpr:
		return Stringify(n.Target) + " " + n.Operator + " " + Stringify(n.Value)
	case *MemberExpr:
		var b strings.Builder
		b.WriteString(operand(n.Object))
		for _, prop := range n.Properties {
			if prop.Computed() {
				b.WriteString("[" + Stringify(prop.Index) + "]")
			} else {
				b.WriteString("." + prop.Name)
			}
		}
		return b.String()
	case *CallExpr:
		args := make([]string, 0, len(n.Arguments))
		for _, arg := range n.Arguments {
			args = append(args, Stringify(arg))
		}
		return operand(n.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *FunctionDeclaration:
		return stringifyFunction(n)
	case *IfStatement:
		return stringifyIf(n)
	case *WhileStatement:
		head := "while " + Stringify(n.Test)
		return head + stringifyBody(n.Body, n.Inline)
	case *ForStatement:
		head := "for " + Stringify(n.Init) + "; " + Stringify(n.Test) + "; " + Stringify(n.Update)
		return head + stringifyBody(n.Body, n.Inline)
	case *ReturnExpr:
		if n.Value == nil {
			return "return"
		}
		return "return " + Stringify(n.Value)
	case *BreakStatement:
		return "break"
	case *ContinueStatement:
		return "continue"
	case *DebugStatement:
		parts := make([]string, 0, len(n.Props))
		for _, prop := range n.Props {
			parts = append(parts, Stringify(prop))
		}
		return "debug {" + strings.Join(parts, ", ") + "}"
	case *UseStatement:
		if n.Namespace != "" {
			return "use " + quote(n.Path) + " as " + n.Namespace
		}
		specs := make([]string, 0, len(n.Imports))
		for _, spec := range n.Imports {
			if spec.Alias != "" {
				specs = append(specs, spec.Name+" as "+spec.Alias)
			} else {
				specs = append(specs, spec.Name)
			}
		}
		return "use (" + strings.Join(specs, ", ") + ") from " + quote(n.Path)
	case *TapStatement:
		return "tap " + quote(n.Path)
	case *EmbedStatement:
		return "# embed " + quote(n.Path)
	case *TypeofExpression:
		return "typeof " + operand(n.Value)
	case *IsDefExpression:
		return "isdef " + operand(n.Value)
	case *EmptyStatement:
		return ""
	case *Property:
		return stringifyProperty(n)
	case *Action:
		return stringifyAction(n)
	}
	return ""
}

// StringifyBody renders statements one per line without surrounding braces.
func StringifyBody(body []Statement) string {
	return joinStatements(body, "")
}

// FormatNumber renders a number the way Luna source and output spell it.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinStatements(body []Statement, indent string) string {
	lines := make([]string, 0, len(body))
	for _, stmt := range body {
		text := Stringify(stmt)
		if text == "" {
			continue
		}
		lines = append(lines, indentLines(text, indent))
	}
	return strings.Join(lines, "\n")
}

func indentLines(text, indent string) string {
	if indent == "" {
		return text
	}
	parts := strings.Split(text, "\n")
	for i, part := range parts {
		parts[i] = indent + part
	}
	return strings.Join(parts, "\n")
}

func stringifyBlock(body []Statement) string {
	if len(body) == 0 {
		return "{}"
	}
	return "{\n" + joinStatements(body, "  ") + "\n}"
}

func stringifyBody(body []Statement, inline bool) string {
	if inline && len(body) == 1 {
		return ": " + Stringify(body[0])
	}
	return " " + stringifyBlock(body)
}

func stringifyFunction(fn *FunctionDeclaration) string {
	var b strings.Builder
	if fn.Export {
		b.WriteString("out ")
	}
	if fn.Anonymous() {
		b.WriteString("lambda")
	} else {
		b.WriteString("fn " + fn.Name)
	}
	for _, param := range fn.Parameters {
		b.WriteString(" " + param.Name)
		if param.Default != nil {
			b.WriteString("=(" + Stringify(param.Default) + ")")
		}
	}
	b.WriteString(stringifyBody(fn.Body, fn.Inline))
	return b.String()
}

func stringifyIf(n *IfStatement) string {
	out := "if " + Stringify(n.Test) + stringifyBody(n.Consequent, n.Inline)
	if n.ElseIf != nil {
		out += " else " + stringifyIf(n.ElseIf)
	} else if n.Alternate != nil {
		out += " else " + stringifyBlock(n.Alternate)
	}
	return out
}

func stringifyProperty(prop *Property) string {
	key := prop.Key
	if !plainKey.MatchString(key) {
		key = quote(key)
	}
	if prop.Shorthand {
		return key
	}
	if prop.Action != nil {
		return key + ": " + stringifyAction(prop.Action) + ": " + Stringify(prop.Value)
	}
	return key + ": " + Stringify(prop.Value)
}

func stringifyAction(action *Action) string {
	if action == nil {
		return ""
	}
	if len(action.Args) == 0 {
		return action.Name
	}
	args := make([]string, 0, len(action.Args))
	for _, arg := range action.Args {
		args = append(args, arg.Name)
	}
	return action.Name + "<" + strings.Join(args, ", ") + ">"
}

// operand wraps anything that is not a primary or postfix expression so it
// keeps its grouping when re-parsed.
func operand(expr Expression) string {
	switch expr.(type) {
	case *Identifier, *NumericLiteral, *StringLiteral, *UndefinedLiteral, *ArrayLiteral, *ObjectLiteral, *MemberExpr, *CallExpr:
		return Stringify(expr)
	case *UnaryExpr:
		if expr.(*UnaryExpr).Postfix {
			return Stringify(expr)
		}
	}
	return "(" + Stringify(expr) + ")"
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
	"\b", `\b`,
	"\f", `\f`,
	"\v", `\v`,
)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
