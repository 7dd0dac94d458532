package interpreter

import (
	"fmt"
	"math"
	"strings"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/parser"
	"luna/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.NumericLiteral:
		return runtime.NumberOrNaN(n.Value), nil
	case *ast.StringLiteral:
		return i.evaluateString(n, env)
	case *ast.UndefinedLiteral:
		return runtime.Undefined, nil
	case *ast.Identifier:
		return env.Get(n.Name)
	case *ast.ArrayLiteral:
		values := make([]runtime.Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			val, err := i.evaluateExpression(el, env)
			if err != nil {
				return nil, err
			}
			values = append(values, val)
		}
		return runtime.NewArray(values...), nil
	case *ast.ObjectLiteral:
		return i.evaluateObjectLiteral(n, env)
	case *ast.BinaryExpr:
		return i.evaluateBinaryExpression(n, env)
	case *ast.EqualityExpr:
		return i.evaluateEqualityExpression(n, env)
	case *ast.InequalityExpr:
		return i.evaluateInequalityExpression(n, env)
	case *ast.LogicalExpr:
		return i.evaluateLogicalExpression(n, env)
	case *ast.UnaryExpr:
		return i.evaluateUnaryExpression(n, env)
	case *ast.TernaryExpr:
		cond, err := i.evaluateExpression(n.Condition, env)
		if err != nil {
			return nil, err
		}
		if runtime.Truthy(cond) {
			return i.evaluateExpression(n.Consequent, env)
		}
		return i.evaluateExpression(n.Alternate, env)
	case *ast.AssignmentExpr:
		return i.evaluateAssignment(n, env)
	case *ast.ActionAssignmentExpr:
		return i.evaluateActionAssignment(n, env)
	case *ast.NullishAssignmentExpr:
		return i.evaluateNullishAssignment(n, env)
	case *ast.NumericAssignmentExpr:
		return i.evaluateNumericAssignment(n, env)
	case *ast.MemberExpr:
		return i.readMember(n, env)
	case *ast.CallExpr:
		return i.evaluateCall(n, env)
	case *ast.FunctionDeclaration:
		return i.evaluateFunctionDeclaration(n, env)
	case *ast.TypeofExpression:
		val, err := i.evaluateExpression(n.Value, env)
		if err != nil {
			return nil, err
		}
		return runtime.String(runtime.TypeName(val)), nil
	case *ast.IsDefExpression:
		return runtime.Bool(i.isDefined(n.Value, env)), nil
	case *ast.IfStatement:
		return i.evaluateIfStatement(n, env)
	case *ast.WhileStatement:
		return i.evaluateWhileStatement(n, env)
	case *ast.ForStatement:
		return i.evaluateForStatement(n, env)
	case *ast.ReturnExpr:
		return i.evaluateReturn(n, env)
	case *ast.BreakStatement:
		return nil, breakSignal{}
	case *ast.ContinueStatement:
		return nil, continueSignal{}
	case *ast.DebugStatement:
		return i.evaluateDebugStatement(n, env)
	case *ast.UseStatement:
		return i.evaluateUseStatement(n, env)
	case *ast.TapStatement:
		return i.evaluateTapStatement(n, env)
	case *ast.EmbedStatement:
		if n.Body == nil {
			return runtime.Void, nil
		}
		return i.evaluateBody(n.Body, env)
	case *ast.EmptyStatement:
		return runtime.Void, nil
	default:
		return nil, runtime.NewError(runtime.UnsupportedError, "unsupported expression type: %s", node.NodeType())
	}
}

//-----------------------------------------------------------------------------
// Strings
//-----------------------------------------------------------------------------

func (i *Interpreter) evaluateString(lit *ast.StringLiteral, env *runtime.Environment) (runtime.Value, error) {
	if !strings.ContainsAny(lit.Value, "{\\") {
		return runtime.String(lit.Value), nil
	}
	src := []rune(lit.Value)
	var b strings.Builder
	for idx := 0; idx < len(src); idx++ {
		ch := src[idx]
		if ch == '\\' && idx+1 < len(src) && (src[idx+1] == '{' || src[idx+1] == '}') {
			b.WriteRune(src[idx+1])
			idx++
			continue
		}
		if ch != '{' {
			b.WriteRune(ch)
			continue
		}
		end := matchingBrace(src, idx)
		if end < 0 {
			b.WriteString(string(src[idx:]))
			break
		}
		inner := string(src[idx+1 : end])
		if strings.TrimSpace(inner) == "" {
			b.WriteString(string(src[idx : end+1]))
			idx = end
			continue
		}
		val, err := i.evaluateEmbedded(inner, env)
		if err != nil {
			return nil, err
		}
		b.WriteString(i.Format(val))
		idx = end
	}
	return runtime.String(b.String()), nil
}

// matchingBrace returns the index of the `}` closing the `{` at open, or -1.
// Quoted text inside the span may contain braces.
func matchingBrace(src []rune, open int) int {
	depth := 0
	var quote rune
	for idx := open; idx < len(src); idx++ {
		ch := src[idx]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return idx
			}
		}
	}
	return -1
}

func (i *Interpreter) evaluateEmbedded(source string, env *runtime.Environment) (runtime.Value, error) {
	program, err := parser.ParseSource(source, parser.WithBaseDir(i.currentDir))
	if err != nil {
		return nil, err
	}
	var last runtime.Value = runtime.Undefined
	for _, stmt := range program.Body {
		val, err := i.evaluateStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		last = val
	}
	return last, nil
}

//-----------------------------------------------------------------------------
// Object literals
//-----------------------------------------------------------------------------

func (i *Interpreter) evaluateObjectLiteral(lit *ast.ObjectLiteral, env *runtime.Environment) (runtime.Value, error) {
	obj := runtime.NewObject()
	for _, prop := range lit.Properties {
		var val runtime.Value
		var err error
		if prop.Shorthand || prop.Value == nil {
			val, err = env.Get(prop.Key)
		} else {
			val, err = i.evaluateExpression(prop.Value, env)
		}
		if err != nil {
			return nil, err
		}
		if prop.Action == nil {
			obj.Set(prop.Key, val)
			continue
		}
		switch prop.Action.Name {
		case "const", "var", "out":
			obj.Set(prop.Key, val)
		case "react":
			cb := &runtime.ReactiveCallback{
				Target: prop.Key,
				Action: prop.Action,
				Value:  prop.Value,
				Env:    env,
				Object: obj,
				Key:    prop.Key,
			}
			initial, err := i.subscribe(cb, val, env)
			if err != nil {
				return nil, err
			}
			obj.Set(prop.Key, initial)
		default:
			return nil, runtime.NewError(runtime.SyntaxError, "Unknown action: %s", prop.Action.Name)
		}
	}
	return obj, nil
}

//-----------------------------------------------------------------------------
// Operators
//-----------------------------------------------------------------------------

func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpr, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	return applyBinaryOperator(expr.Operator, left, right)
}

func numericOperand(v runtime.Value) (float64, bool) {
	switch n := v.(type) {
	case runtime.NumberValue:
		return n.Val, true
	case runtime.NaNValue:
		return math.NaN(), true
	}
	return 0, false
}

func applyBinaryOperator(op string, left, right runtime.Value) (runtime.Value, error) {
	lf, lnum := numericOperand(left)
	rf, rnum := numericOperand(right)
	if lnum && rnum {
		return numericBinary(op, lf, rf)
	}

	ls, lstr := left.(runtime.StringValue)
	switch {
	case op == "*" && lstr && rnum:
		if rf <= 0 || math.IsInf(rf, 0) || math.IsNaN(rf) {
			return nil, runtime.NewError(runtime.ArgError, "Invalid string repeat count")
		}
		return runtime.String(strings.Repeat(ls.Val, int(rf))), nil
	case op == "-" && lstr && rnum:
		return runtime.String(truncateRight(ls.Val, rf)), nil
	case op == "+":
		return runtime.String(runtime.ToString(left) + runtime.ToString(right)), nil
	}

	if lstr && rnum {
		return nil, runtime.NewError(runtime.OperationError, "Invalid operation type: %s %s %s", runtime.TypeName(left), op, runtime.TypeName(right))
	}
	return runtime.Undefined, nil
}

// truncateRight drops n runes from the end of s.
func truncateRight(s string, n float64) string {
	if n <= 0 || math.IsNaN(n) {
		return s
	}
	runes := []rune(s)
	if n >= float64(len(runes)) {
		return ""
	}
	return string(runes[:len(runes)-int(n)])
}

func numericBinary(op string, l, r float64) (runtime.Value, error) {
	switch op {
	case "+":
		return runtime.NumberOrNaN(l + r), nil
	case "-":
		return runtime.NumberOrNaN(l - r), nil
	case "*":
		return runtime.NumberOrNaN(l * r), nil
	case "/":
		return runtime.NumberOrNaN(l / r), nil
	case "%":
		return runtime.NumberOrNaN(math.Mod(l, r)), nil
	case "**":
		return runtime.NumberOrNaN(math.Pow(l, r)), nil
	case "&":
		return runtime.Number(float64(toInt32(l) & toInt32(r))), nil
	case "|":
		return runtime.Number(float64(toInt32(l) | toInt32(r))), nil
	case "<<":
		return runtime.Number(float64(toInt32(l) << (uint32(toInt32(r)) & 31))), nil
	case ">>":
		return runtime.Number(float64(toInt32(l) >> (uint32(toInt32(r)) & 31))), nil
	}
	return nil, runtime.NewError(runtime.UnsupportedError, "unsupported binary operator %s", op)
}

// toInt32 wraps f to a signed 32-bit integer the way bitwise operators see it.
func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Trunc(math.Mod(f, 1<<32)))))
}

func (i *Interpreter) evaluateEqualityExpression(expr *ast.EqualityExpr, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	equal := runtime.LooseEquals(left, right)
	if expr.Operator == "!=" {
		return runtime.Bool(!equal), nil
	}
	return runtime.Bool(equal), nil
}

func (i *Interpreter) evaluateInequalityExpression(expr *ast.InequalityExpr, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	lf, lok := numericOperand(left)
	rf, rok := numericOperand(right)
	if !lok || !rok {
		return nil, runtime.NewError(runtime.ValueError, "Cannot compare inequalities of hand sides: '%s' %s '%s'", runtime.TypeName(left), expr.Operator, runtime.TypeName(right))
	}
	switch expr.Operator {
	case "<":
		return runtime.Bool(lf < rf), nil
	case "<=":
		return runtime.Bool(lf <= rf), nil
	case ">":
		return runtime.Bool(lf > rf), nil
	case ">=":
		return runtime.Bool(lf >= rf), nil
	}
	return nil, runtime.NewError(runtime.UnsupportedError, "unsupported comparison operator %s", expr.Operator)
}

func (i *Interpreter) evaluateLogicalExpression(expr *ast.LogicalExpr, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "&&":
		if !runtime.Truthy(left) {
			return left, nil
		}
	case "||":
		if runtime.Truthy(left) {
			return left, nil
		}
	case "??":
		if !runtime.IsNullish(left) {
			return left, nil
		}
	default:
		return nil, runtime.NewError(runtime.UnsupportedError, "unsupported logical operator %s", expr.Operator)
	}
	return i.evaluateExpression(expr.Right, env)
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpr, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(expr.Operand, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "!":
		return runtime.Bool(!runtime.Truthy(operand)), nil
	case "-":
		return runtime.NumberOrNaN(-runtime.ToNumber(operand)), nil
	case "+":
		return runtime.NumberOrNaN(runtime.ToNumber(operand)), nil
	case "++", "--":
		old := runtime.ToNumber(operand)
		next := old + 1
		if expr.Operator == "--" {
			next = old - 1
		}
		if _, err := i.assignTo(expr.Operand, runtime.NumberOrNaN(next), env); err != nil {
			return nil, err
		}
		if expr.Postfix {
			return runtime.NumberOrNaN(old), nil
		}
		return runtime.NumberOrNaN(next), nil
	}
	return nil, runtime.NewError(runtime.UnsupportedError, "unsupported unary operator %s", expr.Operator)
}

//-----------------------------------------------------------------------------
// Assignment
//-----------------------------------------------------------------------------

func (i *Interpreter) evaluateAssignment(assign *ast.AssignmentExpr, env *runtime.Environment) (runtime.Value, error) {
	value, err := i.evaluateExpression(assign.Value, env)
	if err != nil {
		return nil, err
	}
	if pattern, ok := assign.Target.(*ast.ObjectLiteral); ok {
		return i.destructure(pattern, value, env)
	}
	return i.assignTo(assign.Target, value, env)
}

// assignTo writes value through an identifier or member path target.
func (i *Interpreter) assignTo(target ast.Expression, value runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		return i.assignName(env, t.Name, value)
	case *ast.MemberExpr:
		return i.writeMember(t, value, env)
	}
	return nil, runtime.NewError(runtime.SyntaxError, "Invalid left-hand assignment")
}

// assignName updates the nearest scope holding name. A new name is bound
// in the current scope, except inside an `if` body where it is bound only
// in the scope around the `if`, so later writes in the body reach it.
func (i *Interpreter) assignName(env *runtime.Environment, name string, value runtime.Value) (runtime.Value, error) {
	if holder := env.Resolve(name); holder != nil {
		return i.declare(holder, name, value, declareOptions{})
	}
	if env.In() == runtime.ScopeIf && env.Parent() != nil {
		return i.declare(env.Parent(), name, value, declareOptions{})
	}
	return i.declare(env, name, value, declareOptions{})
}

func (i *Interpreter) destructure(pattern *ast.ObjectLiteral, value runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	obj, ok := value.(*runtime.ObjectValue)
	if !ok {
		return nil, runtime.NewError(runtime.TypeError, "Cannot assign to a non-object value")
	}
	for _, prop := range pattern.Properties {
		local := prop.Key
		if !prop.Shorthand && prop.Value != nil {
			ident, ok := prop.Value.(*ast.Identifier)
			if !ok {
				return nil, runtime.NewError(runtime.SyntaxError, "Invalid right-hand assignment")
			}
			local = ident.Name
		}
		field, ok := obj.Get(prop.Key)
		if !ok {
			field = runtime.Undefined
		}
		if _, err := i.declare(env, local, field, declareOptions{}); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (i *Interpreter) evaluateActionAssignment(assign *ast.ActionAssignmentExpr, env *runtime.Environment) (runtime.Value, error) {
	action := assign.Action
	switch action.Name {
	case "const", "var", "out", "react":
	default:
		return nil, runtime.NewError(runtime.SyntaxError, "Unknown action: %s", action.Name)
	}
	value, err := i.evaluateExpression(assign.Value, env)
	if err != nil {
		return nil, err
	}

	opts := declareOptions{constant: action.Name == "const", export: action.Name == "out"}
	if action.Name == "react" {
		cb := &runtime.ReactiveCallback{Action: action, Value: assign.Value, Env: env}
		switch t := assign.Target.(type) {
		case *ast.Identifier:
			cb.Target = t.Name
		case *ast.MemberExpr:
			cb.Target = ast.Stringify(t)
			cb.Member = t
		default:
			return nil, runtime.NewError(runtime.SyntaxError, "Invalid left-hand assignment")
		}
		if value, err = i.subscribe(cb, value, env); err != nil {
			return nil, err
		}
	}

	switch t := assign.Target.(type) {
	case *ast.Identifier:
		return i.declare(env, t.Name, value, opts)
	case *ast.MemberExpr:
		return i.writeMember(t, value, env)
	}
	return nil, runtime.NewError(runtime.SyntaxError, "Invalid left-hand assignment")
}

func (i *Interpreter) evaluateNullishAssignment(assign *ast.NullishAssignmentExpr, env *runtime.Environment) (runtime.Value, error) {
	var current runtime.Value
	switch t := assign.Target.(type) {
	case *ast.Identifier:
		current, _ = env.Lookup(t.Name)
	case *ast.MemberExpr:
		val, err := i.readMember(t, env)
		if err != nil {
			return nil, err
		}
		current = val
	default:
		return nil, runtime.NewError(runtime.SyntaxError, "Invalid left-hand assignment")
	}
	if !runtime.IsNullish(current) {
		return current, nil
	}
	value, err := i.evaluateExpression(assign.Value, env)
	if err != nil {
		return nil, err
	}
	return i.assignTo(assign.Target, value, env)
}

func (i *Interpreter) evaluateNumericAssignment(assign *ast.NumericAssignmentExpr, env *runtime.Environment) (runtime.Value, error) {
	current, err := i.evaluateExpression(assign.Target, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(assign.Value, env)
	if err != nil {
		return nil, err
	}
	op := strings.TrimSuffix(assign.Operator, "=")
	result, err := applyBinaryOperator(op, current, right)
	if err != nil {
		return nil, err
	}
	return i.assignTo(assign.Target, result, env)
}

//-----------------------------------------------------------------------------
// Functions and introspection
//-----------------------------------------------------------------------------

func (i *Interpreter) evaluateFunctionDeclaration(decl *ast.FunctionDeclaration, env *runtime.Environment) (runtime.Value, error) {
	fn := &runtime.FunctionValue{Declaration: decl, Closure: env}
	if decl.Anonymous() {
		return fn, nil
	}
	return i.declare(env, decl.Name, fn, declareOptions{constant: true, export: decl.Export})
}

// isDefined never fails: a lookup error simply means the value is not there.
func (i *Interpreter) isDefined(expr ast.Expression, env *runtime.Environment) bool {
	var val runtime.Value
	switch t := expr.(type) {
	case *ast.Identifier:
		v, ok := env.Lookup(t.Name)
		if !ok {
			return false
		}
		val = v
	case *ast.MemberExpr:
		v, err := i.readMember(t, env)
		if err != nil {
			return false
		}
		val = v
	default:
		v, err := i.evaluateExpression(expr, env)
		if err != nil {
			return false
		}
		val = v
	}
	return val != nil && val.Kind() != runtime.KindUndefined
}

func describeTarget(expr ast.Expression) string {
	if expr == nil {
		return ""
	}
	return fmt.Sprintf("'%s'", ast.Stringify(expr))
}
