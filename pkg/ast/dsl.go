package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Num(value float64) *NumericLiteral {
	return NewNumericLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Undef() *UndefinedLiteral {
	return NewUndefinedLiteral()
}

func Arr(elements ...Expression) *ArrayLiteral {
	if elements == nil {
		elements = []Expression{}
	}
	return NewArrayLiteral(elements)
}

func Obj(properties ...*Property) *ObjectLiteral {
	if properties == nil {
		properties = []*Property{}
	}
	return NewObjectLiteral(properties)
}

func Prop(key string, value Expression) *Property {
	return NewProperty(key, value, nil, false)
}

func ShortProp(key string) *Property {
	return NewProperty(key, ID(key), nil, true)
}

func ActProp(key string, action *Action, value Expression) *Property {
	return NewProperty(key, value, action, false)
}

// Operator helpers.

func Bin(op string, left, right Expression) *BinaryExpr {
	return NewBinaryExpr(op, left, right)
}

func Eq(op string, left, right Expression) *EqualityExpr {
	return NewEqualityExpr(op, left, right)
}

func Cmp(op string, left, right Expression) *InequalityExpr {
	return NewInequalityExpr(op, left, right)
}

func Logic(op string, left, right Expression) *LogicalExpr {
	return NewLogicalExpr(op, left, right)
}

func Un(op string, operand Expression) *UnaryExpr {
	return NewUnaryExpr(op, operand, false)
}

func Postfix(op string, operand Expression) *UnaryExpr {
	return NewUnaryExpr(op, operand, true)
}

func Tern(condition, consequent, alternate Expression) *TernaryExpr {
	return NewTernaryExpr(condition, consequent, alternate)
}

// Assignment helpers.

func Assign(target, value Expression) *AssignmentExpr {
	return NewAssignmentExpr(target, value)
}

func Act(name string, args ...string) *Action {
	if len(args) == 0 {
		return NewAction(name, nil)
	}
	ids := make([]*Identifier, 0, len(args))
	for _, arg := range args {
		ids = append(ids, ID(arg))
	}
	return NewAction(name, ids)
}

func ActAssign(target Expression, action *Action, value Expression) *ActionAssignmentExpr {
	return NewActionAssignmentExpr(target, action, value)
}

func Nullish(target, value Expression) *NullishAssignmentExpr {
	return NewNullishAssignmentExpr(target, value)
}

func NumAssign(op string, target, value Expression) *NumericAssignmentExpr {
	return NewNumericAssignmentExpr(op, target, value)
}

// Member and call helpers.

func Dot(name string) *MemberProperty {
	return NewMemberProperty(name)
}

func Idx(index Expression) *MemberProperty {
	return NewIndexProperty(index)
}

func Member(object Expression, properties ...*MemberProperty) *MemberExpr {
	return NewMemberExpr(object, properties)
}

func Call(callee Expression, args ...Expression) *CallExpr {
	if args == nil {
		args = []Expression{}
	}
	return NewCallExpr(callee, args)
}

func CallName(name string, args ...Expression) *CallExpr {
	return Call(ID(name), args...)
}

// Function helpers.

func Param(name string) *Parameter {
	return NewParameter(name, nil)
}

func ParamDefault(name string, def Expression) *Parameter {
	return NewParameter(name, def)
}

func Params(params ...*Parameter) []*Parameter {
	if params == nil {
		params = []*Parameter{}
	}
	return params
}

func Fn(name string, params []*Parameter, body ...Statement) *FunctionDeclaration {
	return NewFunctionDeclaration(name, Params(params...), body, false, false)
}

func InlineFn(name string, params []*Parameter, body Expression) *FunctionDeclaration {
	return NewFunctionDeclaration(name, Params(params...), []Statement{body}, false, true)
}

func Lambda(params []*Parameter, body Expression) *FunctionDeclaration {
	return NewFunctionDeclaration(AnonymousName, Params(params...), []Statement{body}, false, true)
}

// Statement helpers.

func Prog(body ...Statement) *Program {
	return NewProgram(body)
}

func Block(stmts ...Statement) []Statement {
	return stmts
}

func If(test Expression, consequent ...Statement) *IfStatement {
	return NewIfStatement(test, consequent, nil, nil, false)
}

func IfElse(test Expression, consequent, alternate []Statement) *IfStatement {
	return NewIfStatement(test, consequent, nil, alternate, false)
}

func While(test Expression, body ...Statement) *WhileStatement {
	return NewWhileStatement(test, body, false)
}

func For(init, test, update Expression, body ...Statement) *ForStatement {
	return NewForStatement(init, test, update, body, false)
}

func Ret(value Expression) *ReturnExpr {
	return NewReturnExpr(value)
}

func Debug(props ...Expression) *DebugStatement {
	if props == nil {
		props = []Expression{}
	}
	return NewDebugStatement(props)
}

func Import(name, alias string) *ImportSpecifier {
	return NewImportSpecifier(name, alias)
}

func Use(path string, imports ...*ImportSpecifier) *UseStatement {
	if imports == nil {
		imports = []*ImportSpecifier{}
	}
	return NewUseStatement(path, imports, "")
}

func UseAs(path, namespace string) *UseStatement {
	return NewUseStatement(path, nil, namespace)
}

func Tap(path string) *TapStatement {
	return NewTapStatement(path)
}

func Typeof(value Expression) *TypeofExpression {
	return NewTypeofExpression(value)
}

func IsDef(value Expression) *IsDefExpression {
	return NewIsDefExpression(value)
}
