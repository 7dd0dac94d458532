package ast

type NodeType string

const (
	NodeProgram               NodeType = "Program"
	NodeIdentifier            NodeType = "Identifier"
	NodeNumericLiteral        NodeType = "NumericLiteral"
	NodeStringLiteral         NodeType = "StringLiteral"
	NodeUndefinedLiteral      NodeType = "UndefinedLiteral"
	NodeArrayLiteral          NodeType = "ArrayLiteral"
	NodeObjectLiteral         NodeType = "ObjectLiteral"
	NodeProperty              NodeType = "Property"
	NodeBinaryExpr            NodeType = "BinaryExpr"
	NodeEqualityExpr          NodeType = "EqualityExpr"
	NodeInequalityExpr        NodeType = "InequalityExpr"
	NodeLogicalExpr           NodeType = "LogicalExpr"
	NodeUnaryExpr             NodeType = "UnaryExpr"
	NodeTernaryExpr           NodeType = "TernaryExpr"
	NodeAssignmentExpr        NodeType = "AssignmentExpr"
	NodeActionAssignmentExpr  NodeType = "ActionAssignmentExpr"
	NodeAction                NodeType = "Action"
	NodeNullishAssignmentExpr NodeType = "NullishAssignmentExpr"
	NodeNumericAssignmentExpr NodeType = "NumericAssignmentExpr"
	NodeMemberExpr            NodeType = "MemberExpr"
	NodeMemberProperty        NodeType = "MemberProperty"
	NodeCallExpr              NodeType = "CallExpr"
	NodeFunctionDeclaration   NodeType = "FunctionDeclaration"
	NodeParameter             NodeType = "Parameter"
	NodeIfStatement           NodeType = "IfStatement"
	NodeWhileStatement        NodeType = "WhileStatement"
	NodeForStatement          NodeType = "ForStatement"
	NodeReturnExpr            NodeType = "ReturnExpr"
	NodeBreakStatement        NodeType = "BreakStatement"
	NodeContinueStatement     NodeType = "ContinueStatement"
	NodeDebugStatement        NodeType = "DebugStatement"
	NodeUseStatement          NodeType = "UseStatement"
	NodeImportSpecifier       NodeType = "ImportSpecifier"
	NodeTapStatement          NodeType = "TapStatement"
	NodeEmbedStatement        NodeType = "EmbedStatement"
	NodeTypeofExpression      NodeType = "TypeofExpression"
	NodeIsDefExpression       NodeType = "IsDefExpression"
	NodeEmptyStatement        NodeType = "EmptyStatement"
)

// AnonymousName is the name carried by lambdas and `fn:` functions.
const AnonymousName = "@ANONYMOUS"

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Program

type Program struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewProgram(body []Statement) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Body: body}
}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type NumericLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value float64 `json:"value"`
}

func NewNumericLiteral(value float64) *NumericLiteral {
	return &NumericLiteral{nodeImpl: newNodeImpl(NodeNumericLiteral), Value: value}
}

// StringLiteral holds the decoded text. Escaped braces are kept as `\{` and
// `\}` so interpolation spans can be told apart from literal braces.
type StringLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type UndefinedLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker
}

func NewUndefinedLiteral() *UndefinedLiteral {
	return &UndefinedLiteral{nodeImpl: newNodeImpl(NodeUndefinedLiteral)}
}

type ArrayLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Elements []Expression `json:"elements"`
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements}
}

// Property is one `key`, `key: value` or `key: action<args>: value` entry.
type Property struct {
	nodeImpl

	Key       string     `json:"key"`
	Value     Expression `json:"value"`
	Action    *Action    `json:"action,omitempty"`
	Shorthand bool       `json:"shorthand,omitempty"`
}

func NewProperty(key string, value Expression, action *Action, shorthand bool) *Property {
	return &Property{nodeImpl: newNodeImpl(NodeProperty), Key: key, Value: value, Action: action, Shorthand: shorthand}
}

type ObjectLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Properties []*Property `json:"properties"`
}

func NewObjectLiteral(properties []*Property) *ObjectLiteral {
	return &ObjectLiteral{nodeImpl: newNodeImpl(NodeObjectLiteral), Properties: properties}
}

// Operators

type BinaryExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpr(operator string, left, right Expression) *BinaryExpr {
	return &BinaryExpr{nodeImpl: newNodeImpl(NodeBinaryExpr), Operator: operator, Left: left, Right: right}
}

type EqualityExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewEqualityExpr(operator string, left, right Expression) *EqualityExpr {
	return &EqualityExpr{nodeImpl: newNodeImpl(NodeEqualityExpr), Operator: operator, Left: left, Right: right}
}

type InequalityExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewInequalityExpr(operator string, left, right Expression) *InequalityExpr {
	return &InequalityExpr{nodeImpl: newNodeImpl(NodeInequalityExpr), Operator: operator, Left: left, Right: right}
}

type LogicalExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewLogicalExpr(operator string, left, right Expression) *LogicalExpr {
	return &LogicalExpr{nodeImpl: newNodeImpl(NodeLogicalExpr), Operator: operator, Left: left, Right: right}
}

type UnaryExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
	Postfix  bool       `json:"postfix,omitempty"`
}

func NewUnaryExpr(operator string, operand Expression, postfix bool) *UnaryExpr {
	return &UnaryExpr{nodeImpl: newNodeImpl(NodeUnaryExpr), Operator: operator, Operand: operand, Postfix: postfix}
}

type TernaryExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Condition  Expression `json:"condition"`
	Consequent Expression `json:"consequent"`
	Alternate  Expression `json:"alternate"`
}

func NewTernaryExpr(condition, consequent, alternate Expression) *TernaryExpr {
	return &TernaryExpr{nodeImpl: newNodeImpl(NodeTernaryExpr), Condition: condition, Consequent: consequent, Alternate: alternate}
}

// Assignments

type AssignmentExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Target Expression `json:"target"`
	Value  Expression `json:"value"`
}

func NewAssignmentExpr(target, value Expression) *AssignmentExpr {
	return &AssignmentExpr{nodeImpl: newNodeImpl(NodeAssignmentExpr), Target: target, Value: value}
}

// Action is the `name<arg, ...>` part of `target: name<args> = value`.
type Action struct {
	nodeImpl

	Name string        `json:"name"`
	Args []*Identifier `json:"args,omitempty"`
}

func NewAction(name string, args []*Identifier) *Action {
	return &Action{nodeImpl: newNodeImpl(NodeAction), Name: name, Args: args}
}

type ActionAssignmentExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Target Expression `json:"target"`
	Action *Action    `json:"action"`
	Value  Expression `json:"value"`
}

func NewActionAssignmentExpr(target Expression, action *Action, value Expression) *ActionAssignmentExpr {
	return &ActionAssignmentExpr{nodeImpl: newNodeImpl(NodeActionAssignmentExpr), Target: target, Action: action, Value: value}
}

type NullishAssignmentExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Target Expression `json:"target"`
	Value  Expression `json:"value"`
}

func NewNullishAssignmentExpr(target, value Expression) *NullishAssignmentExpr {
	return &NullishAssignmentExpr{nodeImpl: newNodeImpl(NodeNullishAssignmentExpr), Target: target, Value: value}
}

type NumericAssignmentExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Target   Expression `json:"target"`
	Value    Expression `json:"value"`
}

func NewNumericAssignmentExpr(operator string, target, value Expression) *NumericAssignmentExpr {
	return &NumericAssignmentExpr{nodeImpl: newNodeImpl(NodeNumericAssignmentExpr), Operator: operator, Target: target, Value: value}
}

// Member access and calls

// MemberProperty is a `.name` step when Index is nil and a `[expr]` step
// otherwise.
type MemberProperty struct {
	nodeImpl

	Name  string     `json:"name,omitempty"`
	Index Expression `json:"index,omitempty"`
}

func NewMemberProperty(name string) *MemberProperty {
	return &MemberProperty{nodeImpl: newNodeImpl(NodeMemberProperty), Name: name}
}

func NewIndexProperty(index Expression) *MemberProperty {
	return &MemberProperty{nodeImpl: newNodeImpl(NodeMemberProperty), Index: index}
}

func (p *MemberProperty) Computed() bool { return p.Index != nil }

type MemberExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Object     Expression        `json:"object"`
	Properties []*MemberProperty `json:"properties"`
}

func NewMemberExpr(object Expression, properties []*MemberProperty) *MemberExpr {
	return &MemberExpr{nodeImpl: newNodeImpl(NodeMemberExpr), Object: object, Properties: properties}
}

type CallExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewCallExpr(callee Expression, args []Expression) *CallExpr {
	return &CallExpr{nodeImpl: newNodeImpl(NodeCallExpr), Callee: callee, Arguments: args}
}

// Functions

// Parameter has a nil Default when none was written; callers treat that as
// `undefined`.
type Parameter struct {
	nodeImpl

	Name    string     `json:"name"`
	Default Expression `json:"default,omitempty"`
}

func NewParameter(name string, def Expression) *Parameter {
	return &Parameter{nodeImpl: newNodeImpl(NodeParameter), Name: name, Default: def}
}

type FunctionDeclaration struct {
	nodeImpl
	expressionMarker
	statementMarker

	Name       string       `json:"name"`
	Parameters []*Parameter `json:"parameters"`
	Body       []Statement  `json:"body"`
	Export     bool         `json:"export,omitempty"`
	Inline     bool         `json:"inline,omitempty"`
}

func NewFunctionDeclaration(name string, params []*Parameter, body []Statement, export, inline bool) *FunctionDeclaration {
	return &FunctionDeclaration{nodeImpl: newNodeImpl(NodeFunctionDeclaration), Name: name, Parameters: params, Body: body, Export: export, Inline: inline}
}

func (f *FunctionDeclaration) Anonymous() bool { return f.Name == AnonymousName }

// Control flow

// IfStatement carries either an `else if` chain in ElseIf or a plain else
// block in Alternate.
type IfStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Test       Expression   `json:"test"`
	Consequent []Statement  `json:"consequent"`
	ElseIf     *IfStatement `json:"elseIf,omitempty"`
	Alternate  []Statement  `json:"alternate,omitempty"`
	Inline     bool         `json:"inline,omitempty"`
}

func NewIfStatement(test Expression, consequent []Statement, elseIf *IfStatement, alternate []Statement, inline bool) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Test: test, Consequent: consequent, ElseIf: elseIf, Alternate: alternate, Inline: inline}
}

type WhileStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Test   Expression  `json:"test"`
	Body   []Statement `json:"body"`
	Inline bool        `json:"inline,omitempty"`
}

func NewWhileStatement(test Expression, body []Statement, inline bool) *WhileStatement {
	return &WhileStatement{nodeImpl: newNodeImpl(NodeWhileStatement), Test: test, Body: body, Inline: inline}
}

type ForStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Init   Expression  `json:"init"`
	Test   Expression  `json:"test"`
	Update Expression  `json:"update"`
	Body   []Statement `json:"body"`
	Inline bool        `json:"inline,omitempty"`
}

func NewForStatement(init, test, update Expression, body []Statement, inline bool) *ForStatement {
	return &ForStatement{nodeImpl: newNodeImpl(NodeForStatement), Init: init, Test: test, Update: update, Body: body, Inline: inline}
}

// ReturnExpr has a nil Value for a bare `return`.
type ReturnExpr struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnExpr(value Expression) *ReturnExpr {
	return &ReturnExpr{nodeImpl: newNodeImpl(NodeReturnExpr), Value: value}
}

type BreakStatement struct {
	nodeImpl
	expressionMarker
	statementMarker
}

func NewBreakStatement() *BreakStatement {
	return &BreakStatement{nodeImpl: newNodeImpl(NodeBreakStatement)}
}

type ContinueStatement struct {
	nodeImpl
	expressionMarker
	statementMarker
}

func NewContinueStatement() *ContinueStatement {
	return &ContinueStatement{nodeImpl: newNodeImpl(NodeContinueStatement)}
}

type DebugStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Props []Expression `json:"props"`
}

func NewDebugStatement(props []Expression) *DebugStatement {
	return &DebugStatement{nodeImpl: newNodeImpl(NodeDebugStatement), Props: props}
}

// Modules

type ImportSpecifier struct {
	nodeImpl

	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

func NewImportSpecifier(name, alias string) *ImportSpecifier {
	return &ImportSpecifier{nodeImpl: newNodeImpl(NodeImportSpecifier), Name: name, Alias: alias}
}

// LocalName is the binding the import introduces.
func (s *ImportSpecifier) LocalName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// UseStatement is either a named import (`use (a as b) from "p"`) or a
// namespace import (`use "p" as ns`).
type UseStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Path      string             `json:"path"`
	Imports   []*ImportSpecifier `json:"imports,omitempty"`
	Namespace string             `json:"namespace,omitempty"`
}

func NewUseStatement(path string, imports []*ImportSpecifier, namespace string) *UseStatement {
	return &UseStatement{nodeImpl: newNodeImpl(NodeUseStatement), Path: path, Imports: imports, Namespace: namespace}
}

type TapStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Path string `json:"path"`
}

func NewTapStatement(path string) *TapStatement {
	return &TapStatement{nodeImpl: newNodeImpl(NodeTapStatement), Path: path}
}

// EmbedStatement marks where a file was spliced in at parse time. Body is
// only populated between parsing and the flattening pass.
type EmbedStatement struct {
	nodeImpl
	expressionMarker
	statementMarker

	Path string      `json:"path"`
	Body []Statement `json:"-"`
}

func NewEmbedStatement(path string, body []Statement) *EmbedStatement {
	return &EmbedStatement{nodeImpl: newNodeImpl(NodeEmbedStatement), Path: path, Body: body}
}

// Introspection

type TypeofExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value Expression `json:"value"`
}

func NewTypeofExpression(value Expression) *TypeofExpression {
	return &TypeofExpression{nodeImpl: newNodeImpl(NodeTypeofExpression), Value: value}
}

type IsDefExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value Expression `json:"value"`
}

func NewIsDefExpression(value Expression) *IsDefExpression {
	return &IsDefExpression{nodeImpl: newNodeImpl(NodeIsDefExpression), Value: value}
}

type EmptyStatement struct {
	nodeImpl
	expressionMarker
	statementMarker
}

func NewEmptyStatement() *EmptyStatement {
	return &EmptyStatement{nodeImpl: newNodeImpl(NodeEmptyStatement)}
}
