package runtime

import (
	"sort"

	"luna/interpreter-go/pkg/ast"
)

// ScopeKind tags the construct that opened an environment.
type ScopeKind string

const (
	ScopeRoot     ScopeKind = ""
	ScopeFunction ScopeKind = "function"
	ScopeIf       ScopeKind = "if"
	ScopeFor      ScopeKind = "for"
	ScopeModule   ScopeKind = "module"
)

// ReactiveCallback re-evaluates Value in Env whenever a watched binding
// changes. Object and Key are set when the reactive binding is an object
// property rather than a variable; Member is set for `a.b: react<x> = ...`.
type ReactiveCallback struct {
	Target  string
	Action  *ast.Action
	Value   ast.Expression
	Env     *Environment
	Object  *ObjectValue
	Key     string
	Member  *ast.MemberExpr
	Watched []string
}

// Environment provides lexical scoping for Luna runtime values.
type Environment struct {
	values      map[string]Value
	constants   map[string]bool
	exports     map[string]bool
	subscribers map[string][]*ReactiveCallback
	in          ScopeKind
	parent      *Environment
}

// NewEnvironment creates a root environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return NewScope(parent, ScopeRoot)
}

// NewScope creates a child environment tagged with the construct that opened it.
func NewScope(parent *Environment, in ScopeKind) *Environment {
	return &Environment{
		values:      make(map[string]Value),
		constants:   make(map[string]bool),
		exports:     make(map[string]bool),
		subscribers: make(map[string][]*ReactiveCallback),
		in:          in,
		parent:      parent,
	}
}

// Parent exposes the lexical parent (nil when global).
func (e *Environment) Parent() *Environment {
	return e.parent
}

func (e *Environment) In() ScopeKind {
	return e.in
}

// IsTopLevel reports whether out declarations are legal here.
func (e *Environment) IsTopLevel() bool {
	return e.parent == nil || e.in == ScopeModule
}

// InFunction reports whether any enclosing scope is a function body.
func (e *Environment) InFunction() bool {
	for env := e; env != nil; env = env.parent {
		if env.in == ScopeFunction {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current bindings.
func (e *Environment) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Define inserts or shadows a binding in the current scope.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// DefineConst inserts a binding that later declarations may not replace.
func (e *Environment) DefineConst(name string, value Value) {
	e.values[name] = value
	e.constants[name] = true
}

// MarkConst makes an existing binding in this scope constant.
func (e *Environment) MarkConst(name string) {
	e.constants[name] = true
}

// IsConstant reports whether name is a constant of this scope.
func (e *Environment) IsConstant(name string) bool {
	return e.constants[name]
}

func (e *Environment) HasLocal(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Local returns the binding held by this scope only.
func (e *Environment) Local(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Resolve finds the nearest scope holding name.
func (e *Environment) Resolve(name string) *Environment {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			return env
		}
	}
	return nil
}

// Get retrieves a binding, searching outward through the scope chain.
func (e *Environment) Get(name string) (Value, error) {
	if holder := e.Resolve(name); holder != nil {
		return holder.values[name], nil
	}
	return nil, NewError(NameError, "%s is not defined", name)
}

// Lookup is Get without the error.
func (e *Environment) Lookup(name string) (Value, bool) {
	if holder := e.Resolve(name); holder != nil {
		return holder.values[name], true
	}
	return nil, false
}

// Assign updates an existing binding in the first scope where it appears.
func (e *Environment) Assign(name string, value Value) error {
	holder := e.Resolve(name)
	if holder == nil {
		return NewError(NameError, "%s is not defined", name)
	}
	holder.values[name] = value
	return nil
}

func (e *Environment) MarkExport(name string) {
	e.exports[name] = true
}

func (e *Environment) IsExported(name string) bool {
	return e.exports[name]
}

// Exports returns the exported bindings of this scope, sorted by name.
func (e *Environment) Exports() []string {
	names := make([]string, 0, len(e.exports))
	for name := range e.exports {
		if _, ok := e.values[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Subscribe registers cb to run when the local binding name changes.
func (e *Environment) Subscribe(name string, cb *ReactiveCallback) {
	e.subscribers[name] = append(e.subscribers[name], cb)
}

// Subscribers returns the callbacks watching the local binding name in
// subscription order.
func (e *Environment) Subscribers(name string) []*ReactiveCallback {
	subs := e.subscribers[name]
	out := make([]*ReactiveCallback, len(subs))
	copy(out, subs)
	return out
}

// Keys returns the bindings in sorted order.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extend opens a plain child scope.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}
