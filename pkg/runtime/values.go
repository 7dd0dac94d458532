package runtime

import (
	"fmt"
	"math"

	"luna/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBoolean
	KindNull
	KindUndefined
	KindVoid
	KindNaN
	KindArray
	KindObject
	KindFunction
	KindNativeFunction
	KindReturn
)

// String returns the name typeof reports for the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undef"
	case KindVoid:
		return "void"
	case KindNaN:
		return "NaN"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction:
		return "fn"
	case KindNativeFunction:
		return "native-fn"
	case KindReturn:
		return "return"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NumberValue struct {
	Val float64
}

func (v NumberValue) Kind() Kind { return KindNumber }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBoolean }

type NullValue struct{}

func (NullValue) Kind() Kind { return KindNull }

type UndefinedValue struct{}

func (UndefinedValue) Kind() Kind { return KindUndefined }

// VoidValue is produced by statements that yield nothing printable.
type VoidValue struct{}

func (VoidValue) Kind() Kind { return KindVoid }

// NaNValue is the NaN type. Every computation that yields a NaN float
// produces it through NumberOrNaN, so typeof reports "NaN".
type NaNValue struct{}

func (NaNValue) Kind() Kind { return KindNaN }

var (
	Null      Value = NullValue{}
	Undefined Value = UndefinedValue{}
	Void      Value = VoidValue{}
	NaN       Value = NaNValue{}
	True      Value = BoolValue{Val: true}
	False     Value = BoolValue{Val: false}
)

func Number(f float64) NumberValue { return NumberValue{Val: f} }

// NumberOrNaN wraps f, mapping a NaN float to the NaN value.
func NumberOrNaN(f float64) Value {
	if math.IsNaN(f) {
		return NaN
	}
	return Number(f)
}

func String(s string) StringValue { return StringValue{Val: s} }

func Bool(b bool) BoolValue { return BoolValue{Val: b} }

//-----------------------------------------------------------------------------
// Collections
//-----------------------------------------------------------------------------

type ArrayValue struct {
	Elements []Value
}

func (v *ArrayValue) Kind() Kind { return KindArray }

func NewArray(elements ...Value) *ArrayValue {
	if elements == nil {
		elements = []Value{}
	}
	return &ArrayValue{Elements: elements}
}

// ObjectValue is a string-keyed map that remembers insertion order.
type ObjectValue struct {
	keys   []string
	fields map[string]Value
}

func (v *ObjectValue) Kind() Kind { return KindObject }

func NewObject() *ObjectValue {
	return &ObjectValue{fields: make(map[string]Value)}
}

func (v *ObjectValue) Get(key string) (Value, bool) {
	val, ok := v.fields[key]
	return val, ok
}

func (v *ObjectValue) Has(key string) bool {
	_, ok := v.fields[key]
	return ok
}

func (v *ObjectValue) Set(key string, val Value) {
	if _, ok := v.fields[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

func (v *ObjectValue) Delete(key string) bool {
	if _, ok := v.fields[key]; !ok {
		return false
	}
	delete(v.fields, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i:i], v.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the property names in insertion order.
func (v *ObjectValue) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v *ObjectValue) Len() int { return len(v.keys) }

//-----------------------------------------------------------------------------
// Functions & closures
//-----------------------------------------------------------------------------

type FunctionValue struct {
	Declaration *ast.FunctionDeclaration
	Closure     *Environment
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// Caller lets native functions invoke user callbacks.
type Caller interface {
	CallFunction(fn Value, args []Value, env *Environment) (Value, error)
}

// NativeCallContext provides hooks for native functions.
type NativeCallContext struct {
	Env    *Environment
	Caller Caller
}

// Call invokes fn through the interpreter that is running the native.
func (c *NativeCallContext) Call(fn Value, args ...Value) (Value, error) {
	if c == nil || c.Caller == nil {
		return nil, NewError(RuntimeError, "Native callback invoked without an interpreter")
	}
	return c.Caller.CallFunction(fn, args, c.Env)
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

// NativeFunctionValue is a host-implemented function. Arity is the number
// of declared parameters; -1 marks a variadic native.
type NativeFunctionValue struct {
	Name  string
	Arity int
	Impl  NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

// BoundMethodValue is a prototype method fetched through a receiver. The
// receiver is passed as the first argument when the method is called.
type BoundMethodValue struct {
	Receiver Value
	Method   NativeFunctionValue
}

func (v BoundMethodValue) Kind() Kind { return KindNativeFunction }

// ReturnValue carries a `return` result up through enclosing blocks.
type ReturnValue struct {
	Value Value
}

func (v ReturnValue) Kind() Kind { return KindReturn }

// TypeName is the string typeof produces for v.
func TypeName(v Value) string {
	if v == nil {
		return KindUndefined.String()
	}
	return v.Kind().String()
}
