package interpreter

import (
	"math"
	"strings"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/runtime"
)

// maxArrayGrowth bounds how far past its end an index write may grow an array.
const maxArrayGrowth = 1 << 20

// memberKey evaluates one `.name` or `[expr]` step.
func (i *Interpreter) memberKey(prop *ast.MemberProperty, env *runtime.Environment) (runtime.Value, error) {
	if !prop.Computed() {
		return runtime.String(prop.Name), nil
	}
	return i.evaluateExpression(prop.Index, env)
}

func pathLabel(root ast.Expression, keys []runtime.Value) string {
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, ast.Stringify(root))
	for _, k := range keys {
		parts = append(parts, runtime.ToString(k))
	}
	return strings.Join(parts, " → ")
}

func (i *Interpreter) readMember(expr *ast.MemberExpr, env *runtime.Environment) (runtime.Value, error) {
	current, err := i.evaluateExpression(expr.Object, env)
	if err != nil {
		return nil, err
	}
	keys := make([]runtime.Value, 0, len(expr.Properties))
	for _, prop := range expr.Properties {
		key, err := i.memberKey(prop, env)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		if runtime.IsNullish(current) {
			return nil, runtime.NewError(runtime.NameError, "Cannot read properties of an undefined value, READING: %s", pathLabel(expr.Object, keys))
		}
		current = memberOf(current, key)
	}
	return current, nil
}

// memberOf looks key up on recv: object fields and array or string indexes
// first, then the capability table for recv's type.
func memberOf(recv runtime.Value, key runtime.Value) runtime.Value {
	switch v := recv.(type) {
	case *runtime.ObjectValue:
		if field, ok := v.Get(runtime.ToString(key)); ok {
			return field
		}
	case *runtime.ArrayValue:
		if idx, ok := arrayIndex(key); ok {
			if idx < len(v.Elements) {
				return v.Elements[idx]
			}
			return runtime.Undefined
		}
	case runtime.StringValue:
		if idx, ok := arrayIndex(key); ok {
			runes := []rune(v.Val)
			if idx < len(runes) {
				return runtime.String(string(runes[idx]))
			}
			return runtime.Undefined
		}
	}
	if name, ok := key.(runtime.StringValue); ok {
		if bound, ok := runtime.LookupMethod(recv, name.Val); ok {
			return bound
		}
	}
	return runtime.Undefined
}

// arrayIndex accepts non-negative integral numbers only.
func arrayIndex(key runtime.Value) (int, bool) {
	n, ok := key.(runtime.NumberValue)
	if !ok || n.Val < 0 || n.Val != math.Trunc(n.Val) || math.IsInf(n.Val, 0) {
		return 0, false
	}
	return int(n.Val), true
}

// writeMember stores value at the end of a member path, creating empty
// objects for missing intermediate steps. The root value itself is never
// replaced, so every binding that shares it sees the write.
func (i *Interpreter) writeMember(expr *ast.MemberExpr, value runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	current, err := i.evaluateExpression(expr.Object, env)
	if err != nil {
		return nil, err
	}
	keys := make([]runtime.Value, 0, len(expr.Properties))
	for idx, prop := range expr.Properties {
		key, err := i.memberKey(prop, env)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		last := idx == len(expr.Properties)-1

		switch container := current.(type) {
		case *runtime.ObjectValue:
			name := runtime.ToString(key)
			if last {
				container.Set(name, value)
				return value, nil
			}
			next, ok := container.Get(name)
			if !ok || runtime.IsNullish(next) {
				next = runtime.NewObject()
				container.Set(name, next)
			}
			current = next
		case *runtime.ArrayValue:
			index, ok := arrayIndex(key)
			if !ok {
				return nil, runtime.NewError(runtime.TypeError, "Invalid array index %s, WRITING: %s", runtime.ToString(key), pathLabel(expr.Object, keys))
			}
			if index >= len(container.Elements)+maxArrayGrowth {
				return nil, runtime.NewError(runtime.ValueError, "Array index %d is out of range, WRITING: %s", index, pathLabel(expr.Object, keys))
			}
			for len(container.Elements) <= index {
				container.Elements = append(container.Elements, runtime.Undefined)
			}
			if last {
				container.Elements[index] = value
				return value, nil
			}
			next := container.Elements[index]
			if runtime.IsNullish(next) {
				next = runtime.NewObject()
				container.Elements[index] = next
			}
			current = next
		default:
			if runtime.IsNullish(current) {
				return nil, runtime.NewError(runtime.NameError, "Cannot set properties of an undefined value, WRITING: %s", pathLabel(expr.Object, keys))
			}
			return nil, runtime.NewError(runtime.TypeError, "Cannot set properties of a %s value, WRITING: %s", runtime.TypeName(current), pathLabel(expr.Object, keys))
		}
	}
	return value, nil
}
