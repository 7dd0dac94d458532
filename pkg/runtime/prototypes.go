package runtime

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"luna/interpreter-go/pkg/ast"
)

// Prototype is the capability table shared by every value of one kind.
// Each method receives its receiver as the first argument.
type Prototype map[string]NativeFunctionValue

var prototypes map[Kind]Prototype

func init() {
	prototypes = map[Kind]Prototype{
		KindNumber:         numberPrototype(),
		KindString:         stringPrototype(),
		KindArray:          arrayPrototype(),
		KindObject:         objectPrototype(),
		KindFunction:       functionPrototype(),
		KindNativeFunction: functionPrototype(),
	}
}

// PrototypeFor returns the capability table for v's kind, or nil.
func PrototypeFor(v Value) Prototype {
	if v == nil {
		return nil
	}
	return prototypes[v.Kind()]
}

// LookupMethod binds the named capability of v to v.
func LookupMethod(v Value, name string) (BoundMethodValue, bool) {
	method, ok := PrototypeFor(v)[name]
	if !ok {
		return BoundMethodValue{}, false
	}
	return BoundMethodValue{Receiver: v, Method: method}, true
}

func method(kind, name string, arity int, impl NativeFunc) NativeFunctionValue {
	return NativeFunctionValue{Name: kind + "." + name, Arity: arity, Impl: impl}
}

func arg(args []Value, i int) Value {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return Undefined
}

func hasArg(args []Value, i int) bool {
	if i >= len(args) || args[i] == nil {
		return false
	}
	_, undef := args[i].(UndefinedValue)
	return !undef
}

func intArg(args []Value, i int, def int) int {
	if !hasArg(args, i) {
		return def
	}
	f := ToNumber(args[i])
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 1) {
		return math.MaxInt32
	}
	if math.IsInf(f, -1) {
		return math.MinInt32
	}
	return int(math.Trunc(f))
}

// relativeIndex clamps a possibly negative index into [0, length].
func relativeIndex(idx, length int) int {
	if idx < 0 {
		idx += length
		if idx < 0 {
			return 0
		}
	}
	if idx > length {
		return length
	}
	return idx
}

//-----------------------------------------------------------------------------
// number
//-----------------------------------------------------------------------------

func numberPrototype() Prototype {
	return Prototype{
		"toInt": method("number", "toInt", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			return NumberOrNaN(math.Trunc(ToNumber(arg(args, 0)))), nil
		}),
	}
}

//-----------------------------------------------------------------------------
// array
//-----------------------------------------------------------------------------

func receiverArray(args []Value) *ArrayValue {
	if arr, ok := arg(args, 0).(*ArrayValue); ok {
		return arr
	}
	return NewArray()
}

func arrayPrototype() Prototype {
	return Prototype{
		"length": method("array", "length", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			return Number(float64(len(receiverArray(args).Elements))), nil
		}),
		"at": method("array", "at", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			idx := intArg(args, 1, 0)
			if idx < 0 {
				idx += len(arr.Elements)
			}
			if idx < 0 || idx >= len(arr.Elements) {
				return Undefined, nil
			}
			return arr.Elements[idx], nil
		}),
		"push": method("array", "push", -1, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			if len(args) > 1 {
				arr.Elements = append(arr.Elements, args[1:]...)
			}
			return Null, nil
		}),
		"pop": method("array", "pop", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			if len(arr.Elements) == 0 {
				return Undefined, nil
			}
			last := arr.Elements[len(arr.Elements)-1]
			arr.Elements = arr.Elements[:len(arr.Elements)-1]
			return last, nil
		}),
		"shift": method("array", "shift", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			if len(arr.Elements) == 0 {
				return Undefined, nil
			}
			first := arr.Elements[0]
			arr.Elements = append([]Value{}, arr.Elements[1:]...)
			return first, nil
		}),
		"unshift": method("array", "unshift", -1, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			if len(args) > 1 {
				arr.Elements = append(append([]Value{}, args[1:]...), arr.Elements...)
			}
			return Number(float64(len(arr.Elements))), nil
		}),
		"slice": method("array", "slice", 2, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			n := len(arr.Elements)
			start := relativeIndex(intArg(args, 1, 0), n)
			end := relativeIndex(intArg(args, 2, n), n)
			if end < start {
				end = start
			}
			return NewArray(append([]Value{}, arr.Elements[start:end]...)...), nil
		}),
		"splice": method("array", "splice", -1, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			n := len(arr.Elements)
			start := relativeIndex(intArg(args, 1, 0), n)
			count := intArg(args, 2, n-start)
			if count < 0 {
				count = 0
			}
			if start+count > n {
				count = n - start
			}
			removed := append([]Value{}, arr.Elements[start:start+count]...)
			var inserted []Value
			if len(args) > 3 {
				inserted = args[3:]
			}
			rest := append([]Value{}, arr.Elements[start+count:]...)
			arr.Elements = append(append(arr.Elements[:start], inserted...), rest...)
			return NewArray(removed...), nil
		}),
		"reverse": method("array", "reverse", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
				arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
			}
			return arr, nil
		}),
		"sort": method("array", "sort", 1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			var callErr error
			less := func(a, b Value) bool { return ToString(a) < ToString(b) }
			if hasArg(args, 1) {
				cmp := args[1]
				less = func(a, b Value) bool {
					if callErr != nil {
						return false
					}
					res, err := ctx.Call(cmp, a, b)
					if err != nil {
						callErr = err
						return false
					}
					return ToNumber(res) < 0
				}
			}
			sort.SliceStable(arr.Elements, func(i, j int) bool {
				return less(arr.Elements[i], arr.Elements[j])
			})
			if callErr != nil {
				return nil, callErr
			}
			return arr, nil
		}),
		"map": method("array", "map", 1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			out := make([]Value, 0, len(arr.Elements))
			for i, el := range arr.Elements {
				res, err := ctx.Call(arg(args, 1), el, Number(float64(i)))
				if err != nil {
					return nil, err
				}
				out = append(out, res)
			}
			return NewArray(out...), nil
		}),
		"filter": method("array", "filter", 1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			out := make([]Value, 0, len(arr.Elements))
			for i, el := range arr.Elements {
				res, err := ctx.Call(arg(args, 1), el, Number(float64(i)))
				if err != nil {
					return nil, err
				}
				if Truthy(res) {
					out = append(out, el)
				}
			}
			return NewArray(out...), nil
		}),
		"reduce": method("array", "reduce", 2, func(ctx *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			elements := arr.Elements
			var acc Value
			if hasArg(args, 2) {
				acc = args[2]
			} else {
				if len(elements) == 0 {
					return nil, NewError(TypeError, "Reduce of empty array with no initial value")
				}
				acc, elements = elements[0], elements[1:]
			}
			for _, el := range elements {
				res, err := ctx.Call(arg(args, 1), acc, el)
				if err != nil {
					return nil, err
				}
				acc = res
			}
			return acc, nil
		}),
		"join": method("array", "join", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			arr := receiverArray(args)
			sep := ","
			if hasArg(args, 1) {
				sep = ToString(args[1])
			}
			parts := make([]string, len(arr.Elements))
			for i, el := range arr.Elements {
				if IsNullish(el) {
					continue
				}
				parts[i] = ToString(el)
			}
			return String(strings.Join(parts, sep)), nil
		}),
		"has": method("array", "has", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			for _, el := range receiverArray(args).Elements {
				if StrictEquals(el, arg(args, 1)) {
					return True, nil
				}
			}
			return False, nil
		}),
		"find": method("array", "find", 1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			for i, el := range receiverArray(args).Elements {
				res, err := ctx.Call(arg(args, 1), el, Number(float64(i)))
				if err != nil {
					return nil, err
				}
				if Truthy(res) {
					return el, nil
				}
			}
			return Undefined, nil
		}),
		"index": method("array", "index", 1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			for i, el := range receiverArray(args).Elements {
				res, err := ctx.Call(arg(args, 1), el, Number(float64(i)))
				if err != nil {
					return nil, err
				}
				if Truthy(res) {
					return Number(float64(i)), nil
				}
			}
			return Number(-1), nil
		}),
		"each": method("array", "each", 1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			for i, el := range receiverArray(args).Elements {
				if _, err := ctx.Call(arg(args, 1), el, Number(float64(i))); err != nil {
					return nil, err
				}
			}
			return Null, nil
		}),
	}
}

//-----------------------------------------------------------------------------
// fn
//-----------------------------------------------------------------------------

func functionPrototype() Prototype {
	return Prototype{
		"call": method("fn", "call", -1, func(ctx *NativeCallContext, args []Value) (Value, error) {
			if len(args) == 0 {
				return Undefined, nil
			}
			return ctx.Call(args[0], args[1:]...)
		}),
		"source": method("fn", "source", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			fn, ok := arg(args, 0).(*FunctionValue)
			if !ok {
				return String(""), nil
			}
			return String(ast.StringifyBody(fn.Declaration.Body)), nil
		}),
	}
}

//-----------------------------------------------------------------------------
// object
//-----------------------------------------------------------------------------

func receiverObject(args []Value) *ObjectValue {
	if obj, ok := arg(args, 0).(*ObjectValue); ok {
		return obj
	}
	return NewObject()
}

func objectPrototype() Prototype {
	return Prototype{
		"keys": method("object", "keys", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			keys := receiverObject(args).Keys()
			out := make([]Value, len(keys))
			for i, k := range keys {
				out[i] = String(k)
			}
			return NewArray(out...), nil
		}),
		"values": method("object", "values", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			obj := receiverObject(args)
			out := make([]Value, 0, obj.Len())
			for _, k := range obj.Keys() {
				v, _ := obj.Get(k)
				out = append(out, v)
			}
			return NewArray(out...), nil
		}),
		"entries": method("object", "entries", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			obj := receiverObject(args)
			out := make([]Value, 0, obj.Len())
			for _, k := range obj.Keys() {
				v, _ := obj.Get(k)
				out = append(out, NewArray(String(k), v))
			}
			return NewArray(out...), nil
		}),
		"has": method("object", "has", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			return Bool(receiverObject(args).Has(ToString(arg(args, 1)))), nil
		}),
		"set": method("object", "set", 2, func(_ *NativeCallContext, args []Value) (Value, error) {
			receiverObject(args).Set(ToString(arg(args, 1)), arg(args, 2))
			return Null, nil
		}),
		"delete": method("object", "delete", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			receiverObject(args).Delete(ToString(arg(args, 1)))
			return Null, nil
		}),
	}
}

//-----------------------------------------------------------------------------
// string
//-----------------------------------------------------------------------------

var argNames = []string{"A", "B"}

// stringArgs returns the receiver text and the required arguments as
// strings, failing with an ArgumentError naming the first missing one.
func stringArgs(args []Value, required int) (string, []string, error) {
	recv := ToString(arg(args, 0))
	out := make([]string, required)
	for i := 0; i < required; i++ {
		if !hasArg(args, i+1) {
			return "", nil, NewError(ArgumentError, "Argument %s is not a type of string", argNames[i])
		}
		out[i] = ToString(args[i+1])
	}
	return recv, out, nil
}

func runeIndex(s string, byteIdx int) int {
	if byteIdx < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:byteIdx])
}

func stringPrototype() Prototype {
	return Prototype{
		"reverse": method("string", "reverse", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			runes := []rune(ToString(arg(args, 0)))
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return String(string(runes)), nil
		}),
		"int": method("string", "int", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			return NumberOrNaN(ParseIntPrefix(ToString(arg(args, 0)))), nil
		}),
		"float": method("string", "float", 0, func(_ *NativeCallContext, args []Value) (Value, error) {
			return NumberOrNaN(ParseFloatPrefix(ToString(arg(args, 0)))), nil
		}),
		"replace": method("string", "replace", 2, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, ab, err := stringArgs(args, 2)
			if err != nil {
				return nil, err
			}
			return String(strings.ReplaceAll(s, ab[0], ab[1])), nil
		}),
		"split": method("string", "split", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, a, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			if s == "" && a[0] != "" {
				return NewArray(String("")), nil
			}
			parts := strings.Split(s, a[0])
			out := make([]Value, len(parts))
			for i, p := range parts {
				out[i] = String(p)
			}
			return NewArray(out...), nil
		}),
		"charAt": method("string", "charAt", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, _, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			runes := []rune(s)
			idx := intArg(args, 1, 0)
			if idx < 0 || idx >= len(runes) {
				return String(""), nil
			}
			return String(string(runes[idx])), nil
		}),
		"charCodeAt": method("string", "charCodeAt", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, _, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			runes := []rune(s)
			idx := intArg(args, 1, 0)
			if idx < 0 || idx >= len(runes) {
				return NaN, nil
			}
			return Number(float64(runes[idx])), nil
		}),
		"concat": method("string", "concat", -1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, _, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			var b strings.Builder
			b.WriteString(s)
			for _, a := range args[1:] {
				b.WriteString(ToString(a))
			}
			return String(b.String()), nil
		}),
		"includes": method("string", "includes", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, a, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			return Bool(strings.Contains(s, a[0])), nil
		}),
		"indexOf": method("string", "indexOf", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, a, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			return Number(float64(runeIndex(s, strings.Index(s, a[0])))), nil
		}),
		"lastIndexOf": method("string", "lastIndexOf", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, a, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			return Number(float64(runeIndex(s, strings.LastIndex(s, a[0])))), nil
		}),
		"match": method("string", "match", 1, func(_ *NativeCallContext, args []Value) (Value, error) {
			s, a, err := stringArgs(args, 1)
			if err != nil {
				return nil, err
			}
			re, err := regexp.Compile(a[0])
			if err != nil {
				return nil, NewError(ArgumentError, "Invalid regular expression '%s'", a[0])
			}
			groups := re.FindStringSubmatch(s)
			if groups == nil {
				return Null, nil
			}
			out := make([]Value, len(groups))
			for i, g := range groups {
				out[i] = String(g)
			}
			return NewArray(out...), nil
		}),
	}
}
