package interpreter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/parser"
	"luna/interpreter-go/pkg/runtime"
)

func native(name string, arity int, impl runtime.NativeFunc) runtime.NativeFunctionValue {
	return runtime.NativeFunctionValue{Name: name, Arity: arity, Impl: impl}
}

func argAt(args []runtime.Value, idx int) runtime.Value {
	if idx < len(args) && args[idx] != nil {
		return args[idx]
	}
	return runtime.Undefined
}

func stringAt(args []runtime.Value, idx int) string {
	if idx >= len(args) || runtime.IsNullish(args[idx]) {
		return ""
	}
	return runtime.ToString(args[idx])
}

func moduleObject(entries ...runtime.NativeFunctionValue) *runtime.ObjectValue {
	obj := runtime.NewObject()
	for _, entry := range entries {
		obj.Set(entry.Name, entry)
	}
	return obj
}

// installNatives binds the constant globals, the global functions and the
// native module objects into env.
func (i *Interpreter) installNatives(env *runtime.Environment) {
	env.DefineConst("true", runtime.True)
	env.DefineConst("false", runtime.False)
	env.DefineConst("null", runtime.Null)
	env.DefineConst("NaN", runtime.NaN)
	env.DefineConst("infinity", runtime.Number(math.Inf(1)))
	env.DefineConst("__envScript", runtime.False)

	for _, fn := range i.globalNatives() {
		env.Define(fn.Name, fn)
	}
	env.Define("math", mathModule())
	env.Define("string", stringModule())
	env.Define("array", arrayModule())
	env.Define("mother", moduleObject(
		native("name", 0, func(*runtime.NativeCallContext, []runtime.Value) (runtime.Value, error) {
			return runtime.String("go"), nil
		}),
	))
	env.Define("fs", i.fsModule())
}

func (i *Interpreter) globalNatives() []runtime.NativeFunctionValue {
	return []runtime.NativeFunctionValue{
		native("print", -1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			fmt.Fprintln(i.stdout, i.joinFormatted(args))
			return runtime.Void, nil
		}),
		native("puts", -1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			fmt.Fprint(i.stdout, i.joinFormatted(args))
			return runtime.Void, nil
		}),
		native("input", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			fmt.Fprint(i.stdout, stringAt(args, 0))
			line, err := i.stdin.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, runtime.NewError(runtime.RuntimeError, "input failed: %v", err)
			}
			return runtime.String(strings.TrimRight(line, "\r\n")), nil
		}),
		native("length", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(lengthOf(argAt(args, 0))), nil
		}),
		native("keys", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			obj, ok := argAt(args, 0).(*runtime.ObjectValue)
			if !ok {
				return runtime.NewArray(), nil
			}
			keys := obj.Keys()
			out := make([]runtime.Value, len(keys))
			for idx, key := range keys {
				out[idx] = runtime.String(key)
			}
			return runtime.NewArray(out...), nil
		}),
		native("src", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			fn, ok := argAt(args, 0).(*runtime.FunctionValue)
			if !ok {
				return runtime.Null, nil
			}
			return runtime.String(ast.Stringify(fn.Declaration)), nil
		}),
		native("eval", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return i.evalIsolated(stringAt(args, 0))
		}),
		native("exit", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			code := 0
			if n, ok := argAt(args, 0).(runtime.NumberValue); ok {
				code = int(n.Val)
			}
			return nil, &runtime.ExitRequest{Code: code}
		}),
		native("argv", 0, func(*runtime.NativeCallContext, []runtime.Value) (runtime.Value, error) {
			out := make([]runtime.Value, len(i.args))
			for idx, a := range i.args {
				out[idx] = runtime.String(a)
			}
			return runtime.NewArray(out...), nil
		}),
		native("sleep", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			ms := runtime.ToNumber(argAt(args, 0))
			if ms > 0 && !math.IsInf(ms, 0) {
				time.Sleep(time.Duration(ms * float64(time.Millisecond)))
			}
			return runtime.Null, nil
		}),
		native("time", 0, func(*runtime.NativeCallContext, []runtime.Value) (runtime.Value, error) {
			return runtime.Number(float64(time.Since(i.started).Microseconds()) / 1000), nil
		}),
	}
}

func (i *Interpreter) joinFormatted(args []runtime.Value) string {
	parts := make([]string, len(args))
	for idx, arg := range args {
		parts[idx] = i.Format(arg)
	}
	return strings.Join(parts, " ")
}

func lengthOf(v runtime.Value) float64 {
	switch val := v.(type) {
	case runtime.StringValue:
		return float64(len([]rune(val.Val)))
	case *runtime.ArrayValue:
		return float64(len(val.Elements))
	case *runtime.ObjectValue:
		return float64(val.Len())
	case runtime.NumberValue:
		return val.Val
	case runtime.BoolValue:
		if val.Val {
			return 1
		}
		return 0
	case runtime.NullValue, runtime.UndefinedValue:
		return 0
	}
	return -1
}

// evalIsolated runs code in a fresh global context. Failures are reported
// on stderr and yield undef; only exit requests escape.
func (i *Interpreter) evalIsolated(code string) (runtime.Value, error) {
	program, err := parser.ParseSource(code, parser.WithBaseDir(i.currentDir))
	if err == nil {
		var val runtime.Value
		val, err = i.evaluateProgram(program, i.newRootEnvironment())
		if err == nil {
			return val, nil
		}
	}
	var exit *runtime.ExitRequest
	if errors.As(err, &exit) {
		return nil, exit
	}
	fmt.Fprintln(i.stderr, err.Error())
	return runtime.Undefined, nil
}

func mathModule() *runtime.ObjectValue {
	unary := func(name string, f func(float64) float64) runtime.NativeFunctionValue {
		return native(name, 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.NumberOrNaN(f(runtime.ToNumber(argAt(args, 0)))), nil
		})
	}
	parse := func(name string, f func(string) float64) runtime.NativeFunctionValue {
		return native(name, 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.NumberOrNaN(f(strings.TrimSpace(stringAt(args, 0)))), nil
		})
	}
	obj := moduleObject(
		parse("parse", runtime.ParseFloatPrefix),
		parse("int", runtime.ParseIntPrefix),
		parse("float", runtime.ParseFloatPrefix),
		unary("cos", math.Cos),
		unary("sin", math.Sin),
		native("is_nan", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(math.IsNaN(runtime.ToNumber(argAt(args, 0)))), nil
		}),
	)
	obj.Set("pi", runtime.Number(math.Pi))
	return obj
}

func stringModule() *runtime.ObjectValue {
	return moduleObject(
		native("trim", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.String(strings.TrimSpace(stringAt(args, 0))), nil
		}),
		native("split", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			parts := strings.Split(stringAt(args, 0), stringAt(args, 1))
			out := make([]runtime.Value, len(parts))
			for idx, part := range parts {
				out[idx] = runtime.String(part)
			}
			return runtime.NewArray(out...), nil
		}),
		native("join", 3, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			parts := strings.Split(stringAt(args, 0), stringAt(args, 1))
			return runtime.String(strings.Join(parts, stringAt(args, 2))), nil
		}),
		native("replace", 3, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.String(strings.Replace(stringAt(args, 0), stringAt(args, 1), stringAt(args, 2), 1)), nil
		}),
		native("includes", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(strings.Contains(stringAt(args, 0), stringAt(args, 1))), nil
		}),
		native("charAt", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			runes := []rune(stringAt(args, 0))
			idx := 0
			if len(args) > 1 {
				idx = int(runtime.ToNumber(args[1]))
			}
			if idx < 0 || idx >= len(runes) {
				return runtime.String(""), nil
			}
			return runtime.String(string(runes[idx])), nil
		}),
		native("charCodeAt", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			runes := []rune(stringAt(args, 0))
			idx := 0
			if len(args) > 1 {
				idx = int(runtime.ToNumber(args[1]))
			}
			if idx < 0 || idx >= len(runes) {
				return runtime.NaN, nil
			}
			return runtime.Number(float64(runes[idx])), nil
		}),
		native("at", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			runes := []rune(stringAt(args, 0))
			idx := 0
			if len(args) > 1 {
				idx = int(runtime.ToNumber(args[1]))
			}
			if idx < 0 {
				idx += len(runes)
			}
			if idx < 0 || idx >= len(runes) {
				return runtime.Undefined, nil
			}
			return runtime.String(string(runes[idx])), nil
		}),
	)
}

func arrayArg(args []runtime.Value) (*runtime.ArrayValue, bool) {
	arr, ok := argAt(args, 0).(*runtime.ArrayValue)
	return arr, ok
}

func arrayModule() *runtime.ObjectValue {
	// visit calls fn with each element and its index until fn fails.
	visit := func(ctx *runtime.NativeCallContext, arr *runtime.ArrayValue, fn runtime.Value, each func(el, res runtime.Value)) error {
		for idx, el := range append([]runtime.Value(nil), arr.Elements...) {
			res, err := ctx.Call(fn, el, runtime.Number(float64(idx)))
			if err != nil {
				return err
			}
			each(el, res)
		}
		return nil
	}
	return moduleObject(
		native("filter", 2, func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok || !isCallable(argAt(args, 1)) {
				return runtime.Undefined, nil
			}
			var out []runtime.Value
			err := visit(ctx, arr, args[1], func(el, res runtime.Value) {
				if runtime.Truthy(res) {
					out = append(out, el)
				}
			})
			if err != nil {
				return nil, err
			}
			return runtime.NewArray(out...), nil
		}),
		native("map", 2, func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok || !isCallable(argAt(args, 1)) {
				return runtime.Undefined, nil
			}
			out := make([]runtime.Value, 0, len(arr.Elements))
			err := visit(ctx, arr, args[1], func(_, res runtime.Value) {
				out = append(out, res)
			})
			if err != nil {
				return nil, err
			}
			return runtime.NewArray(out...), nil
		}),
		native("each", 2, func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok || !isCallable(argAt(args, 1)) {
				return runtime.Undefined, nil
			}
			if err := visit(ctx, arr, args[1], func(runtime.Value, runtime.Value) {}); err != nil {
				return nil, err
			}
			return runtime.Undefined, nil
		}),
		native("add", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok {
				return runtime.Undefined, nil
			}
			arr.Elements = append(arr.Elements, argAt(args, 1))
			return arr, nil
		}),
		native("pop", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok || len(arr.Elements) == 0 {
				return runtime.Undefined, nil
			}
			last := arr.Elements[len(arr.Elements)-1]
			arr.Elements = arr.Elements[:len(arr.Elements)-1]
			return last, nil
		}),
		native("cut", 3, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok {
				return runtime.NewArray(), nil
			}
			n := len(arr.Elements)
			start, end := 0, n
			if len(args) > 1 && !runtime.IsNullish(args[1]) {
				start = clampIndex(int(runtime.ToNumber(args[1])), n)
			}
			if len(args) > 2 && !runtime.IsNullish(args[2]) {
				end = clampIndex(int(runtime.ToNumber(args[2])), n)
			}
			if start >= end {
				return runtime.NewArray(), nil
			}
			return runtime.NewArray(append([]runtime.Value(nil), arr.Elements[start:end]...)...), nil
		}),
		native("join", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			arr, ok := arrayArg(args)
			if !ok {
				return runtime.String(""), nil
			}
			parts := make([]string, len(arr.Elements))
			for idx, el := range arr.Elements {
				parts[idx] = runtime.ToString(el)
			}
			return runtime.String(strings.Join(parts, stringAt(args, 1))), nil
		}),
	)
}

// clampIndex resolves a slice bound, counting negative values from the end.
func clampIndex(idx, n int) int {
	if idx < 0 {
		idx += n
	}
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

func (i *Interpreter) fsModule() *runtime.ObjectValue {
	return moduleObject(
		native("exists", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(i.fs.Exists(i.hostPath(stringAt(args, 0)))), nil
		}),
		native("read", 1, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			path := i.hostPath(stringAt(args, 0))
			data, err := i.fs.ReadFile(path)
			if err != nil {
				return nil, runtime.NewError(runtime.FSError, "'%s' was not found on the FileSystem", path)
			}
			return runtime.String(string(data)), nil
		}),
		native("write", 2, func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			path := i.hostPath(stringAt(args, 0))
			if err := i.fs.WriteFile(path, []byte(stringAt(args, 1))); err != nil {
				return nil, runtime.NewError(runtime.FSError, "Cannot write file '%s': %v", path, err)
			}
			return runtime.True, nil
		}),
	)
}
