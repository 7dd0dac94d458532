package interpreter

import (
	"errors"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateCall(call *ast.CallExpr, env *runtime.Environment) (runtime.Value, error) {
	callee, err := i.evaluateExpression(call.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	if !isCallable(callee) {
		return nil, runtime.NewError(runtime.RefError, "%s is not a function", describeTarget(call.Callee))
	}
	return i.CallFunction(callee, args, env)
}

func isCallable(v runtime.Value) bool {
	switch v.(type) {
	case *runtime.FunctionValue, runtime.NativeFunctionValue, runtime.BoundMethodValue:
		return true
	}
	return false
}

// CallFunction invokes a user function, native or bound capability with
// already evaluated arguments. env is the caller's scope; it is where
// parameter defaults are evaluated.
func (i *Interpreter) CallFunction(fn runtime.Value, args []runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	switch f := fn.(type) {
	case *runtime.FunctionValue:
		return i.invokeFunction(f, args, env)
	case runtime.NativeFunctionValue:
		return f.Impl(i.nativeContext(env), args)
	case runtime.BoundMethodValue:
		full := make([]runtime.Value, 0, len(args)+1)
		full = append(full, f.Receiver)
		full = append(full, args...)
		return f.Method.Impl(i.nativeContext(env), full)
	}
	return nil, runtime.NewError(runtime.RefError, "'%s' is not a function", runtime.ToString(fn))
}

func (i *Interpreter) nativeContext(env *runtime.Environment) *runtime.NativeCallContext {
	if env == nil {
		env = i.global
	}
	return &runtime.NativeCallContext{Env: env, Caller: i}
}

func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, args []runtime.Value, callerEnv *runtime.Environment) (runtime.Value, error) {
	decl := fn.Declaration
	if callerEnv == nil {
		callerEnv = fn.Closure
	}
	scope := runtime.NewScope(fn.Closure, runtime.ScopeFunction)
	if !decl.Anonymous() {
		scope.Define(decl.Name, fn)
	}
	for idx, param := range decl.Parameters {
		var val runtime.Value = runtime.Undefined
		switch {
		case idx < len(args):
			val = args[idx]
		case param.Default != nil:
			def, err := i.evaluateExpression(param.Default, callerEnv)
			if err != nil {
				return nil, err
			}
			val = def
		}
		scope.Define(param.Name, val)
	}

	result, err := i.evaluateBody(decl.Body, scope)
	if err != nil {
		switch {
		case errors.As(err, new(breakSignal)):
			return nil, runtime.NewError(runtime.SyntaxError, "Illegal break statement")
		case errors.As(err, new(continueSignal)):
			return nil, runtime.NewError(runtime.SyntaxError, "Illegal continue statement")
		}
		return nil, err
	}
	if ret, ok := result.(runtime.ReturnValue); ok {
		return ret.Value, nil
	}
	return result, nil
}
