package interpreter

import (
	"strings"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/runtime"
)

// maxReactiveDepth caps nested propagation so a cycle of reactive bindings
// fails with an error instead of exhausting the stack.
const maxReactiveDepth = 64

type declareOptions struct {
	constant bool
	export   bool
	// override replaces constants.
	override bool
	// quiet skips notifying subscribers; used when writing a dependent.
	quiet bool
}

// declare binds name in env. Rebinding an existing local name notifies its
// reactive subscribers unless opts.quiet is set.
func (i *Interpreter) declare(env *runtime.Environment, name string, value runtime.Value, opts declareOptions) (runtime.Value, error) {
	if opts.export && !env.IsTopLevel() {
		return nil, runtime.NewError(runtime.RuntimeError, "External Variable declarations must be at the top-level")
	}
	old, exists := env.Local(name)
	if exists && env.IsConstant(name) && !opts.override && name != ast.AnonymousName {
		if _, isFn := old.(*runtime.FunctionValue); !isFn {
			return nil, runtime.NewError(runtime.TypeError, "Assignment to constant variable '%s'", name)
		}
	}

	if opts.constant {
		env.DefineConst(name, value)
	} else {
		env.Define(name, value)
	}
	if opts.export {
		env.MarkExport(name)
	}
	if exists && !opts.quiet {
		if err := i.propagate(env, name); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// subscribe registers cb on every binding named in its action and returns
// the initial value of the reactive binding. When the bound expression is a
// function it is called with the watched values instead.
func (i *Interpreter) subscribe(cb *runtime.ReactiveCallback, value runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	cb.Watched = make([]string, 0, len(cb.Action.Args))
	for _, arg := range cb.Action.Args {
		holder := env.Resolve(arg.Name)
		if holder == nil {
			return nil, runtime.NewError(runtime.NameError, "%s is not defined", arg.Name)
		}
		holder.Subscribe(arg.Name, cb)
		cb.Watched = append(cb.Watched, arg.Name)
	}
	i.logger.Debug().
		Str("target", cb.Target).
		Strs("watching", cb.Watched).
		Msg("reactive binding registered")

	if fn, ok := value.(*runtime.FunctionValue); ok {
		return i.callReactive(fn, cb)
	}
	return value, nil
}

func (i *Interpreter) callReactive(fn *runtime.FunctionValue, cb *runtime.ReactiveCallback) (runtime.Value, error) {
	args := make([]runtime.Value, 0, len(cb.Watched))
	for _, name := range cb.Watched {
		val, err := cb.Env.Get(name)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return i.invokeFunction(fn, args, cb.Env)
}

// propagate re-evaluates every subscriber of the binding name held by env,
// in subscription order, and writes each result into its dependent.
// Dependents are written quietly, so propagation is one level deep.
func (i *Interpreter) propagate(env *runtime.Environment, name string) error {
	subs := env.Subscribers(name)
	if len(subs) == 0 {
		return nil
	}
	if i.reactiveDepth >= maxReactiveDepth {
		return runtime.NewError(runtime.RuntimeError, "Reactive propagation exceeded depth %d", maxReactiveDepth)
	}
	i.reactiveDepth++
	defer func() { i.reactiveDepth-- }()

	for _, cb := range subs {
		i.logger.Debug().
			Str("changed", name).
			Str("target", cb.Target).
			Msg("reactive propagation")
		if err := i.refresh(cb); err != nil {
			return runtime.Trace(err, cb.Target+": react<"+strings.Join(cb.Watched, ", ")+">")
		}
	}
	return nil
}

func (i *Interpreter) refresh(cb *runtime.ReactiveCallback) error {
	result, err := i.evaluateExpression(cb.Value, cb.Env)
	if err != nil {
		return err
	}
	if fn, ok := result.(*runtime.FunctionValue); ok {
		if result, err = i.callReactive(fn, cb); err != nil {
			return err
		}
	}

	switch {
	case cb.Object != nil:
		cb.Object.Set(cb.Key, result)
		return nil
	case cb.Member != nil:
		_, err := i.writeMember(cb.Member, result, cb.Env)
		return err
	}
	holder := cb.Env.Resolve(cb.Target)
	if holder == nil {
		holder = cb.Env
	}
	_, err = i.declare(holder, cb.Target, result, declareOptions{override: true, quiet: true})
	return err
}
