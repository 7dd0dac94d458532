package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/runtime"
)

// evaluateStatement runs one statement. Every Luna statement is also an
// expression, so this only exists to keep the two entry points apart.
func (i *Interpreter) evaluateStatement(node ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case ast.Expression:
		return i.evaluateExpression(n, env)
	default:
		return nil, runtime.NewError(runtime.UnsupportedError, "unsupported statement type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateIfStatement(stmt *ast.IfStatement, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateExpression(stmt.Test, env)
	if err != nil {
		return nil, err
	}
	if runtime.Truthy(cond) {
		return i.evaluateBody(stmt.Consequent, runtime.NewScope(env, runtime.ScopeIf))
	}
	if stmt.ElseIf != nil {
		return i.evaluateIfStatement(stmt.ElseIf, env)
	}
	if stmt.Alternate != nil {
		return i.evaluateBody(stmt.Alternate, runtime.NewScope(env, runtime.ScopeIf))
	}
	return runtime.Void, nil
}

// loopControl reports whether err ends the loop (break) or only the current
// iteration (continue). Any other error is returned as is.
func loopControl(err error) (stop bool, rest error) {
	switch {
	case errors.As(err, new(breakSignal)):
		return true, nil
	case errors.As(err, new(continueSignal)):
		return false, nil
	}
	return true, err
}

func (i *Interpreter) evaluateWhileStatement(loop *ast.WhileStatement, env *runtime.Environment) (runtime.Value, error) {
	for {
		cond, err := i.evaluateExpression(loop.Test, env)
		if err != nil {
			return nil, err
		}
		if !runtime.Truthy(cond) {
			return runtime.Undefined, nil
		}
		val, err := i.evaluateBody(loop.Body, env)
		if err != nil {
			stop, rest := loopControl(err)
			if rest != nil {
				return nil, rest
			}
			if stop {
				return runtime.Undefined, nil
			}
			continue
		}
		if _, ok := val.(runtime.ReturnValue); ok {
			return val, nil
		}
	}
}

func (i *Interpreter) evaluateForStatement(loop *ast.ForStatement, env *runtime.Environment) (runtime.Value, error) {
	if loop.Init != nil {
		if _, err := i.evaluateExpression(loop.Init, env); err != nil {
			return nil, err
		}
	}
	scope := runtime.NewScope(env, runtime.ScopeFor)
	for {
		if loop.Test != nil {
			cond, err := i.evaluateExpression(loop.Test, scope)
			if err != nil {
				return nil, err
			}
			if !runtime.Truthy(cond) {
				return runtime.Undefined, nil
			}
		}
		val, err := i.evaluateBody(loop.Body, scope)
		if err != nil {
			stop, rest := loopControl(err)
			if rest != nil {
				return nil, rest
			}
			if stop {
				return runtime.Undefined, nil
			}
		} else if _, ok := val.(runtime.ReturnValue); ok {
			return val, nil
		}
		if loop.Update != nil {
			if _, err := i.evaluateExpression(loop.Update, scope); err != nil {
				return nil, err
			}
		}
	}
}

func (i *Interpreter) evaluateReturn(stmt *ast.ReturnExpr, env *runtime.Environment) (runtime.Value, error) {
	if !env.InFunction() {
		return nil, runtime.NewError(runtime.SyntaxError, "Illegal return statement")
	}
	var result runtime.Value = runtime.Undefined
	if stmt.Value != nil {
		val, err := i.evaluateExpression(stmt.Value, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return runtime.ReturnValue{Value: result}, nil
}

// evaluateDebugStatement prints each expression next to its colorized value.
func (i *Interpreter) evaluateDebugStatement(stmt *ast.DebugStatement, env *runtime.Environment) (runtime.Value, error) {
	lines := make([]string, 0, len(stmt.Props))
	for _, prop := range stmt.Props {
		val, err := i.evaluateExpression(prop, env)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("%s: %s", ast.Stringify(prop), i.Colorize(val)))
	}
	if len(lines) > 0 {
		fmt.Fprintln(i.stdout, strings.Join(lines, "\n"))
	}
	return runtime.Void, nil
}
