package interpreter

import (
	"path/filepath"
	"strings"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/parser"
	"luna/interpreter-go/pkg/runtime"
)

// corePrefix marks a module path that names an installed core module.
const corePrefix = "luna:"

// resolveModule maps a `use` path to the file that provides it.
func (i *Interpreter) resolveModule(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", runtime.NewError(runtime.ModuleError, "Module path cannot be empty")
	}
	if strings.HasPrefix(path, corePrefix) {
		module := strings.TrimPrefix(path, corePrefix) + ".lnx"
		file := filepath.Join(i.coreDir, "modules", module)
		i.logger.Debug().Str("module", module).Str("file", file).Msg("core module lookup")
		if i.coreDir == "" || !i.fs.Exists(file) {
			return "", runtime.NewError(runtime.FSError,
				"Cannot find module '%s', please install the latest modules for version='%s', or use the 'luna install <module>' command to install the latest modules.",
				module, Version)
		}
		return file, nil
	}
	file := parser.ResolveModulePath(i.currentDir, path)
	if !i.fs.Exists(file) {
		return "", runtime.NewError(runtime.FSError, "Cannot find file %s inside '%s'", filepath.Base(file), file)
	}
	return file, nil
}

// runModule parses file and evaluates it in env with the current directory
// switched to the file's directory.
func (i *Interpreter) runModule(file string, env *runtime.Environment) error {
	for _, active := range i.loading {
		if active == file {
			chain := append(append([]string(nil), i.loading...), file)
			return runtime.NewError(runtime.ModuleError, "Circular module import: %s", strings.Join(chain, " → "))
		}
	}
	data, err := i.fs.ReadFile(file)
	if err != nil {
		return runtime.NewError(runtime.FSError, "Cannot read file '%s': %v", file, err)
	}
	dir := filepath.Dir(file)
	program, err := parser.ParseSource(string(data), parser.WithFile(file), parser.WithBaseDir(dir))
	if err != nil {
		return runtime.Trace(err, file)
	}

	i.loading = append(i.loading, file)
	restore := i.enterDir(dir)
	defer func() {
		restore()
		i.loading = i.loading[:len(i.loading)-1]
	}()
	if _, err := i.evaluateProgram(program, env); err != nil {
		return runtime.Trace(err, file)
	}
	return nil
}

func (i *Interpreter) evaluateUseStatement(stmt *ast.UseStatement, env *runtime.Environment) (runtime.Value, error) {
	file, err := i.resolveModule(stmt.Path)
	if err != nil {
		return nil, err
	}
	module := runtime.NewScope(i.global, runtime.ScopeModule)
	if err := i.runModule(file, module); err != nil {
		return nil, err
	}
	exports := module.Exports()
	i.logger.Debug().
		Str("path", stmt.Path).
		Str("file", file).
		Int("exports", len(exports)).
		Msg("module loaded")

	if stmt.Namespace != "" {
		ns := runtime.NewObject()
		for _, name := range exports {
			val, _ := module.Local(name)
			ns.Set(name, val)
		}
		if _, err := i.declare(env, stmt.Namespace, ns, declareOptions{override: true}); err != nil {
			return nil, err
		}
		return runtime.Void, nil
	}

	display := strings.TrimPrefix(stmt.Path, corePrefix)
	for _, spec := range stmt.Imports {
		val, ok := module.Local(spec.Name)
		if !ok || !module.IsExported(spec.Name) {
			err := runtime.NewError(runtime.ModuleError, "'%s' is not exported by the module '%s'", spec.Name, display)
			return nil, runtime.Trace(err, file)
		}
		if _, err := i.declare(env, spec.LocalName(), val, declareOptions{override: true}); err != nil {
			return nil, err
		}
	}
	return runtime.Void, nil
}

// evaluateTapStatement runs a file for its side effects in a fresh global
// context that shares nothing with the caller.
func (i *Interpreter) evaluateTapStatement(stmt *ast.TapStatement, env *runtime.Environment) (runtime.Value, error) {
	file := parser.ResolveModulePath(i.currentDir, stmt.Path)
	if !i.fs.Exists(file) {
		return nil, runtime.NewError(runtime.FSError, "'%s' was not found on the FileSystem", file)
	}
	i.logger.Debug().Str("path", stmt.Path).Str("file", file).Msg("tap")
	if err := i.runModule(file, i.newRootEnvironment()); err != nil {
		return nil, err
	}
	return runtime.Void, nil
}

// LoadExports evaluates file in a fresh global context and returns the
// bindings it marks with `out`, keyed by name.
func (i *Interpreter) LoadExports(file string) (map[string]runtime.Value, error) {
	if !i.fs.Exists(file) {
		return nil, runtime.NewError(runtime.FSError, "'%s' was not found on the FileSystem", file)
	}
	env := i.newRootEnvironment()
	if err := i.runModule(file, env); err != nil {
		return nil, err
	}
	exports := make(map[string]runtime.Value)
	for _, name := range env.Exports() {
		if val, ok := env.Local(name); ok {
			exports[name] = val
		}
	}
	return exports, nil
}
