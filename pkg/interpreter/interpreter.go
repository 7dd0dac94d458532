package interpreter

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/parser"
	"luna/interpreter-go/pkg/runtime"
)

// Version is the language version core modules are installed under.
const Version = "0.0.1"

// FileSystem is the storage the module loader and the `fs` native read from.
type FileSystem interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (osFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (osFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// Interpreter drives evaluation of Luna AST nodes.
type Interpreter struct {
	global        *runtime.Environment
	logger        zerolog.Logger
	stdout        io.Writer
	stderr        io.Writer
	stdin         *bufio.Reader
	fs            FileSystem
	currentDir    string
	coreDir       string
	args          []string
	started       time.Time
	reactiveDepth int
	profile       termenv.Profile
	loading       []string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger module resolution reports to.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interpreter) { i.logger = logger }
}

// WithStdout sets where print and puts write.
func WithStdout(w io.Writer) Option {
	return func(i *Interpreter) { i.stdout = w }
}

// WithStderr sets where errors caught by eval() are reported.
func WithStderr(w io.Writer) Option {
	return func(i *Interpreter) { i.stderr = w }
}

// WithStdin sets the stream input() reads from.
func WithStdin(r io.Reader) Option {
	return func(i *Interpreter) { i.stdin = bufio.NewReader(r) }
}

// WithFileSystem replaces the filesystem modules are read from.
func WithFileSystem(fs FileSystem) Option {
	return func(i *Interpreter) { i.fs = fs }
}

// WithCoreDir sets the directory `luna:` modules are loaded from.
func WithCoreDir(dir string) Option {
	return func(i *Interpreter) { i.coreDir = dir }
}

// WithArgs sets what argv() returns.
func WithArgs(args []string) Option {
	return func(i *Interpreter) { i.args = append([]string(nil), args...) }
}

// WithColorProfile sets the color profile Colorize renders with.
func WithColorProfile(profile termenv.Profile) Option {
	return func(i *Interpreter) { i.profile = profile }
}

// WithWorkingDir sets the directory relative module paths resolve against
// until a file is evaluated.
func WithWorkingDir(dir string) Option {
	return func(i *Interpreter) { i.currentDir = dir }
}

// New returns an interpreter whose global environment holds the native library.
func New(opts ...Option) *Interpreter {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	i := &Interpreter{
		logger:     zerolog.Nop(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		stdin:      bufio.NewReader(os.Stdin),
		fs:         osFileSystem{},
		currentDir: cwd,
		started:    time.Now(),
		profile:    termenv.Ascii,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.global = i.newRootEnvironment()
	return i
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment {
	return i.global
}

// CoreDir is the directory `luna:` modules resolve against.
func (i *Interpreter) CoreDir() string {
	return i.coreDir
}

func (i *Interpreter) newRootEnvironment() *runtime.Environment {
	env := runtime.NewEnvironment(nil)
	i.installNatives(env)
	return env
}

// Override binds name in the global environment, replacing constants.
func (i *Interpreter) Override(name string, value runtime.Value) {
	i.global.Define(name, value)
}

// EvaluateProgram executes program in the global environment and returns
// the value of its last statement.
func (i *Interpreter) EvaluateProgram(program *ast.Program) (runtime.Value, error) {
	return i.evaluateProgram(program, i.global)
}

// EvaluateSource parses and executes source in the global environment.
func (i *Interpreter) EvaluateSource(source string) (runtime.Value, error) {
	program, err := parser.ParseSource(source, parser.WithBaseDir(i.currentDir))
	if err != nil {
		return nil, err
	}
	return i.EvaluateProgram(program)
}

// EvaluateFile parses and executes the file at path. Relative module paths
// inside it resolve against the file's directory.
func (i *Interpreter) EvaluateFile(path string) (runtime.Value, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	program, err := parser.ParseFile(abs)
	if err != nil {
		return nil, err
	}
	restore := i.enterDir(filepath.Dir(abs))
	defer restore()
	return i.EvaluateProgram(program)
}

func (i *Interpreter) enterDir(dir string) func() {
	prev := i.currentDir
	i.currentDir = dir
	return func() { i.currentDir = prev }
}

// hostPath resolves a path given by a script against the current directory.
func (i *Interpreter) hostPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(i.currentDir, path)
}

func (i *Interpreter) evaluateProgram(program *ast.Program, env *runtime.Environment) (runtime.Value, error) {
	var last runtime.Value = runtime.Undefined
	for _, stmt := range program.Body {
		val, err := i.evaluateStatement(stmt, env)
		if err != nil {
			return nil, i.topLevelError(err)
		}
		if ret, ok := val.(runtime.ReturnValue); ok {
			return ret.Value, nil
		}
		last = val
	}
	return last, nil
}

// topLevelError turns loop signals that escaped every loop into the error a
// user sees.
func (i *Interpreter) topLevelError(err error) error {
	switch {
	case errors.As(err, new(breakSignal)):
		return runtime.NewError(runtime.SyntaxError, "Illegal break statement")
	case errors.As(err, new(continueSignal)):
		return runtime.NewError(runtime.SyntaxError, "Illegal continue statement")
	}
	return err
}

// evaluateBody runs stmts in env, stopping at the first return marker.
func (i *Interpreter) evaluateBody(stmts []ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	var result runtime.Value = runtime.Undefined
	for _, stmt := range stmts {
		val, err := i.evaluateStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		if _, ok := val.(runtime.ReturnValue); ok {
			return val, nil
		}
		result = val
	}
	return result, nil
}

type breakSignal struct{}

func (breakSignal) Error() string { return "break" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue" }
