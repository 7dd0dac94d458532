package interpreter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"luna/interpreter-go/pkg/runtime"
)

func writeModule(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func moduleInterpreter(t *testing.T, dir string, opts ...Option) (*Interpreter, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	base := []Option{WithStdout(&out), WithStderr(&out), WithWorkingDir(dir)}
	return New(append(base, opts...)...), &out
}

func TestUseNamedImports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib.ln", "out fn double x: x * 2\nbase: out = 10\nhidden = 1\n")

	interp, _ := moduleInterpreter(t, dir)
	expectNumber(t, mustEval(t, interp, "use (double, base as b) from \"lib\"\ndouble(b)"), 20)
	if _, ok := interp.GlobalEnvironment().Local("base"); ok {
		t.Fatalf("aliased import should not bind its original name")
	}
	if _, ok := interp.GlobalEnvironment().Local("hidden"); ok {
		t.Fatalf("module locals must stay inside the module")
	}
}

func TestUseNamespaceImport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib.lnx", "out fn double x: x * 2\nsecret = 3\n")

	interp, _ := moduleInterpreter(t, dir)
	expectNumber(t, mustEval(t, interp, "use \"lib\" as m\nm.double(4)"), 8)
	expectBool(t, mustEval(t, interp, "isdef m.secret"), false)
	expectString(t, mustEval(t, interp, "typeof m"), "object")
}

func TestUseMissingExport(t *testing.T) {
	dir := t.TempDir()
	lib := writeModule(t, dir, "lib.ln", "hidden = 1\n")

	interp, _ := moduleInterpreter(t, dir)
	_, err := interp.EvaluateSource("use (hidden) from \"lib\"")
	var rtErr *runtime.Error
	require.True(t, errors.As(err, &rtErr), "expected runtime error, got %v", err)
	require.Equal(t, runtime.ModuleError, rtErr.Kind)
	require.Equal(t, "'hidden' is not exported by the module 'lib'", rtErr.Message)
	require.Equal(t, []string{lib}, rtErr.Trace)
}

func TestUseMissingFile(t *testing.T) {
	dir := t.TempDir()
	interp, _ := moduleInterpreter(t, dir)
	_, err := interp.EvaluateSource("use (x) from \"nope\"")
	if !runtime.IsKind(err, runtime.FSError) {
		t.Fatalf("expected FSError, got %v", err)
	}
	want := "Cannot find file nope.ln inside '" + filepath.Join(dir, "nope.ln") + "'"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected %q in %v", want, err)
	}
}

func TestModuleErrorsCarryTrace(t *testing.T) {
	dir := t.TempDir()
	inner := writeModule(t, dir, "inner.ln", "out fn boom: missing\nboom()\n")
	outer := writeModule(t, dir, "outer.ln", "use (boom) from \"inner\"\n")

	interp, _ := moduleInterpreter(t, dir)
	_, err := interp.EvaluateSource("use \"outer\" as o")
	var rtErr *runtime.Error
	require.ErrorAs(t, err, &rtErr)
	require.Equal(t, runtime.NameError, rtErr.Kind)
	require.Equal(t, []string{inner, outer}, rtErr.Trace)
	require.Contains(t, err.Error(), "\n  at → "+inner)
}

func TestModulesResolveRelativeToTheirOwnDirectory(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "pkg/util.ln", "out fn inc x: x + 1\n")
	writeModule(t, dir, "pkg/mod.ln", "use (inc) from \"util\"\nout fn twice x: inc(inc(x))\n")

	interp, _ := moduleInterpreter(t, dir)
	expectNumber(t, mustEval(t, interp, "use (twice) from \"pkg/mod\"\ntwice(1)"), 3)
}

func TestTapRunsInIsolation(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "side.ln", "print('side', isdef callerVar)\nsecret = 1\n")

	interp, out := moduleInterpreter(t, dir)
	val := mustEval(t, interp, "callerVar = 1\ntap \"side\"")
	if val != runtime.Void {
		t.Fatalf("tap should yield void, got %#v", val)
	}
	expectBool(t, mustEval(t, interp, "isdef secret"), false)
	if out.String() != "side false\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	_, err := interp.EvaluateSource("tap \"absent\"")
	if !runtime.IsKind(err, runtime.FSError) || !strings.Contains(err.Error(), "was not found on the FileSystem") {
		t.Fatalf("expected FSError, got %v", err)
	}
}

func TestCoreModules(t *testing.T) {
	dir := t.TempDir()
	core := t.TempDir()
	writeModule(t, core, "modules/strings.lnx", "out fn shout s: s + '!'\n")

	interp, _ := moduleInterpreter(t, dir, WithCoreDir(core))
	expectString(t, mustEval(t, interp, "use (shout) from \"luna:strings\"\nshout('hi')"), "hi!")

	_, err := interp.EvaluateSource("use (x) from \"luna:absent\"")
	if !runtime.IsKind(err, runtime.FSError) {
		t.Fatalf("expected FSError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cannot find module 'absent.lnx'") {
		t.Fatalf("unexpected message %v", err)
	}

	_, err = interp.EvaluateSource("use (y) from \"luna:strings\"")
	if !strings.Contains(err.Error(), "'y' is not exported by the module 'strings'") {
		t.Fatalf("core module name should be shown without prefix: %v", err)
	}
}

func TestCircularImportsFail(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a.ln", "use (b) from \"b\"\nout fn a: 1\n")
	writeModule(t, dir, "b.ln", "use (a) from \"a\"\nout fn b: 2\n")

	interp, _ := moduleInterpreter(t, dir)
	_, err := interp.EvaluateSource("use (a) from \"a\"")
	if !runtime.IsKind(err, runtime.ModuleError) {
		t.Fatalf("expected ModuleError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Circular module import") {
		t.Fatalf("unexpected message %v", err)
	}
}

func TestEmbedEvaluatesInPlace(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "parts.ln", "shared = 5\n")

	interp, _ := moduleInterpreter(t, dir)
	expectNumber(t, mustEval(t, interp, "embed \"parts\"\nshared * 2"), 10)
}

func TestLoadExports(t *testing.T) {
	dir := t.TempDir()
	file := writeModule(t, dir, "config.lnx", "greeting: out = 'hi'\nconfig: out = { name: 'luna' }\nlocal = 1\n")

	interp, _ := moduleInterpreter(t, dir)
	exports, err := interp.LoadExports(file)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	expectString(t, exports["greeting"], "hi")
	config, ok := exports["config"].(*runtime.ObjectValue)
	require.True(t, ok, "config should be an object, got %T", exports["config"])
	name, _ := config.Get("name")
	expectString(t, name, "luna")
	if _, ok := interp.GlobalEnvironment().Local("local"); ok {
		t.Fatalf("LoadExports must not touch the global environment")
	}

	_, err = interp.LoadExports(filepath.Join(dir, "absent.lnx"))
	require.Error(t, err)
	if !runtime.IsKind(err, runtime.FSError) {
		t.Fatalf("expected FSError, got %v", err)
	}
}
