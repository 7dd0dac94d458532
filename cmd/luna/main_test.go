package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adrg/xdg"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/interpreter-go/pkg/driver"
)

func writeFile(t *testing.T, path, contents string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// setupCLI points the CLI at a settings file inside a temp dir and returns
// the core directory it names. The core directory is not created.
func setupCLI(t *testing.T, extraSettings string) string {
	t.Helper()
	dir := t.TempDir()
	core := filepath.Join(dir, "core")
	settings := writeFile(t, filepath.Join(dir, "settings.yml"),
		"core_dir: "+core+"\ncolor: never\n"+extraSettings)
	t.Setenv(driver.SettingsEnv, settings)
	t.Setenv(driver.CoreDirEnv, "")
	t.Setenv(logEnv, "")
	return core
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func mustDoctor(t *testing.T) {
	t.Helper()
	if code, _, stderr := runCLI(t, "", "doctor"); code != 0 {
		t.Fatalf("doctor exited %d: %s", code, stderr)
	}
}

func TestCheckBrackets(t *testing.T) {
	cases := []struct {
		code  string
		depth int
		bad   bool
	}{
		{code: "x = 1", depth: 0},
		{code: "fn f {", depth: 1},
		{code: "fn f {\n  [1, (2", depth: 3},
		{code: "{[()]}", depth: 0},
		{code: "s = '{'", depth: 0},
		{code: `s = "a }"`, depth: 0},
		{code: `s = "it's {"`, depth: 0},
		{code: "{ ]", bad: true},
		{code: "}", bad: true},
	}
	for _, tc := range cases {
		depth, err := checkBrackets(tc.code)
		if tc.bad {
			if err == nil || err.Error() != "SyntaxError: Unmatched bracket in REPL-Only" {
				t.Fatalf("checkBrackets(%q) expected unmatched bracket error, got %v", tc.code, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("checkBrackets(%q) unexpected error: %v", tc.code, err)
		}
		if depth != tc.depth {
			t.Fatalf("checkBrackets(%q) = %d, want %d", tc.code, depth, tc.depth)
		}
	}
}

func TestRunFileWithoutCoreDirectory(t *testing.T) {
	setupCLI(t, "")
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "main.ln"), "print('sum', 1 + 2, argv())\n")

	code, stdout, stderr := runCLI(t, "", file, "a", "b")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "sum 3 [\"a\", \"b\"]\n", stdout)
	assert.Contains(t, stderr, "Please run `luna doctor`")
}

func TestRunFileExitCodes(t *testing.T) {
	setupCLI(t, "")
	mustDoctor(t)
	dir := t.TempDir()

	exiting := writeFile(t, filepath.Join(dir, "exit.ln"), "print('before')\nexit(3)\nprint('after')\n")
	code, stdout, _ := runCLI(t, "", "run", exiting)
	assert.Equal(t, 3, code)
	assert.Equal(t, "before\n", stdout)

	failing := writeFile(t, filepath.Join(dir, "fail.ln"), "missing\n")
	code, _, stderr := runCLI(t, "", failing)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "NameError: missing is not defined")

	code, _, stderr = runCLI(t, "", filepath.Join(dir, "absent.ln"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "File not found")
}

func TestRunPipedStdin(t *testing.T) {
	setupCLI(t, "")
	mustDoctor(t)

	code, stdout, stderr := runCLI(t, "x = 4\nprint(x * 2)\n")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "8\n", stdout)
}

func TestDoctorCreatesLayout(t *testing.T) {
	core := setupCLI(t, "")

	code, stdout, stderr := runCLI(t, "", "doctor")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Making "+core)
	assert.Contains(t, stdout, "Everything Fixed ✅")

	layout := driver.CoreLayout{Root: core}
	assert.DirExists(t, layout.ModulesDir())
	assert.FileExists(t, layout.ConfigFile())

	code, stdout, _ = runCLI(t, "", "doctor")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Already Available: "+core)
	assert.Contains(t, stdout, "Everything fine ✅")

	code, stdout, _ = runCLI(t, "", "core")
	require.Equal(t, 0, code)
	assert.Equal(t, core+"\n", stdout)

	code, stdout, _ = runCLI(t, "", "config")
	require.Equal(t, 0, code)
	assert.Equal(t, layout.ConfigFile()+"\n", stdout)
}

func TestDoctorFetchWithoutRepository(t *testing.T) {
	setupCLI(t, "")
	code, _, stderr := runCLI(t, "", "doctor", "--fetch")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, driver.ErrNoRepository.Error())
}

func TestCoreAndConfigNeedDoctor(t *testing.T) {
	setupCLI(t, "")
	for _, command := range []string{"core", "config"} {
		code, _, stderr := runCLI(t, "", command)
		assert.Equal(t, 1, code, command)
		assert.Contains(t, stderr, "try running `luna doctor`", command)
	}
}

func TestConfigExportsAreBound(t *testing.T) {
	core := setupCLI(t, "")
	mustDoctor(t)
	layout := driver.CoreLayout{Root: core}
	writeFile(t, layout.ConfigFile(), "greeting: out = 'hey'\nconfig: out = { before_exit: lambda { print('bye') } }\n")

	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "main.ln"), "print(greeting, isdef config)\n")
	code, stdout, stderr := runCLI(t, "", file)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "hey false\n", stdout)
}

func TestReplSession(t *testing.T) {
	core := setupCLI(t, "history:\n  limit: 10\n")
	mustDoctor(t)
	layout := driver.CoreLayout{Root: core}
	writeFile(t, layout.ConfigFile(), "config: out = { before_exit: lambda { print('bye') } }\n")

	input := strings.Join([]string{
		"x = 2",
		"fn add a b {",
		"  a + b",
		"}",
		"add(x, 4)",
		"print('quiet')",
		")",
		"missing",
		"exit(0)",
		"print('unreachable')",
	}, "\n") + "\n"
	code, stdout, stderr := runCLI(t, input, "repl")
	require.Equal(t, 0, code, stderr)

	assert.True(t, strings.HasPrefix(stdout, welcome), stdout)
	assert.Contains(t, stdout, "  ... ")
	assert.Contains(t, stdout, ">> 6\n")
	assert.Contains(t, stdout, "quiet\n")
	assert.NotContains(t, stdout, "unreachable")
	assert.Contains(t, stdout, "bye\n\nExiting...\n")
	assert.Contains(t, stderr, "SyntaxError: Unmatched bracket in REPL-Only")
	assert.Contains(t, stderr, "NameError: missing is not defined")

	history, err := driver.OpenHistory(layout.HistoryFile(), 0)
	require.NoError(t, err)
	entries := history.Entries()
	assert.Contains(t, entries, "fn add a b {\n  a + b\n}")
	assert.Contains(t, entries, "add(x, 4)")
	assert.Equal(t, "exit(0)", entries[len(entries)-1])
}

func TestReplEndsOnEOF(t *testing.T) {
	setupCLI(t, "history: false\n")
	mustDoctor(t)

	code, stdout, stderr := runCLI(t, "'hi'\n", "repl")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, ">> \"hi\"\n")
	assert.True(t, strings.HasSuffix(stdout, "Exiting...\n"), stdout)
}

func TestCompileTargets(t *testing.T) {
	setupCLI(t, "")
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "main.ln"), "x   =  1 + 2\nprint( x )\n")

	code, stdout, stderr := runCLI(t, "", "compile", file, "--output", "-")
	require.Equal(t, 0, code, stderr)
	require.True(t, json.Valid([]byte(stdout)), stdout)
	var tree struct {
		Type string            `json:"type"`
		Body []json.RawMessage `json:"body"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &tree))
	assert.Equal(t, "Program", tree.Type)
	assert.Len(t, tree.Body, 2)

	code, stdout, stderr = runCLI(t, "", "compile", "--target", "luna", file)
	require.Equal(t, 0, code, stderr)
	out := filepath.Join(dir, "main.fmt.ln")
	assert.Equal(t, "Compiled output written to: "+out+"\n", stdout)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "x = 1 + 2\nprint(x)\n", string(data))

	code, _, stderr = runCLI(t, "", "compile", file, "--target", "wasm")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown target "wasm"`)

	code, _, stderr = runCLI(t, "", "compile")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Please provide a file to compile")
}

func TestBuildFlattensEmbeds(t *testing.T) {
	setupCLI(t, "")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "parts.ln"), "fn double x: x * 2\n")
	file := writeFile(t, filepath.Join(dir, "main.ln"), "embed \"parts\"\nprint(double(2))\n")
	out := filepath.Join(t.TempDir(), "app.ln")

	code, stdout, stderr := runCLI(t, "", "build", file, "--output", out)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "App built at: "+out+"\n", stdout)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fn double x: x * 2")

	code, stdout, stderr = runCLI(t, "", out)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "4\n", stdout)
}

func TestVersion(t *testing.T) {
	core := setupCLI(t, "")

	code, stdout, _ := runCLI(t, "", "version")
	require.Equal(t, 0, code)
	assert.Equal(t, "Version: 0.0.1\n", stdout)

	code, stdout, _ = runCLI(t, "", "version", "--check")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Core modules: not installed")

	layout := driver.CoreLayout{Root: core}
	writeLock := func(tag, version string) {
		data, err := json.Marshal(driver.ModulesLock{Repository: "file:///core", Tag: tag, Version: version})
		require.NoError(t, err)
		writeFile(t, layout.LockFile(), string(data))
	}
	writeLock("v0.0.4", "0.0.4")
	code, stdout, _ = runCLI(t, "", "version", "--check")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Core modules: v0.0.4 satisfies ~0.0")

	writeLock("v0.2.0", "0.2.0")
	code, stdout, _ = runCLI(t, "", "version", "--check")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Core modules: v0.2.0 does not satisfy ~0.0")
}

func TestLogLevelFlag(t *testing.T) {
	setupCLI(t, "")

	code, _, stderr := runCLI(t, "", "--log-level", "chatty", "version")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `--log-level: unknown log level "chatty"`)

	code, _, stderr = runCLI(t, "", "--log-level=debug", "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "settings resolved")

	t.Setenv(logEnv, "nope")
	code, _, stderr = runCLI(t, "", "version")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `LUNA_LOG: unknown log level "nope"`)
}

func TestConfigSettingsWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	t.Setenv(driver.SettingsEnv, "")
	t.Setenv(driver.CoreDirEnv, filepath.Join(dir, "core"))
	t.Setenv(logEnv, "")

	code, stdout, stderr := runCLI(t, "", "config", "--settings")
	require.Equal(t, 0, code, stderr)
	path := strings.TrimSpace(stdout)
	assert.Equal(t, filepath.Join(dir, "xdg", driver.SettingsRelPath), path)

	settings, err := driver.LoadSettings(path, "0.0.1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "core"), settings.CoreDir)
	assert.Equal(t, driver.DefaultHistoryLimit, settings.History.Limit)
}

func TestUnknownFlag(t *testing.T) {
	setupCLI(t, "")
	code, _, stderr := runCLI(t, "", "--bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown flag --bogus")
	assert.Contains(t, stderr, "Usage: luna")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatchReRunsOnChange(t *testing.T) {
	setupCLI(t, "")
	mustDoctor(t)
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "main.ln"), "print('first')\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"run", "--watch", file}, strings.NewReader(""), stdout, stderr)
	}()

	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "first\n") },
		5*time.Second, 20*time.Millisecond)
	// Give the watcher time to register the directory before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, file, "print('second')\n")
	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "second\n") },
		5*time.Second, 20*time.Millisecond, "stderr: %s", stderr.String())
	assert.Contains(t, stderr.String(), "change detected, re-running")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop after cancel")
	}
}
