package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	json "github.com/goccy/go-json"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"luna/interpreter-go/pkg/ast"
	"luna/interpreter-go/pkg/driver"
	"luna/interpreter-go/pkg/interpreter"
	"luna/interpreter-go/pkg/parser"
	"luna/interpreter-go/pkg/runtime"
)

const cliName = "luna"

// logEnv overrides the log level from settings.yml.
const logEnv = "LUNA_LOG"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cli carries what every command needs: the streams, the resolved settings
// and the logger built from them.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	settings *driver.Settings
	layout   driver.CoreLayout
	logger   zerolog.Logger
	profile  termenv.Profile
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	args, levelFlag, err := splitGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	settings, err := driver.ResolveSettings(interpreter.Version)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load settings: %v\n", err)
		return 1
	}
	logger, err := newLogger(stderr, levelFlag, settings)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	c := &cli{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		settings: settings,
		layout:   driver.CoreLayout{Root: settings.CoreDir},
		logger:   logger,
		profile:  colorProfile(settings.Color, stdout),
	}
	logger.Debug().Str("settings", settings.Path).Str("core", settings.CoreDir).Msg("settings resolved")

	if len(args) == 0 {
		if isTerminal(stdin) {
			return c.repl(nil)
		}
		return c.runStdin()
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "version", "--version", "-V":
		return c.version(args[1:])
	case "doctor":
		return c.doctor(ctx, args[1:])
	case "core":
		return c.core()
	case "config":
		return c.config(args[1:])
	case "compile":
		return c.compile(args[1:])
	case "build":
		return c.build(args[1:])
	case "repl":
		return c.repl(args[1:])
	case "run":
		return c.runCommand(ctx, args[1:])
	default:
		if strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(stderr, "unknown flag %s\n", args[0])
			printUsage(stderr)
			return 2
		}
		return c.runFile(args[0], args[1:])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [--log-level level] [command] [file] [options]\n", cliName)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  <file> [args...]                   run a Luna file")
	fmt.Fprintln(w, "  run [--watch] <file> [args...]     run a Luna file, optionally re-running on change")
	fmt.Fprintln(w, "  repl                               start the interactive shell")
	fmt.Fprintln(w, "  compile <file> [--target json|luna] [--output path]")
	fmt.Fprintln(w, "  build <file> [--output path]       flatten embeds into one source file")
	fmt.Fprintln(w, "  doctor [--fetch]                   create the core directory, optionally fetch core modules")
	fmt.Fprintln(w, "  core                               print the core directory")
	fmt.Fprintln(w, "  config [--settings]                print the config.lnx (or settings.yml) path")
	fmt.Fprintln(w, "  version [--check]                  print the version, optionally check core modules")
	fmt.Fprintln(w, "  help                               show this message")
}

// splitGlobalFlags removes leading --log-level flags from args.
func splitGlobalFlags(args []string) ([]string, string, error) {
	level := ""
	for len(args) > 0 {
		arg := args[0]
		switch {
		case arg == "--log-level":
			if len(args) < 2 {
				return nil, "", errors.New("--log-level requires a value")
			}
			level = args[1]
			args = args[2:]
		case strings.HasPrefix(arg, "--log-level="):
			level = strings.TrimPrefix(arg, "--log-level=")
			args = args[1:]
		default:
			return args, level, nil
		}
	}
	return args, level, nil
}

// newLogger builds the stderr console logger. The level comes from the flag,
// then LUNA_LOG, then settings.yml.
func newLogger(w io.Writer, flagLevel string, settings *driver.Settings) (zerolog.Logger, error) {
	level := settings.LogLevel
	for _, candidate := range []struct{ source, value string }{
		{logEnv, os.Getenv(logEnv)},
		{"--log-level", flagLevel},
	} {
		if candidate.value == "" {
			continue
		}
		parsed, err := zerolog.ParseLevel(strings.ToLower(candidate.value))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("%s: unknown log level %q", candidate.source, candidate.value)
		}
		level = parsed
	}
	writer := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.NoColor = settings.Color != driver.ColorAlways
		cw.TimeFormat = "15:04:05"
	})
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

func colorProfile(mode driver.ColorMode, w io.Writer) termenv.Profile {
	switch mode {
	case driver.ColorNever:
		return termenv.Ascii
	case driver.ColorAlways:
		return termenv.ANSI256
	}
	return termenv.NewOutput(w).EnvColorProfile()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newInterpreter builds an interpreter wired to the CLI streams with the
// exports of config.lnx bound globally. It returns the before_exit hook when
// the config object carries one.
func (c *cli) newInterpreter(scriptArgs []string) (*interpreter.Interpreter, runtime.Value) {
	interp := interpreter.New(
		interpreter.WithStdout(c.stdout),
		interpreter.WithStderr(c.stderr),
		interpreter.WithStdin(c.stdin),
		interpreter.WithLogger(c.logger),
		interpreter.WithCoreDir(c.layout.Root),
		interpreter.WithArgs(scriptArgs),
		interpreter.WithColorProfile(c.profile),
	)
	if !c.layout.Exists() {
		fmt.Fprintf(c.stderr, "Base Directory %s doesn't exist. Please run `%s doctor`\n", c.layout.Root, cliName)
		return interp, nil
	}
	path, created, err := c.layout.EnsureConfig()
	if err != nil {
		c.logger.Warn().Err(err).Msg("config.lnx unavailable")
		return interp, nil
	}
	if created {
		c.logger.Info().Str("path", path).Msg("created config.lnx")
	}
	exports, err := interp.LoadExports(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "config.lnx: %v\n", err)
		return interp, nil
	}
	var beforeExit runtime.Value
	if config, ok := exports["config"].(*runtime.ObjectValue); ok {
		if hook, ok := config.Get("before_exit"); ok {
			beforeExit = hook
		}
	}
	delete(exports, "config")
	for name, value := range exports {
		interp.Override(name, value)
	}
	return interp, beforeExit
}

// exitCode reports err on stderr and maps it to a process exit code.
func (c *cli) exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *runtime.ExitRequest
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintln(c.stderr, err)
	return 1
}

func (c *cli) runFile(path string, scriptArgs []string) int {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		fmt.Fprintf(c.stderr, "File not found: %s\n", path)
		return 1
	}
	interp, _ := c.newInterpreter(scriptArgs)
	_, err = interp.EvaluateFile(path)
	return c.exitCode(err)
}

// runStdin executes piped standard input as one program.
func (c *cli) runStdin() int {
	source, err := io.ReadAll(c.stdin)
	if err != nil {
		fmt.Fprintf(c.stderr, "read stdin: %v\n", err)
		return 1
	}
	interp, _ := c.newInterpreter(nil)
	_, err = interp.EvaluateSource(string(source))
	return c.exitCode(err)
}

func (c *cli) runCommand(ctx context.Context, args []string) int {
	fs := c.flagSet("run")
	watch := fs.Bool("watch", false, "re-run the file whenever a Luna file next to it changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(c.stderr, "Please provide a file to run")
		return 2
	}
	file, scriptArgs := fs.Arg(0), fs.Args()[1:]
	if *watch {
		return c.watch(ctx, file, scriptArgs)
	}
	return c.runFile(file, scriptArgs)
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(cliName+" "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// parseFileCommand accepts the file either before or after the flags.
func parseFileCommand(fs *flag.FlagSet, args []string) (string, error) {
	file := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		file, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if file == "" {
		file = fs.Arg(0)
	}
	return file, nil
}

func (c *cli) compile(args []string) int {
	fs := c.flagSet("compile")
	target := fs.String("target", "json", "output format: json (AST) or luna (canonical source)")
	output := fs.String("output", "", "output path, - for stdout")
	file, err := parseFileCommand(fs, args)
	if err != nil {
		return 2
	}
	if file == "" {
		fmt.Fprintln(c.stderr, "Please provide a file to compile")
		return 2
	}
	program, err := parser.ParseFile(file)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	var data []byte
	var ext string
	switch *target {
	case "json":
		data, err = json.MarshalIndent(program, "", "  ")
		if err != nil {
			fmt.Fprintf(c.stderr, "encode AST: %v\n", err)
			return 1
		}
		data = append(data, '\n')
		ext = ".json"
	case "luna":
		data = []byte(ast.Stringify(program) + "\n")
		ext = ".fmt.ln"
	default:
		fmt.Fprintf(c.stderr, "unknown target %q (want json or luna)\n", *target)
		return 2
	}
	return c.emit(data, *output, replaceExt(file, ext), "Compiled output written to")
}

// build writes the file with every embed spliced in as one source file.
func (c *cli) build(args []string) int {
	fs := c.flagSet("build")
	output := fs.String("output", "", "output path, - for stdout")
	file, err := parseFileCommand(fs, args)
	if err != nil {
		return 2
	}
	if file == "" {
		fmt.Fprintln(c.stderr, "Please provide a file to build")
		return 2
	}
	program, err := parser.ParseFile(file)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	data := []byte(ast.Stringify(program) + "\n")
	return c.emit(data, *output, replaceExt(file, ".build.ln"), "App built at")
}

func (c *cli) emit(data []byte, output, fallback, message string) int {
	if output == "-" {
		if _, err := c.stdout.Write(data); err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		return 0
	}
	if output == "" {
		output = fallback
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		fmt.Fprintf(c.stderr, "write %s: %v\n", output, err)
		return 1
	}
	fmt.Fprintf(c.stdout, "%s: %s\n", message, output)
	return 0
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func (c *cli) doctor(ctx context.Context, args []string) int {
	fs := c.flagSet("doctor")
	fetch := fs.Bool("fetch", false, "clone the core modules repository into the modules directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	layout, created, err := driver.EnsureCoreLayout(c.layout.Root, c.logger)
	if err != nil {
		fmt.Fprintf(c.stderr, "doctor: %v\n", err)
		return 1
	}
	if created {
		fmt.Fprintf(c.stdout, "Making %s\n", layout.Root)
	} else {
		fmt.Fprintf(c.stdout, "Already Available: %s\n", layout.Root)
	}
	configPath, configCreated, err := layout.EnsureConfig()
	if err != nil {
		fmt.Fprintf(c.stderr, "doctor: %v\n", err)
		return 1
	}
	if configCreated {
		fmt.Fprintf(c.stdout, "Making %s\n", configPath)
	}
	if *fetch {
		lock, err := driver.FetchCoreModules(ctx, driver.FetchOptions{
			Repository: c.settings.Modules.Repository,
			Constraint: c.settings.Modules.Constraint,
			Layout:     layout,
			Logger:     c.logger,
		})
		if err != nil {
			fmt.Fprintf(c.stderr, "doctor: %v\n", err)
			return 1
		}
		fmt.Fprintf(c.stdout, "Installed %d core modules from %s at %s\n", len(lock.Files), lock.Repository, lock.Tag)
	}
	if created || configCreated {
		fmt.Fprintln(c.stdout, "Everything Fixed ✅")
	} else {
		fmt.Fprintln(c.stdout, "Everything fine ✅")
	}
	return 0
}

func (c *cli) core() int {
	if !c.layout.Exists() {
		fmt.Fprintf(c.stderr, "Error Opening '%s', try running `%s doctor`\n", c.layout.Root, cliName)
		return 1
	}
	fmt.Fprintln(c.stdout, c.layout.Root)
	return 0
}

func (c *cli) config(args []string) int {
	fs := c.flagSet("config")
	settingsFlag := fs.Bool("settings", false, "print settings.yml instead, writing it with the current values when missing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *settingsFlag {
		return c.settingsFile()
	}
	if !c.layout.Exists() {
		fmt.Fprintf(c.stderr, "Error Opening '%s', try running `%s doctor`\n", c.layout.Root, cliName)
		return 1
	}
	path, _, err := c.layout.EnsureConfig()
	if err != nil {
		fmt.Fprintf(c.stderr, "config: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, path)
	return 0
}

func (c *cli) settingsFile() int {
	path := c.settings.Path
	if path == "" {
		var err error
		path, err = driver.SettingsFilePath()
		if err != nil {
			fmt.Fprintf(c.stderr, "config: %v\n", err)
			return 1
		}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		data, err := c.settings.Marshal()
		if err != nil {
			fmt.Fprintf(c.stderr, "config: %v\n", err)
			return 1
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(c.stderr, "config: %v\n", err)
			return 1
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(c.stderr, "config: %v\n", err)
			return 1
		}
		c.logger.Info().Str("path", path).Msg("wrote settings")
	}
	fmt.Fprintln(c.stdout, path)
	return 0
}

func (c *cli) version(args []string) int {
	fs := c.flagSet("version")
	check := fs.Bool("check", false, "check the installed core modules against modules.constraint")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	fmt.Fprintf(c.stdout, "Version: %s\n", interpreter.Version)
	if !*check {
		return 0
	}
	lock, err := c.layout.ReadModulesLock()
	if err != nil {
		fmt.Fprintf(c.stderr, "version: %v\n", err)
		return 1
	}
	if lock == nil {
		fmt.Fprintf(c.stdout, "Core modules: not installed, run `%s doctor --fetch`\n", cliName)
		return 1
	}
	constraint, err := c.settings.ModulesConstraint()
	if err != nil {
		fmt.Fprintf(c.stderr, "version: %v\n", err)
		return 1
	}
	installed, err := semver.NewVersion(lock.Version)
	if err != nil {
		fmt.Fprintf(c.stderr, "version: modules lock: %v\n", err)
		return 1
	}
	if !constraint.Check(installed) {
		fmt.Fprintf(c.stdout, "Core modules: %s does not satisfy %s\n", lock.Tag, constraint)
		return 1
	}
	fmt.Fprintf(c.stdout, "Core modules: %s satisfies %s\n", lock.Tag, constraint)
	return 0
}
