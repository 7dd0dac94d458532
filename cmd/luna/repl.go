package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"luna/interpreter-go/pkg/driver"
	"luna/interpreter-go/pkg/interpreter"
	"luna/interpreter-go/pkg/lexer"
	"luna/interpreter-go/pkg/runtime"
)

const (
	promptMain = ">> "
	promptCont = "... "
	welcome    = "Welcome to the Luna REPL!\nType exit() to leave..."
)

var errUnmatchedBracket = runtime.NewError(runtime.SyntaxError, "Unmatched bracket in REPL-Only")

// lineReader is the line source of the REPL. io.EOF ends the session and
// liner.ErrPromptAborted discards the pending input.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

type linerReader struct {
	state *liner.State
}

func newLinerReader(history []string, complete func(string) []string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(complete)
	for _, line := range history {
		state.AppendHistory(line)
	}
	return &linerReader{state: state}
}

func (r *linerReader) Prompt(prompt string) (string, error) { return r.state.Prompt(prompt) }
func (r *linerReader) AppendHistory(line string)            { r.state.AppendHistory(line) }
func (r *linerReader) Close() error                         { return r.state.Close() }

// plainReader reads lines from a non-terminal stream, echoing prompts to out.
type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPlainReader(in io.Reader, out io.Writer) *plainReader {
	return &plainReader{scanner: bufio.NewScanner(in), out: out}
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (*plainReader) AppendHistory(string) {}
func (*plainReader) Close() error         { return nil }

// checkBrackets returns how many brackets remain open in code, ignoring
// brackets inside quoted strings. It fails when a closer does not match the
// innermost opener.
func checkBrackets(code string) (int, error) {
	pairs := map[rune]rune{'}': '{', ')': '(', ']': '['}
	var stack []rune
	var quote rune
	for _, ch := range code {
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '{', '(', '[':
			stack = append(stack, ch)
		case '}', ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return 0, errUnmatchedBracket
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack), nil
}

type replSession struct {
	cli        *cli
	interp     *interpreter.Interpreter
	beforeExit runtime.Value
	history    *driver.HistoryStore
	reader     lineReader
}

func (c *cli) repl(args []string) int {
	fs := c.flagSet("repl")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	interp, beforeExit := c.newInterpreter(nil)
	session := &replSession{cli: c, interp: interp, beforeExit: beforeExit}

	var past []string
	if c.settings.History.Enabled && c.layout.Exists() {
		store, err := driver.OpenHistory(c.layout.HistoryFile(), c.settings.History.Limit)
		if err != nil {
			c.logger.Warn().Err(err).Msg("history disabled")
		} else {
			session.history = store
			past = store.Entries()
		}
	}
	if isTerminal(c.stdin) {
		session.reader = newLinerReader(past, session.complete)
	} else {
		session.reader = newPlainReader(c.stdin, c.stdout)
	}
	defer session.reader.Close()

	fmt.Fprintln(c.stdout, welcome)
	return session.loop()
}

func (s *replSession) loop() int {
	var pending []string
	depth := 0
	for {
		prompt := promptMain
		if len(pending) > 0 {
			prompt = strings.Repeat("  ", depth) + promptCont
		}
		line, err := s.reader.Prompt(prompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			if len(pending) == 0 {
				return s.exit(0)
			}
			pending, depth = nil, 0
			continue
		case errors.Is(err, io.EOF):
			return s.exit(0)
		case err != nil:
			fmt.Fprintf(s.cli.stderr, "read input: %v\n", err)
			return s.exit(1)
		}

		pending = append(pending, line)
		code := strings.Join(pending, "\n")
		depth, err = checkBrackets(code)
		if err != nil {
			fmt.Fprintln(s.cli.stderr, err)
			pending, depth = nil, 0
			continue
		}
		if depth > 0 {
			continue
		}
		pending = nil
		if strings.TrimSpace(code) == "" {
			continue
		}
		s.remember(code)

		result, err := s.interp.EvaluateSource(code)
		if err != nil {
			var exit *runtime.ExitRequest
			if errors.As(err, &exit) {
				return s.exit(exit.Code)
			}
			fmt.Fprintln(s.cli.stderr, err)
			continue
		}
		if _, isVoid := result.(runtime.VoidValue); !isVoid {
			fmt.Fprintln(s.cli.stdout, s.interp.Colorize(result))
		}
	}
}

func (s *replSession) remember(code string) {
	s.reader.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	if s.history != nil {
		s.history.Add(code)
	}
}

// exit runs the before_exit hook, persists the history and returns code.
func (s *replSession) exit(code int) int {
	switch s.beforeExit.(type) {
	case *runtime.FunctionValue, runtime.NativeFunctionValue:
		if _, err := s.interp.CallFunction(s.beforeExit, nil, nil); err != nil {
			fmt.Fprintf(s.cli.stderr, "before_exit: %v\n", err)
		}
	}
	if s.history != nil {
		if err := s.history.Save(); err != nil {
			s.cli.logger.Warn().Err(err).Msg("history not saved")
		}
	}
	fmt.Fprintln(s.cli.stdout, "\nExiting...")
	return code
}

// complete offers keywords and global names for the last word of line.
func (s *replSession) complete(line string) []string {
	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if strings.HasPrefix(name, word) && !seen[name] {
			seen[name] = true
			out = append(out, prefix+name)
		}
	}
	for keyword := range lexer.Keywords {
		add(keyword)
	}
	for _, name := range s.interp.GlobalEnvironment().Keys() {
		add(name)
	}
	sort.Strings(out)
	return out
}
