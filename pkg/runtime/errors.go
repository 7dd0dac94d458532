package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds raised by the runtime.
const (
	SyntaxError        = "SyntaxError"
	NameError          = "NameError"
	TypeError          = "TypeError"
	ArgumentError      = "ArgumentError"
	ArgError           = "ArgError"
	ValueError         = "ValueError"
	ModuleError        = "ModuleError"
	FSError            = "FSError"
	RuntimeError       = "RuntimeError"
	RefError           = "RefError"
	OperationError     = "OperationError"
	PreprocessingError = "PreprocessingError"
	UnsupportedError   = "UnsupportedError"
)

// Error is a Luna-level failure. Trace lists the module paths the error
// unwound through, innermost first.
type Error struct {
	Kind    string
	Message string
	Trace   []string
	cause   error
}

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.cause != nil {
		b.WriteString(e.cause.Error())
	} else {
		b.WriteString(e.Kind + ": " + e.Message)
	}
	for _, path := range e.Trace {
		b.WriteString("\n  at → " + path)
	}
	return b.String()
}

func (e *Error) ErrorKind() string { return e.Kind }

func (e *Error) Unwrap() error { return e.cause }

// WithTrace returns a copy of e with path appended to its trace.
func (e *Error) WithTrace(path string) *Error {
	traced := *e
	traced.Trace = append(append([]string(nil), e.Trace...), path)
	return &traced
}

type kinded interface {
	ErrorKind() string
}

// KindOf reports the Luna error kind carried anywhere in err's chain.
func KindOf(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return ""
}

func IsKind(err error, kind string) bool {
	return err != nil && KindOf(err) == kind
}

// Trace records that err unwound out of the module at path.
func Trace(err error, path string) error {
	if err == nil {
		return nil
	}
	var exit *ExitRequest
	if errors.As(err, &exit) {
		return err
	}
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.WithTrace(path)
	}
	kind := KindOf(err)
	if kind == "" {
		kind = RuntimeError
	}
	return &Error{Kind: kind, Message: err.Error(), Trace: []string{path}, cause: err}
}

// ExitRequest unwinds evaluation when a script calls exit().
type ExitRequest struct {
	Code int
}

func (e *ExitRequest) Error() string {
	return fmt.Sprintf("exit requested with code %d", e.Code)
}
