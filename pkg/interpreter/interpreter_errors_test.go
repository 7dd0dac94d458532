package interpreter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/interpreter-go/pkg/runtime"
)

func TestRuntimeErrorKindsAndMessages(t *testing.T) {
	cases := []struct {
		name   string
		source string
		kind   string
		msg    string
	}{
		{"undefined name", "missing", runtime.NameError, "missing is not defined"},
		{"read through undefined", "o = {}\no.a.b", runtime.NameError, "Cannot read properties of an undefined value, READING: o → a → b"},
		{"write through null", "u = null\nu.x = 1", runtime.NameError, "Cannot set properties of an undefined value, WRITING: u → x"},
		{"write into number", "n = 1\nn.x = 2", runtime.TypeError, "Cannot set properties of a number value, WRITING: n → x"},
		{"bad array index", "list = []\nlist['a'] = 1", runtime.TypeError, "Invalid array index a, WRITING: list → a"},
		{"call non function", "x = 1\nx()", runtime.RefError, "'x' is not a function"},
		{"call missing member", "o = {}\no.run()", runtime.RefError, "'o.run' is not a function"},
		{"unknown action", "x: foo = 1", runtime.SyntaxError, "Unknown action: foo"},
		{"export below top level", "fn f {\n  y: out = 1\n}\nf()", runtime.RuntimeError, "External Variable declarations must be at the top-level"},
		{"react on missing name", "b: react<nope> = 1", runtime.NameError, "nope is not defined"},
		{"literal target", "1 = 2", runtime.SyntaxError, "Invalid left-hand assignment"},
		{"destructure from computed", "{a: b.c} = {a: 1}", runtime.SyntaxError, "Invalid right-hand assignment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			interp, _ := newTestInterpreter(t)
			_, err := interp.EvaluateSource(tc.source)
			require.Error(t, err)
			var rtErr *runtime.Error
			require.True(t, errors.As(err, &rtErr), "expected *runtime.Error, got %T: %v", err, err)
			assert.Equal(t, tc.kind, rtErr.Kind)
			assert.Equal(t, tc.msg, rtErr.Message)
		})
	}
}

func TestErrorStringCarriesKind(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	_, err := interp.EvaluateSource("missing")
	if err == nil || err.Error() != "NameError: missing is not defined" {
		t.Fatalf("unexpected error string %v", err)
	}
	if runtime.KindOf(err) != runtime.NameError {
		t.Fatalf("unexpected kind %q", runtime.KindOf(err))
	}
}

func TestReactiveCycleIsBounded(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	source := "a = 1\nfn bump x {\n  a = x + 1\n}\nb: react<a> = bump"
	_, err := interp.EvaluateSource(source)
	if err == nil {
		t.Fatalf("expected reactive cycle to fail")
	}
	if !runtime.IsKind(err, runtime.RuntimeError) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Reactive propagation exceeded depth 64") {
		t.Fatalf("unexpected message %v", err)
	}
	if !strings.Contains(err.Error(), "at → b: react<a>") {
		t.Fatalf("expected reactive trace in %v", err)
	}
}

func TestEnvironmentSurvivesFailedStatement(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	mustEval(t, interp, "kept = 1")
	if _, err := interp.EvaluateSource("kept = 2\nmissing"); err == nil {
		t.Fatalf("expected failure")
	}
	expectNumber(t, mustEval(t, interp, "kept"), 2)
}

func TestExitUnwindsEvaluation(t *testing.T) {
	interp, out := newTestInterpreter(t)
	_, err := interp.EvaluateSource("print('before')\nexit(3)\nprint('after')")
	var exit *runtime.ExitRequest
	if !errors.As(err, &exit) {
		t.Fatalf("expected exit request, got %v", err)
	}
	if exit.Code != 3 {
		t.Fatalf("unexpected exit code %d", exit.Code)
	}
	if out.String() != "before\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
