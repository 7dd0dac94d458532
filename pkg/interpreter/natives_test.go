package interpreter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/interpreter-go/pkg/runtime"
)

func TestPrintFormatsValues(t *testing.T) {
	interp, out := newTestInterpreter(t)
	mustEval(t, interp, "print('a', 1, [1, 'b'], null)\nputs('x')\nputs('y')")
	assert.Equal(t, "a 1 [1, \"b\"] null\nxy", out.String())
}

func TestGlobalNatives(t *testing.T) {
	cases := []struct {
		source string
		want   runtime.Value
	}{
		{"length('héllo')", runtime.Number(5)},
		{"length([1, 2, 3])", runtime.Number(3)},
		{"length({a: 1})", runtime.Number(1)},
		{"length(null)", runtime.Number(0)},
		{"keys({a: 1, b: 2}).join('-')", runtime.String("a-b")},
		{"fn add a b: a + b\nsrc(add)", runtime.String("fn add a b: a + b")},
		{"eval('1 + 2')", runtime.Number(3)},
		{"mother.name()", runtime.String("go")},
		{"__envScript", runtime.False},
		{"infinity > 1000000", runtime.True},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			assert.Equal(t, tc.want, evalSource(t, tc.source))
		})
	}
}

func TestMathNatives(t *testing.T) {
	cases := []struct {
		source string
		want   runtime.Value
	}{
		{"math.int('42px')", runtime.Number(42)},
		{"math.float(' 3.5e1 ')", runtime.Number(35)},
		{"math.parse('-2.5kg')", runtime.Number(-2.5)},
		{"math.int('px')", runtime.NaN},
		{"math.cos(0)", runtime.Number(1)},
		{"math.sin(0)", runtime.Number(0)},
		{"math.is_nan(0 / 0)", runtime.True},
		{"math.is_nan(1)", runtime.False},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			assert.Equal(t, tc.want, evalSource(t, tc.source))
		})
	}
	pi := evalSource(t, "math.pi")
	require.IsType(t, runtime.NumberValue{}, pi)
	assert.InDelta(t, 3.14159, pi.(runtime.NumberValue).Val, 1e-5)
}

func TestStringNatives(t *testing.T) {
	cases := []struct {
		source string
		want   runtime.Value
	}{
		{"string.trim('  hi  ')", runtime.String("hi")},
		{"string.split('a,b,c', ',').join('|')", runtime.String("a|b|c")},
		{"string.join('a b c', ' ', '-')", runtime.String("a-b-c")},
		{"string.replace('aaa', 'a', 'b')", runtime.String("baa")},
		{"string.includes('luna', 'un')", runtime.True},
		{"string.charAt('abc', 1)", runtime.String("b")},
		{"string.charAt('abc', 9)", runtime.String("")},
		{"string.charCodeAt('A', 0)", runtime.Number(65)},
		{"string.charCodeAt('A', 4)", runtime.NaN},
		{"string.at('abc', -1)", runtime.String("c")},
		{"string.at('abc', 5)", runtime.Undefined},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			assert.Equal(t, tc.want, evalSource(t, tc.source))
		})
	}
}

func TestArrayNatives(t *testing.T) {
	interp, out := newTestInterpreter(t)
	mustEval(t, interp, "xs = [1, 2, 3, 4]")

	expectString(t, mustEval(t, interp, "array.join(array.map(xs, lambda x: x * 10), ',')"), "10,20,30,40")
	expectString(t, mustEval(t, interp, "array.join(array.filter(xs, lambda x: x % 2 == 0), ',')"), "2,4")
	expectString(t, mustEval(t, interp, "array.join(array.cut(xs, 1, -1), ',')"), "2,3")
	expectString(t, mustEval(t, interp, "array.join(array.cut(xs, 10), ',')"), "")

	mustEval(t, interp, "array.each(xs, lambda x i: print(i, x))")
	assert.Equal(t, "0 1\n1 2\n2 3\n3 4\n", out.String())

	mustEval(t, interp, "array.add(xs, 5)")
	expectNumber(t, mustEval(t, interp, "length(xs)"), 5)
	expectNumber(t, mustEval(t, interp, "array.pop(xs)"), 5)
	expectNumber(t, mustEval(t, interp, "length(xs)"), 4)
}

func TestCapabilityMethods(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	expectString(t, mustEval(t, interp, "[3, 1, 2].sort().join(' ')"), "1 2 3")
	expectNumber(t, mustEval(t, interp, "[1, 2, 3].reduce(lambda acc x: acc + x, 0)"), 6)
	expectString(t, mustEval(t, interp, "'abc'.reverse()"), "cba")
	expectNumber(t, mustEval(t, interp, "[1, 2].length()"), 2)
	expectString(t, mustEval(t, interp, "'abc'[1]"), "b")
}

func TestEvalRunsInFreshContext(t *testing.T) {
	interp, out := newTestInterpreter(t)
	mustEval(t, interp, "hidden = 1")
	if val := mustEval(t, interp, "eval('hidden')"); val != runtime.Undefined {
		t.Fatalf("eval should not see caller bindings, got %#v", val)
	}
	if !strings.Contains(out.String(), "NameError: hidden is not defined") {
		t.Fatalf("expected eval error on stderr, got %q", out.String())
	}
}

func TestArgvAndFileSystemNatives(t *testing.T) {
	dir := t.TempDir()
	interp, _ := moduleInterpreter(t, dir, WithArgs([]string{"one", "two"}))
	expectString(t, mustEval(t, interp, "argv().join(',')"), "one,two")

	expectBool(t, mustEval(t, interp, "fs.write('note.txt', 'saved')"), true)
	data, err := os.ReadFile(filepath.Join(dir, "note.txt"))
	require.NoError(t, err)
	require.Equal(t, "saved", string(data))
	expectString(t, mustEval(t, interp, "fs.read('note.txt')"), "saved")
	expectBool(t, mustEval(t, interp, "fs.exists('absent.txt')"), false)

	_, err = interp.EvaluateSource("fs.read('absent.txt')")
	require.True(t, runtime.IsKind(err, runtime.FSError), "expected FSError, got %v", err)
}

func TestInputReadsALine(t *testing.T) {
	interp, out := newTestInterpreter(t, WithStdin(strings.NewReader("luna\nrest\n")))
	expectString(t, mustEval(t, interp, "input('name? ')"), "luna")
	assert.Equal(t, "name? ", out.String())
}

func TestFormatAndColorize(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	obj := mustEval(t, interp, "o = {a: 1, b: 'x', c: {d: 1}, f: lambda x y: x}")

	assert.Equal(t, "hello", interp.Format(runtime.String("hello")))
	assert.Equal(t, `"hello"`, interp.Colorize(runtime.String("hello")))
	assert.Equal(t, "undef", interp.Format(runtime.Undefined))
	assert.Equal(t, "{}", interp.Format(runtime.NewObject()))
	assert.Equal(t, "{\n  a: 1,\n  b: \"x\",\n  c: { ... },\n  f: lambda x, y { ... }\n}", interp.Format(obj))

	long := mustEval(t, interp, "big = []\nfor i = 0; i < 20; i++ { big[i] = i }\nbig")
	rendered := interp.Format(long)
	assert.True(t, strings.HasPrefix(rendered, "(20 elements) [0, 1, 2"), rendered)
	assert.True(t, strings.HasSuffix(rendered, "15, ...]"), rendered)

	fn := mustEval(t, interp, "fn named a: a\nnamed")
	assert.Equal(t, "fn named a { ... }", interp.Format(fn))
	assert.Equal(t, "fn print", interp.Format(mustEval(t, interp, "print")))
}

func TestSelfContainingArrayRendersElided(t *testing.T) {
	interp, out := newTestInterpreter(t)
	mustEval(t, interp, "a = [1]\na[1] = a\nprint(a)")
	assert.Equal(t, "[1, [ ... ]]\n", out.String())

	joined := mustEval(t, interp, "'' + a")
	assert.Equal(t, runtime.String("1,[ ... ]"), joined)

	mutual := mustEval(t, interp, "b = [2]\nc = [b]\nb[1] = c\nb")
	assert.Equal(t, "[2, [[ ... ]]]", interp.Format(mutual))
}

func TestColorProfileAddsEscapes(t *testing.T) {
	interp, _ := newTestInterpreter(t, WithColorProfile(termenv.ANSI))
	colored := interp.Colorize(runtime.Number(7))
	assert.NotEqual(t, "7", colored)
	assert.Contains(t, colored, "7")
	assert.Contains(t, colored, "\x1b[")
	// print never colors
	assert.Equal(t, "7", interp.Format(runtime.Number(7)))
}
