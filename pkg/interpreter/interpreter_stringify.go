package interpreter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/muesli/termenv"

	"luna/interpreter-go/pkg/runtime"
)

// arrayPreview is how many elements are shown before an array is elided.
const arrayPreview = 16

type palette struct {
	str  func(string) string
	num  func(string) string
	dim  func(string) string
	word func(string) string
}

func plain(s string) string { return s }

var plainPalette = palette{str: plain, num: plain, dim: plain, word: plain}

func (i *Interpreter) colors() palette {
	if i.profile == termenv.Ascii {
		return plainPalette
	}
	profile := i.profile
	paint := func(color string) func(string) string {
		c := profile.Color(color)
		return func(s string) string {
			return profile.String(s).Foreground(c).String()
		}
	}
	return palette{
		str:  paint("2"),
		num:  paint("3"),
		dim:  paint("8"),
		word: paint("5"),
	}
}

// Format renders v the way print shows it: top-level strings are written
// raw, everything else like Colorize without colors.
func (i *Interpreter) Format(v runtime.Value) string {
	if s, ok := v.(runtime.StringValue); ok {
		return s.Val
	}
	return render(v, plainPalette, 0, nil)
}

// Colorize renders v for the REPL and debug output.
func (i *Interpreter) Colorize(v runtime.Value) string {
	return render(v, i.colors(), 0, nil)
}

// render formats v. open holds the arrays currently being rendered; one
// reached again through its own elements is shown as "[ ... ]".
func render(v runtime.Value, p palette, depth int, open []*runtime.ArrayValue) string {
	switch val := v.(type) {
	case nil, runtime.UndefinedValue:
		return p.dim("undef")
	case runtime.StringValue:
		return p.str(fmt.Sprintf("%q", val.Val))
	case runtime.NumberValue, runtime.NaNValue:
		return p.num(runtime.ToString(val))
	case runtime.BoolValue:
		return p.num(runtime.ToString(val))
	case runtime.NullValue:
		return p.word("null")
	case runtime.VoidValue:
		return ""
	case *runtime.ArrayValue:
		return renderArray(val, p, depth, open)
	case *runtime.ObjectValue:
		return renderObject(val, p, depth, open)
	case *runtime.FunctionValue:
		decl := val.Declaration
		params := make([]string, len(decl.Parameters))
		for idx, param := range decl.Parameters {
			params[idx] = param.Name
		}
		head := "fn " + decl.Name
		if decl.Anonymous() {
			head = "lambda"
		}
		if len(params) > 0 {
			head += " " + strings.Join(params, ", ")
		}
		return p.word(head) + " { ... }"
	case runtime.NativeFunctionValue:
		return p.word("fn " + val.Name)
	case runtime.BoundMethodValue:
		return p.word("fn " + val.Method.Name)
	case runtime.ReturnValue:
		return render(val.Value, p, depth, open)
	}
	return runtime.ToString(v)
}

func renderArray(arr *runtime.ArrayValue, p palette, depth int, open []*runtime.ArrayValue) string {
	if slices.Contains(open, arr) {
		return "[ ... ]"
	}
	open = append(open, arr)
	shown := arr.Elements
	prefix := ""
	if len(shown) > arrayPreview {
		prefix = fmt.Sprintf("(%d elements) ", len(shown))
		shown = shown[:arrayPreview]
	}
	parts := make([]string, 0, len(shown)+1)
	for _, el := range shown {
		if _, nested := el.(*runtime.ObjectValue); nested {
			parts = append(parts, "{ ... }")
			continue
		}
		parts = append(parts, render(el, p, depth+1, open))
	}
	if len(arr.Elements) > arrayPreview {
		parts = append(parts, "...")
	}
	return prefix + "[" + strings.Join(parts, ", ") + "]"
}

func renderObject(obj *runtime.ObjectValue, p palette, depth int, open []*runtime.ArrayValue) string {
	if depth > 0 {
		return "{ ... }"
	}
	keys := obj.Keys()
	if len(keys) == 0 {
		return "{}"
	}
	lines := make([]string, len(keys))
	for idx, key := range keys {
		field, _ := obj.Get(key)
		lines[idx] = "  " + key + ": " + render(field, p, depth+1, open)
	}
	return "{\n" + strings.Join(lines, ",\n") + "\n}"
}
