package runtime

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// FormatNumber renders f the way Luna prints numbers.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString converts v to the text used for concatenation and joins.
func ToString(v Value) string {
	return toString(v, nil)
}

// toString tracks the arrays being joined in open so a self-containing
// array ends with "[ ... ]" instead of recursing.
func toString(v Value, open []*ArrayValue) string {
	switch val := v.(type) {
	case nil:
		return "undef"
	case NumberValue:
		return FormatNumber(val.Val)
	case StringValue:
		return val.Val
	case BoolValue:
		return strconv.FormatBool(val.Val)
	case NullValue:
		return "null"
	case UndefinedValue:
		return "undef"
	case VoidValue:
		return ""
	case NaNValue:
		return "NaN"
	case *ArrayValue:
		if slices.Contains(open, val) {
			return "[ ... ]"
		}
		open = append(open, val)
		parts := make([]string, len(val.Elements))
		for i, el := range val.Elements {
			parts[i] = toString(el, open)
		}
		return strings.Join(parts, ",")
	case *ObjectValue:
		return "{ ... }"
	case *FunctionValue:
		return "fn " + val.Declaration.Name
	case NativeFunctionValue:
		return "fn " + val.Name
	case BoundMethodValue:
		return "fn " + val.Method.Name
	case ReturnValue:
		return toString(val.Value, open)
	}
	return ""
}

var (
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|\d+\.?\d*([eE][+-]?\d+)?|\.\d+([eE][+-]?\d+)?)`)
)

// ParseIntPrefix reads the leading integer of s, yielding NaN when s does
// not start with one.
func ParseIntPrefix(s string) float64 {
	m := intPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ParseFloatPrefix reads the leading decimal number of s, yielding NaN when
// s does not start with one.
func ParseFloatPrefix(s string) float64 {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToNumber applies numeric coercion for unary plus and minus.
func ToNumber(v Value) float64 {
	switch val := v.(type) {
	case NumberValue:
		return val.Val
	case BoolValue:
		if val.Val {
			return 1
		}
		return 0
	case NullValue:
		return 0
	case StringValue:
		s := strings.TrimSpace(val.Val)
		if s == "" {
			return 0
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || strings.ContainsAny(s, "xXpP_") {
			return math.NaN()
		}
		return f
	case *ArrayValue:
		switch len(val.Elements) {
		case 0:
			return 0
		case 1:
			return ToNumber(String(ToString(val.Elements[0])))
		}
	}
	return math.NaN()
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case BoolValue:
		return val.Val
	case NumberValue:
		return val.Val != 0 && !math.IsNaN(val.Val)
	case StringValue:
		return val.Val != ""
	case NullValue, UndefinedValue, VoidValue, NaNValue:
		return false
	case ReturnValue:
		return Truthy(val.Value)
	}
	return true
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v Value) bool {
	switch v.(type) {
	case nil, NullValue, UndefinedValue, VoidValue:
		return true
	}
	return false
}

// StrictEquals compares values of the same kind without coercion.
func StrictEquals(a, b Value) bool {
	switch av := a.(type) {
	case NumberValue:
		bv, ok := b.(NumberValue)
		return ok && av.Val == bv.Val
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Val == bv.Val
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Val == bv.Val
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case UndefinedValue, nil:
		switch b.(type) {
		case UndefinedValue, nil:
			return true
		}
		return false
	case VoidValue:
		_, ok := b.(VoidValue)
		return ok
	case NaNValue:
		return false
	case *ArrayValue:
		bv, ok := b.(*ArrayValue)
		return ok && av == bv
	case *ObjectValue:
		bv, ok := b.(*ObjectValue)
		return ok && av == bv
	case *FunctionValue:
		bv, ok := b.(*FunctionValue)
		return ok && av == bv
	case NativeFunctionValue:
		bv, ok := b.(NativeFunctionValue)
		return ok && av.Name == bv.Name
	case BoundMethodValue:
		bv, ok := b.(BoundMethodValue)
		return ok && av.Method.Name == bv.Method.Name && StrictEquals(av.Receiver, bv.Receiver)
	}
	return false
}

// LooseEquals implements `==`: null and undefined match each other, and
// numbers compare against coerced strings and booleans.
func LooseEquals(a, b Value) bool {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if a.Kind() == b.Kind() {
		return StrictEquals(a, b)
	}
	switch av := a.(type) {
	case BoolValue:
		return LooseEquals(Number(ToNumber(av)), b)
	case NumberValue:
		switch b.(type) {
		case StringValue, BoolValue:
			return av.Val == ToNumber(b)
		}
	case StringValue:
		switch b.(type) {
		case NumberValue, BoolValue:
			return ToNumber(av) == ToNumber(b)
		}
	}
	return false
}
