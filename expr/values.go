package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/delaneyj/vox/reactivity"
)

// Callable is any value an expression can call.
type Callable interface {
	Call(this any, args []any) (any, error)
}

// Builtin is a host function. It is a pointer type so it can be stored and
// compared like any other value.
type Builtin struct {
	Name string
	Fn   func(this any, args []any) (any, error)
}

func (b *Builtin) Call(this any, args []any) (any, error) {
	return b.Fn(this, args)
}

func (b *Builtin) String() string {
	return "function " + b.Name + "() { [native code] }"
}

// Host objects expose members to expressions through these interfaces.
type (
	MemberGetter interface {
		GetMember(name string) (any, bool)
	}
	MemberSetter interface {
		SetMember(name string, value any) bool
	}
	MethodInvoker interface {
		InvokeMethod(name string, args []any) (any, bool, error)
	}
)

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// Normalize maps every Go numeric type onto float64.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

func Truthy(v any) bool {
	switch t := Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	}
	return true
}

func ToNumber(v any) float64 {
	switch t := Normalize(v).(type) {
	case nil:
		return math.NaN()
	case bool:
		if t {
			return 1
		}
		return 0
	case float64:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, err := strconv.ParseInt(s[2:], 16, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	if p, ok := v.(*reactivity.Proxy); ok && p.IsArray() {
		return ToNumber(ToString(v))
	}
	return math.NaN()
}

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
		return strings.Replace(s, "e-0", "e-", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString renders v the way string concatenation does.
func ToString(v any) string {
	switch t := Normalize(v).(type) {
	case nil:
		return "undefined"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return FormatNumber(t)
	case Callable:
		return "function () { [native code] }"
	case fmt.Stringer:
		if _, ok := v.(*reactivity.Proxy); !ok {
			return t.String()
		}
	}
	if p, ok := asProxy(v); ok {
		switch {
		case p.IsArray():
			return joinItems(p.Items(), ",")
		case p.IsMap():
			return "[object Map]"
		case p.IsSet():
			return "[object Set]"
		}
		return "[object Object]"
	}
	if r, ok := v.(*reactivity.Ref); ok {
		return ToString(r.Value())
	}
	return fmt.Sprint(v)
}

func joinItems(items []any, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		if item != nil {
			parts[i] = ToString(item)
		}
	}
	return strings.Join(parts, sep)
}

func TypeOf(v any) string {
	switch Normalize(v).(type) {
	case nil:
		return "undefined"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case Callable:
		return "function"
	}
	return "object"
}

// StrictEquals implements ===.
func StrictEquals(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && fa == fb
	}
	return reactivity.SameValue(a, b)
}

// LooseEquals implements == for the value shapes expressions produce.
func LooseEquals(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a.(type) {
	case float64, string, bool:
		switch b.(type) {
		case float64, string, bool:
			if sa, ok := a.(string); ok {
				if sb, ok := b.(string); ok {
					return sa == sb
				}
			}
			return ToNumber(a) == ToNumber(b)
		}
	}
	return StrictEquals(a, b)
}

// asProxy returns a Proxy for any container, wrapping raw ones in an
// untracked view.
func asProxy(v any) (*reactivity.Proxy, bool) {
	if p, ok := v.(*reactivity.Proxy); ok {
		return p, true
	}
	if reactivity.IsContainer(v) {
		p, ok := reactivity.View(v).(*reactivity.Proxy)
		return p, ok
	}
	return nil, false
}

// Iterate lists the values a for...of loop visits.
func Iterate(v any) ([]any, error) {
	switch t := v.(type) {
	case string:
		out := make([]any, 0, len(t))
		for _, r := range t {
			out = append(out, string(r))
		}
		return out, nil
	}
	p, ok := asProxy(v)
	if !ok {
		return nil, typeErrorf("%s is not iterable", ToString(v))
	}
	switch {
	case p.IsArray():
		return p.Items(), nil
	case p.IsSet():
		return p.Values(), nil
	case p.IsMap():
		entries := p.Entries()
		out := make([]any, len(entries))
		for i, e := range entries {
			out[i] = reactivity.NewArray(e[0], e[1])
		}
		return out, nil
	}
	return nil, typeErrorf("object is not iterable")
}
