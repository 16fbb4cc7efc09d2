package expr

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/delaneyj/vox/reactivity"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// namespace is a read-only bag of builtins such as Math or JSON.
type namespace map[string]any

func (ns namespace) GetMember(name string) (any, bool) {
	v, ok := ns[name]
	return v, ok
}

func fn(name string, f func(args []any) (any, error)) *Builtin {
	return &Builtin{Name: name, Fn: func(_ any, args []any) (any, error) {
		return f(args)
	}}
}

func math1(name string, f func(float64) float64) *Builtin {
	return fn(name, func(args []any) (any, error) {
		return f(ToNumber(arg(args, 0))), nil
	})
}

func fold(name string, init float64, pick func(a, b float64) float64) *Builtin {
	return fn(name, func(args []any) (any, error) {
		acc := init
		for _, a := range args {
			n := ToNumber(a)
			if math.IsNaN(n) {
				return math.NaN(), nil
			}
			acc = pick(acc, n)
		}
		return acc, nil
	})
}

var globals map[string]any

func init() {
	globals = map[string]any{
		"NaN":      math.NaN(),
		"Infinity": math.Inf(1),
		"Math": namespace{
			"PI":    math.Pi,
			"E":     math.E,
			"LN2":   math.Ln2,
			"LN10":  math.Ln10,
			"SQRT2": math.Sqrt2,
			"abs":   math1("abs", math.Abs),
			"ceil":  math1("ceil", math.Ceil),
			"floor": math1("floor", math.Floor),
			"round": math1("round", func(f float64) float64 { return math.Floor(f + 0.5) }),
			"trunc": math1("trunc", math.Trunc),
			"sqrt":  math1("sqrt", math.Sqrt),
			"cbrt":  math1("cbrt", math.Cbrt),
			"log":   math1("log", math.Log),
			"log2":  math1("log2", math.Log2),
			"log10": math1("log10", math.Log10),
			"exp":   math1("exp", math.Exp),
			"sin":   math1("sin", math.Sin),
			"cos":   math1("cos", math.Cos),
			"tan":   math1("tan", math.Tan),
			"sign": math1("sign", func(f float64) float64 {
				switch {
				case f > 0:
					return 1
				case f < 0:
					return -1
				}
				return f
			}),
			"min": fold("min", math.Inf(1), math.Min),
			"max": fold("max", math.Inf(-1), math.Max),
			"pow": fn("pow", func(args []any) (any, error) {
				return math.Pow(ToNumber(arg(args, 0)), ToNumber(arg(args, 1))), nil
			}),
			"random": fn("random", func(args []any) (any, error) {
				return rand.Float64(), nil
			}),
		},
		"JSON": namespace{
			"stringify": fn("stringify", func(args []any) (any, error) {
				indent := ""
				switch sp := Normalize(arg(args, 2)).(type) {
				case float64:
					indent = strings.Repeat(" ", min(int(sp), 10))
				case string:
					indent = sp
				}
				var sb strings.Builder
				if !writeJSON(&sb, arg(args, 0), indent, "") {
					return nil, nil
				}
				return sb.String(), nil
			}),
			"parse": fn("parse", func(args []any) (any, error) {
				s := ToString(arg(args, 0))
				if !gjson.Valid(s) {
					return nil, &Error{Kind: ErrSyntax, Msg: "unexpected token in JSON", Source: s}
				}
				return fromJSON(gjson.Parse(s)), nil
			}),
		},
		"Object": namespace{
			"keys": fn("keys", func(args []any) (any, error) {
				return entriesOf(arg(args, 0), func(e [2]any) any { return PropertyKey(e[0]) }), nil
			}),
			"values": fn("values", func(args []any) (any, error) {
				return entriesOf(arg(args, 0), func(e [2]any) any { return e[1] }), nil
			}),
			"entries": fn("entries", func(args []any) (any, error) {
				return entriesOf(arg(args, 0), func(e [2]any) any {
					return reactivity.NewArray(PropertyKey(e[0]), e[1])
				}), nil
			}),
			"assign": fn("assign", func(args []any) (any, error) {
				target := arg(args, 0)
				for _, src := range args[min(1, len(args)):] {
					p, ok := asProxy(src)
					if !ok {
						continue
					}
					for _, e := range p.Entries() {
						if err := SetMember(target, PropertyKey(e[0]), e[1]); err != nil {
							return nil, err
						}
					}
				}
				return target, nil
			}),
		},
		"Array": namespace{
			"isArray": fn("isArray", func(args []any) (any, error) {
				p, ok := asProxy(arg(args, 0))
				return ok && p.IsArray(), nil
			}),
			"from": fn("from", func(args []any) (any, error) {
				src := arg(args, 0)
				var items []any
				if p, ok := asProxy(src); ok && p.IsObject() {
					// array-likes such as { length: 3 }
					n := toInt(p.Get("length"), 0)
					items = make([]any, n)
					for i := range items {
						items[i] = p.Get(strconv.Itoa(i))
					}
				} else {
					var err error
					if items, err = Iterate(src); err != nil {
						return nil, err
					}
				}
				if mapper := arg(args, 1); mapper != nil {
					c, err := callback(mapper)
					if err != nil {
						return nil, err
					}
					for i, item := range items {
						if items[i], err = c.Call(nil, []any{item, float64(i)}); err != nil {
							return nil, err
						}
					}
				}
				return reactivity.NewArray(items...), nil
			}),
			"of": fn("of", func(args []any) (any, error) {
				return reactivity.NewArray(args...), nil
			}),
		},
		"Map": fn("Map", func(args []any) (any, error) {
			m := reactivity.NewMap()
			if src := arg(args, 0); src != nil {
				entries, err := Iterate(src)
				if err != nil {
					return nil, err
				}
				for _, e := range entries {
					if p, ok := asProxy(e); ok {
						m.Set(reactivity.ToRaw(p.Get(0)), reactivity.ToRaw(p.Get(1)))
					}
				}
			}
			return m, nil
		}),
		"Set": fn("Set", func(args []any) (any, error) {
			s := reactivity.NewSet()
			if src := arg(args, 0); src != nil {
				items, err := Iterate(src)
				if err != nil {
					return nil, err
				}
				for _, item := range items {
					s.Add(reactivity.ToRaw(item))
				}
			}
			return s, nil
		}),
		"String": fn("String", func(args []any) (any, error) {
			if len(args) == 0 {
				return "", nil
			}
			return ToString(args[0]), nil
		}),
		"Number": fn("Number", func(args []any) (any, error) {
			if len(args) == 0 {
				return 0.0, nil
			}
			if args[0] == nil {
				return 0.0, nil
			}
			return ToNumber(args[0]), nil
		}),
		"Boolean": fn("Boolean", func(args []any) (any, error) {
			return Truthy(arg(args, 0)), nil
		}),
		"parseInt": fn("parseInt", func(args []any) (any, error) {
			return parseInt(ToString(arg(args, 0)), toInt(arg(args, 1), 10)), nil
		}),
		"parseFloat": fn("parseFloat", func(args []any) (any, error) {
			return parseFloat(ToString(arg(args, 0))), nil
		}),
		"isNaN": fn("isNaN", func(args []any) (any, error) {
			return math.IsNaN(ToNumber(arg(args, 0))), nil
		}),
		"isFinite": fn("isFinite", func(args []any) (any, error) {
			n := ToNumber(arg(args, 0))
			return !math.IsNaN(n) && !math.IsInf(n, 0), nil
		}),
		"Date": namespace{
			"now": fn("now", func(args []any) (any, error) {
				return float64(time.Now().UnixMilli()), nil
			}),
		},
		"console": NewConsole(logrus.StandardLogger()),
	}
}

// NewConsole returns a console object logging through log. Scopes shadow
// the global console, which logs to the standard logger.
func NewConsole(log logrus.FieldLogger) MemberGetter {
	return namespace{
		"log":   consoleFn(log, "log", logrus.InfoLevel),
		"info":  consoleFn(log, "info", logrus.InfoLevel),
		"debug": consoleFn(log, "debug", logrus.DebugLevel),
		"warn":  consoleFn(log, "warn", logrus.WarnLevel),
		"error": consoleFn(log, "error", logrus.ErrorLevel),
	}
}

func consoleFn(log logrus.FieldLogger, name string, level logrus.Level) *Builtin {
	return fn(name, func(args []any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = ToString(a)
		}
		entry := log.WithField("source", "console")
		msg := strings.Join(parts, " ")
		switch level {
		case logrus.DebugLevel:
			entry.Debug(msg)
		case logrus.WarnLevel:
			entry.Warn(msg)
		case logrus.ErrorLevel:
			entry.Error(msg)
		default:
			entry.Info(msg)
		}
		return nil, nil
	})
}

func entriesOf(v any, pick func([2]any) any) any {
	p, ok := asProxy(v)
	if !ok {
		return reactivity.NewArray()
	}
	entries := p.Entries()
	out := make([]any, len(entries))
	for i, e := range entries {
		if p.IsArray() {
			e[0] = float64(e[0].(int))
		}
		out[i] = pick(e)
	}
	return reactivity.NewArray(out...)
}

func parseInt(s string, radix int) float64 {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if radix == 0 {
		radix = 10
	}
	if (radix == 16 || radix == 10) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s, radix = s[2:], 16
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	end := 0
	for end < len(s) {
		d := digitValue(s[end])
		if d < 0 || d >= radix {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, err := strconv.ParseInt(s[:end], radix, 64)
	if err != nil {
		return math.NaN()
	}
	if neg {
		return -float64(n)
	}
	return float64(n)
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

// parseFloat reads the longest numeric prefix of s.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "Infinity") || strings.HasPrefix(s, "+Infinity") {
		return math.Inf(1)
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1)
	}
	for end := len(s); end > 0; end-- {
		if n, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return n
		}
	}
	return math.NaN()
}

func fromJSON(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num
	case gjson.String:
		return r.Str
	}
	if r.IsArray() {
		items := r.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = fromJSON(item)
		}
		return reactivity.NewArray(out...)
	}
	obj := reactivity.NewObject()
	r.ForEach(func(key, value gjson.Result) bool {
		obj.Set(key.String(), fromJSON(value))
		return true
	})
	return obj
}

// writeJSON serialises v, reporting false for values JSON cannot represent.
func writeJSON(sb *strings.Builder, v any, indent, prefix string) bool {
	v = Normalize(v)
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
		return true
	case bool:
		sb.WriteString(strconv.FormatBool(t))
		return true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			sb.WriteString("null")
		} else {
			sb.WriteString(FormatNumber(t))
		}
		return true
	case string:
		b, _ := json.Marshal(t)
		sb.Write(b)
		return true
	case Callable:
		return false
	case *reactivity.Ref:
		return writeJSON(sb, t.Value(), indent, prefix)
	}
	p, ok := asProxy(v)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return false
		}
		sb.Write(b)
		return true
	}
	inner := prefix + indent
	newline := func(level string) {
		if indent != "" {
			sb.WriteByte('\n')
			sb.WriteString(level)
		}
	}
	if p.IsArray() {
		items := p.Items()
		if len(items) == 0 {
			sb.WriteString("[]")
			return true
		}
		sb.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				sb.WriteByte(',')
			}
			newline(inner)
			if !writeJSON(sb, item, indent, inner) {
				sb.WriteString("null")
			}
		}
		newline(prefix)
		sb.WriteByte(']')
		return true
	}
	if !p.IsObject() {
		sb.WriteString("{}")
		return true
	}
	sb.WriteByte('{')
	n := 0
	for _, e := range p.Entries() {
		var value strings.Builder
		if !writeJSON(&value, e[1], indent, inner) {
			continue
		}
		if n > 0 {
			sb.WriteByte(',')
		}
		newline(inner)
		key, _ := json.Marshal(PropertyKey(e[0]))
		sb.Write(key)
		sb.WriteByte(':')
		if indent != "" {
			sb.WriteByte(' ')
		}
		sb.WriteString(value.String())
		n++
	}
	if n > 0 {
		newline(prefix)
	}
	sb.WriteByte('}')
	return true
}
