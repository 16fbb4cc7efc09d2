package expr

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/delaneyj/vox/reactivity"
)

// PropertyKey renders a member key as a record key.
func PropertyKey(key any) string {
	switch k := Normalize(key).(type) {
	case string:
		return k
	case float64:
		return FormatNumber(k)
	case nil:
		return "undefined"
	}
	return ToString(key)
}

// GetMember reads obj[key].
func GetMember(obj, key any) (any, error) {
	key = Normalize(key)
	switch o := obj.(type) {
	case nil:
		return nil, typeErrorf("cannot read properties of undefined (reading '%s')", PropertyKey(key))
	case Scope:
		v, _ := o.Lookup(PropertyKey(key))
		return v, nil
	case string:
		return stringMember(o, key), nil
	case *reactivity.Ref:
		if key == "value" {
			return o.Value(), nil
		}
		return nil, nil
	case MemberGetter:
		v, ok := o.GetMember(PropertyKey(key))
		if ok {
			return v, nil
		}
		if _, ok := o.(MethodInvoker); ok {
			return boundMethod(obj, PropertyKey(key)), nil
		}
		return nil, nil
	}
	p, ok := asProxy(obj)
	if !ok {
		if _, isNum := Normalize(obj).(float64); isNum {
			if name, ok := key.(string); ok && numberMethods[name] != nil {
				return boundMethod(obj, name), nil
			}
		}
		return nil, nil
	}
	switch {
	case p.IsArray():
		if key == "length" {
			return p.Get("length"), nil
		}
		if name, ok := key.(string); ok && arrayMethods[name] != nil {
			return boundMethod(p, name), nil
		}
		return p.Get(key), nil
	case p.IsMap(), p.IsSet():
		if key == "size" {
			return float64(p.Size()), nil
		}
		if name, ok := key.(string); ok && collectionMethods[name] != nil {
			return boundMethod(p, name), nil
		}
		return nil, nil
	}
	k := PropertyKey(key)
	v := p.Get(k)
	if v == nil && !p.HasOwn(k) && objectMethods[k] != nil {
		return boundMethod(p, k), nil
	}
	return v, nil
}

// SetMember writes obj[key] = value.
func SetMember(obj, key, value any) error {
	key = Normalize(key)
	switch o := obj.(type) {
	case nil:
		return typeErrorf("cannot set properties of undefined (setting '%s')", PropertyKey(key))
	case Scope:
		o.Assign(PropertyKey(key), value)
		return nil
	case *reactivity.Ref:
		if key == "value" {
			o.Set(value)
		}
		return nil
	case MemberSetter:
		o.SetMember(PropertyKey(key), value)
		return nil
	}
	p, ok := asProxy(obj)
	if !ok {
		return nil
	}
	if p.IsObject() {
		p.Set(PropertyKey(key), value)
		return nil
	}
	if !p.Set(key, value) && p.IsArray() {
		if _, isIndex := key.(float64); isIndex || key == "length" {
			return rangeErrorf("invalid array write at %s", PropertyKey(key))
		}
	}
	return nil
}

func boundMethod(recv any, name string) *Builtin {
	return &Builtin{Name: name, Fn: func(_ any, args []any) (any, error) {
		return CallMethod(recv, name, args, false)
	}}
}

type method func(recv any, args []any) (any, error)

// CallMethod calls recv[key](...args) with recv as this. Builtin methods of
// arrays, collections, strings and numbers are tried before own properties
// except on records, where own properties win.
func CallMethod(recv, key any, args []any, optional bool) (any, error) {
	key = Normalize(key)
	name, _ := key.(string)
	if recv == nil {
		return nil, typeErrorf("cannot read properties of undefined (reading '%s')", PropertyKey(key))
	}
	if inv, ok := recv.(MethodInvoker); ok {
		v, handled, err := inv.InvokeMethod(name, args)
		if handled || err != nil {
			return v, err
		}
	}
	if m := builtinMethod(recv, name); m != nil {
		return m(recv, args)
	}
	fn, err := GetMember(recv, key)
	if err != nil {
		return nil, err
	}
	if fn == nil && optional {
		return nil, errShortCircuit
	}
	c, ok := fn.(Callable)
	if !ok {
		return nil, typeErrorf("%s is not a function", PropertyKey(key))
	}
	return c.Call(recv, args)
}

func builtinMethod(recv any, name string) method {
	if name == "" {
		return nil
	}
	switch r := Normalize(recv).(type) {
	case string:
		return stringMethods[name]
	case float64:
		return numberMethods[name]
	case Scope, MemberGetter, bool, nil:
		return nil
	default:
		p, ok := asProxy(r)
		if !ok {
			return nil
		}
		switch {
		case p.IsArray():
			return arrayMethods[name]
		case p.IsMap(), p.IsSet():
			return collectionMethods[name]
		}
		if v := p.Get(name); v == nil && !p.HasOwn(name) {
			return objectMethods[name]
		}
	}
	return nil
}

func callback(fn any) (Callable, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, typeErrorf("%s is not a function", ToString(fn))
	}
	return c, nil
}

func proxyOf(recv any) *reactivity.Proxy {
	p, _ := asProxy(recv)
	return p
}

func toInt(v any, def int) int {
	if v == nil {
		return def
	}
	f := ToNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 1) {
		return math.MaxInt32
	}
	if math.IsInf(f, -1) {
		return math.MinInt32
	}
	return int(f)
}

// relIndex resolves a possibly negative index against length n.
func relIndex(v any, n, def int) int {
	i := toInt(v, def)
	if i < 0 {
		i = max(n+i, 0)
	}
	return min(i, n)
}

var arrayMethods map[string]method

func init() {
	arrayMethods = map[string]method{
		"push": func(recv any, args []any) (any, error) {
			return float64(proxyOf(recv).Push(args...)), nil
		},
		"pop": func(recv any, args []any) (any, error) {
			return proxyOf(recv).Pop(), nil
		},
		"shift": func(recv any, args []any) (any, error) {
			return proxyOf(recv).Shift(), nil
		},
		"unshift": func(recv any, args []any) (any, error) {
			return float64(proxyOf(recv).Unshift(args...)), nil
		},
		"splice": func(recv any, args []any) (any, error) {
			p := proxyOf(recv)
			n := p.Len()
			start := relIndex(arg(args, 0), n, 0)
			count := n - start
			if len(args) > 1 {
				count = toInt(args[1], 0)
			}
			var items []any
			if len(args) > 2 {
				items = args[2:]
			}
			return reactivity.NewArray(p.Splice(start, count, items...)...), nil
		},
		"slice": func(recv any, args []any) (any, error) {
			items := proxyOf(recv).Items()
			start := relIndex(arg(args, 0), len(items), 0)
			end := relIndex(arg(args, 1), len(items), len(items))
			if end < start {
				end = start
			}
			return reactivity.NewArray(items[start:end]...), nil
		},
		"concat": func(recv any, args []any) (any, error) {
			items := proxyOf(recv).Items()
			for _, a := range args {
				if p, ok := asProxy(a); ok && p.IsArray() {
					items = append(items, p.Items()...)
					continue
				}
				items = append(items, a)
			}
			return reactivity.NewArray(items...), nil
		},
		"join": func(recv any, args []any) (any, error) {
			sep := ","
			if s := arg(args, 0); s != nil {
				sep = ToString(s)
			}
			return joinItems(proxyOf(recv).Items(), sep), nil
		},
		"reverse": func(recv any, args []any) (any, error) {
			p := proxyOf(recv)
			items := p.Items()
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
			p.Splice(0, len(items), items...)
			return p, nil
		},
		"sort": func(recv any, args []any) (any, error) {
			p := proxyOf(recv)
			items := p.Items()
			var less func(a, b any) (bool, error)
			if cmp := arg(args, 0); cmp != nil {
				fn, err := callback(cmp)
				if err != nil {
					return nil, err
				}
				less = func(a, b any) (bool, error) {
					v, err := fn.Call(nil, []any{a, b})
					return ToNumber(v) < 0, err
				}
			} else {
				less = func(a, b any) (bool, error) {
					return ToString(a) < ToString(b), nil
				}
			}
			// insertion sort keeps the order stable and lets comparator errors surface
			for i := 1; i < len(items); i++ {
				for j := i; j > 0; j-- {
					ok, err := less(items[j], items[j-1])
					if err != nil {
						return nil, err
					}
					if !ok {
						break
					}
					items[j], items[j-1] = items[j-1], items[j]
				}
			}
			p.Splice(0, len(items), items...)
			return p, nil
		},
		"indexOf": func(recv any, args []any) (any, error) {
			return float64(proxyOf(recv).IndexOf(Normalize(arg(args, 0)))), nil
		},
		"lastIndexOf": func(recv any, args []any) (any, error) {
			return float64(proxyOf(recv).LastIndexOf(Normalize(arg(args, 0)))), nil
		},
		"includes": func(recv any, args []any) (any, error) {
			return proxyOf(recv).Includes(Normalize(arg(args, 0))), nil
		},
		"at": func(recv any, args []any) (any, error) {
			p := proxyOf(recv)
			i := toInt(arg(args, 0), 0)
			if i < 0 {
				i += p.Len()
			}
			if i < 0 {
				return nil, nil
			}
			return p.Get(i), nil
		},
		"forEach": iterateArray(func(_ []any, _ int, _ any, _ any) (bool, any) { return false, nil }, nil),
		"map": func(recv any, args []any) (any, error) {
			fn, err := callback(arg(args, 0))
			if err != nil {
				return nil, err
			}
			items := proxyOf(recv).Items()
			out := make([]any, len(items))
			for i, item := range items {
				if out[i], err = fn.Call(arg(args, 1), []any{item, float64(i), recv}); err != nil {
					return nil, err
				}
			}
			return reactivity.NewArray(out...), nil
		},
		"filter": func(recv any, args []any) (any, error) {
			fn, err := callback(arg(args, 0))
			if err != nil {
				return nil, err
			}
			var out []any
			for i, item := range proxyOf(recv).Items() {
				keep, err := fn.Call(arg(args, 1), []any{item, float64(i), recv})
				if err != nil {
					return nil, err
				}
				if Truthy(keep) {
					out = append(out, item)
				}
			}
			return reactivity.NewArray(out...), nil
		},
		"find": iterateArray(func(_ []any, _ int, item, result any) (bool, any) {
			return Truthy(result), item
		}, nil),
		"findIndex": iterateArray(func(_ []any, i int, _, result any) (bool, any) {
			return Truthy(result), float64(i)
		}, -1.0),
		"some": iterateArray(func(_ []any, _ int, _, result any) (bool, any) {
			return Truthy(result), true
		}, false),
		"every": iterateArray(func(_ []any, _ int, _, result any) (bool, any) {
			return !Truthy(result), false
		}, true),
		"reduce": func(recv any, args []any) (any, error) {
			fn, err := callback(arg(args, 0))
			if err != nil {
				return nil, err
			}
			items := proxyOf(recv).Items()
			start := 0
			var acc any
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(items) == 0 {
					return nil, typeErrorf("reduce of empty array with no initial value")
				}
				acc, start = items[0], 1
			}
			for i := start; i < len(items); i++ {
				if acc, err = fn.Call(nil, []any{acc, items[i], float64(i), recv}); err != nil {
					return nil, err
				}
			}
			return acc, nil
		},
		"keys": func(recv any, args []any) (any, error) {
			n := proxyOf(recv).Len()
			out := make([]any, n)
			for i := range out {
				out[i] = float64(i)
			}
			return reactivity.NewArray(out...), nil
		},
		"entries": func(recv any, args []any) (any, error) {
			items := proxyOf(recv).Items()
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = reactivity.NewArray(float64(i), item)
			}
			return reactivity.NewArray(out...), nil
		},
		"toString": func(recv any, args []any) (any, error) {
			return ToString(recv), nil
		},
	}
}

// iterateArray builds a callback-driven search method. done reports whether
// to stop and the value to return; def is returned when nothing stops.
func iterateArray(done func(items []any, i int, item, result any) (bool, any), def any) method {
	return func(recv any, args []any) (any, error) {
		fn, err := callback(arg(args, 0))
		if err != nil {
			return nil, err
		}
		items := proxyOf(recv).Items()
		for i, item := range items {
			result, err := fn.Call(arg(args, 1), []any{item, float64(i), recv})
			if err != nil {
				return nil, err
			}
			if stop, v := done(items, i, item, result); stop {
				return v, nil
			}
		}
		return def, nil
	}
}

var collectionMethods = map[string]method{
	"get": func(recv any, args []any) (any, error) {
		return proxyOf(recv).Get(Normalize(arg(args, 0))), nil
	},
	"set": func(recv any, args []any) (any, error) {
		p := proxyOf(recv)
		p.Set(Normalize(arg(args, 0)), arg(args, 1))
		return p, nil
	},
	"add": func(recv any, args []any) (any, error) {
		p := proxyOf(recv)
		p.Add(Normalize(arg(args, 0)))
		return p, nil
	},
	"has": func(recv any, args []any) (any, error) {
		return proxyOf(recv).Has(Normalize(arg(args, 0))), nil
	},
	"delete": func(recv any, args []any) (any, error) {
		p := proxyOf(recv)
		k := Normalize(arg(args, 0))
		had := p.HasOwn(k)
		p.Delete(k)
		return had, nil
	},
	"clear": func(recv any, args []any) (any, error) {
		proxyOf(recv).Clear()
		return nil, nil
	},
	"forEach": func(recv any, args []any) (any, error) {
		fn, err := callback(arg(args, 0))
		if err != nil {
			return nil, err
		}
		return nil, proxyOf(recv).ForEach(func(value, key any) error {
			_, err := fn.Call(arg(args, 1), []any{value, key, recv})
			return err
		})
	},
	"keys": func(recv any, args []any) (any, error) {
		return reactivity.NewArray(proxyOf(recv).Keys()...), nil
	},
	"values": func(recv any, args []any) (any, error) {
		return reactivity.NewArray(proxyOf(recv).Values()...), nil
	},
	"entries": func(recv any, args []any) (any, error) {
		entries := proxyOf(recv).Entries()
		out := make([]any, len(entries))
		for i, e := range entries {
			out[i] = reactivity.NewArray(e[0], e[1])
		}
		return reactivity.NewArray(out...), nil
	},
}

var objectMethods = map[string]method{
	"hasOwnProperty": func(recv any, args []any) (any, error) {
		return proxyOf(recv).HasOwn(PropertyKey(arg(args, 0))), nil
	},
	"toString": func(recv any, args []any) (any, error) {
		return "[object Object]", nil
	},
}

func stringMember(s string, key any) any {
	switch k := key.(type) {
	case float64:
		runes := []rune(s)
		i := int(k)
		if float64(i) == k && i >= 0 && i < len(runes) {
			return string(runes[i])
		}
		return nil
	case string:
		if k == "length" {
			return float64(utf8.RuneCountInString(s))
		}
		if stringMethods[k] != nil {
			return boundMethod(s, k)
		}
	}
	return nil
}

func runeSlice(s string, start, end int) string {
	runes := []rune(s)
	start, end = max(min(start, len(runes)), 0), max(min(end, len(runes)), 0)
	if end < start {
		return ""
	}
	return string(runes[start:end])
}

func str(recv any) string {
	s, _ := recv.(string)
	return s
}

// runeIndex converts a byte offset into a rune offset.
func runeIndex(s string, byteIndex int) float64 {
	if byteIndex < 0 {
		return -1
	}
	return float64(utf8.RuneCountInString(s[:byteIndex]))
}

var stringMethods = map[string]method{
	"charAt": func(recv any, args []any) (any, error) {
		i := toInt(arg(args, 0), 0)
		return runeSlice(str(recv), i, i+1), nil
	},
	"at": func(recv any, args []any) (any, error) {
		s := str(recv)
		n := utf8.RuneCountInString(s)
		i := toInt(arg(args, 0), 0)
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, nil
		}
		return runeSlice(s, i, i+1), nil
	},
	"indexOf": func(recv any, args []any) (any, error) {
		s := str(recv)
		return runeIndex(s, strings.Index(s, ToString(arg(args, 0)))), nil
	},
	"lastIndexOf": func(recv any, args []any) (any, error) {
		s := str(recv)
		return runeIndex(s, strings.LastIndex(s, ToString(arg(args, 0)))), nil
	},
	"includes": func(recv any, args []any) (any, error) {
		return strings.Contains(str(recv), ToString(arg(args, 0))), nil
	},
	"startsWith": func(recv any, args []any) (any, error) {
		return strings.HasPrefix(str(recv), ToString(arg(args, 0))), nil
	},
	"endsWith": func(recv any, args []any) (any, error) {
		return strings.HasSuffix(str(recv), ToString(arg(args, 0))), nil
	},
	"slice": func(recv any, args []any) (any, error) {
		s := str(recv)
		n := utf8.RuneCountInString(s)
		return runeSlice(s, relIndex(arg(args, 0), n, 0), relIndex(arg(args, 1), n, n)), nil
	},
	"substring": func(recv any, args []any) (any, error) {
		s := str(recv)
		n := utf8.RuneCountInString(s)
		start := max(min(toInt(arg(args, 0), 0), n), 0)
		end := max(min(toInt(arg(args, 1), n), n), 0)
		if start > end {
			start, end = end, start
		}
		return runeSlice(s, start, end), nil
	},
	"toUpperCase": func(recv any, args []any) (any, error) {
		return strings.ToUpper(str(recv)), nil
	},
	"toLowerCase": func(recv any, args []any) (any, error) {
		return strings.ToLower(str(recv)), nil
	},
	"trim": func(recv any, args []any) (any, error) {
		return strings.TrimSpace(str(recv)), nil
	},
	"trimStart": func(recv any, args []any) (any, error) {
		return strings.TrimLeft(str(recv), " \t\n\r\f\v"), nil
	},
	"trimEnd": func(recv any, args []any) (any, error) {
		return strings.TrimRight(str(recv), " \t\n\r\f\v"), nil
	},
	"split": func(recv any, args []any) (any, error) {
		s := str(recv)
		if arg(args, 0) == nil {
			return reactivity.NewArray(s), nil
		}
		parts := strings.Split(s, ToString(args[0]))
		out := make([]any, len(parts))
		for i, part := range parts {
			out[i] = part
		}
		return reactivity.NewArray(out...), nil
	},
	"replace": func(recv any, args []any) (any, error) {
		return strings.Replace(str(recv), ToString(arg(args, 0)), ToString(arg(args, 1)), 1), nil
	},
	"replaceAll": func(recv any, args []any) (any, error) {
		return strings.ReplaceAll(str(recv), ToString(arg(args, 0)), ToString(arg(args, 1))), nil
	},
	"repeat": func(recv any, args []any) (any, error) {
		n := toInt(arg(args, 0), 0)
		if n < 0 {
			return nil, typeErrorf("invalid count value: %d", n)
		}
		return strings.Repeat(str(recv), n), nil
	},
	"padStart": func(recv any, args []any) (any, error) {
		return pad(str(recv), args, true), nil
	},
	"padEnd": func(recv any, args []any) (any, error) {
		return pad(str(recv), args, false), nil
	},
	"concat": func(recv any, args []any) (any, error) {
		var sb strings.Builder
		sb.WriteString(str(recv))
		for _, a := range args {
			sb.WriteString(ToString(a))
		}
		return sb.String(), nil
	},
	"toString": func(recv any, args []any) (any, error) {
		return str(recv), nil
	},
}

func pad(s string, args []any, start bool) string {
	width := toInt(arg(args, 0), 0)
	filler := " "
	if f := arg(args, 1); f != nil {
		filler = ToString(f)
	}
	n := utf8.RuneCountInString(s)
	if width <= n || filler == "" {
		return s
	}
	fill := []rune(strings.Repeat(filler, width-n))[:width-n]
	if start {
		return string(fill) + s
	}
	return s + string(fill)
}

var numberMethods = map[string]method{
	"toFixed": func(recv any, args []any) (any, error) {
		digits := toInt(arg(args, 0), 0)
		if digits < 0 || digits > 100 {
			return nil, typeErrorf("toFixed() digits argument must be between 0 and 100")
		}
		return strconv.FormatFloat(ToNumber(recv), 'f', digits, 64), nil
	},
	"toString": func(recv any, args []any) (any, error) {
		if radix := toInt(arg(args, 0), 10); radix != 10 {
			f := ToNumber(recv)
			if f == math.Trunc(f) && radix >= 2 && radix <= 36 {
				return strconv.FormatInt(int64(f), radix), nil
			}
		}
		return ToString(recv), nil
	},
}
