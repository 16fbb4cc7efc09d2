package vox

import (
	"regexp"
	"slices"
	"strings"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
)

// directiveRE matches vox, vox:name, vox:name:key and trailing .flag or
// .flag:value parts.
var directiveRE = regexp.MustCompile(`^vox(?::([a-z-]+)([:a-z0-9-]+)?([.:a-z0-9-]+)?)?$`)

type flag struct {
	name  string
	value string
}

type directive struct {
	attr  string
	name  string
	key   string
	flags []flag
	expr  string
	order int
}

func (d directive) flag(name string) (string, bool) {
	for _, f := range d.flags {
		if f.name == name {
			return f.value, true
		}
	}
	return "", false
}

func (d directive) has(name string) bool {
	_, ok := d.flag(name)
	return ok
}

// Processing order. Names not listed sort with the bindings, before exit.
var directiveOrder = map[string]int{
	"skip": 0,
	"vox":  1,
	"for":  2,
	"if":   3,
	"el":   4,
	"is":   4,
	"init": 5,
	"exit": 7,
}

const bindingOrder = 6

// parseDirective splits an attribute name into directive parts. ok is
// false for attributes that are not directives.
func parseDirective(attr string) (directive, bool) {
	m := directiveRE.FindStringSubmatch(attr)
	if m == nil {
		return directive{}, false
	}
	d := directive{attr: attr, name: m[1]}
	if d.name == "" {
		d.name = "vox"
	}
	if m[2] != "" {
		d.key = m[2][1:]
	}
	for _, part := range strings.Split(m[3], ".") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, ":")
		if value == "" {
			value = name
		}
		if i := slices.IndexFunc(d.flags, func(f flag) bool { return f.name == name }); i >= 0 {
			d.flags[i].value = value
			continue
		}
		d.flags = append(d.flags, flag{name: name, value: value})
	}
	d.order = bindingOrder
	if o, ok := directiveOrder[d.name]; ok {
		d.order = o
	}
	return d, true
}

// attrSource is the part of an element directives are read from.
type attrSource interface {
	AttributeNames() []string
	GetAttribute(name string) (string, bool)
}

// parseDirectives lists the directives of an element in processing order.
// Directives of the same rank keep attribute order.
func parseDirectives(el attrSource) []directive {
	var dirs []directive
	for _, attr := range el.AttributeNames() {
		d, ok := parseDirective(attr)
		if !ok {
			continue
		}
		v, _ := el.GetAttribute(attr)
		d.expr = strings.TrimSpace(v)
		dirs = append(dirs, d)
	}
	slices.SortStableFunc(dirs, func(a, b directive) int {
		return a.order - b.order
	})
	return dirs
}

// camelize turns foo-bar into fooBar.
func camelize(s string) string {
	parts := strings.Split(s, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// hyphenate turns fooBar into foo-bar.
func hyphenate(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// propertyAliases maps lower-case directive names to element properties.
var propertyAliases = map[string]string{
	"accept-charset":  "acceptCharset",
	"accesskey":       "accessKey",
	"colspan":         "colSpan",
	"contenteditable": "contentEditable",
	"crossorigin":     "crossOrigin",
	"dirname":         "dirName",
	"enterkeyhint":    "enterKeyHint",
	"formaction":      "formAction",
	"formenctype":     "formEnctype",
	"formmethod":      "formMethod",
	"formnovalidate":  "formNoValidate",
	"formtarget":      "formTarget",
	"html":            "innerHTML",
	"http-equiv":      "httpEquiv",
	"inputmode":       "inputMode",
	"ismap":           "isMap",
	"maxlength":       "maxLength",
	"minlength":       "minLength",
	"nomodule":        "noModule",
	"novalidate":      "noValidate",
	"readonly":        "readOnly",
	"referrerpolicy":  "referrerPolicy",
	"tabindex":        "tabIndex",
	"text":            "textContent",
	"usemap":          "useMap",
}

// Directive describes one directive attribute of an element.
type Directive struct {
	Attr  string
	Name  string
	Key   string
	Flags []string
	Expr  string
	Order int
}

// Directives lists the directives of el in processing order. Flags with a
// value read name:value.
func Directives(el *dom.Node) []Directive {
	dirs := parseDirectives(el)
	out := make([]Directive, len(dirs))
	for i, d := range dirs {
		flags := make([]string, len(d.flags))
		for j, f := range d.flags {
			flags[j] = f.name
			if f.value != f.name {
				flags[j] += ":" + f.value
			}
		}
		out[i] = Directive{Attr: d.attr, Name: d.name, Key: d.key, Flags: flags, Expr: d.expr, Order: d.order}
	}
	return out
}

// Check compiles the directive's expression the way processing would,
// without evaluating it.
func (d Directive) Check() error {
	src := d.Expr
	switch d.Name {
	case "for":
		lv, err := parseFor(src)
		if err != nil {
			return err
		}
		src = lv.source
	case "init", "exit", "run":
		_, err := expr.CompileFunc(src)
		return err
	case "event":
		if d.Key == "" {
			break
		}
		_, err := expr.CompileFunc(src, "event")
		return err
	default:
		if strings.HasPrefix(d.Name, "on") {
			_, err := expr.CompileFunc(src, "event")
			return err
		}
	}
	_, err := expr.Compile(src)
	return err
}
