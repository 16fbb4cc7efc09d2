package dom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type propKind uint8

const (
	stringProp propKind = iota
	boolProp
	intProp
)

type reflectedProp struct {
	attr string
	kind propKind
}

// reflected lists the element properties that mirror an attribute.
var reflected = map[string]reflectedProp{
	"accessKey":       {"accesskey", stringProp},
	"acceptCharset":   {"accept-charset", stringProp},
	"alt":             {"alt", stringProp},
	"className":       {"class", stringProp},
	"colSpan":         {"colspan", intProp},
	"contentEditable": {"contenteditable", stringProp},
	"crossOrigin":     {"crossorigin", stringProp},
	"dir":             {"dir", stringProp},
	"dirName":         {"dirname", stringProp},
	"disabled":        {"disabled", boolProp},
	"enterKeyHint":    {"enterkeyhint", stringProp},
	"formAction":      {"formaction", stringProp},
	"formEnctype":     {"formenctype", stringProp},
	"formMethod":      {"formmethod", stringProp},
	"formNoValidate":  {"formnovalidate", boolProp},
	"formTarget":      {"formtarget", stringProp},
	"hidden":          {"hidden", boolProp},
	"href":            {"href", stringProp},
	"htmlFor":         {"for", stringProp},
	"httpEquiv":       {"http-equiv", stringProp},
	"id":              {"id", stringProp},
	"inputMode":       {"inputmode", stringProp},
	"isMap":           {"ismap", boolProp},
	"lang":            {"lang", stringProp},
	"maxLength":       {"maxlength", intProp},
	"minLength":       {"minlength", intProp},
	"name":            {"name", stringProp},
	"noModule":        {"nomodule", boolProp},
	"noValidate":      {"novalidate", boolProp},
	"placeholder":     {"placeholder", stringProp},
	"readOnly":        {"readonly", boolProp},
	"referrerPolicy":  {"referrerpolicy", stringProp},
	"required":        {"required", boolProp},
	"src":             {"src", stringProp},
	"tabIndex":        {"tabindex", intProp},
	"title":           {"title", stringProp},
	"type":            {"type", stringProp},
	"useMap":          {"usemap", stringProp},
}

// live lists properties whose state starts from an attribute and then
// lives on the element.
var live = map[string]reflectedProp{
	"value":    {"value", stringProp},
	"checked":  {"checked", boolProp},
	"selected": {"selected", boolProp},
}

// IsBuiltinProperty reports whether name is one of the element properties
// the package implements, as opposed to a value stored on the element.
func IsBuiltinProperty(name string) bool {
	switch name {
	case "textContent", "innerHTML", "innerText", "outerHTML", "tagName", "nodeName":
		return true
	}
	_, ok := reflected[name]
	if !ok {
		_, ok = live[name]
	}
	return ok
}

// HasProperty reports whether name is a known element property or one
// previously set on n.
func (n *Node) HasProperty(name string) bool {
	if n.Type != ElementNode {
		return false
	}
	if IsBuiltinProperty(name) {
		return true
	}
	_, ok := n.props[name]
	return ok
}

// GetProperty reads an element property.
func (n *Node) GetProperty(name string) (any, bool) {
	switch name {
	case "textContent", "innerText":
		return n.TextContent(), true
	case "innerHTML":
		return n.InnerHTML(), true
	case "outerHTML":
		return n.OuterHTML(), true
	case "tagName", "nodeName":
		if n.Type == ElementNode {
			return strings.ToUpper(n.Tag), true
		}
		return n.String(), true
	}
	if v, ok := n.props[name]; ok {
		return v, true
	}
	if p, ok := live[name]; ok {
		return n.readAttr(p), true
	}
	if p, ok := reflected[name]; ok {
		return n.readAttr(p), true
	}
	return nil, false
}

func (n *Node) readAttr(p reflectedProp) any {
	v, ok := n.GetAttribute(p.attr)
	switch p.kind {
	case boolProp:
		return ok
	case intProp:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return float64(i)
		}
		if p.attr == "tabindex" {
			switch n.Tag {
			case "a", "button", "input", "select", "textarea":
				return float64(0)
			}
			return float64(-1)
		}
		return float64(0)
	}
	return v
}

// SetProperty writes an element property. Reflected properties update
// their attribute; unknown names are stored on the element.
func (n *Node) SetProperty(name string, value any) error {
	switch name {
	case "textContent", "innerText":
		n.SetTextContent(propText(value))
		return nil
	case "innerHTML":
		return n.SetInnerHTML(propText(value))
	case "outerHTML", "tagName", "nodeName":
		return fmt.Errorf("property %s is read-only", name)
	}
	if p, ok := live[name]; ok {
		if n.props == nil {
			n.props = map[string]any{}
		}
		switch p.kind {
		case boolProp:
			n.props[name] = propBool(value)
		default:
			n.props[name] = propText(value)
		}
		n.doc.touch()
		return nil
	}
	if p, ok := reflected[name]; ok {
		switch p.kind {
		case boolProp:
			if propBool(value) {
				n.setAttr(p.attr, "")
			} else {
				n.RemoveAttribute(p.attr)
			}
		case intProp:
			f, _ := value.(float64)
			if i, ok := value.(int); ok {
				f = float64(i)
			}
			n.setAttr(p.attr, strconv.Itoa(int(f)))
		default:
			n.SetAttribute(p.attr, propText(value))
		}
		return nil
	}
	if n.props == nil {
		n.props = map[string]any{}
	}
	n.props[name] = value
	n.doc.touch()
	return nil
}

func propBool(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	}
	return true
}

func propText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e21 {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
