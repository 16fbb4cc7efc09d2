package expr

import (
	"errors"
	"math"
	"strings"

	"github.com/delaneyj/vox/reactivity"
)

// Scope resolves free names of an expression. Assign reports false when the
// name could not be written.
type Scope interface {
	Lookup(name string) (any, bool)
	Assign(name string, value any) bool
}

type binding struct {
	value    any
	constant bool
}

type frame struct {
	vars    map[string]*binding
	parent  *frame
	this    any
	hasThis bool
}

func newFrame(parent *frame) *frame {
	return &frame{vars: map[string]*binding{}, parent: parent}
}

func (f *frame) lookup(name string) (*binding, bool) {
	for ; f != nil; f = f.parent {
		if b, ok := f.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// interp evaluates one program against a scope. this defaults to the scope.
type interp struct {
	scope Scope
	this  any
	calls int
}

// maxCalls bounds the depth of nested closure calls.
const maxCalls = 10_000

// errShortCircuit unwinds an optional chain whose base is nullish.
var errShortCircuit = errors.New("short circuit")

type control uint8

const (
	ctlNext control = iota
	ctlReturn
)

func (in *interp) thisValue(f *frame) any {
	for ; f != nil; f = f.parent {
		if f.hasThis {
			return f.this
		}
	}
	return in.this
}

// resolve finds a name, reporting where it came from so bare calls can bind
// this the way a with block does.
func (in *interp) resolve(f *frame, name string) (value any, fromScope bool, err error) {
	if b, ok := f.lookup(name); ok {
		return b.value, false, nil
	}
	if in.scope != nil {
		if v, ok := in.scope.Lookup(name); ok {
			return v, true, nil
		}
	}
	if v, ok := globals[name]; ok {
		return v, false, nil
	}
	return nil, false, referenceError(name)
}

func (in *interp) assignName(f *frame, name string, v any) error {
	if b, ok := f.lookup(name); ok {
		if b.constant {
			return typeErrorf("assignment to constant variable %s", name)
		}
		b.value = v
		return nil
	}
	if in.scope != nil {
		in.scope.Assign(name, v)
	}
	return nil
}

func (in *interp) eval(f *frame, n Node) (any, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case *Literal:
		return n.Value, nil
	case *Ident:
		v, _, err := in.resolve(f, n.Name)
		return v, err
	case *This:
		return in.thisValue(f), nil
	case *TemplateLit:
		var sb strings.Builder
		for i, q := range n.Quasis {
			sb.WriteString(q)
			if i < len(n.Exprs) {
				v, err := in.eval(f, n.Exprs[i])
				if err != nil {
					return nil, err
				}
				sb.WriteString(ToString(v))
			}
		}
		return sb.String(), nil
	case *ArrayLit:
		items, err := in.evalList(f, n.Elems)
		if err != nil {
			return nil, err
		}
		return reactivity.NewArray(items...), nil
	case *ObjectLit:
		return in.evalObject(f, n)
	case *FuncLit:
		return &Closure{fn: n, env: f, in: in}, nil
	case *Member:
		obj, err := in.eval(f, n.Object)
		if err != nil {
			return nil, err
		}
		if n.Optional && obj == nil {
			return nil, errShortCircuit
		}
		key, err := in.memberKey(f, n)
		if err != nil {
			return nil, err
		}
		return GetMember(obj, key)
	case *OptionalChain:
		v, err := in.eval(f, n.X)
		if errors.Is(err, errShortCircuit) {
			return nil, nil
		}
		return v, err
	case *Call:
		return in.call(f, n)
	case *New:
		callee, err := in.eval(f, n.Callee)
		if err != nil {
			return nil, err
		}
		args, err := in.evalList(f, n.Args)
		if err != nil {
			return nil, err
		}
		ctor, ok := callee.(*Builtin)
		if !ok {
			return nil, typeErrorf("%s is not a constructor", ToString(callee))
		}
		return ctor.Call(nil, args)
	case *Unary:
		return in.unary(f, n)
	case *Update:
		old, err := in.eval(f, n.Target)
		if err != nil {
			return nil, err
		}
		num := ToNumber(old)
		next := num + 1
		if n.Op == "--" {
			next = num - 1
		}
		if err := in.store(f, n.Target, next); err != nil {
			return nil, err
		}
		if n.Prefix {
			return next, nil
		}
		return num, nil
	case *Binary:
		l, err := in.eval(f, n.L)
		if err != nil {
			return nil, err
		}
		r, err := in.eval(f, n.R)
		if err != nil {
			return nil, err
		}
		return binaryOp(n.Op, l, r)
	case *Logical:
		l, err := in.eval(f, n.L)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "&&":
			if !Truthy(l) {
				return l, nil
			}
		case "||":
			if Truthy(l) {
				return l, nil
			}
		case "??":
			if l != nil {
				return l, nil
			}
		}
		return in.eval(f, n.R)
	case *Cond:
		test, err := in.eval(f, n.Test)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return in.eval(f, n.Then)
		}
		return in.eval(f, n.Else)
	case *Assign:
		return in.assign(f, n)
	case *Seq:
		var last any
		for _, x := range n.Exprs {
			v, err := in.eval(f, x)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	case *Spread:
		return nil, syntaxError("", 0, "unexpected spread")
	}
	return nil, syntaxError("", 0, "unknown node")
}

func (in *interp) evalList(f *frame, nodes []Node) ([]any, error) {
	out := make([]any, 0, len(nodes))
	for _, x := range nodes {
		if s, ok := x.(*Spread); ok {
			v, err := in.eval(f, s.Arg)
			if err != nil {
				return nil, err
			}
			items, err := Iterate(v)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
			continue
		}
		v, err := in.eval(f, x)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (in *interp) evalObject(f *frame, n *ObjectLit) (any, error) {
	obj := reactivity.NewObject()
	for _, prop := range n.Props {
		v, err := in.eval(f, prop.Value)
		if err != nil {
			return nil, err
		}
		if prop.Spread {
			if p, ok := asProxy(v); ok {
				for _, e := range p.Entries() {
					obj.Set(PropertyKey(e[0]), e[1])
				}
			}
			continue
		}
		key := prop.Key
		if prop.Computed != nil {
			k, err := in.eval(f, prop.Computed)
			if err != nil {
				return nil, err
			}
			key = PropertyKey(k)
		}
		obj.Set(key, v)
	}
	return obj, nil
}

func (in *interp) memberKey(f *frame, n *Member) (any, error) {
	if n.Computed == nil {
		return n.Prop, nil
	}
	return in.eval(f, n.Computed)
}

func (in *interp) call(f *frame, n *Call) (any, error) {
	var (
		callee any
		this   any
		err    error
	)
	switch c := n.Callee.(type) {
	case *Member:
		recv, err := in.eval(f, c.Object)
		if err != nil {
			return nil, err
		}
		if c.Optional && recv == nil {
			return nil, errShortCircuit
		}
		key, err := in.memberKey(f, c)
		if err != nil {
			return nil, err
		}
		args, err := in.evalList(f, n.Args)
		if err != nil {
			return nil, err
		}
		return CallMethod(recv, key, args, n.Optional)
	case *Ident:
		var fromScope bool
		callee, fromScope, err = in.resolve(f, c.Name)
		if err != nil {
			return nil, err
		}
		if fromScope {
			this = in.scope
		}
	default:
		if callee, err = in.eval(f, n.Callee); err != nil {
			return nil, err
		}
	}
	if callee == nil && n.Optional {
		return nil, errShortCircuit
	}
	args, err := in.evalList(f, n.Args)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(Callable)
	if !ok {
		return nil, typeErrorf("%s is not a function", describeCallee(n.Callee))
	}
	return fn.Call(this, args)
}

func describeCallee(n Node) string {
	switch c := n.(type) {
	case *Ident:
		return c.Name
	case *Member:
		if c.Computed == nil {
			return describeCallee(c.Object) + "." + c.Prop
		}
		return describeCallee(c.Object) + "[...]"
	case *This:
		return "this"
	}
	return "expression"
}

func (in *interp) unary(f *frame, n *Unary) (any, error) {
	switch n.Op {
	case "typeof":
		if id, ok := n.X.(*Ident); ok {
			v, _, err := in.resolve(f, id.Name)
			if err != nil {
				return "undefined", nil
			}
			return TypeOf(v), nil
		}
	case "delete":
		m, ok := n.X.(*Member)
		if !ok {
			return true, nil
		}
		obj, err := in.eval(f, m.Object)
		if err != nil {
			return nil, err
		}
		key, err := in.memberKey(f, m)
		if err != nil {
			return nil, err
		}
		if p, ok := asProxy(obj); ok {
			return p.Delete(key), nil
		}
		return true, nil
	}
	v, err := in.eval(f, n.X)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "!":
		return !Truthy(v), nil
	case "-":
		return -ToNumber(v), nil
	case "+":
		return ToNumber(v), nil
	case "void":
		return nil, nil
	case "typeof":
		return TypeOf(v), nil
	}
	return nil, syntaxError("", 0, "unknown operator "+n.Op)
}

func (in *interp) assign(f *frame, n *Assign) (any, error) {
	if n.Op == "=" {
		v, err := in.eval(f, n.Value)
		if err != nil {
			return nil, err
		}
		return v, in.store(f, n.Target, v)
	}
	old, err := in.eval(f, n.Target)
	if err != nil {
		return nil, err
	}
	var v any
	switch n.Op {
	case "&&=", "||=", "??=":
		keep := (n.Op == "&&=" && !Truthy(old)) ||
			(n.Op == "||=" && Truthy(old)) ||
			(n.Op == "??=" && old != nil)
		if keep {
			return old, nil
		}
		if v, err = in.eval(f, n.Value); err != nil {
			return nil, err
		}
	default:
		r, err := in.eval(f, n.Value)
		if err != nil {
			return nil, err
		}
		if v, err = binaryOp(strings.TrimSuffix(n.Op, "="), old, r); err != nil {
			return nil, err
		}
	}
	return v, in.store(f, n.Target, v)
}

func (in *interp) store(f *frame, target Node, v any) error {
	switch t := target.(type) {
	case *Ident:
		return in.assignName(f, t.Name, v)
	case *Member:
		obj, err := in.eval(f, t.Object)
		if err != nil {
			return err
		}
		key, err := in.memberKey(f, t)
		if err != nil {
			return err
		}
		return SetMember(obj, key, v)
	}
	return syntaxError("", 0, "invalid assignment target")
}

func binaryOp(op string, l, r any) (any, error) {
	switch op {
	case "+":
		l, r = toPrimitive(l), toPrimitive(r)
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return ToString(l) + ToString(r), nil
		}
		return ToNumber(l) + ToNumber(r), nil
	case "-":
		return ToNumber(l) - ToNumber(r), nil
	case "*":
		return ToNumber(l) * ToNumber(r), nil
	case "/":
		return ToNumber(l) / ToNumber(r), nil
	case "%":
		return math.Mod(ToNumber(l), ToNumber(r)), nil
	case "**":
		return math.Pow(ToNumber(l), ToNumber(r)), nil
	case "==":
		return LooseEquals(l, r), nil
	case "!=":
		return !LooseEquals(l, r), nil
	case "===":
		return StrictEquals(l, r), nil
	case "!==":
		return !StrictEquals(l, r), nil
	case "<", ">", "<=", ">=":
		return compare(op, l, r), nil
	case "in":
		p, ok := asProxy(r)
		if !ok {
			return nil, typeErrorf("cannot use 'in' operator to search for %s", ToString(l))
		}
		return p.Has(l), nil
	case "instanceof":
		return false, nil
	}
	return nil, syntaxError("", 0, "unknown operator "+op)
}

// toPrimitive renders containers as strings so + concatenates them.
func toPrimitive(v any) any {
	if reactivity.IsContainer(v) {
		return ToString(v)
	}
	return Normalize(v)
}

func compare(op string, l, r any) bool {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs
		case ">":
			return ls > rs
		case "<=":
			return ls <= rs
		}
		return ls >= rs
	}
	a, b := ToNumber(l), ToNumber(r)
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	}
	return a >= b
}

func (in *interp) exec(f *frame, stmts []Stmt) (control, any, error) {
	for _, s := range stmts {
		ctl, v, err := in.execStmt(f, s)
		if err != nil || ctl == ctlReturn {
			return ctl, v, err
		}
	}
	return ctlNext, nil, nil
}

func (in *interp) execStmt(f *frame, s Stmt) (control, any, error) {
	switch s := s.(type) {
	case *Empty:
		return ctlNext, nil, nil
	case *ExprStmt:
		_, err := in.eval(f, s.X)
		return ctlNext, nil, err
	case *VarDecl:
		for i, name := range s.Names {
			v, err := in.eval(f, s.Inits[i])
			if err != nil {
				return ctlNext, nil, err
			}
			f.vars[name] = &binding{value: v, constant: s.Kind == "const"}
		}
		return ctlNext, nil, nil
	case *Return:
		v, err := in.eval(f, s.X)
		return ctlReturn, v, err
	case *Throw:
		v, err := in.eval(f, s.X)
		if err != nil {
			return ctlNext, nil, err
		}
		return ctlNext, nil, &Thrown{Value: v}
	case *If:
		test, err := in.eval(f, s.Test)
		if err != nil {
			return ctlNext, nil, err
		}
		if Truthy(test) {
			return in.execStmt(f, s.Then)
		}
		if s.Else != nil {
			return in.execStmt(f, s.Else)
		}
		return ctlNext, nil, nil
	case *Block:
		return in.exec(newFrame(f), s.Body)
	case *ForOf:
		iter, err := in.eval(f, s.Iter)
		if err != nil {
			return ctlNext, nil, err
		}
		items, err := Iterate(iter)
		if err != nil {
			return ctlNext, nil, err
		}
		for _, item := range items {
			loop := newFrame(f)
			loop.vars[s.Name] = &binding{value: item, constant: s.Kind == "const"}
			ctl, v, err := in.execStmt(loop, s.Body)
			if err != nil || ctl == ctlReturn {
				return ctl, v, err
			}
		}
		return ctlNext, nil, nil
	}
	return ctlNext, nil, syntaxError("", 0, "unknown statement")
}

// Closure is a function defined by an expression.
type Closure struct {
	fn  *FuncLit
	env *frame
	in  *interp
}

func (c *Closure) Call(this any, args []any) (any, error) {
	if c.in.calls >= maxCalls {
		return nil, rangeErrorf("maximum call stack size exceeded")
	}
	c.in.calls++
	defer func() { c.in.calls-- }()

	f := newFrame(c.env)
	if !c.fn.Arrow {
		f.this, f.hasThis = this, true
	}
	for i, name := range c.fn.Params {
		f.vars[name] = &binding{value: arg(args, i)}
	}
	if c.fn.Rest != "" {
		var rest []any
		if len(args) > len(c.fn.Params) {
			rest = args[len(c.fn.Params):]
		}
		f.vars[c.fn.Rest] = &binding{value: reactivity.NewArray(rest...)}
	}
	if c.fn.Name != "" && !c.fn.Arrow {
		if _, ok := f.vars[c.fn.Name]; !ok {
			f.vars[c.fn.Name] = &binding{value: c}
		}
	}
	if c.fn.Body == nil {
		return c.in.eval(f, c.fn.Expr)
	}
	_, v, err := c.in.exec(f, c.fn.Body)
	return v, err
}

func (c *Closure) String() string {
	if c.fn.Name != "" {
		return "function " + c.fn.Name
	}
	return "function"
}
