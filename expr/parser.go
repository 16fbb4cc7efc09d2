package expr

import "fmt"

type parser struct {
	src    string
	tokens []token
	pos    int
	depth  int
}

// maxNesting bounds the nesting of expressions and statements.
const maxNesting = 500

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"==": 6, "!=": 6, "===": 6, "!==": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7, "in": 7, "instanceof": 7,
	"+": 8, "-": 8,
	"*": 9, "/": 9, "%": 9,
	"**": 10,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "&&=": true, "||=": true, "??=": true,
}

func newParser(src string) (*parser, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, tokens: tokens}, nil
}

// parseExpression parses a whole source as one expression. An empty source
// yields nil.
func parseExpression(src string) (Node, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	if p.at(tokEOF) {
		return nil, nil
	}
	n, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.eat(";")
	if !p.at(tokEOF) {
		return nil, p.unexpected()
	}
	return n, nil
}

func parseStatements(src string) ([]Stmt, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	var body []Stmt
	for !p.at(tokEOF) {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	return body, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind) bool {
	return p.peek().kind == kind
}

func (p *parser) is(text string) bool {
	t := p.peek()
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *parser) eat(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.eat(text) {
		return p.errorf("expected %q", text)
	}
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return syntaxError(p.src, p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *parser) unexpected() error {
	t := p.peek()
	switch t.kind {
	case tokEOF:
		return p.errorf("unexpected end of input")
	case tokString, tokTemplate:
		return p.errorf("unexpected string")
	case tokNumber:
		return p.errorf("unexpected number %s", t.text)
	}
	return p.errorf("unexpected token %q", t.text)
}

func (p *parser) ident() (string, error) {
	t := p.peek()
	if t.kind != tokIdent || reserved[t.text] {
		return "", p.unexpected()
	}
	p.next()
	return t.text, nil
}

var reserved = map[string]bool{
	"true": true, "false": true, "null": true, "this": true, "function": true,
	"typeof": true, "void": true, "delete": true, "new": true, "in": true,
	"instanceof": true, "let": true, "const": true, "var": true, "if": true,
	"else": true, "return": true, "throw": true, "for": true,
}

// endStatement applies automatic semicolon insertion.
func (p *parser) endStatement() error {
	if p.eat(";") {
		return nil
	}
	t := p.peek()
	if t.kind == tokEOF || t.nl || p.is("}") {
		return nil
	}
	return p.unexpected()
}

// enter records one more level of nesting; callers defer leave.
func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return p.errorf("nested too deeply")
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) statement() (Stmt, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	t := p.peek()
	if t.kind == tokPunct {
		switch t.text {
		case ";":
			p.next()
			return &Empty{}, nil
		case "{":
			return p.block()
		}
	}
	if t.kind == tokIdent {
		switch t.text {
		case "let", "const", "var":
			decl, err := p.varDecl()
			if err != nil {
				return nil, err
			}
			return decl, p.endStatement()
		case "if":
			return p.ifStatement()
		case "for":
			return p.forOf()
		case "return":
			p.next()
			r := &Return{}
			nt := p.peek()
			if nt.kind != tokEOF && !nt.nl && !p.is(";") && !p.is("}") {
				x, err := p.expression()
				if err != nil {
					return nil, err
				}
				r.X = x
			}
			return r, p.endStatement()
		case "throw":
			p.next()
			x, err := p.expression()
			if err != nil {
				return nil, err
			}
			return &Throw{X: x}, p.endStatement()
		}
	}
	x, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{X: x}, p.endStatement()
}

func (p *parser) block() (*Block, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	b := &Block{}
	for !p.is("}") {
		if p.at(tokEOF) {
			return nil, p.unexpected()
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		b.Body = append(b.Body, s)
	}
	p.next()
	return b, nil
}

func (p *parser) varDecl() (*VarDecl, error) {
	decl := &VarDecl{Kind: p.next().text}
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		var init Node
		if p.eat("=") {
			if init, err = p.assignment(); err != nil {
				return nil, err
			}
		} else if decl.Kind == "const" {
			return nil, p.errorf("missing initializer in const declaration")
		}
		decl.Names = append(decl.Names, name)
		decl.Inits = append(decl.Inits, init)
		if !p.eat(",") {
			return decl, nil
		}
	}
}

func (p *parser) ifStatement() (Stmt, error) {
	p.next()
	if err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	s := &If{Test: test}
	if s.Then, err = p.statement(); err != nil {
		return nil, err
	}
	if p.eat("else") {
		if s.Else, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) forOf() (Stmt, error) {
	p.next()
	if err := p.expect("("); err != nil {
		return nil, err
	}
	s := &ForOf{}
	if p.is("let") || p.is("const") || p.is("var") {
		s.Kind = p.next().text
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	s.Name = name
	if err := p.expect("of"); err != nil {
		return nil, err
	}
	if s.Iter, err = p.expression(); err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if s.Body, err = p.statement(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) expression() (Node, error) {
	first, err := p.assignment()
	if err != nil {
		return nil, err
	}
	if !p.is(",") {
		return first, nil
	}
	seq := &Seq{Exprs: []Node{first}}
	for p.eat(",") {
		x, err := p.assignment()
		if err != nil {
			return nil, err
		}
		seq.Exprs = append(seq.Exprs, x)
	}
	return seq, nil
}

func (p *parser) assignment() (Node, error) {
	if fn, ok, err := p.tryArrow(); ok || err != nil {
		return fn, err
	}
	left, err := p.conditional()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokPunct && assignOps[t.text] {
		switch left.(type) {
		case *Ident, *Member:
		default:
			return nil, p.errorf("invalid assignment target")
		}
		p.next()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		return &Assign{Op: t.text, Target: left, Value: value}, nil
	}
	return left, nil
}

// tryArrow parses an arrow function when one starts at the current token.
func (p *parser) tryArrow() (Node, bool, error) {
	t := p.peek()
	switch {
	case t.kind == tokIdent && !reserved[t.text] && p.peekAt(1).text == "=>" && p.peekAt(1).kind == tokPunct:
		p.next()
		p.next()
		fn := &FuncLit{Arrow: true, Params: []string{t.text}}
		return fn, true, p.arrowBody(fn)
	case t.kind == tokPunct && t.text == "(":
		end := p.matching(p.pos)
		if end < 0 || end+1 >= len(p.tokens) {
			return nil, false, nil
		}
		arrow := p.tokens[end+1]
		if arrow.kind != tokPunct || arrow.text != "=>" {
			return nil, false, nil
		}
		fn := &FuncLit{Arrow: true}
		if err := p.params(fn); err != nil {
			return nil, true, err
		}
		p.next()
		return fn, true, p.arrowBody(fn)
	}
	return nil, false, nil
}

// matching returns the index of the bracket closing the one at i.
func (p *parser) matching(i int) int {
	depth := 0
	for j := i; j < len(p.tokens); j++ {
		t := p.tokens[j]
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// params parses a parenthesised parameter list, consuming both parens.
func (p *parser) params(fn *FuncLit) error {
	if err := p.expect("("); err != nil {
		return err
	}
	for !p.eat(")") {
		if p.eat("...") {
			name, err := p.ident()
			if err != nil {
				return err
			}
			fn.Rest = name
			return p.expect(")")
		}
		name, err := p.ident()
		if err != nil {
			return err
		}
		fn.Params = append(fn.Params, name)
		if !p.is(")") {
			if err := p.expect(","); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) arrowBody(fn *FuncLit) error {
	if p.is("{") {
		b, err := p.block()
		if err != nil {
			return err
		}
		fn.Body = b.Body
		return nil
	}
	x, err := p.assignment()
	fn.Expr = x
	return err
}

func (p *parser) function() (Node, error) {
	p.next()
	fn := &FuncLit{}
	if p.at(tokIdent) && !p.is("(") {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		fn.Name = name
	}
	if err := p.params(fn); err != nil {
		return nil, err
	}
	b, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = b.Body
	return fn, nil
}

func (p *parser) conditional() (Node, error) {
	test, err := p.binary(1)
	if err != nil {
		return nil, err
	}
	if !p.eat("?") {
		return test, nil
	}
	then, err := p.assignment()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.assignment()
	if err != nil {
		return nil, err
	}
	return &Cond{Test: test, Then: then, Else: els}, nil
}

func (p *parser) binary(minPrec int) (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct && t.kind != tokIdent {
			return left, nil
		}
		prec, ok := binaryPrec[t.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		next := prec + 1
		if t.text == "**" {
			next = prec
		}
		right, err := p.binary(next)
		if err != nil {
			return nil, err
		}
		switch t.text {
		case "&&", "||", "??":
			left = &Logical{Op: t.text, L: left, R: right}
		default:
			left = &Binary{Op: t.text, L: left, R: right}
		}
	}
}

func (p *parser) unary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	t := p.peek()
	if t.kind == tokPunct || t.kind == tokIdent {
		switch t.text {
		case "!", "-", "+", "typeof", "void", "delete":
			if t.kind == tokIdent && t.text != "typeof" && t.text != "void" && t.text != "delete" {
				break
			}
			p.next()
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			return &Unary{Op: t.text, X: x}, nil
		case "++", "--":
			if t.kind != tokPunct {
				break
			}
			p.next()
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			if !assignable(x) {
				return nil, p.errorf("invalid update target")
			}
			return &Update{Op: t.text, Prefix: true, Target: x}, nil
		}
	}
	return p.postfix()
}

func assignable(n Node) bool {
	switch n.(type) {
	case *Ident, *Member:
		return true
	}
	return false
}

func (p *parser) postfix() (Node, error) {
	x, err := p.callMember()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokPunct && (t.text == "++" || t.text == "--") && !t.nl {
		if !assignable(x) {
			return nil, p.errorf("invalid update target")
		}
		p.next()
		return &Update{Op: t.text, Target: x}, nil
	}
	return x, nil
}

func (p *parser) callMember() (Node, error) {
	var (
		x   Node
		err error
	)
	if p.is("new") {
		p.next()
		callee, err := p.primary()
		if err != nil {
			return nil, err
		}
		for p.is(".") {
			p.next()
			name, err := p.propertyName()
			if err != nil {
				return nil, err
			}
			callee = &Member{Object: callee, Prop: name}
		}
		n := &New{Callee: callee}
		if p.is("(") {
			if n.Args, err = p.arguments(); err != nil {
				return nil, err
			}
		}
		x = n
	} else if x, err = p.primary(); err != nil {
		return nil, err
	}

	optional := false
	for {
		t := p.peek()
		if t.kind != tokPunct {
			break
		}
		switch t.text {
		case ".":
			p.next()
			name, err := p.propertyName()
			if err != nil {
				return nil, err
			}
			x = &Member{Object: x, Prop: name}
		case "?.":
			p.next()
			optional = true
			switch {
			case p.is("("):
				args, err := p.arguments()
				if err != nil {
					return nil, err
				}
				x = &Call{Callee: x, Args: args, Optional: true}
			case p.is("["):
				p.next()
				key, err := p.expression()
				if err != nil {
					return nil, err
				}
				if err := p.expect("]"); err != nil {
					return nil, err
				}
				x = &Member{Object: x, Computed: key, Optional: true}
			default:
				name, err := p.propertyName()
				if err != nil {
					return nil, err
				}
				x = &Member{Object: x, Prop: name, Optional: true}
			}
		case "[":
			p.next()
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &Member{Object: x, Computed: key}
		case "(":
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			x = &Call{Callee: x, Args: args}
		default:
			if optional {
				return &OptionalChain{X: x}, nil
			}
			return x, nil
		}
	}
	if optional {
		return &OptionalChain{X: x}, nil
	}
	return x, nil
}

// propertyName accepts any identifier, reserved words included.
func (p *parser) propertyName() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", p.unexpected()
	}
	p.next()
	return t.text, nil
}

func (p *parser) arguments() ([]Node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []Node
	for !p.eat(")") {
		arg, err := p.element()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.is(")") {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	return args, nil
}

// element parses an argument or array element, which may be spread.
func (p *parser) element() (Node, error) {
	if p.eat("...") {
		arg, err := p.assignment()
		if err != nil {
			return nil, err
		}
		return &Spread{Arg: arg}, nil
	}
	return p.assignment()
}

func (p *parser) primary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return &Literal{Value: t.num}, nil
	case tokString:
		p.next()
		return &Literal{Value: t.text}, nil
	case tokTemplate:
		p.next()
		return p.template(t)
	case tokIdent:
		switch t.text {
		case "true":
			p.next()
			return &Literal{Value: true}, nil
		case "false":
			p.next()
			return &Literal{Value: false}, nil
		case "null", "undefined":
			p.next()
			return &Literal{}, nil
		case "this":
			p.next()
			return &This{}, nil
		case "function":
			return p.function()
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &Ident{Name: name}, nil
	case tokPunct:
		switch t.text {
		case "(":
			p.next()
			x, err := p.expression()
			if err != nil {
				return nil, err
			}
			return x, p.expect(")")
		case "[":
			return p.array()
		case "{":
			return p.object()
		}
	}
	return nil, p.unexpected()
}

func (p *parser) template(t token) (Node, error) {
	n := &TemplateLit{Quasis: t.quasis}
	for _, e := range t.exprs {
		x, err := parseExpression(e.src)
		if err != nil {
			if perr, ok := err.(*Error); ok {
				perr.Source, perr.Pos = p.src, e.pos+perr.Pos
			}
			return nil, err
		}
		if x == nil {
			return nil, syntaxError(p.src, e.pos, "empty template substitution")
		}
		n.Exprs = append(n.Exprs, x)
	}
	return n, nil
}

func (p *parser) array() (Node, error) {
	p.next()
	arr := &ArrayLit{}
	for !p.eat("]") {
		if p.is(",") {
			p.next()
			arr.Elems = append(arr.Elems, &Literal{})
			continue
		}
		el, err := p.element()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, el)
		if !p.is("]") {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	return arr, nil
}

func (p *parser) object() (Node, error) {
	p.next()
	obj := &ObjectLit{}
	for !p.eat("}") {
		prop, err := p.property()
		if err != nil {
			return nil, err
		}
		obj.Props = append(obj.Props, prop)
		if !p.is("}") {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	return obj, nil
}

func (p *parser) property() (Property, error) {
	var prop Property
	if p.eat("...") {
		arg, err := p.assignment()
		prop.Spread, prop.Value = true, arg
		return prop, err
	}
	t := p.peek()
	switch {
	case t.kind == tokIdent || t.kind == tokString:
		p.next()
		prop.Key = t.text
	case t.kind == tokNumber:
		p.next()
		prop.Key = FormatNumber(t.num)
	case p.is("["):
		p.next()
		key, err := p.assignment()
		if err != nil {
			return prop, err
		}
		if err := p.expect("]"); err != nil {
			return prop, err
		}
		prop.Computed = key
	default:
		return prop, p.unexpected()
	}

	switch {
	case p.eat(":"):
		value, err := p.assignment()
		prop.Value = value
		return prop, err
	case p.is("("):
		fn := &FuncLit{Name: prop.Key}
		if err := p.params(fn); err != nil {
			return prop, err
		}
		b, err := p.block()
		if err != nil {
			return prop, err
		}
		fn.Body = b.Body
		prop.Value = fn
		return prop, nil
	}
	if t.kind != tokIdent || reserved[t.text] || prop.Computed != nil {
		return prop, p.unexpected()
	}
	prop.Value = &Ident{Name: t.text}
	return prop, nil
}
