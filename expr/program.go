package expr

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Program is a compiled expression or function body. Programs are immutable
// and safe to share between goroutines.
type Program struct {
	Source string
	Params []string
	expr   Node
	body   []Stmt
	isFunc bool
}

var (
	cache     sync.Map
	cacheSize atomic.Int64
)

// Compile parses src as a single expression. The empty source evaluates to
// nil.
func Compile(src string) (*Program, error) {
	return compile(src, nil, false)
}

// CompileFunc parses src as the statement body of a function taking params.
// The program's value is whatever the body returns.
func CompileFunc(src string, params ...string) (*Program, error) {
	return compile(src, params, true)
}

func cacheKey(src string, params []string, isFunc bool) uint64 {
	d := xxhash.New()
	if isFunc {
		d.WriteString("f:")
		d.WriteString(strings.Join(params, ","))
	} else {
		d.WriteString("e:")
	}
	d.WriteString("\x00")
	d.WriteString(src)
	return d.Sum64()
}

func compile(src string, params []string, isFunc bool) (*Program, error) {
	key := cacheKey(src, params, isFunc)
	if v, ok := cache.Load(key); ok {
		p := v.(*Program)
		if p.Source == src && p.isFunc == isFunc && slices.Equal(p.Params, params) {
			return p, nil
		}
	}
	p := &Program{Source: src, Params: slices.Clone(params), isFunc: isFunc}
	var err error
	if isFunc {
		p.body, err = parseStatements(src)
	} else {
		p.expr, err = parseExpression(src)
	}
	if err != nil {
		return nil, err
	}
	if _, loaded := cache.LoadOrStore(key, p); !loaded {
		cacheSize.Add(1)
	}
	return p, nil
}

// CacheLen reports how many programs have been compiled and cached.
func CacheLen() int {
	return int(cacheSize.Load())
}

// Run evaluates the program with this bound to the scope. Positional args
// bind to the parameters of a function program.
func (p *Program) Run(s Scope, args ...any) (any, error) {
	locals := make(map[string]any, len(p.Params))
	for i, name := range p.Params {
		locals[name] = arg(args, i)
	}
	return p.RunWith(s, locals)
}

// RunWith evaluates the program with extra local bindings that shadow the
// scope.
func (p *Program) RunWith(s Scope, locals map[string]any) (any, error) {
	in := &interp{scope: s, this: s}
	f := newFrame(nil)
	for name, v := range locals {
		f.vars[name] = &binding{value: v}
	}
	if !p.isFunc {
		return in.eval(f, p.expr)
	}
	_, v, err := in.exec(f, p.body)
	return v, err
}

// Eval compiles and runs an expression in one step.
func Eval(src string, s Scope) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Run(s)
}
