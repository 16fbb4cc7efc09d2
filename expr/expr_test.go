package expr_test

import (
	"math"
	"strings"
	"testing"

	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/reactivity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateScope resolves names against one reactive record.
type stateScope struct {
	state *reactivity.Proxy
}

func (s *stateScope) Lookup(name string) (any, bool) {
	if !s.state.HasOwn(name) {
		return nil, false
	}
	return s.state.Get(name), true
}

func (s *stateScope) Assign(name string, value any) bool {
	return s.state.Set(name, value)
}

func newScope(kv ...any) (*reactivity.System, *stateScope) {
	rs := reactivity.CreateReactiveSystem(nil)
	return rs, &stateScope{state: rs.ReactiveObject(reactivity.ObjectOf(kv...))}
}

func eval(t *testing.T, s expr.Scope, src string) any {
	t.Helper()
	v, err := expr.Eval(src, s)
	require.NoError(t, err, src)
	return v
}

// should evaluate operators with their usual precedence
func TestArithmeticAndLogic(t *testing.T) {
	_, s := newScope("a", 2.0, "b", "x")
	cases := map[string]any{
		"1 + 2 * 3":         7.0,
		"(1 + 2) * 3":       9.0,
		"2 ** 3 ** 2":       512.0,
		"7 % 4":             3.0,
		"a + 1":             3.0,
		"b + a":             "x2",
		"'n' + 1 + 2":       "n12",
		"a > 1 && b":        "x",
		"0 || 'fallback'":   "fallback",
		"null ?? 'd'":       "d",
		"0 ?? 'd'":          0.0,
		"!a":                false,
		"-a":                -2.0,
		"typeof a":          "number",
		"typeof missing":    "undefined",
		"a === 2":           true,
		"'2' == a":          true,
		"'2' === a":         false,
		"a ? 'yes' : 'no'":  "yes",
		"`v=${a * 2}!`":     "v=4!",
		"[1, 2, 3].length":  3.0,
		"'héllo'.length":    5.0,
		"'abc'[1]":          "b",
		"1, 2, 3":           3.0,
		"void 0":            nil,
		"'a' in { a: 1 }":   true,
		"10 / 4":            2.5,
		"0.1 + 0.2 > 0.3":   true,
		"'b' > 'a'":         true,
		"Math.max(1, a, 3)": 3.0,
	}
	for src, want := range cases {
		assert.Equal(t, want, eval(t, s, src), src)
	}
	assert.True(t, math.IsNaN(eval(t, s, "1 - 'x'").(float64)))
}

// should evaluate an empty expression to nil
func TestEmptyExpression(t *testing.T) {
	assert.Nil(t, eval(t, nil, ""))
	assert.Nil(t, eval(t, nil, "   "))
}

// should write assignments through the scope
func TestAssignment(t *testing.T) {
	_, s := newScope("count", 1.0)
	assert.Equal(t, 2.0, eval(t, s, "count++ + 1"))
	assert.Equal(t, 2.0, s.state.Get("count"))
	eval(t, s, "count += 10")
	assert.Equal(t, 12.0, s.state.Get("count"))
	eval(t, s, "this.count = 0")
	assert.Equal(t, 0.0, s.state.Get("count"))
	eval(t, s, "count ||= 5")
	assert.Equal(t, 5.0, s.state.Get("count"))
}

// should read and write nested members and optional chains
func TestMembers(t *testing.T) {
	_, s := newScope("user", reactivity.ObjectOf("name", "ada", "tags", reactivity.NewArray("a")))
	assert.Equal(t, "ada", eval(t, s, "user.name"))
	assert.Equal(t, "ada", eval(t, s, "user['na' + 'me']"))
	assert.Nil(t, eval(t, s, "user.missing?.deep.deeper"))
	assert.Nil(t, eval(t, s, "user.missing?.()"))

	eval(t, s, "user.tags.push('b')")
	assert.Equal(t, "a,b", eval(t, s, "user.tags.join()"))

	_, err := expr.Eval("user.missing.deep", s)
	assert.ErrorIs(t, err, expr.ErrType)
}

// should report unknown names as reference errors
func TestReferenceError(t *testing.T) {
	_, err := expr.Eval("nope + 1", nil)
	assert.ErrorIs(t, err, expr.ErrReference)

	_, err = expr.Eval("nope()", nil)
	assert.ErrorIs(t, err, expr.ErrReference)

	_, err = expr.Eval("(1)()", nil)
	assert.ErrorIs(t, err, expr.ErrType)
}

// should reject malformed sources with a positioned syntax error
func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{"1 +", "(a", "'open", "a b", "{ a: }", "1 = 2"} {
		_, err := expr.Compile(src)
		require.Error(t, err, src)
		assert.ErrorIs(t, err, expr.ErrSyntax, src)
		var e *expr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, src, e.Source)
	}
}

// should run function bodies with locals, closures and returns
func TestFunctionBodies(t *testing.T) {
	_, s := newScope("items", reactivity.NewArray(1.0, 2.0, 3.0))
	p, err := expr.CompileFunc(`
		const double = x => x * 2
		let total = 0
		for (const item of items) {
			total += double(item)
		}
		if (total > 10) return 'big'
		return total
	`)
	require.NoError(t, err)
	v, err := p.Run(s)
	require.NoError(t, err)
	assert.Equal(t, "big", v)

	p, err = expr.CompileFunc("return event.type + ':' + n", "event", "n")
	require.NoError(t, err)
	v, err = p.Run(s, reactivity.ObjectOf("type", "click"), 3.0)
	require.NoError(t, err)
	assert.Equal(t, "click:3", v)
}

// should refuse to reassign a const
func TestConstAssignment(t *testing.T) {
	p, err := expr.CompileFunc("const x = 1; x = 2")
	require.NoError(t, err)
	_, err = p.Run(nil)
	assert.ErrorIs(t, err, expr.ErrType)
}

// should surface thrown values as errors
func TestThrow(t *testing.T) {
	p, err := expr.CompileFunc("throw 'bad'")
	require.NoError(t, err)
	_, err = p.Run(nil)
	var thrown *expr.Thrown
	require.ErrorAs(t, err, &thrown)
	assert.Equal(t, "bad", thrown.Value)
}

// should bind this to the receiver of method calls
func TestMethodThis(t *testing.T) {
	_, s := newScope("counter", nil)
	eval(t, s, "counter = { n: 1, inc() { this.n++; return this.n } }")
	assert.Equal(t, 2.0, eval(t, s, "counter.inc()"))
	assert.Equal(t, 2.0, eval(t, s, "counter.n"))
}

// should bind this to the scope for bare calls of scope functions
func TestBareCallThis(t *testing.T) {
	_, s := newScope("n", 5.0, "get", nil)
	eval(t, s, "get = function () { return this.n }")
	assert.Equal(t, 5.0, eval(t, s, "get()"))
}

// should track reads made while evaluating inside an effect
func TestEvaluationTracks(t *testing.T) {
	rs, s := newScope("count", 1.0)
	p, err := expr.Compile("count * 2")
	require.NoError(t, err)

	seen := []any{}
	_, err = rs.Effect(func() error {
		v, err := p.Run(s)
		seen = append(seen, v)
		return err
	})
	require.NoError(t, err)

	eval(t, s, "count = 2")
	assert.Equal(t, []any{2.0, 4.0}, seen)
}

// should reuse compiled programs for identical sources
func TestCompileCache(t *testing.T) {
	a, err := expr.Compile("1 + cached")
	require.NoError(t, err)
	b, err := expr.Compile("1 + cached")
	require.NoError(t, err)
	assert.Same(t, a, b)

	f, err := expr.CompileFunc("1 + cached")
	require.NoError(t, err)
	assert.NotSame(t, a, f)
	assert.Positive(t, expr.CacheLen())
}

// should provide array, string and collection helpers
func TestBuiltins(t *testing.T) {
	_, s := newScope()
	cases := map[string]any{
		"[3, 1, 2].map(x => x * 2).join('-')":                "6-2-4",
		"[3, 1, 2].filter(x => x > 1).length":                2.0,
		"[3, 1, 2].sort().join()":                            "1,2,3",
		"[3, 1, 2].sort((a, b) => b - a).join()":             "3,2,1",
		"[1, 2, 3].reduce((a, b) => a + b)":                  6.0,
		"[1, 2, 3].find(x => x > 1)":                         2.0,
		"[1, 2, 3].findIndex(x => x > 5)":                    -1.0,
		"[1, 2, 3].some(x => x > 2)":                         true,
		"[1, 2, 3].every(x => x > 2)":                        false,
		"[1, 2, 3].indexOf(2)":                               1.0,
		"[1, 2, 3].slice(-2).join()":                         "2,3",
		"[1, [2, 3]].length":                                 2.0,
		"[...[1, 2], 3].length":                              3.0,
		"' pad '.trim().toUpperCase()":                       "PAD",
		"'a,b'.split(',').length":                            2.0,
		"'5'.padStart(3, '0')":                               "005",
		"'abc'.slice(1)":                                     "bc",
		"(1.005).toFixed(1)":                                 "1.0",
		"new Map([['a', 1]]).get('a')":                       1.0,
		"new Set([1, 1, 2]).size":                            2.0,
		"Object.keys({ a: 1, b: 2 }).join()":                 "a,b",
		"Object.entries({ a: 1 })[0][1]":                     1.0,
		"Array.isArray([])":                                  true,
		"Array.from({ length: 3 }, (_, i) => i).join()":      "0,1,2",
		"JSON.stringify({ a: [1, 'x', true, null] })":        `{"a":[1,"x",true,null]}`,
		"JSON.parse('{\"a\": {\"b\": [1, 2]}}').a.b[1]":      2.0,
		"parseInt('42px')":                                   42.0,
		"parseFloat('3.5em')":                                3.5,
		"Number('')":                                         0.0,
		"String(12)":                                         "12",
		"Math.floor(Math.random() * 1) === 0":                true,
		"isNaN('x')":                                         true,
		"({ ...{ a: 1 }, b: 2 }).a":                          1.0,
		"Object.assign({}, { a: 1 }).a":                      1.0,
		"(function f(n) { return n < 2 ? n : f(n - 1) })(5)": 1.0,
	}
	for src, want := range cases {
		assert.Equal(t, want, eval(t, s, src), src)
	}

	_, err := expr.Eval("JSON.parse('{bad')", s)
	assert.ErrorIs(t, err, expr.ErrSyntax)
}

// should terminate statements on newlines
func TestAutomaticSemicolons(t *testing.T) {
	_, s := newScope("a", 1.0, "b", 1.0)
	p, err := expr.CompileFunc("a = 2\nb = 3\n;a++\n")
	require.NoError(t, err)
	_, err = p.Run(s)
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.state.Get("a"))
	assert.Equal(t, 3.0, s.state.Get("b"))
}

// should parse arrows with parenthesised parameter lists anywhere an expression goes
func TestArrowParams(t *testing.T) {
	_, s := newScope("apply", nil, "handlers", nil)
	eval(t, s, "apply = (f, ...rest) => f(...rest)")
	cases := map[string]any{
		"(() => 1)()":                        1.0,
		"((a) => a + 1)(1)":                  2.0,
		"((a, b) => a * b)(2, 3)":            6.0,
		"((...xs) => xs.length)(1, 2, 3)":    3.0,
		"((a, ...xs) => a + xs[1])(1, 2, 3)": 4.0,
		"[1, 2].map(() => 7)[1]":             7.0,
		"apply((a, b) => a - b, 5, 3)":       2.0,
		"({ a: () => 9 }).a()":               9.0,
		"((a) => { return a * 10 })(2)":      20.0,
	}
	for src, want := range cases {
		assert.Equal(t, want, eval(t, s, src), src)
	}
	eval(t, s, "handlers = { tap: () => 'tapped', hold: (e) => e }")
	assert.Equal(t, "tapped", eval(t, s, "handlers.tap()"))
	assert.Equal(t, "x", eval(t, s, "handlers.hold('x')"))
}

// should fail runaway recursion and deep nesting with errors instead of crashing
func TestDepthLimits(t *testing.T) {
	p, err := expr.CompileFunc("const g = x => g(x); return g(1)")
	require.NoError(t, err)
	_, err = p.Run(nil)
	assert.ErrorIs(t, err, expr.ErrRange)

	p, err = expr.CompileFunc("const down = n => n === 0 ? 'done' : down(n - 1); return down(100)")
	require.NoError(t, err)
	v, err := p.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	_, err = expr.Compile(strings.Repeat("(", 10_000) + "1" + strings.Repeat(")", 10_000))
	assert.ErrorIs(t, err, expr.ErrSyntax)
	_, err = expr.CompileFunc(strings.Repeat("{", 10_000) + strings.Repeat("}", 10_000))
	assert.ErrorIs(t, err, expr.ErrSyntax)
}

// should raise a range error for array writes far past the end
func TestArrayWriteRange(t *testing.T) {
	_, s := newScope("items", reactivity.NewArray(1.0))
	_, err := expr.Eval("items[2000000000] = 1", s)
	assert.ErrorIs(t, err, expr.ErrRange)
	_, err = expr.Eval("items.length = 2000000000", s)
	assert.ErrorIs(t, err, expr.ErrRange)
	assert.Equal(t, 3.0, eval(t, s, "items[2] = 3, items.length"))
}
