package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokTemplate
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
	// nl is set when a line break precedes the token.
	nl bool
	// template literal pieces: len(quasis) == len(exprs)+1
	quasis []string
	exprs  []templateExpr
}

type templateExpr struct {
	src string
	pos int
}

// punctuators sorted longest first
var punctuators = []string{
	"===", "!==", "**=", "...", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "**",
	"+", "-", "*", "/", "%", "<", ">", "=", "!", "?", ":", ".", ",", ";",
	"(", ")", "[", "]", "{", "}",
}

func lex(src string) ([]token, error) {
	var (
		tokens []token
		nl     bool
	)
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			nl = true
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r':
			i++
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, syntaxError(src, i, "unterminated comment")
			}
			if strings.Contains(src[i:i+2+end], "\n") {
				nl = true
			}
			i += end + 4
			continue
		}

		start := i
		tok := token{pos: start, nl: nl}
		nl = false

		switch {
		case isIdentStart(src, i):
			for i < len(src) && isIdentPart(src, i) {
				_, size := utf8.DecodeRuneInString(src[i:])
				i += size
			}
			tok.kind, tok.text = tokIdent, src[start:i]
		case c >= '0' && c <= '9' || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			n, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			i = next
			tok.kind, tok.text, tok.num = tokNumber, src[start:i], n
		case c == '"' || c == '\'':
			s, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			i = next
			tok.kind, tok.text = tokString, s
		case c == '`':
			quasis, exprs, next, err := lexTemplate(src, i)
			if err != nil {
				return nil, err
			}
			i = next
			tok.kind, tok.quasis, tok.exprs = tokTemplate, quasis, exprs
		default:
			matched := ""
			for _, p := range punctuators {
				if strings.HasPrefix(src[i:], p) {
					matched = p
					break
				}
			}
			// a?.5:1 is a conditional, not optional chaining
			if matched == "?." && i+2 < len(src) && isDigit(src[i+2]) {
				matched = "?"
			}
			if matched == "" {
				return nil, syntaxError(src, i, fmt.Sprintf("unexpected character %q", c))
			}
			i += len(matched)
			tok.kind, tok.text = tokPunct, matched
		}
		tokens = append(tokens, tok)
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src), nl: nl})
	return tokens, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(src string, i int) bool {
	r, _ := utf8.DecodeRuneInString(src[i:])
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(src string, i int) bool {
	r, _ := utf8.DecodeRuneInString(src[i:])
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lexNumber(src string, i int) (float64, int, error) {
	start := i
	if src[i] == '0' && i+1 < len(src) && (src[i+1] == 'x' || src[i+1] == 'X') {
		i += 2
		for i < len(src) && strings.IndexByte("0123456789abcdefABCDEF_", src[i]) >= 0 {
			i++
		}
		n, err := strconv.ParseInt(strings.ReplaceAll(src[start+2:i], "_", ""), 16, 64)
		if err != nil {
			return 0, i, syntaxError(src, start, "invalid number")
		}
		return float64(n), i, nil
	}
	for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			i = j
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(src[start:i], "_", ""), 64)
	if err != nil {
		return 0, i, syntaxError(src, start, "invalid number")
	}
	return n, i, nil
}

func lexString(src string, i int) (string, int, error) {
	quote := src[i]
	start := i
	i++
	var sb strings.Builder
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return sb.String(), i + 1, nil
		case c == '\\':
			r, next, err := lexEscape(src, i)
			if err != nil {
				return "", i, err
			}
			sb.WriteString(r)
			i = next
		case c == '\n':
			return "", i, syntaxError(src, start, "unterminated string")
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", i, syntaxError(src, start, "unterminated string")
}

func lexEscape(src string, i int) (string, int, error) {
	if i+1 >= len(src) {
		return "", i, syntaxError(src, i, "bad escape")
	}
	c := src[i+1]
	switch c {
	case 'n':
		return "\n", i + 2, nil
	case 't':
		return "\t", i + 2, nil
	case 'r':
		return "\r", i + 2, nil
	case 'b':
		return "\b", i + 2, nil
	case 'f':
		return "\f", i + 2, nil
	case 'v':
		return "\v", i + 2, nil
	case '0':
		return "\x00", i + 2, nil
	case '\n':
		return "", i + 2, nil
	case 'u':
		if i+6 <= len(src) {
			n, err := strconv.ParseUint(src[i+2:i+6], 16, 32)
			if err == nil {
				return string(rune(n)), i + 6, nil
			}
		}
		return "", i, syntaxError(src, i, "bad unicode escape")
	case 'x':
		if i+4 <= len(src) {
			n, err := strconv.ParseUint(src[i+2:i+4], 16, 8)
			if err == nil {
				return string(rune(n)), i + 4, nil
			}
		}
		return "", i, syntaxError(src, i, "bad hex escape")
	}
	return string(c), i + 2, nil
}

// lexTemplate splits a template literal into its literal pieces and the
// source of each ${} substitution.
func lexTemplate(src string, i int) ([]string, []templateExpr, int, error) {
	start := i
	i++
	var (
		quasis []string
		exprs  []templateExpr
		sb     strings.Builder
	)
	for i < len(src) {
		c := src[i]
		switch {
		case c == '`':
			quasis = append(quasis, sb.String())
			return quasis, exprs, i + 1, nil
		case c == '\\':
			r, next, err := lexEscape(src, i)
			if err != nil {
				return nil, nil, i, err
			}
			sb.WriteString(r)
			i = next
		case c == '$' && i+1 < len(src) && src[i+1] == '{':
			quasis = append(quasis, sb.String())
			sb.Reset()
			exprStart := i + 2
			depth := 1
			j := exprStart
			for j < len(src) && depth > 0 {
				switch src[j] {
				case '{':
					depth++
				case '}':
					depth--
				case '"', '\'':
					_, next, err := lexString(src, j)
					if err != nil {
						return nil, nil, j, err
					}
					j = next - 1
				case '`':
					_, _, next, err := lexTemplate(src, j)
					if err != nil {
						return nil, nil, j, err
					}
					j = next - 1
				}
				j++
			}
			if depth != 0 {
				return nil, nil, i, syntaxError(src, i, "unterminated template substitution")
			}
			exprs = append(exprs, templateExpr{src: src[exprStart : j-1], pos: exprStart})
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return nil, nil, i, syntaxError(src, start, "unterminated template")
}
