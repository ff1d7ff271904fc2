package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Fielder exposes record fields to filter evaluation. List fields return one
// value per element; a comparison matches when any element matches.
type Fielder interface {
	Field(name string) ([]string, bool)
}

// Expr is a parsed filter expression.
type Expr interface {
	Match(rec Fielder) bool
	fields(into map[string]struct{})
}

// Fields lists the field names an expression refers to, sorted.
func Fields(e Expr) []string {
	set := map[string]struct{}{}
	e.fields(set)
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

type matchAll struct{}

func (matchAll) Match(Fielder) bool { return true }

func (matchAll) fields(map[string]struct{}) {}

type orExpr []Expr

func (o orExpr) Match(rec Fielder) bool {
	for _, e := range o {
		if e.Match(rec) {
			return true
		}
	}
	return false
}

func (o orExpr) fields(into map[string]struct{}) {
	for _, e := range o {
		e.fields(into)
	}
}

type andExpr []Expr

func (a andExpr) Match(rec Fielder) bool {
	for _, e := range a {
		if !e.Match(rec) {
			return false
		}
	}
	return true
}

func (a andExpr) fields(into map[string]struct{}) {
	for _, e := range a {
		e.fields(into)
	}
}

type cmpExpr struct {
	field string
	op    string
	value string
}

func (c cmpExpr) fields(into map[string]struct{}) { into[c.field] = struct{}{} }

func (c cmpExpr) Match(rec Fielder) bool {
	values, ok := rec.Field(c.field)
	if !ok {
		return false
	}
	switch c.op {
	case "!=":
		return !anyMatch(values, "=", c.value)
	case "!~":
		return !anyMatch(values, "~", c.value)
	default:
		return anyMatch(values, c.op, c.value)
	}
}

func anyMatch(values []string, op, want string) bool {
	for _, v := range values {
		if compare(v, op, want) {
			return true
		}
	}
	return false
}

func compare(have, op, want string) bool {
	if op == "~" {
		return strings.Contains(strings.ToLower(have), strings.ToLower(want))
	}
	hf, herr := strconv.ParseFloat(have, 64)
	wf, werr := strconv.ParseFloat(want, 64)
	numeric := herr == nil && werr == nil
	switch op {
	case "=":
		if numeric {
			return hf == wf
		}
		return have == want
	case ">", ">=", "<", "<=":
		var cmp int
		if numeric {
			switch {
			case hf < wf:
				cmp = -1
			case hf > wf:
				cmp = 1
			}
		} else {
			cmp = strings.Compare(have, want)
		}
		switch op {
		case ">":
			return cmp > 0
		case ">=":
			return cmp >= 0
		case "<":
			return cmp < 0
		default:
			return cmp <= 0
		}
	}
	return false
}

// ParseFilter parses a filter expression. An empty expression matches every
// record.
func ParseFilter(expr string) (Expr, error) {
	if strings.TrimSpace(expr) == "" {
		return matchAll{}, nil
	}
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: expr}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return e, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokLiteral
	tokOp
	tokAnd
	tokOr
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	r := []rune(src)
	for i := 0; i < len(r); {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{tokOpen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokClose, ")", i})
			i++
		case c == '&' || c == '|':
			if i+1 >= len(r) || r[i+1] != c {
				return nil, filterError(src, i, "expected %c%c", c, c)
			}
			kind := tokAnd
			if c == '|' {
				kind = tokOr
			}
			toks = append(toks, token{kind, string([]rune{c, c}), i})
			i += 2
		case c == '"' || c == '\'':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(r) {
				if r[i] == '\\' && i+1 < len(r) {
					b.WriteRune(r[i+1])
					i += 2
					continue
				}
				if r[i] == c {
					closed = true
					i++
					break
				}
				b.WriteRune(r[i])
				i++
			}
			if !closed {
				return nil, filterError(src, start, "unterminated string")
			}
			toks = append(toks, token{tokLiteral, b.String(), start})
		case strings.ContainsRune("=!~<>", c):
			start := i
			op := string(c)
			if i+1 < len(r) && (r[i+1] == '=' || (r[i+1] == '~' && c == '!')) {
				op += string(r[i+1])
			}
			switch op {
			case "=", "!=", "~", "!~", ">", ">=", "<", "<=":
			default:
				return nil, filterError(src, start, "unknown operator %q", op)
			}
			toks = append(toks, token{tokOp, op, start})
			i += len(op)
		case unicode.IsLetter(c) || c == '_' || unicode.IsDigit(c) || c == '-' || c == '.':
			start := i
			for i < len(r) && (unicode.IsLetter(r[i]) || unicode.IsDigit(r[i]) || r[i] == '_' || r[i] == '.' || r[i] == '-') {
				i++
			}
			text := string(r[start:i])
			kind := tokIdent
			if unicode.IsDigit(c) || c == '-' || text == "true" || text == "false" {
				kind = tokLiteral
			}
			toks = append(toks, token{kind, text, start})
		default:
			return nil, filterError(src, i, "unexpected character %q", c)
		}
	}
	return toks, nil
}

func filterError(src string, pos int, format string, args ...any) error {
	return &ValidationError{
		Field:  "filter",
		Value:  src,
		Reason: fmt.Sprintf("at %d: %s", pos, fmt.Sprintf(format, args...)),
	}
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token {
	if p.done() {
		return token{text: "end of filter", pos: len(p.src)}
	}
	return p.toks[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return filterError(p.src, p.peek().pos, format, args...)
}

func (p *parser) parseOr() (Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := orExpr{first}
	for !p.done() && p.peek().kind == tokOr {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) parseAnd() (Expr, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := andExpr{first}
	for !p.done() && p.peek().kind == tokAnd {
		p.pos++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) parseUnary() (Expr, error) {
	tok := p.peek()
	if p.done() {
		return nil, p.errorf("expected clause")
	}
	if tok.kind == tokOpen {
		p.pos++
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.done() || p.peek().kind != tokClose {
			return nil, p.errorf("expected )")
		}
		p.pos++
		return e, nil
	}
	if tok.kind != tokIdent {
		return nil, p.errorf("expected field name, got %q", tok.text)
	}
	p.pos++
	op := p.peek()
	if p.done() || op.kind != tokOp {
		return nil, p.errorf("expected operator after %q", tok.text)
	}
	p.pos++
	lit := p.peek()
	if p.done() || lit.kind != tokLiteral {
		return nil, p.errorf("expected value after %s", op.text)
	}
	p.pos++
	return cmpExpr{field: tok.text, op: op.text, value: lit.text}, nil
}
