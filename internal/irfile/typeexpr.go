package irfile

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// ExprKind selects the shape of a type expression.
type ExprKind uint8

const (
	ExprPath    ExprKind = iota // u32, Vec, common::Vec, Slice<u8>, T
	ExprPointer                 // *T, *mut T
	ExprArray                   // [T; N]
	ExprFn                      // fn(A, B) -> R
)

// Expr is a parsed type expression. The grammar is the spelling that
// types.Graph.TypeString produces:
//
//	type := "*" ["mut" | "const"] type
//	      | "[" type ";" int "]"
//	      | "fn" "(" [type {"," type}] ")" ["->" type]
//	      | path ["<" type {"," type} ">"]
//	path := ident {"::" ident}
type Expr struct {
	Kind    ExprKind
	Path    string
	Args    []*Expr
	Elem    *Expr
	Mutable bool
	Len     uint32
	Params  []*Expr
	Ret     *Expr
}

// String renders the expression back in canonical spelling.
func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	switch e.Kind {
	case ExprPointer:
		if e.Mutable {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*")
		}
		e.Elem.write(b)
	case ExprArray:
		b.WriteByte('[')
		e.Elem.write(b)
		fmt.Fprintf(b, "; %d]", e.Len)
	case ExprFn:
		b.WriteString("fn(")
		for i, p := range e.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			p.write(b)
		}
		b.WriteByte(')')
		if e.Ret != nil {
			b.WriteString(" -> ")
			e.Ret.write(b)
		}
	default:
		b.WriteString(e.Path)
		if len(e.Args) > 0 {
			b.WriteByte('<')
			for i, a := range e.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				a.write(b)
			}
			b.WriteByte('>')
		}
	}
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
}

// lex splits a type expression into identifiers, integers and punctuation.
// "::" and "->" are single tokens.
func lex(s string) ([]token, error) {
	var out []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			out = append(out, token{kind: tokIdent, text: s[i:j], pos: i})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			out = append(out, token{kind: tokInt, text: s[i:j], pos: i})
			i = j
		case strings.HasPrefix(s[i:], "::"), strings.HasPrefix(s[i:], "->"):
			out = append(out, token{kind: tokPunct, text: s[i : i+2], pos: i})
			i += 2
		case strings.IndexByte("*<>,[];()", c) >= 0:
			out = append(out, token{kind: tokPunct, text: s[i : i+1], pos: i})
			i++
		default:
			return nil, fmt.Errorf("col %d: unexpected %q", i+1, c)
		}
	}
	return append(out, token{kind: tokEOF, pos: len(s)}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }

type exprParser struct {
	toks []token
	pos  int
}

// ParseType parses a single type expression.
func ParseType(s string) (*Expr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	e, err := p.typ()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q after type", t.text)
	}
	return e, nil
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) errorf(t token, format string, args ...any) error {
	return fmt.Errorf("col %d: %s", t.pos+1, fmt.Sprintf(format, args...))
}

func (p *exprParser) accept(punct string) bool {
	if t := p.peek(); t.kind == tokPunct && t.text == punct {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expect(punct string) error {
	if p.accept(punct) {
		return nil
	}
	t := p.peek()
	if t.kind == tokEOF {
		return p.errorf(t, "expected %q, found end of input", punct)
	}
	return p.errorf(t, "expected %q, found %q", punct, t.text)
}

func (p *exprParser) typ() (*Expr, error) {
	t := p.peek()
	switch {
	case t.kind == tokPunct && t.text == "*":
		p.next()
		e := &Expr{Kind: ExprPointer}
		if q := p.peek(); q.kind == tokIdent && (q.text == "mut" || q.text == "const") {
			p.next()
			e.Mutable = q.text == "mut"
		}
		elem, err := p.typ()
		if err != nil {
			return nil, err
		}
		e.Elem = elem
		return e, nil

	case t.kind == tokPunct && t.text == "[":
		p.next()
		elem, err := p.typ()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		n := p.next()
		if n.kind != tokInt {
			return nil, p.errorf(n, "array length must be an integer")
		}
		v, err := strconv.ParseUint(n.text, 10, 64)
		if err != nil {
			return nil, p.errorf(n, "array length %s: %v", n.text, err)
		}
		length, err := safecast.Conv[uint32](v)
		if err != nil {
			return nil, p.errorf(n, "array length %s is out of range", n.text)
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprArray, Elem: elem, Len: length}, nil

	case t.kind == tokIdent && t.text == "fn":
		p.next()
		if err := p.expect("("); err != nil {
			return nil, err
		}
		e := &Expr{Kind: ExprFn}
		if !p.accept(")") {
			params, err := p.list(")")
			if err != nil {
				return nil, err
			}
			e.Params = params
		}
		if p.accept("->") {
			ret, err := p.typ()
			if err != nil {
				return nil, err
			}
			e.Ret = ret
		}
		return e, nil

	case t.kind == tokIdent:
		return p.path()
	case t.kind == tokEOF:
		return nil, p.errorf(t, "expected a type, found end of input")
	}
	return nil, p.errorf(t, "expected a type, found %q", t.text)
}

func (p *exprParser) path() (*Expr, error) {
	parts := []string{p.next().text}
	for p.accept("::") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected a name after \"::\"")
		}
		parts = append(parts, t.text)
	}
	e := &Expr{Kind: ExprPath, Path: strings.Join(parts, "::")}
	if p.accept("<") {
		args, err := p.list(">")
		if err != nil {
			return nil, err
		}
		e.Args = args
	}
	return e, nil
}

// list parses comma-separated types up to and including the closing token.
func (p *exprParser) list(closing string) ([]*Expr, error) {
	var out []*Expr
	for {
		e, err := p.typ()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.accept(closing) {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}
