package expr

import (
	"fmt"
)

// Node is a parsed arithmetic expression.
type Node interface {
	eval(env Env) (float64, error)
	walkNames(fn func(string))
}

type numberNode struct{ v float64 }

type nameNode struct {
	name string
	pos  int
}

type unaryNode struct {
	op tokenKind
	x  Node
}

type binaryNode struct {
	op   tokenKind
	l, r Node
}

// parser is a recursive-descent parser over the grammar
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/' | '%') unary)*
//	unary   := ('+' | '-') unary | power
//	power   := primary ('**' unary)?
//	primary := NUMBER | IDENT | '(' expr ')'
//
// There is no call production: a name or group followed by '(' is an error.
type parser struct {
	toks []token
	pos  int
}

// Parse turns src into a Node without evaluating it.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at %d", ErrInvalidExpression, describe(t), t.pos)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokPlus && k != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: k, l: left, r: right}
	}
}

func (p *parser) term() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokStar && k != tokSlash && k != tokPercent {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: k, l: left, r: right}
	}
}

func (p *parser) unary() (Node, error) {
	if k := p.peek().kind; k == tokPlus || k == tokMinus {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: k, x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	// right operand goes through unary so that 2**-1 and 2**3**2 both work
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: tokPow, l: base, r: exp}, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	var n Node
	switch t.kind {
	case tokNumber:
		n = &numberNode{v: t.num}
	case tokIdent:
		n = &nameNode{name: t.text, pos: t.pos}
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')' at %d, found %s", ErrInvalidExpression, c.pos, describe(c))
		}
		n = inner
	default:
		return nil, fmt.Errorf("%w: unexpected %s at %d", ErrInvalidExpression, describe(t), t.pos)
	}
	if c := p.peek(); c.kind == tokLParen {
		return nil, fmt.Errorf("%w: function calls are not allowed (at %d)", ErrInvalidExpression, c.pos)
	}
	return n, nil
}

func describe(t token) string {
	if t.text == "" {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}
