package expr

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokPow
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number"
	case tokIdent:
		return "name"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokPercent:
		return "'%'"
	case tokPow:
		return "'**'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits src into tokens. Anything outside the arithmetic alphabet is
// rejected here, so the parser never sees a dot, comma, quote or bracket.
func lex(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(rune(src[i+1]))):
			j := scanNumber(src, i)
			v, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrInvalidExpression, src[i:j], i)
			}
			out = append(out, token{kind: tokNumber, text: src[i:j], num: v, pos: i})
			i = j
		case r == '_' || unicode.IsLetter(r):
			j := i + size
			for j < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[j:])
				if r2 != '_' && !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				j += s2
			}
			out = append(out, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case r == '*':
			if i+1 < len(src) && src[i+1] == '*' {
				out = append(out, token{kind: tokPow, text: "**", pos: i})
				i += 2
				continue
			}
			out = append(out, token{kind: tokStar, text: "*", pos: i})
			i++
		case r == '/':
			if i+1 < len(src) && src[i+1] == '/' {
				return nil, fmt.Errorf("%w: floor division is not supported (at %d)", ErrInvalidExpression, i)
			}
			out = append(out, token{kind: tokSlash, text: "/", pos: i})
			i++
		case r == '+':
			out = append(out, token{kind: tokPlus, text: "+", pos: i})
			i++
		case r == '-':
			out = append(out, token{kind: tokMinus, text: "-", pos: i})
			i++
		case r == '%':
			out = append(out, token{kind: tokPercent, text: "%", pos: i})
			i++
		case r == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '.':
			return nil, fmt.Errorf("%w: attribute access is not allowed (at %d)", ErrInvalidExpression, i)
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrInvalidExpression, r, i)
		}
	}
	out = append(out, token{kind: tokEOF, pos: len(src)})
	return out, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// scanNumber returns the end offset of the numeric literal starting at i:
// digits, an optional fraction and an optional exponent.
func scanNumber(src string, i int) int {
	j := i
	for j < len(src) && isDigit(rune(src[j])) {
		j++
	}
	if j < len(src) && src[j] == '.' {
		j++
		for j < len(src) && isDigit(rune(src[j])) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(rune(src[k])) {
			for k < len(src) && isDigit(rune(src[k])) {
				k++
			}
			j = k
		}
	}
	return j
}
