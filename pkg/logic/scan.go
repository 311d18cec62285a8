package logic

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokPath tokenKind = iota
	tokNumber
	tokString
	tokCompare
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokComma
)

// token is a lexeme of the evaluator's expression dialect.
// For strings, value holds the unescaped contents.
type token struct {
	kind  tokenKind
	text  string
	value string
	pos   int
}

// scan splits an expression into tokens. It only knows enough of the
// dialect to decompile flat chains and to normalize predicate calls.
func scan(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '&' || c == '|':
			if i+1 >= len(src) || src[i+1] != c {
				return nil, fmt.Errorf("unexpected %q at %d", c, i)
			}
			kind := tokAnd
			if c == '|' {
				kind = tokOr
			}
			toks = append(toks, token{kind: kind, text: src[i : i+2], pos: i})
			i += 2
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{kind: tokCompare, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			switch c {
			case '<', '>':
				toks = append(toks, token{kind: tokCompare, text: string(c), pos: i})
			case '!':
				toks = append(toks, token{kind: tokNot, text: "!", pos: i})
			default:
				return nil, fmt.Errorf("unexpected %q at %d", c, i)
			}
			i++
		case c == '\'' || c == '"':
			end, value, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: src[i:end], value: value, pos: i})
			i = end
		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			i++
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		case isPathStart(c):
			start := i
			for i < len(src) && isPathChar(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokPath, text: src[start:i], pos: start})
		default:
			return nil, fmt.Errorf("unexpected %q at %d", c, i)
		}
	}
	return toks, nil
}

func scanString(src string, start int) (int, string, error) {
	quote := src[start]
	var sb strings.Builder
	for i := start + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			i++
			sb.WriteByte(src[i])
		case c == quote:
			return i + 1, sb.String(), nil
		default:
			sb.WriteByte(c)
		}
	}
	return 0, "", fmt.Errorf("unterminated string at %d", start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isPathStart(c byte) bool {
	return c == '_' || c == '$' || c == '@' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isPathChar(c byte) bool {
	return isPathStart(c) || isDigit(c) || c == '.' || c == '[' || c == ']' || c == '*'
}
