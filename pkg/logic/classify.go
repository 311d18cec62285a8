package logic

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is the editing mode an expression can be opened in.
type Mode string

const (
	// ModeVisual means the expression is shown as a condition tree.
	ModeVisual Mode = "VISUAL"
	// ModeRaw means the expression is edited as plain text.
	ModeRaw Mode = "RAW"
)

// RootID is the id given to the root group of decompiled trees.
const RootID = "root"

// Classify decides whether an existing expression may be edited visually.
// Any parenthesis or pipe forces raw mode; other text is visual only when it
// is a flat "&&" chain of comparisons that Decompile understands.
func Classify(expr string) Mode {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ModeVisual
	}
	if strings.ContainsAny(expr, "(|") {
		return ModeRaw
	}
	if _, ok := Decompile(expr); !ok {
		return ModeRaw
	}
	return ModeVisual
}

// Decompile rebuilds a tree from a flat chain of infix comparisons joined by
// "&&". It returns false for anything richer; callers fall back to raw text.
// The result is always an AND group with id RootID.
func Decompile(expr string) (*Node, bool) {
	root := NewGroup(RootID, And)
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return root, true
	}
	if strings.ContainsAny(expr, "(|") {
		return nil, false
	}

	toks, err := scan(expr)
	if err != nil {
		return nil, false
	}

	var segment []token
	flush := func() bool {
		rule, ok := decompileComparison(segment, len(root.Children)+1)
		if !ok {
			return false
		}
		root.Children = append(root.Children, rule)
		segment = segment[:0]
		return true
	}
	for _, tok := range toks {
		if tok.kind == tokAnd {
			if !flush() {
				return nil, false
			}
			continue
		}
		segment = append(segment, tok)
	}
	if !flush() {
		return nil, false
	}
	return root, true
}

func decompileComparison(toks []token, n int) (*Node, bool) {
	if len(toks) != 3 || toks[0].kind != tokPath || toks[1].kind != tokCompare {
		return nil, false
	}
	if !isInfix(toks[1].text) || isKeyword(toks[0].text) {
		return nil, false
	}

	id := fmt.Sprintf("rule_%d", n)
	subject, verb, rhs := toks[0].text, toks[1].text, toks[2]

	switch rhs.kind {
	case tokString:
		// A literal that would compile unquoted (or not at all) cannot be
		// represented as a tree without changing its meaning.
		if !quotedOnCompile(rhs.value) {
			return nil, false
		}
		return NewRule(id, subject, verb, Literal, rhs.value), true
	case tokNumber:
		f, err := strconv.ParseFloat(rhs.text, 64)
		if err != nil {
			return nil, false
		}
		return NewRule(id, subject, verb, Literal, f), true
	case tokPath:
		switch rhs.text {
		case "true":
			return NewRule(id, subject, verb, Literal, true), true
		case "false":
			return NewRule(id, subject, verb, Literal, false), true
		}
		if isKeyword(rhs.text) {
			return nil, false
		}
		return NewRule(id, subject, verb, Reference, rhs.text), true
	}
	return nil, false
}

func quotedOnCompile(v string) bool {
	return v != "" && v != "true" && v != "false" && !numericLiteral.MatchString(v)
}

func isKeyword(s string) bool {
	switch s {
	case "true", "false", "null", "nil", "not", "and", "or", "in":
		return true
	}
	return false
}
