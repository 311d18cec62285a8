package logic

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// containsAlias stands in for the contains predicate while checking syntax;
// the checker reserves "contains" as an infix operator.
const containsAlias = "contains__"

// Lint reports whether expression text is well formed in the evaluator's
// grammar. The expression is compiled, never run. Unknown fields are allowed
// because field schemas live outside the compiler.
func Lint(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	src, err := normalizePredicates(expression)
	if err != nil {
		return fmt.Errorf("invalid expression: %w", err)
	}

	predicate := func(params ...any) (any, error) { return false, nil }
	_, err = expr.Compile(src,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
		expr.Function(containsAlias, predicate, new(func(any, any) bool)),
		expr.Function(VerbStartsWith, predicate, new(func(any, any) bool)),
	)
	if err != nil {
		return fmt.Errorf("invalid expression: %w", err)
	}
	return nil
}

// normalizePredicates rewrites contains(...) calls to the alias name,
// leaving string literals untouched.
func normalizePredicates(src string) (string, error) {
	toks, err := scan(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	last := 0
	for i, tok := range toks {
		if tok.kind != tokPath || tok.text != VerbContains {
			continue
		}
		if i+1 >= len(toks) || toks[i+1].kind != tokLParen {
			continue
		}
		sb.WriteString(src[last:tok.pos])
		sb.WriteString(containsAlias)
		last = tok.pos + len(tok.text)
	}
	sb.WriteString(src[last:])
	return sb.String(), nil
}
