package logic

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numericLiteral = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// Compile flattens a condition tree into expression text.
// Empty groups and incomplete rules produce the empty string; a group with a
// single non-empty child compiles to that child without parentheses.
func Compile(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Type == NodeTypeGroup {
		return compileGroup(n)
	}
	return compileRule(n)
}

func compileGroup(n *Node) string {
	parts := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		if s := Compile(child); s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " "+n.Operator.Symbol()+" ") + ")"
}

func compileRule(n *Node) string {
	if n.Subject == "" || n.Verb == "" {
		return ""
	}
	rhs, ok := renderObject(n.ObjectKind, n.Object)
	if !ok {
		return ""
	}
	if IsPredicate(n.Verb) {
		return fmt.Sprintf("%s(%s, %s)", n.Verb, n.Subject, rhs)
	}
	return fmt.Sprintf("%s %s %s", n.Subject, n.Verb, rhs)
}

// renderObject returns the right-hand side text and false when the object is
// unset.
func renderObject(kind ObjectKind, object any) (string, bool) {
	if object == nil {
		return "", false
	}
	if kind == Reference {
		ref := strings.TrimSpace(fmt.Sprint(object))
		return ref, ref != ""
	}

	switch v := object.(type) {
	case string:
		if v == "" {
			return "", false
		}
		if v == "true" || v == "false" || numericLiteral.MatchString(v) {
			return v, true
		}
		return Quote(v), true
	case bool:
		return strconv.FormatBool(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true
	default:
		return Quote(fmt.Sprint(v)), true
	}
}

// Quote renders s as a single-quoted string literal.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
