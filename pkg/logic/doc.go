/*
Package logic holds the condition tree edited by the visual rule builder and the
compiler that flattens it into the evaluator's boolean-expression text.

The expression string is the persisted form. The tree is an editing projection
rebuilt from that string on a best-effort basis:

  - Compile turns a tree into text. Incomplete leaves and empty groups compile
    to the empty string instead of failing.
  - Classify decides whether existing text can be shown visually or must stay
    raw text. Anything with parentheses or pipes stays raw.
  - Decompile rebuilds a tree from a flat chain of comparisons joined by "&&".
  - Editor applies id-addressed mutations on a copy of the tree and recompiles
    after every change.

# Expression grammar

	rule      = subject op rhs | fn "(" subject ", " rhs ")"
	op        = "==" | "!=" | ">" | "<" | ">=" | "<="
	fn        = "contains" | "starts_with"
	group     = "(" expr (" && " | " || ") expr ... ")"
	rhs       = path | number | "true" | "false" | "'" string "'"
*/
package logic
