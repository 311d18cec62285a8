package logic

// Paths returns the field paths an expression refers to, in order of first
// appearance. Function names and keywords are skipped. Text that does not
// scan yields no paths.
func Paths(expr string) []string {
	toks, err := scan(expr)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for i, tok := range toks {
		if tok.kind != tokPath || isKeyword(tok.text) {
			continue
		}
		if i+1 < len(toks) && toks[i+1].kind == tokLParen {
			continue
		}
		if !seen[tok.text] {
			seen[tok.text] = true
			out = append(out, tok.text)
		}
	}
	return out
}
