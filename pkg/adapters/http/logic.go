package http

import (
	"net/http"

	"github.com/aretw0/keel/pkg/logic"
)

type logicRequest struct {
	Logic string `json:"logic"`
}

type classifyResponse struct {
	Mode  logic.Mode  `json:"mode"`
	Tree  *logic.Node `json:"tree,omitempty"`
	Paths []string    `json:"paths"`
}

type lintResponse struct {
	Valid bool     `json:"valid"`
	Error string   `json:"error,omitempty"`
	Paths []string `json:"paths"`
}

// compileLogic handles POST /logic/compile. The body is a condition tree.
func (s *Server) compileLogic(w http.ResponseWriter, r *http.Request) {
	var tree logic.Node
	if !s.decode(w, r, &tree) {
		return
	}
	s.metrics.Compiled()
	s.writeJSON(w, http.StatusOK, logicRequest{Logic: logic.Compile(&tree)})
}

// classifyLogic handles POST /logic/classify.
func (s *Server) classifyLogic(w http.ResponseWriter, r *http.Request) {
	var req logicRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := classifyResponse{
		Mode:  logic.Classify(req.Logic),
		Paths: nonNil(logic.Paths(req.Logic)),
	}
	if resp.Mode == logic.ModeVisual {
		if tree, ok := logic.Decompile(req.Logic); ok {
			resp.Tree = tree
		}
	}
	s.metrics.Classified(string(resp.Mode))
	s.writeJSON(w, http.StatusOK, resp)
}

// lintLogic handles POST /logic/lint. Grammar errors are reported in the
// body, not as a failing status.
func (s *Server) lintLogic(w http.ResponseWriter, r *http.Request) {
	var req logicRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := lintResponse{Valid: true, Paths: nonNil(logic.Paths(req.Logic))}
	if err := logic.Lint(req.Logic); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
