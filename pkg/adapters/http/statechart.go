package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/layout"
	"github.com/aretw0/keel/pkg/statechart"
)

type validationResponse struct {
	Errors []fieldError `json:"errors"`
}

type fieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type graphToSpecRequest struct {
	ID string `json:"id"`
	domain.Graph
}

type graphToSpecResponse struct {
	Spec         domain.StateMachineSpec `json:"spec"`
	DroppedEdges []string                `json:"dropped_edges"`
}

// specToGraph handles POST /statechart/graph. The body is a spec in JSON or
// YAML. ?scope= picks default node kinds and ?layout=true forces a layout.
func (s *Server) specToGraph(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.readSpec(w, r)
	if !ok {
		return
	}
	scope, ok := s.scopeParam(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("layout"))

	g := statechart.ToGraph(spec, statechart.WithScope(scope))
	if force || statechart.NeedsAutoLayout(spec) {
		g.Nodes = layout.Layered(g.Nodes, g.Edges)
		s.metrics.LaidOut(len(g.Nodes))
	}
	s.writeJSON(w, http.StatusOK, g)
}

// graphToSpec handles POST /statechart/spec.
func (s *Server) graphToSpec(w http.ResponseWriter, r *http.Request) {
	var req graphToSpecRequest
	if !s.decode(w, r, &req) {
		return
	}

	dropped := statechart.DanglingEdges(req.Graph)
	s.metrics.DroppedEdges(len(dropped))

	resp := graphToSpecResponse{
		Spec:         statechart.ToSpec(req.Graph, req.ID),
		DroppedEdges: make([]string, 0, len(dropped)),
	}
	for _, e := range dropped {
		resp.DroppedEdges = append(resp.DroppedEdges, e.ID)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// layoutGraph handles POST /statechart/layout.
func (s *Server) layoutGraph(w http.ResponseWriter, r *http.Request) {
	var g domain.Graph
	if !s.decode(w, r, &g) {
		return
	}
	g.Nodes = layout.Layered(g.Nodes, g.Edges)
	s.metrics.LaidOut(len(g.Nodes))
	s.writeJSON(w, http.StatusOK, g)
}

// readSpec decodes and validates a spec body. Validation failures answer 422
// with every failing field.
func (s *Server) readSpec(w http.ResponseWriter, r *http.Request) (domain.StateMachineSpec, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return domain.StateMachineSpec{}, false
	}

	spec, err := statechart.Decode(data)
	if err == nil {
		return spec, true
	}

	if fields := validationFields(err); len(fields) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: fields})
		return domain.StateMachineSpec{}, false
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
	return domain.StateMachineSpec{}, false
}

func (s *Server) scopeParam(w http.ResponseWriter, r *http.Request) (statechart.Scope, bool) {
	q := r.URL.Query().Get("scope")
	if q == "" {
		return s.scope, true
	}
	scope, err := statechart.ParseScope(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return scope, true
}

func validationFields(err error) []fieldError {
	errs := statechart.ValidationErrors(err)
	if errs == nil {
		errs = []error{err}
	}
	var out []fieldError
	for _, e := range errs {
		var ve *statechart.ValidationError
		if errors.As(e, &ve) {
			out = append(out, fieldError{Field: ve.Field, Reason: ve.Reason})
		}
	}
	return out
}
