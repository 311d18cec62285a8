package http

import (
	"net/http"

	"github.com/aretw0/keel/pkg/policy"
	"github.com/go-chi/chi/v5"
)

type policyResponse struct {
	Policy      policy.Policy       `json:"policy"`
	Diagnostics []policy.Diagnostic `json:"diagnostics"`
}

type dryRunBody struct {
	Context map[string]any `json:"context"`
}

func (s *Server) listPolicies(w http.ResponseWriter, r *http.Request) {
	keys, err := s.policies.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(keys))
}

func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := s.policies.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// putPolicy handles PUT /policies/{key}. The policy is validated first and
// refused with 422 when any diagnostic is an error; warnings are returned
// alongside the saved policy.
func (s *Server) putPolicy(w http.ResponseWriter, r *http.Request) {
	var p policy.Policy
	if !s.decode(w, r, &p) {
		return
	}
	p.Key = chi.URLParam(r, "key")

	diags := policy.Validate(p, s.schema)
	if diags == nil {
		diags = []policy.Diagnostic{}
	}
	if policy.HasErrors(diags) {
		s.writeJSON(w, http.StatusUnprocessableEntity, policyResponse{Policy: p, Diagnostics: diags})
		return
	}

	if err := s.policies.Save(r.Context(), p.Key, p); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Policy saved", "key", p.Key, "rules", len(p.Rules), "warnings", len(diags))
	s.writeJSON(w, http.StatusOK, policyResponse{Policy: p, Diagnostics: diags})
}

func (s *Server) deletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.policies.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dryRun handles POST /policies/{key}/dry-run by forwarding the stored
// policy and the sample context to the evaluator.
func (s *Server) dryRun(w http.ResponseWriter, r *http.Request) {
	if s.dryRunner == nil {
		http.Error(w, "No evaluator configured", http.StatusServiceUnavailable)
		return
	}

	var body dryRunBody
	if !s.decode(w, r, &body) {
		return
	}
	p, err := s.policies.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.dryRunner.DryRun(r.Context(), policy.DryRunRequest{Policy: p, Context: body.Context})
	if err != nil {
		s.logger.Error("Dry-run failed", "key", p.Key, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
