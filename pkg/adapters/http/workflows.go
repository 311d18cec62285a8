package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/keel/internal/presentation/graph"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.workflows.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(ids))
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	spec, err := s.workflows.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spec)
}

// putWorkflow handles PUT /workflows/{id}. The body is a spec in JSON or
// YAML; the path id wins over the document's.
func (s *Server) putWorkflow(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.readSpec(w, r)
	if !ok {
		return
	}
	spec.ID = chi.URLParam(r, "id")

	if _, open := s.sessions.Get(spec.ID); open {
		s.fail(w, r, fmt.Errorf("%w: %s", domain.ErrSessionOpen, spec.ID))
		return
	}
	if err := s.saveWorkflow(r.Context(), spec); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spec)
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, open := s.sessions.Get(id); open {
		s.fail(w, r, fmt.Errorf("%w: %s", domain.ErrSessionOpen, id))
		return
	}
	if err := s.workflows.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// workflowMermaid handles GET /workflows/{id}/mermaid.
func (s *Server) workflowMermaid(w http.ResponseWriter, r *http.Request) {
	spec, err := s.workflows.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(spec, nil))
}

// saveWorkflow stores spec and broadcasts what changed since the stored
// revision. Canvas drafts are published through here too.
func (s *Server) saveWorkflow(ctx context.Context, spec domain.StateMachineSpec) error {
	var prev *domain.StateMachineSpec
	old, err := s.workflows.Load(ctx, spec.ID)
	switch {
	case err == nil:
		prev = &old
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	if err := s.workflows.Save(ctx, spec.ID, spec); err != nil {
		return err
	}

	if diff := domain.Diff(prev, &spec); diff != nil {
		s.logger.Debug("Workflow diff calculated", "workflow", spec.ID, "diff", diff)
		s.streams.Broadcast(diff)
	}
	return nil
}
