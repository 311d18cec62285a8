package http

import (
	"fmt"
	"net/http"

	"github.com/aretw0/keel/pkg/canvas"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/go-chi/chi/v5"
)

type canvasView struct {
	ID      string       `json:"id"`
	Graph   domain.Graph `json:"graph"`
	CanUndo bool         `json:"can_undo"`
	CanRedo bool         `json:"can_redo"`
	EdgeID  string       `json:"edge_id,omitempty"`
	Changed *bool        `json:"changed,omitempty"`
}

type connectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Event  string `json:"event"`
}

func view(sess *canvas.Session) canvasView {
	return canvasView{
		ID:      sess.ID(),
		Graph:   sess.Graph(),
		CanUndo: sess.CanUndo(),
		CanRedo: sess.CanRedo(),
	}
}

// session resolves the open session named in the path.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*canvas.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: no open session for %s", domain.ErrNotFound, id))
		return nil, false
	}
	return sess, true
}

// openCanvas handles POST /canvas/{id}. The stored workflow is opened for
// editing; drafts are saved back through saveWorkflow.
func (s *Server) openCanvas(w http.ResponseWriter, r *http.Request) {
	spec, err := s.workflows.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.sessions.Open(s.ctx, spec, ports.DraftSinkFunc(s.saveWorkflow),
		canvas.WithScope(s.scope),
		canvas.WithDebounce(s.debounce),
		canvas.WithLogger(s.logger),
		canvas.WithOnLayout(func(g domain.Graph) { s.metrics.LaidOut(len(g.Nodes)) }),
		canvas.WithErrorHandler(func(err error) {
			s.logger.Warn("Draft was not saved, retry with POST /canvas/{id}/flush", "workflow", spec.ID, "error", err)
		}),
	)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view(sess))
}

func (s *Server) getCanvas(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		s.writeJSON(w, http.StatusOK, view(sess))
	}
}

// closeCanvas handles DELETE /canvas/{id}; the pending draft is flushed.
func (s *Server) closeCanvas(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Close(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var n domain.GraphNode
	if !s.decode(w, r, &n) {
		return
	}
	if n.ID == "" {
		http.Error(w, "node id is required", http.StatusBadRequest)
		return
	}
	s.apply(w, r, sess, http.StatusCreated, func() error { return sess.AddNode(n) })
}

func (s *Server) removeNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.apply(w, r, sess, http.StatusOK, func() error { return sess.RemoveNode(chi.URLParam(r, "node")) })
}

// moveNode handles PUT /canvas/{id}/nodes/{node}/position as one complete
// drag gesture.
func (s *Server) moveNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var pos domain.Position
	if !s.decode(w, r, &pos) {
		return
	}
	s.apply(w, r, sess, http.StatusOK, func() error {
		defer sess.EndDrag()
		return sess.Drag(chi.URLParam(r, "node"), pos)
	})
}

func (s *Server) setInitial(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.apply(w, r, sess, http.StatusOK, func() error { return sess.SetInitial(chi.URLParam(r, "node")) })
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req connectRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := sess.Connect(req.Source, req.Target, req.Event)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := view(sess)
	v.EdgeID = id
	s.writeJSON(w, http.StatusCreated, v)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.apply(w, r, sess, http.StatusOK, func() error { return sess.Disconnect(chi.URLParam(r, "edge")) })
}

func (s *Server) canvasLayout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.apply(w, r, sess, http.StatusOK, sess.AutoLayout)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		s.travel(w, r, sess, sess.Undo)
	}
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		s.travel(w, r, sess, sess.Redo)
	}
}

// flush handles POST /canvas/{id}/flush. Anything not yet saved, including
// a draft whose earlier save failed, is written now.
func (s *Server) flush(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Retry(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, sess *canvas.Session, status int, fn func() error) {
	if err := fn(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, status, view(sess))
}

func (s *Server) travel(w http.ResponseWriter, r *http.Request, sess *canvas.Session, fn func() (bool, error)) {
	changed, err := fn()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := view(sess)
	v.Changed = &changed
	s.writeJSON(w, http.StatusOK, v)
}
