package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/internal/metrics"
	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/canvas"
	"github.com/aretw0/keel/pkg/debounce"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/aretw0/keel/pkg/statechart"
	"github.com/go-chi/chi/v5"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Server exposes the translators, the stores and canvas sessions over HTTP.
type Server struct {
	ctx       context.Context
	policies  ports.PolicyStore
	workflows ports.WorkflowStore
	dryRunner ports.DryRunner
	schema    ports.SchemaLookup
	sessions  *canvas.Registry
	metrics   *metrics.Metrics
	streams   *StreamManager
	scope     statechart.Scope
	debounce  time.Duration
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithPolicyStore sets where policies are kept. Defaults to memory.
func WithPolicyStore(store ports.PolicyStore) Option {
	return func(s *Server) {
		s.policies = store
	}
}

// WithWorkflowStore sets where workflows are kept. Defaults to memory.
func WithWorkflowStore(store ports.WorkflowStore) Option {
	return func(s *Server) {
		s.workflows = store
	}
}

// WithDryRunner enables POST /policies/{key}/dry-run.
func WithDryRunner(runner ports.DryRunner) Option {
	return func(s *Server) {
		s.dryRunner = runner
	}
}

// WithSchema enables field checks when policies are saved.
func WithSchema(lookup ports.SchemaLookup) Option {
	return func(s *Server) {
		s.schema = lookup
	}
}

// WithSessions replaces the canvas session registry.
func WithSessions(r *canvas.Registry) Option {
	return func(s *Server) {
		s.sessions = r
	}
}

// WithMetrics instruments requests and serves GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithScope sets the editing scope of canvas sessions and graph conversions.
func WithScope(scope statechart.Scope) Option {
	return func(s *Server) {
		s.scope = scope
	}
}

// WithDebounce sets the draft window of canvas sessions.
func WithDebounce(wait time.Duration) Option {
	return func(s *Server) {
		s.debounce = wait
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server. Canvas sessions live as long as ctx.
func NewServer(ctx context.Context, opts ...Option) *Server {
	s := &Server{
		ctx:       ctx,
		policies:  memory.NewPolicyStore(),
		workflows: memory.NewWorkflowStore(),
		scope:     statechart.ScopeGovernance,
		debounce:  debounce.DefaultWait,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = canvas.NewRegistry(canvas.WithRegistryLogger(s.logger))
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// NewHandler is a shortcut for NewServer(ctx, opts...).Handler().
func NewHandler(ctx context.Context, opts ...Option) http.Handler {
	return NewServer(ctx, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/logic", func(r chi.Router) {
		r.Post("/compile", s.compileLogic)
		r.Post("/classify", s.classifyLogic)
		r.Post("/lint", s.lintLogic)
	})

	r.Route("/statechart", func(r chi.Router) {
		r.Post("/graph", s.specToGraph)
		r.Post("/spec", s.graphToSpec)
		r.Post("/layout", s.layoutGraph)
	})

	r.Route("/policies", func(r chi.Router) {
		r.Get("/", s.listPolicies)
		r.Get("/{key}", s.getPolicy)
		r.Put("/{key}", s.putPolicy)
		r.Delete("/{key}", s.deletePolicy)
		r.Post("/{key}/dry-run", s.dryRun)
	})

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.listWorkflows)
		r.Get("/{id}", s.getWorkflow)
		r.Put("/{id}", s.putWorkflow)
		r.Delete("/{id}", s.deleteWorkflow)
		r.Get("/{id}/mermaid", s.workflowMermaid)
		r.Get("/{id}/events", s.subscribeWorkflow)
	})

	r.Route("/canvas/{id}", func(r chi.Router) {
		r.Post("/", s.openCanvas)
		r.Get("/", s.getCanvas)
		r.Delete("/", s.closeCanvas)
		r.Post("/nodes", s.addNode)
		r.Delete("/nodes/{node}", s.removeNode)
		r.Put("/nodes/{node}/position", s.moveNode)
		r.Post("/nodes/{node}/initial", s.setInitial)
		r.Post("/edges", s.connect)
		r.Delete("/edges/{edge}", s.disconnect)
		r.Post("/layout", s.canvasLayout)
		r.Post("/undo", s.undo)
		r.Post("/redo", s.redo)
		r.Post("/flush", s.flush)
	})

	return enableCORS(r)
}

// Close flushes and closes every open canvas session.
func (s *Server) Close(ctx context.Context) error {
	return s.sessions.CloseAll(ctx)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Helpers --

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, canvas.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionOpen),
		errors.Is(err, canvas.ErrDuplicateNode),
		errors.Is(err, canvas.ErrDuplicateEdge):
		return http.StatusConflict
	case errors.Is(err, canvas.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
