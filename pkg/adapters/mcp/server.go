package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/internal/metrics"
	"github.com/aretw0/keel/internal/presentation/graph"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/layout"
	"github.com/aretw0/keel/pkg/logic"
	"github.com/aretw0/keel/pkg/policy"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/aretw0/keel/pkg/statechart"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const workflowURIPrefix = "keel://workflows/"

// CompileArgs are the arguments of compile_logic.
type CompileArgs struct {
	Tree string `json:"tree"`
}

// LogicArgs are the arguments of classify_logic and lint_logic.
type LogicArgs struct {
	Logic string `json:"logic"`
}

// SpecArgs carry a spec document in JSON or YAML.
type SpecArgs struct {
	Spec   string `json:"spec"`
	Scope  string `json:"scope,omitempty"`
	Layout bool   `json:"layout,omitempty"`
}

// GraphArgs carry a graph as JSON.
type GraphArgs struct {
	Graph string `json:"graph"`
	ID    string `json:"id,omitempty"`
}

// CompileResult is returned by compile_logic.
type CompileResult struct {
	Logic string `json:"logic" jsonschema_description:"The compiled boolean expression"`
}

// ClassifyResult is returned by classify_logic.
type ClassifyResult struct {
	Mode  string      `json:"mode" jsonschema_description:"VISUAL when the expression can be edited as a tree, else RAW"`
	Tree  string   `json:"tree,omitempty" jsonschema_description:"The decompiled condition tree as JSON, in VISUAL mode"`
	Paths []string `json:"paths" jsonschema_description:"Field paths the expression refers to"`
}

// LintResult is returned by lint_logic.
type LintResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// SpecResult is returned by graph_to_spec.
type SpecResult struct {
	Spec         domain.StateMachineSpec `json:"spec"`
	DroppedEdges []string                `json:"dropped_edges" jsonschema_description:"Edges removed because an endpoint is missing"`
}

// Server exposes the translators as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	workflows ports.WorkflowStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithWorkflowStore exposes stored workflows as keel://workflows/{id} resources.
func WithWorkflowStore(store ports.WorkflowStore) Option {
	return func(s *Server) {
		s.workflows = store
	}
}

// WithMetrics records tool usage.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(version string, opts ...Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("keel-mcp", strings.TrimSpace(version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("compile_logic",
		mcp.WithDescription("Compile a condition tree (JSON) to the boolean expression the evaluator runs."),
		mcp.WithString("tree", mcp.Required(), mcp.Description("Condition tree as JSON")),
		mcp.WithOutputSchema[CompileResult](),
	), mcp.NewStructuredToolHandler(s.handleCompile))

	s.mcpServer.AddTool(mcp.NewTool("classify_logic",
		mcp.WithDescription("Decide whether an expression can be edited visually and decompile it when it can."),
		mcp.WithString("logic", mcp.Required(), mcp.Description("Expression text")),
		mcp.WithOutputSchema[ClassifyResult](),
	), mcp.NewStructuredToolHandler(s.handleClassify))

	s.mcpServer.AddTool(mcp.NewTool("lint_logic",
		mcp.WithDescription("Check an expression against the evaluator grammar without running it."),
		mcp.WithString("logic", mcp.Required(), mcp.Description("Expression text")),
		mcp.WithOutputSchema[LintResult](),
	), mcp.NewStructuredToolHandler(s.handleLint))

	s.mcpServer.AddTool(mcp.NewTool("spec_to_graph",
		mcp.WithDescription("Project a state-machine spec onto canvas nodes and edges."),
		mcp.WithString("spec", mcp.Required(), mcp.Description("Spec as JSON or YAML")),
		mcp.WithString("scope", mcp.Description("GOVERNANCE, WIZARD or JOB (default GOVERNANCE)")),
		mcp.WithBoolean("layout", mcp.Description("Force a layered layout")),
		mcp.WithOutputSchema[domain.Graph](),
	), mcp.NewStructuredToolHandler(s.handleSpecToGraph))

	s.mcpServer.AddTool(mcp.NewTool("graph_to_spec",
		mcp.WithDescription("Serialize canvas nodes and edges to a state-machine spec. Dangling edges are dropped."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph as JSON {nodes, edges}")),
		mcp.WithString("id", mcp.Description("Workflow id of the resulting spec")),
		mcp.WithOutputSchema[SpecResult](),
	), mcp.NewStructuredToolHandler(s.handleGraphToSpec))

	s.mcpServer.AddTool(mcp.NewTool("auto_layout",
		mcp.WithDescription("Compute layered top-down positions for a graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph as JSON {nodes, edges}")),
		mcp.WithOutputSchema[domain.Graph](),
	), mcp.NewStructuredToolHandler(s.handleLayout))

	s.mcpServer.AddTool(mcp.NewTool("render_mermaid",
		mcp.WithDescription("Render a state-machine spec as a Mermaid flowchart."),
		mcp.WithString("spec", mcp.Required(), mcp.Description("Spec as JSON or YAML")),
	), s.handleMermaid)
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args CompileArgs) (CompileResult, error) {
	var tree logic.Node
	if err := json.Unmarshal([]byte(args.Tree), &tree); err != nil {
		return CompileResult{}, fmt.Errorf("invalid tree: %w", err)
	}
	s.metrics.Compiled()
	return CompileResult{Logic: logic.Compile(&tree)}, nil
}

func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest, args LogicArgs) (ClassifyResult, error) {
	res := ClassifyResult{Mode: string(logic.Classify(args.Logic)), Paths: logic.Paths(args.Logic)}
	if res.Paths == nil {
		res.Paths = []string{}
	}
	if tree, ok := logic.Decompile(args.Logic); ok && res.Mode == string(logic.ModeVisual) {
		data, err := json.Marshal(tree)
		if err != nil {
			return res, fmt.Errorf("failed to encode tree: %w", err)
		}
		res.Tree = string(data)
	}
	s.metrics.Classified(res.Mode)
	return res, nil
}

func (s *Server) handleLint(ctx context.Context, request mcp.CallToolRequest, args LogicArgs) (LintResult, error) {
	if err := logic.Lint(args.Logic); err != nil {
		return LintResult{Error: err.Error()}, nil
	}
	return LintResult{Valid: true}, nil
}

func (s *Server) handleSpecToGraph(ctx context.Context, request mcp.CallToolRequest, args SpecArgs) (domain.Graph, error) {
	spec, err := statechart.Decode([]byte(args.Spec))
	if err != nil {
		return domain.Graph{}, err
	}
	scope, err := statechart.ParseScope(args.Scope)
	if err != nil {
		return domain.Graph{}, err
	}

	g := statechart.ToGraph(spec, statechart.WithScope(scope))
	if args.Layout || statechart.NeedsAutoLayout(spec) {
		g.Nodes = layout.Layered(g.Nodes, g.Edges)
		s.metrics.LaidOut(len(g.Nodes))
	}
	return g, nil
}

func (s *Server) handleGraphToSpec(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (SpecResult, error) {
	var g domain.Graph
	if err := json.Unmarshal([]byte(args.Graph), &g); err != nil {
		return SpecResult{}, fmt.Errorf("invalid graph: %w", err)
	}

	dropped := statechart.DanglingEdges(g)
	s.metrics.DroppedEdges(len(dropped))
	res := SpecResult{Spec: statechart.ToSpec(g, args.ID), DroppedEdges: make([]string, 0, len(dropped))}
	for _, e := range dropped {
		res.DroppedEdges = append(res.DroppedEdges, e.ID)
	}
	return res, nil
}

func (s *Server) handleLayout(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (domain.Graph, error) {
	var g domain.Graph
	if err := json.Unmarshal([]byte(args.Graph), &g); err != nil {
		return domain.Graph{}, fmt.Errorf("invalid graph: %w", err)
	}
	g.Nodes = layout.Layered(g.Nodes, g.Edges)
	s.metrics.LaidOut(len(g.Nodes))
	return g, nil
}

func (s *Server) handleMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SpecArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	spec, err := statechart.Decode([]byte(args.Spec))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(spec, nil)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("keel://actions", "Consequence action kinds",
		mcp.WithResourceDescription("Known action kinds and the params each one takes"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		catalog := make(map[string][]string, len(policy.KnownActions))
		for _, kind := range policy.KnownActions {
			catalog[string(kind)] = policy.FieldsFor(kind)
		}
		data, err := json.Marshal(catalog)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: "keel://actions", MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	if s.workflows == nil {
		return
	}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(workflowURIPrefix+"{id}", "Stored workflow",
		mcp.WithTemplateDescription("A stored state-machine spec"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readWorkflow)
}

func (s *Server) readWorkflow(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := strings.CutPrefix(uri, workflowURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid workflow uri %q", uri)
	}

	spec, err := s.workflows.Load(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("workflow %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
