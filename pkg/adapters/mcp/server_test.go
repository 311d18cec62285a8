package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/logic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specYAML = `
initial: draft
states:
  draft:
    on:
      SUBMIT: review
  review:
    on:
      APPROVE: done
  done:
    type: final
`

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer("test", WithWorkflowStore(memory.NewWorkflowStore()))
	require.NotNil(t, s)

	tools := s.mcpServer.ListTools()
	for _, name := range []string{"compile_logic", "classify_logic", "lint_logic", "spec_to_graph", "graph_to_spec", "auto_layout", "render_mermaid"} {
		tool, ok := tools[name]
		if assert.True(t, ok, name) {
			assert.NotEmpty(t, tool.Tool.OutputSchema.Type, name)
		}
	}
}

func TestCompileAndClassify(t *testing.T) {
	s := NewServer("test")
	ctx := context.Background()

	compiled, err := s.handleCompile(ctx, mcp.CallToolRequest{}, CompileArgs{
		Tree: `{"id":"root","type":"GROUP","operator":"AND","children":[{"id":"a","type":"RULE","subject":"host.age","verb":">","object":"18"}]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "host.age > 18", compiled.Logic)

	_, err = s.handleCompile(ctx, mcp.CallToolRequest{}, CompileArgs{Tree: "nope"})
	assert.Error(t, err)

	classified, err := s.handleClassify(ctx, mcp.CallToolRequest{}, LogicArgs{Logic: compiled.Logic})
	require.NoError(t, err)
	assert.Equal(t, "VISUAL", classified.Mode)
	var tree logic.Node
	require.NoError(t, json.Unmarshal([]byte(classified.Tree), &tree))
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "host.age", tree.Children[0].Subject)
	assert.Equal(t, []string{"host.age"}, classified.Paths)

	classified, err = s.handleClassify(ctx, mcp.CallToolRequest{}, LogicArgs{Logic: "a > 1 || b > 2"})
	require.NoError(t, err)
	assert.Equal(t, "RAW", classified.Mode)
	assert.Empty(t, classified.Tree)

	linted, err := s.handleLint(ctx, mcp.CallToolRequest{}, LogicArgs{Logic: "a >"})
	require.NoError(t, err)
	assert.False(t, linted.Valid)
}

func TestGraphTools(t *testing.T) {
	s := NewServer("test")
	ctx := context.Background()

	g, err := s.handleSpecToGraph(ctx, mcp.CallToolRequest{}, SpecArgs{Spec: specYAML, Scope: "job"})
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	for _, n := range g.Nodes {
		assert.Equal(t, "task", n.Kind)
	}

	_, err = s.handleSpecToGraph(ctx, mcp.CallToolRequest{}, SpecArgs{Spec: "initial: x\nstates: {}\n"})
	assert.Error(t, err)

	g.Edges = append(g.Edges, domain.GraphEdge{ID: "ghost", Source: "done", Target: "gone"})
	raw, err := json.Marshal(g)
	require.NoError(t, err)

	res, err := s.handleGraphToSpec(ctx, mcp.CallToolRequest{}, GraphArgs{Graph: string(raw), ID: "wf"})
	require.NoError(t, err)
	assert.Equal(t, "wf", res.Spec.ID)
	assert.Equal(t, []string{"ghost"}, res.DroppedEdges)
	assert.Equal(t, "review", res.Spec.States["draft"].On["SUBMIT"].Target)

	laid, err := s.handleLayout(ctx, mcp.CallToolRequest{}, GraphArgs{Graph: string(raw)})
	require.NoError(t, err)
	review, ok := laid.Node("review")
	require.True(t, ok)
	assert.Equal(t, 200.0, review.Position.Y)
}

func TestRenderMermaid(t *testing.T) {
	s := NewServer("test")

	req := mcp.CallToolRequest{}
	req.Params.Name = "render_mermaid"
	req.Params.Arguments = map[string]any{"spec": specYAML}

	res, err := s.handleMermaid(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "draft((\"draft\"))")

	req.Params.Arguments = map[string]any{"spec": ""}
	res, err = s.handleMermaid(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestReadWorkflow(t *testing.T) {
	store := memory.NewWorkflowStore()
	require.NoError(t, store.Save(context.Background(), "wf", domain.StateMachineSpec{
		ID: "wf", Initial: "a", States: map[string]domain.StateEntry{"a": {}},
	}))
	s := NewServer("test", WithWorkflowStore(store))

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "keel://workflows/wf"
	contents, err := s.readWorkflow(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Contains(t, text.Text, `"initial":"a"`)

	req.Params.URI = "keel://workflows/missing"
	_, err = s.readWorkflow(context.Background(), req)
	assert.ErrorContains(t, err, "not found")
}
