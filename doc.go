/*
Package keel is the translation core of a low-code administrative console.

It converts between what visual editors manipulate and what the backend
executes, in both directions:

  - Condition trees and boolean expression text (package logic).
  - Canvas graphs and declarative state-machine specs (package statechart),
    with layered auto-layout (package layout).

Around the translators sit the governance model of policies, rules and
consequences (package policy), an editing session for process graphs with
bounded undo/redo and debounced draft propagation (package canvas), and
storage and transport adapters under pkg/adapters.

# Usage

Compile a tree and open the result back for editing:

	tree := logic.NewGroup("root", logic.And,
		logic.NewRule("r1", "host.amount", logic.VerbGreater, logic.Literal, 1000),
	)
	expr := logic.Compile(tree) // "host.amount > 1000"

	ed := logic.Load(expr)
	fmt.Println(ed.Mode()) // VISUAL

Round-trip a workflow through the canvas representation:

	g := statechart.ToGraph(spec, statechart.WithScope(statechart.ScopeWizard))
	g.Nodes = layout.Layered(g.Nodes, g.Edges)
	back := statechart.ToSpec(g, spec.ID)

The keel command (cmd/keel) exposes the same operations on the command line,
over HTTP and as MCP tools.
*/
package keel
