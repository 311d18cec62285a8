package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/keel/internal/presentation/graph"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/layout"
	"github.com/aretw0/keel/pkg/statechart"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var graphCmd = &cobra.Command{
	Use:   "graph [spec]",
	Short: "Project a state-machine spec (JSON or YAML) onto canvas nodes and edges",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := readSpec(cmd, args)
		if err != nil {
			return err
		}
		scope, err := scopeFlag(cmd)
		if err != nil {
			return err
		}

		g := statechart.ToGraph(spec, statechart.WithScope(scope))
		if force, _ := cmd.Flags().GetBool("layout"); force || statechart.NeedsAutoLayout(spec) {
			g.Nodes = layout.Layered(g.Nodes, g.Edges)
		}
		return printJSON(cmd, g)
	},
}

var specCmd = &cobra.Command{
	Use:   "spec [graph.json]",
	Short: "Serialize canvas nodes and edges to a state-machine spec",
	Long:  `Edges whose source or target node is missing are dropped and reported on stderr.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		var g domain.Graph
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("invalid graph: %w", err)
		}

		for _, e := range statechart.DanglingEdges(g) {
			logger.Warn("Dropping dangling edge", "edge", e.ID, "source", e.Source, "target", e.Target)
		}
		id, _ := cmd.Flags().GetString("id")
		return printSpec(cmd, statechart.ToSpec(g, id))
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout [spec]",
	Short: "Lay a spec out top-down and write the coordinates into its meta",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := readSpec(cmd, args)
		if err != nil {
			return err
		}
		scope, err := scopeFlag(cmd)
		if err != nil {
			return err
		}

		g := statechart.ToGraph(spec, statechart.WithScope(scope))
		g.Nodes = layout.Layered(g.Nodes, g.Edges)
		return printSpec(cmd, statechart.ToSpec(g, spec.ID))
	},
}

var mermaidCmd = &cobra.Command{
	Use:   "mermaid [spec]",
	Short: "Render a spec as a Mermaid flowchart",
	Long:  `With --against, states added or changed since the given revision are highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := readSpec(cmd, args)
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if against, _ := cmd.Flags().GetString("against"); against != "" {
			old, err := readSpec(cmd, []string{against})
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromDiff(domain.Diff(&old, &spec))
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(spec, overlay))
		return nil
	},
}

func readSpec(cmd *cobra.Command, args []string) (domain.StateMachineSpec, error) {
	data, err := readInput(cmd, args)
	if err != nil {
		return domain.StateMachineSpec{}, err
	}
	spec, err := statechart.Decode(data)
	if err != nil {
		return domain.StateMachineSpec{}, fmt.Errorf("invalid spec: %w", err)
	}
	return spec, nil
}

func scopeFlag(cmd *cobra.Command) (statechart.Scope, error) {
	if cmd.Flags().Changed("scope") {
		s, _ := cmd.Flags().GetString("scope")
		return statechart.ParseScope(s)
	}
	return statechart.ParseScope(cfg.Scope)
}

func printSpec(cmd *cobra.Command, spec domain.StateMachineSpec) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return printJSON(cmd, spec)
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(spec); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: use json or yaml", format)
	}
}

func init() {
	rootCmd.AddCommand(graphCmd, specCmd, layoutCmd, mermaidCmd)

	for _, c := range []*cobra.Command{graphCmd, layoutCmd} {
		c.Flags().String("scope", "", "Process scope: GOVERNANCE, WIZARD or JOB (default from config)")
	}
	graphCmd.Flags().Bool("layout", false, "Lay the graph out even when the spec has coordinates")
	specCmd.Flags().String("id", "", "Workflow id of the resulting spec")
	for _, c := range []*cobra.Command{specCmd, layoutCmd} {
		c.Flags().String("format", "json", "Output format: json or yaml")
	}
	mermaidCmd.Flags().String("against", "", "Previous revision of the spec to diff against")
}
