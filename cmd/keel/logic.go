package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/keel/pkg/logic"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [tree.json]",
	Short: "Compile a condition tree to a boolean expression",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		var tree logic.Node
		if err := json.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("invalid condition tree: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), logic.Compile(&tree))
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <expression>",
	Short: "Tell whether an expression can be edited visually",
	Long: `Prints VISUAL or RAW. With --tree, visual expressions are also printed as
the decompiled condition tree.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := strings.Join(args, " ")
		mode := logic.Classify(expr)
		fmt.Fprintln(cmd.OutOrStdout(), mode)

		if withTree, _ := cmd.Flags().GetBool("tree"); withTree && mode == logic.ModeVisual {
			tree, _ := logic.Decompile(expr)
			return printJSON(cmd, tree)
		}
		return nil
	},
}

var lintCmd = &cobra.Command{
	Use:   "lint <expression>",
	Short: "Check an expression against the evaluator grammar",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := strings.Join(args, " ")
		if err := logic.Lint(expr); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Expression is valid")
		if paths := logic.Paths(expr); len(paths) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Fields: %s\n", strings.Join(paths, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd, classifyCmd, lintCmd)
	classifyCmd.Flags().Bool("tree", false, "Print the decompiled tree")
}
