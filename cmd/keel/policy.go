package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/keel/internal/presentation/tui"
	"github.com/aretw0/keel/pkg/policy"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect governance policies",
}

var policyDescribeCmd = &cobra.Command{
	Use:   "describe [policy.json]",
	Short: "Render a policy, its rules and their consequences",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, lookup, err := loadPolicy(cmd, args)
		if err != nil {
			return err
		}

		plain, _ := cmd.Flags().GetBool("plain")
		if !plain && cmd.OutOrStdout() == os.Stdout {
			plain = !tui.IsTerminal(os.Stdout)
		}
		out, err := tui.NewRenderer(plain)(tui.DescribePolicy(p, policy.Validate(p, lookup)))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate [policy.json]",
	Short: "Check a policy before it is saved",
	Long: `Prints every finding. Exits non-zero when a finding has error severity.
With --schema, field paths used by rule logic are checked against a JSON array
of {key, label, data_type} descriptors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, lookup, err := loadPolicy(cmd, args)
		if err != nil {
			return err
		}

		diags := policy.Validate(p, lookup)
		for _, d := range diags {
			fmt.Fprintln(cmd.OutOrStdout(), d.String())
		}
		if policy.HasErrors(diags) {
			return errors.New("policy is invalid")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Policy is valid!")
		return nil
	},
}

// loadPolicy reads the policy argument and the optional --schema file.
func loadPolicy(cmd *cobra.Command, args []string) (policy.Policy, policy.SchemaLookup, error) {
	var p policy.Policy
	data, err := readInput(cmd, args)
	if err != nil {
		return p, nil, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, nil, fmt.Errorf("invalid policy: %w", err)
	}

	path, _ := cmd.Flags().GetString("schema")
	if path == "" {
		return p, nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, nil, fmt.Errorf("failed to read schema: %w", err)
	}
	var fields []policy.FieldDescriptor
	if err := json.Unmarshal(raw, &fields); err != nil {
		return p, nil, fmt.Errorf("invalid schema: %w", err)
	}
	return p, policy.NewStaticSchema(fields...), nil
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyDescribeCmd, policyValidateCmd)
	policyCmd.PersistentFlags().String("schema", "", "JSON file of field descriptors used to check rule logic")
	policyDescribeCmd.Flags().Bool("plain", false, "Print markdown without terminal styling")
}
