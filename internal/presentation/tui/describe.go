package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/keel/pkg/logic"
	"github.com/aretw0/keel/pkg/policy"
)

// DescribePolicy renders a policy and its diagnostics as markdown.
func DescribePolicy(p policy.Policy, diags []policy.Diagnostic) string {
	var sb strings.Builder

	name := p.Name
	if name == "" {
		name = p.Key
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)
	if p.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", p.Description)
	}

	fmt.Fprintf(&sb, "- **Key:** `%s`\n", p.Key)
	fmt.Fprintf(&sb, "- **Version:** %s\n", p.Version())
	fmt.Fprintf(&sb, "- **Resolution:** %s\n", p.Resolution)
	fmt.Fprintf(&sb, "- **Active:** %t\n", p.IsActive)
	if len(p.Tags) > 0 {
		fmt.Fprintf(&sb, "- **Tags:** %s\n", strings.Join(p.Tags, ", "))
	}

	for i, r := range p.Rules {
		fmt.Fprintf(&sb, "\n## Rule %d", i+1)
		if !r.IsActive {
			sb.WriteString(" (inactive)")
		}
		sb.WriteString("\n\n")
		if r.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", r.Description)
		}
		if strings.TrimSpace(r.Logic) == "" {
			sb.WriteString("_Always applies._\n\n")
		} else {
			fmt.Fprintf(&sb, "```\n%s\n```\n\n", r.Logic)
			fmt.Fprintf(&sb, "Editor mode: %s\n\n", logic.Classify(r.Logic))
		}

		if len(r.Consequences) == 0 {
			sb.WriteString("_No consequences._\n")
			continue
		}
		for j, c := range r.Consequences {
			fmt.Fprintf(&sb, "%d. **%s**%s\n", j+1, c.Type(), formatParams(c))
		}
	}

	if len(diags) > 0 {
		sb.WriteString("\n## Diagnostics\n\n")
		for _, d := range diags {
			path := ""
			if d.Path != "" {
				path = fmt.Sprintf(" `%s`", d.Path)
			}
			fmt.Fprintf(&sb, "- %s %s%s: %s\n", d.Severity, d.Code, path, d.Message)
		}
	}

	return sb.String()
}

func formatParams(c policy.Consequence) string {
	params, err := policy.EncodeParams(c.Params)
	if err != nil || len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=`%v`", k, params[k]))
	}
	return " " + strings.Join(parts, " ")
}
