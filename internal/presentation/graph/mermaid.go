package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/statechart"
)

// Overlay marks states to highlight on the rendered chart, typically the
// result of a domain.Diff against a previous revision.
type Overlay struct {
	Added   []string
	Changed []string
}

// OverlayFromDiff builds an overlay from a spec diff. A nil diff yields nil.
func OverlayFromDiff(d *domain.SpecDiff) *Overlay {
	if d == nil {
		return nil
	}
	return &Overlay{Added: d.Added, Changed: d.Changed}
}

// GenerateMermaid produces a Mermaid flowchart for a state-machine spec.
// It applies semantic styling:
// - Initial: ((Circle))
// - Final: (((Double circle)))
// - Task: [[Subroutine]]
// - Screen: [/Parallelogram/]
// - Default: [Rectangle]
// Guarded transitions carry the guard in their label.
func GenerateMermaid(spec domain.StateMachineSpec, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, key := range spec.StateKeys() {
		state := spec.States[key]
		safeID := sanitizeMermaidID(key)

		opener, closer := "[", "]"
		nodeType, _ := state.Meta[domain.MetaNodeType].(string)
		switch {
		case key == spec.Initial:
			opener, closer = "((", "))"
		case state.Type == domain.StateFinal:
			opener, closer = "(((", ")))"
		case nodeType == statechart.KindTask:
			opener, closer = "[[", "]]"
		case nodeType == statechart.KindScreen:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(key), closer)

		events := make([]string, 0, len(state.On))
		for event := range state.On {
			events = append(events, event)
		}
		sort.Strings(events)
		for _, event := range events {
			t := state.On[event]
			label := event
			if t.Guard != "" {
				label = fmt.Sprintf("%s [%s]", event, t.Guard)
			}
			arrow := fmt.Sprintf("-- \"%s\" -->", escape(label))
			if len(t.Actions) > 0 {
				arrow = fmt.Sprintf("== \"%s / %s\" ==>", escape(label), escape(strings.Join(t.Actions, ", ")))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(t.Target))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef added fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef changed fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		writeClass(&sb, overlay.Added, "added")
		writeClass(&sb, overlay.Changed, "changed")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
