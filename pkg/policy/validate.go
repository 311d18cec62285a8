package policy

import (
	"fmt"
	"strings"

	"github.com/aretw0/keel/pkg/logic"
)

// Severity levels of a Diagnostic.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic is one finding produced by Validate.
type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", d.Severity, d.Code, d.Path, d.Message)
}

// HasErrors returns true if any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FieldDescriptor describes one field a rule may refer to.
type FieldDescriptor struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	DataType string `json:"data_type"`
	Group    string `json:"group,omitempty"`
}

// SchemaLookup resolves field paths against schema data fetched elsewhere.
// Implementations are read-only from the point of view of this package.
type SchemaLookup interface {
	Lookup(path string) (FieldDescriptor, bool)
}

// StaticSchema is an in-memory SchemaLookup keyed by path.
type StaticSchema map[string]FieldDescriptor

// NewStaticSchema indexes fields by key.
func NewStaticSchema(fields ...FieldDescriptor) StaticSchema {
	s := make(StaticSchema, len(fields))
	for _, f := range fields {
		s[f.Key] = f
	}
	return s
}

// Lookup implements SchemaLookup.
func (s StaticSchema) Lookup(path string) (FieldDescriptor, bool) {
	f, ok := s[path]
	return f, ok
}

// Validate checks a policy before it is saved or dry-run. lookup may be nil,
// in which case field paths are not checked.
func Validate(p Policy, lookup SchemaLookup) []Diagnostic {
	var diags []Diagnostic
	add := func(code, severity, path, format string, args ...any) {
		diags = append(diags, Diagnostic{
			Code:     code,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
			Path:     path,
		})
	}

	if strings.TrimSpace(p.Key) == "" {
		add("PO-001", SeverityError, "key", "policy key is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		add("PO-002", SeverityError, "name", "policy name is required")
	}
	if !p.Resolution.IsValid() {
		add("PO-003", SeverityError, "resolution", "unknown resolution strategy %q", p.Resolution)
	}

	for i, r := range p.Rules {
		rulePath := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(r.Logic) == "" {
			add("RU-001", SeverityWarning, rulePath+".logic", "rule has no condition")
		} else if err := logic.Lint(r.Logic); err != nil {
			add("RU-002", SeverityError, rulePath+".logic", "%v", err)
		} else if lookup != nil {
			for _, path := range logic.Paths(r.Logic) {
				if _, ok := lookup.Lookup(path); !ok {
					add("RU-003", SeverityWarning, rulePath+".logic", "unknown field %q", path)
				}
			}
		}

		if len(r.Consequences) == 0 {
			add("CO-003", SeverityWarning, rulePath+".consequences", "rule has no consequences")
		}
		for j, c := range r.Consequences {
			consPath := fmt.Sprintf("%s.consequences[%d]", rulePath, j)
			kind := c.Type()
			if !kind.IsKnown() {
				add("CO-002", SeverityWarning, consPath+".type", "unknown action kind %q", kind)
				continue
			}
			wire := c.Wire()
			for _, key := range RequiredFor(kind) {
				if isBlank(wire[key]) {
					add("CO-001", SeverityError, consPath+".params."+key, "%s requires %s", kind, key)
				}
			}
		}
	}
	return diags
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
