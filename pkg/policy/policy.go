package policy

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/keel/pkg/logic"
	"github.com/google/uuid"
)

// ResolutionStrategy tells the evaluator how verdicts of several rules combine.
type ResolutionStrategy string

const (
	AllMustPass      ResolutionStrategy = "ALL_MUST_PASS"
	AtLeastOne       ResolutionStrategy = "AT_LEAST_ONE"
	PriorityOverride ResolutionStrategy = "PRIORITY_OVERRIDE"
	WeightedScore    ResolutionStrategy = "WEIGHTED_SCORE"
)

// IsValid reports whether s is one of the known strategies.
func (s ResolutionStrategy) IsValid() bool {
	switch s {
	case AllMustPass, AtLeastOne, PriorityOverride, WeightedScore:
		return true
	}
	return false
}

// Rule pairs a compiled logic expression with the consequences that run, in
// order, when it holds.
type Rule struct {
	ID           string        `json:"id"`
	Logic        string        `json:"logic"`
	Consequences []Consequence `json:"consequences"`
	Description  string        `json:"description,omitempty"`
	IsActive     bool          `json:"is_active"`
}

// NewRule returns an empty active rule.
func NewRule() Rule {
	return Rule{
		ID:           "rule_" + uuid.NewString(),
		Consequences: []Consequence{},
		IsActive:     true,
	}
}

// OpenLogic opens the rule's expression in a tree editor. Every recompiled
// expression is written back to r.Logic.
func (r *Rule) OpenLogic(opts ...logic.EditorOption) *logic.Editor {
	opts = append(opts, logic.WithOnChange(func(s string) { r.Logic = s }))
	return logic.Load(r.Logic, opts...)
}

// AddConsequence appends c to the end of the stack.
func (r *Rule) AddConsequence(c Consequence) {
	r.Consequences = append(r.Consequences, c)
}

// RemoveConsequence deletes the consequence at i, keeping the order of the rest.
func (r *Rule) RemoveConsequence(i int) error {
	if i < 0 || i >= len(r.Consequences) {
		return ErrIndexOutOfRange
	}
	out := make([]Consequence, 0, len(r.Consequences)-1)
	out = append(out, r.Consequences[:i]...)
	r.Consequences = append(out, r.Consequences[i+1:]...)
	return nil
}

// MoveConsequence moves the consequence at from to position to.
func (r *Rule) MoveConsequence(from, to int) error {
	n := len(r.Consequences)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	moved := r.Consequences[from]
	out := make([]Consequence, 0, n)
	out = append(out, r.Consequences[:from]...)
	out = append(out, r.Consequences[from+1:]...)
	out = append(out[:to], append([]Consequence{moved}, out[to:]...)...)
	r.Consequences = out
	return nil
}

// UpdateConsequence applies Consequence.Update to the consequence at i.
func (r *Rule) UpdateConsequence(i int, field string, value any) error {
	if i < 0 || i >= len(r.Consequences) {
		return ErrIndexOutOfRange
	}
	next, err := r.Consequences[i].Update(field, value)
	if err != nil {
		return err
	}
	cons := make([]Consequence, len(r.Consequences))
	copy(cons, r.Consequences)
	cons[i] = next
	r.Consequences = cons
	return nil
}

// Policy is a named, versioned set of rules.
type Policy struct {
	ID             int64              `json:"id,omitempty"`
	Key            string             `json:"key"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Resolution     ResolutionStrategy `json:"resolution"`
	Rules          []Rule             `json:"rules"`
	Tags           []string           `json:"tags"`
	IsActive       bool               `json:"is_active"`
	VersionMajor   int                `json:"version_major,omitempty"`
	VersionMinor   int                `json:"version_minor,omitempty"`
	IsLatest       bool               `json:"is_latest,omitempty"`
	VersionDisplay string             `json:"version_display,omitempty"`
	CreatedAt      *time.Time         `json:"created_at,omitempty"`
	UpdatedAt      *time.Time         `json:"updated_at,omitempty"`
}

// NewDraft returns the default draft for a new policy.
func NewDraft() Policy {
	return Policy{
		Resolution: AllMustPass,
		Rules:      []Rule{},
		Tags:       []string{},
		IsActive:   true,
	}
}

// SetName renames the policy. Unsaved policies also derive their key from
// the name; saved policies keep the key they were stored under.
func (p *Policy) SetName(name string) {
	p.Name = name
	if p.ID == 0 {
		p.Key = KeyFromName(name)
	}
}

// Rule returns the rule with the given id.
func (p *Policy) Rule(id string) (*Rule, bool) {
	for i := range p.Rules {
		if p.Rules[i].ID == id {
			return &p.Rules[i], true
		}
	}
	return nil, false
}

// RemoveRule deletes the rule with the given id.
func (p *Policy) RemoveRule(id string) bool {
	for i := range p.Rules {
		if p.Rules[i].ID == id {
			p.Rules = append(p.Rules[:i:i], p.Rules[i+1:]...)
			return true
		}
	}
	return false
}

// Version renders major.minor.
func (p Policy) Version() string {
	if p.VersionDisplay != "" {
		return p.VersionDisplay
	}
	return fmt.Sprintf("%d.%d", p.VersionMajor, p.VersionMinor)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// KeyFromName derives a policy key: lowercase, runs of other characters
// collapsed to "_", no leading or trailing underscores.
func KeyFromName(name string) string {
	key := nonSlug.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(key, "_")
}
