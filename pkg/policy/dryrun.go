package policy

// DryRunRequest is sent to the external evaluator to test a draft policy
// against a sample context.
type DryRunRequest struct {
	Policy  Policy         `json:"policy"`
	Context map[string]any `json:"context"`
}

// Mutation is a field change the evaluator would apply.
type Mutation struct {
	Target string `json:"target"`
	Value  any    `json:"value"`
}

// SideEffect is a non-field effect the evaluator would emit.
type SideEffect struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// DryRunResult is the evaluator's verdict for a DryRunRequest.
type DryRunResult struct {
	IsValid        bool         `json:"is_valid"`
	BlockingErrors []string     `json:"blocking_errors"`
	Warnings       []string     `json:"warnings"`
	Mutations      []Mutation   `json:"mutations"`
	SideEffects    []SideEffect `json:"side_effects"`
}
