package statechart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/keel/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a single reason a spec cannot be opened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap lets errors.As reach the individual failures.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// Decode parses a spec from JSON or YAML text and validates it.
// Nothing is returned unless the whole document is acceptable.
func Decode(data []byte) (domain.StateMachineSpec, error) {
	var spec domain.StateMachineSpec

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return spec, &ValidationError{Field: "states", Reason: "document is empty"}
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if err := dec.Decode(&spec); err != nil {
			return domain.StateMachineSpec{}, fmt.Errorf("decode spec json: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &spec); err != nil {
		return domain.StateMachineSpec{}, fmt.Errorf("decode spec yaml: %w", err)
	}

	if err := Validate(spec); err != nil {
		return domain.StateMachineSpec{}, err
	}
	return spec, nil
}

// Validate checks that a spec names its states and an initial state among them.
func Validate(spec domain.StateMachineSpec) error {
	var errs []error
	if spec.States == nil {
		errs = append(errs, &ValidationError{Field: "states", Reason: "required"})
	}
	switch {
	case spec.Initial == "":
		errs = append(errs, &ValidationError{Field: "initial", Reason: "required"})
	case spec.States != nil:
		if _, ok := spec.States[spec.Initial]; !ok {
			errs = append(errs, &ValidationError{
				Field:  "initial",
				Reason: fmt.Sprintf("%q is not a state", spec.Initial),
			})
		}
	}
	for _, key := range spec.StateKeys() {
		for event, t := range spec.States[key].On {
			if t.Target == "" {
				errs = append(errs, &ValidationError{
					Field:  fmt.Sprintf("states.%s.on.%s", key, event),
					Reason: "transition has no target",
				})
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
