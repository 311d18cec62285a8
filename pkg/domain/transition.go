package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Transition moves a machine to Target when its event fires.
//
// On the wire a transition without guard and actions is written as the bare
// target id; otherwise it is an object {target, guard, actions}.
type Transition struct {
	Target  string   `json:"target" yaml:"target"`
	Guard   string   `json:"guard,omitempty" yaml:"guard,omitempty"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// IsSimple reports whether the transition serializes to the string form.
func (t Transition) IsSimple() bool {
	return t.Guard == "" && len(t.Actions) == 0
}

type transitionObject Transition

func (t Transition) MarshalJSON() ([]byte, error) {
	if t.IsSimple() {
		return json.Marshal(t.Target)
	}
	return json.Marshal(transitionObject(t))
}

func (t *Transition) UnmarshalJSON(data []byte) error {
	var target string
	if err := json.Unmarshal(data, &target); err == nil {
		*t = Transition{Target: target}
		return nil
	}
	var obj transitionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("transition must be a state id or an object: %w", err)
	}
	*t = Transition(obj)
	return nil
}

func (t Transition) MarshalYAML() (any, error) {
	if t.IsSimple() {
		return t.Target, nil
	}
	return transitionObject(t), nil
}

func (t *Transition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*t = Transition{Target: value.Value}
		return nil
	}
	var obj transitionObject
	if err := value.Decode(&obj); err != nil {
		return fmt.Errorf("line %d: transition must be a state id or an object: %w", value.Line, err)
	}
	*t = Transition(obj)
	return nil
}
