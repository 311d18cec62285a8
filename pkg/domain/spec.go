package domain

import (
	"encoding/json"
	"reflect"
	"sort"
)

// StateType is the XState-style kind of a state.
type StateType string

const (
	StateAtomic StateType = "atomic"
	StateFinal  StateType = "final"
)

// Meta keys written by the graph editor. Every other key is opaque and passed
// through untouched.
const (
	MetaX          = "x"
	MetaY          = "y"
	MetaNodeType   = "nodeType"
	MetaFormSchema = "form_schema"
	MetaJobConfig  = "job_config"
)

// StateMachineSpec is the declarative workflow definition persisted by the backend.
type StateMachineSpec struct {
	ID      string                `json:"id" yaml:"id"`
	Initial string                `json:"initial" yaml:"initial"`
	States  map[string]StateEntry `json:"states" yaml:"states"`
}

// StateEntry is one state of a spec.
type StateEntry struct {
	Type StateType             `json:"type,omitempty" yaml:"type,omitempty"`
	Meta map[string]any        `json:"meta,omitempty" yaml:"meta,omitempty"`
	On   map[string]Transition `json:"on" yaml:"on"`
}

// StateKeys returns the state ids in sorted order.
func (s StateMachineSpec) StateKeys() []string {
	keys := make([]string, 0, len(s.States))
	for k := range s.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Coordinate returns meta[key] as a number. Decoders and in-process callers
// disagree on numeric types (YAML yields int, JSON float64 or json.Number), so
// every integer and float kind is accepted.
func Coordinate(meta map[string]any, key string) (float64, bool) {
	v, ok := meta[key]
	if !ok || v == nil {
		return 0, false
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
