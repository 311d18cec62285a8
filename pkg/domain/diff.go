package domain

import (
	"reflect"
)

// SpecDiff lists what changed between two versions of a spec.
// It is designed to be serialized to JSON next to a saved draft.
type SpecDiff struct {
	ID string `json:"id"`

	// Initial is set when the initial state moved.
	Initial *string `json:"initial,omitempty"`

	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	// Changed lists states whose type, meta or transitions differ.
	Changed []string `json:"changed,omitempty"`
}

// Diff calculates the difference between oldSpec and newSpec.
// If oldSpec is nil, every state of newSpec is reported as added.
// It returns nil when nothing changed.
func Diff(oldSpec, newSpec *StateMachineSpec) *SpecDiff {
	if newSpec == nil {
		return nil
	}

	diff := &SpecDiff{ID: newSpec.ID}

	if oldSpec == nil || oldSpec.Initial != newSpec.Initial {
		initial := newSpec.Initial
		diff.Initial = &initial
	}

	for _, key := range newSpec.StateKeys() {
		if oldSpec == nil {
			diff.Added = append(diff.Added, key)
			continue
		}
		prev, ok := oldSpec.States[key]
		if !ok {
			diff.Added = append(diff.Added, key)
			continue
		}
		if !sameEntry(prev, newSpec.States[key]) {
			diff.Changed = append(diff.Changed, key)
		}
	}

	if oldSpec != nil {
		for _, key := range oldSpec.StateKeys() {
			if _, ok := newSpec.States[key]; !ok {
				diff.Removed = append(diff.Removed, key)
			}
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// sameEntry treats nil and empty maps as equal, since both serialize alike.
func sameEntry(a, b StateEntry) bool {
	if a.Type != b.Type {
		return false
	}
	if len(a.Meta) != 0 || len(b.Meta) != 0 {
		if !reflect.DeepEqual(a.Meta, b.Meta) {
			return false
		}
	}
	if len(a.On) != 0 || len(b.On) != 0 {
		if !reflect.DeepEqual(a.On, b.On) {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SpecDiff) IsEmpty() bool {
	return d.Initial == nil &&
		len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Changed) == 0
}
