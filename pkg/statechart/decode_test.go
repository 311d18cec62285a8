package statechart

import (
	"errors"
	"testing"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_YAML(t *testing.T) {
	src := `
id: approval
initial: pending
states:
  pending:
    meta:
      x: 10
      y: 20
      description: waiting
    on:
      APPROVE: approved
      REJECT:
        target: rejected
        guard: host.amount > 1000
        actions: [notify_owner]
  approved:
    type: final
  rejected:
    type: final
`
	spec, err := Decode([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, "pending", spec.Initial)
	assert.Equal(t, domain.Transition{Target: "approved"}, spec.States["pending"].On["APPROVE"])
	assert.Equal(t, domain.Transition{
		Target:  "rejected",
		Guard:   "host.amount > 1000",
		Actions: []string{"notify_owner"},
	}, spec.States["pending"].On["REJECT"])

	x, ok := domain.Coordinate(spec.States["pending"].Meta, "x")
	assert.True(t, ok)
	assert.Equal(t, 10.0, x)
	assert.False(t, NeedsAutoLayout(spec))
}

func TestDecode_JSON(t *testing.T) {
	spec, err := Decode([]byte(`{"id":"wf","initial":"A","states":{"A":{"on":{"NEXT":"A"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "wf", spec.ID)
	assert.Equal(t, "A", spec.States["A"].On["NEXT"].Target)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		fields []string
	}{
		{name: "empty", src: "  ", fields: []string{"states"}},
		{name: "missing states", src: `{"id":"wf","initial":"A"}`, fields: []string{"states"}},
		{name: "missing initial", src: "states:\n  A: {}\n", fields: []string{"initial"}},
		{name: "unknown initial", src: "initial: Z\nstates:\n  A: {}\n", fields: []string{"initial"}},
		{name: "no target", src: "initial: A\nstates:\n  A:\n    on:\n      GO: {guard: x}\n", fields: []string{"states.A.on.GO"}},
		{name: "both", src: `{"id":"wf"}`, fields: []string{"states", "initial"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src))
			require.Error(t, err)

			errs := ValidationErrors(err)
			if errs == nil {
				var single *ValidationError
				require.True(t, errors.As(err, &single))
				errs = []error{single}
			}
			var got []string
			for _, e := range errs {
				var ve *ValidationError
				require.True(t, errors.As(e, &ve))
				got = append(got, ve.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestDecode_SyntaxError(t *testing.T) {
	_, err := Decode([]byte(`{"id":`))
	require.Error(t, err)
	assert.Nil(t, ValidationErrors(err))
}
