package policy

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/keel/pkg/logic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(r Rule) []string {
	var out []string
	for _, c := range r.Consequences {
		out = append(out, c.Wire()["message"].(string))
	}
	return out
}

func stack(msgs ...string) Rule {
	r := NewRule()
	for i, m := range msgs {
		r.AddConsequence(Consequence{ID: string(rune('a' + i)), Params: Warn{Message: m}})
	}
	return r
}

func TestRule_ConsequenceOrder(t *testing.T) {
	r := stack("one", "two", "three", "four")

	require.NoError(t, r.MoveConsequence(0, 2))
	assert.Equal(t, []string{"two", "three", "one", "four"}, messages(r))

	require.NoError(t, r.MoveConsequence(3, 0))
	assert.Equal(t, []string{"four", "two", "three", "one"}, messages(r))

	require.NoError(t, r.RemoveConsequence(1))
	assert.Equal(t, []string{"four", "three", "one"}, messages(r))

	require.NoError(t, r.UpdateConsequence(1, "params.message", "THREE"))
	assert.Equal(t, []string{"four", "THREE", "one"}, messages(r))

	assert.ErrorIs(t, r.RemoveConsequence(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.MoveConsequence(0, 3), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.UpdateConsequence(-1, "type", "BLOCK"), ErrIndexOutOfRange)
}

func TestRule_UpdateConsequenceDoesNotAlias(t *testing.T) {
	r := stack("one", "two")
	before := r.Consequences

	require.NoError(t, r.UpdateConsequence(0, "type", "HIDE"))

	assert.Equal(t, ActionWarn, before[0].Type())
	assert.Equal(t, ActionHide, r.Consequences[0].Type())
}

func TestRule_OpenLogicWritesBack(t *testing.T) {
	r := NewRule()
	ed := r.OpenLogic()

	id, ok := ed.AddChild(logic.RootID, logic.NodeTypeRule)
	require.True(t, ok)
	ed.UpdateNode(id, logic.SetSubject("host.amount"), logic.SetVerb(">"), logic.SetObject(1000))

	assert.Equal(t, "host.amount > 1000", r.Logic)
}

func TestPolicy_SetName(t *testing.T) {
	p := NewDraft()
	p.SetName("  High Value Orders (EU)! ")
	assert.Equal(t, "high_value_orders_eu", p.Key)

	p.ID = 7
	p.SetName("Renamed")
	assert.Equal(t, "high_value_orders_eu", p.Key)
	assert.Equal(t, "Renamed", p.Name)
}

func TestPolicy_Rules(t *testing.T) {
	p := NewDraft()
	a, b := NewRule(), NewRule()
	p.Rules = append(p.Rules, a, b)

	got, ok := p.Rule(b.ID)
	require.True(t, ok)
	got.Logic = "host.x == 1"
	assert.Equal(t, "host.x == 1", p.Rules[1].Logic)

	assert.True(t, p.RemoveRule(a.ID))
	assert.False(t, p.RemoveRule(a.ID))
	assert.Len(t, p.Rules, 1)
}

func TestPolicy_JSONCarriesVersionFields(t *testing.T) {
	in := `{
		"id": 3, "key": "limits", "name": "Limits", "description": "",
		"resolution": "WEIGHTED_SCORE", "tags": ["finance"], "is_active": true,
		"version_major": 2, "version_minor": 5, "is_latest": true,
		"rules": [{"id": "r1", "logic": "host.amount > 1000", "is_active": true,
			"consequences": [{"id": "c1", "type": "BLOCK", "params": {"message": "Too large"}}]}]
	}`
	var p Policy
	require.NoError(t, json.Unmarshal([]byte(in), &p))

	assert.Equal(t, WeightedScore, p.Resolution)
	assert.Equal(t, "2.5", p.Version())
	assert.Equal(t, Block{Message: "Too large"}, p.Rules[0].Consequences[0].Params)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	var back Policy
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, p, back)
}
