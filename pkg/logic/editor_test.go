package logic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func TestEditor_MutationProtocol(t *testing.T) {
	var emitted []string
	ed := Load("",
		WithOnChange(func(logic string) { emitted = append(emitted, logic) }),
		WithIDGenerator(sequentialIDs()),
	)
	require.Equal(t, ModeVisual, ed.Mode())

	id, ok := ed.AddChild(RootID, NodeTypeRule)
	require.True(t, ok)
	assert.Equal(t, "n1", id)
	// A fresh rule is incomplete and compiles to nothing.
	assert.Equal(t, []string{""}, emitted)

	require.True(t, ed.UpdateNode(id, SetSubject("host.amount")))
	require.True(t, ed.UpdateNode(id, SetVerb(">"), SetObject(1000)))
	assert.Equal(t, "host.amount > 1000", ed.Logic())

	group, ok := ed.AddChild(RootID, NodeTypeGroup)
	require.True(t, ok)
	require.True(t, ed.UpdateNode(group, SetOperator(Or)))
	a, _ := ed.AddChild(group, NodeTypeRule)
	b, _ := ed.AddChild(group, NodeTypeRule)
	ed.UpdateNode(a, SetSubject("actor.role"), SetObject("admin"))
	ed.UpdateNode(b, SetSubject("actor.role"), SetObject("owner"))

	want := "(host.amount > 1000 && (actor.role == 'admin' || actor.role == 'owner'))"
	assert.Equal(t, want, ed.Logic())
	assert.Equal(t, want, emitted[len(emitted)-1])

	require.True(t, ed.RemoveChild(group, a))
	assert.Equal(t, "(host.amount > 1000 && actor.role == 'owner')", emitted[len(emitted)-1])
}

func TestEditor_EditsDoNotAliasCallerTree(t *testing.T) {
	ed := Load("host.amount > 1000", WithIDGenerator(sequentialIDs()))
	before := ed.Root()

	ed.UpdateNode("rule_1", SetObject(5))

	assert.Equal(t, float64(1000), before.Children[0].Object)
	assert.Equal(t, "host.amount > 5", ed.Logic())
}

func TestEditor_UnknownIDsAreNoOps(t *testing.T) {
	calls := 0
	ed := Load("host.amount > 1000", WithOnChange(func(string) { calls++ }))

	assert.False(t, ed.UpdateNode("missing", SetSubject("x")))
	assert.False(t, ed.RemoveChild(RootID, "missing"))
	_, ok := ed.AddChild("rule_1", NodeTypeRule) // rules cannot have children
	assert.False(t, ok)
	assert.Zero(t, calls)
	assert.Equal(t, "host.amount > 1000", ed.Logic())
}

func TestEditor_ObjectKindSwitchClearsObject(t *testing.T) {
	ed := Load("host.owner == 'bob'")
	ed.UpdateNode("rule_1", SetObjectKind(Reference))

	n := ed.Root().Find("rule_1")
	assert.Equal(t, Reference, n.ObjectKind)
	assert.Equal(t, "", n.Object)
	assert.Equal(t, "", ed.Logic())
}

func TestEditor_RawMode(t *testing.T) {
	raw := "(host.amount > 1000 || contains(host.email, '@vip'))"
	var emitted []string
	ed := Load(raw, WithOnChange(func(logic string) { emitted = append(emitted, logic) }))

	assert.Equal(t, ModeRaw, ed.Mode())
	assert.Equal(t, raw, ed.Logic())

	_, ok := ed.AddChild(RootID, NodeTypeRule)
	assert.False(t, ok, "tree edits are refused in raw mode")

	assert.ErrorIs(t, ed.SwitchMode(ModeVisual), ErrNotVisual)

	require.True(t, ed.SetRaw("host.amount > 5"))
	assert.Equal(t, []string{"host.amount > 5"}, emitted)

	require.NoError(t, ed.SwitchMode(ModeVisual))
	assert.Equal(t, ModeVisual, ed.Mode())
	assert.Equal(t, "host.amount > 5", ed.Logic())
}

func TestEditor_SwitchToRawKeepsCompiledText(t *testing.T) {
	ed := Load("host.amount > 1000 && host.vip == true")
	require.NoError(t, ed.SwitchMode(ModeRaw))
	assert.Equal(t, "(host.amount > 1000 && host.vip == true)", ed.Logic())
	assert.False(t, ed.UpdateNode("rule_1", SetObject(1)))
}
