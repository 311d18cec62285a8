package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		expr string
		want Mode
	}{
		{"", ModeVisual},
		{"   ", ModeVisual},
		{"host.amount > 1000", ModeVisual},
		{"host.amount > 1000 && actor.role == 'admin'", ModeVisual},
		{"host.owner == actor.id", ModeVisual},
		{"(host.amount > 1000 || actor.role == 'admin')", ModeRaw},
		{"contains(host.email, '@test')", ModeRaw},
		{"host.amount > 1000 || host.vip == true", ModeRaw},
		{"host.tag == 'a|b'", ModeRaw},
		{"length(host.items) > 3", ModeRaw},
		{"host.amount", ModeRaw},
		{"!host.active", ModeRaw},
		{"host.amount > 1000 &&", ModeRaw},
		{"host.name == 'unterminated", ModeRaw},
		{"code == '007'", ModeRaw},
		{"flag == 'true'", ModeRaw},
		{"host.amount > '1.5'", ModeRaw},
		{"host.name == ''", ModeRaw},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.expr))
		})
	}
}

func TestDecompile_FlatChain(t *testing.T) {
	root, ok := Decompile("host.amount > 1000 && actor.role == 'admin' && host.owner == actor.id && host.vip != false")
	require.True(t, ok)
	require.Len(t, root.Children, 4)

	assert.Equal(t, RootID, root.ID)
	assert.Equal(t, And, root.Operator)

	amount := root.Children[0]
	assert.Equal(t, "host.amount", amount.Subject)
	assert.Equal(t, ">", amount.Verb)
	assert.Equal(t, Literal, amount.ObjectKind)
	assert.Equal(t, float64(1000), amount.Object)

	role := root.Children[1]
	assert.Equal(t, Literal, role.ObjectKind)
	assert.Equal(t, "admin", role.Object)

	owner := root.Children[2]
	assert.Equal(t, Reference, owner.ObjectKind)
	assert.Equal(t, "actor.id", owner.Object)

	vip := root.Children[3]
	assert.Equal(t, false, vip.Object)
}

func TestDecompile_RoundTrip(t *testing.T) {
	t.Run("single rule reopens visually", func(t *testing.T) {
		for _, expr := range []string{
			"host.amount > 1000",
			"host.name == 'O\\'Brien'",
			"host.owner == actor.id",
		} {
			root, ok := Decompile(expr)
			require.True(t, ok, expr)
			assert.Equal(t, expr, Compile(root))
			assert.Equal(t, ModeVisual, Classify(Compile(root)), expr)
		}
	})

	t.Run("chains recompile parenthesized", func(t *testing.T) {
		root, ok := Decompile("host.amount > 1000 && actor.role == 'admin'")
		require.True(t, ok)

		compiled := Compile(root)
		assert.Equal(t, "(host.amount > 1000 && actor.role == 'admin')", compiled)
		assert.Equal(t, ModeRaw, Classify(compiled))
	})
}

func TestDecompile_Rejects(t *testing.T) {
	for _, expr := range []string{
		"host.amount >",
		"1000 < host.amount",
		"host.amount > 1000 || x == 1",
		"starts_with(host.code, 'EU')",
		"host.a == true == false",
		"code == '007'",
		"flag == 'true'",
		"flag == 'false'",
		"host.name == ''",
	} {
		_, ok := Decompile(expr)
		assert.False(t, ok, expr)
	}
}

func TestPaths(t *testing.T) {
	got := Paths("(contains(host.email, '@x') || host.owner == actor.id) && host.vip == true && host.owner != 'host.fake'")
	assert.Equal(t, []string{"host.email", "host.owner", "actor.id", "host.vip"}, got)
	assert.Nil(t, Paths("host.name == 'open"))
}
