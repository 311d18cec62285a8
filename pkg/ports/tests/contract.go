// Package tests holds reusable suites that storage adapters run against
// their own implementations.
package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/policy"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPolicyStoreContract verifies that a PolicyStore keeps policies intact.
func RunPolicyStoreContract(t *testing.T, store ports.PolicyStore) {
	t.Helper()
	ctx := context.Background()
	key := "contract-policy-" + time.Now().Format("20060102150405")

	sample := func(k string) policy.Policy {
		p := policy.NewDraft()
		p.SetName(k)
		p.Key = k
		p.Tags = []string{"contract"}
		r := policy.NewRule()
		r.Logic = "host.amount > 1000"
		r.AddConsequence(policy.Consequence{ID: "c1", Params: policy.Block{Message: "Too large"}})
		r.AddConsequence(policy.Consequence{ID: "c2", Params: policy.SetValue{TargetField: "status", Value: "held"}})
		p.Rules = append(p.Rules, r)
		return p
	}

	t.Run("Save and Load", func(t *testing.T) {
		p := sample(key)
		require.NoError(t, store.Save(ctx, key, p))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, p, loaded)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		p := sample(key)
		p.Description = "second"
		require.NoError(t, store.Save(ctx, key, p))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.Description)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-b", key+"-a"
		require.NoError(t, store.Save(ctx, k1, sample(k1)))
		require.NoError(t, store.Save(ctx, k2, sample(k2)))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
		assert.IsIncreasing(t, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})
}

// RunWorkflowStoreContract verifies that a WorkflowStore keeps both
// transition forms and opaque meta.
func RunWorkflowStoreContract(t *testing.T, store ports.WorkflowStore) {
	t.Helper()
	ctx := context.Background()
	id := fmt.Sprintf("contract-wf-%d", time.Now().UnixNano())

	spec := domain.StateMachineSpec{
		ID:      id,
		Initial: "draft",
		States: map[string]domain.StateEntry{
			"draft": {
				Type: domain.StateAtomic,
				Meta: map[string]any{"x": 50.0, "y": 100.0, "color": "#fff"},
				On: map[string]domain.Transition{
					"SUBMIT": {Target: "done"},
					"REJECT": {Target: "done", Guard: "host.ok == false", Actions: []string{"notify"}},
				},
			},
			"done": {Type: domain.StateFinal, On: map[string]domain.Transition{}},
		},
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, spec))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, spec, loaded)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
