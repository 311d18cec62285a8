package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/keel/pkg/adapters/redis"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	tests.RunPolicyStoreContract(t, redis.NewPolicyStore(client))
	tests.RunWorkflowStoreContract(t, redis.NewWorkflowStore(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewWorkflowStore(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	err := store.Save(ctx, "wf", domain.StateMachineSpec{ID: "wf", Initial: "A"})
	require.NoError(t, err)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "wf")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "wf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the index is pruned against wall-clock time
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewPolicyStore(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "limits", domainPolicy()))

	assert.True(t, mr.Exists("custom:app:limits"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"limits"}, list)
}

func TestRedisStore_DefaultPrefixesDoNotCollide(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	policies := redis.NewPolicyStore(client)
	workflows := redis.NewWorkflowStore(client)

	require.NoError(t, policies.Save(ctx, "same", domainPolicy()))
	require.NoError(t, workflows.Save(ctx, "same", domain.StateMachineSpec{ID: "same"}))

	p, err := policies.Load(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, "limits", p.Key)
}
