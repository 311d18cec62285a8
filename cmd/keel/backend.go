package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/keel/internal/config"
	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/adapters/redis"
	"github.com/aretw0/keel/pkg/adapters/sqlite"
	"github.com/aretw0/keel/pkg/ports"
)

// backend bundles the stores selected by config.
type backend struct {
	policies  ports.PolicyStore
	workflows ports.WorkflowStore
	locker    ports.DistributedLocker
	close     func() error
}

func openBackend(ctx context.Context, c config.Config, logger *slog.Logger) (*backend, error) {
	switch c.Store {
	case config.BackendMemory:
		logger.Info("Using in-memory store")
		return &backend{
			policies:  memory.NewPolicyStore(),
			workflows: memory.NewWorkflowStore(),
			close:     func() error { return nil },
		}, nil

	case config.BackendRedis:
		client := redis.NewClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Redis.Addr, err)
		}
		policyOpts := []redis.Option{redis.WithTTL(c.Redis.TTL)}
		workflowOpts := []redis.Option{redis.WithTTL(c.Redis.TTL)}
		lockPrefix := "keel:"
		if p := c.Redis.Prefix; p != "" {
			policyOpts = append(policyOpts, redis.WithPrefix(p+"policy:"))
			workflowOpts = append(workflowOpts, redis.WithPrefix(p+"workflow:"))
			lockPrefix = p
		}
		logger.Info("Using redis store", "addr", c.Redis.Addr, "prefix", lockPrefix)
		return &backend{
			policies:  redis.NewPolicyStore(client, policyOpts...),
			workflows: redis.NewWorkflowStore(client, workflowOpts...),
			locker:    redis.NewLocker(client, lockPrefix),
			close:     client.Close,
		}, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(c.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("Using sqlite store", "dsn", c.SQLite.DSN)
		return &backend{
			policies:  sqlite.NewPolicyStore(db),
			workflows: sqlite.NewWorkflowStore(db),
			close:     db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", c.Store)
	}
}
