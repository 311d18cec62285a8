package ports

import (
	"context"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/policy"
)

// DraftSink receives the serialized graph of an open editing session.
type DraftSink interface {
	PublishDraft(ctx context.Context, spec domain.StateMachineSpec) error
}

// DraftSinkFunc adapts a function to DraftSink.
type DraftSinkFunc func(ctx context.Context, spec domain.StateMachineSpec) error

func (f DraftSinkFunc) PublishDraft(ctx context.Context, spec domain.StateMachineSpec) error {
	return f(ctx, spec)
}

// StoreSink publishes drafts by saving them into a WorkflowStore under their id.
func StoreSink(store WorkflowStore) DraftSink {
	return DraftSinkFunc(func(ctx context.Context, spec domain.StateMachineSpec) error {
		return store.Save(ctx, spec.ID, spec)
	})
}

// DryRunner tests a policy against a sample context. Evaluation happens
// outside keel; implementations only carry the request.
type DryRunner interface {
	DryRun(ctx context.Context, req policy.DryRunRequest) (policy.DryRunResult, error)
}

// SchemaLookup resolves field paths used by rule logic.
type SchemaLookup = policy.SchemaLookup
