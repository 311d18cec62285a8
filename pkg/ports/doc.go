/*
Package ports defines the driven ports (interfaces) of keel.

These interfaces decouple the translators and the canvas session from storage
backends and from the external policy evaluator.

# Key Interfaces

  - Store: generic keyed persistence, instantiated as PolicyStore and WorkflowStore.
  - DraftSink: receives the debounced draft of an open canvas session.
  - DryRunner: the external evaluator that tests a policy against a context.
  - DistributedLocker: coordinates editing sessions across replicas.
*/
package ports
