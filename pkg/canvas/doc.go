/*
Package canvas is the editing core behind the workflow graph editor.

A Session exclusively owns one graph while a workflow is open. Every edit
records an undo snapshot, then pushes the serialized spec through a debouncer
to a ports.DraftSink. Closing a session flushes the pending draft, so an edit
is either delivered or explicitly cancelled, never silently lost.

A Registry hands out sessions and refuses to open the same workflow twice,
optionally across replicas through a ports.DistributedLocker.
*/
package canvas
