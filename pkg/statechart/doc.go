/*
Package statechart translates between a StateMachineSpec and the node/edge
graph edited on the canvas.

ToGraph and ToSpec are pure. They tolerate partially edited graphs: edges
whose endpoints were deleted are dropped on the way back, and an empty graph
still produces a spec (with initial "unknown").

Specs read from outside (files, HTTP bodies) go through Decode, which accepts
JSON or YAML and rejects documents that cannot be opened.
*/
package statechart
