/*
Package policy defines the governance data model: policies made of rules, each
rule carrying a compiled logic expression and an ordered stack of consequences.

Consequence parameters are a tagged union. Every ActionKind has its own params
record, and the kind-to-fields table in this package is the only place that
decides which wire keys apply to which kind. Changing a consequence's kind
starts from empty params so values entered for the previous kind never reach
the evaluator.

The resolution strategy and version fields are carried, never interpreted.
*/
package policy
