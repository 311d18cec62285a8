/*
Package domain contains the data model shared by the graph editor and the
state-machine translators.

It is kept free of I/O so that adapters, the canvas session and the HTTP
layer can all exchange the same values.

# Key Entities

  - StateMachineSpec: the persisted workflow definition (id, initial, states).
  - StateEntry: one state with its opaque meta and its outgoing transitions.
  - Transition: a target state id, optionally guarded and with actions.
  - Graph: the editable node/edge projection of a spec.
*/
package domain
