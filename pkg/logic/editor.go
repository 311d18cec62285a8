package logic

import (
	"errors"
	"log/slog"

	"github.com/aretw0/keel/internal/logging"
	"github.com/google/uuid"
)

// ErrNotVisual is returned when raw text cannot be shown as a tree.
var ErrNotVisual = errors.New("expression cannot be edited visually")

// Patch mutates a single node in place. Patches run on a private copy of the
// tree, never on a tree the caller holds.
type Patch func(*Node)

// SetSubject sets the left-hand field path of a rule.
func SetSubject(subject string) Patch {
	return func(n *Node) { n.Subject = subject }
}

// SetVerb sets the comparison verb of a rule.
func SetVerb(verb string) Patch {
	return func(n *Node) { n.Verb = verb }
}

// SetObject sets the right-hand value of a rule.
func SetObject(object any) Patch {
	return func(n *Node) { n.Object = object }
}

// SetObjectKind switches a rule between literal and reference. The previous
// object is cleared because it was entered for the other kind.
func SetObjectKind(kind ObjectKind) Patch {
	return func(n *Node) {
		if n.ObjectKind != kind {
			n.Object = ""
		}
		n.ObjectKind = kind
	}
}

// SetOperator sets the boolean operator of a group.
func SetOperator(op Operator) Patch {
	return func(n *Node) { n.Operator = op }
}

// Editor owns one condition tree while a rule is open for editing.
// Every structural change recompiles the tree and reports the new expression
// through the OnChange callback before the method returns.
type Editor struct {
	root     *Node
	raw      string
	mode     Mode
	onChange func(string)
	newID    func() string
	logger   *slog.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithOnChange registers the callback that receives every recompiled expression.
func WithOnChange(fn func(logic string)) EditorOption {
	return func(e *Editor) {
		e.onChange = fn
	}
}

// WithIDGenerator overrides how ids for new nodes are produced.
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) {
		e.newID = fn
	}
}

// WithLogger configures the editor logger.
func WithLogger(logger *slog.Logger) EditorOption {
	return func(e *Editor) {
		e.logger = logger
	}
}

// Load opens an expression for editing. Expressions the classifier rejects
// open in raw mode with their text untouched.
func Load(expr string, opts ...EditorOption) *Editor {
	e := &Editor{
		onChange: func(string) {},
		newID:    func() string { return "node_" + uuid.NewString() },
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if Classify(expr) == ModeRaw {
		e.mode = ModeRaw
		e.raw = expr
		e.root = NewGroup(RootID, And)
		e.logger.Debug("Expression opened as raw text", "logic", expr)
		return e
	}

	root, _ := Decompile(expr)
	e.mode = ModeVisual
	e.root = root
	return e
}

// Mode returns the current editing mode.
func (e *Editor) Mode() Mode { return e.mode }

// Root returns a copy of the current tree.
func (e *Editor) Root() *Node { return e.root.Clone() }

// Logic returns the expression that would be persisted right now.
func (e *Editor) Logic() string {
	if e.mode == ModeRaw {
		return e.raw
	}
	return Compile(e.root)
}

// UpdateNode applies patches to the node with the given id.
// It returns false when the id is unknown or the editor is in raw mode.
func (e *Editor) UpdateNode(id string, patches ...Patch) bool {
	return e.mutate("update", id, func(root *Node) bool {
		node := root.Find(id)
		if node == nil {
			return false
		}
		for _, p := range patches {
			p(node)
		}
		return true
	})
}

// AddChild appends a new node of the given type to a group and returns its id.
// New rules start incomplete and therefore compile to nothing.
func (e *Editor) AddChild(parentID string, typ NodeType) (string, bool) {
	id := e.newID()
	ok := e.mutate("add", parentID, func(root *Node) bool {
		parent := root.Find(parentID)
		if !parent.IsGroup() {
			return false
		}
		var child *Node
		if typ == NodeTypeGroup {
			child = NewGroup(id, And)
		} else {
			child = NewRule(id, "", VerbEquals, Literal, "")
		}
		parent.Children = append(parent.Children, child)
		return true
	})
	if !ok {
		return "", false
	}
	return id, true
}

// RemoveChild detaches the child with the given id from a group.
func (e *Editor) RemoveChild(parentID, id string) bool {
	return e.mutate("remove", id, func(root *Node) bool {
		parent := root.Find(parentID)
		if !parent.IsGroup() {
			return false
		}
		kept := parent.Children[:0:0]
		for _, c := range parent.Children {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(parent.Children) {
			return false
		}
		parent.Children = kept
		return true
	})
}

// SetRaw replaces the expression text while in raw mode.
func (e *Editor) SetRaw(text string) bool {
	if e.mode != ModeRaw {
		return false
	}
	e.raw = text
	e.onChange(text)
	return true
}

// SwitchMode moves between visual and raw editing. Going visual requires the
// current text to decompile; the text is left as is otherwise.
func (e *Editor) SwitchMode(mode Mode) error {
	if mode == e.mode {
		return nil
	}
	if mode == ModeRaw {
		e.raw = Compile(e.root)
		e.mode = ModeRaw
		return nil
	}
	if Classify(e.raw) == ModeRaw {
		return ErrNotVisual
	}
	root, _ := Decompile(e.raw)
	e.root = root
	e.mode = ModeVisual
	return nil
}

func (e *Editor) mutate(op, id string, fn func(root *Node) bool) bool {
	if e.mode != ModeVisual {
		return false
	}
	clone := e.root.Clone()
	if !fn(clone) {
		e.logger.Debug("Tree edit ignored", "op", op, "node_id", id)
		return false
	}
	e.root = clone
	code := Compile(clone)
	e.logger.Debug("Tree recompiled", "op", op, "node_id", id, "logic", code)
	e.onChange(code)
	return true
}
