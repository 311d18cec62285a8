package logic

import (
	"encoding/json"
)

// NodeType discriminates the two kinds of tree nodes.
type NodeType string

const (
	// NodeTypeGroup combines its children with a boolean operator.
	NodeTypeGroup NodeType = "GROUP"
	// NodeTypeRule is a single comparison leaf.
	NodeTypeRule NodeType = "RULE"
)

// Operator joins the children of a group.
type Operator string

const (
	And Operator = "AND"
	Or  Operator = "OR"
)

// Symbol returns the textual form used in compiled expressions.
func (o Operator) Symbol() string {
	if o == Or {
		return "||"
	}
	return "&&"
}

// ObjectKind tells the compiler how to render the right-hand side of a rule.
type ObjectKind string

const (
	// Literal values are emitted bare when numeric or boolean, quoted otherwise.
	Literal ObjectKind = "LITERAL"
	// Reference values are field paths and are never quoted.
	Reference ObjectKind = "REFERENCE"
)

// Comparison verbs understood by the evaluator.
const (
	VerbEquals     = "=="
	VerbNotEquals  = "!="
	VerbGreater    = ">"
	VerbLess       = "<"
	VerbGreaterEq  = ">="
	VerbLessEq     = "<="
	VerbContains   = "contains"
	VerbStartsWith = "starts_with"
)

// Verbs lists every verb offered by the rule builder, in display order.
var Verbs = []string{
	VerbEquals, VerbNotEquals, VerbGreater, VerbLess, VerbGreaterEq, VerbLessEq,
	VerbContains, VerbStartsWith,
}

// IsPredicate reports whether verb compiles to the function-call form.
func IsPredicate(verb string) bool {
	return verb == VerbContains || verb == VerbStartsWith
}

func isInfix(verb string) bool {
	switch verb {
	case VerbEquals, VerbNotEquals, VerbGreater, VerbLess, VerbGreaterEq, VerbLessEq:
		return true
	}
	return false
}

// Node is one element of a condition tree.
// Group fields are only meaningful when Type is GROUP, rule fields only when
// Type is RULE.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Type NodeType `json:"type" yaml:"type"`

	// Group
	Operator Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Children []*Node  `json:"children,omitempty" yaml:"children,omitempty"`

	// Rule
	Subject    string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Verb       string     `json:"verb,omitempty" yaml:"verb,omitempty"`
	ObjectKind ObjectKind `json:"object_kind,omitempty" yaml:"object_kind,omitempty"`
	Object     any        `json:"object,omitempty" yaml:"object,omitempty"`
}

// NewGroup creates a group node.
func NewGroup(id string, op Operator, children ...*Node) *Node {
	return &Node{ID: id, Type: NodeTypeGroup, Operator: op, Children: children}
}

// NewRule creates a comparison leaf.
func NewRule(id, subject, verb string, kind ObjectKind, object any) *Node {
	return &Node{
		ID:         id,
		Type:       NodeTypeRule,
		Subject:    subject,
		Verb:       verb,
		ObjectKind: kind,
		Object:     object,
	}
}

// IsGroup reports whether n is a group node.
func (n *Node) IsGroup() bool { return n != nil && n.Type == NodeTypeGroup }

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Find returns the node with the given id, searching depth-first.
func (n *Node) Find(id string) *Node {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// IDs returns every id in the tree in depth-first order.
func (n *Node) IDs() []string {
	var ids []string
	var walk func(*Node)
	walk = func(node *Node) {
		if node == nil {
			return
		}
		ids = append(ids, node.ID)
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(n)
	return ids
}

// UnmarshalJSON decodes a node, keeping JSON numbers in Object as float64 and
// tolerating a missing type (leaves written by older editors).
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node(raw)
	switch n.Operator {
	case "&&":
		n.Operator = And
	case "||":
		n.Operator = Or
	}
	if n.Type == "" {
		if n.Children != nil || n.Operator != "" {
			n.Type = NodeTypeGroup
		} else {
			n.Type = NodeTypeRule
		}
	}
	if n.Type == NodeTypeRule && n.ObjectKind == "" {
		n.ObjectKind = Literal
	}
	return nil
}
