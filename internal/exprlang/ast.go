// Package exprlang implements the decoration expression mini-language: a
// parsed tree of literals, identifiers, invocations and concatenations
// evaluated per record against a variable-resolution environment.
package exprlang

// Location marks where a node began and ended in the source template.
type Location struct {
	Start, Stop int
}

// Node is the common interface implemented by every AST node.
type Node interface {
	Loc() Location
}

// LiteralKind classifies a LiteralNode's payload.
type LiteralKind int

const (
	String LiteralKind = iota
	Integer
	Decimal
	Boolean
	Null
)

// LiteralNode is a constant value parsed directly from the template.
type LiteralNode struct {
	Location
	Kind  LiteralKind
	Value any
}

func (n *LiteralNode) Loc() Location { return n.Location }

// IdentifierNode names a variable to resolve from the evaluation context.
type IdentifierNode struct {
	Location
	Name string
}

func (n *IdentifierNode) Loc() Location { return n.Location }

// InvocationNode calls a named function with evaluated arguments.
type InvocationNode struct {
	Location
	Name string
	Args []Node
}

func (n *InvocationNode) Loc() Location { return n.Location }

// NodeList concatenates the string rendering of each child, used for
// "literal text ${expr} more text" templates.
type NodeList struct {
	Location
	Items []Node
}

func (n *NodeList) Loc() Location { return n.Location }

// KeyValuePairNode is one entry of a decoration: an output field name and the
// node list producing its rendered value.
type KeyValuePairNode struct {
	Location
	Key   string
	Value *NodeList
}

func (n *KeyValuePairNode) Loc() Location { return n.Location }

// Decoration is a parsed "key": "...${expr}..." template set.
type Decoration struct {
	Pairs []*KeyValuePairNode
}
