// Package proptree is the hierarchical document the metadata extractor
// writes into: named nodes holding ordered scalar properties and ordered
// children, built strictly top-down.
//
// Property keys starting with "@" are attributes of the node; other keys
// are scalar child values (for example "Type"). Renderers keep that
// distinction, which matters for XML.
package proptree

import "fmt"

// ValueKind tags the type of a property value.
type ValueKind uint8

const (
	StringValue ValueKind = iota
	IntValue
	BoolValue
)

// Prop is one scalar property of a node.
type Prop struct {
	Key  string
	Kind ValueKind
	Str  string
	Int  int
	Bool bool
}

// Value renders the property as a string.
func (p Prop) Value() string {
	switch p.Kind {
	case IntValue:
		return fmt.Sprintf("%d", p.Int)
	case BoolValue:
		if p.Bool {
			return "1"
		}
		return "0"
	default:
		return p.Str
	}
}

// IsAttribute reports whether the property is an "@" attribute.
func (p Prop) IsAttribute() bool {
	return len(p.Key) > 0 && p.Key[0] == '@'
}

// Node is a named element of the output tree.
type Node struct {
	name     string
	props    []Prop
	children []*Node
	parent   *Node
}

// New creates a detached node.
func New(name string) *Node {
	return &Node{name: name}
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// Parent returns the node this one is attached under, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// AddChild creates a node and attaches it as the last child.
func (n *Node) AddChild(name string) *Node {
	c := &Node{name: name, parent: n}
	n.children = append(n.children, c)
	return c
}

// Attach adds an existing detached node as the last child. Attaching a node
// that already has a parent, or the node itself, panics: a node belongs to
// exactly one parent.
func (n *Node) Attach(child *Node) {
	if child == nil {
		return
	}
	if child.parent != nil || child == n {
		panic(fmt.Sprintf("proptree: node %q is already attached", child.name))
	}
	child.parent = n
	n.children = append(n.children, child)
}

// SetString sets a string property, replacing an existing value for key.
func (n *Node) SetString(key, value string) {
	n.set(Prop{Key: key, Kind: StringValue, Str: value})
}

// SetInt sets an integer property, replacing an existing value for key.
func (n *Node) SetInt(key string, value int) {
	n.set(Prop{Key: key, Kind: IntValue, Int: value})
}

// SetBool sets a boolean property, replacing an existing value for key.
func (n *Node) SetBool(key string, value bool) {
	n.set(Prop{Key: key, Kind: BoolValue, Bool: value})
}

func (n *Node) set(p Prop) {
	for i := range n.props {
		if n.props[i].Key == p.Key {
			n.props[i] = p
			return
		}
	}
	n.props = append(n.props, p)
}

// Props returns a copy of the properties in insertion order.
func (n *Node) Props() []Prop {
	out := make([]Prop, len(n.props))
	copy(out, n.props)
	return out
}

// Prop returns the property stored under key.
func (n *Node) Prop(key string) (Prop, bool) {
	for _, p := range n.props {
		if p.Key == key {
			return p, true
		}
	}
	return Prop{}, false
}

// Has reports whether key is set.
func (n *Node) Has(key string) bool {
	_, ok := n.Prop(key)
	return ok
}

// String returns the value under key rendered as a string.
func (n *Node) String(key string) string {
	if p, ok := n.Prop(key); ok {
		return p.Value()
	}
	return ""
}

// Int returns an integer property, or 0.
func (n *Node) Int(key string) int {
	if p, ok := n.Prop(key); ok && p.Kind == IntValue {
		return p.Int
	}
	return 0
}

// Bool returns a boolean property, or false.
func (n *Node) Bool(key string) bool {
	if p, ok := n.Prop(key); ok && p.Kind == BoolValue {
		return p.Bool
	}
	return false
}

// Children returns a copy of the children in order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildrenNamed returns the children with the given name, in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		c.walk(fn, depth+1)
	}
}
