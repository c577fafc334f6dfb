package semtree

import "strings"

// Builder assembles a Tree. It is not safe for concurrent use and must not
// be used after Build.
type Builder struct {
	nodes  []Node
	scopes []Scope
	roots  []NodeID
}

// NewBuilder returns an empty builder. Index zero of both arenas is
// reserved so that zero ids mean "absent".
func NewBuilder() *Builder {
	return &Builder{
		nodes:  make([]Node, 1, 64),
		scopes: make([]Scope, 1, 8),
	}
}

// AddNode appends a node and returns its id. The ID field of n is ignored.
func (b *Builder) AddNode(n Node) NodeID {
	id := NodeID(len(b.nodes))
	n.ID = id
	if len(n.Params) > 0 {
		n.Flags |= FlagFunction
	}
	b.nodes = append(b.nodes, n)
	return id
}

// Node gives mutable access to a node while the tree is being built.
func (b *Builder) Node(id NodeID) *Node {
	if id <= 0 || int(id) >= len(b.nodes) {
		return nil
	}
	return &b.nodes[id]
}

// AddScope creates a scope owned by the given declaration and links the
// declaration to it. An empty fullName defaults to the owner's qualified
// name.
func (b *Builder) AddScope(owner NodeID, fullName string, remote bool) ScopeID {
	id := ScopeID(len(b.scopes))
	if fullName == "" {
		if n := b.Node(owner); n != nil {
			fullName = JoinName(strings.ToLower(n.Container), n.Name)
		}
	}
	b.scopes = append(b.scopes, Scope{
		ID:       id,
		FullName: fullName,
		Owner:    owner,
		Remote:   remote,
		byName:   make(map[string]int),
	})
	if n := b.Node(owner); n != nil {
		n.Scope = id
	}
	return id
}

// Declare adds a symbol to a scope. Redeclaring an identifier replaces the
// earlier symbol in place.
func (b *Builder) Declare(scope ScopeID, sym NodeID) {
	if scope <= 0 || int(scope) >= len(b.scopes) {
		return
	}
	n := b.Node(sym)
	if n == nil {
		return
	}
	s := &b.scopes[scope]
	key := strings.ToLower(n.Name)
	if i, ok := s.byName[key]; ok {
		s.symbols[i] = sym
		return
	}
	s.byName[key] = len(s.symbols)
	s.symbols = append(s.symbols, sym)
}

// AddChild appends child to parent's structural children.
func (b *Builder) AddChild(parent, child NodeID) {
	if p := b.Node(parent); p != nil && b.Node(child) != nil {
		p.Children = append(p.Children, child)
	}
}

// AddParam appends a formal parameter to a function-like declaration.
func (b *Builder) AddParam(fn, param NodeID) {
	if f := b.Node(fn); f != nil && b.Node(param) != nil {
		f.Params = append(f.Params, param)
		f.Flags |= FlagFunction
	}
}

// AddRoot records a top-level declaration.
func (b *Builder) AddRoot(id NodeID) {
	if b.Node(id) != nil {
		b.roots = append(b.roots, id)
	}
}

// Build freezes the arena into a Tree.
func (b *Builder) Build() *Tree {
	t := &Tree{nodes: b.nodes, scopes: b.scopes, roots: b.roots}
	b.nodes, b.scopes, b.roots = nil, nil, nil
	return t
}
