package semtree

import "strings"

// NodeID addresses a node in a Tree. Zero is never a valid node.
type NodeID int32

// ScopeID addresses a scope in a Tree. Zero is never a valid scope.
type ScopeID int32

// SymbolPos is the position data a front end records for named symbols.
type SymbolPos struct {
	Start  int    // offset of the first character of the declaration
	Body   int    // offset of the definition body
	End    int    // offset just past the declaration
	Source string // path of the defining source file
}

// Node is one declaration or structural element of the semantic tree.
type Node struct {
	ID        NodeID
	Kind      Kind
	Name      string // identifier
	Container string // fully qualified id of the enclosing module, may be empty
	Line      int    // start line, 0 when unknown
	Symbol    *SymbolPos
	Flags     Flags
	Doc       string // raw documentation comment attached by the front end

	Children []NodeID // ordered structural children
	Params   []NodeID // formal parameters of a function-like declaration

	Scope        ScopeID // associated scope (module, interface, import target)
	Body         NodeID  // defining body when this node is an indirection
	Original     NodeID  // unaliased definition an import refers to
	ReturnRecord NodeID  // record produced by a transform
}

// Scope is an ordered, name-keyed table of directly declared symbols.
type Scope struct {
	ID       ScopeID
	FullName string
	Owner    NodeID // declaration that owns the scope
	Remote   bool   // resolved from a remote repository

	symbols []NodeID
	byName  map[string]int
}

// Len returns the number of directly declared symbols.
func (s *Scope) Len() int {
	return len(s.symbols)
}

// Tree is an immutable arena of nodes and scopes.
type Tree struct {
	nodes  []Node
	scopes []Scope
	roots  []NodeID
}

// Node returns the node with the given id, or nil when id is absent.
func (t *Tree) Node(id NodeID) *Node {
	if t == nil || id <= 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Scope returns the scope with the given id, or nil when id is absent.
func (t *Tree) Scope(id ScopeID) *Scope {
	if t == nil || id <= 0 || int(id) >= len(t.scopes) {
		return nil
	}
	return &t.scopes[id]
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes) - 1
}

// Roots returns the top-level declarations in the order they were added.
func (t *Tree) Roots() []NodeID {
	if t == nil {
		return nil
	}
	out := make([]NodeID, len(t.roots))
	copy(out, t.roots)
	return out
}

// Symbols returns the directly declared symbols of a scope in declaration
// order. The returned slice is a copy.
func (t *Tree) Symbols(id ScopeID) []NodeID {
	s := t.Scope(id)
	if s == nil {
		return nil
	}
	out := make([]NodeID, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Lookup finds a directly declared symbol by identifier, ignoring case.
func (t *Tree) Lookup(id ScopeID, name string) NodeID {
	s := t.Scope(id)
	if s == nil {
		return 0
	}
	if i, ok := s.byName[strings.ToLower(name)]; ok {
		return s.symbols[i]
	}
	return 0
}

// ResolveBody follows Body indirections and returns the defining node.
// A node without indirection is its own body.
func (t *Tree) ResolveBody(id NodeID) NodeID {
	// Bounded by the arena size so a malformed cycle cannot hang the caller.
	for steps := 0; steps < len(t.nodes); steps++ {
		n := t.Node(id)
		if n == nil || n.Body == 0 || n.Body == id {
			return id
		}
		id = n.Body
	}
	return id
}

// ScopeOf returns the scope associated with a node, or zero.
func (t *Tree) ScopeOf(id NodeID) ScopeID {
	if n := t.Node(id); n != nil {
		return n.Scope
	}
	return 0
}

// OwnerOf returns the declaration that owns a scope, or zero.
func (t *Tree) OwnerOf(id ScopeID) NodeID {
	if s := t.Scope(id); s != nil {
		return s.Owner
	}
	return 0
}

// IsScope reports whether the node denotes a module, interface or a
// resolved import of one.
func (t *Tree) IsScope(id NodeID) bool {
	n := t.Node(id)
	return n != nil && (n.Scope != 0 || n.Kind == KindModule)
}

// IsImport reports whether the node is an import.
func (t *Tree) IsImport(id NodeID) bool {
	n := t.Node(id)
	return n != nil && n.Kind == KindImport
}

// IsRecord reports whether the node is a record.
func (t *Tree) IsRecord(id NodeID) bool {
	n := t.Node(id)
	return n != nil && n.Kind == KindRecord
}

// IsType reports whether the node is a user-defined type.
func (t *Tree) IsType(id NodeID) bool {
	n := t.Node(id)
	return n != nil && n.Kind == KindType
}

// IsFunction reports whether the node is function-like, i.e. carries a
// formal parameter list (possibly empty).
func (t *Tree) IsFunction(id NodeID) bool {
	n := t.Node(id)
	return n != nil && (n.Flags.Has(FlagFunction) || len(n.Params) > 0)
}

// FullName renders the fully qualified name of a node. A node that owns a
// scope is named after its scope; otherwise the lower-cased container and
// the identifier are joined with a dot.
func (t *Tree) FullName(id NodeID) string {
	n := t.Node(id)
	if n == nil {
		return ""
	}
	if s := t.Scope(n.Scope); s != nil && s.FullName != "" {
		return s.FullName
	}
	return JoinName(strings.ToLower(n.Container), n.Name)
}

// JoinName joins a module and an identifier, omitting an empty module.
func JoinName(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}
