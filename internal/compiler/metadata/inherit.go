package metadata

import (
	"strings"

	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// InheritType classifies a symbol relative to the parents of the scope
// declaring it.
type InheritType uint8

const (
	// InheritLocal means no parent scope declares the identifier.
	InheritLocal InheritType = iota
	// InheritInherited means a parent declares the identifier with the same
	// defining body.
	InheritInherited
	// InheritOverride means a parent declares the identifier with a
	// different defining body.
	InheritOverride
)

// String returns the persisted spelling. Values outside the defined set
// render as "unknown".
func (t InheritType) String() string {
	switch t {
	case InheritInherited:
		return "inherited"
	case InheritOverride:
		return "override"
	case InheritLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ParseInheritType maps a persisted spelling back to an InheritType.
func ParseInheritType(s string) (InheritType, bool) {
	switch strings.ToLower(s) {
	case "local":
		return InheritLocal, true
	case "inherited":
		return InheritInherited, true
	case "override":
		return InheritOverride, true
	}
	return InheritLocal, false
}

// ParentScopes returns the scopes referenced by the children of the
// declaration that owns scope, in child order. Only direct parents are
// returned.
func ParentScopes(tree *semtree.Tree, scope semtree.ScopeID) []semtree.ScopeID {
	owner := tree.Node(tree.OwnerOf(scope))
	if owner == nil {
		return nil
	}
	var parents []semtree.ScopeID
	for _, child := range owner.Children {
		if s := tree.ScopeOf(child); s != 0 {
			parents = append(parents, s)
		}
	}
	return parents
}

// ParentSymbols flattens the symbols directly declared in every direct
// parent scope of scope. Parents of parents are not consulted.
func ParentSymbols(tree *semtree.Tree, scope semtree.ScopeID) []semtree.NodeID {
	var base []semtree.NodeID
	for _, parent := range ParentScopes(tree, scope) {
		base = append(base, tree.Symbols(parent)...)
	}
	return base
}

// Classify decides the inheritance status of sym against the flattened
// parent symbols base. A matching identifier makes the symbol at least
// inherited; a matching identifier whose resolved body differs makes it an
// override. Escalation never downgrades.
func Classify(tree *semtree.Tree, sym semtree.NodeID, base []semtree.NodeID) InheritType {
	n := tree.Node(sym)
	if n == nil {
		return InheritLocal
	}
	body := tree.ResolveBody(sym)

	result := InheritLocal
	for _, b := range base {
		bn := tree.Node(b)
		if bn == nil || !strings.EqualFold(bn.Name, n.Name) {
			continue
		}
		if result < InheritInherited {
			result = InheritInherited
		}
		if tree.ResolveBody(b) != body {
			result = InheritOverride
		}
	}
	return result
}
