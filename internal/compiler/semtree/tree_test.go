package semtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_StringAndParse(t *testing.T) {
	for k := KindOther; k <= KindFunction; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}

	aliases := map[string]Kind{
		"interface": KindModule,
		"Scope":     KindModule,
		"funcdef":   KindFunction,
		" Record ":  KindRecord,
	}
	for in, want := range aliases {
		got, ok := ParseKind(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseKind("macro_call")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(200).String())
}

func TestKind_IsAttr(t *testing.T) {
	assert.True(t, KindAttr.IsAttr())
	assert.True(t, KindAttrLink.IsAttr())
	assert.True(t, KindAttrExpr.IsAttr())
	assert.False(t, KindField.IsAttr())
}

func TestFlags(t *testing.T) {
	f := FlagExported | FlagVirtual
	assert.True(t, f.Has(FlagExported))
	assert.True(t, f.Has(FlagVirtual|FlagExported))
	assert.False(t, f.Has(FlagShared))
	assert.Equal(t, "virtual|exported", f.String())
	assert.Equal(t, "", Flags(0).String())

	got, ok := ParseFlag("public")
	require.True(t, ok)
	assert.Equal(t, FlagShared, got)

	got, ok = ParseFlag("INTERFACE")
	require.True(t, ok)
	assert.Equal(t, FlagInterface, got)

	_, ok = ParseFlag("static")
	assert.False(t, ok)
}

func TestBuilder_ReservesZero(t *testing.T) {
	b := NewBuilder()
	id := b.AddNode(Node{Name: "x"})
	assert.Equal(t, NodeID(1), id)

	tree := b.Build()
	assert.Nil(t, tree.Node(0))
	assert.Nil(t, tree.Node(-1))
	assert.Nil(t, tree.Node(2))
	assert.Nil(t, tree.Scope(0))
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, id, tree.Node(id).ID)
}

func TestBuilder_AddScopeDefaultsName(t *testing.T) {
	b := NewBuilder()
	mod := b.AddNode(Node{Kind: KindModule, Name: "Layouts", Container: "Acme.Common"})
	s := b.AddScope(mod, "", false)
	named := b.AddNode(Node{Kind: KindModule, Name: "Other"})
	s2 := b.AddScope(named, "lib.Other", true)
	tree := b.Build()

	assert.Equal(t, "acme.common.Layouts", tree.Scope(s).FullName)
	assert.Equal(t, mod, tree.OwnerOf(s))
	assert.Equal(t, s, tree.ScopeOf(mod))
	assert.True(t, tree.Scope(s2).Remote)
	assert.Equal(t, "lib.Other", tree.FullName(named))
}

func TestBuilder_DeclareReplacesInPlace(t *testing.T) {
	b := NewBuilder()
	mod := b.AddNode(Node{Kind: KindModule, Name: "M"})
	s := b.AddScope(mod, "", false)
	a := b.AddNode(Node{Name: "a"})
	first := b.AddNode(Node{Name: "b"})
	c := b.AddNode(Node{Name: "c"})
	second := b.AddNode(Node{Name: "B"})
	b.Declare(s, a)
	b.Declare(s, first)
	b.Declare(s, c)
	b.Declare(s, second)
	b.Declare(99, a)
	b.Declare(s, 99)
	tree := b.Build()

	assert.Equal(t, []NodeID{a, second, c}, tree.Symbols(s))
	assert.Equal(t, 3, tree.Scope(s).Len())
	assert.Equal(t, second, tree.Lookup(s, "b"))
	assert.Equal(t, c, tree.Lookup(s, "C"))
	assert.Equal(t, NodeID(0), tree.Lookup(s, "missing"))
	assert.Equal(t, NodeID(0), tree.Lookup(0, "a"))
}

func TestBuilder_ParamsMarkFunction(t *testing.T) {
	b := NewBuilder()
	p := b.AddNode(Node{Name: "x"})
	withParams := b.AddNode(Node{Name: "f", Params: []NodeID{p}})
	added := b.AddNode(Node{Name: "g"})
	b.AddParam(added, p)
	plain := b.AddNode(Node{Name: "h"})
	tree := b.Build()

	assert.True(t, tree.IsFunction(withParams))
	assert.True(t, tree.IsFunction(added))
	assert.False(t, tree.IsFunction(plain))
}

func TestTree_CopiesAreIndependent(t *testing.T) {
	b := NewBuilder()
	mod := b.AddNode(Node{Kind: KindModule, Name: "M"})
	s := b.AddScope(mod, "", false)
	b.Declare(s, b.AddNode(Node{Name: "a"}))
	b.AddRoot(mod)
	b.AddRoot(0)
	tree := b.Build()

	roots := tree.Roots()
	require.Len(t, roots, 1)
	roots[0] = 42
	assert.Equal(t, mod, tree.Roots()[0])

	syms := tree.Symbols(s)
	syms[0] = 42
	assert.NotEqual(t, NodeID(42), tree.Symbols(s)[0])
}

func TestTree_ResolveBody(t *testing.T) {
	b := NewBuilder()
	def := b.AddNode(Node{Name: "def"})
	alias := b.AddNode(Node{Name: "alias", Body: def})
	alias2 := b.AddNode(Node{Name: "alias2", Body: alias})
	loopA := b.AddNode(Node{Name: "a"})
	loopB := b.AddNode(Node{Name: "b", Body: loopA})
	b.Node(loopA).Body = loopB
	self := b.AddNode(Node{Name: "self"})
	b.Node(self).Body = self
	tree := b.Build()

	assert.Equal(t, def, tree.ResolveBody(def))
	assert.Equal(t, def, tree.ResolveBody(alias))
	assert.Equal(t, def, tree.ResolveBody(alias2))
	assert.Equal(t, self, tree.ResolveBody(self))
	assert.Equal(t, NodeID(0), tree.ResolveBody(0))

	// a malformed cycle terminates on one of its members
	got := tree.ResolveBody(loopA)
	assert.Contains(t, []NodeID{loopA, loopB}, got)
}

func TestTree_Predicates(t *testing.T) {
	b := NewBuilder()
	mod := b.AddNode(Node{Kind: KindModule, Name: "M"})
	rec := b.AddNode(Node{Kind: KindRecord, Name: "R"})
	typ := b.AddNode(Node{Kind: KindType, Name: "T"})
	imp := b.AddNode(Node{Kind: KindImport, Name: "I"})
	attr := b.AddNode(Node{Name: "a"})
	b.AddScope(imp, "lib.I", false)
	tree := b.Build()

	assert.True(t, tree.IsScope(mod), "module without a scope is still a scope")
	assert.True(t, tree.IsScope(imp), "import with a scope")
	assert.False(t, tree.IsScope(attr))
	assert.True(t, tree.IsImport(imp))
	assert.True(t, tree.IsRecord(rec))
	assert.True(t, tree.IsType(typ))
	assert.False(t, tree.IsType(rec))
	assert.False(t, tree.IsScope(0))
	assert.False(t, tree.IsRecord(0))
}

func TestTree_FullName(t *testing.T) {
	b := NewBuilder()
	plain := b.AddNode(Node{Name: "area", Container: "Shapes.Circle"})
	top := b.AddNode(Node{Name: "top"})
	tree := b.Build()

	assert.Equal(t, "shapes.circle.area", tree.FullName(plain))
	assert.Equal(t, "top", tree.FullName(top))
	assert.Equal(t, "", tree.FullName(0))
	assert.Equal(t, "x", JoinName("", "x"))
	assert.Equal(t, "m.x", JoinName("m", "x"))
}

func TestTree_NilSafe(t *testing.T) {
	var tree *Tree
	assert.Nil(t, tree.Node(1))
	assert.Nil(t, tree.Scope(1))
	assert.Nil(t, tree.Roots())
	assert.Zero(t, tree.Len())
}
