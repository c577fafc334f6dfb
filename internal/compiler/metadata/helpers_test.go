package metadata

import (
	"testing"

	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// inheritanceFixture is the Base/Derived family used across tests:
//
//	Base     { f }
//	Derived  : Base { h }
//	Derived2 : Base { f = Base.f }
//	Derived3 : Base { f (new body) }
//	Derived4 { g }
type inheritanceFixture struct {
	tree   *semtree.Tree
	nodes  map[string]semtree.NodeID
	scopes map[string]semtree.ScopeID
}

func newInheritanceFixture(t *testing.T) *inheritanceFixture {
	t.Helper()

	b := semtree.NewBuilder()
	f := &inheritanceFixture{
		nodes:  make(map[string]semtree.NodeID),
		scopes: make(map[string]semtree.ScopeID),
	}

	module := func(name string, line int, parents ...string) semtree.ScopeID {
		id := b.AddNode(semtree.Node{
			Kind:      semtree.KindModule,
			Name:      name,
			Container: "Shapes",
			Line:      line,
			Flags:     semtree.FlagExported,
		})
		for _, p := range parents {
			b.AddChild(id, f.nodes[p])
		}
		b.AddRoot(id)
		f.nodes[name] = id
		scope := b.AddScope(id, "", false)
		f.scopes[name] = scope
		return scope
	}
	symbol := func(scope semtree.ScopeID, key string, n semtree.Node) semtree.NodeID {
		id := b.AddNode(n)
		b.Declare(scope, id)
		f.nodes[key] = id
		return id
	}

	base := module("Base", 1)
	baseF := symbol(base, "Base.f", semtree.Node{Name: "f", Container: "Shapes.Base", Line: 2, Flags: semtree.FlagShared})

	derived := module("Derived", 10, "Base")
	symbol(derived, "Derived.h", semtree.Node{Name: "h", Container: "Shapes.Derived", Line: 11})

	derived2 := module("Derived2", 20, "Base")
	symbol(derived2, "Derived2.f", semtree.Node{Name: "f", Container: "Shapes.Derived2", Line: 21, Body: baseF})

	derived3 := module("Derived3", 30, "Base")
	symbol(derived3, "Derived3.f", semtree.Node{Name: "f", Container: "Shapes.Derived3", Line: 31})

	derived4 := module("Derived4", 40)
	symbol(derived4, "Derived4.g", semtree.Node{Name: "g", Container: "Shapes.Derived4", Line: 41})

	f.tree = b.Build()
	return f
}

// definitionsByName indexes the Definition and Import children of n.
func definitionsByName(n *proptree.Node) map[string]*proptree.Node {
	out := make(map[string]*proptree.Node)
	for _, c := range n.Children() {
		if c.Name() == ElemDefinition || c.Name() == ElemImport {
			out[c.String(AttrName)] = c
		}
	}
	return out
}

func childNames(n *proptree.Node) []string {
	var out []string
	for _, c := range n.Children() {
		out = append(out, c.Name())
	}
	return out
}

type stubDocs struct {
	text map[semtree.NodeID]string
}

func (s stubDocs) DocumentationFor(_ *semtree.Tree, id semtree.NodeID) *proptree.Node {
	text, ok := s.text[id]
	if !ok {
		return nil
	}
	doc := proptree.New(ElemDocumentation)
	doc.SetString("content", text)
	return doc
}
