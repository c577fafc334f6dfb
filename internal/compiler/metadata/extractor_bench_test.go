package metadata

import (
	"fmt"
	"testing"

	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// createLargeTree builds modules each extending the previous one, with a
// record and a function per module and half the symbols overridden.
func createLargeTree(modules, symbolsPerModule int) *semtree.Tree {
	b := semtree.NewBuilder()
	var prev semtree.NodeID
	var prevSyms []semtree.NodeID

	for m := 0; m < modules; m++ {
		mod := b.AddNode(semtree.Node{
			Kind:      semtree.KindModule,
			Name:      fmt.Sprintf("Mod%d", m),
			Container: "bench",
			Line:      m * 100,
			Flags:     semtree.FlagExported,
		})
		if prev != 0 {
			b.AddChild(mod, prev)
		}
		scope := b.AddScope(mod, "", false)
		b.AddRoot(mod)

		syms := make([]semtree.NodeID, 0, symbolsPerModule)
		for s := 0; s < symbolsPerModule; s++ {
			n := semtree.Node{Name: fmt.Sprintf("sym%d", s), Line: m*100 + s + 1}
			if prevSyms != nil && s%2 == 0 {
				n.Body = prevSyms[s]
			}
			id := b.AddNode(n)
			b.Declare(scope, id)
			syms = append(syms, id)
		}

		f1 := b.AddNode(semtree.Node{Kind: semtree.KindField, Name: "a"})
		f2 := b.AddNode(semtree.Node{Kind: semtree.KindField, Name: "b"})
		rec := b.AddNode(semtree.Node{Kind: semtree.KindRecord, Name: "Row", Line: m*100 + 90, Children: []semtree.NodeID{f1, f2}})
		b.Declare(scope, rec)

		fn := b.AddNode(semtree.Node{Kind: semtree.KindFunction, Name: "calc", Line: m*100 + 95})
		b.AddParam(fn, b.AddNode(semtree.Node{Name: "x"}))
		b.Declare(scope, fn)

		prev, prevSyms = mod, syms
	}
	return b.Build()
}

// BenchmarkExtractor_Extract measures extraction of a typical library.
func BenchmarkExtractor_Extract(b *testing.B) {
	tree := createLargeTree(10, 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewExtractor(tree).Extract()
	}
}

// BenchmarkExtractor_Extract_Large measures extraction of a large library.
func BenchmarkExtractor_Extract_Large(b *testing.B) {
	tree := createLargeTree(100, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewExtractor(tree).Extract()
	}
}

func BenchmarkSortSymbols(b *testing.B) {
	tree := createLargeTree(1, 500)
	symbols := tree.Symbols(tree.ScopeOf(tree.Roots()[0]))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		work := append([]semtree.NodeID(nil), symbols...)
		SortSymbols(tree, work)
	}
}
