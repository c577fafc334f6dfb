package metadata_test

import (
	"fmt"

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// ExampleExtractor_Extract classifies the symbols of a module that extends
// another one.
func ExampleExtractor_Extract() {
	b := semtree.NewBuilder()

	base := b.AddNode(semtree.Node{Kind: semtree.KindModule, Name: "Base", Container: "shapes", Line: 1})
	baseScope := b.AddScope(base, "", false)
	area := b.AddNode(semtree.Node{Name: "area", Line: 2})
	b.Declare(baseScope, area)

	circle := b.AddNode(semtree.Node{Kind: semtree.KindModule, Name: "Circle", Container: "shapes", Line: 10})
	b.AddChild(circle, base)
	circleScope := b.AddScope(circle, "", false)
	b.Declare(circleScope, b.AddNode(semtree.Node{Name: "area", Line: 11}))
	b.Declare(circleScope, b.AddNode(semtree.Node{Name: "radius", Line: 12}))
	b.AddRoot(circle)

	meta := metadata.NewExtractor(b.Build()).Extract()
	def := meta.Child(metadata.ElemDefinition)

	fmt.Println(def.String(metadata.AttrFullName), def.String(metadata.PropType))
	for _, parent := range def.Child(metadata.ElemParents).Children() {
		fmt.Println("extends", parent.String(metadata.AttrRef))
	}
	for _, sym := range def.ChildrenNamed(metadata.ElemDefinition) {
		fmt.Println(sym.String(metadata.AttrName), sym.String(metadata.AttrInheritType))
	}
	// Output:
	// shapes.Circle module
	// extends shapes.Base
	// area override
	// radius local
}
