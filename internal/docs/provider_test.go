package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

func docTree(docs ...string) (*semtree.Tree, []semtree.NodeID) {
	b := semtree.NewBuilder()
	ids := make([]semtree.NodeID, len(docs))
	for i, d := range docs {
		ids[i] = b.AddNode(semtree.Node{Name: "sym", Doc: d})
		b.AddRoot(ids[i])
	}
	return b.Build(), ids
}

func TestProvider_DocumentationFor(t *testing.T) {
	p, err := NewProvider(DefaultCacheSize)
	require.NoError(t, err)

	tree, ids := docTree("/** Area. Slow.\n * @param r radius\n * @return value */", "", "/** */")

	doc := p.DocumentationFor(tree, ids[0])
	require.NotNil(t, doc)
	assert.Equal(t, metadata.ElemDocumentation, doc.Name())
	assert.Nil(t, doc.Parent())
	assert.Equal(t, "Area. Slow.", doc.String("content"))
	assert.Equal(t, "Area.", doc.String("firstline"))

	param := doc.Child("param")
	require.NotNil(t, param)
	assert.Equal(t, "r", param.String("@name"))
	assert.Equal(t, "radius", param.String("text"))
	assert.Equal(t, "value", doc.Child("return").String("text"))
	assert.False(t, doc.Child("return").Has("@name"))

	assert.Nil(t, p.DocumentationFor(tree, ids[1]), "no comment")
	assert.Nil(t, p.DocumentationFor(tree, ids[2]), "empty comment")
	assert.Nil(t, p.DocumentationFor(tree, 0), "absent node")
}

func TestProvider_FreshNodePerCall(t *testing.T) {
	p, err := NewProvider(4)
	require.NoError(t, err)
	tree, ids := docTree("/** Cached. */")

	first := p.DocumentationFor(tree, ids[0])
	second := p.DocumentationFor(tree, ids[0])
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, p.Cached())

	first.SetString("content", "changed")
	assert.Equal(t, "Cached.", second.String("content"))
}

func TestProvider_CacheEviction(t *testing.T) {
	p, err := NewProvider(2)
	require.NoError(t, err)
	tree, ids := docTree("/** a */", "/** b */", "/** c */")
	for _, id := range ids {
		require.NotNil(t, p.DocumentationFor(tree, id))
	}
	assert.Equal(t, 2, p.Cached())
}

func TestProvider_NoCache(t *testing.T) {
	p, err := NewProvider(0)
	require.NoError(t, err)
	tree, ids := docTree("/** Uncached. */")
	require.NotNil(t, p.DocumentationFor(tree, ids[0]))
	assert.Zero(t, p.Cached())
}

func TestProvider_WithExtractor(t *testing.T) {
	p, err := NewProvider(DefaultCacheSize)
	require.NoError(t, err)
	tree, _ := docTree("/** Documented. */")

	meta := metadata.NewExtractor(tree, metadata.WithDocumentation(p)).Extract()
	def := meta.Child(metadata.ElemDefinition)
	require.NotNil(t, def)
	doc := def.Child(metadata.ElemDocumentation)
	require.NotNil(t, doc)
	assert.Equal(t, "Documented.", doc.String("content"))
	assert.Same(t, def, doc.Parent())
}
