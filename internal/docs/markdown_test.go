package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

func markdownFixture(t *testing.T) *proptree.Node {
	t.Helper()
	b := semtree.NewBuilder()

	base := b.AddNode(semtree.Node{Kind: semtree.KindModule, Name: "Base", Container: "shapes", Line: 1})
	bs := b.AddScope(base, "", false)
	b.Declare(bs, b.AddNode(semtree.Node{Name: "area", Line: 2}))

	circle := b.AddNode(semtree.Node{
		Kind: semtree.KindModule, Name: "Circle", Container: "shapes", Line: 10,
		Flags: semtree.FlagExported, Doc: "/** A circle. Round. */",
	})
	b.AddChild(circle, base)
	cs := b.AddScope(circle, "", false)
	b.Declare(cs, b.AddNode(semtree.Node{Name: "area", Line: 11, Flags: semtree.FlagShared}))
	field := b.AddNode(semtree.Node{Kind: semtree.KindField, Name: "r"})
	hidden := b.AddNode(semtree.Node{Kind: semtree.KindField, Name: "hidden"})
	block := b.AddNode(semtree.Node{Kind: semtree.KindIfBlock, Children: []semtree.NodeID{hidden}})
	rec := b.AddNode(semtree.Node{Kind: semtree.KindRecord, Name: "Layout", Line: 12, Children: []semtree.NodeID{field, block}})
	b.Declare(cs, rec)
	b.AddRoot(circle)
	b.AddRoot(rec)

	p, err := NewProvider(0)
	require.NoError(t, err)
	return metadata.NewExtractor(b.Build(), metadata.WithDocumentation(p)).Extract()
}

func TestMarkdownGenerator_Render(t *testing.T) {
	out := NewMarkdownGenerator("Shapes").Render(markdownFixture(t))

	assert.Contains(t, out, "# Shapes\n")
	assert.Contains(t, out, "- [shapes.Circle](shapes.circle.md) `module`")
	assert.Contains(t, out, "# shapes.Circle\n\n> A circle.\n")
	assert.Contains(t, out, "- **Visibility:** exported")
	assert.Contains(t, out, "- `shapes.Base` (line 1)")
	assert.Contains(t, out, "| `area` | `attribute` | 11 | override | shared |")
	assert.Contains(t, out, "| `Layout` | `record` | 12 | local | - |")
	assert.Contains(t, out, "## Fields\n\n- `r`\n- `hidden`\n")
}

func TestMarkdownGenerator_Empty(t *testing.T) {
	out := NewMarkdownGenerator("").Render(proptree.New(metadata.ElemMeta))
	assert.Equal(t, "# Definitions\n\nNo definitions.\n", out)
}

func TestMarkdownGenerator_Generate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "md")
	require.NoError(t, NewMarkdownGenerator("Shapes").Generate(markdownFixture(t), dir))

	index, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "shapes.circle.md")

	page, err := os.ReadFile(filepath.Join(dir, "shapes.circle.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "## Symbols")

	_, err = os.Stat(filepath.Join(dir, "layout.md"))
	assert.NoError(t, err)
}
