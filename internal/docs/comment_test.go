package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Block(t *testing.T) {
	raw := `/**
 * Computes the area. Uses the cached radius.
 *
 * @param radius the circle radius
 *        in metres
 * @return the area
 * @see Shapes.Circle
 */`
	c := Parse(raw)

	assert.Equal(t, "Computes the area. Uses the cached radius.", c.Content)
	assert.Equal(t, "Computes the area.", c.FirstLine)
	require.Len(t, c.Tags, 3)
	assert.Equal(t, Tag{Name: "param", Arg: "radius", Text: "the circle radius in metres"}, c.Tags[0])
	assert.Equal(t, Tag{Name: "return", Text: "the area"}, c.Tags[1])
	assert.Equal(t, Tag{Name: "see", Text: "Shapes.Circle"}, c.Tags[2])
}

func TestParse_LineComments(t *testing.T) {
	c := Parse("/// First line\n/// second line\n// @Deprecated use area2")
	assert.Equal(t, "First line second line", c.Content)
	assert.Equal(t, "First line second line", c.FirstLine)
	require.Len(t, c.Tags, 1)
	assert.Equal(t, "deprecated", c.Tags[0].Name)
	assert.Equal(t, "use area2", c.Tags[0].Text)
}

func TestParse_SingleLine(t *testing.T) {
	c := Parse("/** The base value. */")
	assert.Equal(t, "The base value.", c.Content)
	assert.Equal(t, "The base value.", c.FirstLine)
	assert.Empty(t, c.Tags)
}

func TestParse_AtSignInText(t *testing.T) {
	c := Parse("/**\n * @ not a tag\n * mail me@example.com\n */")
	assert.Empty(t, c.Tags)
	assert.Equal(t, "@ not a tag mail me@example.com", c.Content)
}

func TestParse_Empty(t *testing.T) {
	assert.True(t, Parse("").IsEmpty())
	assert.True(t, Parse("/** */").IsEmpty())
	assert.True(t, Parse("/**\n *\n */").IsEmpty())
	assert.False(t, Parse("/** @internal */").IsEmpty())
}
