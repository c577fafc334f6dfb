package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

var shapesFixture = filepath.Join("..", "semtree", "testdata", "shapes.yml")

func names(t *testing.T, tree *semtree.Tree, ids []semtree.NodeID) []string {
	t.Helper()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, tree.FullName(id))
	}
	return out
}

func TestRun_AllRoots(t *testing.T) {
	res, err := Run(shapesFixture, Options{})
	require.NoError(t, err)

	assert.Equal(t, shapesFixture, res.Path)
	assert.Equal(t, 5, res.Definitions())
	assert.Equal(t, metadata.ElemMeta, res.Meta.Name())

	first := res.Meta.Children()[0]
	assert.Equal(t, "shapes.Base", first.String("@fullname"))
}

func TestRun_MissingFixture(t *testing.T) {
	_, err := Run(filepath.Join(t.TempDir(), "nope.yml"), Options{})
	assert.Error(t, err)
}

func TestSelectRoots(t *testing.T) {
	tree, err := semtree.LoadFile(shapesFixture)
	require.NoError(t, err)

	tests := []struct {
		name    string
		include []string
		want    []string
	}{
		{"no patterns", nil, []string{"shapes.Base", "shapes.Derived", "Row", "toRow", "shapes.Base"}},
		{"module wildcard", []string{"shapes.*"}, []string{"shapes.Base", "shapes.Derived", "shapes.Base"}},
		{"case insensitive", []string{"SHAPES.derived"}, []string{"shapes.Derived"}},
		{"bare identifier", []string{"Derived"}, []string{"shapes.Derived"}},
		{"star stops at dots", []string{"shapes*"}, nil},
		{"double star", []string{"shapes**"}, []string{"shapes.Base", "shapes.Derived", "shapes.Base"}},
		{"import matches by identifier", []string{"b"}, []string{"shapes.Base"}},
		{"several patterns keep order", []string{"torow", "row"}, []string{"Row", "toRow"}},
		{"no match", []string{"circle"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectRoots(tree, tt.include)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(t, tree, got))
		})
	}
}

func TestSelectRoots_InvalidPattern(t *testing.T) {
	tree, err := semtree.LoadFile(shapesFixture)
	require.NoError(t, err)

	_, err = SelectRoots(tree, []string{"[a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"[a"`)
}

func TestExtract_Select(t *testing.T) {
	tree, err := semtree.LoadFile(shapesFixture)
	require.NoError(t, err)

	res, err := Extract("mem", tree, Options{Include: []string{"shapes.*"}, Select: []string{"SHAPES.DERIVED"}}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Definitions())
	assert.Equal(t, "shapes.Derived", res.Meta.Children()[0].String("@fullname"))
}

func TestExtract_EmptySelection(t *testing.T) {
	tree, err := semtree.LoadFile(shapesFixture)
	require.NoError(t, err)

	res, err := Extract("mem", tree, Options{Include: []string{"nothing"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Definitions())
	assert.Equal(t, metadata.ElemMeta, res.Meta.Name())
}

func TestExtract_LoggerFallback(t *testing.T) {
	b := semtree.NewBuilder()
	fn := b.AddNode(semtree.Node{Name: "area"})
	b.AddParam(fn, b.AddNode(semtree.Node{Name: "size"}))
	b.AddRoot(fn)
	tree := b.Build()

	assert.NotPanics(t, func() {
		res, err := Extract("mem", tree, Options{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Definitions())
	})

	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Extract("mem", tree, Options{Logger: zap.New(core)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("extracted metadata").Len(), "opts.Logger is used when no logger is passed")

	explicit, explicitLogs := observer.New(zapcore.DebugLevel)
	_, err = Extract("mem", tree, Options{Logger: zap.New(core)}, zap.New(explicit))
	require.NoError(t, err)
	assert.Equal(t, 1, explicitLogs.FilterMessage("extracted metadata").Len())
	assert.Equal(t, 1, logs.FilterMessage("extracted metadata").Len(), "the explicit logger wins")
}

func TestRootNames(t *testing.T) {
	tree, err := semtree.LoadFile(shapesFixture)
	require.NoError(t, err)

	// The import B sees the scope of shapes.Base and shares its name.
	assert.Equal(t, []string{"Row", "shapes.Base", "shapes.Derived", "toRow"}, RootNames(tree))
	assert.Equal(t, 0, (*Result)(nil).Definitions())
}
