// Package pipeline runs the load, select and extract stages shared by the
// describe, index, serve and watch commands.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// Options controls a pipeline run.
type Options struct {
	// Include keeps roots whose qualified name or identifier matches any
	// glob. '*' stops at dots, '**' crosses them. Matching ignores case.
	Include []string
	// Select keeps roots whose qualified name equals one of these, ignoring
	// case. It is applied after Include.
	Select []string
	// Docs attaches Documentation nodes when set.
	Docs   metadata.DocProvider
	Logger *zap.Logger
}

// Result is the outcome of one run.
type Result struct {
	Path  string
	Tree  *semtree.Tree
	Roots []semtree.NodeID
	Meta  *proptree.Node
}

// Definitions counts the top-level Definition and Import nodes.
func (r *Result) Definitions() int {
	if r == nil || r.Meta == nil {
		return 0
	}
	return len(r.Meta.Children())
}

// Run loads the fixture at path and extracts the selected roots.
func Run(path string, opts Options) (*Result, error) {
	tree, err := semtree.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(path, tree, opts, nil)
}

// Extract runs the select and extract stages on an already loaded tree.
// A nil logger falls back to opts.Logger, then to a no-op logger.
func Extract(path string, tree *semtree.Tree, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = opts.Logger
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	roots, err := SelectRoots(tree, opts.Include)
	if err != nil {
		return nil, err
	}
	if len(opts.Select) > 0 {
		roots = keepNamed(tree, roots, opts.Select)
	}

	extOpts := []metadata.Option{metadata.WithLogger(logger)}
	if opts.Docs != nil {
		extOpts = append(extOpts, metadata.WithDocumentation(opts.Docs))
	}

	res := &Result{Path: path, Tree: tree, Roots: roots}
	if len(roots) == 0 {
		res.Meta = proptree.New(metadata.ElemMeta)
	} else {
		res.Meta = metadata.NewExtractor(tree, extOpts...).Extract(roots...)
	}
	logger.Debug("extracted metadata",
		zap.String("fixture", path),
		zap.Int("roots", len(tree.Roots())),
		zap.Int("selected", len(roots)),
	)
	return res, nil
}

// SelectRoots returns the roots matching any include pattern, in fixture
// order. No patterns selects every root.
func SelectRoots(tree *semtree.Tree, include []string) ([]semtree.NodeID, error) {
	roots := tree.Roots()
	if len(include) == 0 {
		return roots, nil
	}

	globs := make([]glob.Glob, 0, len(include))
	for _, pattern := range include {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	var out []semtree.NodeID
	for _, id := range roots {
		full := strings.ToLower(tree.FullName(id))
		name := strings.ToLower(tree.Node(id).Name)
		for _, g := range globs {
			if g.Match(full) || g.Match(name) {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

// RootNames returns the distinct qualified names of the roots, sorted.
func RootNames(tree *semtree.Tree) []string {
	seen := make(map[string]bool)
	var names []string
	for _, id := range tree.Roots() {
		name := tree.FullName(id)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func keepNamed(tree *semtree.Tree, roots []semtree.NodeID, names []string) []semtree.NodeID {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(n)] = true
	}
	var out []semtree.NodeID
	for _, id := range roots {
		if want[strings.ToLower(tree.FullName(id))] {
			out = append(out, id)
		}
	}
	return out
}
