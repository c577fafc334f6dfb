// Package hierarchy builds the scope inheritance graph of a semantic tree:
// one vertex per scope-bearing declaration and one edge from every parent
// scope to each declaration that lists it.
package hierarchy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// ErrCycle is returned by Order when the inheritance graph is not acyclic.
var ErrCycle = errors.New("inheritance cycle")

// Hierarchy is the inheritance graph of one tree.
type Hierarchy struct {
	tree *semtree.Tree
	g    graph.Graph[semtree.NodeID, semtree.NodeID]
}

// Build collects every scope-bearing declaration of tree and links it to
// the parent scopes among its children.
func Build(tree *semtree.Tree) (*Hierarchy, error) {
	h := &Hierarchy{
		tree: tree,
		g:    graph.New(func(id semtree.NodeID) semtree.NodeID { return id }, graph.Directed()),
	}

	for id := semtree.NodeID(1); int(id) <= tree.Len(); id++ {
		if !tree.IsScope(id) {
			continue
		}
		if err := h.addVertex(id); err != nil {
			return nil, err
		}
		for _, child := range tree.Node(id).Children {
			if tree.ScopeOf(child) == 0 {
				continue
			}
			if err := h.addVertex(child); err != nil {
				return nil, err
			}
			if err := h.g.AddEdge(child, id); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to link %s to %s: %w", tree.FullName(child), tree.FullName(id), err)
			}
		}
	}
	return h, nil
}

func (h *Hierarchy) addVertex(id semtree.NodeID) error {
	if err := h.g.AddVertex(id); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("failed to add %s: %w", h.tree.FullName(id), err)
	}
	return nil
}

// Len returns the number of declarations in the graph.
func (h *Hierarchy) Len() int {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return 0
	}
	return len(adj)
}

// Parents returns the declarations id directly inherits from, by name.
func (h *Hierarchy) Parents(id semtree.NodeID) []semtree.NodeID {
	pred, err := h.g.PredecessorMap()
	if err != nil {
		return nil
	}
	return h.sorted(pred[id])
}

// Children returns the declarations that directly inherit from id, by name.
func (h *Hierarchy) Children(id semtree.NodeID) []semtree.NodeID {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	return h.sorted(adj[id])
}

func (h *Hierarchy) sorted(edges map[semtree.NodeID]graph.Edge[semtree.NodeID]) []semtree.NodeID {
	out := make([]semtree.NodeID, 0, len(edges))
	for id := range edges {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return h.less(out[i], out[j]) })
	return out
}

// Order lists the declarations parents first. Declarations with no
// ordering constraint between them are sorted by full name.
func (h *Hierarchy) Order() ([]semtree.NodeID, error) {
	cycles, err := h.Cycles()
	if err != nil {
		return nil, err
	}
	if len(cycles) > 0 {
		names := make([]string, len(cycles[0]))
		for i, id := range cycles[0] {
			names[i] = h.tree.FullName(id)
		}
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
	}

	order, err := graph.StableTopologicalSort(h.g, h.less)
	if err != nil {
		return nil, fmt.Errorf("failed to order hierarchy: %w", err)
	}
	return order, nil
}

// Cycles reports every group of declarations that inherit from each other,
// including a declaration that lists itself as a parent. Members of each
// group and the groups themselves are sorted by full name.
func (h *Hierarchy) Cycles() ([][]semtree.NodeID, error) {
	components, err := graph.StronglyConnectedComponents(h.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute components: %w", err)
	}
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read adjacency: %w", err)
	}

	var cycles [][]semtree.NodeID
	for _, comp := range components {
		if len(comp) == 1 {
			if _, self := adj[comp[0]][comp[0]]; !self {
				continue
			}
		}
		sort.Slice(comp, func(i, j int) bool { return h.less(comp[i], comp[j]) })
		cycles = append(cycles, comp)
	}
	sort.Slice(cycles, func(i, j int) bool { return h.less(cycles[i][0], cycles[j][0]) })
	return cycles, nil
}

func (h *Hierarchy) less(a, b semtree.NodeID) bool {
	na, nb := strings.ToLower(h.tree.FullName(a)), strings.ToLower(h.tree.FullName(b))
	if na != nb {
		return na < nb
	}
	return a < b
}
