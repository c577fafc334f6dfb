package metadata

import (
	"sort"
	"strings"

	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// CompareSymbols orders two symbols by start line, then by identifier
// ignoring case. It returns -1, 0 or +1.
func CompareSymbols(tree *semtree.Tree, a, b semtree.NodeID) int {
	na, nb := tree.Node(a), tree.Node(b)
	var la, lb int
	var ida, idb string
	if na != nil {
		la, ida = na.Line, na.Name
	}
	if nb != nil {
		lb, idb = nb.Line, nb.Name
	}
	if la != lb {
		if la < lb {
			return -1
		}
		return 1
	}
	return strings.Compare(strings.ToLower(ida), strings.ToLower(idb))
}

// SortSymbols sorts symbols in place into documentation order.
func SortSymbols(tree *semtree.Tree, symbols []semtree.NodeID) {
	sort.SliceStable(symbols, func(i, j int) bool {
		return CompareSymbols(tree, symbols[i], symbols[j]) < 0
	})
}
