package metadata

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// expandRecord writes the fields, conditional blocks and attributes of a
// record. Nested records are spliced in at the same level.
func (e *Extractor) expandRecord(meta *proptree.Node, id semtree.NodeID) {
	rec := e.tree.Node(id)
	if rec == nil {
		return
	}
	for _, childID := range rec.Children {
		child := e.tree.Node(childID)
		if child == nil {
			continue
		}
		switch child.Kind {
		case semtree.KindRecord:
			e.expandRecord(meta, childID)
		case semtree.KindField:
			field := meta.AddChild(ElemField)
			field.SetString(AttrName, child.Name)
		case semtree.KindIfBlock:
			block := meta.AddChild(ElemIfBlock)
			e.expandRecord(block, childID)
		case semtree.KindAttr, semtree.KindAttrLink, semtree.KindAttrExpr:
			attr := meta.AddChild(ElemAttr)
			attr.SetString(AttrName, child.Name)
		case semtree.KindOther, semtree.KindModule, semtree.KindImport, semtree.KindType,
			semtree.KindTransform, semtree.KindEmbed, semtree.KindMacro, semtree.KindFunction:
			// no documentation relevance inside a record
		}
	}
}

// expandScope writes the module/interface body of a scope-bearing
// declaration: its flags, its parent list and its symbols.
func (e *Extractor) expandScope(meta *proptree.Node, id semtree.NodeID) {
	n := e.tree.Node(id)
	if n == nil {
		return
	}

	if n.Flags.Has(semtree.FlagVirtual) {
		meta.SetBool(AttrVirtual, true)
	}
	if n.Flags.Has(semtree.FlagInterface) {
		meta.SetString(PropType, TypeInterface)
	} else {
		meta.SetString(PropType, TypeModule)
	}

	parents := meta.AddChild(ElemParents)
	for _, childID := range n.Children {
		if e.tree.ScopeOf(childID) == 0 {
			continue
		}
		child := e.tree.Node(childID)
		parent := parents.AddChild(ElemParent)
		parent.SetString(AttrName, child.Name)
		parent.SetInt(AttrLine, child.Line)
		setNonEmpty(parent, AttrRef, e.tree.FullName(childID))
	}

	e.ExpandScopeSymbols(meta, n.Scope)
}

// ExpandFunction writes the parameter list of a function-like declaration
// followed by its kind. A parameterised module is expanded as the module
// it produces, or as itself when it owns the symbols directly.
func (e *Extractor) ExpandFunction(meta *proptree.Node, id semtree.NodeID) {
	n := e.tree.Node(id)
	if n == nil {
		return
	}

	params := meta.AddChild(ElemParams)
	for _, p := range n.Params {
		e.expandParam(params, p)
	}

	if e.tree.IsScope(id) {
		if len(n.Children) > 0 {
			body := n.Children[0]
			if e.tree.IsScope(body) && !e.tree.IsImport(body) {
				e.expandScope(meta, body)
				return
			}
		}
		// No separate body: a module declaring its own symbols is its body.
		if n.Scope != 0 {
			e.expandScope(meta, id)
			return
		}
		e.logger.Debug("parameterised module has no expandable body",
			zap.String("symbol", e.tree.FullName(id)))
		return
	}

	switch n.Kind {
	case semtree.KindTransform:
		meta.SetString(PropType, TypeTransform)
		if rec := e.tree.Node(n.ReturnRecord); rec != nil {
			setNonEmpty(meta, PropReturn, rec.Name)
		}
	case semtree.KindEmbed:
		meta.SetString(PropType, TypeEmbed)
	case semtree.KindMacro:
		meta.SetString(PropType, TypeMacro)
	case semtree.KindType:
		meta.SetString(PropType, TypeType)
	default:
		meta.SetString(PropType, TypeFunction)
	}
}

func (e *Extractor) expandParam(params *proptree.Node, id semtree.NodeID) {
	n := e.tree.Node(id)
	if n == nil {
		e.logger.Debug("skipping unresolved parameter", zap.Int32("node", int32(id)))
		return
	}
	param := params.AddChild(ElemParam)
	param.SetString(AttrName, n.Name)
}

func setNonZero(n *proptree.Node, key string, value int) {
	if value != 0 {
		n.SetInt(key, value)
	}
}

func setNonEmpty(n *proptree.Node, key, value string) {
	if value != "" {
		n.SetString(key, value)
	}
}
