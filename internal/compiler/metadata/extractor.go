package metadata

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// DocProvider supplies the Documentation node of a declaration, or nil when
// it has none. Each call must return a fresh, detached node.
type DocProvider interface {
	DocumentationFor(tree *semtree.Tree, id semtree.NodeID) *proptree.Node
}

type noDocs struct{}

func (noDocs) DocumentationFor(*semtree.Tree, semtree.NodeID) *proptree.Node { return nil }

// Option configures an Extractor.
type Option func(*Extractor)

// WithDocumentation sets the documentation provider.
func WithDocumentation(p DocProvider) Option {
	return func(e *Extractor) {
		if p != nil {
			e.docs = p
		}
	}
}

// WithLogger sets the logger used for descent tracing.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Extractor turns declarations of a semantic tree into metadata nodes.
//
// The extractor holds no mutable state: concurrent calls are safe as long as
// each builds into its own output tree and the DocProvider is safe for
// concurrent use. The input tree must be acyclic; parent scope references
// are listed and consulted for classification but never descended into.
type Extractor struct {
	tree   *semtree.Tree
	docs   DocProvider
	logger *zap.Logger
}

// NewExtractor creates an extractor over tree.
func NewExtractor(tree *semtree.Tree, opts ...Option) *Extractor {
	e := &Extractor{
		tree:   tree,
		docs:   noDocs{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds a fresh Meta node holding one expanded node per
// declaration, each classified as local. With no ids, every root of the
// tree is expanded.
func (e *Extractor) Extract(ids ...semtree.NodeID) *proptree.Node {
	if len(ids) == 0 {
		ids = e.tree.Roots()
	}
	meta := proptree.New(ElemMeta)
	for _, id := range ids {
		e.ExpandSymbol(meta, id, InheritLocal)
	}
	return meta
}

// ExpandSymbol appends a Definition or Import node for the declaration to
// parent and returns it. It returns nil when id is absent.
func (e *Extractor) ExpandSymbol(parent *proptree.Node, id semtree.NodeID, inherit InheritType) *proptree.Node {
	n := e.tree.Node(id)
	if n == nil {
		return nil
	}
	isImport := n.Kind == semtree.KindImport

	var def *proptree.Node
	if isImport {
		def = parent.AddChild(ElemImport)
		original := n.Original
		if original == 0 {
			original = e.tree.ResolveBody(id)
		}
		setNonEmpty(def, AttrRef, e.tree.FullName(original))
		if s := e.tree.Scope(n.Scope); s != nil && s.Remote {
			def.SetBool(AttrRemoteScope, true)
		}
	} else {
		def = parent.AddChild(ElemDefinition)
	}

	if doc := e.docs.DocumentationFor(e.tree, id); doc != nil {
		def.Attach(doc)
	}

	setNonEmpty(def, AttrName, n.Name)
	def.SetInt(AttrLine, n.Line)
	setNonEmpty(def, AttrFullName, e.tree.FullName(id))

	if n.Flags.Has(semtree.FlagExported) {
		def.SetBool(AttrExported, true)
	} else if n.Flags.Has(semtree.FlagShared) {
		def.SetBool(AttrShared, true)
	}

	text := inherit.String()
	if text == "unknown" {
		e.logger.DPanic("unrecognised inherit type",
			zap.Uint8("inherit_type", uint8(inherit)),
			zap.String("symbol", e.tree.FullName(id)))
	}
	def.SetString(AttrInheritType, text)

	if n.Symbol != nil && !isImport {
		setNonZero(def, AttrStart, n.Symbol.Start)
		setNonZero(def, AttrBody, n.Symbol.Body)
		setNonZero(def, AttrEnd, n.Symbol.End)
		setNonEmpty(def, AttrSource, n.Symbol.Source)
	}

	switch {
	case !isImport && e.tree.IsFunction(id):
		e.ExpandFunction(def, id)
	case !isImport && e.tree.IsScope(id):
		e.expandScope(def, id)
	case e.tree.IsRecord(id):
		def.SetString(PropType, TypeRecord)
		e.expandRecord(def, id)
	case e.tree.IsType(id):
		def.SetString(PropType, TypeType)
	default:
		def.SetString(PropType, TypeAttribute)
	}
	return def
}

// ExpandScopeSymbols appends one node per symbol directly declared in scope,
// in documentation order, each classified against the symbols of the
// scope's direct parents. An absent scope produces nothing.
func (e *Extractor) ExpandScopeSymbols(meta *proptree.Node, scope semtree.ScopeID) {
	s := e.tree.Scope(scope)
	if s == nil {
		return
	}

	symbols := e.tree.Symbols(scope)
	SortSymbols(e.tree, symbols)
	base := ParentSymbols(e.tree, scope)

	e.logger.Debug("expanding scope",
		zap.String("scope", s.FullName),
		zap.Int("symbols", len(symbols)),
		zap.Int("parent_symbols", len(base)))

	for _, sym := range symbols {
		e.ExpandSymbol(meta, sym, Classify(e.tree, sym, base))
	}
}
