package semtree

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownKind is returned for a kind tag the loader does not know.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrUnknownFlag is returned for a flag the loader does not know.
	ErrUnknownFlag = errors.New("unknown flag")
	// ErrDuplicateID is returned when two nodes share a fixture id.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrUnresolvedRef is returned when a reference names no node.
	ErrUnresolvedRef = errors.New("unresolved reference")
	// ErrEmptyNode is returned for a null entry in a node list.
	ErrEmptyNode = errors.New("empty node")
)

// LoadError locates a fixture problem.
type LoadError struct {
	Path string // e.g. roots[0].symbols[2]
	ID   string // fixture id or reference involved, if any
	Err  error
}

func (e *LoadError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s (%s): %v", e.Path, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type fixtureFile struct {
	Source string         `yaml:"source"`
	Roots  []*fixtureNode `yaml:"roots"`
}

type fixtureSymbol struct {
	Start  int    `yaml:"start"`
	Body   int    `yaml:"body"`
	End    int    `yaml:"end"`
	Source string `yaml:"source"`
}

type fixtureScope struct {
	FullName string `yaml:"fullname"`
	Remote   bool   `yaml:"remote"`
}

type fixtureNode struct {
	ID        string         `yaml:"id"`
	Ref       string         `yaml:"ref"`
	Kind      string         `yaml:"kind"`
	Name      string         `yaml:"name"`
	Container string         `yaml:"container"`
	Line      int            `yaml:"line"`
	Flags     []string       `yaml:"flags"`
	Doc       string         `yaml:"doc"`
	Symbol    *fixtureSymbol `yaml:"symbol"`
	Scope     *fixtureScope  `yaml:"scope"`
	Children  []*fixtureNode `yaml:"children"`
	Symbols   []*fixtureNode `yaml:"symbols"`
	Params    []*fixtureNode `yaml:"params"`
	Body      string         `yaml:"body"`
	Original  string         `yaml:"original"`
	Returns   string         `yaml:"returns"`
}

// LoadFile reads a fixture document from disk.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML (or JSON) fixture document into a Tree.
func Load(r io.Reader) (*Tree, error) {
	var doc fixtureFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	l := &loader{
		b:      NewBuilder(),
		source: doc.Source,
		ids:    make(map[string]NodeID),
		nodes:  make(map[*fixtureNode]NodeID),
	}

	// Nodes are allocated before any link is wired so references may point
	// forward as well as backward.
	for i, fn := range doc.Roots {
		if err := l.allocate(fn, fmt.Sprintf("roots[%d]", i)); err != nil {
			return nil, err
		}
	}
	for i, fn := range doc.Roots {
		path := fmt.Sprintf("roots[%d]", i)
		id, err := l.resolve(fn, path)
		if err != nil {
			return nil, err
		}
		l.b.AddRoot(id)
		if err := l.wire(fn, path); err != nil {
			return nil, err
		}
	}
	l.inheritImportScopes()

	return l.b.Build(), nil
}

type loader struct {
	b      *Builder
	source string
	ids    map[string]NodeID
	nodes  map[*fixtureNode]NodeID
}

func (l *loader) allocate(fn *fixtureNode, path string) error {
	if fn == nil {
		return &LoadError{Path: path, Err: ErrEmptyNode}
	}
	if fn.Ref != "" {
		return nil
	}

	kind := KindOther
	if fn.Kind != "" {
		k, ok := ParseKind(fn.Kind)
		if !ok {
			return &LoadError{Path: path, ID: fn.Kind, Err: ErrUnknownKind}
		}
		kind = k
	}

	var flags Flags
	for _, name := range fn.Flags {
		f, ok := ParseFlag(name)
		if !ok {
			return &LoadError{Path: path, ID: name, Err: ErrUnknownFlag}
		}
		flags |= f
	}
	if fn.Params != nil {
		flags |= FlagFunction
	}

	n := Node{
		Kind:      kind,
		Name:      fn.Name,
		Container: fn.Container,
		Line:      fn.Line,
		Flags:     flags,
		Doc:       fn.Doc,
	}
	if fn.Symbol != nil {
		src := fn.Symbol.Source
		if src == "" {
			src = l.source
		}
		n.Symbol = &SymbolPos{
			Start:  fn.Symbol.Start,
			Body:   fn.Symbol.Body,
			End:    fn.Symbol.End,
			Source: src,
		}
	}

	id := l.b.AddNode(n)
	l.nodes[fn] = id
	if fn.ID != "" {
		if _, dup := l.ids[fn.ID]; dup {
			return &LoadError{Path: path, ID: fn.ID, Err: ErrDuplicateID}
		}
		l.ids[fn.ID] = id
	}

	if kind == KindModule || fn.Symbols != nil || fn.Scope != nil {
		var fullName string
		var remote bool
		if fn.Scope != nil {
			fullName, remote = fn.Scope.FullName, fn.Scope.Remote
		}
		l.b.AddScope(id, fullName, remote)
	}

	lists := []struct {
		name  string
		nodes []*fixtureNode
	}{
		{"children", fn.Children},
		{"symbols", fn.Symbols},
		{"params", fn.Params},
	}
	for _, list := range lists {
		for i, child := range list.nodes {
			if err := l.allocate(child, fmt.Sprintf("%s.%s[%d]", path, list.name, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve returns the node an entry denotes: itself, or the referenced node.
func (l *loader) resolve(fn *fixtureNode, path string) (NodeID, error) {
	if fn.Ref != "" {
		return l.lookup(fn.Ref, path)
	}
	return l.nodes[fn], nil
}

func (l *loader) lookup(ref, path string) (NodeID, error) {
	id, ok := l.ids[ref]
	if !ok {
		return 0, &LoadError{Path: path, ID: ref, Err: ErrUnresolvedRef}
	}
	return id, nil
}

// wire links an allocated entry to its children, symbols, parameters and
// identity references. References are wired where they appear and are not
// descended into.
func (l *loader) wire(fn *fixtureNode, path string) error {
	if fn.Ref != "" {
		return nil
	}
	id := l.nodes[fn]

	for i, child := range fn.Children {
		p := fmt.Sprintf("%s.children[%d]", path, i)
		cid, err := l.resolve(child, p)
		if err != nil {
			return err
		}
		l.b.AddChild(id, cid)
		if err := l.wire(child, p); err != nil {
			return err
		}
	}

	scope := l.b.Node(id).Scope
	for i, sym := range fn.Symbols {
		p := fmt.Sprintf("%s.symbols[%d]", path, i)
		sid, err := l.resolve(sym, p)
		if err != nil {
			return err
		}
		l.b.Declare(scope, sid)
		if err := l.wire(sym, p); err != nil {
			return err
		}
	}

	for i, param := range fn.Params {
		p := fmt.Sprintf("%s.params[%d]", path, i)
		pid, err := l.resolve(param, p)
		if err != nil {
			return err
		}
		l.b.AddParam(id, pid)
		if err := l.wire(param, p); err != nil {
			return err
		}
	}

	links := []struct {
		ref string
		set func(NodeID)
	}{
		{fn.Body, func(v NodeID) { l.b.Node(id).Body = v }},
		{fn.Original, func(v NodeID) { l.b.Node(id).Original = v }},
		{fn.Returns, func(v NodeID) { l.b.Node(id).ReturnRecord = v }},
	}
	for _, link := range links {
		if link.ref == "" {
			continue
		}
		target, err := l.lookup(link.ref, path)
		if err != nil {
			return err
		}
		link.set(target)
	}
	return nil
}

// inheritImportScopes lets an import without a scope of its own see the
// scope of the definition it imports.
func (l *loader) inheritImportScopes() {
	for id := NodeID(1); int(id) < len(l.b.nodes); id++ {
		n := l.b.Node(id)
		if n.Kind != KindImport || n.Scope != 0 || n.Original == 0 {
			continue
		}
		if orig := l.b.Node(n.Original); orig != nil {
			n.Scope = orig.Scope
		}
	}
}
