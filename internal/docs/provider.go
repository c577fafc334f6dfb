package docs

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
)

// DefaultCacheSize is the number of parsed comments a Provider keeps.
const DefaultCacheSize = 512

// Provider supplies Documentation nodes for declarations. Parsed comments
// are memoised by their raw text; every call still builds a fresh node so
// the result can be attached under exactly one parent.
type Provider struct {
	cache *lru.Cache[string, Comment]
}

// NewProvider creates a provider. A cacheSize of zero or less disables
// memoisation.
func NewProvider(cacheSize int) (*Provider, error) {
	p := &Provider{}
	if cacheSize > 0 {
		cache, err := lru.New[string, Comment](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create documentation cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// DocumentationFor returns the Documentation node for a declaration, or
// nil when the declaration has no documentation comment.
func (p *Provider) DocumentationFor(tree *semtree.Tree, id semtree.NodeID) *proptree.Node {
	n := tree.Node(id)
	if n == nil || n.Doc == "" {
		return nil
	}
	c := p.parse(n.Doc)
	if c.IsEmpty() {
		return nil
	}
	return Build(c)
}

// Cached returns the number of memoised comments.
func (p *Provider) Cached() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}

func (p *Provider) parse(raw string) Comment {
	if p.cache == nil {
		return Parse(raw)
	}
	if c, ok := p.cache.Get(raw); ok {
		return c
	}
	c := Parse(raw)
	p.cache.Add(raw, c)
	return c
}

// Build renders a comment as a detached Documentation node.
func Build(c Comment) *proptree.Node {
	doc := proptree.New("Documentation")
	if c.Content != "" {
		doc.SetString("content", c.Content)
		doc.SetString("firstline", c.FirstLine)
	}
	for _, tag := range c.Tags {
		t := doc.AddChild(tag.Name)
		if tag.Arg != "" {
			t.SetString("@name", tag.Arg)
		}
		if tag.Text != "" {
			t.SetString("text", tag.Text)
		}
	}
	return doc
}
