package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
)

// TreePrinter renders a metadata tree as an indented outline:
//
//	Definition area [attribute] line=11 inherit_type=override
//	  Parents
//	    Parent Base line=1 ref=shapes.Base
type TreePrinter struct {
	writer io.Writer
	indent string

	elem  *color.Color
	name  *color.Color
	value *color.Color
	key   *color.Color
	kinds map[string]*color.Color
}

// NewTreePrinter creates a tree printer writing to w.
func NewTreePrinter(w io.Writer, noColor bool) *TreePrinter {
	p := &TreePrinter{
		writer: w,
		indent: "  ",
		elem:   color.New(color.FgCyan, color.Bold),
		name:   color.New(color.FgWhite, color.Bold),
		value:  color.New(color.FgYellow),
		key:    color.New(color.FgHiBlack),
		kinds: map[string]*color.Color{
			"local":     color.New(color.FgGreen),
			"inherited": color.New(color.FgBlue),
			"override":  color.New(color.FgMagenta),
		},
	}
	if noColor {
		for _, c := range []*color.Color{p.elem, p.name, p.value, p.key} {
			c.DisableColor()
		}
		for _, c := range p.kinds {
			c.DisableColor()
		}
	}
	return p
}

// Print writes the node and its descendants.
func (p *TreePrinter) Print(root *proptree.Node) {
	if root == nil {
		return
	}
	root.Walk(func(n *proptree.Node, depth int) bool {
		p.printNode(n, depth)
		return true
	})
}

func (p *TreePrinter) printNode(n *proptree.Node, depth int) {
	var b strings.Builder
	b.WriteString(strings.Repeat(p.indent, depth))
	b.WriteString(p.elem.Sprint(n.Name()))

	if name, ok := n.Prop("@name"); ok {
		b.WriteString(" ")
		b.WriteString(p.name.Sprint(name.Value()))
	}
	if typ, ok := n.Prop("Type"); ok {
		b.WriteString(" ")
		b.WriteString(p.value.Sprintf("[%s]", typ.Value()))
	}

	for _, prop := range n.Props() {
		switch prop.Key {
		case "@name", "Type":
			continue
		case "@inherit_type":
			c, ok := p.kinds[prop.Value()]
			if !ok {
				c = p.value
			}
			fmt.Fprintf(&b, " %s%s", p.key.Sprint("inherit_type="), c.Sprint(prop.Value()))
		default:
			fmt.Fprintf(&b, " %s%s", p.key.Sprint(strings.TrimPrefix(prop.Key, "@")+"="), quoteIfSpaced(prop.Value()))
		}
	}

	fmt.Fprintln(p.writer, b.String())
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t\n") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
