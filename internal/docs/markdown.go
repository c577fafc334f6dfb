package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
)

// MarkdownGenerator renders metadata trees as Markdown reference pages.
type MarkdownGenerator struct {
	title string
}

// NewMarkdownGenerator creates a Markdown generator. The title heads the
// index page.
func NewMarkdownGenerator(title string) *MarkdownGenerator {
	if title == "" {
		title = "Definitions"
	}
	return &MarkdownGenerator{title: title}
}

// Generate writes a README.md index and one page per top-level declaration
// of meta into outputDir.
func (g *MarkdownGenerator) Generate(meta *proptree.Node, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, "README.md"), []byte(g.index(meta)), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	for _, def := range meta.Children() {
		outputPath := filepath.Join(outputDir, pageName(def))
		if err := os.WriteFile(outputPath, []byte(g.Page(def)), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
	}
	return nil
}

// Render returns the index followed by every page as a single document.
func (g *MarkdownGenerator) Render(meta *proptree.Node) string {
	var buf strings.Builder
	buf.WriteString(g.index(meta))
	for _, def := range meta.Children() {
		buf.WriteString("\n---\n\n")
		buf.WriteString(g.Page(def))
	}
	return buf.String()
}

func (g *MarkdownGenerator) index(meta *proptree.Node) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("# %s\n\n", g.title))
	if len(meta.Children()) == 0 {
		buf.WriteString("No definitions.\n")
		return buf.String()
	}
	for _, def := range meta.Children() {
		buf.WriteString(fmt.Sprintf("- [%s](%s) `%s`\n",
			def.String(metadata.AttrFullName), pageName(def), def.String(metadata.PropType)))
	}
	return buf.String()
}

// Page renders one Definition or Import node.
func (g *MarkdownGenerator) Page(def *proptree.Node) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("# %s\n\n", def.String(metadata.AttrFullName)))
	if doc := def.Child(metadata.ElemDocumentation); doc != nil && doc.Has("firstline") {
		buf.WriteString(fmt.Sprintf("> %s\n\n", doc.String("firstline")))
	}

	buf.WriteString(fmt.Sprintf("- **Type:** `%s`\n", def.String(metadata.PropType)))
	buf.WriteString(fmt.Sprintf("- **Line:** %d\n", def.Int(metadata.AttrLine)))
	if v := visibility(def); v != "-" {
		buf.WriteString(fmt.Sprintf("- **Visibility:** %s\n", v))
	}
	if def.Name() == metadata.ElemImport {
		buf.WriteString(fmt.Sprintf("- **Imports:** `%s`\n", def.String(metadata.AttrRef)))
	}
	if def.Has(metadata.AttrSource) {
		buf.WriteString(fmt.Sprintf("- **Source:** `%s`\n", def.String(metadata.AttrSource)))
	}
	if def.Has(metadata.PropReturn) {
		buf.WriteString(fmt.Sprintf("- **Returns:** `%s`\n", def.String(metadata.PropReturn)))
	}
	buf.WriteString("\n")

	if params := def.Child(metadata.ElemParams); params != nil && len(params.Children()) > 0 {
		names := make([]string, 0, len(params.Children()))
		for _, p := range params.Children() {
			names = append(names, "`"+p.String(metadata.AttrName)+"`")
		}
		buf.WriteString(fmt.Sprintf("**Parameters:** %s\n\n", strings.Join(names, ", ")))
	}

	if parents := def.Child(metadata.ElemParents); parents != nil && len(parents.Children()) > 0 {
		buf.WriteString("## Parents\n\n")
		for _, p := range parents.Children() {
			buf.WriteString(fmt.Sprintf("- `%s` (line %d)\n", p.String(metadata.AttrRef), p.Int(metadata.AttrLine)))
		}
		buf.WriteString("\n")
	}

	if fields := collectNames(def, metadata.ElemField); len(fields) > 0 {
		buf.WriteString("## Fields\n\n")
		for _, f := range fields {
			buf.WriteString(fmt.Sprintf("- `%s`\n", f))
		}
		buf.WriteString("\n")
	}

	symbols := append(def.ChildrenNamed(metadata.ElemDefinition), def.ChildrenNamed(metadata.ElemImport)...)
	if len(symbols) > 0 {
		buf.WriteString("## Symbols\n\n")
		buf.WriteString("| Name | Type | Line | Inherit | Visibility |\n")
		buf.WriteString("|------|------|------|---------|------------|\n")
		for _, sym := range def.Children() {
			if sym.Name() != metadata.ElemDefinition && sym.Name() != metadata.ElemImport {
				continue
			}
			buf.WriteString(fmt.Sprintf("| `%s` | `%s` | %d | %s | %s |\n",
				sym.String(metadata.AttrName), sym.String(metadata.PropType), sym.Int(metadata.AttrLine),
				sym.String(metadata.AttrInheritType), visibility(sym)))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// collectNames lists the names of every descendant element called elem,
// including those nested in conditional blocks.
func collectNames(def *proptree.Node, elem string) []string {
	var out []string
	for _, c := range def.Children() {
		switch c.Name() {
		case elem:
			out = append(out, c.String(metadata.AttrName))
		case metadata.ElemIfBlock:
			out = append(out, collectNames(c, elem)...)
		}
	}
	return out
}

func visibility(def *proptree.Node) string {
	switch {
	case def.Bool(metadata.AttrExported):
		return "exported"
	case def.Bool(metadata.AttrShared):
		return "shared"
	default:
		return "-"
	}
}

func pageName(def *proptree.Node) string {
	name := strings.ToLower(def.String(metadata.AttrFullName))
	if name == "" {
		name = "unnamed"
	}
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name) + ".md"
}
