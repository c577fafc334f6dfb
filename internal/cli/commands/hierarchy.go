package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/declmeta/internal/cli/ui"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
	"github.com/conduit-lang/declmeta/internal/hierarchy"
)

func newHierarchyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy <fixture>",
		Short: "Show the module inheritance graph",
		Long: `Show every scope-bearing declaration of a fixture, parents first,
with the declarations it inherits from and the ones inheriting from it.

Inheritance must be acyclic. Cycles are listed and the command fails.`,
		Example: `  # Print the hierarchy table
  declmeta hierarchy shapes.yml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHierarchy(cmd, args)
		},
	}
}

func (a *app) runHierarchy(cmd *cobra.Command, args []string) error {
	path, err := requireFixture(args)
	if err != nil {
		return err
	}
	tree, err := semtree.LoadFile(path)
	if err != nil {
		return err
	}
	h, err := hierarchy.Build(tree)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	order, err := h.Order()
	if errors.Is(err, hierarchy.ErrCycle) {
		cycles, cerr := h.Cycles()
		if cerr != nil {
			return cerr
		}
		red := color.New(color.FgRed)
		if a.noColor {
			red.DisableColor()
		}
		for _, cycle := range cycles {
			red.Fprintf(out, "cycle: %s\n", strings.Join(names(tree, cycle), " -> "))
		}
		return fmt.Errorf("%d inheritance cycle(s) in %s", len(cycles), path)
	}
	if err != nil {
		return err
	}

	ui.Header(out, fmt.Sprintf("Hierarchy (%d declarations)", h.Len()), a.noColor)
	table := ui.NewTable(out, []string{"DECLARATION", "KIND", "PARENTS", "CHILDREN"}, &ui.TableOptions{NoColor: a.noColor})
	for _, id := range order {
		table.AddRow(
			tree.FullName(id),
			tree.Node(id).Kind.String(),
			strings.Join(names(tree, h.Parents(id)), ", "),
			strings.Join(names(tree, h.Children(id)), ", "),
		)
	}
	table.Render()
	return nil
}

func names(tree *semtree.Tree, ids []semtree.NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = tree.FullName(id)
	}
	return out
}
