package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/cli/ui"
	"github.com/conduit-lang/declmeta/internal/store"
)

type indexFlags struct {
	extractFlags
	driver string
	db     string
	query  string
	runs   bool
}

func newIndexCommand(a *app) *cobra.Command {
	f := &indexFlags{}

	cmd := &cobra.Command{
		Use:   "index [fixture]",
		Short: "Record definitions in a queryable index",
		Long: `Extract a fixture and store every Definition and Import node, nested
members included, as one run in a SQL index (SQLite or PostgreSQL).

With --query, look a definition up by qualified name or identifier across
all runs instead. With --runs, list the recorded runs.`,
		Example: `  # Index a fixture into declmeta.db
  declmeta index shapes.yml

  # Find a definition, newest run first
  declmeta index --query shapes.Circle

  # Index into PostgreSQL
  declmeta index shapes.yml --driver pgx --db postgres://localhost/declmeta`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIndex(cmd, args, f)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.driver, "driver", "", "Database driver: sqlite3, postgres or pgx (default from config)")
	cmd.Flags().StringVar(&f.db, "db", "", "Database DSN (default from config)")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Look up a definition instead of indexing")
	cmd.Flags().BoolVar(&f.runs, "runs", false, "List recorded runs")

	return cmd
}

func (a *app) runIndex(cmd *cobra.Command, args []string, f *indexFlags) error {
	driver, dsn := f.driver, f.db
	if driver == "" {
		driver = a.cfg.Index.Driver
	}
	if dsn == "" {
		dsn = a.cfg.Index.DB
	}

	s, err := store.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	switch {
	case f.query != "":
		return a.queryIndex(ctx, cmd, s, f.query)
	case f.runs:
		return a.listRuns(ctx, cmd, s)
	}

	path, err := requireFixture(args)
	if err != nil {
		return err
	}
	ex, err := a.extract(cmd, path, &f.extractFlags)
	if err != nil {
		return err
	}

	runID, err := s.SaveRun(ctx, path, ex.result.Meta)
	if err != nil {
		return err
	}
	count := len(store.Flatten(ex.result.Meta))
	a.logger.Info("indexed fixture",
		zap.String("fixture", path),
		zap.String("run", runID.String()),
		zap.Int("definitions", count),
	)
	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Indexed %d definitions from %s (run %s)", count, path, runID), a.noColor)
	return nil
}

func (a *app) queryIndex(ctx context.Context, cmd *cobra.Command, s *store.Store, name string) error {
	defs, err := s.Lookup(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		all, lerr := a.knownNames(ctx, s)
		if lerr != nil {
			return lerr
		}
		fmt.Fprint(cmd.ErrOrStderr(), ui.DefinitionNotFound(name, ui.SuggestNames(name, all), a.noColor))
		return err
	}
	if err != nil {
		return err
	}

	table := ui.NewTable(cmd.OutOrStdout(), []string{"FULLNAME", "ELEMENT", "TYPE", "LINE", "INHERIT", "PARENT", "RUN"}, &ui.TableOptions{NoColor: a.noColor})
	for _, d := range defs {
		table.AddRow(d.FullName, d.Element, d.Type, strconv.Itoa(d.Line), d.InheritType, d.Parent, d.RunID.String())
	}
	table.Render()
	return nil
}

// knownNames lists the qualified names of the newest run, for suggestions
func (a *app) knownNames(ctx context.Context, s *store.Store) ([]string, error) {
	runs, err := s.Runs(ctx)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	defs, err := s.Definitions(ctx, runs[0].ID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.FullName
	}
	return out, nil
}

func (a *app) listRuns(ctx context.Context, cmd *cobra.Command, s *store.Store) error {
	runs, err := s.Runs(ctx)
	if err != nil {
		return err
	}
	table := ui.NewTable(cmd.OutOrStdout(), []string{"RUN", "SOURCE", "CREATED"}, &ui.TableOptions{NoColor: a.noColor})
	for _, r := range runs {
		table.AddRow(r.ID.String(), r.Source, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	table.Render()
	return nil
}
