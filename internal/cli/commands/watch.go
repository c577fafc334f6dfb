package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/compiler/pipeline"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
	"github.com/conduit-lang/declmeta/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	f := &describeFlags{}

	cmd := &cobra.Command{
		Use:   "watch <fixture>",
		Short: "Re-extract metadata whenever the fixture changes",
		Long: `Watch a fixture and re-run describe every time it is saved.

The output is rewritten on each change. A fixture that fails to load is
reported and the previous output is left in place.`,
		Example: `  # Keep meta.json in sync with shapes.yml
  declmeta watch shapes.yml --output meta.json

  # Print a tree on every save
  declmeta watch shapes.yml --format tree`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args, f)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: json, yaml, xml, tree or markdown (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Rewrite this file (a directory for markdown) instead of printing")
	cmd.Flags().BoolVar(&f.compress, "compress", false, "Gzip the written file")

	return cmd
}

// watchSession re-renders one fixture with fixed options
type watchSession struct {
	app      *app
	out      io.Writer
	errOut   io.Writer
	path     string
	opts     pipeline.Options
	format   string
	output   string
	compress bool
}

// refresh re-extracts the fixture and renders it. Failures are reported
// and returned; the previous output is not touched.
func (s *watchSession) refresh(ctx context.Context, files []string) error {
	start := time.Now()

	content, err := os.ReadFile(s.path)
	if err != nil {
		return s.fail(err)
	}
	tree, err := semtree.Load(bytes.NewReader(content))
	if err != nil {
		return s.fail(err)
	}
	res, err := pipeline.Extract(s.path, tree, s.opts, s.app.logger)
	if err != nil {
		return s.fail(err)
	}

	ex := &extraction{content: content, opts: s.opts, result: res}
	if err := s.app.render(ctx, s.out, ex, s.format, s.output, s.compress); err != nil {
		return s.fail(err)
	}

	s.app.logger.Info("metadata refreshed",
		zap.Strings("files", files),
		zap.Int("definitions", res.Definitions()),
		zap.Duration("took", time.Since(start)),
	)
	if s.output != "" {
		green := color.New(color.FgGreen)
		if s.app.noColor {
			green.DisableColor()
		}
		green.Fprintf(s.errOut, "[%s] wrote %d definitions to %s\n", time.Now().Format("15:04:05"), res.Definitions(), s.output)
	}
	return nil
}

func (s *watchSession) fail(err error) error {
	red := color.New(color.FgRed)
	if s.app.noColor {
		red.DisableColor()
	}
	red.Fprintf(s.errOut, "[%s] %v\n", time.Now().Format("15:04:05"), err)
	return err
}

func (a *app) runWatch(cmd *cobra.Command, args []string, f *describeFlags) error {
	path, err := requireFixture(args)
	if err != nil {
		return err
	}

	format := strings.ToLower(f.format)
	if format == "" {
		format = strings.ToLower(a.cfg.Output.Format)
	}
	output := f.output
	if output == "" {
		output = a.cfg.Output.Path
	}
	compress := f.compress || (!cmd.Flags().Changed("compress") && a.cfg.Output.Compress)
	if compress && output == "" {
		return fmt.Errorf("--compress requires --output")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// The first run resolves --include and --select; later runs reuse them.
	ex, err := a.extract(cmd, path, &f.extractFlags)
	if err != nil {
		return err
	}
	session := &watchSession{
		app:      a,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		path:     path,
		opts:     ex.opts,
		format:   format,
		output:   output,
		compress: compress,
	}
	if err := a.render(ctx, session.out, ex, format, output, compress); err != nil {
		return err
	}

	fw, err := watch.NewFileWatcher([]string{path}, func(files []string) error {
		return session.refresh(ctx, files)
	}, watch.WithDebounce(a.cfg.Watch.Debounce), watch.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		return err
	}
	defer fw.Stop()

	color.New(color.FgCyan).Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", path)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
