package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/cache"
	"github.com/conduit-lang/declmeta/internal/cli/ui"
	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/pipeline"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
	"github.com/conduit-lang/declmeta/internal/docs"
)

const (
	formatTree     = "tree"
	formatMarkdown = "markdown"
)

// extractFlags are shared by every command that runs the pipeline
type extractFlags struct {
	include     []string
	interactive bool
	docs        bool
}

func (f *extractFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.include, "include", "i", nil, "Glob over qualified names selecting top-level declarations (repeatable)")
	cmd.Flags().BoolVar(&f.interactive, "select", false, "Pick top-level declarations interactively")
	cmd.Flags().BoolVar(&f.docs, "docs", true, "Attach parsed documentation comments")
}

// extraction is a loaded fixture together with the options it was run with
type extraction struct {
	content []byte
	opts    pipeline.Options
	result  *pipeline.Result
}

// extract loads the fixture at path and runs the pipeline with the flags
// applied on top of configuration. A filter that selects nothing is warned
// about on stderr but is not an error.
func (a *app) extract(cmd *cobra.Command, path string, f *extractFlags) (*extraction, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	tree, err := semtree.Load(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	opts := pipeline.Options{Include: f.include, Logger: a.logger}
	if !cmd.Flags().Changed("include") {
		opts.Include = a.cfg.Filter.Include
	}
	if f.docs {
		provider, err := a.docsProvider()
		if err != nil {
			return nil, err
		}
		opts.Docs = provider
	}

	if f.interactive {
		roots, err := pipeline.SelectRoots(tree, opts.Include)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(roots))
		seen := make(map[string]bool)
		for _, id := range roots {
			name := tree.FullName(id)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			picked, err := a.prompter.MultiSelect("Select declarations to expand:", names)
			if err != nil {
				return nil, err
			}
			opts.Select = picked
		}
	}

	res, err := pipeline.Extract(path, tree, opts, a.logger)
	if err != nil {
		return nil, err
	}
	if len(res.Roots) == 0 && len(opts.Include) > 0 {
		var suggestions []string
		for _, p := range opts.Include {
			suggestions = append(suggestions, ui.SuggestNames(p, pipeline.RootNames(tree))...)
		}
		fmt.Fprint(cmd.ErrOrStderr(), ui.NoMatchWarning(opts.Include, suggestions, a.noColor))
	}

	a.logger.Debug("extracted metadata",
		zap.String("fixture", path),
		zap.Int("roots", len(res.Roots)),
		zap.Int("definitions", res.Definitions()),
	)
	return &extraction{content: content, opts: opts, result: res}, nil
}

type describeFlags struct {
	extractFlags
	format   string
	output   string
	compress bool
}

func newDescribeCommand(a *app) *cobra.Command {
	f := &describeFlags{}

	cmd := &cobra.Command{
		Use:   "describe <fixture>",
		Short: "Extract definition metadata from a fixture",
		Long: `Extract definition metadata from a semantic tree fixture.

Every selected top-level declaration becomes a Definition or Import node.
Modules list their members with an inherit_type of local, inherited or
override, and name the modules they inherit from in a Parents node.`,
		Example: `  # Print metadata as JSON
  declmeta describe shapes.yml

  # Only the declarations under the shapes module, as YAML
  declmeta describe shapes.yml --include 'shapes.*' --format yaml

  # Pick declarations interactively and show them as a tree
  declmeta describe shapes.yml --select --format tree

  # Write gzipped XML
  declmeta describe shapes.yml --format xml --output meta.xml.gz --compress

  # Generate a markdown reference into docs/
  declmeta describe shapes.yml --format markdown --output docs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDescribe(cmd, args, f)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: json, yaml, xml, tree or markdown (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write to this file (a directory for markdown) instead of stdout")
	cmd.Flags().BoolVar(&f.compress, "compress", false, "Gzip the written file")

	return cmd
}

func (a *app) runDescribe(cmd *cobra.Command, args []string, f *describeFlags) error {
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

	ex, err := a.extract(cmd, path, &f.extractFlags)
	if err != nil {
		return err
	}

	return a.render(cmd.Context(), cmd.OutOrStdout(), ex, format, output, compress)
}

// render writes one extraction in the requested format, to output when set
// and to w otherwise
func (a *app) render(ctx context.Context, w io.Writer, ex *extraction, format, output string, compress bool) error {
	meta := ex.result.Meta

	switch format {
	case formatTree:
		if output != "" {
			return fmt.Errorf("the tree format only prints to the terminal")
		}
		ui.NewTreePrinter(w, a.noColor).Print(meta)
		return nil

	case formatMarkdown:
		gen := docs.NewMarkdownGenerator(strings.TrimSuffix(filepath.Base(ex.result.Path), filepath.Ext(ex.result.Path)))
		if output != "" {
			return gen.Generate(meta, output)
		}
		_, err := io.WriteString(w, gen.Render(meta))
		return err
	}

	mf, err := metadata.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := a.serialize(ctx, ex, mf)
	if err != nil {
		return err
	}

	if output == "" {
		_, err := w.Write(data)
		return err
	}
	return metadata.WriteBytes(output, data, compress)
}

// serialize renders the document, going through the configured cache
func (a *app) serialize(ctx context.Context, ex *extraction, format metadata.Format) ([]byte, error) {
	c, err := cache.New(cache.Config{
		Backend:    a.cfg.Cache.Backend,
		RedisAddr:  a.cfg.Cache.RedisAddr,
		DefaultTTL: a.cfg.Cache.TTL,
		Prefix:     cache.DefaultConfig().Prefix,
	})
	if err != nil {
		a.logger.Warn("cache unavailable, rendering directly", zap.Error(err))
		return metadata.Serialize(ex.result.Meta, format)
	}
	defer c.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	patterns := append(append([]string(nil), ex.opts.Include...), ex.opts.Select...)
	key := cache.DocumentKey(ex.content, string(format), patterns, ex.opts.Docs != nil)

	if data, err := c.Get(ctx, key); err == nil {
		a.logger.Debug("cache hit", zap.String("key", key))
		return data, nil
	} else if !cache.IsCacheMiss(err) {
		a.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	data, err := metadata.Serialize(ex.result.Meta, format)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, data, 0); err != nil {
		a.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}
