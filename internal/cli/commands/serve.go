package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/cache"
	"github.com/conduit-lang/declmeta/internal/watch"
	"github.com/conduit-lang/declmeta/internal/web/api"
	"github.com/conduit-lang/declmeta/internal/web/ratelimit"
	"github.com/conduit-lang/declmeta/internal/web/server"
)

type serveFlags struct {
	extractFlags
	addr  string
	watch bool
}

func newServeCommand(a *app) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve <fixture>",
		Short: "Serve fixture metadata over HTTP",
		Long: `Serve the metadata of a fixture over HTTP.

Routes:
  GET /healthz              liveness and snapshot summary
  GET /definitions          full document (?format=json|yaml|xml)
  GET /definitions/{name}   one definition by qualified name
  GET /symbols              flattened definitions (?inherit_type=&parent=)
  GET /ws                   reload notifications (with --watch)

With --watch the fixture is re-extracted whenever it changes and connected
WebSocket clients are told about the new snapshot.`,
		Example: `  # Serve on the configured address
  declmeta serve shapes.yml

  # Serve on port 9000 and reload on change
  declmeta serve shapes.yml --addr :9000 --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, args, f)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Re-extract when the fixture changes")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string, f *serveFlags) error {
	path, err := requireFixture(args)
	if err != nil {
		return err
	}

	ex, err := a.extract(cmd, path, &f.extractFlags)
	if err != nil {
		return err
	}
	// The interactive pick is made once; reloads reuse it.
	opts := ex.opts

	docCache, err := cache.New(cache.Config{
		Backend:    a.cfg.Cache.Backend,
		RedisAddr:  a.cfg.Cache.RedisAddr,
		DefaultTTL: a.cfg.Cache.TTL,
		Prefix:     cache.DefaultConfig().Prefix,
	})
	if err != nil {
		return err
	}
	defer docCache.Close()

	snapshot := api.NewSnapshot()
	snapshot.Update(ex.result, api.Fingerprint(ex.content, opts))

	var notifier *watch.ReloadServer
	if f.watch {
		notifier = watch.NewReloadServer(a.logger)
		defer notifier.Close()
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		Backend:   a.cfg.Cache.Backend,
		RedisAddr: a.cfg.Cache.RedisAddr,
		Requests:  a.cfg.Serve.RateLimit.Requests,
		Window:    a.cfg.Serve.RateLimit.Window,
		Prefix:    cache.DefaultConfig().Prefix + "ratelimit:",
	})
	if err != nil {
		return err
	}
	if limiter != nil {
		defer limiter.Close()
	}

	handler := api.NewRouter(api.Config{
		Snapshot: snapshot,
		Cache:    docCache,
		CacheTTL: a.cfg.Cache.TTL,
		Reload:   notifier,
		Limiter:  limiter,
		Logger:   a.logger,
	})

	addr := f.addr
	if addr == "" {
		addr = a.cfg.Serve.Address
	}
	srvCfg := server.DefaultConfig(handler)
	srvCfg.Address = addr
	srvCfg.ReadTimeout = a.cfg.Serve.ReadTimeout
	srvCfg.WriteTimeout = a.cfg.Serve.WriteTimeout
	srvCfg.IdleTimeout = a.cfg.Serve.IdleTimeout

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}
	shutdown := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: a.cfg.Serve.ShutdownTimeout,
		Logger:  a.logger,
	})

	if f.watch {
		reloader := &api.Reloader{
			Snapshot: snapshot,
			Cache:    docCache,
			Notifier: notifier,
			Logger:   a.logger,
			Path:     path,
			Options:  opts,
		}
		fw, err := watch.NewFileWatcher([]string{path}, func(files []string) error {
			return reloader.Refresh(context.Background(), files)
		}, watch.WithDebounce(a.cfg.Watch.Debounce), watch.WithLogger(a.logger))
		if err != nil {
			return err
		}
		if err := fw.Start(); err != nil {
			return err
		}
		shutdown.RegisterHook(func(ctx context.Context) error {
			return fw.Stop()
		})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Listen(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Serving %d definitions from %s on http://%s\n",
		ex.result.Definitions(), path, srv.Addr())
	if a.verbose {
		fmt.Fprint(cmd.OutOrStdout(), handler.RouteList())
	}
	a.logger.Debug("routes registered", zap.Int("routes", len(handler.Routes())))

	return shutdown.Run(ctx)
}
