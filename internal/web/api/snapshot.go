// Package api serves the extracted metadata of one fixture over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/cache"
	"github.com/conduit-lang/declmeta/internal/compiler/pipeline"
	"github.com/conduit-lang/declmeta/internal/compiler/semtree"
	"github.com/conduit-lang/declmeta/internal/watch"
)

// Snapshot holds the most recent extraction. Readers never see a partially
// built document: Update swaps the whole result.
type Snapshot struct {
	mu          sync.RWMutex
	result      *pipeline.Result
	fingerprint string
	updated     time.Time
	now         func() time.Time
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{now: time.Now}
}

// Update replaces the current result. fingerprint identifies the inputs
// that produced it and prefixes every cache key derived from it.
func (s *Snapshot) Update(res *pipeline.Result, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	s.fingerprint = fingerprint
	s.updated = s.now()
}

// Current returns the result, its fingerprint and when it was stored. The
// result is nil before the first Update.
func (s *Snapshot) Current() (*pipeline.Result, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.fingerprint, s.updated
}

// Reloader re-runs the pipeline when fixture files change and publishes
// the outcome to the snapshot, the cache and WebSocket clients.
type Reloader struct {
	Snapshot *Snapshot
	Cache    cache.Cache
	Notifier *watch.ReloadServer
	Logger   *zap.Logger

	Path    string
	Options pipeline.Options
}

// Refresh extracts the fixture again. On failure the previous snapshot
// stays in place and clients receive an error message.
func (l *Reloader) Refresh(ctx context.Context, files []string) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	res, fingerprint, err := l.run(logger)
	if err != nil {
		logger.Warn("re-extraction failed", zap.String("fixture", l.Path), zap.Error(err))
		if l.Notifier != nil {
			l.Notifier.NotifyError(&watch.ErrorInfo{Message: err.Error(), File: l.Path, Path: errorPath(err)})
		}
		return err
	}

	if _, old, _ := l.Snapshot.Current(); old != fingerprint && l.Cache != nil {
		if err := l.Cache.Clear(ctx); err != nil {
			logger.Warn("cache clear failed", zap.Error(err))
		}
	}
	l.Snapshot.Update(res, fingerprint)

	logger.Info("metadata refreshed",
		zap.String("fixture", l.Path),
		zap.Int("definitions", res.Definitions()),
		zap.Duration("took", time.Since(start)),
	)
	if l.Notifier != nil {
		l.Notifier.NotifyReload(files, res.Definitions(), time.Since(start))
	}
	return nil
}

func (l *Reloader) run(logger *zap.Logger) (*pipeline.Result, string, error) {
	content, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, "", err
	}
	tree, err := semtree.Load(bytes.NewReader(content))
	if err != nil {
		return nil, "", err
	}
	res, err := pipeline.Extract(l.Path, tree, l.Options, logger)
	if err != nil {
		return nil, "", err
	}
	return res, Fingerprint(content, l.Options), nil
}

// Fingerprint identifies a fixture and the options it is extracted with.
func Fingerprint(content []byte, opts pipeline.Options) string {
	include := append(append([]string(nil), opts.Include...), opts.Select...)
	return cache.DocumentKey(content, "", include, opts.Docs != nil)
}

// errorPath returns the fixture path of a load error, if any
func errorPath(err error) string {
	var le *semtree.LoadError
	if errors.As(err, &le) {
		return le.Path
	}
	return ""
}
