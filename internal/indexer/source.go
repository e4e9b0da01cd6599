package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Source is the content of one input file. Err is set when the file could
// not be read; such a file provides and requires nothing.
type Source struct {
	Path string
	Text string
	Err  error

	// Read is when the read started, Elapsed how long it took.
	Read    time.Time
	Elapsed time.Duration
}

// loadSources reads every path once, relative paths under root, with at
// most maxParallel reads in flight (0 picks the CPU count). Results keep the
// input order. Only cancellation fails the call.
func loadSources(ctx context.Context, root string, paths []string, maxParallel int) ([]Source, error) {
	if maxParallel <= 0 {
		maxParallel = runtime.NumCPU()
	}

	sources := make([]Source, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			start := time.Now()
			full := p
			if root != "" && !filepath.IsAbs(full) {
				full = filepath.Join(root, p)
			}
			data, err := os.ReadFile(full)
			sources[i] = Source{Path: p, Text: string(data), Read: start, Elapsed: time.Since(start)}
			if err != nil {
				sources[i].Err = errors.Errorf("reading %s: %w", p, err)
				slog.DebugContext(gctx, "could not read file", "file", p, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}
