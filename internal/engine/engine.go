// Package engine ties the catalog, identity and residual lookups together
// and sizes everything a removal would touch.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/identity"
	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/residual"
	"github.com/lu-zhengda/appsweep/internal/utils"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Entry is one residual path with its size.
type Entry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Plan is everything a removal of one app would delete.
type Plan struct {
	App       catalog.App `json:"app"`
	Residuals []Entry     `json:"residuals"`
	Excluded  []string    `json:"excluded,omitempty"`
	Total     int64       `json:"total"`
}

// ResidualPaths returns the residual paths in plan order.
func (p Plan) ResidualPaths() []string {
	paths := make([]string, 0, len(p.Residuals))
	for _, e := range p.Residuals {
		paths = append(paths, e.Path)
	}
	return paths
}

// Request converts the plan into a removal request.
func (p Plan) Request() remover.Request {
	return remover.Request{
		AppName:    p.App.Name,
		BundlePath: p.App.Path,
		Residuals:  p.ResidualPaths(),
	}
}

// Engine builds removal plans from the catalog, identity and residual lookups.
type Engine struct {
	catalog     *catalog.Catalog
	resolver    *identity.Resolver
	finder      *residual.Finder
	concurrency int
	excludeFunc func(string) bool
	log         *slog.Logger
}

// New returns an Engine with the default concurrency.
func New(cat *catalog.Catalog, resolver *identity.Resolver, finder *residual.Finder, log *slog.Logger) *Engine {
	return &Engine{
		catalog:     cat,
		resolver:    resolver,
		finder:      finder,
		concurrency: defaultConcurrency,
		log:         logging.OrDefault(log),
	}
}

// SetExcludeFunc sets a predicate that drops residual paths from plans.
func (e *Engine) SetExcludeFunc(fn func(string) bool) {
	e.excludeFunc = fn
}

// SetConcurrency bounds parallel sizing; values below 1 mean 1.
func (e *Engine) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	e.concurrency = n
}

// Catalog returns the app catalog the engine resolves names against.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Finder returns the residual finder.
func (e *Engine) Finder() *residual.Finder {
	return e.finder
}

func (e *Engine) filterExcluded(paths []string) (kept, excluded []string) {
	if e.excludeFunc == nil {
		return paths, nil
	}
	kept = make([]string, 0, len(paths))
	for _, p := range paths {
		if e.excludeFunc(p) {
			excluded = append(excluded, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, excluded
}

// size returns TreeSize, or zero when path itself cannot be stat'd.
func (e *Engine) size(path string) int64 {
	n, err := utils.TreeSize(path)
	if err != nil {
		e.log.Debug("size unavailable", "path", path, "err", err)
		return 0
	}
	return n
}

// Inspect resolves name through the catalog and builds its Plan.
// It returns an error wrapping catalog.ErrNotFound when no bundle matches.
func (e *Engine) Inspect(ctx context.Context, name string) (Plan, error) {
	bundle, ok := e.catalog.Find(name)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, name)
	}
	return e.InspectBundle(ctx, bundle)
}

// InspectBundle builds the Plan for a known bundle path: identifier, residual
// set (sorted, deduplicated, exclusions removed) and per-path sizes.
func (e *Engine) InspectBundle(ctx context.Context, bundlePath string) (Plan, error) {
	app := catalog.AppAt(bundlePath)
	if id, ok := e.resolver.BundleID(ctx, bundlePath); ok {
		app.BundleID = id
	}

	found, err := e.finder.Find(ctx, app.Name, app.BundleID)
	if err != nil {
		return Plan{}, fmt.Errorf("finding residuals for %s: %w", app.Name, err)
	}
	kept, excluded := e.filterExcluded(found)

	sizes := utils.TreeSizes(append([]string{bundlePath}, kept...), e.concurrency)
	app.Size = sizes[bundlePath]

	plan := Plan{App: app, Excluded: excluded, Total: app.Size}
	plan.Residuals = make([]Entry, 0, len(kept))
	for _, p := range kept {
		plan.Residuals = append(plan.Residuals, Entry{Path: p, Size: sizes[p]})
		plan.Total += sizes[p]
	}

	e.log.Debug("plan built", "app", app.Name, "residuals", len(plan.Residuals), "total", plan.Total)
	return plan, nil
}

// DescribeProgress is sent to the progress callback as each app is sized.
type DescribeProgress struct {
	Done  int
	Total int
	App   catalog.App
}

// Describe fills Size and BundleID for every app, with a concurrency limit,
// preserving input order. onProgress may be nil.
func (e *Engine) Describe(ctx context.Context, apps []catalog.App, onProgress func(DescribeProgress)) []catalog.App {
	return e.each(apps, onProgress, func(app *catalog.App) {
		app.Size = e.size(app.Path)
		e.identify(ctx, app)
	})
}

// Identify fills only BundleID for every app, preserving input order.
func (e *Engine) Identify(ctx context.Context, apps []catalog.App) []catalog.App {
	return e.each(apps, nil, func(app *catalog.App) {
		e.identify(ctx, app)
	})
}

func (e *Engine) identify(ctx context.Context, app *catalog.App) {
	if id, ok := e.resolver.BundleID(ctx, app.Path); ok {
		app.BundleID = id
	}
}

// each applies fn to a copy of every app on at most e.concurrency goroutines.
func (e *Engine) each(apps []catalog.App, onProgress func(DescribeProgress), fn func(*catalog.App)) []catalog.App {
	out := make([]catalog.App, len(apps))
	copy(out, apps)

	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(e.concurrency)

	for i := range out {
		g.Go(func() error {
			app := &out[i]
			fn(app)

			mu.Lock()
			defer mu.Unlock()
			done++
			if onProgress != nil {
				onProgress(DescribeProgress{Done: done, Total: len(out), App: *app})
			}
			return nil
		})
	}

	_ = g.Wait()
	return out
}
