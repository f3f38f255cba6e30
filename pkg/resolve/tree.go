package resolve

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/pom"
)

// defaultTreeParallelism bounds concurrent submodule resolution.
const defaultTreeParallelism = 8

// ModuleLoader loads the descriptor of a declared submodule, identified by
// the path declared in the aggregator.
type ModuleLoader interface {
	LoadModule(ctx context.Context, path string) (*pom.Project, error)
}

// DirLoader loads submodule descriptors from pom.xml files under a root
// directory.
type DirLoader struct {
	Root string
}

// LoadModule reads and parses <root>/<path>/pom.xml.
func (l DirLoader) LoadModule(_ context.Context, path string) (*pom.Project, error) {
	file := filepath.Join(l.Root, filepath.FromSlash(path), "pom.xml")
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "module descriptor %s", file)
	}
	return pom.Parse(data)
}

// ResolveTree resolves the descriptor and every declared submodule,
// recursively. Submodules resolve in parallel and independently: a failing
// submodule contributes its failures to the returned aggregate without
// blocking its siblings, and the returned tree still carries every branch
// that resolved.
//
// Local descriptors register with the downloader before any resolution
// starts, so intra-build references never hit remote repositories.
func (r *Resolver) ResolveTree(ctx context.Context, p *pom.Project, loader ModuleLoader) (*ModuleTree, error) {
	registerLocalTree(ctx, r.downloader, p, loader, "")

	tree, agg := r.resolveTree(ctx, p, loader, "")
	if agg != nil {
		return tree, agg
	}
	return tree, nil
}

func (r *Resolver) resolveTree(ctx context.Context, p *pom.Project, loader ModuleLoader, base string) (*ModuleTree, *Aggregate) {
	var (
		mu  sync.Mutex
		agg *Aggregate
	)

	tree := &ModuleTree{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultTreeParallelism)

	g.Go(func() error {
		resolved, err := r.ResolveProject(gctx, p)
		mu.Lock()
		defer mu.Unlock()
		tree.Project = resolved
		agg = Append(agg, err)
		return nil
	})

	if len(p.Modules) > 0 {
		tree.Modules = make(map[string]*ModuleTree, len(p.Modules))
	}
	for _, module := range p.Modules {
		module := module
		g.Go(func() error {
			path := joinModulePath(base, module)
			sub, err := loader.LoadModule(gctx, path)
			if err != nil {
				mu.Lock()
				defer mu.Unlock()
				agg = Append(agg, err)
				return nil
			}
			subtree, subAgg := r.resolveTree(gctx, sub, loader, path)
			mu.Lock()
			defer mu.Unlock()
			tree.Modules[module] = subtree
			agg = agg.Merge(subAgg)
			return nil
		})
	}

	// Workers never return errors; failures accumulate in agg instead.
	_ = g.Wait()
	return tree, agg
}

// registerLocalTree walks the declared module structure and registers every
// loadable descriptor with the downloader as a local project.
func registerLocalTree(ctx context.Context, d Downloader, p *pom.Project, loader ModuleLoader, base string) {
	if reg, ok := d.(interface{ RegisterLocal(*pom.Project) }); ok {
		reg.RegisterLocal(p)
	}
	for _, module := range p.Modules {
		path := joinModulePath(base, module)
		sub, err := loader.LoadModule(ctx, path)
		if err != nil {
			continue // the resolution pass reports this failure
		}
		registerLocalTree(ctx, d, sub, loader, path)
	}
}

func joinModulePath(base, module string) string {
	if base == "" {
		return module
	}
	return base + "/" + module
}
