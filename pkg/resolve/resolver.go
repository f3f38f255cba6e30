// Package resolve implements the effective-model resolution engine: it walks
// parent chains, merges dependency-management tables (splicing BOM-style
// imports), computes the effective transitive dependency graph with
// nearest-wins conflict resolution and exclusion propagation, and recurses
// into declared submodules.
//
// Failures in independent branches never block siblings: they accumulate in
// an [Aggregate] keyed by coordinate and are surfaced either to the caller or
// as inline warnings on the source tree (see [Synchronizer]).
package resolve

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/observability"
	"github.com/matzehuels/pomstack/pkg/pom"
)

// Resolver resolves requested descriptors into effective models. The
// settings and active-profile context is read-only for the duration of a
// run; a Resolver is safe for concurrent use.
type Resolver struct {
	downloader     Downloader
	settings       *pom.Settings
	activeProfiles []string
	extraRepos     []pom.Repository
	defaultRepo    pom.Repository
	logger         *log.Logger

	mgmt *managementMemo
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSettings supplies the external settings document consulted for
// profile-scoped repositories.
func WithSettings(s *pom.Settings) Option {
	return func(r *Resolver) { r.settings = s }
}

// WithActiveProfiles activates the given profile ids for this resolver's
// runs, independent of what descriptors or settings declare.
func WithActiveProfiles(ids ...string) Option {
	return func(r *Resolver) { r.activeProfiles = ids }
}

// WithExtraRepositories appends configured repositories to every effective
// repository list, after descriptor and settings declarations and before the
// default.
func WithExtraRepositories(repos ...pom.Repository) Option {
	return func(r *Resolver) { r.extraRepos = repos }
}

// WithDefaultRepository overrides the fallback repository.
func WithDefaultRepository(repo pom.Repository) Option {
	return func(r *Resolver) { r.defaultRepo = repo }
}

// WithLogger sets the logger used for resolution progress.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver using the given downloader.
func New(d Downloader, opts ...Option) *Resolver {
	r := &Resolver{
		downloader:  d,
		defaultRepo: DefaultRepository,
		logger:      log.Default(),
		mgmt:        newManagementMemo(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvedDependency is one node of the effective dependency graph with its
// final version, scope, classifier, type and merged exclusions.
type ResolvedDependency struct {
	GAV        pom.GAV
	Classifier string
	Type       string
	Scope      string
	Optional   bool
	Exclusions []pom.GroupArtifact

	// Depth is the path length from the root descriptor (direct = 1).
	Depth int

	// RequestedBy is the coordinate that pulled this dependency in. Zero for
	// direct dependencies.
	RequestedBy pom.GAV
}

// ResolvedProject is the effective model derived from a requested
// descriptor. It is immutable: re-resolution replaces it wholesale.
type ResolvedProject struct {
	Requested      *pom.Project
	Management     []ManagedEntry
	Dependencies   []ResolvedDependency
	Repositories   []pom.Repository
	ActiveProfiles []string
	Settings       *pom.Settings
}

// ModuleTree is a resolved descriptor plus the resolved trees of its
// declared submodules. On partial failure the map holds the submodules that
// did resolve.
type ModuleTree struct {
	Project *ResolvedProject
	Modules map[string]*ModuleTree
}

// ResolveProject computes the effective model for a single descriptor.
//
// A structural error (missing artifact id) is fatal: the returned model is
// nil. Recoverable failures accumulate in an *Aggregate returned as the
// error; in that case the returned model is still non-nil and carries
// everything that did resolve.
func (r *Resolver) ResolveProject(ctx context.Context, p *pom.Project) (*ResolvedProject, error) {
	started := time.Now()
	observability.Resolve().OnResolveStart(ctx, p.GAV.String())

	if err := p.Validate(); err != nil {
		observability.Resolve().OnResolveComplete(ctx, p.GAV.String(), 0, time.Since(started), err)
		return nil, err
	}

	repos := r.Repositories(p)
	var agg *Aggregate

	chain, chainAgg := r.ancestry(ctx, p, repos)
	agg = agg.Merge(chainAgg)

	table, mgmtAgg := r.mergedManagement(ctx, chain, repos)
	agg = agg.Merge(mgmtAgg)

	deps, depAgg := r.effectiveDependencies(ctx, p, table, repos)
	agg = agg.Merge(depAgg)

	resolved := &ResolvedProject{
		Requested:      p,
		Management:     table.Entries(),
		Dependencies:   deps,
		Repositories:   repos,
		ActiveProfiles: r.activeProfiles,
		Settings:       r.settings,
	}

	var err error
	if agg != nil {
		err = agg
	}
	observability.Resolve().OnResolveComplete(ctx, p.GAV.String(), len(deps), time.Since(started), err)
	if err != nil {
		r.logger.Warn("resolution finished with failures", "project", p.GAV, "failures", len(agg.Failures()))
		return resolved, err
	}
	r.logger.Debug("resolved project", "project", p.GAV, "dependencies", len(deps), "elapsed", time.Since(started).Round(time.Millisecond))
	return resolved, nil
}

// ResolveCoordinate downloads the descriptor for a coordinate and resolves
// it. The effective repository list starts empty, so the settings and
// default repositories apply.
func (r *Resolver) ResolveCoordinate(ctx context.Context, gav pom.GAV) (*ResolvedProject, error) {
	p, err := r.downloader.Download(ctx, gav, r.Repositories(nil))
	if err != nil {
		return nil, err
	}
	return r.ResolveProject(ctx, p)
}

// ancestry follows the parent chain upward, child first. A failing ancestor
// terminates the walk; everything below it is still usable.
func (r *Resolver) ancestry(ctx context.Context, p *pom.Project, repos []pom.Repository) ([]*pom.Project, *Aggregate) {
	chain := []*pom.Project{p}
	var agg *Aggregate

	seen := map[pom.GroupArtifact]bool{p.GAV.GroupArtifact(): true}
	cur := p
	for cur.Parent != nil {
		gav := cur.Parent.GAV
		if seen[gav.GroupArtifact()] {
			agg = Append(agg, NewDownloadError(gav, errors.New(errors.ErrCodeImportCycle, "parent chain references itself")))
			break
		}
		parent, err := r.downloader.Download(ctx, gav, repos)
		if err != nil {
			agg = Append(agg, err)
			break
		}
		seen[gav.GroupArtifact()] = true
		chain = append(chain, parent)
		// Ancestor-declared repositories extend the search for the rest of
		// the chain.
		repos = dedupeByURL(append(repos, parent.Repositories...))
		cur = parent
	}
	return chain, agg
}

// mergedManagement combines the management tables along the ancestry in
// declaration order, the most specific descriptor last so its declarations
// win on conflicts.
func (r *Resolver) mergedManagement(ctx context.Context, chain []*pom.Project, repos []pom.Repository) (*ManagementTable, *Aggregate) {
	table := newManagementTable()
	var agg *Aggregate
	for i := len(chain) - 1; i >= 0; i-- {
		agg = agg.Merge(r.spliceManagement(ctx, table, chain[i].DependencyManagement, repos, map[pom.GroupArtifact]bool{
			chain[i].GAV.GroupArtifact(): true,
		}))
	}
	return table, agg
}

// spliceManagement registers the given entries into table in declaration
// order. Imported entries splice in the referenced descriptor's full
// management table at their position, so entries declared after an import
// can still override what the import contributed, while earlier entries
// cannot. The resolving set guards against self-referential imports.
func (r *Resolver) spliceManagement(ctx context.Context, table *ManagementTable, entries []pom.ManagedDependency, repos []pom.Repository, resolving map[pom.GroupArtifact]bool) *Aggregate {
	var agg *Aggregate
	for _, entry := range entries {
		switch m := entry.(type) {
		case pom.Defined:
			table.add(ManagedEntry{
				GAV:        m.GAV,
				Scope:      m.Scope,
				Type:       m.Type,
				Classifier: m.Classifier,
				Exclusions: m.Exclusions,
			})
		case pom.Imported:
			if resolving[m.GAV.GroupArtifact()] {
				agg = Append(agg, NewDownloadError(m.GAV, errors.New(errors.ErrCodeImportCycle,
					"dependency management import cycle")))
				continue
			}
			imported, err := r.importedTable(ctx, m.GAV, repos, resolving)
			if err != nil {
				agg = Append(agg, err)
				continue
			}
			for _, e := range imported.Entries() {
				table.add(e)
			}
		}
	}
	return agg
}

// importedTable resolves the full effective management table of an imported
// descriptor, memoized by coordinate and repository set.
func (r *Resolver) importedTable(ctx context.Context, gav pom.GAV, repos []pom.Repository, resolving map[pom.GroupArtifact]bool) (*ManagementTable, error) {
	key := gav.String() + "@" + repoFingerprint(repos)
	if table, ok := r.mgmt.get(key); ok {
		return table, nil
	}

	p, err := r.downloader.Download(ctx, gav, repos)
	if err != nil {
		return nil, err
	}

	nested := make(map[pom.GroupArtifact]bool, len(resolving)+1)
	for ga := range resolving {
		nested[ga] = true
	}
	nested[gav.GroupArtifact()] = true

	chain, chainAgg := r.ancestry(ctx, p, repos)
	table := newManagementTable()
	agg := chainAgg
	for i := len(chain) - 1; i >= 0; i-- {
		agg = agg.Merge(r.spliceManagement(ctx, table, chain[i].DependencyManagement, repos, nested))
	}
	if agg != nil {
		return nil, agg
	}
	r.mgmt.put(key, table)
	return table, nil
}

// effectiveDependencies computes the transitive closure of the descriptor's
// direct dependencies. Version conflicts resolve nearest-wins: a coordinate
// reached via a shorter path, or declared directly at the root, wins over a
// longer path. Root-level management entries override transitively-declared
// versions unconditionally. Exclusions accumulate along each path and prune
// matching subtrees.
func (r *Resolver) effectiveDependencies(ctx context.Context, root *pom.Project, table *ManagementTable, repos []pom.Repository) ([]ResolvedDependency, *Aggregate) {
	var (
		agg    *Aggregate
		out    []ResolvedDependency
		chosen = make(map[pom.GroupArtifact]int) // coordinate -> depth it was resolved at
	)

	type frontier struct {
		dep        ResolvedDependency
		exclusions []pom.GroupArtifact // accumulated along the path
	}
	var queue []frontier

	// Direct dependencies first, in declaration order: they anchor
	// nearest-wins at depth 1.
	for _, dep := range root.Dependencies {
		if _, ok := chosen[dep.GAV.GroupArtifact()]; ok {
			continue // repeated declaration of the same coordinate
		}
		version := dep.GAV.Version
		exclusions := dep.Exclusions
		if entry, ok := table.lookup(dep.GAV.GroupArtifact(), dep.Classifier, dep.Type); ok {
			if version == "" {
				version = entry.GAV.Version
			}
			exclusions = unionExclusions(exclusions, entry.Exclusions)
		}
		if version == "" {
			agg = Append(agg, NewDownloadError(dep.GAV, errors.New(errors.ErrCodeMissingVersion,
				"no version declared or managed for this dependency")))
			continue
		}

		resolved := ResolvedDependency{
			GAV:        dep.GAV.WithVersion(version),
			Classifier: dep.Classifier,
			Type:       dep.Type,
			Scope:      dep.Scope,
			Optional:   dep.Optional,
			Exclusions: exclusions,
			Depth:      1,
		}
		chosen[dep.GAV.GroupArtifact()] = 1
		out = append(out, resolved)
		queue = append(queue, frontier{dep: resolved, exclusions: exclusions})
	}

	// Breadth-first over the transitive closure so shorter paths are always
	// examined before longer ones, independent of download completion order.
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		p, err := r.downloader.Download(ctx, node.dep.GAV, repos)
		if err != nil {
			agg = Append(agg, err)
			continue
		}

		for _, child := range p.Dependencies {
			if child.Optional || child.Scope == "test" || child.Scope == "provided" {
				continue
			}
			if excluded(node.exclusions, child.GAV) {
				continue
			}
			ga := child.GAV.GroupArtifact()
			if _, ok := chosen[ga]; ok {
				continue // a shorter path already resolved this coordinate
			}

			version := child.GAV.Version
			childExclusions := child.Exclusions
			if entry, ok := table.lookup(ga, child.Classifier, child.Type); ok {
				// Root management overrides transitively-declared versions
				// and contributes its exclusions to the path.
				if entry.GAV.Version != "" {
					version = entry.GAV.Version
				}
				childExclusions = unionExclusions(childExclusions, entry.Exclusions)
			}
			if version == "" {
				version = r.managedVersionOf(ctx, p, repos, child)
			}
			if version == "" {
				agg = Append(agg, NewDownloadError(child.GAV, errors.New(errors.ErrCodeMissingVersion,
					"no version declared or managed for transitive dependency of %s", node.dep.GAV)))
				continue
			}

			resolved := ResolvedDependency{
				GAV:         child.GAV.WithVersion(version),
				Classifier:  child.Classifier,
				Type:        child.Type,
				Scope:       child.Scope,
				Exclusions:  childExclusions,
				Depth:       node.dep.Depth + 1,
				RequestedBy: node.dep.GAV,
			}
			chosen[ga] = resolved.Depth
			out = append(out, resolved)
			queue = append(queue, frontier{
				dep:        resolved,
				exclusions: unionExclusions(node.exclusions, childExclusions),
			})
		}
	}

	return out, agg
}

// managedVersionOf resolves a version through the declaring descriptor's own
// merged management table. Failures here surface later as missing versions;
// they are not fatal on their own.
func (r *Resolver) managedVersionOf(ctx context.Context, p *pom.Project, repos []pom.Repository, dep pom.Dependency) string {
	chain, _ := r.ancestry(ctx, p, repos)
	table := newManagementTable()
	for i := len(chain) - 1; i >= 0; i-- {
		_ = r.spliceManagement(ctx, table, chain[i].DependencyManagement, repos, map[pom.GroupArtifact]bool{
			chain[i].GAV.GroupArtifact(): true,
		})
	}
	if entry, ok := table.lookup(dep.GAV.GroupArtifact(), dep.Classifier, dep.Type); ok {
		return entry.GAV.Version
	}
	return ""
}

func excluded(patterns []pom.GroupArtifact, gav pom.GAV) bool {
	for _, pattern := range patterns {
		if pattern.Matches(gav.Group, gav.Artifact) {
			return true
		}
	}
	return false
}

func unionExclusions(a, b []pom.GroupArtifact) []pom.GroupArtifact {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := append([]pom.GroupArtifact{}, a...)
	for _, e := range b {
		found := false
		for _, existing := range out {
			if existing == e {
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	return out
}
