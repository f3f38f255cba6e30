// Package pom defines the immutable descriptor model for Maven-style project
// descriptors: coordinates, dependencies, managed dependencies, parents,
// exclusions, repositories and profiles.
//
// Values in this package are plain data. They are produced by [Parse] (or read
// back from an edited source tree) and never mutated afterwards; derived
// models are always replaced wholesale.
package pom

import (
	"github.com/matzehuels/pomstack/pkg/errors"
)

// Well-known scope values.
const (
	// ScopeCompile is the default scope applied when a dependency declares none.
	ScopeCompile = "compile"

	// ScopeImport is the reserved scope marking a managed dependency as a
	// BOM-style import rather than a direct override.
	ScopeImport = "import"
)

// Wildcard matches any group or artifact in an exclusion pattern.
const Wildcard = "*"

// GroupArtifact identifies a dependency independent of version. Either side
// may be the [Wildcard] when used as an exclusion pattern.
type GroupArtifact struct {
	Group    string
	Artifact string
}

// String returns "group:artifact".
func (ga GroupArtifact) String() string {
	return ga.Group + ":" + ga.Artifact
}

// Matches reports whether the pattern matches the given group and artifact,
// honoring wildcards on either side.
func (ga GroupArtifact) Matches(group, artifact string) bool {
	return (ga.Group == Wildcard || ga.Group == group) &&
		(ga.Artifact == Wildcard || ga.Artifact == artifact)
}

// GAV is a group/artifact/version coordinate. Artifact is always required;
// group and version may be empty until resolution completes (e.g., when
// inherited from a parent or supplied by dependency management).
type GAV struct {
	Group    string
	Artifact string
	Version  string
}

// GroupArtifact returns the versionless part of the coordinate.
func (gav GAV) GroupArtifact() GroupArtifact {
	return GroupArtifact{Group: gav.Group, Artifact: gav.Artifact}
}

// WithVersion returns a copy of the coordinate with the given version.
func (gav GAV) WithVersion(version string) GAV {
	gav.Version = version
	return gav
}

// Complete reports whether group, artifact and version are all present.
func (gav GAV) Complete() bool {
	return gav.Group != "" && gav.Artifact != "" && gav.Version != ""
}

// String returns "group:artifact" or "group:artifact:version".
func (gav GAV) String() string {
	if gav.Version == "" {
		return gav.Group + ":" + gav.Artifact
	}
	return gav.Group + ":" + gav.Artifact + ":" + gav.Version
}

// Parent references the parent descriptor of a project. RelativePath hints
// where the parent lives on disk before falling back to repositories.
type Parent struct {
	GAV          GAV
	RelativePath string
}

// Dependency is a direct dependency declaration.
type Dependency struct {
	GAV        GAV
	Classifier string
	Type       string
	Scope      string // never empty; defaults to ScopeCompile
	Exclusions []GroupArtifact
	Optional   bool
}

// NewDependency builds a Dependency, applying the default scope when none is
// declared. Exclusions stay nil when the declaration has no exclusion block.
func NewDependency(gav GAV, classifier, typ, scope string, exclusions []GroupArtifact, optional bool) Dependency {
	if scope == "" {
		scope = ScopeCompile
	}
	return Dependency{
		GAV:        gav,
		Classifier: classifier,
		Type:       typ,
		Scope:      scope,
		Exclusions: exclusions,
		Optional:   optional,
	}
}

// ManagedDependency is a dependency-management entry. It is a closed sum of
// two variants: [Defined] registers an override for a coordinate key, and
// [Imported] splices another descriptor's entire management table in at the
// entry's position. Exactly one variant is active per entry.
type ManagedDependency interface {
	// Coordinate returns the entry's own coordinate.
	Coordinate() GAV

	managedDependency()
}

// Defined is a managed dependency that registers version, scope, type,
// classifier and exclusions under its coordinate key.
type Defined struct {
	GAV        GAV
	Scope      string
	Type       string
	Classifier string
	Exclusions []GroupArtifact
}

// Coordinate returns the entry's coordinate.
func (d Defined) Coordinate() GAV { return d.GAV }

func (Defined) managedDependency() {}

// Imported is a managed dependency with the reserved "import" scope. It never
// appears as a direct dependency; it only contributes the management entries
// of the descriptor it references.
type Imported struct {
	GAV GAV
}

// Coordinate returns the imported descriptor's coordinate.
func (i Imported) Coordinate() GAV { return i.GAV }

func (Imported) managedDependency() {}

// NewManagedDependency builds the appropriate variant: the reserved
// [ScopeImport] scope selects [Imported], everything else [Defined].
func NewManagedDependency(gav GAV, scope, typ, classifier string, exclusions []GroupArtifact) ManagedDependency {
	if scope == ScopeImport {
		return Imported{GAV: gav}
	}
	if scope == "" {
		scope = ScopeCompile
	}
	return Defined{
		GAV:        gav,
		Scope:      scope,
		Type:       typ,
		Classifier: classifier,
		Exclusions: exclusions,
	}
}

// Repository is a remote descriptor repository declaration.
type Repository struct {
	ID   string
	Name string
	URL  string
}

// Profile groups repository declarations behind an activation id. Profiles
// appear both in descriptors and in settings documents.
type Profile struct {
	ID           string
	Repositories []Repository
}

// Project is the requested descriptor: the literal content of a single
// descriptor document, before any inheritance or resolution is applied.
type Project struct {
	GAV                  GAV
	Parent               *Parent
	Dependencies         []Dependency
	DependencyManagement []ManagedDependency
	Repositories         []Repository
	Modules              []string
	Profiles             []Profile
}

// Validate checks the structural invariants that are fatal for a single
// descriptor: every coordinate-bearing element must carry an artifact id.
func (p *Project) Validate() error {
	if p.GAV.Artifact == "" {
		return errors.New(errors.ErrCodeMissingField, "project must have an artifactId")
	}
	if p.Parent != nil && p.Parent.GAV.Artifact == "" {
		return errors.New(errors.ErrCodeMissingField, "parent must have an artifactId")
	}
	for _, d := range p.Dependencies {
		if d.GAV.Artifact == "" {
			return errors.New(errors.ErrCodeMissingField, "dependency must have an artifactId")
		}
	}
	for _, m := range p.DependencyManagement {
		if m.Coordinate().Artifact == "" {
			return errors.New(errors.ErrCodeMissingField, "managed dependency must have an artifactId")
		}
	}
	return nil
}

// Settings carries repository declarations from an external settings document
// plus the profile ids the settings themselves activate. It is read-only for
// the duration of a resolution run.
type Settings struct {
	Profiles       []Profile
	ActiveProfiles []string
}
