package resolve

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/matzehuels/pomstack/pkg/pom"
	"github.com/matzehuels/pomstack/pkg/pomtree"
)

// Resolution is the attachment a [Synchronizer] stores on a document: the
// requested model read back from the source plus the effective model derived
// from it. A document carries at most one.
type Resolution struct {
	Requested *pom.Project
	Resolved  *ResolvedProject

	// Failures holds the aggregate of the resolution that produced this
	// attachment, nil when everything resolved.
	Failures *Aggregate
}

func isResolution(value any) bool {
	_, ok := value.(*Resolution)
	return ok
}

// Synchronizer reconciles an edited document with its derived model. After
// an edit, Sync reads the requested model back from the source tree,
// re-resolves it when it changed, and replaces the document's attachment
// wholesale. Resolution failures become warning markers on the elements that
// caused them; the partial model is still attached.
type Synchronizer struct {
	resolver *Resolver
}

// NewSynchronizer creates a Synchronizer backed by the given resolver.
func NewSynchronizer(r *Resolver) *Synchronizer {
	return &Synchronizer{resolver: r}
}

// Sync reconciles the document's attached model with its current content.
// It returns the up-to-date resolution; when the requested model is
// unchanged since the last run, the existing attachment is returned
// untouched and no resolution happens.
func (s *Synchronizer) Sync(ctx context.Context, doc *pomtree.Document) (*Resolution, error) {
	requested, err := RequestedFromDocument(doc)
	if err != nil {
		return nil, err
	}

	if prev, ok := doc.FindMarker(isResolution); ok {
		res := prev.(*Resolution)
		if reflect.DeepEqual(res.Requested, requested) {
			if res.Failures != nil {
				return res, res.Failures
			}
			return res, nil
		}
	}

	resolved, resolveErr := s.resolver.ResolveProject(ctx, requested)
	if resolved == nil {
		return nil, resolveErr
	}

	res := &Resolution{Requested: requested, Resolved: resolved}
	if agg, ok := resolveErr.(*Aggregate); ok {
		res.Failures = agg
	}
	doc.UpsertMarker(isResolution, res)

	if res.Failures != nil {
		markFailures(doc, res.Failures)
		return res, res.Failures
	}
	return res, nil
}

// markFailures attaches a warning to every source element whose coordinate
// matches a failed download: dependency declarations, managed declarations
// and the parent reference. Failures with no matching element are dropped
// from the document; they remain visible on the aggregate itself.
func markFailures(doc *pomtree.Document, agg *Aggregate) {
	root := doc.Root
	for _, f := range agg.Failures() {
		ga := f.GAV.GroupArtifact()
		msg := f.Error()
		for _, el := range dependencyElements(root) {
			if coordinateOf(el) == ga {
				el.Warn(msg)
			}
		}
		if parent := root.Element("parent"); parent != nil && coordinateOf(parent) == ga {
			parent.Warn(msg)
		}
	}
}

// dependencyElements returns every dependency declaration element of the
// document: direct dependencies and dependency management, profiles
// included.
func dependencyElements(root *pomtree.Element) []*pomtree.Element {
	var out []*pomtree.Element
	collect := func(scope *pomtree.Element) {
		if deps := scope.Element("dependencies"); deps != nil {
			out = append(out, deps.Elements("dependency")...)
		}
		if mgmt := scope.Element("dependencyManagement"); mgmt != nil {
			if deps := mgmt.Element("dependencies"); deps != nil {
				out = append(out, deps.Elements("dependency")...)
			}
		}
	}
	collect(root)
	if profiles := root.Element("profiles"); profiles != nil {
		for _, profile := range profiles.Elements("profile") {
			collect(profile)
		}
	}
	return out
}

func coordinateOf(el *pomtree.Element) pom.GroupArtifact {
	group, _ := el.ChildText("groupId")
	artifact, _ := el.ChildText("artifactId")
	return pom.GroupArtifact{Group: group, Artifact: artifact}
}

// RequestedFromDocument reads the requested model back from a source tree,
// applying the same normalization as [pom.Parse]: whitespace trimmed, scope
// defaulted, group and version inherited from the parent reference when
// absent. An artifact id is required on the project, its parent reference
// and every dependency.
func RequestedFromDocument(doc *pomtree.Document) (*pom.Project, error) {
	root := doc.Root

	p := &pom.Project{
		GAV: pom.GAV{
			Group:    childText(root, "groupId"),
			Artifact: childText(root, "artifactId"),
			Version:  childText(root, "version"),
		},
	}

	if parent := root.Element("parent"); parent != nil {
		p.Parent = &pom.Parent{
			GAV: pom.GAV{
				Group:    childText(parent, "groupId"),
				Artifact: childText(parent, "artifactId"),
				Version:  childText(parent, "version"),
			},
			RelativePath: childText(parent, "relativePath"),
		}
		if p.GAV.Group == "" {
			p.GAV.Group = p.Parent.GAV.Group
		}
		if p.GAV.Version == "" {
			p.GAV.Version = p.Parent.GAV.Version
		}
	}

	if deps := root.Element("dependencies"); deps != nil {
		for _, el := range deps.Elements("dependency") {
			p.Dependencies = append(p.Dependencies, dependencyOf(el))
		}
	}
	if mgmt := root.Element("dependencyManagement"); mgmt != nil {
		if deps := mgmt.Element("dependencies"); deps != nil {
			for _, el := range deps.Elements("dependency") {
				gav := pom.GAV{
					Group:    childText(el, "groupId"),
					Artifact: childText(el, "artifactId"),
					Version:  childText(el, "version"),
				}
				p.DependencyManagement = append(p.DependencyManagement, pom.NewManagedDependency(
					gav,
					childText(el, "scope"),
					childText(el, "type"),
					childText(el, "classifier"),
					exclusionsOf(el),
				))
			}
		}
	}
	if repos := root.Element("repositories"); repos != nil {
		for _, el := range repos.Elements("repository") {
			p.Repositories = append(p.Repositories, pom.Repository{
				ID:   childText(el, "id"),
				Name: childText(el, "name"),
				URL:  childText(el, "url"),
			})
		}
	}
	if modules := root.Element("modules"); modules != nil {
		for _, el := range modules.Elements("module") {
			p.Modules = append(p.Modules, el.Text())
		}
	}
	if profiles := root.Element("profiles"); profiles != nil {
		for _, el := range profiles.Elements("profile") {
			profile := pom.Profile{ID: childText(el, "id")}
			if repos := el.Element("repositories"); repos != nil {
				for _, rel := range repos.Elements("repository") {
					profile.Repositories = append(profile.Repositories, pom.Repository{
						ID:   childText(rel, "id"),
						Name: childText(rel, "name"),
						URL:  childText(rel, "url"),
					})
				}
			}
			p.Profiles = append(p.Profiles, profile)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func dependencyOf(el *pomtree.Element) pom.Dependency {
	gav := pom.GAV{
		Group:    childText(el, "groupId"),
		Artifact: childText(el, "artifactId"),
		Version:  childText(el, "version"),
	}
	optional := false
	if text, ok := el.ChildText("optional"); ok {
		optional, _ = strconv.ParseBool(strings.TrimSpace(text))
	}
	return pom.NewDependency(
		gav,
		childText(el, "classifier"),
		childText(el, "type"),
		childText(el, "scope"),
		exclusionsOf(el),
		optional,
	)
}

func exclusionsOf(el *pomtree.Element) []pom.GroupArtifact {
	exclusions := el.Element("exclusions")
	if exclusions == nil {
		return nil
	}
	var out []pom.GroupArtifact
	for _, ex := range exclusions.Elements("exclusion") {
		out = append(out, pom.GroupArtifact{
			Group:    childText(ex, "groupId"),
			Artifact: childText(ex, "artifactId"),
		})
	}
	return out
}

func childText(el *pomtree.Element, name string) string {
	text, _ := el.ChildText(name)
	return text
}

// AnnotateRepositories computes the document's effective repository list and
// writes it as the repositories marker, one URL per line. Repeated calls
// with unchanged content leave the document identical.
func (s *Synchronizer) AnnotateRepositories(ctx context.Context, doc *pomtree.Document) error {
	requested, err := RequestedFromDocument(doc)
	if err != nil {
		return err
	}
	repos := s.resolver.Repositories(requested)
	doc.SetRepositoriesMarker(MarkerText(repos))
	return nil
}
