package pom

import (
	"encoding/xml"
	"strings"

	"github.com/matzehuels/pomstack/pkg/errors"
)

// Parse decodes a descriptor document into a [Project].
//
// Recognized elements follow the Maven POM shape: parent, dependencies,
// dependencyManagement, repositories, modules and profiles. Unknown elements
// are ignored. A descriptor whose project or dependency entries lack an
// artifactId fails validation; that failure is fatal for this descriptor
// only.
func Parse(data []byte) (*Project, error) {
	var doc xmlProject
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnparseable, err, "malformed descriptor document")
	}
	p := doc.toProject()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseSettings decodes a settings document: profile-scoped repository
// declarations plus the activeProfiles list.
func ParseSettings(data []byte) (*Settings, error) {
	var doc xmlSettings
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnparseable, err, "malformed settings document")
	}
	s := &Settings{ActiveProfiles: doc.ActiveProfiles}
	for i := range doc.ActiveProfiles {
		s.ActiveProfiles[i] = trimSpace(doc.ActiveProfiles[i])
	}
	for _, prof := range doc.Profiles {
		s.Profiles = append(s.Profiles, Profile{
			ID:           trimSpace(prof.ID),
			Repositories: toRepositories(prof.Repositories),
		})
	}
	return s, nil
}

type xmlProject struct {
	XMLName              xml.Name        `xml:"project"`
	GroupID              string          `xml:"groupId"`
	ArtifactID           string          `xml:"artifactId"`
	Version              string          `xml:"version"`
	Parent               *xmlParent      `xml:"parent"`
	Dependencies         []xmlDependency `xml:"dependencies>dependency"`
	DependencyManagement []xmlDependency `xml:"dependencyManagement>dependencies>dependency"`
	Repositories         []xmlRepository `xml:"repositories>repository"`
	Modules              []string        `xml:"modules>module"`
	Profiles             []xmlProfile    `xml:"profiles>profile"`
}

type xmlParent struct {
	GroupID      string `xml:"groupId"`
	ArtifactID   string `xml:"artifactId"`
	Version      string `xml:"version"`
	RelativePath string `xml:"relativePath"`
}

type xmlDependency struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version"`
	Classifier string         `xml:"classifier"`
	Type       string         `xml:"type"`
	Scope      string         `xml:"scope"`
	Optional   bool           `xml:"optional"`
	Exclusions []xmlExclusion `xml:"exclusions>exclusion"`
}

type xmlExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

type xmlRepository struct {
	ID   string `xml:"id"`
	Name string `xml:"name"`
	URL  string `xml:"url"`
}

type xmlProfile struct {
	ID           string          `xml:"id"`
	Repositories []xmlRepository `xml:"repositories>repository"`
}

type xmlSettings struct {
	XMLName        xml.Name     `xml:"settings"`
	Profiles       []xmlProfile `xml:"profiles>profile"`
	ActiveProfiles []string     `xml:"activeProfiles>activeProfile"`
}

func (doc *xmlProject) toProject() *Project {
	p := &Project{
		GAV: GAV{
			Group:    trimSpace(doc.GroupID),
			Artifact: trimSpace(doc.ArtifactID),
			Version:  trimSpace(doc.Version),
		},
	}

	if doc.Parent != nil {
		p.Parent = &Parent{
			GAV: GAV{
				Group:    trimSpace(doc.Parent.GroupID),
				Artifact: trimSpace(doc.Parent.ArtifactID),
				Version:  trimSpace(doc.Parent.Version),
			},
			RelativePath: trimSpace(doc.Parent.RelativePath),
		}
		// Group and version inherit from the parent reference when absent.
		if p.GAV.Group == "" {
			p.GAV.Group = p.Parent.GAV.Group
		}
		if p.GAV.Version == "" {
			p.GAV.Version = p.Parent.GAV.Version
		}
	}

	for _, dep := range doc.Dependencies {
		p.Dependencies = append(p.Dependencies, NewDependency(
			depGAV(dep), trimSpace(dep.Classifier), trimSpace(dep.Type),
			trimSpace(dep.Scope), toExclusions(dep.Exclusions), dep.Optional,
		))
	}

	for _, dep := range doc.DependencyManagement {
		p.DependencyManagement = append(p.DependencyManagement, NewManagedDependency(
			depGAV(dep), trimSpace(dep.Scope), trimSpace(dep.Type),
			trimSpace(dep.Classifier), toExclusions(dep.Exclusions),
		))
	}

	p.Repositories = toRepositories(doc.Repositories)
	for _, m := range doc.Modules {
		p.Modules = append(p.Modules, trimSpace(m))
	}
	for _, prof := range doc.Profiles {
		p.Profiles = append(p.Profiles, Profile{
			ID:           trimSpace(prof.ID),
			Repositories: toRepositories(prof.Repositories),
		})
	}
	return p
}

func depGAV(dep xmlDependency) GAV {
	return GAV{
		Group:    trimSpace(dep.GroupID),
		Artifact: trimSpace(dep.ArtifactID),
		Version:  trimSpace(dep.Version),
	}
}

func toExclusions(raw []xmlExclusion) []GroupArtifact {
	if len(raw) == 0 {
		return nil
	}
	exclusions := make([]GroupArtifact, 0, len(raw))
	for _, e := range raw {
		exclusions = append(exclusions, GroupArtifact{
			Group:    trimSpace(e.GroupID),
			Artifact: trimSpace(e.ArtifactID),
		})
	}
	return exclusions
}

func toRepositories(raw []xmlRepository) []Repository {
	if len(raw) == 0 {
		return nil
	}
	repos := make([]Repository, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, Repository{
			ID:   trimSpace(r.ID),
			Name: trimSpace(r.Name),
			URL:  trimSpace(r.URL),
		})
	}
	return repos
}

// trimSpace trims surrounding whitespace from element text. Descriptor
// documents routinely wrap values across lines.
func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
