package resolve

import (
	"slices"
	"strings"

	"github.com/matzehuels/pomstack/pkg/pom"
)

// DefaultRepository is the fallback repository appended to every effective
// repository list.
var DefaultRepository = pom.Repository{
	ID:   "central",
	Name: "Maven Central",
	URL:  "https://repo.maven.apache.org/maven2",
}

// Repositories computes the effective, ordered, deduplicated repository list
// for a descriptor: the descriptor's own declarations first (top-level, then
// active-profile), then settings declarations for active profiles, then any
// configured extra repositories, then the default. Deduplication is by URL,
// first occurrence wins; trailing slashes are ignored when comparing. An
// empty declaration set yields [default].
func (r *Resolver) Repositories(p *pom.Project) []pom.Repository {
	var repos []pom.Repository

	if p != nil {
		repos = append(repos, p.Repositories...)
		for _, prof := range p.Profiles {
			if r.profileActive(prof.ID, nil) {
				repos = append(repos, prof.Repositories...)
			}
		}
	}

	if r.settings != nil {
		for _, prof := range r.settings.Profiles {
			if r.profileActive(prof.ID, r.settings.ActiveProfiles) {
				repos = append(repos, prof.Repositories...)
			}
		}
	}

	repos = append(repos, r.extraRepos...)
	repos = append(repos, r.defaultRepo)
	return dedupeByURL(repos)
}

// MarkerText renders the repository list as the diagnostic marker body:
// repository URLs joined by newline.
func MarkerText(repos []pom.Repository) string {
	urls := make([]string, len(repos))
	for i, repo := range repos {
		urls[i] = repo.URL
	}
	return strings.Join(urls, "\n")
}

// profileActive reports whether a profile id is activated for this run,
// either explicitly or by the settings' own activeProfiles list.
func (r *Resolver) profileActive(id string, settingsActive []string) bool {
	if slices.Contains(r.activeProfiles, id) {
		return true
	}
	return slices.Contains(settingsActive, id)
}

func dedupeByURL(repos []pom.Repository) []pom.Repository {
	seen := make(map[string]bool, len(repos))
	out := make([]pom.Repository, 0, len(repos))
	for _, repo := range repos {
		url := strings.TrimRight(repo.URL, "/")
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, repo)
	}
	return out
}
