package resolve

import (
	"reflect"
	"testing"

	"github.com/matzehuels/pomstack/pkg/pom"
)

func urlsOf(repos []pom.Repository) []string {
	out := make([]string, len(repos))
	for i, r := range repos {
		out[i] = r.URL
	}
	return out
}

func TestRepositoriesDefaultOnly(t *testing.T) {
	r := New(newFakeDownloader())
	repos := r.Repositories(&pom.Project{GAV: gav("com.acme", "app", "1.0")})
	if !reflect.DeepEqual(urlsOf(repos), []string{DefaultRepository.URL}) {
		t.Fatalf("repositories = %v, want default only", urlsOf(repos))
	}
}

func TestRepositoriesOrdering(t *testing.T) {
	settings := &pom.Settings{
		Profiles: []pom.Profile{
			{ID: "corp", Repositories: []pom.Repository{{ID: "corp", URL: "https://repo.corp.example/maven2"}}},
			{ID: "inactive", Repositories: []pom.Repository{{ID: "never", URL: "https://never.example/maven2"}}},
		},
		ActiveProfiles: []string{"corp"},
	}
	r := New(newFakeDownloader(), WithSettings(settings), WithActiveProfiles("ci"))

	p := &pom.Project{
		GAV:          gav("com.acme", "app", "1.0"),
		Repositories: []pom.Repository{{ID: "own", URL: "https://own.example/maven2"}},
		Profiles: []pom.Profile{
			{ID: "ci", Repositories: []pom.Repository{{ID: "ci", URL: "https://ci.example/maven2"}}},
			{ID: "off", Repositories: []pom.Repository{{ID: "off", URL: "https://off.example/maven2"}}},
		},
	}

	want := []string{
		"https://own.example/maven2",
		"https://ci.example/maven2",
		"https://repo.corp.example/maven2",
		DefaultRepository.URL,
	}
	if got := urlsOf(r.Repositories(p)); !reflect.DeepEqual(got, want) {
		t.Fatalf("repositories = %v, want %v", got, want)
	}
}

func TestRepositoriesDedupe(t *testing.T) {
	r := New(newFakeDownloader())
	p := &pom.Project{
		GAV: gav("com.acme", "app", "1.0"),
		Repositories: []pom.Repository{
			{ID: "a", URL: "https://repo.example/maven2"},
			{ID: "b", URL: "https://repo.example/maven2/"}, // same modulo trailing slash
			{ID: "central-alias", URL: DefaultRepository.URL},
		},
	}
	got := urlsOf(r.Repositories(p))
	want := []string{"https://repo.example/maven2", DefaultRepository.URL}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("repositories = %v, want %v", got, want)
	}
}

func TestRepositoriesExtra(t *testing.T) {
	r := New(newFakeDownloader(), WithExtraRepositories(
		pom.Repository{ID: "mirror", URL: "https://mirror.example/maven2"},
	))
	p := &pom.Project{
		GAV:          gav("com.acme", "app", "1.0"),
		Repositories: []pom.Repository{{ID: "own", URL: "https://own.example/maven2"}},
	}

	// Configured repositories come after descriptor declarations, before the
	// default.
	want := []string{
		"https://own.example/maven2",
		"https://mirror.example/maven2",
		DefaultRepository.URL,
	}
	if got := urlsOf(r.Repositories(p)); !reflect.DeepEqual(got, want) {
		t.Fatalf("repositories = %v, want %v", got, want)
	}

	// Extra repositories apply even without a descriptor.
	want = []string{"https://mirror.example/maven2", DefaultRepository.URL}
	if got := urlsOf(r.Repositories(nil)); !reflect.DeepEqual(got, want) {
		t.Fatalf("repositories(nil) = %v, want %v", got, want)
	}
}

func TestRepositoriesStable(t *testing.T) {
	r := New(newFakeDownloader(), WithActiveProfiles("ci"))
	p := &pom.Project{
		GAV:          gav("com.acme", "app", "1.0"),
		Repositories: []pom.Repository{{ID: "own", URL: "https://own.example/maven2"}},
		Profiles: []pom.Profile{
			{ID: "ci", Repositories: []pom.Repository{{ID: "ci", URL: "https://ci.example/maven2"}}},
		},
	}
	first := urlsOf(r.Repositories(p))
	for i := 0; i < 5; i++ {
		if got := urlsOf(r.Repositories(p)); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: repositories = %v, want stable %v", i, got, first)
		}
	}
}

func TestMarkerText(t *testing.T) {
	repos := []pom.Repository{
		{URL: "https://first.example/maven2"},
		{URL: "https://second.example/maven2"},
	}
	want := "https://first.example/maven2\nhttps://second.example/maven2"
	if got := MarkerText(repos); got != want {
		t.Fatalf("MarkerText = %q, want %q", got, want)
	}
}
