package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/pom"
)

type mapLoader map[string]*pom.Project

func (l mapLoader) LoadModule(_ context.Context, path string) (*pom.Project, error) {
	if p, ok := l[path]; ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeFileNotFound, "module descriptor %s", path)
}

func TestResolveTree(t *testing.T) {
	root := &pom.Project{
		GAV:     gav("com.acme", "aggregator", "1.0"),
		Modules: []string{"core", "web"},
	}
	core := &pom.Project{
		GAV:          gav("com.acme", "core", "1.0"),
		Dependencies: []pom.Dependency{dep("org.example", "lib-a", "1.0")},
	}
	web := &pom.Project{
		GAV:          gav("com.acme", "web", "1.0"),
		Dependencies: []pom.Dependency{dep("com.acme", "core", "1.0")},
	}

	d := newFakeDownloader(leaf("org.example", "lib-a", "1.0"))
	r := New(d)

	tree, err := r.ResolveTree(context.Background(), root, mapLoader{"core": core, "web": web})
	if err != nil {
		t.Fatalf("ResolveTree: %v", err)
	}
	if tree.Project == nil || tree.Project.Requested.GAV != root.GAV {
		t.Fatal("root project missing from tree")
	}
	if len(tree.Modules) != 2 {
		t.Fatalf("expected 2 submodules, got %d", len(tree.Modules))
	}
	// web depends on its sibling; the sibling registers locally before any
	// resolution, so no remote download happens for it.
	webTree := tree.Modules["web"]
	if webTree == nil || webTree.Project == nil {
		t.Fatal("web submodule missing")
	}
	if got := versionsOf(t, webTree.Project)["com.acme:core"]; got != "1.0" {
		t.Errorf("sibling dependency = %q, want 1.0", got)
	}
}

func TestResolveTreeSiblingIsolation(t *testing.T) {
	root := &pom.Project{
		GAV:     gav("com.acme", "aggregator", "1.0"),
		Modules: []string{"good", "bad", "gone"},
	}
	good := &pom.Project{
		GAV:          gav("com.acme", "good", "1.0"),
		Dependencies: []pom.Dependency{dep("org.example", "lib-a", "1.0")},
	}
	bad := &pom.Project{
		GAV:          gav("com.acme", "bad", "1.0"),
		Dependencies: []pom.Dependency{dep("org.example", "does-not-exist", "1.0")},
	}

	d := newFakeDownloader(leaf("org.example", "lib-a", "1.0"))
	r := New(d)

	// "gone" has no descriptor at all; "bad" fails on a missing dependency.
	tree, err := r.ResolveTree(context.Background(), root, mapLoader{"good": good, "bad": bad})
	if err == nil {
		t.Fatal("expected an aggregate error")
	}
	agg, ok := err.(*Aggregate)
	if !ok {
		t.Fatalf("expected *Aggregate, got %T", err)
	}
	if len(agg.Failures()) == 0 {
		t.Fatal("aggregate has no failures")
	}

	goodTree := tree.Modules["good"]
	if goodTree == nil || goodTree.Project == nil {
		t.Fatal("healthy sibling missing from tree")
	}
	if got := versionsOf(t, goodTree.Project)["org.example:lib-a"]; got != "1.0" {
		t.Errorf("healthy sibling dependency = %q, want 1.0", got)
	}
	// The failing sibling still contributes its partial model.
	badTree := tree.Modules["bad"]
	if badTree == nil || badTree.Project == nil {
		t.Fatal("failing sibling should still carry a partial model")
	}
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "core"), 0o755); err != nil {
		t.Fatal(err)
	}
	descriptor := `<project>
  <groupId>com.acme</groupId>
  <artifactId>core</artifactId>
  <version>1.0</version>
</project>`
	if err := os.WriteFile(filepath.Join(dir, "core", "pom.xml"), []byte(descriptor), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := DirLoader{Root: dir}
	p, err := loader.LoadModule(context.Background(), "core")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if p.GAV != gav("com.acme", "core", "1.0") {
		t.Errorf("loaded coordinate = %v", p.GAV)
	}

	_, err = loader.LoadModule(context.Background(), "missing")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("expected %v, got %v", errors.ErrCodeFileNotFound, err)
	}
}
