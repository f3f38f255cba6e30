package pomtree

import (
	"bytes"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <groupId>org.openrewrite.example</groupId>
  <artifactId>my-app</artifactId>
  <version>1</version>
  <dependencies>
    <dependency>
      <groupId>com.google.guava</groupId>
      <artifactId>guava</artifactId>
      <version>29.0-jre</version>
    </dependency>
  </dependencies>
</project>
`

func TestRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	out := doc.Print()
	if !bytes.Equal(out, []byte(sample)) {
		t.Errorf("print is not byte-identical to source:\n%s", out)
	}
}

func TestRoundTripTrailingContent(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"trailing newline", "<?xml version=\"1.0\"?>\n<project>\n  <artifactId>a</artifactId>\n</project>\n"},
		{"trailing comment", "<project><artifactId>a</artifactId></project>\n<!-- generated -->\n"},
		{"no trailing content", "<project><artifactId>a</artifactId></project>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse([]byte(tc.input))
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			out := doc.Print()
			if !bytes.Equal(out, []byte(tc.input)) {
				t.Errorf("print is not byte-identical to source:\ngot:  %q\nwant: %q", out, tc.input)
			}
		})
	}
}

func TestRepositoriesMarkerIdempotent(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	marker := "https://repo.spring.io/milestone\nhttps://repo.maven.apache.org/maven2"
	doc.SetRepositoriesMarker(marker)
	first := doc.Print()

	// The marker sits immediately before the root element.
	if !bytes.Contains(first, []byte(")~~>--><project>")) {
		t.Errorf("marker should abut the root element:\n%s", first)
	}

	// Re-parsing and re-inserting replaces rather than duplicates.
	doc2, err := Parse(first)
	if err != nil {
		t.Fatalf("Parse of annotated document: %v", err)
	}
	if got, ok := doc2.RepositoriesMarker(); !ok || got != marker {
		t.Errorf("marker readback = %q, %v", got, ok)
	}
	doc2.SetRepositoriesMarker(marker)
	second := doc2.Print()

	if !bytes.Equal(first, second) {
		t.Errorf("recomputing the marker should be idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if n := bytes.Count(second, []byte("<!--~~(")); n != 1 {
		t.Errorf("expected exactly 1 marker, found %d", n)
	}
}

func TestElementNavigation(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if doc.Root.Name != "project" {
		t.Errorf("root name = %q", doc.Root.Name)
	}
	if v, ok := doc.Root.ChildText("artifactId"); !ok || v != "my-app" {
		t.Errorf("artifactId = %q, %v", v, ok)
	}
	deps := doc.Root.Element("dependencies")
	if deps == nil {
		t.Fatal("dependencies element missing")
	}
	entries := deps.Elements("dependency")
	if len(entries) != 1 {
		t.Fatalf("want 1 dependency element, got %d", len(entries))
	}
	if v, _ := entries[0].ChildText("version"); v != "29.0-jre" {
		t.Errorf("version = %q", v)
	}
}

func TestSetText(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	version := doc.Root.Element("dependencies").Elements("dependency")[0].Element("version")
	version.SetText("30.0-jre")

	out := doc.Print()
	if !bytes.Contains(out, []byte("<version>30.0-jre</version>")) {
		t.Errorf("edited version missing:\n%s", out)
	}
	// Everything else is untouched.
	if !bytes.Contains(out, []byte("<artifactId>my-app</artifactId>")) {
		t.Errorf("unrelated content changed:\n%s", out)
	}
}

func TestWarnings(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	dep := doc.Root.Element("dependencies").Elements("dependency")[0]
	dep.Warn("com.google.guava:guava:29.0-jre failed. Unable to download POM.")
	dep.Warn("com.google.guava:guava:29.0-jre failed. Unable to download POM.") // dedup

	out := doc.Print()
	want := "<!--~~(com.google.guava:guava:29.0-jre failed. Unable to download POM.)~~>--><dependency>"
	if !bytes.Contains(out, []byte(want)) {
		t.Errorf("warning should abut the dependency element:\n%s", out)
	}
	if n := bytes.Count(out, []byte("<!--~~(")); n != 1 {
		t.Errorf("duplicate warnings should collapse, found %d markers", n)
	}

	// Warnings survive a parse/print cycle.
	doc2, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse of warned document: %v", err)
	}
	dep2 := doc2.Root.Element("dependencies").Elements("dependency")[0]
	if len(dep2.Warnings()) != 1 {
		t.Errorf("warning readback = %v", dep2.Warnings())
	}
	if !bytes.Equal(doc2.Print(), out) {
		t.Error("warned document should round-trip byte-identically")
	}
}

func TestMarkerAttachments(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	type resolved struct{ id string }
	isResolved := func(v any) bool { _, ok := v.(*resolved); return ok }

	m1 := doc.UpsertMarker(isResolved, &resolved{id: "a"})
	m2 := doc.UpsertMarker(isResolved, &resolved{id: "b"})
	if m1.ID != m2.ID {
		t.Error("replacing an attachment should keep its marker id")
	}

	v, ok := doc.FindMarker(isResolved)
	if !ok || v.(*resolved).id != "b" {
		t.Errorf("attachment = %+v, %v", v, ok)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("   ")); err == nil {
		t.Error("expected error for empty document")
	}
	if _, err := Parse([]byte("<a></a><b></b>")); err == nil {
		t.Error("expected error for multiple roots")
	}
}
