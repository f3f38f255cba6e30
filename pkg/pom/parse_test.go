package pom

import (
	"testing"

	"github.com/matzehuels/pomstack/pkg/errors"
)

func TestParseFullDescriptor(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<project>
  <parent>
    <groupId>org.example</groupId>
    <artifactId>parent</artifactId>
    <version>2</version>
    <relativePath>../pom.xml</relativePath>
  </parent>
  <artifactId>my-app</artifactId>
  <dependencies>
    <dependency>
      <groupId>com.google.guava</groupId>
      <artifactId>guava</artifactId>
      <version>32.1.0-jre</version>
      <classifier>sources</classifier>
      <type>jar</type>
      <scope>test</scope>
      <optional>true</optional>
      <exclusions>
        <exclusion>
          <groupId>com.google.code.findbugs</groupId>
          <artifactId>jsr305</artifactId>
        </exclusion>
      </exclusions>
    </dependency>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>lib</artifactId>
    </dependency>
  </dependencies>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.springframework.boot</groupId>
        <artifactId>spring-boot-dependencies</artifactId>
        <version>3.1.0</version>
        <type>pom</type>
        <scope>import</scope>
      </dependency>
      <dependency>
        <groupId>org.example</groupId>
        <artifactId>lib</artifactId>
        <version>1.5</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <repositories>
    <repository>
      <id>spring-milestone</id>
      <url>https://repo.spring.io/milestone</url>
    </repository>
  </repositories>
  <modules>
    <module>core</module>
    <module>web</module>
  </modules>
  <profiles>
    <profile>
      <id>repo</id>
      <repositories>
        <repository>
          <id>extra</id>
          <url>https://repo.example.com/extra</url>
        </repository>
      </repositories>
    </profile>
  </profiles>
</project>`)

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	// Group and version inherit from the parent reference.
	if p.GAV != (GAV{Group: "org.example", Artifact: "my-app", Version: "2"}) {
		t.Errorf("project GAV = %v", p.GAV)
	}
	if p.Parent == nil || p.Parent.RelativePath != "../pom.xml" {
		t.Fatalf("parent = %+v", p.Parent)
	}

	if len(p.Dependencies) != 2 {
		t.Fatalf("want 2 dependencies, got %d", len(p.Dependencies))
	}
	guava := p.Dependencies[0]
	if guava.Scope != "test" || guava.Classifier != "sources" || !guava.Optional {
		t.Errorf("guava = %+v", guava)
	}
	if len(guava.Exclusions) != 1 || guava.Exclusions[0].Artifact != "jsr305" {
		t.Errorf("guava exclusions = %v", guava.Exclusions)
	}
	lib := p.Dependencies[1]
	if lib.Scope != ScopeCompile {
		t.Errorf("scope should default to compile, got %q", lib.Scope)
	}
	if lib.Exclusions != nil {
		t.Errorf("exclusions should be nil when no exclusion block is present")
	}
	if lib.Optional {
		t.Error("optional should default to false")
	}

	if len(p.DependencyManagement) != 2 {
		t.Fatalf("want 2 managed dependencies, got %d", len(p.DependencyManagement))
	}
	if _, ok := p.DependencyManagement[0].(Imported); !ok {
		t.Errorf("import-scoped entry should be Imported, got %T", p.DependencyManagement[0])
	}
	def, ok := p.DependencyManagement[1].(Defined)
	if !ok {
		t.Fatalf("second entry should be Defined, got %T", p.DependencyManagement[1])
	}
	if def.GAV.Version != "1.5" {
		t.Errorf("managed version = %q", def.GAV.Version)
	}

	if len(p.Repositories) != 1 || p.Repositories[0].URL != "https://repo.spring.io/milestone" {
		t.Errorf("repositories = %v", p.Repositories)
	}
	if len(p.Modules) != 2 || p.Modules[0] != "core" {
		t.Errorf("modules = %v", p.Modules)
	}
	if len(p.Profiles) != 1 || p.Profiles[0].ID != "repo" {
		t.Errorf("profiles = %v", p.Profiles)
	}
}

func TestParseMissingArtifactID(t *testing.T) {
	data := []byte(`<project>
  <groupId>org.example</groupId>
  <artifactId>app</artifactId>
  <version>1</version>
  <dependencies>
    <dependency>
      <groupId>org.example</groupId>
    </dependency>
  </dependencies>
</project>`)

	_, err := Parse(data)
	if err == nil {
		t.Fatal("expected error for dependency without artifactId")
	}
	if !errors.Is(err, errors.ErrCodeMissingField) {
		t.Errorf("error code = %v, want MISSING_FIELD", errors.GetCode(err))
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("<project><artifactId>x</artifactId>"))
	if !errors.Is(err, errors.ErrCodeUnparseable) {
		t.Errorf("error = %v, want UNPARSEABLE_DESCRIPTOR", err)
	}
}

func TestParseSettings(t *testing.T) {
	data := []byte(`<settings xmlns="http://maven.apache.org/SETTINGS/1.0.0">
  <activeProfiles>
    <activeProfile>
      repo
    </activeProfile>
  </activeProfiles>
  <profiles>
    <profile>
      <id>repo</id>
      <repositories>
        <repository>
          <id>spring-milestones</id>
          <name>Spring Milestones</name>
          <url>https://repo.spring.io/milestone</url>
        </repository>
      </repositories>
    </profile>
  </profiles>
</settings>`)

	s, err := ParseSettings(data)
	if err != nil {
		t.Fatalf("ParseSettings error: %v", err)
	}
	if len(s.ActiveProfiles) != 1 || s.ActiveProfiles[0] != "repo" {
		t.Errorf("active profiles = %v (whitespace should be trimmed)", s.ActiveProfiles)
	}
	if len(s.Profiles) != 1 || s.Profiles[0].Repositories[0].ID != "spring-milestones" {
		t.Errorf("profiles = %+v", s.Profiles)
	}
}

func TestExclusionMatching(t *testing.T) {
	tests := []struct {
		pattern         GroupArtifact
		group, artifact string
		want            bool
	}{
		{GroupArtifact{"org.example", "lib"}, "org.example", "lib", true},
		{GroupArtifact{"org.example", "lib"}, "org.example", "other", false},
		{GroupArtifact{"*", "lib"}, "anything", "lib", true},
		{GroupArtifact{"org.example", "*"}, "org.example", "anything", true},
		{GroupArtifact{"*", "*"}, "a", "b", true},
	}
	for _, tt := range tests {
		if got := tt.pattern.Matches(tt.group, tt.artifact); got != tt.want {
			t.Errorf("%v.Matches(%q, %q) = %v, want %v", tt.pattern, tt.group, tt.artifact, got, tt.want)
		}
	}
}

func TestManagedDependencyVariants(t *testing.T) {
	imp := NewManagedDependency(GAV{"g", "bom", "1"}, ScopeImport, "pom", "", nil)
	if _, ok := imp.(Imported); !ok {
		t.Errorf("import scope should yield Imported, got %T", imp)
	}

	def := NewManagedDependency(GAV{"g", "a", "1"}, "", "", "", nil)
	d, ok := def.(Defined)
	if !ok {
		t.Fatalf("non-import scope should yield Defined, got %T", def)
	}
	if d.Scope != ScopeCompile {
		t.Errorf("managed scope should default to compile, got %q", d.Scope)
	}
}
