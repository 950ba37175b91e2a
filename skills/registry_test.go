package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestSkill(t *testing.T, dir, name, description, instructions string) string {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := fmt.Sprintf("---\nname: %s\ndescription: %s\n---\n\n%s", name, description, instructions)
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return skillDir
}

func writeTestSkillRequires(t *testing.T, dir, name, requires string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := fmt.Sprintf("---\nname: %s\ndescription: A gated skill\nrequires: %q\n---\n\nBody.", name, requires)
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_Discover(t *testing.T) {
	dir := t.TempDir()
	writeTestSkill(t, dir, "alpha", "Alpha skill", "Alpha instructions")
	writeTestSkill(t, dir, "beta", "Beta skill", "Beta instructions")

	reg := NewRegistry("0.3.0")
	if err := reg.Discover(dir); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(list))
	}
	if list[0].Name != "alpha" {
		t.Errorf("expected first skill 'alpha', got %q", list[0].Name)
	}
	if list[1].Name != "beta" {
		t.Errorf("expected second skill 'beta', got %q", list[1].Name)
	}
	if reg.Count() != 2 {
		t.Errorf("expected Count() 2, got %d", reg.Count())
	}
}

func TestRegistry_Discover_MissingDir(t *testing.T) {
	reg := NewRegistry("0.3.0")
	if err := reg.Discover(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("Discover of a missing dir should not fail, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("expected an empty registry, got %d skills", reg.Count())
	}
}

func TestRegistry_Discover_DuplicateFirstWins(t *testing.T) {
	dir := t.TempDir()
	writeTestSkill(t, filepath.Join(dir, "one"), "dupe", "First copy", "First")
	writeTestSkill(t, filepath.Join(dir, "two"), "dupe", "Second copy", "Second")

	reg := NewRegistry("0.3.0")
	if err := reg.Discover(dir); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if reg.Count() != 1 {
		t.Fatalf("expected 1 skill, got %d", reg.Count())
	}
	meta, ok := reg.Get("dupe")
	if !ok {
		t.Fatal("expected 'dupe' to be registered")
	}
	if meta.Description != "First copy" {
		t.Errorf("expected the first copy to win, got %q", meta.Description)
	}
}

func TestRegistry_Discover_InvalidSkill(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "bad")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("no front matter"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry("0.3.0")
	err := reg.Discover(dir)
	if err == nil || !strings.Contains(err.Error(), "missing front matter") {
		t.Errorf("expected a parse error, got %v", err)
	}
}

func TestRegistry_VersionGate(t *testing.T) {
	dir := t.TempDir()
	writeTestSkillRequires(t, dir, "old-enough", ">=0.1.0")
	writeTestSkillRequires(t, dir, "too-new", ">=9.0.0")

	reg := NewRegistry("0.3.0")
	if err := reg.Discover(dir); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if !reg.Has("old-enough") {
		t.Error("expected 'old-enough' to be registered")
	}
	if reg.Has("too-new") {
		t.Error("expected 'too-new' to be excluded by the version gate")
	}
}

func TestRegistry_VersionGate_DevBuild(t *testing.T) {
	dir := t.TempDir()
	writeTestSkillRequires(t, dir, "gated", ">=9.0.0")

	// A dev build has no parseable version; the gate admits everything.
	reg := NewRegistry("dev")
	if err := reg.Discover(dir); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if !reg.Has("gated") {
		t.Error("expected the gate to be disabled for a dev build")
	}
}

func TestRegistry_Load(t *testing.T) {
	dir := t.TempDir()
	skillDir := writeTestSkill(t, dir, "loader", "Loads fine", "Full instructions here.")

	reg := NewRegistry("0.3.0")
	if err := reg.Discover(dir); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	skill, err := reg.Load("loader")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if skill.Instructions != "Full instructions here." {
		t.Errorf("unexpected instructions %q", skill.Instructions)
	}
	if skill.Path != skillDir {
		t.Errorf("expected path %q, got %q", skillDir, skill.Path)
	}
}

func TestRegistry_Load_NotFound(t *testing.T) {
	reg := NewRegistry("0.3.0")
	_, err := reg.Load("ghost")
	if !errors.Is(err, ErrSkillNotFound) {
		t.Errorf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestRegistry_GetAndHas(t *testing.T) {
	dir := t.TempDir()
	writeTestSkill(t, dir, "present", "Here", "Body")

	reg := NewRegistry("0.3.0")
	if err := reg.Discover(dir); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if !reg.Has("present") {
		t.Error("Has('present') = false, want true")
	}
	if reg.Has("absent") {
		t.Error("Has('absent') = true, want false")
	}

	meta, ok := reg.Get("present")
	if !ok || meta.Name != "present" {
		t.Errorf("Get('present') = %+v, %v", meta, ok)
	}
	if _, ok := reg.Get("absent"); ok {
		t.Error("Get('absent') found an unregistered skill")
	}
}
