package vaultpath

import "testing"

func TestNewRejectsNonAbsolute(t *testing.T) {
	if _, err := New("a/b"); err == nil {
		t.Fatalf("expected error for relative path")
	}
}

func TestNewRejectsDotComponents(t *testing.T) {
	for _, p := range []string{"/a/./b", "/a/../b", "/.."} {
		if _, err := New(p); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
}

func TestNewCollapsesSlashes(t *testing.T) {
	p, err := New("//a//b/")
	if err != nil {
		t.Fatal(err)
	}
	got := p.Components()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected components: %v", got)
	}
}

func TestRootIsRoot(t *testing.T) {
	p, err := New("/")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsRoot() {
		t.Fatalf("expected / to be root")
	}
	if _, ok := p.FileName(); ok {
		t.Fatalf("root should have no file name")
	}
	if _, ok := p.Parent(); ok {
		t.Fatalf("root should have no parent")
	}
}

func TestParentAndFileName(t *testing.T) {
	p, err := New("/a/b/c")
	if err != nil {
		t.Fatal(err)
	}
	name, ok := p.FileName()
	if !ok || name != "c" {
		t.Fatalf("unexpected file name: %q ok=%v", name, ok)
	}
	parent, ok := p.Parent()
	if !ok || parent.String() != "/a/b" {
		t.Fatalf("unexpected parent: %q ok=%v", parent.String(), ok)
	}
}

func TestChild(t *testing.T) {
	p, err := New("/a")
	if err != nil {
		t.Fatal(err)
	}
	c := p.Child("b")
	if c.String() != "/a/b" {
		t.Fatalf("unexpected child path: %q", c.String())
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"/", "/a", "/a/b/c"} {
		p, err := New(s)
		if err != nil {
			t.Fatal(err)
		}
		if p.String() != s {
			t.Fatalf("String() = %q, want %q", p.String(), s)
		}
	}
}
