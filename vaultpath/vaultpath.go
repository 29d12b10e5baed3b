// Package vaultpath implements VaultPath, a validated absolute path
// within a vault's directory tree.
package vaultpath

import (
	"strings"

	"golang.org/x/xerrors"
)

// VaultPath is an absolute, validated path within a vault: it always has
// a root component and never contains "." or ".." components.
type VaultPath struct {
	components []string
}

// Root is the path naming the vault's root directory itself.
var Root = VaultPath{components: nil}

// New parses path as a VaultPath. path must start with "/"; repeated or
// trailing slashes are tolerated and collapsed, but "." and ".."
// components are rejected outright rather than resolved, since a vault
// path is never interpreted relative to a working directory.
func New(path string) (VaultPath, error) {
	if !strings.HasPrefix(path, "/") {
		return VaultPath{}, xerrors.Errorf("vaultpath: %q is not an absolute path", path)
	}
	var components []string
	for _, c := range strings.Split(path, "/") {
		if c == "" {
			continue
		}
		if c == "." || c == ".." {
			return VaultPath{}, xerrors.Errorf("vaultpath: %q contains a %q component, which is not allowed", path, c)
		}
		components = append(components, c)
	}
	return VaultPath{components: components}, nil
}

// Components returns the path's components, root excluded. The returned
// slice is a copy.
func (p VaultPath) Components() []string {
	cp := make([]string, len(p.components))
	copy(cp, p.components)
	return cp
}

// IsRoot reports whether p names the vault's root directory.
func (p VaultPath) IsRoot() bool {
	return len(p.components) == 0
}

// FileName returns the final path component and true, or "" and false if
// p is the root.
func (p VaultPath) FileName() (string, bool) {
	if p.IsRoot() {
		return "", false
	}
	return p.components[len(p.components)-1], true
}

// Parent returns the path with its final component removed, and true,
// or the zero VaultPath and false if p is already the root.
func (p VaultPath) Parent() (VaultPath, bool) {
	if p.IsRoot() {
		return VaultPath{}, false
	}
	return VaultPath{components: append([]string(nil), p.components[:len(p.components)-1]...)}, true
}

// Child returns the path formed by appending name to p.
func (p VaultPath) Child(name string) VaultPath {
	return VaultPath{components: append(append([]string(nil), p.components...), name)}
}

// String renders p in "/"-separated form.
func (p VaultPath) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.components, "/")
}
