// Package testutil holds the import-boundary guards shared by package tests.
// The contract packages under pkg/ must stay importable by every layer, so
// their tests assert that no engine internals leak into them.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// DomainImportForbidden reports whether path refers to a pkg/domain package.
func DomainImportForbidden(path string) bool {
	return strings.HasSuffix(path, "/pkg/domain") || strings.Contains(path, "/pkg/domain@")
}

// InternalImportForbidden reports whether path crosses an internal boundary.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// AssertNoTransitiveDependency resolves the dependency closure of pattern
// with go list -deps and fails when any path matches forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	out, err := exec.Command("go", "list", "-deps", pattern).CombinedOutput()
	if err != nil {
		t.Fatalf("go list -deps %s: %v\n%s", pattern, err, out)
	}
	var bad []string
	for _, line := range strings.Split(string(out), "\n") {
		dep := strings.TrimSpace(line)
		if dep != "" && forbidden(dep) {
			bad = append(bad, dep)
		}
	}
	if len(bad) > 0 {
		t.Fatalf("dependency boundary broken (%s):\n%s", reason, strings.Join(bad, "\n"))
	}
}

// AssertNoDirectImports parses the non-test files of dir and fails when any
// import path matches forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	fset := token.NewFileSet()
	var bad []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range file.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if forbidden(path) {
				bad = append(bad, name+" imports "+path)
			}
		}
	}
	if len(bad) > 0 {
		t.Fatalf("import boundary broken (%s):\n%s", reason, strings.Join(bad, "\n"))
	}
}
