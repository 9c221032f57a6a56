package router

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Registrar receives files discovered by a Scanner. Router and Sync
// implement it.
type Registrar interface {
	Add(filePath string) FileKind
}

// Scanner walks directories below a root and reports what it finds as
// root-relative, slash-separated paths such as "/users/[id]/route.get.ts".
type Scanner struct {
	rootDir string
	skip    func(rel string, isDir bool) bool
}

// NewScanner creates a scanner for rootDir.
func NewScanner(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

// WithSkip sets a filter for entries that should not be walked. It receives
// the router path of each entry. A skipped directory is not descended into.
func (s *Scanner) WithSkip(skip func(rel string, isDir bool) bool) *Scanner {
	s.skip = skip
	return s
}

// Walk calls fn for dir and every entry beneath it that is not skipped.
// A directory is reported before its entries are read; dir itself is never
// skipped. dir must lie within the root directory.
func (s *Scanner) Walk(dir string, fn func(osPath, rel string, isDir bool) error) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := s.Rel(p)
		if err != nil {
			return err
		}
		if p != dir && s.skip != nil && s.skip(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(p, rel, d.IsDir())
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}
	return nil
}

// Scan returns every file under dir in lexical order.
//
//	NewScanner("/srv/app").Scan("/srv/app/api")
//	// ["/api/route.get.ts", "/api/users/[id]/route.ts", ...]
func (s *Scanner) Scan(dir string) ([]string, error) {
	var files []string
	err := s.Walk(dir, func(_, rel string, isDir bool) error {
		if !isDir {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ScanInto scans dir and registers every file. It returns the files that
// were recognized by the naming convention.
func (s *Scanner) ScanInto(r Registrar, dir string) ([]string, error) {
	files, err := s.Scan(dir)
	if err != nil {
		return nil, err
	}
	registered := files[:0]
	for _, f := range files {
		if r.Add(f) != KindUnknown {
			registered = append(registered, f)
		}
	}
	return registered, nil
}

// Rel converts an OS path under the root directory to a router path.
func (s *Scanner) Rel(osPath string) (string, error) {
	rel, err := filepath.Rel(s.rootDir, osPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", osPath, s.rootDir)
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + filepath.ToSlash(rel), nil
}
