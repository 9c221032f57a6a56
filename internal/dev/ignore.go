package dev

import (
	"path"
	"strings"
)

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	".filemux",
	".DS_Store",
	"*.tmp",
	"*.swp",
	"*~",
}

// Ignorer matches router paths against ignore patterns.
//
// A pattern without a slash matches any single segment: "node_modules"
// ignores every node_modules directory, "*.swp" every swap file. A pattern
// with a slash matches consecutive segments ("api/drafts") or, when it
// contains glob characters, the whole path.
type Ignorer struct {
	patterns []string
}

// NewIgnorer creates an ignorer for patterns. Blank patterns are dropped.
func NewIgnorer(patterns []string) *Ignorer {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, strings.ReplaceAll(p, "\\", "/"))
		}
	}
	return &Ignorer{patterns: clean}
}

// Skip adapts Match to router.Scanner.WithSkip.
func (i *Ignorer) Skip(rel string, _ bool) bool {
	return i.Match(rel)
}

// Match reports whether the slash-separated path p is ignored.
func (i *Ignorer) Match(p string) bool {
	if i == nil {
		return false
	}
	segments := splitPathSegments(p)
	if len(segments) == 0 {
		return false
	}
	name := segments[len(segments)-1]
	normalized := strings.Join(segments, "/")

	for _, pattern := range i.patterns {
		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/")
		hasGlob := strings.ContainsAny(pattern, "*?[")

		if hasGlob {
			if hasPathSep {
				if matched, _ := path.Match(strings.Trim(pattern, "/"), normalized); matched {
					return true
				}
			} else if matched, _ := path.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if hasPathSep {
			if pathMatchesSegments(segments, splitPathSegments(pattern)) {
				return true
			}
			continue
		}

		if pathHasSegment(segments, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(segments []string, segment string) bool {
	for _, part := range segments {
		if part == segment {
			return true
		}
	}
	return false
}

func pathMatchesSegments(pathParts, patternParts []string) bool {
	if len(patternParts) == 0 || len(patternParts) > len(pathParts) {
		return false
	}

	for i := 0; i <= len(pathParts)-len(patternParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	return false
}

func splitPathSegments(p string) []string {
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
