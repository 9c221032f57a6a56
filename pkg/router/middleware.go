package router

import (
	"slices"
	"sort"
)

// MiddlewareIndex groups middleware and authorizer files by the directory
// they live in. A file applies to its directory and every descendant.
type MiddlewareIndex struct {
	buckets map[string][]string
}

// NewMiddlewareIndex creates an empty index.
func NewMiddlewareIndex() *MiddlewareIndex {
	return &MiddlewareIndex{buckets: make(map[string][]string)}
}

// Add registers a middleware file. Files within a directory are kept in
// lexical order, which puts authorizer.* before middleware.*.
func (m *MiddlewareIndex) Add(filePath string) bool {
	dir := dirName(filePath)
	bucket := m.buckets[dir]
	if slices.Contains(bucket, filePath) {
		return false
	}
	next := append(slices.Clip(bucket), filePath)
	sort.Strings(next)
	m.buckets[dir] = next
	return true
}

// Remove unregisters a middleware file.
func (m *MiddlewareIndex) Remove(filePath string) bool {
	dir := dirName(filePath)
	bucket := m.buckets[dir]
	idx := slices.Index(bucket, filePath)
	if idx == -1 {
		return false
	}
	if len(bucket) == 1 {
		delete(m.buckets, dir)
		return true
	}
	m.buckets[dir] = slices.Concat(bucket[:idx:idx], bucket[idx+1:])
	return true
}

// Get returns the middleware chain that applies to filePath.
func (m *MiddlewareIndex) Get(filePath string) []string {
	return m.Chain(dirName(filePath))
}

// Chain returns the middleware registered in dir and its ancestors, from the
// root down to dir.
//
//	Add("/api/authorizer.ts")
//	Add("/api/middleware.ts")
//	Add("/api/hello/middleware.ts")
//	Chain("/api/hello")
//	// ["/api/authorizer.ts", "/api/middleware.ts", "/api/hello/middleware.ts"]
func (m *MiddlewareIndex) Chain(dir string) []string {
	chain := []string{}
	chain = append(chain, m.buckets["/"]...)

	prefix := ""
	for _, seg := range splitPath(dir) {
		prefix += "/" + seg
		chain = append(chain, m.buckets[prefix]...)
	}
	return chain
}
