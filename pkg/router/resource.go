package router

import (
	"path"
	"slices"
	"sort"
	"strings"
)

// Handler identifies the file serving one method and version of a resource.
type Handler struct {
	File string   `json:"file"`
	Kind FileKind `json:"kind"`
}

// Tool is a tool file attached to the resource of its directory.
type Tool struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Resource maps an uppercase method (or MethodAny) to versions to handlers.
// Resources handed out by the router are never mutated afterwards.
type Resource map[string]map[string]Handler

// Methods returns the method keys in sorted order.
func (r Resource) Methods() []string {
	methods := make([]string, 0, len(r))
	for m := range r {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// clone copies the method level; version maps are copied on write by callers.
func (r Resource) clone() Resource {
	out := make(Resource, len(r)+1)
	for m, versions := range r {
		out[m] = versions
	}
	return out
}

// Table maps canonical patterns to resources and registers every pattern
// that has at least one handler in the tree.
//
// Updates replace maps and slices instead of mutating them, so values
// returned by Get and Tools stay valid snapshots.
type Table struct {
	tree    *Tree
	root    string
	entries map[string]Resource
	tools   map[string][]Tool
}

// NewTable creates a table that registers patterns in tree. File references
// are stored joined to root.
func NewTable(tree *Tree, root string) *Table {
	return &Table{
		tree:    tree,
		root:    root,
		entries: make(map[string]Resource),
		tools:   make(map[string][]Tool),
	}
}

// AddRoute records filePath as the handler for its pattern, method and version.
func (t *Table) AddRoute(filePath string, kind FileKind) Metadata {
	meta := ParseMetadata(filePath)

	entry := t.entries[meta.Pattern].clone()
	versions := make(map[string]Handler, len(entry[meta.Method])+1)
	for v, h := range entry[meta.Method] {
		versions[v] = h
	}
	versions[meta.Version] = Handler{File: t.ref(filePath), Kind: kind}
	entry[meta.Method] = versions

	t.entries[meta.Pattern] = entry
	t.tree.Add(meta.Pattern)
	return meta
}

// AddTool attaches a tool.<name>.<ext> file to its directory's resource.
// Newer tools come first; names are not deduplicated.
func (t *Table) AddTool(filePath string) bool {
	name, ok := toolName(filePath)
	if !ok {
		return false
	}
	dir := ParseMetadata(filePath).Pattern
	t.tools[dir] = append([]Tool{{Name: name, File: t.ref(filePath)}}, t.tools[dir]...)
	return true
}

// Remove drops the handler registered from filePath. When the resource has
// no method left, it is deleted and its pattern unregistered.
func (t *Table) Remove(filePath string) bool {
	meta := ParseMetadata(filePath)
	entry, ok := t.entries[meta.Pattern]
	if !ok {
		return false
	}
	current, ok := entry[meta.Method][meta.Version]
	if !ok || current.File != t.ref(filePath) {
		return false
	}

	entry = entry.clone()
	if len(entry[meta.Method]) == 1 {
		delete(entry, meta.Method)
	} else {
		versions := make(map[string]Handler, len(entry[meta.Method]))
		for v, h := range entry[meta.Method] {
			if v != meta.Version {
				versions[v] = h
			}
		}
		entry[meta.Method] = versions
	}

	if len(entry) == 0 {
		delete(t.entries, meta.Pattern)
		t.tree.Remove(meta.Pattern, false)
		return true
	}
	t.entries[meta.Pattern] = entry
	return true
}

// RemoveTool detaches the tool registered from filePath.
func (t *Table) RemoveTool(filePath string) bool {
	dir := ParseMetadata(filePath).Pattern
	ref := t.ref(filePath)
	tools := t.tools[dir]
	idx := slices.IndexFunc(tools, func(tool Tool) bool { return tool.File == ref })
	if idx == -1 {
		return false
	}
	if len(tools) == 1 {
		delete(t.tools, dir)
		return true
	}
	t.tools[dir] = slices.Concat(tools[:idx:idx], tools[idx+1:])
	return true
}

// Prune deletes the resource at dir and everything registered beneath it.
func (t *Table) Prune(dir string) bool {
	dir = cleanPattern(dir)
	for pattern := range t.entries {
		if within(pattern, dir) {
			delete(t.entries, pattern)
		}
	}
	for pattern := range t.tools {
		if within(pattern, dir) {
			delete(t.tools, pattern)
		}
	}
	return t.tree.Remove(dir, true)
}

// Get returns the resource registered for a canonical pattern.
func (t *Table) Get(pattern string) (Resource, bool) {
	entry, ok := t.entries[pattern]
	return entry, ok
}

// Tools returns the tools attached to a canonical pattern.
func (t *Table) Tools(pattern string) []Tool {
	return t.tools[pattern]
}

// Patterns returns every pattern with a resource, sorted.
func (t *Table) Patterns() []string {
	patterns := make([]string, 0, len(t.entries))
	for p := range t.entries {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}

func (t *Table) ref(filePath string) string {
	if t.root == "" {
		return filePath
	}
	return path.Join(t.root, filePath)
}

// within reports whether pattern is dir or lies beneath it.
func within(pattern, dir string) bool {
	if dir == "/" {
		return true
	}
	return pattern == dir || strings.HasPrefix(pattern, dir+"/")
}

// cleanPattern normalizes slashes the same way the tree does.
func cleanPattern(p string) string {
	return "/" + strings.Join(splitPath(p), "/")
}
