package router

import (
	"fmt"
	"sort"
	"strings"
)

// Validator inspects a set of registered files for routes that can never be
// served. The router accepts all of them; the validator only explains the
// outcome.
type Validator struct {
	files  []string
	issues []ValidationIssue
}

// ValidationIssue describes one problem found by the Validator.
type ValidationIssue struct {
	// Type is the issue category.
	Type ValidationIssueType

	// Message is the human-readable description.
	Message string

	// Files are the files involved.
	Files []string

	// Pattern is the canonical pattern concerned.
	Pattern string
}

func (e ValidationIssue) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ValidationIssueType categorizes validation issues.
type ValidationIssueType string

const (
	// IssueDuplicateRoute: several files resolve to the same pattern, method
	// and version; the last one registered wins.
	// Example: /api/(a)/route.get.ts and /api/(b)/route.get.ts
	IssueDuplicateRoute ValidationIssueType = "DUPLICATE_ROUTE"

	// IssueShadowedByCatchAll: a pattern continues after a catch-all
	// segment, which consumes the rest of the path first.
	// Example: /hello/[...names]/world/route.ts
	IssueShadowedByCatchAll ValidationIssueType = "SHADOWED_BY_CATCH_ALL"

	// IssueDynamicConflict: two dynamic directories share a parent; only the
	// first in priority order is ever matched.
	// Example: /users/[id] and /users/[name]
	IssueDynamicConflict ValidationIssueType = "DYNAMIC_CONFLICT"
)

// MultiValidationError wraps multiple validation issues.
type MultiValidationError struct {
	Issues []ValidationIssue
}

func (e *MultiValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "no validation issues"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route validation issues:\n", len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, issue.Error())
	}
	return sb.String()
}

// NewValidator creates a validator for router file paths.
func NewValidator(files []string) *Validator {
	return &Validator{files: files}
}

// Validate returns nil when every resource file is reachable, or a
// *MultiValidationError listing the issues in a stable order.
func (v *Validator) Validate() error {
	v.issues = nil

	resources := make([]Metadata, 0, len(v.files))
	byFile := make(map[string]Metadata, len(v.files))
	for _, f := range v.files {
		meta := ParseMetadata(f)
		if !meta.Kind.IsResource() {
			continue
		}
		resources = append(resources, meta)
		byFile[f] = meta
	}

	v.validateDuplicates(byFile)
	v.validateCatchAllShadowing(byFile)
	v.validateDynamicSiblings(resources)

	if len(v.issues) > 0 {
		return &MultiValidationError{Issues: v.issues}
	}
	return nil
}

// Issues returns the issues found by the last Validate call.
func (v *Validator) Issues() []ValidationIssue {
	return v.issues
}

func (v *Validator) validateDuplicates(byFile map[string]Metadata) {
	type key struct{ pattern, method, version string }
	groups := make(map[key][]string)
	for f, meta := range byFile {
		k := key{meta.Pattern, meta.Method, meta.Version}
		groups[k] = append(groups[k], f)
	}

	keys := make([]key, 0, len(groups))
	for k, files := range groups {
		if len(files) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pattern != keys[j].pattern {
			return keys[i].pattern < keys[j].pattern
		}
		if keys[i].method != keys[j].method {
			return keys[i].method < keys[j].method
		}
		return keys[i].version < keys[j].version
	})

	for _, k := range keys {
		files := groups[k]
		sort.Strings(files)
		v.issues = append(v.issues, ValidationIssue{
			Type:    IssueDuplicateRoute,
			Message: fmt.Sprintf("%d files serve %s %s (version %s)", len(files), k.method, k.pattern, k.version),
			Files:   files,
			Pattern: k.pattern,
		})
	}
}

func (v *Validator) validateCatchAllShadowing(byFile map[string]Metadata) {
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, f := range files {
		meta := byFile[f]
		segments := splitPath(meta.Pattern)
		for i, seg := range segments[:max(len(segments)-1, 0)] {
			dyn, ok := ParseSegment(seg)
			if !ok || dyn.Kind == Parametric {
				continue
			}
			v.issues = append(v.issues, ValidationIssue{
				Type:    IssueShadowedByCatchAll,
				Message: fmt.Sprintf("%s is unreachable: %s consumes the remaining segments", meta.Pattern, strings.Join(segments[:i+1], "/")),
				Files:   []string{f},
				Pattern: meta.Pattern,
			})
			break
		}
	}
}

func (v *Validator) validateDynamicSiblings(resources []Metadata) {
	siblings := make(map[string]map[string]DynamicSegment)
	for _, meta := range resources {
		parent := ""
		for _, seg := range splitPath(meta.Pattern) {
			if dyn, ok := ParseSegment(seg); ok {
				key := patternOrRoot(parent)
				if siblings[key] == nil {
					siblings[key] = make(map[string]DynamicSegment)
				}
				siblings[key][dyn.Literal] = dyn
			}
			parent += "/" + seg
		}
	}

	parents := make([]string, 0, len(siblings))
	for p, dyns := range siblings {
		if len(dyns) > 1 {
			parents = append(parents, p)
		}
	}
	sort.Strings(parents)

	for _, p := range parents {
		n := &node{}
		for _, dyn := range siblings[p] {
			n.addDynamic(dyn)
		}
		literals := make([]string, len(n.dynamic))
		for i, d := range n.dynamic {
			literals[i] = d.Literal
		}
		v.issues = append(v.issues, ValidationIssue{
			Type:    IssueDynamicConflict,
			Message: fmt.Sprintf("%s has dynamic children %s; only %s is matched", p, strings.Join(literals, ", "), literals[0]),
			Pattern: p,
		})
	}
}
