package router

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// SegmentKind is the kind of a dynamic path segment.
// The numeric order is the match priority among dynamic siblings.
type SegmentKind int

const (
	// Parametric binds exactly one path segment: [name].
	Parametric SegmentKind = iota + 1

	// CatchAll binds one or more trailing segments: [...name].
	CatchAll

	// OptionalCatchAll binds zero or more trailing segments: [[...name]].
	OptionalCatchAll
)

// String returns a short name for the kind.
func (k SegmentKind) String() string {
	switch k {
	case Parametric:
		return "param"
	case CatchAll:
		return "catch-all"
	case OptionalCatchAll:
		return "optional-catch-all"
	default:
		return "static"
	}
}

// DynamicSegment describes a dynamic child of a tree node.
type DynamicSegment struct {
	// Key is the parameter name the segment binds to.
	Key string

	// Literal is the bracketed segment as it appears in patterns, e.g. "[...slug]".
	Literal string

	// Kind is the segment kind.
	Kind SegmentKind
}

var dynamicSegmentRe = regexp.MustCompile(`^(\[{1,2})(\.\.\.)?([^\[\]]+)(\]{1,2})$`)

// ParseSegment reports whether seg uses the dynamic segment syntax.
// Anything else, including unbalanced brackets, is a static segment.
func ParseSegment(seg string) (DynamicSegment, bool) {
	m := dynamicSegmentRe.FindStringSubmatch(seg)
	if m == nil {
		return DynamicSegment{}, false
	}
	kind := Parametric
	if m[2] != "" {
		kind = CatchAll
		if m[1] == "[[" {
			kind = OptionalCatchAll
		}
	}
	return DynamicSegment{Key: m[3], Literal: seg, Kind: kind}, true
}

// node is a node of the path tree. Each node owns its children.
type node struct {
	// terminal is set when a registered pattern ends at this node.
	terminal bool

	// dynamic lists the dynamic children in match priority order.
	dynamic []DynamicSegment

	// children maps segment literals (static or bracketed) to child nodes.
	children map[string]*node
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// addDynamic registers a dynamic child and restores priority order.
func (n *node) addDynamic(seg DynamicSegment) {
	n.dynamic = append(n.dynamic, seg)
	slices.SortFunc(n.dynamic, func(a, b DynamicSegment) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return strings.Compare(a.Literal, b.Literal)
	})
}

// removeDynamic drops the dynamic child registered under literal.
func (n *node) removeDynamic(literal string) {
	n.dynamic = slices.DeleteFunc(n.dynamic, func(d DynamicSegment) bool {
		return d.Literal == literal
	})
}

// Tree matches URL paths against registered patterns.
// It is not safe for concurrent use; see Sync.
type Tree struct {
	root *node
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{root: newNode()}
}

// Match is the result of a successful tree lookup.
type Match struct {
	// Pattern is the canonical pattern of the matched branch.
	Pattern string

	// Params holds the values bound by dynamic segments.
	Params Params
}

// Add registers a pattern. Empty segments are ignored, so "/a//b/" and "/a/b"
// are the same pattern. Adding an existing pattern is a no-op.
//
//	t.Add("/hello")
//	t.Add("/hello/[name]")
//	t.Add("/hello/[...names]")
//	t.Add("/hello/[[...names]]")
func (t *Tree) Add(pattern string) bool {
	current := t.root
	for _, seg := range splitPath(pattern) {
		child, ok := current.children[seg]
		if !ok {
			child = newNode()
			current.children[seg] = child
			if dyn, ok := ParseSegment(seg); ok {
				current.addDynamic(dyn)
			}
		}
		current = child
	}
	current.terminal = true
	return true
}

// Lookup matches a URL path.
//
// At each node a terminal static child wins, then the first dynamic child in
// priority order, then a non-terminal static child. There is no
// backtracking: once a catch-all binds, nothing deeper is examined, and a
// branch that dead-ends does not fall back to a sibling.
func (t *Tree) Lookup(urlPath string) (Match, bool) {
	segments := splitPath(urlPath)
	current := t.root
	params := make(Params)
	var pattern strings.Builder

	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		key, child := current.static(seg)

		if child != nil && child.terminal {
			current = child
			pattern.WriteString("/" + key)
			continue
		}

		if len(current.dynamic) > 0 {
			dyn := current.dynamic[0]
			dynNode := current.children[dyn.Literal]
			if dynNode == nil {
				return Match{}, false
			}
			current = dynNode
			pattern.WriteString("/" + dyn.Literal)
			if dyn.Kind == Parametric {
				params[dyn.Key] = Single(seg)
				continue
			}
			params[dyn.Key] = Multi(segments[i:])
			break
		}

		if child == nil {
			return Match{}, false
		}
		current = child
		pattern.WriteString("/" + key)
	}

	if current.terminal {
		return Match{Pattern: patternOrRoot(pattern.String()), Params: params}, true
	}

	// A directory matches its optional catch-all with no trailing segments.
	if len(current.dynamic) > 0 && current.dynamic[0].Kind == OptionalCatchAll {
		dyn := current.dynamic[0]
		dynNode := current.children[dyn.Literal]
		if dynNode == nil || !dynNode.terminal {
			return Match{}, false
		}
		params[dyn.Key] = Multi(nil)
		return Match{Pattern: pattern.String() + "/" + dyn.Literal, Params: params}, true
	}

	return Match{}, false
}

// static returns the static child named by an escaped URL segment, trying
// the raw segment first and then its unescaped form. A segment decoding to
// a slash never matches, and neither does the literal of a dynamic child.
func (n *node) static(seg string) (string, *node) {
	if child, ok := n.children[seg]; ok && !n.isDynamic(seg) {
		return seg, child
	}
	if strings.IndexByte(seg, '%') < 0 {
		return seg, nil
	}
	decoded, err := url.PathUnescape(seg)
	if err != nil || strings.IndexByte(decoded, '/') >= 0 || n.isDynamic(decoded) {
		return seg, nil
	}
	return decoded, n.children[decoded]
}

func (n *node) isDynamic(literal string) bool {
	for _, dyn := range n.dynamic {
		if dyn.Literal == literal {
			return true
		}
	}
	return false
}

// Remove unregisters a pattern and reports whether its branch existed.
//
// Without recursive, only the terminal flag is cleared: removing "/hello"
// leaves "/hello/world" reachable. With recursive, the whole subtree is
// detached from its parent.
func (t *Tree) Remove(pattern string, recursive bool) bool {
	var parent *node
	var last string

	current := t.root
	for _, seg := range splitPath(pattern) {
		child, ok := current.children[seg]
		if !ok {
			return false
		}
		parent, last = current, seg
		current = child
	}

	current.terminal = false
	if recursive && parent != nil {
		delete(parent.children, last)
		parent.removeDynamic(last)
	}
	return true
}

// Has reports whether pattern is registered as a terminal branch.
func (t *Tree) Has(pattern string) bool {
	n := t.find(pattern)
	return n != nil && n.terminal
}

// find returns the node at the end of pattern, if any.
func (t *Tree) find(pattern string) *node {
	current := t.root
	for _, seg := range splitPath(pattern) {
		child, ok := current.children[seg]
		if !ok {
			return nil
		}
		current = child
	}
	return current
}

// splitPath splits a path into its non-empty segments.
func splitPath(p string) []string {
	if !strings.Contains(p, "//") {
		p = strings.Trim(p, "/")
		if p == "" {
			return nil
		}
		return strings.Split(p, "/")
	}
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func patternOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
