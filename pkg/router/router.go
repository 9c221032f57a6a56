package router

import (
	"path"
	"strings"
)

// Result is a resolved request path.
type Result struct {
	// Pattern is the canonical pattern that matched.
	Pattern string `json:"pattern"`

	// Params are the values bound by dynamic segments.
	Params Params `json:"params"`

	// Resource holds the handlers by method and version.
	Resource Resource `json:"resource"`

	// Tools are the tools attached to the matched resource.
	Tools []Tool `json:"tools,omitempty"`

	// Middlewares is the middleware chain, root directory first.
	Middlewares []string `json:"middlewares"`

	// Scoped holds the chains of handlers living below a group or version
	// directory, keyed by handler file. They extend Middlewares with the
	// files of those directories.
	Scoped map[string][]string `json:"scoped,omitempty"`
}

// ChainFor returns the middleware chain that runs before h.
func (r *Result) ChainFor(h Handler) []string {
	if chain, ok := r.Scoped[h.File]; ok {
		return chain
	}
	return r.Middlewares
}

// Route describes one registered resource.
type Route struct {
	Pattern     string   `json:"pattern"`
	Resource    Resource `json:"resource"`
	Tools       []Tool   `json:"tools,omitempty"`
	Middlewares []string `json:"middlewares"`

	Scoped map[string][]string `json:"scoped,omitempty"`
}

// Option configures a Router.
type Option func(*Router)

// WithRoot sets the directory that registered file paths are relative to.
// File references in lookup results are joined to it.
func WithRoot(dir string) Option {
	return func(r *Router) {
		r.root = strings.TrimSuffix(dir, "/")
	}
}

// Router resolves URL paths to resources registered from files.
//
// A Router owns its tree, resource table, middleware index and agent index;
// instances share nothing. It is not safe for concurrent use; wrap it with
// NewSync when mutations and lookups run on different goroutines.
type Router struct {
	root        string
	tree        *Tree
	table       *Table
	middlewares *MiddlewareIndex
	agents      *Orchestrator
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	r.tree = NewTree()
	r.table = NewTable(r.tree, r.root)
	r.middlewares = NewMiddlewareIndex()
	r.agents = NewOrchestrator()
	return r
}

// Add registers a file and returns its kind. Files whose prefix is not part
// of the naming convention are ignored and reported as KindUnknown.
func (r *Router) Add(filePath string) FileKind {
	kind := Classify(filePath)
	switch {
	case kind.IsMiddleware():
		r.middlewares.Add(filePath)
	case kind.IsResource():
		r.table.AddRoute(filePath, kind)
		r.agents.Add(filePath)
	case kind == KindTool:
		if !r.table.AddTool(filePath) {
			return KindUnknown
		}
	}
	return kind
}

// Remove unregisters a file and reports whether anything changed.
func (r *Router) Remove(filePath string) bool {
	kind := Classify(filePath)
	switch {
	case kind.IsMiddleware():
		return r.middlewares.Remove(filePath)
	case kind.IsResource():
		removed := r.table.Remove(filePath)
		if r.agents.Remove(filePath) {
			return true
		}
		return removed
	case kind == KindTool:
		return r.table.RemoveTool(filePath)
	}
	return false
}

// Prune removes the resource at dir and every branch beneath it.
func (r *Router) Prune(dir string) bool {
	return r.table.Prune(dir)
}

// Lookup resolves a URL path. It reports false when no registered resource
// matches; a pattern that only exists as an intermediate directory is not a
// match.
func (r *Router) Lookup(urlPath string) (*Result, bool) {
	m, ok := r.tree.Lookup(urlPath)
	if !ok {
		return nil, false
	}
	resource, ok := r.table.Get(m.Pattern)
	if !ok {
		return nil, false
	}
	return &Result{
		Pattern:     m.Pattern,
		Params:      m.Params,
		Resource:    resource,
		Tools:       r.table.Tools(m.Pattern),
		Middlewares: r.chain(m.Pattern),
		Scoped:      r.scoped(m.Pattern, resource),
	}, true
}

// Tools returns the tools attached to the resource of dir.
func (r *Router) Tools(dir string) []Tool {
	return r.table.Tools(ParseMetadata(r.relative(dir) + "/_").Pattern)
}

// Agents returns the agents an orchestrator in dir can call, keyed by name.
func (r *Router) Agents(dir string) map[string]string {
	agents := r.agents.Get(r.relative(dir))
	if r.root == "" {
		return agents
	}
	out := make(map[string]string, len(agents))
	for name, file := range agents {
		out[name] = path.Join(r.root, file)
	}
	return out
}

// Routes lists every registered resource sorted by pattern.
func (r *Router) Routes() []Route {
	patterns := r.table.Patterns()
	routes := make([]Route, 0, len(patterns))
	for _, p := range patterns {
		resource, _ := r.table.Get(p)
		routes = append(routes, Route{
			Pattern:     p,
			Resource:    resource,
			Tools:       r.table.Tools(p),
			Middlewares: r.chain(p),
			Scoped:      r.scoped(p, resource),
		})
	}
	return routes
}

// chain returns the middleware files applying to a pattern.
func (r *Router) chain(pattern string) []string {
	return r.joinRoot(r.middlewares.Chain(pattern))
}

// scoped returns the chains of handlers whose directory is not the pattern
// itself, i.e. handlers below a (group) or @version directory. Middleware in
// those directories applies only to the handlers beneath them.
func (r *Router) scoped(pattern string, resource Resource) map[string][]string {
	var out map[string][]string
	for _, versions := range resource {
		for _, h := range versions {
			dir := dirName(r.relative(h.File))
			if cleanPattern(dir) == pattern {
				continue
			}
			if _, done := out[h.File]; done {
				continue
			}
			if out == nil {
				out = make(map[string][]string)
			}
			out[h.File] = r.joinRoot(r.middlewares.Chain(dir))
		}
	}
	return out
}

func (r *Router) joinRoot(chain []string) []string {
	if r.root != "" {
		for i, file := range chain {
			chain[i] = path.Join(r.root, file)
		}
	}
	return chain
}

// relative strips the root directory from dir. Paths merely sharing a
// prefix with the root, like "/proj/api2" for root "/proj/api", are kept.
func (r *Router) relative(dir string) string {
	if r.root != "" && (dir == r.root || strings.HasPrefix(dir, r.root+"/")) {
		dir = dir[len(r.root):]
	}
	if dir == "" {
		return "/"
	}
	return dir
}
