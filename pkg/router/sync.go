package router

import "sync"

// Sync is a Router guarded by a read/write lock. Mutations are applied as a
// single step relative to lookups, so a lookup never sees a partially linked
// branch. Values returned by lookups are snapshots and stay valid after
// later mutations.
type Sync struct {
	mu sync.RWMutex
	r  *Router
}

// NewSync creates a lock-guarded router.
func NewSync(opts ...Option) *Sync {
	return &Sync{r: New(opts...)}
}

// Add registers a file. See Router.Add.
func (s *Sync) Add(filePath string) FileKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Add(filePath)
}

// Remove unregisters a file. See Router.Remove.
func (s *Sync) Remove(filePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Remove(filePath)
}

// Prune removes a directory branch. See Router.Prune.
func (s *Sync) Prune(dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Prune(dir)
}

// Lookup resolves a URL path. See Router.Lookup.
func (s *Sync) Lookup(urlPath string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Lookup(urlPath)
}

// Tools returns the tools of a directory. See Router.Tools.
func (s *Sync) Tools(dir string) []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Tools(dir)
}

// Agents returns the agents of a directory. See Router.Agents.
func (s *Sync) Agents(dir string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Agents(dir)
}

// Routes lists every registered resource. See Router.Routes.
func (s *Sync) Routes() []Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Routes()
}

// Update runs fn with exclusive access to the router, applying a batch of
// mutations atomically. Lookups wait until fn returns.
func (s *Sync) Update(fn func(r *Router)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.r)
}
