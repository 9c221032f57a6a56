package router

import (
	"maps"
	"slices"
)

// Orchestrator tracks agents: every resource file makes its directory an
// agent callable by an orchestrator living one level up.
//
//	/api/orchestrator.md
//	/api/stocks/prompt.md    → agent "stocks" of /api
//	/api/[ticker]/route.ts   → agent "ticker" of /api
//
// An agent stays registered while any of its directory's resource files is.
type Orchestrator struct {
	agents map[string]map[string]string
	files  map[agentKey][]string
}

type agentKey struct {
	parent, name string
}

// NewOrchestrator creates an empty agent index.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		agents: make(map[string]map[string]string),
		files:  make(map[agentKey][]string),
	}
}

// Add registers the directory of filePath as an agent of its parent and
// reports whether filePath was not yet tracked. The agent keeps pointing at
// the earliest file still registered.
func (o *Orchestrator) Add(filePath string) bool {
	parent, name, ok := agentOf(filePath)
	if !ok {
		return false
	}
	key := agentKey{parent, name}
	if slices.Contains(o.files[key], filePath) {
		return false
	}
	o.files[key] = append(o.files[key], filePath)
	if _, exists := o.agents[parent][name]; !exists {
		o.set(parent, name, filePath)
	}
	return true
}

// Remove drops filePath from its agent. The agent moves to another file of
// the same directory and disappears only when none is left.
func (o *Orchestrator) Remove(filePath string) bool {
	parent, name, ok := agentOf(filePath)
	if !ok {
		return false
	}
	key := agentKey{parent, name}
	i := slices.Index(o.files[key], filePath)
	if i < 0 {
		return false
	}
	rest := slices.Delete(slices.Clone(o.files[key]), i, i+1)
	if len(rest) == 0 {
		delete(o.files, key)
		o.unset(parent, name)
		return true
	}
	o.files[key] = rest
	if o.agents[parent][name] == filePath {
		o.set(parent, name, rest[0])
	}
	return true
}

// Get returns the agents of dir keyed by name.
func (o *Orchestrator) Get(dir string) map[string]string {
	agents := o.agents[cleanPattern(dir)]
	if agents == nil {
		return map[string]string{}
	}
	return agents
}

// set and unset replace the parent's map so earlier Get results stay intact.
func (o *Orchestrator) set(parent, name, filePath string) {
	next := maps.Clone(o.agents[parent])
	if next == nil {
		next = make(map[string]string, 1)
	}
	next[name] = filePath
	o.agents[parent] = next
}

func (o *Orchestrator) unset(parent, name string) {
	if len(o.agents[parent]) == 1 {
		delete(o.agents, parent)
		return
	}
	next := maps.Clone(o.agents[parent])
	delete(next, name)
	o.agents[parent] = next
}

// agentOf returns the parent directory and agent name for a resource file.
// Bracketed directory names yield their parameter key.
func agentOf(filePath string) (parent, name string, ok bool) {
	agentDir := dirName(filePath)
	if agentDir == "/" {
		return "", "", false
	}
	name = baseName(agentDir)
	if dyn, isDyn := ParseSegment(name); isDyn {
		name = dyn.Key
	}
	return dirName(agentDir), name, true
}
