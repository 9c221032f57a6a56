// Package manifest builds a JSON snapshot of a route table and publishes it
// to a file or an S3 bucket.
//
// A manifest lets deployments ship the resolved routes without walking the
// API directory at startup:
//
//	m := manifest.Build(routes)
//	data, err := m.Marshal()
//	if err != nil {
//	    return err
//	}
//	return manifest.NewFilePublisher("filemux.manifest.json").Publish(ctx, data)
package manifest

import (
	"encoding/json"
	"path"
	"sort"
	"time"

	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/router"
)

// SchemaVersion is the manifest format version.
const SchemaVersion = 1

// Source provides the routes of a manifest. *router.Router and *router.Sync
// implement it.
type Source interface {
	Routes() []router.Route
	Agents(dir string) map[string]string
}

// Manifest is a snapshot of every registered route.
type Manifest struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Routes      []Route   `json:"routes"`
}

// Route is a registered resource with the agents its orchestrators can call.
type Route struct {
	router.Route
	Agents map[string]string `json:"agents,omitempty"`
}

// Build snapshots src.
func Build(src Source) *Manifest {
	routes := src.Routes()
	m := &Manifest{
		Version:     SchemaVersion,
		GeneratedAt: time.Now().UTC(),
		Routes:      make([]Route, 0, len(routes)),
	}
	for _, r := range routes {
		m.Routes = append(m.Routes, Route{Route: r, Agents: agentsOf(src, r.Resource)})
	}
	return m
}

// agentsOf collects the agents of every orchestrator handler in resource.
func agentsOf(src Source, resource router.Resource) map[string]string {
	var agents map[string]string
	for _, method := range resource.Methods() {
		versions := resource[method]
		keys := make([]string, 0, len(versions))
		for v := range versions {
			keys = append(keys, v)
		}
		sort.Strings(keys)
		for _, v := range keys {
			h := versions[v]
			if h.Kind != router.KindOrchestrator {
				continue
			}
			for name, file := range src.Agents(path.Dir(h.File)) {
				if agents == nil {
					agents = make(map[string]string)
				}
				if _, ok := agents[name]; !ok {
					agents[name] = file
				}
			}
		}
	}
	return agents
}

// Marshal encodes the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.New(errors.CodeManifestEncode).Wrap(err)
	}
	return append(data, '\n'), nil
}

// Parse decodes a manifest produced by Marshal.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.CodeManifestEncode).WithDetail("manifest is not valid JSON").Wrap(err)
	}
	if m.Version != SchemaVersion {
		return nil, errors.New(errors.CodeManifestEncode).WithDetailf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// Lookup returns the route registered for a canonical pattern.
func (m *Manifest) Lookup(pattern string) (Route, bool) {
	i := sort.Search(len(m.Routes), func(i int) bool { return m.Routes[i].Pattern >= pattern })
	if i < len(m.Routes) && m.Routes[i].Pattern == pattern {
		return m.Routes[i], true
	}
	return Route{}, false
}
