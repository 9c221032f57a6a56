package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/filemux/filemux/pkg/router"
)

// Dispatch is a request resolved to a single handler file.
type Dispatch struct {
	// RequestID identifies the request in logs and error bodies.
	RequestID string `json:"requestId"`

	// Pattern is the canonical route pattern that matched.
	Pattern string `json:"pattern"`

	// Params are the decoded dynamic segment values.
	Params router.Params `json:"params"`

	// Method is the resource key that was selected, either the request
	// method or router.MethodAny.
	Method string `json:"method"`

	// Version is the selected version key.
	Version string `json:"version"`

	// Handler is the file that serves the request.
	Handler router.Handler `json:"handler"`

	// Middlewares run before the handler, root directory first.
	Middlewares []string `json:"middlewares"`

	// Tools are the tools attached to the resource.
	Tools []router.Tool `json:"tools,omitempty"`

	// Agents are the agents an orchestrator may call. Only set for
	// orchestrator handlers.
	Agents map[string]string `json:"agents,omitempty"`
}

// Invoker runs a resolved request. Errors returned before anything has been
// written to w are answered with a 500 error body.
type Invoker interface {
	Invoke(w http.ResponseWriter, r *http.Request, d *Dispatch) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(w http.ResponseWriter, r *http.Request, d *Dispatch) error

// Invoke calls f(w, r, d).
func (f InvokerFunc) Invoke(w http.ResponseWriter, r *http.Request, d *Dispatch) error {
	return f(w, r, d)
}

// Describe answers every request with its dispatch encoded as JSON. It is
// the default invoker and lets a route tree be explored without running any
// handler.
var Describe Invoker = InvokerFunc(func(w http.ResponseWriter, r *http.Request, d *Dispatch) error {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
})

type dispatchKey struct{}

// FromContext returns the dispatch stored in ctx by the gateway.
func FromContext(ctx context.Context) (*Dispatch, bool) {
	d, ok := ctx.Value(dispatchKey{}).(*Dispatch)
	return d, ok
}

// Info carries the routing outcome of a request back to middleware that
// wraps the gateway.
type Info struct {
	Pattern string
	Method  string
	Version string
	Kind    router.FileKind
}

type infoKey struct{}

// Annotate returns a copy of r whose context holds an empty Info. The
// gateway fills it in once the request is resolved, so it can be read after
// the wrapped handler returns.
func Annotate(r *http.Request) (*http.Request, *Info) {
	if info := InfoFrom(r.Context()); info != nil {
		return r, info
	}
	info := &Info{}
	return r.WithContext(context.WithValue(r.Context(), infoKey{}, info)), info
}

// InfoFrom returns the Info attached by Annotate, or nil.
func InfoFrom(ctx context.Context) *Info {
	info, _ := ctx.Value(infoKey{}).(*Info)
	return info
}
