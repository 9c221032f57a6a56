package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/routepath"
	"github.com/filemux/filemux/pkg/router"
)

// Default header names.
const (
	DefaultVersionHeader   = "X-Api-Version"
	DefaultRequestIDHeader = "X-Request-Id"
)

// maxRequestIDLen bounds client supplied request IDs.
const maxRequestIDLen = 128

// Lookuper resolves URL paths. *router.Router and *router.Sync implement it.
type Lookuper interface {
	Lookup(urlPath string) (*router.Result, bool)
	Agents(dir string) map[string]string
}

// Options configures a Gateway.
type Options struct {
	// VersionHeader names the request header that selects a version.
	// Default: "X-Api-Version"
	VersionHeader string

	// RequestIDHeader names the header carrying the request ID. An incoming
	// value is reused; otherwise a UUID is generated.
	// Default: "X-Request-Id"
	RequestIDHeader string

	// RedirectCanonical answers non-canonical paths with a 308 redirect to
	// the cleaned path instead of serving them directly.
	RedirectCanonical bool

	// Invoker runs resolved requests. Default: Describe.
	Invoker Invoker

	// Logger receives dispatch failures. Default: slog.Default().
	Logger *slog.Logger
}

// Gateway is an http.Handler that resolves requests against a route tree
// and hands them to an Invoker.
type Gateway struct {
	routes  Lookuper
	options Options
	logger  *slog.Logger
}

// New creates a gateway serving routes.
func New(routes Lookuper, opts Options) *Gateway {
	if opts.VersionHeader == "" {
		opts.VersionHeader = DefaultVersionHeader
	}
	if opts.RequestIDHeader == "" {
		opts.RequestIDHeader = DefaultRequestIDHeader
	}
	if opts.Invoker == nil {
		opts.Invoker = Describe
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		routes:  routes,
		options: opts,
		logger:  logger.With("component", "gateway"),
	}
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := g.requestID(r)
	w.Header().Set(g.options.RequestIDHeader, requestID)

	input := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		input += "?" + r.URL.RawQuery
	}
	p, err := routepath.Clean(input)
	if err != nil {
		g.fail(w, r, requestID, errors.New(errors.CodeInvalidPath).WithDetail(err.Error()))
		return
	}
	if p.Changed && g.options.RedirectCanonical {
		// 308 keeps the method and body.
		http.Redirect(w, r, p.String(), http.StatusPermanentRedirect)
		return
	}

	result, ok := g.routes.Lookup(p.Path)
	if !ok {
		g.fail(w, r, requestID, errors.New(errors.CodeRouteNotFound).WithDetailf("No route matches %s", p.Path))
		return
	}

	params, err := decodeParams(result.Params)
	if err != nil {
		g.fail(w, r, requestID, errors.New(errors.CodeInvalidPath).WithDetail(err.Error()))
		return
	}

	if info := InfoFrom(r.Context()); info != nil {
		info.Pattern = result.Pattern
	}

	method, versions, ok := selectMethod(result.Resource, r.Method)
	if !ok {
		allow := allowed(result.Resource)
		w.Header().Set("Allow", allow)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		g.fail(w, r, requestID, errors.New(errors.CodeMethodNotAllowed).
			WithDetailf("%s does not accept %s; allowed: %s", result.Pattern, r.Method, allow))
		return
	}

	version := strings.TrimSpace(r.Header.Get(g.options.VersionHeader))
	if version == "" {
		version = router.DefaultVersion
	}
	handler, ok := versions[version]
	if !ok {
		g.fail(w, r, requestID, errors.New(errors.CodeVersionMissing).
			WithDetailf("%s %s has no version %q; available: %s", method, result.Pattern, version, strings.Join(sortedKeys(versions), ", ")))
		return
	}

	if info := InfoFrom(r.Context()); info != nil {
		info.Method = method
		info.Version = version
		info.Kind = handler.Kind
	}

	d := &Dispatch{
		RequestID:   requestID,
		Pattern:     result.Pattern,
		Params:      params,
		Method:      method,
		Version:     version,
		Handler:     handler,
		Middlewares: result.ChainFor(handler),
		Tools:       result.Tools,
	}
	if handler.Kind == router.KindOrchestrator {
		d.Agents = g.routes.Agents(path.Dir(handler.File))
	}

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ctx := context.WithValue(r.Context(), dispatchKey{}, d)
	if err := g.options.Invoker.Invoke(ww, r.WithContext(ctx), d); err != nil {
		g.logger.Error("handler failed",
			"request_id", requestID,
			"pattern", d.Pattern,
			"file", handler.File,
			"error", err)
		if ww.Status() == 0 {
			g.fail(w, r, requestID, errors.FromError(err, errors.CodeHandlerFailed))
		}
		return
	}
	g.logger.Debug("dispatched",
		"request_id", requestID,
		"method", r.Method,
		"pattern", d.Pattern,
		"version", version,
		"file", handler.File)
}

func (g *Gateway) requestID(r *http.Request) string {
	if id := r.Header.Get(g.options.RequestIDHeader); id != "" && len(id) <= maxRequestIDLen {
		return id
	}
	return uuid.NewString()
}

// fail writes e as a JSON error body with its HTTP status.
func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, requestID string, e *errors.Error) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	if e.HTTPStatus() >= 500 {
		e = errors.New(errors.CodeHandlerFailed)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPStatus())
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(struct {
		Error errors.Body `json:"error"`
	}{e.Body(requestID)})
}

// selectMethod picks the resource entry for a request method. HEAD falls
// back to GET, and every method falls back to ANY.
func selectMethod(resource router.Resource, method string) (string, map[string]router.Handler, bool) {
	if versions, ok := resource[method]; ok {
		return method, versions, true
	}
	if method == http.MethodHead {
		if versions, ok := resource[http.MethodGet]; ok {
			return http.MethodGet, versions, true
		}
	}
	if versions, ok := resource[router.MethodAny]; ok {
		return router.MethodAny, versions, true
	}
	return "", nil, false
}

// allowed renders the Allow header for a resource without an ANY handler.
func allowed(resource router.Resource) string {
	methods := resource.Methods()
	seen := make(map[string]bool, len(methods)+2)
	for _, m := range methods {
		seen[m] = true
	}
	if seen[http.MethodGet] && !seen[http.MethodHead] {
		methods = append(methods, http.MethodHead)
	}
	if !seen[http.MethodOptions] {
		methods = append(methods, http.MethodOptions)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// decodeParams unescapes bound values. Only catch-all values may contain a
// decoded slash.
func decodeParams(params router.Params) (router.Params, error) {
	out := make(router.Params, len(params))
	for name, p := range params {
		if p.IsMulti() {
			values, err := routepath.DecodeAll(p.Values())
			if err != nil {
				return nil, err
			}
			out[name] = router.Multi(values)
			continue
		}
		value, err := routepath.Decode(p.Value(), false)
		if err != nil {
			return nil, err
		}
		out[name] = router.Single(value)
	}
	return out, nil
}

func sortedKeys(m map[string]router.Handler) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
