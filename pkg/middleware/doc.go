// Package middleware provides observability middleware for filemux gateways.
//
// Both middlewares wrap a gateway.Gateway and read the route it resolved,
// so metrics and spans are keyed by route pattern ("/users/[id]") rather
// than by raw request path.
//
// # Prometheus Metrics
//
//	reg := prometheus.NewRegistry()
//	h := middleware.Prometheus(middleware.WithRegistry(reg))(gw)
//
// Metrics collected:
//   - filemux_http_requests_total: requests by pattern, method and status
//   - filemux_http_request_duration_seconds: request duration histogram
//   - filemux_http_response_size_bytes: response size histogram
//   - filemux_http_requests_in_flight: requests being served
//
// Requests that match no route are labelled "unmatched".
//
// # OpenTelemetry Middleware
//
//	h := middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-api"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)(gw)
//
// Spans are named "filemux <METHOD> <pattern>" and carry the attributes
// filemux.pattern, filemux.version and filemux.kind.
package middleware
