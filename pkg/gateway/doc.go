// Package gateway serves HTTP requests from a file-system route tree.
//
// For each request the gateway:
//
//  1. cleans the escaped URL path, answering 400 for malformed paths and
//     optionally redirecting (308) non-canonical ones
//  2. looks the path up, answering 404 when nothing matches
//  3. selects the handler by method (HEAD falls back to GET, every method
//     falls back to ANY), answering 405 with an Allow header otherwise
//  4. selects the version from a request header, "default" when absent,
//     answering 406 when the resource has no such version
//  5. passes a Dispatch to the configured Invoker
//
// Errors are written as JSON:
//
//	{"error": {"code": "E200", "message": "Route not found", "requestId": "..."}}
//
// # Usage
//
//	routes := router.NewSync(router.WithRoot(projectDir))
//	gw := gateway.New(routes, gateway.Options{
//	    RedirectCanonical: true,
//	    Invoker:           gateway.Describe,
//	})
//	http.ListenAndServe(":3000", gw)
package gateway
