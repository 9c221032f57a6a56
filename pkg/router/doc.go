// Package router implements file-based, resource-oriented routing for filemux.
//
// The router provides:
//   - A segment tree matching URL paths against static, parametric,
//     catch-all and optional catch-all patterns
//   - A resource table mapping each pattern to handlers by method and version
//   - Directory-scoped middleware chains, inherited from parent directories
//   - Tool and agent indexes for orchestrator resources
//
// # File Structure Convention
//
// Routes are declared by files in the API directory:
//
//	api/
//	├── authorizer.ts          → middleware for /api and below
//	├── route.ts               → ANY /api
//	├── route.get.ts           → GET /api
//	├── @v2/route.get.ts       → GET /api, version "v2"
//	├── (admin)/users/         → /api/users (group folders are not part of the URL)
//	├── tool.weather.ts        → tool "weather" of /api
//	└── users/
//	    ├── middleware.ts      → middleware for /api/users and below
//	    ├── [id]/route.get.ts  → GET /api/users/:id
//	    └── prompt.md          → ANY /api/users, served as a prompt
//
// # Dynamic Segments
//
//	[id]          → binds exactly one segment
//	[...slug]     → binds one or more segments
//	[[...slug]]   → binds zero or more segments
//
// At a given directory, a static segment wins over a dynamic one, and dynamic
// siblings are tried in the order parametric, catch-all, optional catch-all.
// Lookups never backtrack, and a catch-all consumes the rest of the path, so
// routes declared below a catch-all directory are unreachable.
//
// Lookup takes the escaped request path. A static directory whose name needs
// escaping, such as "hello world", still matches "/hello%20world": literal
// children are compared with the raw segment, then with its decoded form.
// Values bound by dynamic segments stay escaped.
//
// # Middleware
//
// A middleware or authorizer file applies to its directory and every
// descendant. Files in a (group) or @version directory apply only to the
// handlers beneath that directory, so they appear in Result.Scoped rather than
// in Result.Middlewares; Result.ChainFor picks the chain for a handler.
//
// # Usage
//
//	r := router.New()
//	r.Add("/api/users/[id]/route.get.ts")
//	r.Add("/api/authorizer.ts")
//
//	result, ok := r.Lookup("/api/users/42")
//	if ok {
//	    // result.Pattern == "/api/users/[id]"
//	    // result.Params.Get("id") == "42"
//	    // result.Resource["GET"]["default"].File == "/api/users/[id]/route.get.ts"
//	    // result.Middlewares == ["/api/authorizer.ts"]
//	}
//
// Router is not safe for concurrent use. Sync wraps it with a read/write lock
// for servers that apply file-system events while serving requests.
package router
