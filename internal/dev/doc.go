// Package dev runs a filemux project: it loads the API directory into a
// route table, serves it through the gateway and, in watch mode, applies
// file changes while serving.
//
// # Architecture
//
//   - Watcher: applies fsnotify events to the route table
//   - EventHub: broadcasts applied changes over WebSocket
//   - Server: chi router serving the gateway and internal endpoints
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	if _, err := srv.Load(); err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Internal Endpoints
//
//	GET /_filemux/routes    registered routes as JSON
//	GET /_filemux/events    WebSocket stream of route table events (watch mode)
//	GET /metrics            Prometheus metrics (metrics.enabled)
//
// Event messages are JSON-encoded:
//
//	{"type": "add", "path": "/api/users/route.get.ts", "kind": "route"}
//	{"type": "remove", "path": "/api/users/route.get.ts", "kind": "route"}
//	{"type": "prune", "path": "/api/users"}
package dev
