// Package errors provides coded, actionable errors for filemux.
//
// Every error has a code registered with a category, a short message and
// an explanation. Gateway codes also carry the HTTP status sent to clients.
//
// # Error Codes
//
//   - E1xx config: file parsing, discovery, ports, the API directory
//   - E2xx gateway: 404, 405, 406, 400 and handler failures
//   - E3xx watch: file system watcher failures
//   - E4xx manifest: encoding and publishing the route manifest
//
// # Usage
//
//	err := errors.New(errors.CodeConfigParse).
//	    WithLocation("filemux.yaml", 4, 3).
//	    WithSuggestion("server.port must be a number").
//	    Wrap(yamlErr)
//
//	errors.Fprint(os.Stderr, err)
//	// ERROR E100: Invalid configuration file
//	//
//	//   filemux.yaml:4:3
//	//   ...
package errors
