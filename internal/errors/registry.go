package errors

import (
	"net/http"
	"sort"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Status   int
}

// Registered codes.
const (
	CodeConfigParse      = "E100"
	CodeConfigNotFound   = "E101"
	CodeConfigPort       = "E102"
	CodeAPIDirMissing    = "E103"
	CodeRouteNotFound    = "E200"
	CodeMethodNotAllowed = "E201"
	CodeVersionMissing   = "E202"
	CodeInvalidPath      = "E203"
	CodeHandlerFailed    = "E204"
	CodeWatchStart       = "E300"
	CodeManifestEncode   = "E400"
	CodeManifestPublish  = "E401"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "filemux.json or filemux.yaml could not be decoded. Check the syntax near the reported line.",
	},
	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No filemux.json, filemux.yaml or filemux.yml was found in this directory or any parent.",
	},
	CodeConfigPort: {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port must be between 1 and 65535.",
	},
	CodeAPIDirMissing: {
		Category: CategoryConfig,
		Message:  "API directory not found",
		Detail:   "The directory holding route files does not exist or is not a directory.",
	},

	// ============================================
	// Gateway Errors (E200-E299)
	// ============================================

	CodeRouteNotFound: {
		Category: CategoryGateway,
		Message:  "Route not found",
		Detail:   "No resource is registered for this path.",
		Status:   http.StatusNotFound,
	},
	CodeMethodNotAllowed: {
		Category: CategoryGateway,
		Message:  "Method not allowed",
		Detail:   "The resource exists but has no handler for this method and no ANY handler.",
		Status:   http.StatusMethodNotAllowed,
	},
	CodeVersionMissing: {
		Category: CategoryGateway,
		Message:  "Version not available",
		Detail:   "The resource has no handler for the requested version.",
		Status:   http.StatusNotAcceptable,
	},
	CodeInvalidPath: {
		Category: CategoryGateway,
		Message:  "Invalid request path",
		Detail:   "The path contains a backslash, a NUL byte, a malformed escape, or climbs above the root.",
		Status:   http.StatusBadRequest,
	},
	CodeHandlerFailed: {
		Category: CategoryGateway,
		Message:  "Handler failed",
		Detail:   "The handler selected for this request returned an error.",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// Watch Errors (E300-E399)
	// ============================================

	CodeWatchStart: {
		Category: CategoryWatch,
		Message:  "Could not watch the API directory",
		Detail:   "The file system watcher failed to start. On Linux, check fs.inotify.max_user_watches.",
	},

	// ============================================
	// Manifest Errors (E400-E499)
	// ============================================

	CodeManifestEncode: {
		Category: CategoryManifest,
		Message:  "Could not encode route manifest",
	},
	CodeManifestPublish: {
		Category: CategoryManifest,
		Message:  "Could not publish route manifest",
		Detail:   "Writing the manifest to its destination failed. Check the output path or bucket permissions.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
