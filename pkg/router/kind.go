package router

import (
	"path"
	"strings"
)

// FileKind classifies a file registered with the router by its filename prefix.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindRoute
	KindMock
	KindPrompt
	KindOrchestrator
	KindMiddleware
	KindAuthorizer
	KindTool
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindRoute:        "route",
	KindMock:         "mock",
	KindPrompt:       "prompt",
	KindOrchestrator: "orchestrator",
	KindMiddleware:   "middleware",
	KindAuthorizer:   "authorizer",
	KindTool:         "tool",
}

// String returns the filename prefix for the kind.
func (k FileKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k FileKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FileKind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// IsResource reports whether files of this kind produce an addressable endpoint.
func (k FileKind) IsResource() bool {
	switch k {
	case KindRoute, KindMock, KindPrompt, KindOrchestrator:
		return true
	}
	return false
}

// IsMiddleware reports whether files of this kind are directory-scoped middleware.
func (k FileKind) IsMiddleware() bool {
	return k == KindMiddleware || k == KindAuthorizer
}

// ParseKind maps a filename prefix to its kind.
func ParseKind(prefix string) FileKind {
	for i, name := range kindNames {
		if i != int(KindUnknown) && name == prefix {
			return FileKind(i)
		}
	}
	return KindUnknown
}

// Classify returns the kind of the file at filePath.
//
//	Classify("/api/route.get.ts")     // KindRoute
//	Classify("/api/tool.weather.ts")  // KindTool
//	Classify("/api/README.md")        // KindUnknown
func Classify(filePath string) FileKind {
	return ParseKind(prefix(filePath))
}

// prefix returns the base name up to the first dot.
func prefix(filePath string) string {
	name := path.Base(filePath)
	if idx := strings.IndexByte(name, '.'); idx != -1 {
		return name[:idx]
	}
	return name
}
