package router

import (
	"strings"
)

const (
	// MethodAny is the method key used by handlers that accept every method.
	MethodAny = "ANY"

	// DefaultVersion is the version key used outside @version directories.
	DefaultVersion = "default"
)

// Metadata is the routing information carried by a file path.
type Metadata struct {
	// Pattern is the canonical pattern of the containing directory, with
	// (group) and @version segments removed.
	Pattern string

	// Filename is the base name of the file.
	Filename string

	// Method is the uppercased method from route.<method>.ext, or MethodAny.
	Method string

	// Version is the name of the innermost @version directory, or DefaultVersion.
	Version string

	// Kind is the file kind derived from the filename prefix.
	Kind FileKind
}

// ParseMetadata extracts routing metadata from a file path.
//
//	ParseMetadata("/api/(protected)/hello/@v2/route.put.ts")
//	// Pattern: "/api/hello", Method: "PUT", Version: "v2"
func ParseMetadata(filePath string) Metadata {
	segments := strings.Split(filePath, "/")
	filename := segments[len(segments)-1]
	dirs := segments[:len(segments)-1]

	meta := Metadata{
		Filename: filename,
		Method:   MethodAny,
		Version:  DefaultVersion,
		Kind:     Classify(filename),
	}

	if chunks := strings.Split(filename, "."); len(chunks) > 2 {
		meta.Method = strings.ToUpper(chunks[1])
	}

	kept := make([]string, 0, len(dirs))
	for _, seg := range dirs {
		if seg == "" || isGroupSegment(seg) {
			continue
		}
		if strings.HasPrefix(seg, "@") {
			meta.Version = seg[1:]
			continue
		}
		kept = append(kept, seg)
	}
	meta.Pattern = "/" + strings.Join(kept, "/")

	return meta
}

// toolName returns the name of a tool.<name>.<ext> file.
func toolName(filePath string) (string, bool) {
	chunks := strings.Split(baseName(filePath), ".")
	if len(chunks) != 3 || chunks[0] != KindTool.String() || chunks[1] == "" {
		return "", false
	}
	return chunks[1], true
}

func isGroupSegment(seg string) bool {
	return len(seg) > 1 && strings.HasPrefix(seg, "(") && strings.HasSuffix(seg, ")")
}

// dirName returns the slash-separated directory of p, "/" for top-level files.
func dirName(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

func baseName(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}
