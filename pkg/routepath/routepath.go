// Package routepath normalizes request paths before they reach the router.
//
// Request paths are cleaned in their escaped form so that an encoded slash
// never becomes a segment boundary. Segments are decoded after a route has
// matched, once it is known whether they were bound by a catch-all.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Path is a cleaned request path.
type Path struct {
	// Path is the escaped, canonical path. It always starts with "/" and
	// never ends with one, except for the root.
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Changed reports whether cleaning modified the input path.
	Changed bool
}

// String returns the path followed by its query, if any.
func (p Path) String() string {
	if p.Query == "" {
		return p.Path
	}
	return p.Path + "?" + p.Query
}

// Path errors.
var (
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in single segment")
)

// Clean normalizes an escaped request path, optionally followed by a query.
//
// Empty and "." segments are dropped, ".." pops the previous segment, and
// a trailing slash is removed. Backslashes, NUL bytes, malformed percent
// escapes and ".." above the root are rejected.
//
//	Clean("/api//users/./42/")  // Path: "/api/users/42", Changed: true
//	Clean("/../etc/passwd")     // ErrPathEscapesRoot
func Clean(input string) (Path, error) {
	raw, query, _ := strings.Cut(input, "?")
	if raw == "" {
		return Path{Path: "/", Query: query, Changed: true}, nil
	}

	if strings.ContainsRune(raw, '\\') {
		return Path{}, ErrBackslashInPath
	}
	if strings.ContainsRune(raw, 0) || strings.Contains(strings.ToUpper(raw), "%00") {
		return Path{}, ErrNullByteInPath
	}
	if strings.ContainsRune(raw, '%') {
		if err := checkEscapes(raw); err != nil {
			return Path{}, err
		}
	}

	segments := make([]string, 0, strings.Count(raw, "/"))
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return Path{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	clean := "/" + strings.Join(segments, "/")
	return Path{
		Path:    clean,
		Query:   query,
		Changed: clean != raw,
	}, nil
}

// checkEscapes reports an error for any "%" not followed by two hex digits.
func checkEscapes(raw string) error {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '%' {
			continue
		}
		if i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Decode unescapes a segment bound by a dynamic route segment. Outside a
// catch-all, a decoded "/" would smuggle a second segment and is rejected.
func Decode(segment string, catchAll bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !catchAll && strings.ContainsRune(decoded, '/') {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// DecodeAll unescapes every segment of a catch-all binding.
func DecodeAll(segments []string) ([]string, error) {
	out := make([]string, len(segments))
	for i, seg := range segments {
		decoded, err := Decode(seg, true)
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}
