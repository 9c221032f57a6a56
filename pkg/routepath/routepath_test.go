package routepath

import (
	"errors"
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantPath    string
		wantQuery   string
		wantChanged bool
	}{
		{name: "root", input: "/", wantPath: "/"},
		{name: "empty", input: "", wantPath: "/", wantChanged: true},
		{name: "simple", input: "/api", wantPath: "/api"},
		{name: "nested", input: "/api/users/42", wantPath: "/api/users/42"},
		{name: "trailing slash", input: "/api/", wantPath: "/api", wantChanged: true},
		{name: "double slash", input: "/api//users", wantPath: "/api/users", wantChanged: true},
		{name: "dirty", input: "///france//paris///", wantPath: "/france/paris", wantChanged: true},
		{name: "single dot", input: "/api/./users", wantPath: "/api/users", wantChanged: true},
		{name: "double dot", input: "/api/users/../tools", wantPath: "/api/tools", wantChanged: true},
		{name: "double dot to root", input: "/api/..", wantPath: "/", wantChanged: true},
		{name: "missing leading slash", input: "api", wantPath: "/api", wantChanged: true},
		{name: "query kept", input: "/api/?q=a//b", wantPath: "/api", wantQuery: "q=a//b", wantChanged: true},
		{name: "escapes kept", input: "/files/a%2Fb", wantPath: "/files/a%2Fb"},
		{name: "brackets are literal", input: "/users/[id]", wantPath: "/users/[id]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Clean(tc.input)
			if err != nil {
				t.Fatalf("Clean(%q) unexpected error = %v", tc.input, err)
			}
			if got.Path != tc.wantPath {
				t.Errorf("Clean(%q).Path = %q, want %q", tc.input, got.Path, tc.wantPath)
			}
			if got.Query != tc.wantQuery {
				t.Errorf("Clean(%q).Query = %q, want %q", tc.input, got.Query, tc.wantQuery)
			}
			if got.Changed != tc.wantChanged {
				t.Errorf("Clean(%q).Changed = %v, want %v", tc.input, got.Changed, tc.wantChanged)
			}
		})
	}
}

func TestCleanErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"backslash", "/path\\with\\backslash", ErrBackslashInPath},
		{"null byte literal", "/path/\x00/null", ErrNullByteInPath},
		{"null byte encoded", "/path/%00/null", ErrNullByteInPath},
		{"incomplete escape", "/path/%2", ErrInvalidPercentEscape},
		{"bad escape", "/path/%GG", ErrInvalidPercentEscape},
		{"trailing percent", "/path/100%", ErrInvalidPercentEscape},
		{"escape root", "/../secret", ErrPathEscapesRoot},
		{"deep escape root", "/a/../../secret", ErrPathEscapesRoot},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Clean(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Clean(%q) error = %v, want %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestPathString(t *testing.T) {
	p, err := Clean("/a//b/?x=1")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.String(); got != "/a/b?x=1" {
		t.Errorf("String() = %q, want /a/b?x=1", got)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		segment  string
		catchAll bool
		want     string
		wantErr  error
	}{
		{name: "plain", segment: "hello", want: "hello"},
		{name: "encoded space", segment: "hello%20world", want: "hello world"},
		{name: "unicode", segment: "caf%C3%A9", want: "café"},
		{name: "encoded slash in param", segment: "a%2Fb", wantErr: ErrEncodedSlashInSegment},
		{name: "encoded slash in catch-all", segment: "a%2Fb", catchAll: true, want: "a/b"},
		{name: "invalid escape", segment: "hello%ZZ", wantErr: ErrInvalidPercentEscape},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.segment, tc.catchAll)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("Decode(%q, %v) error = %v, want %v", tc.segment, tc.catchAll, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q, %v) unexpected error = %v", tc.segment, tc.catchAll, err)
			}
			if got != tc.want {
				t.Errorf("Decode(%q, %v) = %q, want %q", tc.segment, tc.catchAll, got, tc.want)
			}
		})
	}
}

func TestDecodeAll(t *testing.T) {
	got, err := DecodeAll([]string{"docs", "getting%20started", "a%2Fb"})
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	want := []string{"docs", "getting started", "a/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeAll() = %v, want %v", got, want)
	}

	if _, err := DecodeAll([]string{"%ZZ"}); !errors.Is(err, ErrInvalidPercentEscape) {
		t.Errorf("DecodeAll(bad) error = %v", err)
	}

	if got, err := DecodeAll(nil); err != nil || got == nil || len(got) != 0 {
		t.Errorf("DecodeAll(nil) = %#v, %v; want empty slice", got, err)
	}
}
