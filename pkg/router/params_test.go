package router

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParamValues(t *testing.T) {
	tests := []struct {
		name       string
		param      Param
		wantValue  string
		wantValues []string
		wantMulti  bool
	}{
		{"single", Single("42"), "42", []string{"42"}, false},
		{"multi", Multi([]string{"a", "b"}), "a/b", []string{"a", "b"}, true},
		{"empty multi", Multi(nil), "", []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.param.Value(); got != tt.wantValue {
				t.Errorf("Value() = %q, want %q", got, tt.wantValue)
			}
			if got := tt.param.Values(); !slices.Equal(got, tt.wantValues) {
				t.Errorf("Values() = %v, want %v", got, tt.wantValues)
			}
			if got := tt.param.IsMulti(); got != tt.wantMulti {
				t.Errorf("IsMulti() = %v, want %v", got, tt.wantMulti)
			}
		})
	}
}

func TestParamMultiCopiesInput(t *testing.T) {
	in := []string{"a", "b"}
	p := Multi(in)
	in[0] = "z"

	if got := p.Value(); got != "a/b" {
		t.Errorf("Value() = %q, want a/b", got)
	}

	out := p.Values()
	out[0] = "y"
	if got := p.Value(); got != "a/b" {
		t.Errorf("Values() leaked internal storage, Value() = %q", got)
	}
}

func TestParamEqual(t *testing.T) {
	tests := []struct {
		a, b Param
		want bool
	}{
		{Single("a"), Single("a"), true},
		{Single("a"), Single("b"), false},
		{Single("a"), Multi([]string{"a"}), false},
		{Multi(nil), Multi([]string{}), true},
		{Multi([]string{"a", "b"}), Multi([]string{"a", "b"}), true},
		{Multi([]string{"a", "b"}), Multi([]string{"b", "a"}), false},
	}

	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParamsJSON(t *testing.T) {
	params := Params{
		"id":   Single("42"),
		"path": Multi([]string{"docs", "intro"}),
		"rest": Multi(nil),
	}

	data, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"id":"42","path":["docs","intro"],"rest":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back Params
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !back.Equal(params) {
		t.Errorf("Unmarshal() = %v, want %v", back, params)
	}
}

func TestParamsAccessors(t *testing.T) {
	params := Params{"id": Single("42"), "slug": Multi([]string{"a", "b"})}

	if got := params.Get("id"); got != "42" {
		t.Errorf("Get(id) = %q", got)
	}
	if got := params.Get("slug"); got != "a/b" {
		t.Errorf("Get(slug) = %q", got)
	}
	if got := params.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q", got)
	}
	if got := params.Strings("missing"); got != nil {
		t.Errorf("Strings(missing) = %v, want nil", got)
	}
	if got := params.Strings("id"); !slices.Equal(got, []string{"42"}) {
		t.Errorf("Strings(id) = %v", got)
	}
}
