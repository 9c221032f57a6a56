package router

import (
	"encoding/json"
	"strings"
)

// Param is a value bound by a dynamic segment: a single segment for
// parametric segments, an ordered list for catch-alls.
type Param struct {
	value  string
	values []string
	multi  bool
}

// Single returns a parametric value.
func Single(value string) Param {
	return Param{value: value}
}

// Multi returns a catch-all value. The slice is copied; nil becomes empty.
func Multi(values []string) Param {
	return Param{values: append([]string{}, values...), multi: true}
}

// IsMulti reports whether the param was bound by a catch-all segment.
func (p Param) IsMulti() bool { return p.multi }

// Value returns the bound segment, or the catch-all segments joined by "/".
func (p Param) Value() string {
	if p.multi {
		return strings.Join(p.values, "/")
	}
	return p.value
}

// Values returns the catch-all segments, or a one-element slice for a
// parametric value.
func (p Param) Values() []string {
	if p.multi {
		return append([]string{}, p.values...)
	}
	return []string{p.value}
}

// String implements fmt.Stringer.
func (p Param) String() string { return p.Value() }

// Equal reports whether two params hold the same binding.
func (p Param) Equal(other Param) bool {
	if p.multi != other.multi {
		return false
	}
	if !p.multi {
		return p.value == other.value
	}
	if len(p.values) != len(other.values) {
		return false
	}
	for i := range p.values {
		if p.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a parametric value as a string and a catch-all as an array.
func (p Param) MarshalJSON() ([]byte, error) {
	if p.multi {
		return json.Marshal(p.values)
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON accepts either a string or an array of strings.
func (p *Param) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err == nil {
		*p = Multi(values)
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*p = Single(value)
	return nil
}

// Params maps parameter names to their bound values.
type Params map[string]Param

// Get returns the value of a parametric param, or the joined segments of a
// catch-all. Missing params yield "".
func (p Params) Get(key string) string {
	return p[key].Value()
}

// Strings returns the segments bound to key, or nil if it is not bound.
func (p Params) Strings(key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	return v.Values()
}

// Equal reports whether both maps hold the same bindings.
func (p Params) Equal(other Params) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}
