package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// FieldMap holds named profile attributes in canonical JSON shapes
// (string, float64, bool, []any, map[string]any). Values must pass through
// Normalize before being stored or diffed so deep equality is well defined.
type FieldMap map[string]any

// Normalize round-trips every value through JSON so that values arriving from
// different decoders compare equal. Fails on values that cannot be represented
// as JSON.
func (m FieldMap) Normalize() (FieldMap, error) {
	if m == nil {
		return FieldMap{}, nil
	}
	out := make(FieldMap, len(m))
	for name, value := range m {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		var canonical any
		if err := json.Unmarshal(raw, &canonical); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		out[name] = canonical
	}
	return out, nil
}

// Clone returns a deep copy. FieldMaps hold only canonical JSON values, so a
// marshal round trip is a faithful copy.
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return nil
	}
	cloned, err := m.Normalize()
	if err != nil {
		// Values are canonical by construction; this cannot fire for stored maps.
		panic(fmt.Sprintf("clone field map: %v", err))
	}
	return cloned
}

// Merge overwrites m's entries with those of other. Fields absent from other
// are untouched (partial update semantics).
func (m FieldMap) Merge(other FieldMap) {
	for name, value := range other {
		m[name] = value
	}
}

// Overlay returns a copy of m with other's entries applied on top. Neither
// input is modified.
func (m FieldMap) Overlay(other FieldMap) FieldMap {
	out := m.Clone()
	if out == nil {
		out = FieldMap{}
	}
	out.Merge(other)
	return out
}

// Pick returns a new FieldMap containing only the named fields.
func (m FieldMap) Pick(names []string) FieldMap {
	out := make(FieldMap, len(names))
	for _, name := range names {
		if value, ok := m[name]; ok {
			out[name] = value
		}
	}
	return out
}

// Diff returns the sorted names of fields present in submitted whose values
// differ from stored, compared by deep value equality. A field reset from a
// non-empty value to empty still registers as changed; fields absent from
// submitted never do.
func Diff(stored, submitted FieldMap) []string {
	var changed []string
	for name, submittedValue := range submitted {
		storedValue, exists := stored[name]
		if !exists || !valueEqual(storedValue, submittedValue) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// valueEqual compares canonical JSON values. Arrays and maps compare by deep
// value, not reference.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
