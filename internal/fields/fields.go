// Package fields models an applicant's extra-field snapshot.
//
// The surrounding platform stores extra fields as loosely typed bags; here
// every field carries a closed Kind and emptiness is decided per kind
// instead of by truthiness.
package fields

import "strings"

// Kind is the closed set of extra-field value kinds.
type Kind string

const (
	KindText         Kind = "text"
	KindNumber       Kind = "number"
	KindDate         Kind = "date"
	KindBoolean      Kind = "boolean"
	KindSingleSelect Kind = "single_select"
	KindMultiSelect  Kind = "multi_select"
)

// Field is one extra-field definition together with its current value.
// Value is nil when no value has been stored yet.
type Field struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
	Required bool   `json:"is_required"`
	Value    any    `json:"value"`
}

// Filled reports whether the field holds a usable value.
// Emptiness rules are kind-specific: text-like kinds reject blank strings,
// multi-selects reject empty collections, and a stored boolean false still
// counts as filled.
func (f Field) Filled() bool {
	if f.Value == nil {
		return false
	}

	switch f.Kind {
	case KindText, KindDate, KindSingleSelect:
		s, ok := f.Value.(string)
		if !ok {
			return true
		}
		return strings.TrimSpace(s) != ""
	case KindNumber:
		if s, ok := f.Value.(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return true
	case KindBoolean:
		return true
	case KindMultiSelect:
		switch v := f.Value.(type) {
		case []any:
			return len(v) > 0
		case []string:
			return len(v) > 0
		default:
			return true
		}
	default:
		// Unknown kind: fall back to the generic non-null rule.
		if s, ok := f.Value.(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return true
	}
}

// MissingRequired returns the required fields that are not filled,
// preserving snapshot order.
func MissingRequired(snapshot []Field) []Field {
	var missing []Field
	for _, f := range snapshot {
		if f.Required && !f.Filled() {
			missing = append(missing, f)
		}
	}
	return missing
}

// Labels returns the labels of the given fields, in order.
func Labels(fs []Field) []string {
	labels := make([]string, len(fs))
	for i, f := range fs {
		labels[i] = f.Label
	}
	return labels
}

// Progress computes the completion percentage over required fields only.
// A snapshot without required fields counts as fully complete.
func Progress(snapshot []Field) int {
	total := 0
	filled := 0
	for _, f := range snapshot {
		if !f.Required {
			continue
		}
		total++
		if f.Filled() {
			filled++
		}
	}
	if total == 0 {
		return 100
	}
	return filled * 100 / total
}
