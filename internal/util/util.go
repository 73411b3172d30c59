package util

import "strings"

func P[T any](x T) *T {
	return &x
}

// Deref returns the zero value for a nil pointer.
func Deref[T any](x *T) T {
	if x == nil {
		var zero T
		return zero
	}
	return *x
}

// FirstNonEmpty returns the first argument that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
