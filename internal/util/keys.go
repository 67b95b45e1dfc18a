package util

import "strings"

var escaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Escape makes s safe to use as one ':'-separated key segment.
func Escape(s string) string {
	return escaper.Replace(s)
}

// SlotKey returns the storage key for (scope, entity) under prefix.
// Segments are escaped, so distinct pairs never map to the same key.
func SlotKey(prefix, scope, entity string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(scope) + len(entity) + 2)
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(Escape(scope))
	b.WriteByte(':')
	b.WriteString(Escape(entity))
	return b.String()
}
