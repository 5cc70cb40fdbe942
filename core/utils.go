package core

import "strings"

// CleanString trims surrounding whitespace; pass true to also lowercase.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}
