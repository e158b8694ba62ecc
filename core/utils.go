package core

import "strings"

// CleanString strips surrounding whitespace from user input. Pass lower=true
// to also fold the result to lower case (usernames, emails, search terms).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}
