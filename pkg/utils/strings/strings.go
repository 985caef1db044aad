package strings

import "strings"

// SplitIfNotEmpty splits s by sep, but returns nil for empty s
// (strings.Split would return [""]).
func SplitIfNotEmpty(s string, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
