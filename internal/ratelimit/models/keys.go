package models

import "strings"

const keyPrefix = "rl"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so an identity containing ':' cannot address another action's counter.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewKey builds the counter key rl:<action>:<identity>.
func NewKey(action Action, identity string) string {
	return keyPrefix + ":" + SanitizeKeySegment(string(action)) + ":" + SanitizeKeySegment(identity)
}
