package utils

// Truncate shortens s to at most maxLen runes, appending an ellipsis when
// anything was cut. Truncation happens at a rune boundary so multi-byte
// text is never split mid-character.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
