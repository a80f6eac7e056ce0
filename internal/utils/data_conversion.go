package utils

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Truncate shortens s to at most n runes, appending suffix when cut
func Truncate(s string, n int, suffix string) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + suffix
}
