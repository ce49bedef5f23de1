package util

import "strconv"

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParsePage parses a 1-based page number query value.
// Anything unparseable or below 1 becomes page 1.
func ParsePage(s string) int {
	page := ParseInt(s, 1)
	if page < 1 {
		page = 1
	}
	return page
}

// ParseInt64 parses a string to an int64, returning defaultValue if parsing fails
func ParseInt64(s string, defaultValue int64) int64 {
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val
	}
	return defaultValue
}
