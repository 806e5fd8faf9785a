package common

import (
	"strconv"
	"strings"
)

// AtoiDefault parses value, returning def when it is blank or not an integer.
func AtoiDefault(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n
	}
	return def
}

// ParseID parses a positive integer identifier.
func ParseID(value string) (int64, bool) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
