package tracks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	kibibyte = 1024
	mebibyte = 1048576
)

var sizeLimitPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?|\.[0-9]+)\s*(kb|mb)$`)

// ParseSizeLimit parses a size threshold of the form <decimal><unit> where
// unit is "kb" (x1024) or "mb" (x1048576), case-insensitive, e.g. "100kB"
// or "1.5MB". Anything else is rejected.
func ParseSizeLimit(s string) (float64, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	m := sizeLimitPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("invalid size limit %q: expected <number>kb or <number>mb", s)
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size limit %q: %w", s, err)
	}

	switch m[2] {
	case "kb":
		return n * kibibyte, nil
	default:
		return n * mebibyte, nil
	}
}
