package config

import (
	"fmt"
	"strings"
)

// Whitespace controls how whitespace around template tags is emitted.
type Whitespace int

const (
	// WhitespacePreserve leaves whitespace as written.
	WhitespacePreserve Whitespace = iota
	// WhitespaceSuppress removes all whitespace before and after tags.
	WhitespaceSuppress
	// WhitespaceMinimize collapses whitespace around tags to a single
	// character, a newline when the trimmed run contained one.
	WhitespaceMinimize
)

func (w Whitespace) String() string {
	switch w {
	case WhitespaceSuppress:
		return "suppress"
	case WhitespaceMinimize:
		return "minimize"
	default:
		return "preserve"
	}
}

// ParseWhitespace parses a policy name, case-insensitively.
func ParseWhitespace(s string) (Whitespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "preserve":
		return WhitespacePreserve, nil
	case "suppress":
		return WhitespaceSuppress, nil
	case "minimize":
		return WhitespaceMinimize, nil
	default:
		return WhitespacePreserve, fmt.Errorf("invalid whitespace value %q (want preserve, suppress or minimize)", s)
	}
}
