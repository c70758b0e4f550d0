package dataset

import (
	"math"
	"strconv"
	"strings"
)

// DecimalMode selects how numeric fields are normalised.
type DecimalMode string

const (
	// DecimalLocale parses each value field with a locale-aware parser.
	DecimalLocale DecimalMode = "locale"
	// DecimalLegacy replaces every comma in the raw text with a period
	// before parsing, corrupting any text field that contains one.
	DecimalLegacy DecimalMode = "legacy"
)

// ParseDecimal parses s using sep as the decimal separator. The other of
// '.'/',' and spaces are accepted as thousands marks when they delimit
// groups of exactly three digits. It returns NaN and false on failure.
func ParseDecimal(s string, sep rune) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart := s, ""
	hasFrac := false
	if i := strings.IndexRune(s, sep); i >= 0 {
		intPart, fracPart = s[:i], s[i+len(string(sep)):]
		hasFrac = true
		if strings.ContainsRune(fracPart, sep) {
			return math.NaN(), false
		}
	}

	digits, ok := ungroup(intPart, sep)
	if !ok {
		return math.NaN(), false
	}
	if hasFrac {
		if fracPart == "" || !allDigits(fracPart) {
			return math.NaN(), false
		}
	} else if digits == "" {
		return math.NaN(), false
	}
	if digits == "" {
		digits = "0"
	}

	text := digits
	if hasFrac {
		text += "." + fracPart
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return math.NaN(), false
	}
	if neg {
		v = -v
	}
	return v, true
}

// ungroup strips thousands marks from an integer part, validating that
// every group after the first has exactly three digits.
func ungroup(s string, sep rune) (string, bool) {
	if s == "" {
		return "", true
	}
	runes := []rune(s)
	var b strings.Builder
	group, groups := 0, 0
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			group++
		case isGroupMark(r, sep):
			if i == 0 || i == len(runes)-1 || group == 0 {
				return "", false
			}
			if (groups == 0 && group > 3) || (groups > 0 && group != 3) {
				return "", false
			}
			groups++
			group = 0
		default:
			return "", false
		}
	}
	if groups > 0 && group != 3 {
		return "", false
	}
	return b.String(), true
}

func isGroupMark(r, sep rune) bool {
	if r == sep {
		return false
	}
	return r == '.' || r == ',' || r == ' ' || r == '\u00a0' || r == '\u202f'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// coerceLegacy mirrors unary-plus number coercion: surrounding space is
// ignored and an empty field is zero.
func coerceLegacy(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}
