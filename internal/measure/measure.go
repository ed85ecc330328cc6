// Package measure parses the loosely formatted quantities found in inventory reports,
// such as "256 GB", "85.5%" or "8 days, 3:04:05".
//
// Every parser is total: malformed input yields a zero value, never an error, so callers can
// always render something.
package measure

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/reporteria/reportviewer/internal/fileutils"
)

var (
	leadingFloatRE = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
	leadingIntRE   = regexp.MustCompile(`^\d+`)
	sizeRE         = regexp.MustCompile(`^([+-]?(?:\d+\.?\d*|\.\d+))\s*([A-Za-z]*)`)
)

// dayTokens are the words accepted as a day unit in an uptime text.
var dayTokens = map[string]struct{}{
	"day":  {},
	"days": {},
	"día":  {},
	"días": {},
	"dia":  {},
	"dias": {},
}

// LeadingFloat returns the number at the start of s, ignoring leading whitespace and anything after the number.
//
// "256 GB" is 256, "1TB" is 1, " -2.5e1x" is -25. Text without a numeric prefix ("bad", "", "GB 12")
// and values that overflow to infinity are 0.
func LeadingFloat(s string) float64 {
	m := leadingFloatRE.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// Percent returns the percentage written in s, with or without a trailing "%".
// The result is not clamped: "120%" is 120.
func Percent(s string) float64 {
	return LeadingFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

// ClampPercent bounds v to [0, 100].
func ClampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// UptimeDays returns the number of whole days in an uptime text such as "8 days, 3:04:05.123".
//
// This is a heuristic, not a duration parser: ok is true only if s contains a day unit token
// (day, days, día, días, dia, dias; any case) and starts with an integer. "3:04:05" has no day
// token; "days: 8" has no leading integer.
func UptimeDays(s string) (days int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	hasDay := false
	for _, f := range strings.Fields(s) {
		if _, found := dayTokens[strings.Trim(f, ",.:;")]; found {
			hasDay = true
			break
		}
	}
	if !hasDay {
		return 0, false
	}

	m := leadingIntRE.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SizeBytes converts a size such as "256 GB", "1.5TB" or "512" (bytes) into bytes.
// ok is false when s has no numeric prefix or uses an unknown unit.
func SizeBytes(s string) (bytes float64, ok bool) {
	m := sizeRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 {
		return 0, false
	}
	b, err := fileutils.ConvertUnitToBytes(m[2], v)
	if err != nil {
		return 0, false
	}
	return b, true
}
