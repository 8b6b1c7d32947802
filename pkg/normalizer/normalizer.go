// Package normalizer coerces raw CSV cells into comparable ZIP, date and numeric values.
package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/climatehealth/platform/pkg/tabular"
)

// ZIP is a numerically normalized postal code. Leading zeros are not preserved.
type ZIP float64

func (z ZIP) String() string {
	return tabular.FormatNumber(float64(z))
}

// NormalizeZIP reports false for anything that is not a finite number.
// Unparseable ZIPs are excluded by callers, never defaulted.
func NormalizeZIP(raw string) (ZIP, bool) {
	v, ok := ParseNumber(raw)
	if !ok {
		return 0, false
	}
	return ZIP(v), true
}

// ParseNumber coerces a cell to a float. Empty and non-numeric cells yield false.
// Infinite values parse successfully; model adapters decide what to do with them.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

var dateRe = regexp.MustCompile(`^\d{8}$`)

// ValidDate checks the YYYYMMDD shape only.
func ValidDate(date string) bool {
	return dateRe.MatchString(date)
}

// MatchDate is plain string equality after trimming the raw cell.
func MatchDate(raw, date string) bool {
	return strings.TrimSpace(raw) == date
}

// ZIPKeys normalizes a column and reports, per row, the key and whether it parsed.
func ZIPKeys(values []string) ([]string, []bool) {
	keys := make([]string, len(values))
	ok := make([]bool, len(values))
	for i, raw := range values {
		if zip, valid := NormalizeZIP(raw); valid && !math.IsInf(float64(zip), 0) {
			keys[i] = zip.String()
			ok[i] = true
		}
	}
	return keys, ok
}
