// Package output holds the deterministic number and JSON encoding used by every
// report format, so identical analyses produce byte-identical reports.
package output

import (
	"math"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimals reports print for ratios.
const DefaultPrecision = 2

// MaxPrecision bounds the configurable precision.
const MaxPrecision = 6

// RoundFloat rounds f half away from zero to the given number of decimal places.
func RoundFloat(f float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	multiplier := math.Pow(10, float64(places))
	return math.Round(f*multiplier) / multiplier
}

// FormatFloat formats f with exactly places decimals.
func FormatFloat(f float64, places int) string {
	if places < 0 {
		places = 0
	}
	return strconv.FormatFloat(RoundFloat(f, places), 'f', places, 64)
}

// TrimFloat formats f rounded to places decimals with no trailing zeros
func TrimFloat(f float64, places int) string {
	str := FormatFloat(f, places)
	if !strings.Contains(str, ".") {
		return str
	}
	str = strings.TrimRight(str, "0")
	return strings.TrimRight(str, ".")
}
