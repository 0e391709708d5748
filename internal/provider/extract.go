package provider

import (
	"math"
	"strconv"
	"strings"
)

// ParseStat normalizes a stat cell from an upstream CSV.
//
// nflverse writes missing values as "", "NA" or "NaN"; pandas round-trips add
// "nan" and "None". All of those report ok=false so the caller can leave the
// column NULL. Integers and decimals both parse as float64.
func ParseStat(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "na", "nan", "none", "null":
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt parses an integer cell. Float spellings such as "2024.0", which
// pandas emits for nullable integer columns, are accepted when integral.
// Values outside the 32-bit range the tables store report ok=false.
func ParseInt(cell string) (int, bool) {
	s := strings.TrimSpace(cell)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), true
	}
	f, ok := ParseStat(s)
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
