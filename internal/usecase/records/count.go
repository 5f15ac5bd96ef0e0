package records

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	countRe   = regexp.MustCompile(`(\d[\d.,]*)\s*([kKmMbBwW万萬千亿億]?)(\pL?)`)
	groupedRe = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
)

var multipliers = map[string]float64{
	"k": 1e3, "千": 1e3,
	"w": 1e4, "万": 1e4, "萬": 1e4,
	"m": 1e6,
	"亿": 1e8, "億": 1e8,
	"b": 1e9,
}

// ParseCount reads a human formatted count such as "1.2k", "3,456",
// "3,4k", "1.5万" or "2M". Unparseable input yields 0.
func ParseCount(s string) int {
	m := countRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	num, suffix := m[1], strings.ToLower(m[2])
	// "5 months" is not five million.
	if m[3] != "" && suffix >= "a" && suffix <= "z" {
		suffix = ""
	}
	num = strings.TrimRight(num, ".,")

	var value float64
	switch {
	case suffix == "" && groupedRe.MatchString(num):
		value, _ = strconv.ParseFloat(strings.NewReplacer(",", "", ".", "").Replace(num), 64)
	default:
		if strings.Contains(num, ",") && !strings.Contains(num, ".") && !groupedRe.MatchString(num) {
			num = strings.Replace(num, ",", ".", 1)
		}
		num = strings.ReplaceAll(num, ",", "")
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0
		}
		value = v
	}
	if mult, ok := multipliers[suffix]; ok {
		value *= mult
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.Round(value))
}
