package models

import "strings"

var timeframeMinutes = map[string]int{
	"t1":  1,
	"t2":  2,
	"t5":  5,
	"t10": 10,
	"t15": 15,
	"t30": 30,
	"h1":  60,
	"h4":  240,
	"d1":  1440,
}

// TimeframeMinutes returns the bar duration of a timeframe code such as t5 or h1
func TimeframeMinutes(code string) (int, bool) {
	m, ok := timeframeMinutes[strings.ToLower(code)]
	return m, ok
}

// IsKnownTimeframe reports whether the code is in the timeframe table
func IsKnownTimeframe(code string) bool {
	_, ok := TimeframeMinutes(code)
	return ok
}
