package tools

import (
	"math"

	"github.com/goccy/go-json"
)

func FmtJSONString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "marshal data fail"
	}
	return string(data)
}

const (
	FloatMin = 0.000001
)

func IsFloatEqual(f1, f2 float64) bool {
	return math.Abs(f1-f2) < FloatMin
}

func IsFloatZero(f float64) bool {
	return IsFloatEqual(f, 0)
}
