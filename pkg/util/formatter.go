package util

import (
	"fmt"
	"math"
)

func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatPoint renders one DC-sweep or transient log line: "<name> : <time> : <value>".
func FormatPoint(name string, at, value float64) string {
	return fmt.Sprintf("%s : %g : %+e", name, at, value)
}

// FormatOperatingPoint renders one operating point log line: "<name>:<value>".
func FormatOperatingPoint(name string, value float64) string {
	return fmt.Sprintf("%s:%g", name, value)
}

func UnitOf(name string) string {
	if len(name) > 0 && (name[0] == 'I' || name[0] == 'i') {
		return "A"
	}
	return "V"
}
