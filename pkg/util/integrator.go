package util

import "fmt"

type IntegrationMethod int

const (
	NoIntegration IntegrationMethod = iota
	BackwardEulerMethod
	TrapezoidalMethod
)

func (m IntegrationMethod) String() string {
	switch m {
	case BackwardEulerMethod:
		return "be"
	case TrapezoidalMethod:
		return "tr"
	default:
		return "none"
	}
}

func ParseIntegrationMethod(s string) (IntegrationMethod, error) {
	switch s {
	case "be", "BE":
		return BackwardEulerMethod, nil
	case "tr", "TR":
		return TrapezoidalMethod, nil
	}
	return NoIntegration, fmt.Errorf("unknown integration method: %s", s)
}

// GetCompanionCoeff returns the factor applied to the reactive matrix C
// when forming the companion matrix G + coeff*C for a step of dt.
func GetCompanionCoeff(method IntegrationMethod, dt float64) float64 {
	switch method {
	case TrapezoidalMethod:
		return 2.0 / dt
	case BackwardEulerMethod:
		return 1.0 / dt
	default:
		return 0
	}
}
