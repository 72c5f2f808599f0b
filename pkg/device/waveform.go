package device

import (
	"fmt"
	"math"
	"sort"

	"github.com/edp1096/toy-mna/internal/consts"
)

// Waveform is a transient source model. Implementations are immutable and
// Value is a pure function of absolute time.
type Waveform interface {
	Value(t float64) float64
	Name() string
}

var (
	_ Waveform = Exp{}
	_ Waveform = Sin{}
	_ Waveform = Pulse{}
	_ Waveform = PWL{}
)

type Exp struct {
	I1, I2   float64
	Td1, Tc1 float64
	Td2, Tc2 float64
}

func (w Exp) Name() string { return "EXP" }

func (w Exp) Value(t float64) float64 {
	switch {
	case t <= w.Td1:
		return w.I1
	case t <= w.Td2:
		return w.I1 + (w.I2-w.I1)*(1-math.Exp(-(t-w.Td1)/w.Tc1))
	default:
		return w.I1 + (w.I2-w.I1)*(math.Exp(-(t-w.Td2)/w.Tc2)-math.Exp(-(t-w.Td1)/w.Tc1))
	}
}

type Sin struct {
	I1 float64 // offset
	Ia float64 // amplitude
	Fr float64 // frequency (Hz)
	Td float64 // delay
	Df float64 // damping factor
	Ph float64 // phase (deg)
}

func (w Sin) Name() string { return "SIN" }

func (w Sin) Value(t float64) float64 {
	phase := 2 * math.Pi * w.Ph / 360
	if t <= w.Td {
		return w.I1 + w.Ia*math.Sin(phase)
	}
	dt := t - w.Td
	return w.I1 + w.Ia*math.Sin(2*math.Pi*w.Fr*dt+phase)*math.Exp(-dt*w.Df)
}

type Pulse struct {
	I1, I2 float64
	Td     float64 // delay
	Tr     float64 // rise
	Tf     float64 // fall
	Pw     float64 // plateau width
	Per    float64 // period, <= 0 for a single pulse
}

func (w Pulse) Name() string { return "PULSE" }

func (w Pulse) Value(t float64) float64 {
	if t <= w.Td {
		return w.I1
	}

	t = t - w.Td
	if w.Per > 0 {
		t = math.Mod(t, w.Per)
	}

	switch {
	case t < w.Tr:
		return w.I1 + (w.I2-w.I1)*t/w.Tr
	case t <= w.Tr+w.Pw:
		return w.I2
	case t < w.Tr+w.Pw+w.Tf:
		return w.I2 - (w.I2-w.I1)*(t-w.Tr-w.Pw)/w.Tf
	default:
		return w.I1
	}
}

type Point struct {
	Time  float64
	Value float64
}

type PWL struct {
	Points []Point // strictly increasing in Time
}

func NewPWL(times, values []float64) (PWL, error) {
	if len(times) == 0 || len(times) != len(values) {
		return PWL{}, fmt.Errorf("PWL needs matching, non-empty time and value lists")
	}

	points := make([]Point, len(times))
	for i := range times {
		if i > 0 && times[i] <= times[i-1] {
			return PWL{}, fmt.Errorf("PWL time points must be strictly increasing")
		}
		points[i] = Point{Time: times[i], Value: values[i]}
	}
	return PWL{Points: points}, nil
}

func (w PWL) Name() string { return "PWL" }

func (w PWL) Value(t float64) float64 {
	first, last := w.Points[0], w.Points[len(w.Points)-1]
	if t <= first.Time {
		return first.Value
	}
	if t >= last.Time {
		return last.Value
	}

	i := sort.Search(len(w.Points), func(i int) bool { return w.Points[i].Time >= t })
	p2 := w.Points[i]
	if p2.Time == t {
		return p2.Value
	}
	p1 := w.Points[i-1]
	slope := (p2.Value - p1.Value) / (p2.Time - p1.Time)
	return p1.Value + slope*(t-p1.Time)
}

// CheckConsistency reports a mismatch between the DC value of a source and
// its waveform at t=0. The result is advisory.
func CheckConsistency(e *Element) (string, bool) {
	if e.Waveform == nil {
		return "", true
	}

	w0 := e.Waveform.Value(0)
	scale := math.Max(math.Abs(e.Value), math.Abs(w0))
	if math.Abs(e.Value-w0) <= consts.WAVEFORM_RTOL*math.Max(scale, 1) {
		return "", true
	}
	return fmt.Sprintf("%s: DC value %g differs from %s value %g at t=0", e.Name, e.Value, e.Waveform.Name(), w0), false
}
