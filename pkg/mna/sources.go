package mna

import (
	"fmt"

	"github.com/edp1096/toy-mna/pkg/device"
)

// Excitation tells which value each independent source had when a
// solution vector was computed. The zero value is the operating point.
type Excitation struct {
	Transient bool
	Time      float64 // used when Transient

	Swept      *device.Element // source driven by a DC sweep, nil otherwise
	SweptValue float64
}

// AtTime is the excitation of a transient time point.
func AtTime(t float64) Excitation {
	return Excitation{Transient: true, Time: t}
}

// Sweeping is the excitation of a DC sweep point with el set to v.
func Sweeping(el *device.Element, v float64) Excitation {
	return Excitation{Swept: el, SweptValue: v}
}

// SourceValue returns the value el was driven with.
func (e Excitation) SourceValue(el *device.Element) float64 {
	switch {
	case e.Swept != nil && e.Swept == el:
		return e.SweptValue
	case e.Transient:
		return el.ValueAt(e.Time)
	}
	return el.Value
}

// AddSource adds delta to the right-hand side contribution of an
// independent source.
func (s *State) AddSource(b []float64, el *device.Element, delta float64) error {
	if !el.IsSource() {
		return fmt.Errorf("%s is not an independent source", el.Name)
	}
	s.stampSource(b, el, delta)
	return nil
}

// stampSource expects el to be a voltage or current source.
func (s *State) stampSource(b []float64, el *device.Element, delta float64) {
	if el.Kind == device.VoltageSource {
		b[s.BranchRow(el)] += delta
		return
	}
	if p := el.Plus(); p != 0 {
		b[Row(p)] -= delta
	}
	if m := el.Minus(); m != 0 {
		b[Row(m)] += delta
	}
}

// RHSAt writes into dst the right-hand side at time t: base with every
// waveform source moved from its DC value to its value at t.
func (s *State) RHSAt(dst, base []float64, t float64) {
	copy(dst, base)
	for _, ref := range s.sources {
		el := s.ckt.At(ref)
		s.stampSource(dst, el, el.Waveform.Value(t)-el.Value)
	}
}

// TimeVarying reports whether any source carries a waveform.
func (s *State) TimeVarying() bool {
	return len(s.sources) > 0
}

// Sources lists the elements whose value follows a waveform.
func (s *State) Sources() []*device.Element {
	out := make([]*device.Element, len(s.sources))
	for i, ref := range s.sources {
		out[i] = s.ckt.At(ref)
	}
	return out
}
