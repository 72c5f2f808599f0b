package mna

import (
	"fmt"
	"io"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
	"github.com/edp1096/toy-mna/pkg/matrix"
	"github.com/edp1096/toy-mna/pkg/util"
)

type Options struct {
	Sparse bool
	Method util.IntegrationMethod // NoIntegration skips the reactive matrix
	Debug  bool
}

// State is the assembled system of one run. G and C are built once; only
// B and X change between solves.
type State struct {
	N          int // non-ground nodes
	E          int // elements
	Group1Size int
	Group2Size int
	Dim        int // N + Group2Size

	G matrix.Matrix
	B []float64
	C matrix.Matrix // nil without a transient method
	X []float64

	Sparse bool
	Method util.IntegrationMethod

	ckt     *circuit.Circuit
	sources []device.Ref // sources carrying a waveform
}

func (s *State) Circuit() *circuit.Circuit { return s.ckt }

// Row maps a node id to its equation row, -1 for ground.
func Row(nodeID int) int {
	return nodeID - 1
}

// BranchRow is the row of a Group-2 element's current unknown.
func (s *State) BranchRow(el *device.Element) int {
	return s.N + el.Idx
}

// NodeVoltage reads a node voltage from a solution vector.
func (s *State) NodeVoltage(x []float64, nodeID int) float64 {
	if nodeID <= 0 {
		return 0
	}
	return x[Row(nodeID)]
}

// Current returns the current through an element flowing from its + to its
// - terminal. ex gives the value current sources were driven with.
func (s *State) Current(el *device.Element, x []float64, ex Excitation) (float64, error) {
	switch el.Kind {
	case device.VoltageSource, device.Inductor:
		return x[s.BranchRow(el)], nil
	case device.Resistor:
		return (s.NodeVoltage(x, el.Plus()) - s.NodeVoltage(x, el.Minus())) / el.Value, nil
	case device.CurrentSource:
		return ex.SourceValue(el), nil
	}
	return 0, fmt.Errorf("current of %s is not available", el.Name)
}

// Probe evaluates one .print/.plot output on a solution vector.
func (s *State) Probe(p circuit.Probe, x []float64, ex Excitation) (float64, error) {
	if p.Kind == 'v' {
		id, ok := s.ckt.NodeID(p.Target)
		if !ok {
			return 0, fmt.Errorf("unknown node %s", p.Target)
		}
		return s.NodeVoltage(x, id), nil
	}

	el, ok := s.ckt.Element(p.Target)
	if !ok {
		return 0, fmt.Errorf("unknown element %s", p.Target)
	}
	return s.Current(el, x, ex)
}

// UnknownName labels entry i of the solution vector.
func (s *State) UnknownName(i int) string {
	if i < s.N {
		return fmt.Sprintf("V(%s)", s.ckt.NodeName(i+1))
	}
	return fmt.Sprintf("I(%s)", s.ckt.Group2[i-s.N].Name)
}

func (s *State) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nMNA system (%dx%d), nodes %d, branches %d, sparse %v:\n", s.Dim, s.Dim, s.N, s.Group2Size, s.Sparse)
	fmt.Fprintf(w, "G =\n%v\n", matrix.ToDense(s.G))
	if s.C != nil {
		fmt.Fprintf(w, "C =\n%v\n", matrix.ToDense(s.C))
	}
	fmt.Fprintln(w, "B:")
	for i, v := range s.B {
		fmt.Fprintf(w, "  %-10s = %g\n", s.UnknownName(i), v)
	}
}
