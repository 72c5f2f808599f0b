package mna

import (
	"fmt"
	"log"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
	"github.com/edp1096/toy-mna/pkg/matrix"
	"github.com/edp1096/toy-mna/pkg/util"
)

// Build assembles G, B and, for a transient method, the reactive matrix C.
// Every non-ground node is visited once together with its incident
// elements; row = node id - 1 and Group-2 currents follow at N + idx.
func Build(ckt *circuit.Circuit, opts Options) (*State, error) {
	if !ckt.HasGround() {
		return nil, circuit.ErrNoGround
	}

	n := ckt.NumNodes()
	s := &State{
		N:          n,
		E:          ckt.NumElements(),
		Group1Size: len(ckt.Group1),
		Group2Size: len(ckt.Group2),
		Dim:        n + len(ckt.Group2),
		Sparse:     opts.Sparse,
		Method:     opts.Method,
		ckt:        ckt,
	}
	s.B = make([]float64, s.Dim)
	s.X = make([]float64, s.Dim)

	reactive := opts.Method != util.NoIntegration
	var g, c matrix.Stamper
	var gt, ct *matrix.Triplets
	var gd, cd *matrix.Dense
	if opts.Sparse {
		counts := CountEntries(ckt, reactive)
		gt = matrix.NewTriplets(s.Dim, counts.G)
		g = gt
		if reactive {
			ct = matrix.NewTriplets(s.Dim, counts.C)
			c = ct
		}
	} else {
		gd = matrix.NewDense(s.Dim)
		g = gd
		if reactive {
			cd = matrix.NewDense(s.Dim)
			c = cd
		}
	}

	for i := range ckt.Group1 {
		el := &ckt.Group1[i]
		if el.Kind == device.Unsupported {
			log.Printf("warning: ignore %s elements: %s is not simulated", unsupportedName(el.Tag), el.Name)
		}
		if el.IsSource() && el.Waveform != nil {
			s.sources = append(s.sources, device.Ref{Group: device.Group1, Index: i})
		}
	}
	for i := range ckt.Group2 {
		if el := &ckt.Group2[i]; el.IsSource() && el.Waveform != nil {
			s.sources = append(s.sources, device.Ref{Group: device.Group2, Index: i})
		}
	}

	for id := 1; id <= n; id++ {
		row := Row(id)
		for _, ref := range ckt.Nodes[id].Incident {
			el := ckt.At(ref)
			var err error
			switch el.Kind {
			case device.Resistor:
				err = stampTwoTerminal(g, el, id, 1/el.Value)
			case device.Capacitor:
				if c != nil {
					err = stampTwoTerminal(c, el, id, el.Value)
				}
			case device.CurrentSource:
				stampCurrent(s.B, el, id, el.Value)
			case device.VoltageSource, device.Inductor:
				col := s.BranchRow(el)
				for _, sign := range terminalSigns(el, id) {
					if err = g.Add(row, col, sign); err != nil {
						break
					}
					if err = g.Add(col, row, sign); err != nil {
						break
					}
				}
			}
			if err != nil {
				return nil, fmt.Errorf("stamping %s: %w", el.Name, err)
			}
		}
	}

	for i := range ckt.Group2 {
		el := &ckt.Group2[i]
		switch el.Kind {
		case device.VoltageSource:
			s.B[s.BranchRow(el)] = el.Value
		case device.Inductor:
			if c != nil {
				if err := c.Add(s.BranchRow(el), s.BranchRow(el), -el.Value); err != nil {
					return nil, fmt.Errorf("stamping %s: %w", el.Name, err)
				}
			}
		}
	}

	if opts.Sparse {
		if gt.Len() != gt.Cap() {
			return nil, fmt.Errorf("%w: G counted %d entries, stamped %d", matrix.ErrCapacity, gt.Cap(), gt.Len())
		}
		s.G = gt.Compress()
		if ct != nil {
			if ct.Len() != ct.Cap() {
				return nil, fmt.Errorf("%w: C counted %d entries, stamped %d", matrix.ErrCapacity, ct.Cap(), ct.Len())
			}
			s.C = ct.Compress()
		}
	} else {
		s.G = gd
		if cd != nil {
			s.C = cd
		}
	}

	if opts.Debug {
		log.Printf("mna: dim %d (nodes %d, group1 %d, group2 %d), sparse %v, method %s",
			s.Dim, s.N, s.Group1Size, s.Group2Size, s.Sparse, s.Method)
	}
	return s, nil
}

// stampTwoTerminal adds the admittance y of el as seen from node id: the
// diagonal entry and, for a non-ground far end, the cross term.
func stampTwoTerminal(m matrix.Stamper, el *device.Element, id int, y float64) error {
	if el.Plus() == el.Minus() {
		return nil
	}
	row := Row(id)
	if err := m.Add(row, row, y); err != nil {
		return err
	}
	if far := other(el, id); far != 0 {
		return m.Add(row, Row(far), -y)
	}
	return nil
}

// stampCurrent moves a source current flowing from + to - through the
// source onto the right-hand side of node id.
func stampCurrent(b []float64, el *device.Element, id int, value float64) {
	row := Row(id)
	if el.Plus() == id {
		b[row] -= value
	}
	if el.Minus() == id {
		b[row] += value
	}
}

func terminalSigns(el *device.Element, id int) []float64 {
	var signs []float64
	if el.Plus() == id {
		signs = append(signs, 1)
	}
	if el.Minus() == id {
		signs = append(signs, -1)
	}
	return signs
}

func unsupportedName(tag byte) string {
	switch tag {
	case 'q':
		return "bjt"
	case 'm':
		return "mosfet"
	case 'd':
		return "diode"
	}
	return string(tag)
}
