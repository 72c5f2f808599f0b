package mna

import (
	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
)

// Counts is the exact number of triplets the builder emits.
type Counts struct {
	G int
	C int
}

// CountEntries walks the topology the same way Build does: a resistor or
// capacitor gives one entry per visit plus one when its other end is not
// ground, a Group-2 coupling gives two per visit and an inductor adds one
// reactive diagonal.
func CountEntries(ckt *circuit.Circuit, reactive bool) Counts {
	var n Counts

	for id := 1; id < len(ckt.Nodes); id++ {
		for _, ref := range ckt.Nodes[id].Incident {
			el := ckt.At(ref)
			switch el.Kind {
			case device.Resistor:
				n.G += twoTerminalEntries(el, id)
			case device.Capacitor:
				if reactive {
					n.C += twoTerminalEntries(el, id)
				}
			case device.VoltageSource, device.Inductor:
				n.G += 2 * pins(el, id)
			}
		}
	}

	if reactive {
		for i := range ckt.Group2 {
			if ckt.Group2[i].Kind == device.Inductor {
				n.C++
			}
		}
	}
	return n
}

func twoTerminalEntries(el *device.Element, id int) int {
	if el.Plus() == el.Minus() {
		return 0
	}
	if other(el, id) != 0 {
		return 2
	}
	return 1
}

// pins is how many terminals of el sit on node id.
func pins(el *device.Element, id int) int {
	n := 0
	for _, p := range el.Nodes {
		if p == id {
			n++
		}
	}
	return n
}

func other(el *device.Element, id int) int {
	if el.Plus() == id {
		return el.Minus()
	}
	return el.Plus()
}
