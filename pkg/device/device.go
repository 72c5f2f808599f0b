package device

import "fmt"

type Kind int

const (
	Resistor Kind = iota
	Capacitor
	Inductor
	VoltageSource
	CurrentSource
	Unsupported // BJT, MOSFET, diode: parsed, never stamped
)

func (k Kind) String() string {
	switch k {
	case Resistor:
		return "R"
	case Capacitor:
		return "C"
	case Inductor:
		return "L"
	case VoltageSource:
		return "V"
	case CurrentSource:
		return "I"
	default:
		return "?"
	}
}

// KindOf maps an element letter to its kind. Q, M and D map to Unsupported.
func KindOf(tag byte) (Kind, error) {
	switch tag {
	case 'r', 'R':
		return Resistor, nil
	case 'c', 'C':
		return Capacitor, nil
	case 'l', 'L':
		return Inductor, nil
	case 'v', 'V':
		return VoltageSource, nil
	case 'i', 'I':
		return CurrentSource, nil
	case 'q', 'Q', 'm', 'M', 'd', 'D':
		return Unsupported, nil
	}
	return Unsupported, fmt.Errorf("unknown element type '%c'", tag)
}

type Group int

const (
	Group1 Group = 1 // R, C, I and unsupported: branch current eliminated
	Group2 Group = 2 // V, L: explicit branch current unknown
)

func (k Kind) Group() Group {
	if k == VoltageSource || k == Inductor {
		return Group2
	}
	return Group1
}

// Ref addresses an element inside one of the two circuit pools.
type Ref struct {
	Group Group
	Index int
}

type Node struct {
	ID       int // 0 is ground
	Name     string
	Refs     int
	Incident []Ref
}

type Element struct {
	ID       int
	Name     string
	Value    float64
	Kind     Kind
	Tag      byte  // original element letter, kept for unsupported devices
	Nodes    []int // node ids; [0] is the + terminal, [1] the - terminal
	Idx      int   // offset inside the Group-2 block, -1 for Group-1 elements
	Waveform Waveform
	Model    string
	Params   map[string]float64
}

func (e *Element) Plus() int  { return e.Nodes[0] }
func (e *Element) Minus() int { return e.Nodes[1] }

func (e *Element) IsSource() bool {
	return e.Kind == VoltageSource || e.Kind == CurrentSource
}

// ValueAt evaluates a source at absolute time t. Sources without a waveform
// and passive elements return their DC value.
func (e *Element) ValueAt(t float64) float64 {
	if e.Waveform == nil {
		return e.Value
	}
	return e.Waveform.Value(t)
}

func (e *Element) Describe() string {
	if e.Kind == Unsupported {
		return fmt.Sprintf("%s (type: %c, nodes: %v)", e.Name, e.Tag, e.Nodes)
	}
	return fmt.Sprintf("%s (type: %s, nodes: %v, value: %g)", e.Name, e.Kind, e.Nodes, e.Value)
}
