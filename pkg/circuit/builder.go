package circuit

import (
	"fmt"
	"log"
	"strings"

	"github.com/edp1096/toy-mna/pkg/device"
)

// Builder collects nodes, elements and directives for one parse. A fresh
// Builder is used per netlist; nothing is shared across runs.
type Builder struct {
	ckt       *Circuit
	nodeIDs   map[string]int
	nextEUID  int
	finalized bool
}

func NewBuilder(title string) *Builder {
	b := &Builder{}
	b.Init(title)
	return b
}

func (b *Builder) Init(title string) {
	b.ckt = &Circuit{
		Title:  title,
		Nodes:  []device.Node{{ID: 0, Name: "0"}},
		byName: make(map[string]device.Ref),
	}
	b.nodeIDs = make(map[string]int)
	b.nextEUID = 0
	b.finalized = false
}

// Node returns the id of a node, creating it on first use.
func (b *Builder) Node(name string) int {
	if isGroundName(name) {
		return 0
	}
	if id, ok := b.nodeIDs[name]; ok {
		return id
	}

	id := len(b.ckt.Nodes)
	b.ckt.Nodes = append(b.ckt.Nodes, device.Node{ID: id, Name: name})
	b.nodeIDs[name] = id
	return id
}

// AddElement registers an element connected to the named nodes and returns
// its pool reference.
func (b *Builder) AddElement(el device.Element, nodeNames []string) (device.Ref, error) {
	if b.finalized {
		return device.Ref{}, fmt.Errorf("builder already finalized")
	}

	key := strings.ToLower(el.Name)
	if _, exists := b.ckt.byName[key]; exists {
		return device.Ref{}, fmt.Errorf("duplicate element name: %s", el.Name)
	}
	if el.Kind != device.Unsupported && len(nodeNames) != 2 {
		return device.Ref{}, fmt.Errorf("element %s: requires exactly 2 nodes", el.Name)
	}
	if el.Kind == device.Resistor && el.Value == 0 {
		return device.Ref{}, fmt.Errorf("resistor %s: zero resistance", el.Name)
	}
	if el.Waveform != nil && !el.IsSource() {
		return device.Ref{}, fmt.Errorf("element %s: only independent sources take a waveform", el.Name)
	}
	if msg, ok := device.CheckConsistency(&el); !ok {
		log.Printf("warning: %s", msg)
	}

	el.ID = b.nextEUID
	b.nextEUID++
	el.Nodes = make([]int, len(nodeNames))
	for i, name := range nodeNames {
		el.Nodes[i] = b.Node(name)
	}

	var ref device.Ref
	switch el.Kind.Group() {
	case device.Group2:
		el.Idx = len(b.ckt.Group2)
		ref = device.Ref{Group: device.Group2, Index: len(b.ckt.Group2)}
		b.ckt.Group2 = append(b.ckt.Group2, el)
	default:
		el.Idx = -1
		ref = device.Ref{Group: device.Group1, Index: len(b.ckt.Group1)}
		b.ckt.Group1 = append(b.ckt.Group1, el)
	}

	seen := make(map[int]bool, len(el.Nodes))
	for _, id := range el.Nodes {
		node := &b.ckt.Nodes[id]
		node.Refs++
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		node.Incident = append(node.Incident, ref)
	}

	b.ckt.byName[key] = ref
	return ref, nil
}

func (b *Builder) AddOption(key, value string) {
	b.ckt.OptionList = append(b.ckt.OptionList, Option{Key: strings.ToLower(key), Value: value})
}

// AddSweep validates and records a .dc directive. A zero or wrong-signed
// step discards the directive with a warning.
func (b *Builder) AddSweep(sweep DCSweep) bool {
	if err := sweep.Validate(); err != nil {
		log.Printf("warning: .dc %s discarded: %v", sweep.Source, err)
		return false
	}
	b.ckt.Sweeps = append(b.ckt.Sweeps, sweep)
	return true
}

func (b *Builder) SetTran(tran Tran) error {
	if err := tran.Validate(); err != nil {
		return err
	}
	if b.ckt.Tran != nil {
		log.Printf("warning: .tran repeated, the last one wins")
	}
	b.ckt.Tran = &tran
	return nil
}

func (b *Builder) AddPrint(kind PrintKind, probes []Probe) {
	b.ckt.Prints = append(b.ckt.Prints, PrintDirective{
		Kind:   kind,
		Index:  len(b.ckt.Prints) + 1,
		Probes: probes,
	})
}

// Finalize checks structural consistency and hands over the circuit.
func (b *Builder) Finalize() (*Circuit, error) {
	if b.finalized {
		return nil, fmt.Errorf("builder already finalized")
	}
	b.finalized = true

	ckt := b.ckt
	if err := ckt.Validate(); err != nil {
		return nil, err
	}

	for _, p := range ckt.Prints {
		for _, probe := range p.Probes {
			if err := probe.check(ckt); err != nil {
				return nil, err
			}
		}
	}

	return ckt, nil
}
