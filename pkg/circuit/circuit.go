package circuit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edp1096/toy-mna/pkg/device"
)

var ErrNoGround = errors.New("circuit: no ground node (0 or gnd)")

type Circuit struct {
	Title  string
	Nodes  []device.Node // index == node id, Nodes[0] is ground
	Group1 []device.Element
	Group2 []device.Element

	OptionList []Option // .option entries in netlist order
	Sweeps     []DCSweep
	Tran       *Tran
	Prints     []PrintDirective

	byName map[string]device.Ref
}

// NumNodes is the count of non-ground nodes.
func (c *Circuit) NumNodes() int {
	return len(c.Nodes) - 1
}

func (c *Circuit) NumElements() int {
	return len(c.Group1) + len(c.Group2)
}

func (c *Circuit) HasGround() bool {
	return len(c.Nodes) > 0 && c.Nodes[0].Refs > 0
}

func (c *Circuit) At(ref device.Ref) *device.Element {
	if ref.Group == device.Group2 {
		return &c.Group2[ref.Index]
	}
	return &c.Group1[ref.Index]
}

func (c *Circuit) Element(name string) (*device.Element, bool) {
	ref, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return c.At(ref), true
}

func (c *Circuit) NodeID(name string) (int, bool) {
	if isGroundName(name) {
		return 0, true
	}
	for i := 1; i < len(c.Nodes); i++ {
		if c.Nodes[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

func (c *Circuit) NodeName(id int) string {
	if id <= 0 || id >= len(c.Nodes) {
		return "0"
	}
	return c.Nodes[id].Name
}

// Elements visits every element, Group 1 first.
func (c *Circuit) Elements(visit func(el *device.Element)) {
	for i := range c.Group1 {
		visit(&c.Group1[i])
	}
	for i := range c.Group2 {
		visit(&c.Group2[i])
	}
}

func (c *Circuit) Validate() error {
	if !c.HasGround() {
		return ErrNoGround
	}
	if c.NumNodes() == 0 {
		return fmt.Errorf("circuit %q has no non-ground node", c.Title)
	}
	return nil
}

func isGroundName(name string) bool {
	return name == "0" || strings.EqualFold(name, "gnd")
}
