package circuit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/edp1096/toy-mna/internal/consts"
	"github.com/edp1096/toy-mna/pkg/device"
	"github.com/edp1096/toy-mna/pkg/util"
)

type Option struct {
	Key   string // spd, iter, itol, sparse, method
	Value string
}

// SimOptions is the resolved view of all .option directives.
type SimOptions struct {
	SPD       bool
	Iterative bool
	Sparse    bool
	ITol      float64
	Method    util.IntegrationMethod
}

// ResolveOptions walks .option entries in order. Flags accumulate and for
// valued options the last one wins. Method stays NoIntegration unless the
// circuit asks for a transient analysis, which defaults to trapezoidal.
func (c *Circuit) ResolveOptions() (SimOptions, error) {
	opts := SimOptions{ITol: consts.DEFAULT_ITOL}
	method := util.NoIntegration

	for _, o := range c.OptionList {
		switch o.Key {
		case "spd":
			opts.SPD = true
		case "iter":
			opts.Iterative = true
		case "sparse":
			opts.Sparse = true
		case "itol":
			v, err := strconv.ParseFloat(o.Value, 64)
			if err != nil || v <= 0 {
				return opts, fmt.Errorf("invalid itol: %q", o.Value)
			}
			opts.ITol = v
		case "method":
			m, err := util.ParseIntegrationMethod(o.Value)
			if err != nil {
				return opts, err
			}
			method = m
		default:
			return opts, fmt.Errorf("unknown option: %s", o.Key)
		}
	}

	if c.Tran != nil {
		opts.Method = method
		if opts.Method == util.NoIntegration {
			opts.Method = util.TrapezoidalMethod
		}
	}
	return opts, nil
}

type DCSweep struct {
	Source string
	Begin  float64
	End    float64
	Step   float64
}

func (s DCSweep) Validate() error {
	if s.Step == 0 {
		return fmt.Errorf("zero step")
	}
	if s.End != s.Begin && math.Signbit(s.End-s.Begin) != math.Signbit(s.Step) {
		return fmt.Errorf("step %g has the wrong sign for %g..%g", s.Step, s.Begin, s.End)
	}
	return nil
}

// Points is the number of solves performed by the sweep.
func (s DCSweep) Points() int {
	return int(math.Floor((s.End-s.Begin)/s.Step + consts.SWEEP_EPS))
}

type Tran struct {
	Step float64
	Fin  float64
}

func (t Tran) Validate() error {
	if t.Step <= 0 || t.Fin <= 0 {
		return fmt.Errorf("invalid .tran: step %g, final time %g", t.Step, t.Fin)
	}
	return nil
}

// Slots is the number of time steps of the march.
func (t Tran) Slots() int {
	return int(math.Ceil(t.Fin/t.Step - consts.SWEEP_EPS))
}

type PrintKind int

const (
	PrintTable PrintKind = iota // .print
	PrintPlot                   // .plot
)

func (k PrintKind) String() string {
	if k == PrintPlot {
		return "plot"
	}
	return "print"
}

// Probe is one requested output: v(node) or i(element).
type Probe struct {
	Kind   byte // 'v' or 'i'
	Target string
}

func ParseProbe(s string) (Probe, error) {
	s = strings.TrimSpace(s)
	if len(s) < 4 || s[1] != '(' || s[len(s)-1] != ')' {
		return Probe{}, fmt.Errorf("invalid probe: %s", s)
	}

	kind := s[0] | 0x20 // lower case
	if kind != 'v' && kind != 'i' {
		return Probe{}, fmt.Errorf("invalid probe: %s", s)
	}
	return Probe{Kind: kind, Target: s[2 : len(s)-1]}, nil
}

func (p Probe) Name() string {
	return fmt.Sprintf("%c(%s)", p.Kind-0x20, p.Target)
}

func (p Probe) check(c *Circuit) error {
	if p.Kind == 'v' {
		if _, ok := c.NodeID(p.Target); !ok {
			return fmt.Errorf("probe %s: unknown node", p.Name())
		}
		return nil
	}

	el, ok := c.Element(p.Target)
	if !ok {
		return fmt.Errorf("probe %s: unknown element", p.Name())
	}
	switch el.Kind {
	case device.VoltageSource, device.Inductor, device.Resistor, device.CurrentSource:
		return nil
	}
	return fmt.Errorf("probe %s: current of %s elements is not available", p.Name(), el.Kind)
}

type PrintDirective struct {
	Kind   PrintKind
	Index  int // 1-based, in netlist order
	Probes []Probe
}
