package mna

import (
	"errors"
	"math"
	"testing"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/device"
	"github.com/edp1096/toy-mna/pkg/netlist"
	"github.com/edp1096/toy-mna/pkg/solver"
	"github.com/edp1096/toy-mna/pkg/util"
)

const ladder = `ladder
V1 1 0 10
R1 1 2 1k
R2 2 0 2k
R3 2 3 1k
R4 3 0 1k
I1 3 0 1m
L1 3 4 1m
R5 4 0 500
C1 2 0 1u
Q1 2 3 0 npn
`

func parse(t *testing.T, src string) *circuit.Circuit {
	t.Helper()
	ckt, err := netlist.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	return ckt
}

func solve(t *testing.T, s *State) []float64 {
	t.Helper()
	lu, _ := solver.New(solver.Options{Method: solver.LU})
	defer lu.Release()
	if err := lu.Decompose(s.G); err != nil {
		t.Fatal(err)
	}
	x := make([]float64, s.Dim)
	if err := lu.Solve(s.B, x); err != nil {
		t.Fatal(err)
	}
	return x
}

func TestCountEntries(t *testing.T) {
	ckt := parse(t, ladder)

	got := CountEntries(ckt, true)
	if got.G != 17 || got.C != 2 {
		t.Fatalf("counts = %+v, want {G:17 C:2}", got)
	}
	if got := CountEntries(ckt, false); got.C != 0 {
		t.Fatalf("reactive entries without transient: %d", got.C)
	}

	// Build fails unless the count matches what is stamped
	if _, err := Build(ckt, Options{Sparse: true, Method: util.TrapezoidalMethod}); err != nil {
		t.Fatal(err)
	}
}

func TestDenseSparseAgree(t *testing.T) {
	ckt := parse(t, ladder)

	dense, err := Build(ckt, Options{})
	if err != nil {
		t.Fatal(err)
	}
	sparse, err := Build(ckt, Options{Sparse: true})
	if err != nil {
		t.Fatal(err)
	}
	if dense.Dim != 6 || dense.N != 4 || dense.Group2Size != 2 {
		t.Fatalf("dims: N %d, group2 %d, dim %d", dense.N, dense.Group2Size, dense.Dim)
	}

	xd, xs := solve(t, dense), solve(t, sparse)
	for i := range xd {
		if math.Abs(xd[i]-xs[i]) > 1e-9 {
			t.Errorf("%s: dense %g, sparse %g", dense.UnknownName(i), xd[i], xs[i])
		}
	}
}

func TestKirchhoffCurrentLaw(t *testing.T) {
	ckt := parse(t, ladder)

	for _, sparse := range []bool{false, true} {
		s, err := Build(ckt, Options{Sparse: sparse})
		if err != nil {
			t.Fatal(err)
		}
		x := solve(t, s)

		for id := 1; id <= s.N; id++ {
			var sum float64
			for _, ref := range ckt.Nodes[id].Incident {
				el := ckt.At(ref)
				if el.Kind == device.Capacitor || el.Kind == device.Unsupported {
					continue
				}
				i, err := s.Current(el, x, Excitation{})
				if err != nil {
					t.Fatal(err)
				}
				// current leaving through the + terminal, entering through -
				if el.Plus() == id {
					sum += i
				}
				if el.Minus() == id {
					sum -= i
				}
			}
			if math.Abs(sum) > 1e-12 {
				t.Errorf("sparse=%v node %s: current sum %g", sparse, ckt.NodeName(id), sum)
			}
		}
	}
}

func TestVoltageDivider(t *testing.T) {
	s, err := Build(parse(t, "divider\nV1 in 0 9\nR1 in out 2k\nR2 out 0 1k\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	x := solve(t, s)

	out, _ := s.Circuit().NodeID("out")
	if v := s.NodeVoltage(x, out); math.Abs(v-3) > 1e-12 {
		t.Errorf("V(out) = %g, want 3", v)
	}
	v1, _ := s.Circuit().Element("V1")
	if i, _ := s.Current(v1, x, Excitation{}); math.Abs(i+3e-3) > 1e-15 {
		t.Errorf("I(V1) = %g, want -3m", i)
	}
}

func TestRefusesWithoutGround(t *testing.T) {
	b := circuit.NewBuilder("floating")
	if _, err := b.AddElement(device.Element{Name: "R1", Kind: device.Resistor, Value: 1}, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Finalize(); !errors.Is(err, circuit.ErrNoGround) {
		t.Fatalf("Finalize: %v", err)
	}

	ckt := &circuit.Circuit{Nodes: []device.Node{{ID: 0, Name: "0"}, {ID: 1, Name: "a"}}}
	if _, err := Build(ckt, Options{}); !errors.Is(err, circuit.ErrNoGround) {
		t.Fatalf("Build: %v", err)
	}
}

func TestRHSAt(t *testing.T) {
	s, err := Build(parse(t, "pulse\nV1 1 0 PULSE(0 2 1 1 1 1 0)\nI1 0 1 1 PWL(0 1 1 3)\nR1 1 0 1\n"), Options{Method: util.BackwardEulerMethod})
	if err != nil {
		t.Fatal(err)
	}
	if !s.TimeVarying() {
		t.Fatal("sources with waveforms not collected")
	}

	b := make([]float64, s.Dim)
	s.RHSAt(b, s.B, 2.5)
	// V1 at t=2.5 sits on the plateau, I1 is clamped at 3 and flows into node 1
	if b[s.N] != 2 || b[0] != 3 {
		t.Errorf("rhs = %v, want [3 2]", b)
	}
	if s.B[0] != 1 || s.B[s.N] != 0 {
		t.Errorf("base rhs modified: %v", s.B)
	}
}

func TestSourcesOnlyCollectsSources(t *testing.T) {
	ckt := parse(t, "pulse\nV1 1 0 PULSE(0 2 1 1 1 1 0)\nR1 1 2 1\nI1 0 2 1 PWL(0 1 1 3)\n")
	// a hand-built circuit can carry a waveform on a passive element
	r1, _ := ckt.Element("R1")
	r1.Waveform = device.Pulse{I1: 0, I2: 1, Pw: 1}

	s, err := Build(ckt, Options{Method: util.TrapezoidalMethod})
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, el := range s.Sources() {
		names = append(names, el.Name)
	}
	if len(names) != 2 || names[0] != "I1" || names[1] != "V1" {
		t.Fatalf("sources = %v, want [I1 V1]", names)
	}

	b := make([]float64, s.Dim)
	s.RHSAt(b, s.B, 0.5)
	// V1 is still in its delay, I1 has ramped to 2 into node 2
	if b[s.N] != 0 || b[0] != 0 || b[1] != 2 {
		t.Errorf("rhs = %v, want [0 2 0]", b)
	}

	if err := s.AddSource(b, r1, 1); err == nil {
		t.Error("resistor accepted as a source")
	}
}

func TestExcitation(t *testing.T) {
	ckt := parse(t, "isrc\nI1 0 1 2 PWL(0 2 1 4)\nI2 0 1 1\nR1 1 0 1\n")
	i1, _ := ckt.Element("I1")
	i2, _ := ckt.Element("I2")

	tests := []struct {
		name   string
		ex     Excitation
		i1, i2 float64
	}{
		{"operating point", Excitation{}, 2, 1},
		{"time point", AtTime(0.5), 3, 1},
		{"sweep of I1", Sweeping(i1, 7), 7, 1},
		{"sweep of I2", Sweeping(i2, -1), 2, -1},
	}
	for _, tt := range tests {
		if got := tt.ex.SourceValue(i1); got != tt.i1 {
			t.Errorf("%s: I1 = %g, want %g", tt.name, got, tt.i1)
		}
		if got := tt.ex.SourceValue(i2); got != tt.i2 {
			t.Errorf("%s: I2 = %g, want %g", tt.name, got, tt.i2)
		}
	}

	s, err := Build(ckt, Options{})
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float64, s.Dim)
	if i, _ := s.Current(i1, x, Sweeping(i1, 5e-3)); i != 5e-3 {
		t.Errorf("I(I1) during a sweep = %g, want 5m", i)
	}
}
