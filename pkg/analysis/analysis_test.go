package analysis

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/mna"
	"github.com/edp1096/toy-mna/pkg/netlist"
	"github.com/edp1096/toy-mna/pkg/solver"
	"github.com/edp1096/toy-mna/pkg/util"
)

type recorder struct {
	op     int
	axes   []string
	points []float64
}

func (r *recorder) OperatingPoint(st *mna.State, x []float64) error {
	r.op++
	return nil
}

func (r *recorder) Begin(axis string) error {
	r.axes = append(r.axes, axis)
	return nil
}

func (r *recorder) Point(at float64, ex mna.Excitation, st *mna.State, x []float64) error {
	r.points = append(r.points, at)
	return nil
}

func build(t *testing.T, src string, opts mna.Options) (*circuit.Circuit, *mna.State) {
	t.Helper()
	ckt, err := netlist.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	st, err := mna.Build(ckt, opts)
	if err != nil {
		t.Fatal(err)
	}
	return ckt, st
}

func runOP(t *testing.T, st *mna.State, config Config) *OperatingPoint {
	t.Helper()
	op := NewOP(config)
	if err := op.Setup(st); err != nil {
		t.Fatal(err)
	}
	if err := op.Execute(); err != nil {
		t.Fatal(err)
	}
	return op
}

func TestDCSweepDivider(t *testing.T) {
	for _, sparse := range []bool{false, true} {
		ckt, st := build(t, "divider\nV1 1 0 0\nR1 1 2 1k\nR2 2 0 1k\n.dc V1 0 1 0.25\n", mna.Options{Sparse: sparse})
		rec := &recorder{}
		config := Config{Solver: solver.Options{Method: solver.LU}, Sink: rec}

		op := runOP(t, st, config)
		defer op.Release()

		dc := NewDCSweep(ckt.Sweeps[0], op, config)
		if err := dc.Setup(st); err != nil {
			t.Fatal(err)
		}
		if err := dc.Execute(); err != nil {
			t.Fatal(err)
		}

		results := dc.GetResults()
		at, v2 := results["V1"], results["V(2)"]
		want := []float64{0.25, 0.5, 0.75, 1.0}
		if len(at) != len(want) || len(v2) != len(want) {
			t.Fatalf("sparse=%v: %d points, want %d", sparse, len(at), len(want))
		}
		for k := range want {
			if math.Abs(at[k]-want[k]) > 1e-12 {
				t.Errorf("sparse=%v point %d at %g, want %g", sparse, k, at[k], want[k])
			}
			if math.Abs(v2[k]-want[k]/2) > 1e-12 {
				t.Errorf("sparse=%v V(2) at %g = %g, want %g", sparse, at[k], v2[k], want[k]/2)
			}
		}

		if rec.op != 1 || len(rec.axes) != 1 || rec.axes[0] != "V1" || len(rec.points) != 4 {
			t.Errorf("sink saw op=%d axes=%v points=%v", rec.op, rec.axes, rec.points)
		}
		if st.B[st.N] != 0 {
			t.Errorf("base rhs changed by the sweep: %v", st.B)
		}
	}
}

func TestDCSweepUnknownSource(t *testing.T) {
	_, st := build(t, "divider\nV1 1 0 1\nR1 1 0 1k\n", mna.Options{})
	op := runOP(t, st, Config{})
	defer op.Release()

	dc := NewDCSweep(circuit.DCSweep{Source: "V9", Begin: 0, End: 1, Step: 0.5}, op, Config{})
	if err := dc.Setup(st); err != nil {
		t.Fatal(err)
	}
	if !dc.Skipped() {
		t.Fatal("sweep over an unknown source not skipped")
	}
	if err := dc.Execute(); err != nil {
		t.Fatal(err)
	}
	if len(dc.GetResults()) != 0 {
		t.Errorf("skipped sweep produced results")
	}
}

func TestOperatingPointResults(t *testing.T) {
	_, st := build(t, "divider\nV1 in 0 9\nR1 in out 2k\nR2 out 0 1k\n", mna.Options{})
	op := runOP(t, st, Config{})
	defer op.Release()

	results := op.GetResults()
	if v := results["V(out)"]; len(v) != 1 || math.Abs(v[0]-3) > 1e-12 {
		t.Errorf("V(out) = %v, want [3]", v)
	}
	if i := results["I(V1)"]; len(i) != 1 || math.Abs(i[0]+3e-3) > 1e-15 {
		t.Errorf("I(V1) = %v, want [-3m]", i)
	}
}

func TestOperatingPointBreakdown(t *testing.T) {
	// the source row has a zero diagonal and b lives only there
	_, st := build(t, "divider\nV1 in 0 9\nR1 in out 2k\nR2 out 0 1k\n", mna.Options{})
	op := NewOP(Config{Solver: solver.Options{Method: solver.BiCG, Tol: 1e-12}})
	if err := op.Setup(st); err != nil {
		t.Fatal(err)
	}
	defer op.Release()

	if err := op.Execute(); !errors.Is(err, solver.ErrBreakdown) {
		t.Fatalf("Execute: %v, want breakdown", err)
	}
}

// stepCase is a first-order circuit driven by a unit step whose response
// at key is scale*(1-exp(-t/tau)).
type stepCase struct {
	name  string
	src   string // netlist with a %g slot for the time step
	key   string
	scale float64
	tau   float64
}

var stepCases = []stepCase{
	{
		name:  "rc",
		src:   "rc\nV1 in 0 PULSE(0 1 0 0 0 1 0)\nR1 in out 1k\nC1 out 0 1u\n.tran %g 5m\n",
		key:   "V(out)",
		scale: 1,
		tau:   1e-3,
	},
	{
		// the inductor current flows from out to ground
		name:  "rl",
		src:   "rl\nV1 in 0 PULSE(0 1 0 0 0 1 0)\nR1 in out 1k\nL1 out 0 1\n.tran %g 5m\n",
		key:   "I(L1)",
		scale: 1e-3,
		tau:   1e-3,
	},
}

// maxStepError runs the step case and returns the worst deviation of the
// normalized response from 1-exp(-t/tau).
func maxStepError(t *testing.T, sc stepCase, method util.IntegrationMethod, h float64, sparse bool) float64 {
	t.Helper()

	ckt, st := build(t, fmt.Sprintf(sc.src, h), mna.Options{Sparse: sparse, Method: method})
	config := Config{Solver: solver.Options{Method: solver.LU}}

	op := runOP(t, st, config)
	op.Release()

	tr := NewTransient(*ckt.Tran, config)
	if err := tr.Setup(st); err != nil {
		t.Fatal(err)
	}
	if err := tr.Execute(); err != nil {
		t.Fatal(err)
	}

	results := tr.GetResults()
	times, got := results["TIME"], results[sc.key]
	if len(times) != ckt.Tran.Slots() || len(got) != len(times) {
		t.Fatalf("%s: %d points of %s, want %d", sc.name, len(got), sc.key, ckt.Tran.Slots())
	}

	var worst float64
	for k, at := range times {
		want := 1 - math.Exp(-at/sc.tau)
		worst = math.Max(worst, math.Abs(got[k]/sc.scale-want))
	}
	return worst
}

func TestTransientStep(t *testing.T) {
	for _, sc := range stepCases {
		for _, method := range []util.IntegrationMethod{util.BackwardEulerMethod, util.TrapezoidalMethod} {
			for _, sparse := range []bool{false, true} {
				coarse := maxStepError(t, sc, method, sc.tau/20, sparse)
				fine := maxStepError(t, sc, method, sc.tau/80, sparse)

				if fine > coarse/2 {
					t.Errorf("%s %s sparse=%v: error %g at tau/80 vs %g at tau/20, no convergence", sc.name, method, sparse, fine, coarse)
				}
				if fine > 1e-2 {
					t.Errorf("%s %s sparse=%v: error %g at tau/80", sc.name, method, sparse, fine)
				}
			}
		}
	}
}

func TestTransientNeedsMethod(t *testing.T) {
	_, st := build(t, "rc\nV1 in 0 1\nR1 in out 1k\nC1 out 0 1u\n", mna.Options{})
	tr := NewTransient(circuit.Tran{Step: 1e-5, Fin: 1e-3}, Config{})
	if err := tr.Setup(st); err == nil {
		t.Fatal("transient set up on a system built without a method")
	}
}
