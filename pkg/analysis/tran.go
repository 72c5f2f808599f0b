package analysis

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/toy-mna/pkg/circuit"
	"github.com/edp1096/toy-mna/pkg/matrix"
	"github.com/edp1096/toy-mna/pkg/mna"
	"github.com/edp1096/toy-mna/pkg/solver"
	"github.com/edp1096/toy-mna/pkg/util"
)

// Transient marches a fixed step from the DC operating point. The
// companion matrix G + alpha*C is factored once for the whole run.
type Transient struct {
	BaseAnalysis
	tran    circuit.Tran
	alpha   float64
	solver  solver.Solver
	history matrix.Matrix // C for backward Euler, G - alpha*C for trapezoidal
}

func NewTransient(tran circuit.Tran, config Config) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(config, "TIME"),
		tran:         tran,
	}
}

func (tr *Transient) Setup(st *mna.State) error {
	tr.State = st
	if st.C == nil || st.Method == util.NoIntegration {
		return fmt.Errorf("transient: system was built without an integration method")
	}

	tr.alpha = util.GetCompanionCoeff(st.Method, tr.tran.Step)
	a, err := matrix.AddScaled(st.G, st.C, tr.alpha)
	if err != nil {
		return fmt.Errorf("transient: companion matrix: %w", err)
	}

	switch st.Method {
	case util.BackwardEulerMethod:
		tr.history = st.C
	case util.TrapezoidalMethod:
		if tr.history, err = matrix.AddScaled(st.G, st.C, -tr.alpha); err != nil {
			return fmt.Errorf("transient: history matrix: %w", err)
		}
	}

	s, err := solver.New(tr.config.Solver)
	if err != nil {
		return err
	}
	if err := s.Decompose(a); err != nil {
		s.Release()
		return fmt.Errorf("transient: %s: %w", s.Name(), err)
	}
	tr.solver = s
	return nil
}

// Execute expects State.X to hold the operating point.
func (tr *Transient) Execute() error {
	if tr.solver == nil {
		return fmt.Errorf("transient: not set up")
	}
	defer tr.solver.Release()

	st := tr.State
	h := tr.tran.Step
	slots := tr.tran.Slots()
	if tr.config.Debug {
		log.Printf("transient: method %s, step %g, %d slots", st.Method, h, slots)
	}

	x := append([]float64(nil), st.X...)
	xNew := append([]float64(nil), st.X...)
	bPrev := append([]float64(nil), st.B...)
	b := make([]float64, st.Dim)
	rhs := make([]float64, st.Dim)
	hist := make([]float64, st.Dim)

	if err := tr.begin(); err != nil {
		return err
	}
	for k := 1; k <= slots; k++ {
		t := float64(k) * h
		st.RHSAt(b, st.B, t)

		tr.history.MulVec(hist, x)
		switch st.Method {
		case util.BackwardEulerMethod:
			floats.AddScaledTo(rhs, b, tr.alpha, hist)
		case util.TrapezoidalMethod:
			floats.AddTo(rhs, b, bPrev)
			floats.Sub(rhs, hist)
		}

		copy(xNew, x)
		if err := tr.solver.Solve(rhs, xNew); err != nil {
			return fmt.Errorf("transient at t=%g: %w", t, err)
		}
		if err := tr.emit(t, mna.AtTime(t), xNew); err != nil {
			return err
		}

		x, xNew = xNew, x
		b, bPrev = bPrev, b
	}

	return nil
}
