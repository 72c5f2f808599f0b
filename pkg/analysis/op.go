package analysis

import (
	"fmt"

	"github.com/edp1096/toy-mna/pkg/mna"
	"github.com/edp1096/toy-mna/pkg/solver"
)

// OperatingPoint factors G once and solves the DC system. The
// factorization stays alive for the DC sweeps that follow and is released
// by Release.
type OperatingPoint struct {
	BaseAnalysis
	solver solver.Solver
}

func NewOP(config Config) *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(config, "OP"),
	}
}

func (op *OperatingPoint) Setup(st *mna.State) error {
	op.State = st

	s, err := solver.New(op.config.Solver)
	if err != nil {
		return err
	}
	if err := s.Decompose(st.G); err != nil {
		s.Release()
		return fmt.Errorf("operating point: %s: %w", s.Name(), err)
	}
	op.solver = s
	return nil
}

func (op *OperatingPoint) Execute() error {
	if op.solver == nil {
		return fmt.Errorf("operating point: not set up")
	}

	st := op.State
	if err := op.solver.Solve(st.B, st.X); err != nil {
		return fmt.Errorf("operating point: %s: %w", op.solver.Name(), err)
	}
	op.storeResults(st.X)

	if op.config.Sink != nil {
		return op.config.Sink.OperatingPoint(st, st.X)
	}
	return nil
}

// Solver exposes the DC factorization to the sweeps.
func (op *OperatingPoint) Solver() solver.Solver { return op.solver }

func (op *OperatingPoint) Release() {
	if op.solver != nil {
		op.solver.Release()
	}
}

func (op *OperatingPoint) storeResults(x []float64) {
	for i, v := range x {
		op.results[op.State.UnknownName(i)] = []float64{v}
	}
}
