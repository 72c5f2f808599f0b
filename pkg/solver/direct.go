package solver

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-mna/pkg/matrix"
)

// luSolver is the default direct method: gonum LU for dense systems,
// Markowitz LU from edp1096/sparse for compressed ones.
type luSolver struct {
	lifecycle
	n       int
	debug   bool
	storage string
	dense   *mat.LU
	sparse  *matrix.SparseLU
}

func (s *luSolver) Name() string { return "LU/" + s.storage }

func (s *luSolver) Decompose(a matrix.Matrix) error {
	if err := s.beginDecompose(); err != nil {
		return err
	}
	s.drop()
	s.n = a.Dim()
	s.storage = storageName(a)

	switch a := a.(type) {
	case *matrix.CSC:
		lu, err := matrix.NewSparseLU(a)
		if err != nil {
			return err
		}
		if s.debug {
			lu.PrintSystem(log.Writer())
		}
		if err := lu.Factor(); err != nil {
			lu.Destroy()
			return fmt.Errorf("%w: %v", ErrSingular, err)
		}
		s.sparse = lu

	default:
		var lu mat.LU
		lu.Factorize(matrix.ToDense(a).Raw())
		if logDet, _ := lu.LogDet(); math.IsInf(logDet, -1) || math.IsInf(lu.Cond(), 1) {
			return ErrSingular
		}
		s.dense = &lu
	}

	s.decomposed = true
	return nil
}

func (s *luSolver) Solve(b, x []float64) error {
	if err := s.checkSolve(s.n, b, x); err != nil {
		return err
	}

	if s.sparse != nil {
		return s.sparse.Solve(b, x)
	}

	rhs := mat.NewVecDense(s.n, append([]float64(nil), b...))
	err := s.dense.SolveVecTo(mat.NewVecDense(s.n, x), false, rhs)
	var cond mat.Condition
	if errors.As(err, &cond) {
		// ill-conditioned, the result is still returned
		return nil
	}
	return err
}

func (s *luSolver) Release() {
	if s.release() {
		s.drop()
	}
}

func (s *luSolver) drop() {
	if s.sparse != nil {
		s.sparse.Destroy()
		s.sparse = nil
	}
	s.dense = nil
}
