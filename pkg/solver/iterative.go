package solver

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/toy-mna/internal/consts"
	"github.com/edp1096/toy-mna/pkg/matrix"
)

// iterative holds what CG and BiCG share: the system matrix and the
// inverse of its diagonal as a Jacobi preconditioner. There is nothing to
// factor, Decompose only captures the matrix.
type iterative struct {
	lifecycle
	opts    Options
	n       int
	a       matrix.Matrix
	invDiag []float64
	storage string

	Iterations int     // of the last Solve
	Residual   float64 // relative residual of the last Solve
}

func (s *iterative) Decompose(a matrix.Matrix) error {
	if err := s.beginDecompose(); err != nil {
		return err
	}

	n := a.Dim()
	s.n = n
	s.a = a
	s.storage = storageName(a)
	s.invDiag = make([]float64, n)
	a.Diagonal(s.invDiag)
	for i, d := range s.invDiag {
		if math.Abs(d) < consts.PIVOT_EPS {
			s.invDiag[i] = 1
		} else {
			s.invDiag[i] = 1 / d
		}
	}

	s.decomposed = true
	return nil
}

func (s *iterative) Release() {
	if s.release() {
		s.a, s.invDiag = nil, nil
	}
}

// residual sets r = b - A*x and returns the relative norm.
func (s *iterative) residual(r, b, x []float64, bnorm float64) float64 {
	s.a.MulVec(r, x)
	floats.SubTo(r, b, r)
	return floats.Norm(r, 2) / bnorm
}

func (s *iterative) trace(name string, iters int, res float64) {
	s.Iterations, s.Residual = iters, res
	if s.opts.Debug {
		log.Printf("%s/%s: %d iterations, residual %e (tol %e)", name, s.storage, iters, res, s.opts.Tol)
	}
}

func normFloor(b []float64) float64 {
	if n := floats.Norm(b, 2); n > 0 {
		return n
	}
	return 1
}

// cgSolver is the Jacobi preconditioned conjugate gradient method for
// symmetric positive definite systems. x is used as the starting guess.
type cgSolver struct {
	iterative
}

func (s *cgSolver) Name() string { return "CG/" + s.storage }

func (s *cgSolver) Solve(b, x []float64) error {
	n := s.n
	if err := s.checkSolve(n, b, x); err != nil {
		return err
	}

	r := make([]float64, n)
	z := make([]float64, n)
	p := make([]float64, n)
	q := make([]float64, n)

	bnorm := normFloor(b)
	res := s.residual(r, b, x, bnorm)
	floats.MulTo(z, s.invDiag, r)
	copy(p, z)
	rz := floats.Dot(r, z)

	iter := 0
	for ; iter < n && res > s.opts.Tol; iter++ {
		s.a.MulVec(q, p)
		pq := floats.Dot(p, q)
		if pq <= 0 {
			s.trace("CG", iter, res)
			return fmt.Errorf("%w: p'Ap = %g at iteration %d", ErrNotPositiveDefinite, pq, iter)
		}

		alpha := rz / pq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)
		res = floats.Norm(r, 2) / bnorm

		floats.MulTo(z, s.invDiag, r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		floats.AddScaledTo(p, z, beta, p)
	}

	s.trace("CG", iter, res)
	return nil
}

// bicgSolver is the Jacobi preconditioned biconjugate gradient method for
// general systems. It needs products with A and A^T.
type bicgSolver struct {
	iterative
}

func (s *bicgSolver) Name() string { return "BiCG/" + s.storage }

func (s *bicgSolver) Solve(b, x []float64) error {
	n := s.n
	if err := s.checkSolve(n, b, x); err != nil {
		return err
	}

	r := make([]float64, n)
	rt := make([]float64, n)
	z := make([]float64, n)
	zt := make([]float64, n)
	p := make([]float64, n)
	pt := make([]float64, n)
	q := make([]float64, n)
	qt := make([]float64, n)

	maxIter := n
	if maxIter < consts.BICG_MIN_ITERS {
		maxIter = consts.BICG_MIN_ITERS
	}

	bnorm := normFloor(b)
	res := s.residual(r, b, x, bnorm)
	copy(rt, r)

	var rhoPrev float64
	iter := 0
	for ; iter < maxIter && res > s.opts.Tol; iter++ {
		floats.MulTo(z, s.invDiag, r)
		floats.MulTo(zt, s.invDiag, rt)

		rho := floats.Dot(z, rt)
		if math.Abs(rho) < consts.BREAKDOWN_EPS {
			s.trace("BiCG", iter, res)
			return fmt.Errorf("%w: |rho| = %g at iteration %d", ErrBreakdown, math.Abs(rho), iter)
		}

		if iter == 0 {
			copy(p, z)
			copy(pt, zt)
		} else {
			beta := rho / rhoPrev
			floats.AddScaledTo(p, z, beta, p)
			floats.AddScaledTo(pt, zt, beta, pt)
		}

		s.a.MulVec(q, p)
		s.a.MulTransVec(qt, pt)
		omega := floats.Dot(pt, q)
		if math.Abs(omega) < consts.BREAKDOWN_EPS {
			s.trace("BiCG", iter, res)
			return fmt.Errorf("%w: |omega| = %g at iteration %d", ErrBreakdown, math.Abs(omega), iter)
		}

		alpha := rho / omega
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)
		floats.AddScaled(rt, -alpha, qt)
		res = floats.Norm(r, 2) / bnorm
		rhoPrev = rho
	}

	s.trace("BiCG", iter, res)
	return nil
}
