package solver

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-mna/internal/consts"
	"github.com/edp1096/toy-mna/pkg/matrix"
)

type Method int

const (
	LU Method = iota
	Cholesky
	CG
	BiCG
)

func (m Method) String() string {
	switch m {
	case Cholesky:
		return "Cholesky"
	case CG:
		return "CG"
	case BiCG:
		return "BiCG"
	default:
		return "LU"
	}
}

// MethodFor maps the spd and iter options onto a method.
func MethodFor(spd, iter bool) Method {
	switch {
	case spd && iter:
		return CG
	case iter:
		return BiCG
	case spd:
		return Cholesky
	default:
		return LU
	}
}

type Options struct {
	Method Method
	Tol    float64 // relative residual target of the iterative methods
	Debug  bool
}

// Solver owns one factorization. Decompose runs once per analysis phase,
// Solve once per right-hand side and Release once at the end. The storage
// (dense or compressed) follows the matrix handed to Decompose.
type Solver interface {
	Decompose(a matrix.Matrix) error
	Solve(b, x []float64) error
	Release()
	Name() string
}

func New(opts Options) (Solver, error) {
	if opts.Tol <= 0 {
		opts.Tol = consts.DEFAULT_ITOL
	}

	switch opts.Method {
	case LU:
		return &luSolver{debug: opts.Debug}, nil
	case Cholesky:
		return &choleskySolver{}, nil
	case CG:
		return &cgSolver{iterative: iterative{opts: opts}}, nil
	case BiCG:
		return &bicgSolver{iterative: iterative{opts: opts}}, nil
	}
	return nil, fmt.Errorf("unknown solver method %d", opts.Method)
}

// lifecycle tracks the decompose/solve/release states shared by all
// variants.
type lifecycle struct {
	decomposed bool
	released   bool
}

// beginDecompose drops the decomposed state; only a successful Decompose
// restores it.
func (l *lifecycle) beginDecompose() error {
	if l.released {
		return ErrReleased
	}
	l.decomposed = false
	return nil
}

func (l *lifecycle) checkSolve(n int, b, x []float64) error {
	if l.released {
		return ErrReleased
	}
	if !l.decomposed {
		return ErrNotDecomposed
	}
	if len(b) != n || len(x) != n {
		return fmt.Errorf("%w: rhs %d, solution %d, system %d", matrix.ErrDimension, len(b), len(x), n)
	}
	return nil
}

// release reports whether this is the first call.
func (l *lifecycle) release() bool {
	if l.released {
		return false
	}
	l.released = true
	l.decomposed = false
	return true
}

func storageName(a matrix.Matrix) string {
	if _, ok := a.(*matrix.CSC); ok {
		return "sparse"
	}
	return "dense"
}

func isSymmetric(a matrix.Matrix) bool {
	const tol = 1e-12
	near := func(x, y float64) bool {
		return math.Abs(x-y) <= tol*(1+math.Abs(x))
	}

	if c, ok := a.(*matrix.CSC); ok {
		sym := true
		c.Each(func(i, j int, v float64) {
			if sym && i != j && !near(v, c.At(j, i)) {
				sym = false
			}
		})
		return sym
	}

	n := a.Dim()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !near(a.At(i, j), a.At(j, i)) {
				return false
			}
		}
	}
	return true
}
