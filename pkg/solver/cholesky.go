package solver

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-mna/internal/consts"
	"github.com/edp1096/toy-mna/pkg/matrix"
)

// choleskySolver factors symmetric positive definite systems, with gonum
// for dense storage and a left-looking column factorization for compressed
// storage.
type choleskySolver struct {
	lifecycle
	n       int
	storage string
	dense   *mat.Cholesky
	sparse  *columnCholesky
}

func (s *choleskySolver) Name() string { return "Cholesky/" + s.storage }

func (s *choleskySolver) Decompose(a matrix.Matrix) error {
	if err := s.beginDecompose(); err != nil {
		return err
	}
	s.dense, s.sparse = nil, nil
	s.n = a.Dim()
	s.storage = storageName(a)

	if !isSymmetric(a) {
		return fmt.Errorf("%w: matrix is not symmetric", ErrNotPositiveDefinite)
	}

	switch a := a.(type) {
	case *matrix.CSC:
		f, err := factorColumns(a)
		if err != nil {
			return err
		}
		s.sparse = f

	default:
		sym := mat.NewSymDense(s.n, nil)
		for i := 0; i < s.n; i++ {
			for j := i; j < s.n; j++ {
				sym.SetSym(i, j, a.At(i, j))
			}
		}
		var chol mat.Cholesky
		if ok := chol.Factorize(sym); !ok {
			return ErrNotPositiveDefinite
		}
		s.dense = &chol
	}

	s.decomposed = true
	return nil
}

func (s *choleskySolver) Solve(b, x []float64) error {
	if err := s.checkSolve(s.n, b, x); err != nil {
		return err
	}

	if s.sparse != nil {
		s.sparse.solve(b, x)
		return nil
	}
	rhs := mat.NewVecDense(s.n, append([]float64(nil), b...))
	if err := s.dense.SolveVecTo(mat.NewVecDense(s.n, x), rhs); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return err
		}
	}
	return nil
}

func (s *choleskySolver) Release() {
	if s.release() {
		s.dense, s.sparse = nil, nil
	}
}

// columnCholesky holds L column by column; each column starts with its
// diagonal entry and keeps its rows sorted.
type columnCholesky struct {
	n    int
	rows [][]int
	vals [][]float64
}

type rowRef struct {
	col int // column of L holding an entry in this row
	pos int // position of that entry inside the column
}

func factorColumns(a *matrix.CSC) (*columnCholesky, error) {
	n := a.Dim()
	f := &columnCholesky{
		n:    n,
		rows: make([][]int, n),
		vals: make([][]float64, n),
	}

	work := make([]float64, n)
	mark := make([]bool, n)
	inRow := make([][]rowRef, n)
	var touched []int

	for j := 0; j < n; j++ {
		touched = touched[:0]
		touch := func(i int) {
			if !mark[i] {
				mark[i] = true
				touched = append(touched, i)
			}
		}

		rows, vals := a.Column(j)
		for k, i := range rows {
			if i >= j {
				touch(i)
				work[i] += vals[k]
			}
		}

		// subtract the contribution of every earlier column with an entry in row j
		for _, ref := range inRow[j] {
			lrows, lvals := f.rows[ref.col], f.vals[ref.col]
			ljk := lvals[ref.pos]
			for p := ref.pos; p < len(lrows); p++ {
				touch(lrows[p])
				work[lrows[p]] -= lvals[p] * ljk
			}
		}

		d := work[j]
		if !mark[j] || d <= consts.PIVOT_EPS {
			return nil, fmt.Errorf("%w: pivot %g at column %d", ErrNotPositiveDefinite, d, j)
		}
		ljj := math.Sqrt(d)

		sort.Ints(touched)
		f.rows[j] = make([]int, 0, len(touched))
		f.vals[j] = make([]float64, 0, len(touched))
		for _, i := range touched {
			v := work[i]
			work[i], mark[i] = 0, false
			if i == j {
				v = ljj
			} else {
				if v == 0 {
					continue
				}
				v /= ljj
				inRow[i] = append(inRow[i], rowRef{col: j, pos: len(f.rows[j])})
			}
			f.rows[j] = append(f.rows[j], i)
			f.vals[j] = append(f.vals[j], v)
		}
	}

	return f, nil
}

// solve runs L*y = b then L^T*x = y.
func (f *columnCholesky) solve(b, x []float64) {
	copy(x, b)
	for j := 0; j < f.n; j++ {
		rows, vals := f.rows[j], f.vals[j]
		x[j] /= vals[0]
		for p := 1; p < len(rows); p++ {
			x[rows[p]] -= vals[p] * x[j]
		}
	}
	for j := f.n - 1; j >= 0; j-- {
		rows, vals := f.rows[j], f.vals[j]
		sum := x[j]
		for p := 1; p < len(rows); p++ {
			sum -= vals[p] * x[rows[p]]
		}
		x[j] = sum / vals[0]
	}
}
