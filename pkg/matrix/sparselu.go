package matrix

import (
	"fmt"
	"io"
	"math"

	"github.com/edp1096/sparse"
)

// SparseLU factors a compressed matrix with the Markowitz LU of
// edp1096/sparse. The factorization overwrites its own copy of the values,
// so the source CSC stays usable for products.
type SparseLU struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	config   *sparse.Configuration
}

func NewSparseLU(a *CSC) (*SparseLU, error) {
	config := &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
		Annotate:       0,
	}

	size := a.Dim()
	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	lu := &SparseLU{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size),
		config:   config,
	}

	a.Each(func(i, j int, v float64) {
		lu.matrix.GetElement(int64(i+1), int64(j+1)).Real += v
	})
	return lu, nil
}

func (m *SparseLU) Factor() error {
	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %v", err)
	}

	// Diags hold reciprocal pivots once factored
	for i := 1; i <= m.Size; i++ {
		d := m.matrix.Diags[i]
		if d == nil || d.Real == 0 || math.IsInf(d.Real, 0) || math.IsNaN(d.Real) {
			return fmt.Errorf("matrix factorization failed: zero pivot at step %d", i)
		}
	}
	return nil
}

// Solve writes the solution of A*x = b into x. b and x are 0-based.
func (m *SparseLU) Solve(b, x []float64) error {
	if len(b) != m.Size || len(x) != m.Size {
		return fmt.Errorf("%w: rhs %d, solution %d, matrix %d", ErrDimension, len(b), len(x), m.Size)
	}

	copy(m.rhs[1:], b)
	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %v", err)
	}
	copy(x, solution[1:m.Size+1])
	return nil
}

// PrintSystem lists the stored elements column by column, 0-based in the
// original ordering.
func (m *SparseLU) PrintSystem(w io.Writer) {
	state := "before factorization"
	if m.matrix.Factored {
		state = "after factorization"
	}
	fmt.Fprintf(w, "\nSparse LU (%dx%d, %d elements) %s:\n", m.Size, m.Size, m.matrix.ElementCount(), state)

	rows, cols := m.matrix.IntToExtRowMap, m.matrix.IntToExtColMap
	for col := int64(1); col <= m.matrix.Size; col++ {
		for e := m.matrix.FirstInCol[col]; e != nil; e = e.NextInCol {
			fmt.Fprintf(w, "  (%d,%d) %g\n", rows[e.Row]-1, cols[e.Col]-1, e.Real)
		}
	}
}

func (m *SparseLU) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
