package matrix

import (
	"errors"
	"fmt"
)

var (
	ErrCapacity  = errors.New("matrix: triplet capacity exceeded")
	ErrDimension = errors.New("matrix: dimension mismatch")
)

// Matrix is the read side shared by the dense and compressed storages.
// Indices are 0-based.
type Matrix interface {
	Dim() int
	At(i, j int) float64
	MulVec(dst, x []float64)      // dst = A*x
	MulTransVec(dst, x []float64) // dst = A^T*x
	Diagonal(dst []float64)
}

// Stamper accumulates entries; repeated positions are summed.
type Stamper interface {
	Add(i, j int, v float64) error
}

var (
	_ Matrix  = (*Dense)(nil)
	_ Matrix  = (*CSC)(nil)
	_ Stamper = (*Dense)(nil)
	_ Stamper = (*Triplets)(nil)
)

// AddScaled returns a + alpha*b. Both operands must share storage and size.
func AddScaled(a, b Matrix, alpha float64) (Matrix, error) {
	if a.Dim() != b.Dim() {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimension, a.Dim(), b.Dim())
	}

	switch a := a.(type) {
	case *Dense:
		if b, ok := b.(*Dense); ok {
			return a.AddScaled(b, alpha), nil
		}
	case *CSC:
		if b, ok := b.(*CSC); ok {
			return a.AddScaled(b, alpha), nil
		}
	}
	return nil, fmt.Errorf("%w: mixed storage %T and %T", ErrDimension, a, b)
}

// ToDense copies any matrix into dense storage.
func ToDense(a Matrix) *Dense {
	if d, ok := a.(*Dense); ok {
		return d
	}

	n := a.Dim()
	d := NewDense(n)
	if c, ok := a.(*CSC); ok {
		c.Each(func(i, j int, v float64) {
			d.m.Set(i, j, d.m.At(i, j)+v)
		})
		return d
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.m.Set(i, j, a.At(i, j))
		}
	}
	return d
}
