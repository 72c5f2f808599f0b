package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Dense struct {
	m *mat.Dense
}

func NewDense(n int) *Dense {
	return &Dense{m: mat.NewDense(n, n, nil)}
}

// Raw exposes the gonum matrix to the dense factorizations.
func (d *Dense) Raw() *mat.Dense { return d.m }

func (d *Dense) Dim() int {
	r, _ := d.m.Dims()
	return r
}

func (d *Dense) At(i, j int) float64 { return d.m.At(i, j) }

func (d *Dense) Add(i, j int, v float64) error {
	n := d.Dim()
	if !inRange(i, n) || !inRange(j, n) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrDimension, i, j, n, n)
	}
	d.m.Set(i, j, d.m.At(i, j)+v)
	return nil
}

func (d *Dense) MulVec(dst, x []float64) {
	n := d.Dim()
	mat.NewVecDense(n, dst).MulVec(d.m, mat.NewVecDense(n, x))
}

func (d *Dense) MulTransVec(dst, x []float64) {
	n := d.Dim()
	mat.NewVecDense(n, dst).MulVec(d.m.T(), mat.NewVecDense(n, x))
}

func (d *Dense) Diagonal(dst []float64) {
	for i := range dst {
		dst[i] = d.m.At(i, i)
	}
}

func (d *Dense) AddScaled(b *Dense, alpha float64) *Dense {
	n := d.Dim()
	out := mat.NewDense(n, n, nil)
	out.Scale(alpha, b.m)
	out.Add(d.m, out)
	return &Dense{m: out}
}

func (d *Dense) String() string {
	return fmt.Sprintf("%v", mat.Formatted(d.m, mat.Squeeze()))
}
