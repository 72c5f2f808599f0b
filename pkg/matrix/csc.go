package matrix

import (
	"fmt"
	"sort"
)

// Triplets collects (row, col, value) entries into storage sized once by a
// pre-count. Going past that count is an error.
type Triplets struct {
	dim  int
	rows []int
	cols []int
	vals []float64
}

func NewTriplets(dim, nnz int) *Triplets {
	return &Triplets{
		dim:  dim,
		rows: make([]int, 0, nnz),
		cols: make([]int, 0, nnz),
		vals: make([]float64, 0, nnz),
	}
}

func (t *Triplets) Dim() int { return t.dim }
func (t *Triplets) Len() int { return len(t.vals) }
func (t *Triplets) Cap() int { return cap(t.vals) }

func (t *Triplets) Add(i, j int, v float64) error {
	if !inRange(i, t.dim) || !inRange(j, t.dim) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrDimension, i, j, t.dim, t.dim)
	}
	if len(t.vals) == cap(t.vals) {
		return fmt.Errorf("%w: %d entries counted", ErrCapacity, cap(t.vals))
	}

	t.rows = append(t.rows, i)
	t.cols = append(t.cols, j)
	t.vals = append(t.vals, v)
	return nil
}

// Compress builds the column-compressed form. Rows are sorted within each
// column and entries sharing a position are summed.
func (t *Triplets) Compress() *CSC {
	order := make([]int, len(t.vals))
	for k := range order {
		order[k] = k
	}
	sort.Slice(order, func(a, b int) bool {
		ka, kb := order[a], order[b]
		if t.cols[ka] != t.cols[kb] {
			return t.cols[ka] < t.cols[kb]
		}
		return t.rows[ka] < t.rows[kb]
	})

	c := &CSC{
		dim:    t.dim,
		colPtr: make([]int, t.dim+1),
		rowIdx: make([]int, 0, len(order)),
		vals:   make([]float64, 0, len(order)),
	}

	prevRow, prevCol := -1, -1
	for _, k := range order {
		row, col := t.rows[k], t.cols[k]
		if row == prevRow && col == prevCol {
			c.vals[len(c.vals)-1] += t.vals[k]
			continue
		}
		c.rowIdx = append(c.rowIdx, row)
		c.vals = append(c.vals, t.vals[k])
		c.colPtr[col+1]++
		prevRow, prevCol = row, col
	}
	for j := 0; j < t.dim; j++ {
		c.colPtr[j+1] += c.colPtr[j]
	}

	return c
}

type CSC struct {
	dim    int
	colPtr []int
	rowIdx []int
	vals   []float64
}

func (c *CSC) Dim() int { return c.dim }
func (c *CSC) NNZ() int { return len(c.vals) }

// Column returns the row indices and values of column j. The slices alias
// the matrix storage.
func (c *CSC) Column(j int) ([]int, []float64) {
	lo, hi := c.colPtr[j], c.colPtr[j+1]
	return c.rowIdx[lo:hi], c.vals[lo:hi]
}

func (c *CSC) At(i, j int) float64 {
	rows, vals := c.Column(j)
	if k := searchSorted(rows, i); k >= 0 {
		return vals[k]
	}
	return 0
}

// Each visits the stored entries column by column.
func (c *CSC) Each(visit func(i, j int, v float64)) {
	for j := 0; j < c.dim; j++ {
		for k := c.colPtr[j]; k < c.colPtr[j+1]; k++ {
			visit(c.rowIdx[k], j, c.vals[k])
		}
	}
}

func (c *CSC) MulVec(dst, x []float64) {
	zeroFill(dst)
	for j := 0; j < c.dim; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := c.colPtr[j]; k < c.colPtr[j+1]; k++ {
			dst[c.rowIdx[k]] += c.vals[k] * xj
		}
	}
}

func (c *CSC) MulTransVec(dst, x []float64) {
	for j := 0; j < c.dim; j++ {
		var sum float64
		for k := c.colPtr[j]; k < c.colPtr[j+1]; k++ {
			sum += c.vals[k] * x[c.rowIdx[k]]
		}
		dst[j] = sum
	}
}

func (c *CSC) Diagonal(dst []float64) {
	for j := range dst {
		dst[j] = c.At(j, j)
	}
}

// AddScaled merges two compressed matrices column by column into c + alpha*b.
func (c *CSC) AddScaled(b *CSC, alpha float64) *CSC {
	out := &CSC{
		dim:    c.dim,
		colPtr: make([]int, c.dim+1),
		rowIdx: make([]int, 0, c.NNZ()+b.NNZ()),
		vals:   make([]float64, 0, c.NNZ()+b.NNZ()),
	}

	for j := 0; j < c.dim; j++ {
		ra, va := c.Column(j)
		rb, vb := b.Column(j)
		p, q := 0, 0
		for p < len(ra) || q < len(rb) {
			switch {
			case q == len(rb) || (p < len(ra) && ra[p] < rb[q]):
				out.rowIdx = append(out.rowIdx, ra[p])
				out.vals = append(out.vals, va[p])
				p++
			case p == len(ra) || rb[q] < ra[p]:
				out.rowIdx = append(out.rowIdx, rb[q])
				out.vals = append(out.vals, alpha*vb[q])
				q++
			default:
				out.rowIdx = append(out.rowIdx, ra[p])
				out.vals = append(out.vals, va[p]+alpha*vb[q])
				p++
				q++
			}
		}
		out.colPtr[j+1] = len(out.vals)
	}

	return out
}
