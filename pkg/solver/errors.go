package solver

import "errors"

var (
	ErrBreakdown           = errors.New("solver: iterative solver breakdown")
	ErrSingular            = errors.New("solver: singular matrix")
	ErrNotPositiveDefinite = errors.New("solver: matrix is not symmetric positive definite")
	ErrReleased            = errors.New("solver: factorization already released")
	ErrNotDecomposed       = errors.New("solver: solve before decompose")
)
