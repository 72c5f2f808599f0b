package solver

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/edp1096/toy-mna/pkg/matrix"
)

type entry struct {
	i, j int
	v    float64
}

func storages(t *testing.T, n int, entries []entry) []matrix.Matrix {
	t.Helper()

	d := matrix.NewDense(n)
	tr := matrix.NewTriplets(n, len(entries))
	for _, e := range entries {
		if err := d.Add(e.i, e.j, e.v); err != nil {
			t.Fatal(err)
		}
		if err := tr.Add(e.i, e.j, e.v); err != nil {
			t.Fatal(err)
		}
	}
	return []matrix.Matrix{d, tr.Compress()}
}

// spdSystem is tridiag(-1, 4, -1) with solution 1..n.
func spdSystem(n int) ([]entry, []float64, []float64) {
	var entries []entry
	for i := 0; i < n; i++ {
		entries = append(entries, entry{i, i, 4})
		if i > 0 {
			entries = append(entries, entry{i, i - 1, -1}, entry{i - 1, i, -1})
		}
	}

	want := make([]float64, n)
	b := make([]float64, n)
	for i := range want {
		want[i] = float64(i + 1)
	}
	for _, e := range entries {
		b[e.i] += e.v * want[e.j]
	}
	return entries, b, want
}

// mnaSystem is V1=1V feeding R1=1 and R2=1 in series to ground.
func mnaSystem() ([]entry, []float64, []float64) {
	entries := []entry{
		{0, 0, 1}, {0, 1, -1}, {1, 0, -1}, {1, 1, 2},
		{0, 2, 1}, {2, 0, 1},
	}
	return entries, []float64{0, 0, 1}, []float64{1, 0.5, -0.5}
}

func assertClose(t *testing.T, name string, got, want []float64, tol float64) {
	t.Helper()
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol*math.Max(1, math.Abs(want[i])) {
			t.Errorf("%s: x[%d] = %.12g, want %.12g", name, i, got[i], want[i])
		}
	}
}

func TestAllVariantsOnSPD(t *testing.T) {
	entries, b, want := spdSystem(6)

	for _, method := range []Method{LU, Cholesky, CG, BiCG} {
		for _, a := range storages(t, len(b), entries) {
			s, err := New(Options{Method: method, Tol: 1e-10})
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Decompose(a); err != nil {
				t.Fatalf("%s: decompose: %v", s.Name(), err)
			}

			x := make([]float64, len(b))
			if err := s.Solve(b, x); err != nil {
				t.Fatalf("%s: solve: %v", s.Name(), err)
			}
			s.Release()

			tol := 1e-9
			if method == CG || method == BiCG {
				tol = 1e-8
			}
			assertClose(t, s.Name(), x, want, tol)
		}
	}
}

func TestIterativeMatchesCholesky(t *testing.T) {
	entries, b, _ := spdSystem(12)
	a := storages(t, len(b), entries)[1]

	ref, _ := New(Options{Method: Cholesky})
	if err := ref.Decompose(a); err != nil {
		t.Fatal(err)
	}
	defer ref.Release()
	xref := make([]float64, len(b))
	if err := ref.Solve(b, xref); err != nil {
		t.Fatal(err)
	}

	for _, method := range []Method{CG, BiCG} {
		tol := 1e-6
		s, _ := New(Options{Method: method, Tol: tol})
		if err := s.Decompose(a); err != nil {
			t.Fatal(err)
		}
		x := make([]float64, len(b))
		if err := s.Solve(b, x); err != nil {
			t.Fatalf("%s: %v", s.Name(), err)
		}
		s.Release()
		// error is bounded by cond(A) * residual, cond < 3 here
		assertClose(t, s.Name(), x, xref, 100*tol)
	}
}

func TestDirectOnMNA(t *testing.T) {
	entries, b, want := mnaSystem()

	for _, a := range storages(t, len(b), entries) {
		s, _ := New(Options{Method: LU})
		if err := s.Decompose(a); err != nil {
			t.Fatalf("%s: %v", s.Name(), err)
		}
		x := make([]float64, len(b))
		if err := s.Solve(b, x); err != nil {
			t.Fatal(err)
		}
		s.Release()
		assertClose(t, s.Name(), x, want, 1e-12)
	}
}

func TestBiCGBreakdown(t *testing.T) {
	// z = D^-1 r = (1,-1) is orthogonal to r = (1,1): rho vanishes at once
	entries := []entry{{0, 0, 1}, {0, 1, 1}, {1, 0, 1}, {1, 1, -1}}

	for _, a := range storages(t, 2, entries) {
		s, _ := New(Options{Method: BiCG, Tol: 1e-9})
		if err := s.Decompose(a); err != nil {
			t.Fatal(err)
		}
		x := make([]float64, 2)
		err := s.Solve([]float64{1, 1}, x)
		if !errors.Is(err, ErrBreakdown) {
			t.Errorf("%s: err = %v, want ErrBreakdown", s.Name(), err)
		}
		s.Release()
	}
}

func TestCholeskyRejectsIndefinite(t *testing.T) {
	entries, _, _ := mnaSystem()

	for _, a := range storages(t, 3, entries) {
		s, _ := New(Options{Method: Cholesky})
		if err := s.Decompose(a); !errors.Is(err, ErrNotPositiveDefinite) {
			t.Errorf("%s: err = %v, want ErrNotPositiveDefinite", s.Name(), err)
		}
	}
}

func TestSingular(t *testing.T) {
	entries := []entry{{0, 0, 1}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1}}

	for _, a := range storages(t, 2, entries) {
		s, _ := New(Options{Method: LU})
		if err := s.Decompose(a); !errors.Is(err, ErrSingular) {
			t.Errorf("%s: err = %v, want ErrSingular", s.Name(), err)
		}
		s.Release()
	}
}

func TestLifecycle(t *testing.T) {
	entries, b, _ := spdSystem(3)

	for _, method := range []Method{LU, Cholesky, CG, BiCG} {
		t.Run(fmt.Sprint(method), func(t *testing.T) {
			s, _ := New(Options{Method: method})
			x := make([]float64, 3)

			if err := s.Solve(b, x); !errors.Is(err, ErrNotDecomposed) {
				t.Fatalf("solve before decompose: %v", err)
			}
			if err := s.Decompose(storages(t, 3, entries)[0]); err != nil {
				t.Fatal(err)
			}
			if err := s.Solve(b[:2], x); !errors.Is(err, matrix.ErrDimension) {
				t.Fatalf("short rhs: %v", err)
			}

			s.Release()
			s.Release()
			if err := s.Solve(b, x); !errors.Is(err, ErrReleased) {
				t.Fatalf("solve after release: %v", err)
			}
			if err := s.Decompose(storages(t, 3, entries)[0]); !errors.Is(err, ErrReleased) {
				t.Fatalf("decompose after release: %v", err)
			}
		})
	}
}

func TestFailedRefactorization(t *testing.T) {
	identity := []entry{{0, 0, 1}, {1, 1, 1}}
	singular := []entry{{0, 0, 1}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1}}

	for _, method := range []Method{LU, Cholesky} {
		for k, good := range storages(t, 2, identity) {
			bad := storages(t, 2, singular)[k]

			s, _ := New(Options{Method: method})
			if err := s.Decompose(good); err != nil {
				t.Fatal(err)
			}
			if err := s.Decompose(bad); err == nil {
				t.Fatalf("%s: singular matrix factored", s.Name())
			}

			// the first factorization is gone with the failed one
			x := make([]float64, 2)
			if err := s.Solve([]float64{1, 1}, x); !errors.Is(err, ErrNotDecomposed) {
				t.Errorf("%s: solve after failed decompose: %v", s.Name(), err)
			}
			s.Release()
		}
	}
}

func TestMethodFor(t *testing.T) {
	tests := []struct {
		spd, iter bool
		want      Method
	}{
		{false, false, LU},
		{true, false, Cholesky},
		{true, true, CG},
		{false, true, BiCG},
	}
	for _, tt := range tests {
		if got := MethodFor(tt.spd, tt.iter); got != tt.want {
			t.Errorf("MethodFor(%v, %v) = %v, want %v", tt.spd, tt.iter, got, tt.want)
		}
	}
}
