// Package dual implements forward-mode automatic differentiation to second
// order.
//
// A Number carries a value together with its gradient and Hessian with respect
// to an ordered list of n tracked variables fixed by the caller. The Hessian is
// stored as its packed upper triangle (see package packed), and every operator
// is a single call to one of the two chain-rule combinators Unary and Binary.
//
// Seed the tracked variables with Basis and combine them with the operators:
//
//	x := dual.Basis(1, 2, 0)
//	y := dual.Basis(2, 2, 1)
//	f := dual.Exp(dual.Mul(x, y))
//	f.Value()       // e²
//	f.D(0), f.D(1)  // 2e², e²
//	f.D2(0, 1)      // 3e²
package dual

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symdiff/packed"
)

var (
	// ErrDimension is returned when gradient and Hessian sizes disagree.
	ErrDimension = errors.New("dual: inconsistent number of derivatives")
	// ErrAsymmetric is returned when a Hessian matrix is not symmetric.
	ErrAsymmetric = errors.New("dual: the Hessian must be symmetric")
	// ErrMissingGradient is returned when a Hessian is given without a gradient.
	ErrMissingGradient = errors.New("dual: the gradient must be specified if the Hessian is specified")
)

// Number is a value with its gradient and packed Hessian. Numbers are
// immutable; a nil gradient means the number is a constant.
type Number struct {
	value    float64
	n        int
	gradient []float64
	hessian  []float64
}

var zero = sync.OnceValue(func() *Number { return &Number{} })

// Zero returns the shared constant 0.
func Zero() *Number { return zero() }

// Const returns a constant without derivatives. Const(0) is Zero().
func Const(a float64) *Number {
	if a == 0 {
		return zero()
	}
	return &Number{value: a}
}

// New builds a number from a gradient and a packed Hessian. Both slices are
// copied and either may be nil.
func New(value float64, gradient, hessian []float64) (*Number, error) {
	x := &Number{value: value}
	if gradient != nil {
		x.n = len(gradient)
		x.gradient = append([]float64(nil), gradient...)
	}
	if hessian != nil {
		if gradient == nil {
			return nil, ErrMissingGradient
		}
		if len(hessian) != packed.TriangleSize(x.n) {
			return nil, errors.Wrapf(ErrDimension, "hessian has %d entries, want %d", len(hessian), packed.TriangleSize(x.n))
		}
		x.hessian = append([]float64(nil), hessian...)
	}
	return x, nil
}

// FromMatrix builds a number from a dense gradient and Hessian. The Hessian
// must be square, match the gradient and be symmetric; NaN and infinite
// entries only need to match their mirror in kind.
func FromMatrix(value float64, gradient mat.Vector, hessian mat.Matrix) (*Number, error) {
	x := &Number{value: value}
	if gradient != nil {
		x.n = gradient.Len()
		x.gradient = make([]float64, x.n)
		for i := range x.gradient {
			x.gradient[i] = gradient.AtVec(i)
		}
	}
	if hessian != nil {
		if gradient == nil {
			return nil, ErrMissingGradient
		}
		h, err := PackSymmetric(x.n, hessian)
		if err != nil {
			return nil, err
		}
		x.hessian = h
	}
	return x, nil
}

// PackSymmetric checks that m is a symmetric n×n matrix and returns its packed
// upper triangle.
func PackSymmetric(n int, m mat.Matrix) ([]float64, error) {
	r, c := m.Dims()
	if r != n || c != n {
		return nil, errors.Wrapf(ErrDimension, "hessian is %d×%d, want %d×%d", r, c, n, n)
	}
	h := make([]float64, packed.TriangleSize(n))
	for i, k := 0, 0; i < n; i++ {
		for j := i; j < n; j, k = j+1, k+1 {
			a, b := m.At(i, j), m.At(j, i)
			if !sameEntry(a, b) {
				return nil, errors.Wrapf(ErrAsymmetric, "entry (%d,%d)=%g but (%d,%d)=%g", i, j, a, j, i, b)
			}
			h[k] = a
		}
	}
	return h, nil
}

func sameEntry(a, b float64) bool {
	switch {
	case a == b:
		return true
	case math.IsNaN(a) && math.IsNaN(b):
		return true
	}
	return false
}

// Basis returns the number representing tracked variable i of n at the given
// value: a one-hot gradient and a zero Hessian.
func Basis(value float64, n, i int) *Number {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("dual: basis index %d out of range for %d variables", i, n))
	}
	g := make([]float64, n)
	g[i] = 1
	return &Number{value: value, n: n, gradient: g, hessian: make([]float64, packed.TriangleSize(n))}
}

// Value returns the function value.
func (x *Number) Value() float64 { return x.value }

// N returns the number of tracked variables, 0 for constants.
func (x *Number) N() int { return x.n }

// HasGradient reports whether derivatives are carried.
func (x *Number) HasGradient() bool { return x.gradient != nil }

// HasHessian reports whether second derivatives are carried.
func (x *Number) HasHessian() bool { return x.hessian != nil }

// D returns the first derivative with respect to tracked variable i.
func (x *Number) D(i int) float64 {
	if x.gradient == nil {
		return 0
	}
	return x.gradient[i]
}

// D2 returns the second derivative with respect to tracked variables i and j.
func (x *Number) D2(i, j int) float64 {
	if x.hessian == nil {
		return 0
	}
	return x.hessian[packed.TriangleIndex(x.n, i, j)]
}

// GradientArray returns a copy of the gradient, or nil.
func (x *Number) GradientArray() []float64 {
	if x.gradient == nil {
		return nil
	}
	return append([]float64(nil), x.gradient...)
}

// HessianArray returns a copy of the packed Hessian, or nil.
func (x *Number) HessianArray() []float64 {
	if x.hessian == nil {
		return nil
	}
	return append([]float64(nil), x.hessian...)
}

// Gradient returns the gradient as a vector, or nil when there is none.
func (x *Number) Gradient() *mat.VecDense {
	if x.gradient == nil || x.n == 0 {
		return nil
	}
	return mat.NewVecDense(x.n, x.GradientArray())
}

// Hessian unpacks the Hessian into a symmetric matrix, or nil when there is
// none.
func (x *Number) Hessian() *mat.SymDense {
	if x.hessian == nil || x.n == 0 {
		return nil
	}
	return Unpack(x.n, x.hessian)
}

// Unpack expands a packed upper triangle into a symmetric matrix.
func Unpack(n int, h []float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i, k := 0, 0; i < n; i++ {
		for j := i; j < n; j, k = j+1, k+1 {
			s.SetSym(i, j, h[k])
		}
	}
	return s
}

func (x *Number) String() string {
	return fmt.Sprintf("%g (n=%d)", x.value, x.n)
}
