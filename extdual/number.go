// Package extdual extends the dual numbers of package dual with third
// derivatives.
//
// Third derivatives are only computed in full for the first n0 of the n
// tracked variables: the packed array holds the entries (i,j,k) with
// i ≤ j ≤ k < n and i < n0. Entries whose every index is at least n0 are not
// computed. This keeps the cost at O(n0·n²) per operation instead of O(n³),
// and is a contract of the type, not a missing feature.
package extdual

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symdiff/dual"
	"github.com/njchilds90/symdiff/packed"
)

var (
	// ErrDimension is returned when derivative array sizes disagree.
	ErrDimension = dual.ErrDimension
	// ErrTrackedPrefix is returned for an invalid number of fully tracked
	// variables.
	ErrTrackedPrefix = errors.New("extdual: invalid number of fully computed third derivatives")
	// ErrMissingLowerOrder is returned when a higher derivative array is
	// given without the lower ones.
	ErrMissingLowerOrder = errors.New("extdual: the gradient and the Hessian must be specified if the third derivatives are specified")
	// ErrNotTracked is returned when a third derivative outside the tracked
	// prefix is requested.
	ErrNotTracked = errors.New("extdual: third derivative not tracked")
)

// Number is a value with gradient, packed Hessian and reduced packed third
// derivatives.
type Number struct {
	value    float64
	n, n0    int
	gradient []float64
	hessian  []float64
	third    []float64
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

// New builds a number from packed arrays, any of which may be nil. The third
// array must have packed.ReducedSize(n, n0) entries.
func New(value float64, gradient, hessian, third []float64, n0 int) (*Number, error) {
	x := &Number{value: value, n0: n0}
	if gradient != nil {
		x.n = len(gradient)
		if n0 < 0 || n0 > x.n {
			return nil, errors.Wrapf(ErrTrackedPrefix, "n0=%d with %d variables", n0, x.n)
		}
		x.gradient = append([]float64(nil), gradient...)
	} else {
		x.n0 = 0
	}
	if hessian != nil {
		if gradient == nil {
			return nil, dual.ErrMissingGradient
		}
		if len(hessian) != packed.TriangleSize(x.n) {
			return nil, errors.Wrapf(ErrDimension, "hessian has %d entries, want %d", len(hessian), packed.TriangleSize(x.n))
		}
		x.hessian = append([]float64(nil), hessian...)
	}
	if third != nil {
		if gradient == nil || hessian == nil {
			return nil, ErrMissingLowerOrder
		}
		if want := packed.ReducedSize(x.n, x.n0); len(third) != want {
			return nil, errors.Wrapf(ErrDimension, "third derivatives have %d entries, want %d", len(third), want)
		}
		x.third = append([]float64(nil), third...)
	}
	return x, nil
}

// FromMatrix builds a number from a dense gradient and symmetric Hessian. The
// third derivatives start out as zero.
func FromMatrix(value float64, gradient mat.Vector, hessian mat.Matrix, n0 int) (*Number, error) {
	d, err := dual.FromMatrix(value, gradient, hessian)
	if err != nil {
		return nil, err
	}
	return New(value, d.GradientArray(), d.HessianArray(), nil, n0)
}

// Basis returns tracked variable i of n, with third derivatives computed for
// the first n0 variables.
func Basis(value float64, n, i, n0 int) *Number {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("extdual: basis index %d out of range for %d variables", i, n))
	}
	if n0 < 0 || n0 > n {
		panic(fmt.Sprintf("%v: n0=%d with %d variables", ErrTrackedPrefix, n0, n))
	}
	g := make([]float64, n)
	g[i] = 1
	return &Number{
		value:    value,
		n:        n,
		n0:       n0,
		gradient: g,
		hessian:  make([]float64, packed.TriangleSize(n)),
	}
}

// Value returns the function value.
func (x *Number) Value() float64 { return x.value }

// N returns the number of tracked variables.
func (x *Number) N() int { return x.n }

// N0 returns the number of variables with complete third derivatives.
func (x *Number) N0() int { return x.n0 }

// D returns the first derivative with respect to variable i.
func (x *Number) D(i int) float64 {
	if x.gradient == nil {
		return 0
	}
	return x.gradient[i]
}

// D2 returns the second derivative with respect to variables i and j.
func (x *Number) D2(i, j int) float64 {
	if x.hessian == nil {
		return 0
	}
	return x.hessian[packed.TriangleIndex(x.n, i, j)]
}

// D3 returns the third derivative with respect to variables i, j and k. At
// least one of the indices must be below N0.
func (x *Number) D3(i, j, k int) (float64, error) {
	if !packed.Covered(x.n0, i, j, k) {
		return 0, errors.Wrapf(ErrNotTracked, "(%d,%d,%d) with n0=%d", i, j, k, x.n0)
	}
	if x.third == nil {
		return 0, nil
	}
	return x.third[packed.ReducedIndex(x.n, x.n0, i, j, k)], nil
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

// ThirdArray returns a copy of the reduced packed third derivatives, or nil.
func (x *Number) ThirdArray() []float64 {
	if x.third == nil {
		return nil
	}
	return append([]float64(nil), x.third...)
}

// Gradient returns the gradient as a vector, or nil.
func (x *Number) Gradient() *mat.VecDense {
	if x.gradient == nil || x.n == 0 {
		return nil
	}
	return mat.NewVecDense(x.n, x.GradientArray())
}

// Hessian returns the Hessian as a symmetric matrix, or nil.
func (x *Number) Hessian() *mat.SymDense {
	if x.hessian == nil || x.n == 0 {
		return nil
	}
	return dual.Unpack(x.n, x.hessian)
}

// Third materializes the third derivatives as an n0×n×n tensor, or nil.
func (x *Number) Third() *Tensor {
	if x.third == nil {
		return nil
	}
	return newTensor(x.n, x.n0, x.third)
}

// Dual drops the third derivatives.
func (x *Number) Dual() *dual.Number {
	d, err := dual.New(x.value, x.gradient, x.hessian)
	if err != nil {
		// The invariants of Number guarantee consistent sizes.
		panic(err)
	}
	return d
}

func (x *Number) String() string {
	return fmt.Sprintf("%g (n=%d, n0=%d)", x.value, x.n, x.n0)
}
