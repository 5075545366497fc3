package dual

import (
	"fmt"

	"github.com/njchilds90/symdiff/packed"
)

// Unary applies the chain rule for h = g∘f, given the value and the first two
// derivatives of g at f.Value():
//
//	h   = g
//	∇h  = g′·∇f
//	Hh  = g′·Hf + g″·∇f⊗∇f
//
// The Hessian is accumulated directly in packed form.
func Unary(f *Number, g, g1, g11 float64) *Number {
	h := &Number{value: g}
	if f.gradient == nil {
		return h
	}

	n := f.n
	h.n = n
	h.gradient = make([]float64, n)
	if g1 != 0 {
		for i := 0; i < n; i++ {
			h.gradient[i] = g1 * f.gradient[i]
		}
	}

	if f.hessian == nil && g11 == 0 {
		return h
	}
	h.hessian = make([]float64, packed.TriangleSize(n))
	if g1 != 0 && f.hessian != nil {
		for k := range h.hessian {
			h.hessian[k] = g1 * f.hessian[k]
		}
	}
	if g11 != 0 {
		for i, k := 0, 0; i < n; i++ {
			a := g11 * f.gradient[i]
			for j := i; j < n; j, k = j+1, k+1 {
				h.hessian[k] += a * f.gradient[j]
			}
		}
	}
	return h
}

// Binary applies the bivariate chain rule for h = g(f1, f2), given the value,
// the partial derivatives g1 = ∂g/∂x1, g2 = ∂g/∂x2 and the second partials
// g11, g12, g22 of g at (f1.Value(), f2.Value()):
//
//	∇h = g1·∇f1 + g2·∇f2
//	Hh = g1·Hf1 + g2·Hf2 + g11·∇f1⊗∇f1 + g22·∇f2⊗∇f2 + g12·(∇f1⊗∇f2 + ∇f2⊗∇f1)
//
// Either operand may be a constant. Operands tracking a different number of
// variables cause a panic.
func Binary(f1, f2 *Number, g, g1, g2, g11, g12, g22 float64) *Number {
	h := &Number{value: g}
	if f1.gradient == nil && f2.gradient == nil {
		return h
	}
	if f1.gradient != nil && f2.gradient != nil && f1.n != f2.n {
		panic(fmt.Sprintf("%v: %d and %d variables", ErrDimension, f1.n, f2.n))
	}

	n := f1.n
	if f2.n > n {
		n = f2.n
	}
	h.n = n
	h.gradient = make([]float64, n)
	a1, a2 := f1.gradient, f2.gradient
	if g1 != 0 && a1 != nil {
		for i := 0; i < n; i++ {
			h.gradient[i] += g1 * a1[i]
		}
	}
	if g2 != 0 && a2 != nil {
		for i := 0; i < n; i++ {
			h.gradient[i] += g2 * a2[i]
		}
	}

	if f1.hessian == nil && f2.hessian == nil && g11 == 0 && g12 == 0 && g22 == 0 {
		return h
	}
	h.hessian = make([]float64, packed.TriangleSize(n))
	if g1 != 0 && f1.hessian != nil {
		for k := range h.hessian {
			h.hessian[k] += g1 * f1.hessian[k]
		}
	}
	if g2 != 0 && f2.hessian != nil {
		for k := range h.hessian {
			h.hessian[k] += g2 * f2.hessian[k]
		}
	}
	if g11 != 0 && a1 != nil {
		outer(h.hessian, n, g11, a1, a1)
	}
	if g22 != 0 && a2 != nil {
		outer(h.hessian, n, g22, a2, a2)
	}
	if g12 != 0 && a1 != nil && a2 != nil {
		for i, k := 0, 0; i < n; i++ {
			for j := i; j < n; j, k = j+1, k+1 {
				h.hessian[k] += g12 * (a1[i]*a2[j] + a2[i]*a1[j])
			}
		}
	}
	return h
}

// outer adds c·u⊗v to the packed triangle h.
func outer(h []float64, n int, c float64, u, v []float64) {
	for i, k := 0, 0; i < n; i++ {
		a := c * u[i]
		for j := i; j < n; j, k = j+1, k+1 {
			h[k] += a * v[j]
		}
	}
}
