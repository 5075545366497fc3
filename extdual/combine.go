package extdual

import (
	"fmt"

	"github.com/njchilds90/symdiff/packed"
)

// Unary applies the chain rule for h = g∘f up to third order, given the value
// and the first three derivatives of g at f.Value():
//
//	Th[ijk] = g′·Tf[ijk] + g″·(∇f_i·Hf_jk + ∇f_j·Hf_ik + ∇f_k·Hf_ij) + g‴·∇f_i·∇f_j·∇f_k
//
// Third derivatives are only produced for the tracked prefix of f.
func Unary(f *Number, g, g1, g11, g111 float64) *Number {
	h := &Number{value: g}
	if f.gradient == nil {
		return h
	}
	n, n0 := f.n, f.n0
	h.n, h.n0 = n, n0
	a, ha := f.gradient, f.hessian

	h.gradient = make([]float64, n)
	for i := 0; i < n; i++ {
		h.gradient[i] = g1 * a[i]
	}
	h.hessian = make([]float64, packed.TriangleSize(n))
	if ha != nil {
		for k := range h.hessian {
			h.hessian[k] = g1 * ha[k]
		}
	}
	if g11 != 0 {
		outer(h.hessian, n, g11, a, a)
	}

	if n0 == 0 || (f.third == nil && (g11 == 0 || ha == nil) && g111 == 0) {
		return h
	}
	h.third = make([]float64, packed.ReducedSize(n, n0))
	forEachReduced(n, n0, func(m, i, j, k int) {
		var t float64
		if f.third != nil {
			t = g1 * f.third[m]
		}
		if g11 != 0 && ha != nil {
			t += g11 * sym3(n, a, ha, i, j, k)
		}
		t += g111 * a[i] * a[j] * a[k]
		h.third[m] = t
	})
	return h
}

// Binary applies the bivariate chain rule for h = g(f1, f2) up to third
// order. With a = ∇f1 and b = ∇f2 the third derivatives are
//
//	Th = g1·Ta + g2·Tb
//	   + g11·S(a, Ha) + g22·S(b, Hb) + g12·(S(a, Hb) + S(b, Ha))
//	   + g111·a⊗a⊗a + g222·b⊗b⊗b
//	   + g112·(a⊗a⊗b + a⊗b⊗a + b⊗a⊗a) + g122·(a⊗b⊗b + b⊗a⊗b + b⊗b⊗a)
//
// where S(u, H)_ijk = u_i·H_jk + u_j·H_ik + u_k·H_ij. Operands with different
// n or n0 cause a panic.
func Binary(f1, f2 *Number, g, g1, g2, g11, g12, g22, g111, g112, g122, g222 float64) *Number {
	h := &Number{value: g}
	if f1.gradient == nil && f2.gradient == nil {
		return h
	}
	if f1.gradient != nil && f2.gradient != nil && (f1.n != f2.n || f1.n0 != f2.n0) {
		panic(fmt.Sprintf("%v: (n=%d, n0=%d) and (n=%d, n0=%d)", ErrDimension, f1.n, f1.n0, f2.n, f2.n0))
	}
	n, n0 := f1.n, f1.n0
	if f1.gradient == nil {
		n, n0 = f2.n, f2.n0
	}
	h.n, h.n0 = n, n0
	a, b := f1.gradient, f2.gradient
	ha, hb := f1.hessian, f2.hessian

	h.gradient = make([]float64, n)
	if a != nil {
		for i := 0; i < n; i++ {
			h.gradient[i] += g1 * a[i]
		}
	}
	if b != nil {
		for i := 0; i < n; i++ {
			h.gradient[i] += g2 * b[i]
		}
	}

	h.hessian = make([]float64, packed.TriangleSize(n))
	if ha != nil {
		for k := range h.hessian {
			h.hessian[k] += g1 * ha[k]
		}
	}
	if hb != nil {
		for k := range h.hessian {
			h.hessian[k] += g2 * hb[k]
		}
	}
	if a != nil {
		outer(h.hessian, n, g11, a, a)
	}
	if b != nil {
		outer(h.hessian, n, g22, b, b)
	}
	if a != nil && b != nil {
		outer(h.hessian, n, g12, a, b)
		outer(h.hessian, n, g12, b, a)
	}

	if n0 == 0 {
		return h
	}
	h.third = make([]float64, packed.ReducedSize(n, n0))
	forEachReduced(n, n0, func(m, i, j, k int) {
		var t float64
		if f1.third != nil {
			t += g1 * f1.third[m]
		}
		if f2.third != nil {
			t += g2 * f2.third[m]
		}
		if a != nil {
			if ha != nil {
				t += g11 * sym3(n, a, ha, i, j, k)
			}
			t += g111 * a[i] * a[j] * a[k]
		}
		if b != nil {
			if hb != nil {
				t += g22 * sym3(n, b, hb, i, j, k)
			}
			t += g222 * b[i] * b[j] * b[k]
		}
		if a != nil && b != nil {
			if hb != nil {
				t += g12 * sym3(n, a, hb, i, j, k)
			}
			if ha != nil {
				t += g12 * sym3(n, b, ha, i, j, k)
			}
			t += g112 * (a[i]*a[j]*b[k] + a[i]*b[j]*a[k] + b[i]*a[j]*a[k])
			t += g122 * (a[i]*b[j]*b[k] + b[i]*a[j]*b[k] + b[i]*b[j]*a[k])
		}
		h.third[m] = t
	})
	return h
}

// forEachReduced visits the reduced third-order entries in storage order.
func forEachReduced(n, n0 int, fn func(m, i, j, k int)) {
	m := 0
	for i := 0; i < n0; i++ {
		for j := i; j < n; j++ {
			for k := j; k < n; k++ {
				fn(m, i, j, k)
				m++
			}
		}
	}
}

// sym3 returns u_i·H_jk + u_j·H_ik + u_k·H_ij for a packed H.
func sym3(n int, u, h []float64, i, j, k int) float64 {
	return u[i]*h[packed.TriangleIndex(n, j, k)] +
		u[j]*h[packed.TriangleIndex(n, i, k)] +
		u[k]*h[packed.TriangleIndex(n, i, j)]
}

// outer adds c·u⊗v to the packed triangle h.
func outer(h []float64, n int, c float64, u, v []float64) {
	if c == 0 {
		return
	}
	for i, k := 0, 0; i < n; i++ {
		x := c * u[i]
		for j := i; j < n; j, k = j+1, k+1 {
			h[k] += x * v[j]
		}
	}
}
