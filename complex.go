package symdiff

import (
	"math/cmplx"
	"strings"
	"sync"
)

// ============================================================
// Complex functions
// ============================================================

// Complex is a complex-valued function of real variables, given by its real
// and imaginary parts. A nil part is zero. Complex is a small value; the
// parts are ordinary Function nodes and share sub-expressions like any
// other graph.
type Complex struct {
	Re, Im Function
}

// ComplexOf returns the constant c.
func ComplexOf(c complex128) Complex { return Complex{Re: Const(real(c)), Im: Const(imag(c))} }

// Real returns f with a zero imaginary part.
func Real(f Function) Complex { return Complex{Re: f, Im: zero()} }

// I returns the imaginary unit.
func I() Complex { return Complex{Re: zero(), Im: one()} }

func (z Complex) parts() (re, im Function) {
	re, im = z.Re, z.Im
	if re == nil {
		re = zero()
	}
	if im == nil {
		im = zero()
	}
	return re, im
}

// Value evaluates z at p. Both parts go through one Evaluator.
func (z Complex) Value(p *Point) (complex128, error) { return NewEvaluator(p).EvaluateComplex(z) }

// EvaluateComplex returns the value of z.
func (e *Evaluator) EvaluateComplex(z Complex) (complex128, error) {
	re, im := z.parts()
	xs, err := e.EvaluateAll(re, im)
	if err != nil {
		return 0, err
	}
	return complex(xs[0], xs[1]), nil
}

// Derivative differentiates both parts with respect to the real variable v.
func (z Complex) Derivative(v *Variable) Complex {
	re, im := z.parts()
	return Complex{Re: re.Derivative(v), Im: im.Derivative(v)}
}

// PartialValue replaces the variables assigned in p. Both parts are reduced
// together, so what they share stays shared.
func (z Complex) PartialValue(p *Point) Complex {
	r := NewPartialEvaluator(p)
	re, im := z.parts()
	return Complex{Re: r.Reduce(re), Im: r.Reduce(im)}
}

func (z Complex) String() string {
	re, im := z.parts()
	if isConst(im, 0) {
		return re.String()
	}
	var b strings.Builder
	if !isConst(re, 0) {
		operand(&b, re, precSum, false)
		b.WriteString(" + ")
	}
	operandAfter(&b, im, precProduct, false)
	b.WriteString("*i")
	return b.String()
}

// Add returns z + w.
func (z Complex) Add(w Complex) Complex {
	a, b := z.parts()
	c, d := w.parts()
	return Complex{Re: Add(a, c), Im: Add(b, d)}
}

// Sub returns z - w.
func (z Complex) Sub(w Complex) Complex {
	a, b := z.parts()
	c, d := w.parts()
	return Complex{Re: Sub(a, c), Im: Sub(b, d)}
}

// Neg returns -z.
func (z Complex) Neg() Complex {
	a, b := z.parts()
	return Complex{Re: Neg(a), Im: Neg(b)}
}

// Scale returns a·z for a real constant a.
func (z Complex) Scale(a float64) Complex {
	re, im := z.parts()
	return Complex{Re: Scale(re, a), Im: Scale(im, a)}
}

// Conj returns the complex conjugate of z.
func (z Complex) Conj() Complex {
	a, b := z.parts()
	return Complex{Re: a, Im: Neg(b)}
}

// Mul returns z·w.
func (z Complex) Mul(w Complex) Complex {
	a, b := z.parts()
	c, d := w.parts()
	return Complex{
		Re: Sub(Mul(a, c), Mul(b, d)),
		Im: Add(Mul(b, c), Mul(a, d)),
	}
}

// Div returns z/w.
func (z Complex) Div(w Complex) Complex {
	a, b := z.parts()
	c, d := w.parts()
	n := Add(Sqr(c), Sqr(d))
	return Complex{
		Re: Div(Add(Mul(a, c), Mul(b, d)), n),
		Im: Div(Sub(Mul(b, c), Mul(a, d)), n),
	}
}

// Sqr returns z².
func (z Complex) Sqr() Complex {
	a, b := z.parts()
	return Complex{Re: Sub(Sqr(a), Sqr(b)), Im: Scale(Mul(a, b), 2)}
}

// Abs returns the modulus |z|.
func (z Complex) Abs() Function {
	a, b := z.parts()
	return Sqrt(Add(Sqr(a), Sqr(b)))
}

// Arg returns the phase of z in [-π, π], as cmplx.Phase does.
func (z Complex) Arg() Function {
	a, b := z.parts()
	return Atan2(b, a)
}

// Exp returns e^z.
func (z Complex) Exp() Complex {
	a, b := z.parts()
	c := Exp(a)
	return Complex{Re: Mul(c, Cos(b)), Im: Mul(c, Sin(b))}
}

// Log returns the principal logarithm of z.
func (z Complex) Log() Complex {
	a, b := z.parts()
	return Complex{Re: Scale(Log(Add(Sqr(a), Sqr(b))), 0.5), Im: Atan2(b, a)}
}

// Sqrt returns the principal square root of z, with the branch cut along
// the negative real axis as in cmplx.Sqrt.
func (z Complex) Sqrt() Complex {
	re, im := z.parts()
	x, rc := constant(re)
	y, ic := constant(im)
	if rc && ic {
		return ComplexOf(cmplx.Sqrt(complex(x, y)))
	}
	s := &complexSqrt{re: re, im: im}
	s.reRoot = &sqrtPart{pair: s}
	s.imRoot = &sqrtPart{pair: s, imaginary: true}
	return Complex{Re: s.reRoot, Im: s.imRoot}
}

// complexSqrt ties the two parts of √z together: the derivative of either
// part is expressed through both.
type complexSqrt struct {
	re, im         Function
	reRoot, imRoot *sqrtPart

	once sync.Once
	norm Function // 2|z|, built on first differentiation
}

// sqrtPart is the real or the imaginary part of √z.
type sqrtPart struct {
	node
	pair      *complexSqrt
	imaginary bool
}

func (s *sqrtPart) Value(p *Point) (float64, error) { return NewEvaluator(p).Evaluate(s) }
func (s *sqrtPart) Derivative(v *Variable) Function { return s.node.derivative(s, v) }
func (s *sqrtPart) PartialValue(p *Point) Function  { return NewPartialEvaluator(p).Reduce(s) }
func (s *sqrtPart) String() string                  { return s.describe() }
func (s *sqrtPart) args() []Function                { return []Function{s.pair.re, s.pair.im} }
func (s *sqrtPart) variables() []*Variable          { return s.node.variablesOf(s) }

func (s *sqrtPart) eval(e *Evaluator) float64 {
	w := cmplx.Sqrt(complex(e.value(s.pair.re), e.value(s.pair.im)))
	if s.imaginary {
		return imag(w)
	}
	return real(w)
}

// derive uses d√z = z'/(2√z) = z'·conj(√z) / (2|z|).
func (s *sqrtPart) derive(v *Variable) Function {
	p := s.pair
	p.once.Do(func() { p.norm = Scale(Sqrt(Add(Sqr(p.re), Sqr(p.im))), 2) })
	dre, dim := p.re.Derivative(v), p.im.Derivative(v)
	a, b := Function(p.reRoot), Function(p.imRoot)
	if s.imaginary {
		return Div(Sub(Mul(dim, a), Mul(dre, b)), p.norm)
	}
	return Div(Add(Mul(dre, a), Mul(dim, b)), p.norm)
}

// reduce rebuilds the pair once and records the other part in r, so a
// reduced √z still has its two parts tied together.
func (s *sqrtPart) reduce(r *PartialEvaluator) Function {
	p := s.pair
	re, im := r.Reduce(p.re), r.Reduce(p.im)
	if re == p.re && im == p.im {
		return s
	}
	w := Complex{Re: re, Im: im}.Sqrt()
	if s.imaginary {
		r.memo[p.reRoot] = w.Re
		return w.Im
	}
	r.memo[p.imRoot] = w.Im
	return w.Re
}

func (s *sqrtPart) describe() string {
	name := "re"
	if s.imaginary {
		name = "im"
	}
	return name + "(sqrt(" + Complex{Re: s.pair.re, Im: s.pair.im}.String() + "))"
}
