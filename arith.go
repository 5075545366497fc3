package symdiff

import (
	"math"
	"sync"
)

// ============================================================
// Binary operations
// ============================================================

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
	opPow
	opAtan2
)

var binaryNames = [...]string{
	opAdd:   "add",
	opSub:   "sub",
	opMul:   "mul",
	opDiv:   "div",
	opPow:   "pow",
	opAtan2: "atan2",
}

func (op binaryOp) String() string { return binaryNames[op] }

func (op binaryOp) apply(x, y float64) float64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	case opDiv:
		return x / y
	case opPow:
		return math.Pow(x, y)
	case opAtan2:
		return math.Atan2(x, y)
	}
	panic("symdiff: unknown binary operation")
}

func (op binaryOp) build(f, g Function) Function {
	switch op {
	case opAdd:
		return Add(f, g)
	case opSub:
		return Sub(f, g)
	case opMul:
		return Mul(f, g)
	case opDiv:
		return Div(f, g)
	case opPow:
		return Pow(f, g)
	case opAtan2:
		return Atan2(f, g)
	}
	panic("symdiff: unknown binary operation")
}

type binary struct {
	node
	op   binaryOp
	f, g Function

	// Built once on first differentiation: g² for a quotient, f² + g² for
	// atan2, f^(g-1) and ln f for a power.
	once     sync.Once
	sq       Function
	powMinus Function
	logBase  Function
}

func (b *binary) Value(p *Point) (float64, error) { return NewEvaluator(p).Evaluate(b) }
func (b *binary) Derivative(v *Variable) Function { return b.node.derivative(b, v) }
func (b *binary) PartialValue(p *Point) Function  { return NewPartialEvaluator(p).Reduce(b) }
func (b *binary) String() string                  { return format(b, false) }
func (b *binary) args() []Function                { return []Function{b.f, b.g} }
func (b *binary) variables() []*Variable          { return b.node.variablesOf(b) }
func (b *binary) eval(e *Evaluator) float64       { return b.op.apply(e.value(b.f), e.value(b.g)) }

func (b *binary) reduce(r *PartialEvaluator) Function {
	f, g := r.Reduce(b.f), r.Reduce(b.g)
	if f == b.f && g == b.g {
		return b
	}
	return b.op.build(f, g)
}

func (b *binary) derive(v *Variable) Function {
	df, dg := b.f.Derivative(v), b.g.Derivative(v)
	switch b.op {
	case opAdd:
		return Add(df, dg)
	case opSub:
		return Sub(df, dg)
	case opMul:
		return Add(Mul(df, b.g), Mul(b.f, dg))
	case opDiv:
		b.once.Do(func() { b.sq = Sqr(b.g) })
		return Sub(Div(df, b.g), Div(Mul(b.f, dg), b.sq))
	case opPow:
		b.once.Do(func() {
			b.powMinus = Pow(b.f, Shift(b.g, -1))
			b.logBase = Log(b.f)
		})
		return Add(Mul(Mul(b.g, b.powMinus), df), Mul(Mul(b.logBase, b), dg))
	case opAtan2:
		// d atan2(f, g) = (g·f' - f·g') / (f² + g²)
		b.once.Do(func() { b.sq = Add(Sqr(b.f), Sqr(b.g)) })
		return Div(Sub(Mul(b.g, df), Mul(b.f, dg)), b.sq)
	}
	panic("symdiff: unknown binary operation")
}

// ============================================================
// Arithmetic constructors
// ============================================================

// Add returns f + g.
func Add(f, g Function) Function {
	x, fc := constant(f)
	y, gc := constant(g)
	switch {
	case fc && gc:
		return Const(x + y)
	case fc && x == 0:
		return g
	case gc && y == 0:
		return f
	}
	return &binary{op: opAdd, f: f, g: g}
}

// Sub returns f - g.
func Sub(f, g Function) Function {
	x, fc := constant(f)
	y, gc := constant(g)
	switch {
	case fc && gc:
		return Const(x - y)
	case gc && y == 0:
		return f
	case fc && x == 0:
		return Neg(g)
	}
	return &binary{op: opSub, f: f, g: g}
}

// Mul returns f·g. Products with a constant become Scale nodes.
func Mul(f, g Function) Function {
	x, fc := constant(f)
	y, gc := constant(g)
	switch {
	case fc && gc:
		return Const(x * y)
	case fc:
		return Scale(g, x)
	case gc:
		return Scale(f, y)
	}
	return &binary{op: opMul, f: f, g: g}
}

// Div returns f/g. Dividing by a constant multiplies by its reciprocal and
// a constant numerator gives a reciprocal node.
func Div(f, g Function) Function {
	x, fc := constant(f)
	y, gc := constant(g)
	switch {
	case fc && gc:
		return Const(x / y)
	case gc:
		return Scale(f, 1/y)
	case fc:
		return reciprocal(x, g)
	}
	return &binary{op: opDiv, f: f, g: g}
}

// Atan2 returns the angle of the point (g, f), as math.Atan2(f, g) does.
func Atan2(f, g Function) Function {
	x, fc := constant(f)
	y, gc := constant(g)
	if fc && gc {
		return Const(math.Atan2(x, y))
	}
	return &binary{op: opAtan2, f: f, g: g}
}

// Neg returns -f.
func Neg(f Function) Function {
	if u, ok := f.(*unary); ok && u.op == opNeg {
		return u.arg
	}
	return newUnary(opNeg, f, 0)
}

// Scale returns a·f.
func Scale(f Function, a float64) Function {
	switch a {
	case 0:
		if _, ok := constant(f); !ok {
			return zero()
		}
	case 1:
		return f
	case -1:
		return Neg(f)
	}
	if u, ok := f.(*unary); ok && u.op == opScale {
		return Scale(u.arg, a*u.param)
	}
	return newUnary(opScale, f, a)
}

// Shift returns f + a.
func Shift(f Function, a float64) Function { return Add(f, Const(a)) }

func reciprocal(a float64, f Function) Function {
	if a == 0 {
		if _, ok := constant(f); !ok {
			return zero()
		}
	}
	return newUnary(opRecip, f, a)
}

// ============================================================
// Sum
// ============================================================

type sum struct {
	node
	terms []Function
}

// Sum adds any number of terms. Constant terms are combined and zero terms
// dropped.
func Sum(fs ...Function) Function {
	var (
		c     float64
		terms []Function
	)
	for _, f := range fs {
		if x, ok := constant(f); ok {
			c += x
			continue
		}
		terms = append(terms, f)
	}
	if c != 0 {
		terms = append(terms, Const(c))
	}
	switch len(terms) {
	case 0:
		return zero()
	case 1:
		return terms[0]
	case 2:
		return Add(terms[0], terms[1])
	}
	return &sum{terms: terms}
}

func (s *sum) Value(p *Point) (float64, error) { return NewEvaluator(p).Evaluate(s) }
func (s *sum) Derivative(v *Variable) Function { return s.node.derivative(s, v) }
func (s *sum) PartialValue(p *Point) Function  { return NewPartialEvaluator(p).Reduce(s) }
func (s *sum) String() string                  { return format(s, false) }
func (s *sum) args() []Function                { return s.terms }
func (s *sum) variables() []*Variable          { return s.node.variablesOf(s) }

func (s *sum) eval(e *Evaluator) float64 {
	var t float64
	for _, f := range s.terms {
		t += e.value(f)
	}
	return t
}

func (s *sum) derive(v *Variable) Function {
	ds := make([]Function, 0, len(s.terms))
	for _, f := range s.terms {
		ds = append(ds, f.Derivative(v))
	}
	return Sum(ds...)
}

func (s *sum) reduce(r *PartialEvaluator) Function {
	changed := false
	ts := make([]Function, len(s.terms))
	for i, f := range s.terms {
		ts[i] = r.Reduce(f)
		changed = changed || ts[i] != f
	}
	if !changed {
		return s
	}
	return Sum(ts...)
}
