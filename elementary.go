package symdiff

import (
	"math"
	"sync"
)

// ============================================================
// Unary operations
// ============================================================

type unaryOp int

const (
	opNeg unaryOp = iota
	opScale
	opRecip
	opExp
	opLog
	opSqr
	opSqrt
	opSin
	opCos
	opPowConst
	opConstPow
	opPositive
	opStep
	opStepDerivative
	opAbs
	opAbsDerivative
)

var unaryNames = [...]string{
	opNeg:            "neg",
	opScale:          "scale",
	opRecip:          "recip",
	opExp:            "exp",
	opLog:            "log",
	opSqr:            "sqr",
	opSqrt:           "sqrt",
	opSin:            "sin",
	opCos:            "cos",
	opPowConst:       "powconst",
	opConstPow:       "constpow",
	opPositive:       "positive",
	opStep:           "step",
	opStepDerivative: "stepderivative",
	opAbs:            "abs",
	opAbsDerivative:  "absderivative",
}

func (op unaryOp) String() string { return unaryNames[op] }

// hasParam reports whether the operation carries a constant.
func (op unaryOp) hasParam() bool {
	return op == opScale || op == opRecip || op == opPowConst || op == opConstPow
}

// apply evaluates the operation at x with constant a.
func (op unaryOp) apply(x, a float64) float64 {
	switch op {
	case opNeg:
		return -x
	case opScale:
		return a * x
	case opRecip:
		return a / x
	case opExp:
		return math.Exp(x)
	case opLog:
		return math.Log(x)
	case opSqr:
		return x * x
	case opSqrt:
		return math.Sqrt(x)
	case opSin:
		return math.Sin(x)
	case opCos:
		return math.Cos(x)
	case opPowConst:
		return math.Pow(x, a)
	case opConstPow:
		return math.Pow(a, x)
	case opPositive:
		if x > 0 {
			return x
		}
		if x <= 0 {
			return 0
		}
		return x // NaN
	case opStep:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return 0
		}
		return math.NaN()
	case opStepDerivative:
		if x == 0 || math.IsNaN(x) {
			return math.NaN()
		}
		return 0
	case opAbs:
		return math.Abs(x)
	case opAbsDerivative:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return math.NaN()
	}
	panic("symdiff: unknown unary operation")
}

// build applies the public constructor of op, so results are folded the same
// way as user-built expressions.
func (op unaryOp) build(f Function, a float64) Function {
	switch op {
	case opNeg:
		return Neg(f)
	case opScale:
		return Scale(f, a)
	case opRecip:
		return reciprocal(a, f)
	case opExp:
		return Exp(f)
	case opLog:
		return Log(f)
	case opSqr:
		return Sqr(f)
	case opSqrt:
		return Sqrt(f)
	case opSin:
		return Sin(f)
	case opCos:
		return Cos(f)
	case opPowConst:
		return PowConst(f, a)
	case opConstPow:
		return ConstPow(a, f)
	case opPositive:
		return Positive(f)
	case opStep:
		return Step(f)
	case opStepDerivative:
		return stepDerivative(f)
	case opAbs:
		return Abs(f)
	case opAbsDerivative:
		return absDerivative(f)
	}
	panic("symdiff: unknown unary operation")
}

type unary struct {
	node
	op    unaryOp
	arg   Function
	param float64

	once sync.Once
	aux  Function // sin/cos partner, or the derivative factor f'(arg)
}

// newUnary folds a constant argument and otherwise builds the node.
func newUnary(op unaryOp, f Function, a float64) Function {
	if x, ok := constant(f); ok {
		return Const(op.apply(x, a))
	}
	return &unary{op: op, arg: f, param: a}
}

func (u *unary) Value(p *Point) (float64, error) { return NewEvaluator(p).Evaluate(u) }
func (u *unary) Derivative(v *Variable) Function { return u.node.derivative(u, v) }
func (u *unary) PartialValue(p *Point) Function  { return NewPartialEvaluator(p).Reduce(u) }
func (u *unary) String() string                  { return format(u, false) }
func (u *unary) args() []Function                { return []Function{u.arg} }
func (u *unary) variables() []*Variable          { return u.node.variablesOf(u) }
func (u *unary) eval(e *Evaluator) float64       { return u.op.apply(e.value(u.arg), u.param) }

func (u *unary) reduce(r *PartialEvaluator) Function {
	a := r.Reduce(u.arg)
	if a == u.arg {
		return u
	}
	return u.op.build(a, u.param)
}

// partner returns the cos node of a sin node and the sin node of a cos node.
// The partner remembers u, so differentiating back and forth never creates
// a second node for the same argument.
func (u *unary) partner() Function {
	u.once.Do(func() {
		op := opCos
		if u.op == opCos {
			op = opSin
		}
		p := &unary{op: op, arg: u.arg, aux: u}
		p.once.Do(func() {})
		u.aux = p
	})
	return u.aux
}

// factor returns the outer derivative g'(arg), built on first use so every
// partial derivative of u multiplies the same node.
func (u *unary) factor(build func() Function) Function {
	u.once.Do(func() { u.aux = build() })
	return u.aux
}

func (u *unary) derive(v *Variable) Function {
	df := u.arg.Derivative(v)
	switch u.op {
	case opNeg:
		return Neg(df)
	case opScale:
		return Scale(df, u.param)
	case opRecip:
		// d(a/f) = -a/f² · f'
		return Mul(u.factor(func() Function { return reciprocal(-u.param, Sqr(u.arg)) }), df)
	case opExp:
		return Mul(u, df)
	case opLog:
		return Div(df, u.arg)
	case opSqr:
		return Mul(u.factor(func() Function { return Scale(u.arg, 2) }), df)
	case opSqrt:
		return Mul(u.factor(func() Function { return reciprocal(0.5, u) }), df)
	case opSin:
		return Mul(u.partner(), df)
	case opCos:
		return Mul(Neg(u.partner()), df)
	case opPowConst:
		return Mul(u.factor(func() Function { return Scale(PowConst(u.arg, u.param-1), u.param) }), df)
	case opConstPow:
		return Mul(u.factor(func() Function { return Scale(u, math.Log(u.param)) }), df)
	case opPositive:
		return Mul(Step(u.arg), df)
	case opStep, opAbsDerivative:
		return Mul(stepDerivative(u.arg), df)
	case opStepDerivative:
		return u
	case opAbs:
		return Mul(absDerivative(u.arg), df)
	}
	panic("symdiff: unknown unary operation")
}

// ============================================================
// Elementary constructors
// ============================================================

// Exp returns e^f.
func Exp(f Function) Function { return newUnary(opExp, f, 0) }

// Log returns the natural logarithm of f.
func Log(f Function) Function { return newUnary(opLog, f, 0) }

// Sqr returns f².
func Sqr(f Function) Function { return newUnary(opSqr, f, 0) }

// Sqrt returns the square root of f.
func Sqrt(f Function) Function { return newUnary(opSqrt, f, 0) }

// Sin returns the sine of f.
func Sin(f Function) Function { return newUnary(opSin, f, 0) }

// Cos returns the cosine of f.
func Cos(f Function) Function { return newUnary(opCos, f, 0) }

// PowConst returns f^a.
func PowConst(f Function, a float64) Function {
	switch a {
	case 0:
		return one()
	case 1:
		return f
	case 2:
		return Sqr(f)
	case 0.5:
		return Sqrt(f)
	case -1:
		return reciprocal(1, f)
	}
	return newUnary(opPowConst, f, a)
}

// ConstPow returns a^f.
func ConstPow(a float64, f Function) Function {
	switch a {
	case 1:
		return one()
	case math.E:
		return Exp(f)
	}
	return newUnary(opConstPow, f, a)
}

// Pow returns f^g. A constant base or exponent selects ConstPow or PowConst,
// which never evaluate a logarithm of the base.
func Pow(f, g Function) Function {
	if b, ok := constant(g); ok {
		return PowConst(f, b)
	}
	if a, ok := constant(f); ok {
		return ConstPow(a, g)
	}
	return &binary{op: opPow, f: f, g: g}
}
