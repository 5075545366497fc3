package symdiff

// ============================================================
// Piecewise functions
// ============================================================
//
// These functions are not differentiable where their argument is exactly 0.
// There the step function and the derivative nodes evaluate to NaN, which
// marks the value as undefined rather than failing the evaluation.

// Positive returns max(f, 0). Its derivative is Step(f)·f'.
func Positive(f Function) Function { return newUnary(opPositive, f, 0) }

// Step returns the Heaviside step of f: 1 for f > 0, 0 for f < 0 and NaN at
// f = 0.
func Step(f Function) Function { return newUnary(opStep, f, 0) }

// Abs returns |f|. Its derivative is sign(f)·f', with NaN at f = 0.
func Abs(f Function) Function { return newUnary(opAbs, f, 0) }

// stepDerivative is 0 away from f = 0 and NaN at f = 0. It is its own
// derivative.
func stepDerivative(f Function) Function { return newUnary(opStepDerivative, f, 0) }

// absDerivative is the sign of f with NaN at f = 0.
func absDerivative(f Function) Function { return newUnary(opAbsDerivative, f, 0) }

// Min returns the smaller of f and g as f - max(f - g, 0).
func Min(f, g Function) Function { return Sub(f, Positive(Sub(f, g))) }

// Max returns the larger of f and g as g + max(f - g, 0).
func Max(f, g Function) Function { return Add(g, Positive(Sub(f, g))) }
