package dual

import "math"

// Add returns f1 + f2.
func Add(f1, f2 *Number) *Number {
	return Binary(f1, f2, f1.value+f2.value, 1, 1, 0, 0, 0)
}

// Sub returns f1 - f2.
func Sub(f1, f2 *Number) *Number {
	return Binary(f1, f2, f1.value-f2.value, 1, -1, 0, 0, 0)
}

// Mul returns f1 · f2.
func Mul(f1, f2 *Number) *Number {
	return Binary(f1, f2, f1.value*f2.value, f2.value, f1.value, 0, 1, 0)
}

// Div returns f1 / f2.
func Div(f1, f2 *Number) *Number {
	g := f1.value / f2.value
	g1 := 1 / f2.value
	g2 := -g / f2.value
	g12 := -g1 / f2.value
	g22 := -2 * g2 / f2.value
	return Binary(f1, f2, g, g1, g2, 0, g12, g22)
}

// Neg returns -f.
func Neg(f *Number) *Number {
	return Unary(f, -f.value, -1, 0)
}

// AddScalar returns f + a.
func AddScalar(f *Number, a float64) *Number {
	return Unary(f, f.value+a, 1, 0)
}

// SubScalar returns f - a.
func SubScalar(f *Number, a float64) *Number {
	return Unary(f, f.value-a, 1, 0)
}

// ScalarSub returns a - f.
func ScalarSub(a float64, f *Number) *Number {
	return Unary(f, a-f.value, -1, 0)
}

// MulScalar returns a · f.
func MulScalar(f *Number, a float64) *Number {
	return Unary(f, a*f.value, a, 0)
}

// DivScalar returns f / a.
func DivScalar(f *Number, a float64) *Number {
	return Unary(f, f.value/a, 1/a, 0)
}

// ScalarDiv returns a / f.
func ScalarDiv(a float64, f *Number) *Number {
	g := a / f.value
	g1 := -g / f.value
	g11 := -2 * g1 / f.value
	return Unary(f, g, g1, g11)
}

// Sum adds any number of operands.
func Sum(fs ...*Number) *Number {
	s := Zero()
	for _, f := range fs {
		s = Add(s, f)
	}
	return s
}

// Exp returns e^f.
func Exp(f *Number) *Number {
	g := math.Exp(f.value)
	return Unary(f, g, g, g)
}

// Log returns the natural logarithm of f.
func Log(f *Number) *Number {
	g1 := 1 / f.value
	return Unary(f, math.Log(f.value), g1, -g1/f.value)
}

// Sqr returns f².
func Sqr(f *Number) *Number {
	return Unary(f, f.value*f.value, 2*f.value, 2)
}

// Sqrt returns the square root of f.
func Sqrt(f *Number) *Number {
	g := math.Sqrt(f.value)
	g1 := 0.5 / g
	return Unary(f, g, g1, -0.5*g1/f.value)
}

// PowScalar returns f^a.
func PowScalar(f *Number, a float64) *Number {
	g := math.Pow(f.value, a)
	g1 := a * math.Pow(f.value, a-1)
	g11 := a * (a - 1) * math.Pow(f.value, a-2)
	return Unary(f, g, g1, g11)
}

// ScalarPow returns a^f.
func ScalarPow(a float64, f *Number) *Number {
	g := math.Pow(a, f.value)
	c := math.Log(a)
	g1 := c * g
	return Unary(f, g, g1, c*g1)
}

// Pow returns f1^f2.
func Pow(f1, f2 *Number) *Number {
	x, y := f1.value, f2.value
	g := math.Pow(x, y)

	c1 := math.Pow(x, y-1)
	g1 := y * c1
	g11 := y * (y - 1) * math.Pow(x, y-2)

	c2 := math.Log(x)
	g2 := c2 * g
	g22 := c2 * g2

	g12 := c1 * (1 + c2*y)
	return Binary(f1, f2, g, g1, g2, g11, g12, g22)
}

// Sin returns the sine of f.
func Sin(f *Number) *Number {
	g := math.Sin(f.value)
	return Unary(f, g, math.Cos(f.value), -g)
}

// Cos returns the cosine of f.
func Cos(f *Number) *Number {
	g := math.Cos(f.value)
	return Unary(f, g, -math.Sin(f.value), -g)
}

// Min returns the operand with the smaller value. Ties go to f2.
func Min(f1, f2 *Number) *Number {
	if f1.value < f2.value {
		return f1
	}
	return f2
}

// Max returns the operand with the larger value. Ties go to f2.
func Max(f1, f2 *Number) *Number {
	if f1.value > f2.value {
		return f1
	}
	return f2
}
