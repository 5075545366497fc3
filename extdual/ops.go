package extdual

import "math"

// Add returns f1 + f2.
func Add(f1, f2 *Number) *Number {
	return Binary(f1, f2, f1.value+f2.value, 1, 1, 0, 0, 0, 0, 0, 0, 0)
}

// Sub returns f1 - f2.
func Sub(f1, f2 *Number) *Number {
	return Binary(f1, f2, f1.value-f2.value, 1, -1, 0, 0, 0, 0, 0, 0, 0)
}

// Mul returns f1 · f2.
func Mul(f1, f2 *Number) *Number {
	return Binary(f1, f2, f1.value*f2.value, f2.value, f1.value, 0, 1, 0, 0, 0, 0, 0)
}

// Div returns f1 / f2.
func Div(f1, f2 *Number) *Number {
	x, y := f1.value, f2.value
	g := x / y
	g1 := 1 / y
	g2 := -g / y
	g12 := -g1 / y
	g22 := -2 * g2 / y
	g122 := -2 * g12 / y
	g222 := -3 * g22 / y
	return Binary(f1, f2, g, g1, g2, 0, g12, g22, 0, 0, g122, g222)
}

// Neg returns -f.
func Neg(f *Number) *Number {
	return Unary(f, -f.value, -1, 0, 0)
}

// AddScalar returns f + a.
func AddScalar(f *Number, a float64) *Number {
	return Unary(f, f.value+a, 1, 0, 0)
}

// MulScalar returns a · f.
func MulScalar(f *Number, a float64) *Number {
	return Unary(f, a*f.value, a, 0, 0)
}

// ScalarDiv returns a / f.
func ScalarDiv(a float64, f *Number) *Number {
	g := a / f.value
	g1 := -g / f.value
	g11 := -2 * g1 / f.value
	return Unary(f, g, g1, g11, -3*g11/f.value)
}

// Exp returns e^f.
func Exp(f *Number) *Number {
	g := math.Exp(f.value)
	return Unary(f, g, g, g, g)
}

// Log returns the natural logarithm of f.
func Log(f *Number) *Number {
	x := f.value
	g1 := 1 / x
	g11 := -g1 / x
	return Unary(f, math.Log(x), g1, g11, -2*g11/x)
}

// Sqr returns f².
func Sqr(f *Number) *Number {
	return Unary(f, f.value*f.value, 2*f.value, 2, 0)
}

// Sqrt returns the square root of f.
func Sqrt(f *Number) *Number {
	x := f.value
	g := math.Sqrt(x)
	g1 := 0.5 / g
	g11 := -0.5 * g1 / x
	return Unary(f, g, g1, g11, -1.5*g11/x)
}

// PowScalar returns f^a.
func PowScalar(f *Number, a float64) *Number {
	x := f.value
	g := math.Pow(x, a)
	g1 := a * math.Pow(x, a-1)
	g11 := a * (a - 1) * math.Pow(x, a-2)
	g111 := a * (a - 1) * (a - 2) * math.Pow(x, a-3)
	return Unary(f, g, g1, g11, g111)
}

// Pow returns f1^f2.
func Pow(f1, f2 *Number) *Number {
	x, y := f1.value, f2.value
	g := math.Pow(x, y)
	lx := math.Log(x)

	c1 := math.Pow(x, y-1)
	c2 := math.Pow(x, y-2)
	g1 := y * c1
	g11 := y * (y - 1) * c2
	g111 := y * (y - 1) * (y - 2) * math.Pow(x, y-3)

	g2 := lx * g
	g22 := lx * g2
	g222 := lx * g22

	g12 := c1 * (1 + y*lx)
	g112 := c2 * (2*y - 1 + y*(y-1)*lx)
	g122 := c1 * lx * (2 + y*lx)
	return Binary(f1, f2, g, g1, g2, g11, g12, g22, g111, g112, g122, g222)
}

// Sin returns the sine of f.
func Sin(f *Number) *Number {
	s, c := math.Sincos(f.value)
	return Unary(f, s, c, -s, -c)
}

// Cos returns the cosine of f.
func Cos(f *Number) *Number {
	s, c := math.Sincos(f.value)
	return Unary(f, c, -s, -c, s)
}
