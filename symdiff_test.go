package symdiff_test

import (
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symdiff "github.com/njchilds90/symdiff"
)

func rosenbrock() (f symdiff.Function, x, y *symdiff.Variable) {
	x, y = symdiff.NewVariable("x"), symdiff.NewVariable("y")
	a := symdiff.Sqr(symdiff.Sub(symdiff.Const(1), x))
	b := symdiff.Scale(symdiff.Sqr(symdiff.Sub(y, symdiff.Sqr(x))), 100)
	return symdiff.Add(a, b), x, y
}

func mustValue(t *testing.T, f symdiff.Function, p *symdiff.Point) float64 {
	t.Helper()
	v, err := f.Value(p)
	require.NoError(t, err)
	return v
}

// ============================================================
// Constants and folding
// ============================================================

func TestConst_SharedZeroAndOne(t *testing.T) {
	if symdiff.Const(0) != symdiff.Zero() {
		t.Errorf("Const(0) should be the shared zero")
	}
	if symdiff.Const(1) != symdiff.One() {
		t.Errorf("Const(1) should be the shared one")
	}
}

func TestConstantFolding(t *testing.T) {
	cases := []struct {
		name string
		f    symdiff.Function
		want float64
	}{
		{"exp", symdiff.Exp(symdiff.Const(0)), 1},
		{"log", symdiff.Log(symdiff.Const(math.E)), 1},
		{"sqrt", symdiff.Sqrt(symdiff.Const(9)), 3},
		{"pow", symdiff.Pow(symdiff.Const(2), symdiff.Const(10)), 1024},
		{"div", symdiff.Div(symdiff.Const(1), symdiff.Const(4)), 0.25},
		{"sum", symdiff.Sum(symdiff.Const(1), symdiff.Const(2), symdiff.Const(3)), 6},
		{"sin", symdiff.Sin(symdiff.Const(0)), 0},
		{"abs", symdiff.Abs(symdiff.Const(-2)), 2},
		{"positive", symdiff.Positive(symdiff.Const(-2)), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := tc.f.(*symdiff.Constant)
			if !ok {
				t.Fatalf("want a constant, got %T %s", tc.f, tc.f)
			}
			assert.InDelta(t, tc.want, c.Float64(), 1e-12)
		})
	}
}

func TestAlgebraicShortcuts(t *testing.T) {
	x := symdiff.NewVariable("x")
	assert.Same(t, x, symdiff.Add(x, symdiff.Zero()))
	assert.Same(t, x, symdiff.Mul(x, symdiff.One()))
	assert.Equal(t, symdiff.Function(symdiff.Zero()), symdiff.Mul(x, symdiff.Zero()))
	assert.Same(t, x, symdiff.PowConst(x, 1))
	assert.Same(t, x, symdiff.Neg(symdiff.Neg(x)))
	assert.Equal(t, "sqrt(x)", symdiff.PowConst(x, 0.5).String())
	assert.Equal(t, "x^2", symdiff.PowConst(x, 2).String())
	assert.Equal(t, "-x", symdiff.Sub(symdiff.Zero(), x).String())
	assert.Equal(t, "-x", symdiff.Mul(symdiff.Const(-1), x).String())
	assert.Equal(t, "0.5*x", symdiff.Div(x, symdiff.Const(2)).String())
}

func TestStepIsNaNAtZero(t *testing.T) {
	if v := symdiff.Step(symdiff.Const(0)).(*symdiff.Constant).Float64(); !math.IsNaN(v) {
		t.Errorf("want NaN, got %g", v)
	}
	x := symdiff.NewVariable("x")
	d := symdiff.Abs(x).Derivative(x)
	v, err := d.Value(symdiff.MustPoint(x.Assign(0)))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v), "abs'(0) should be NaN, got %g", v)
	v, err = d.Value(symdiff.MustPoint(x.Assign(-3)))
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

// ============================================================
// Differentiation
// ============================================================

func TestDerivative_VariableIdentity(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	p := symdiff.MustPoint(x.Assign(3), y.Assign(-4))
	if v := mustValue(t, x.Derivative(x), p); v != 1 {
		t.Errorf("dx/dx: want 1, got %g", v)
	}
	if v := mustValue(t, x.Derivative(y), p); v != 0 {
		t.Errorf("dx/dy: want 0, got %g", v)
	}
}

func TestDerivative_SameObject(t *testing.T) {
	f, x, y := rosenbrock()
	assert.Same(t, f.Derivative(x), f.Derivative(x))
	assert.Same(t, f.Derivative(x).Derivative(y), f.Derivative(x).Derivative(y))
}

func TestDerivative_ConcurrentFirstRequest(t *testing.T) {
	f, x, _ := rosenbrock()
	g := symdiff.Exp(symdiff.Mul(f, x))
	results := make([]symdiff.Function, 32)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Derivative(x)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestDerivative_Rosenbrock(t *testing.T) {
	f, x, y := rosenbrock()
	p := symdiff.MustPoint(x.Assign(1), y.Assign(1))
	assert.Equal(t, 0.0, mustValue(t, f, p))
	assert.Equal(t, 0.0, mustValue(t, f.Derivative(x), p))
	assert.Equal(t, 0.0, mustValue(t, f.Derivative(y), p))

	// Closed form at (-1.2, 1).
	q := symdiff.MustPoint(x.Assign(-1.2), y.Assign(1))
	xv, yv := -1.2, 1.0
	assert.InDelta(t, -2*(1-xv)-400*xv*(yv-xv*xv), mustValue(t, f.Derivative(x), q), 1e-9)
	assert.InDelta(t, 200*(yv-xv*xv), mustValue(t, f.Derivative(y), q), 1e-9)
	assert.InDelta(t, 2-400*yv+1200*xv*xv, mustValue(t, symdiff.DerivativeOf(f, x, x), q), 1e-9)
	assert.InDelta(t, -400*xv, mustValue(t, symdiff.DerivativeOf(f, x, y), q), 1e-9)
}

func TestDerivative_SchwarzSymmetry(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	fs := []symdiff.Function{
		symdiff.Exp(symdiff.Mul(x, y)),
		symdiff.Div(symdiff.Sin(x), symdiff.Add(symdiff.Sqr(y), symdiff.Const(1))),
		symdiff.Pow(symdiff.Add(x, symdiff.Const(2)), symdiff.Cos(y)),
		symdiff.Log(symdiff.Add(symdiff.Sqrt(symdiff.Mul(x, x)), symdiff.ConstPow(2, y))),
		symdiff.Sum(x, y, symdiff.Mul(x, y), symdiff.PowConst(symdiff.Add(symdiff.Sqr(x), symdiff.Sqr(y)), 1.5)),
	}
	points := []*symdiff.Point{
		symdiff.MustPoint(x.Assign(0.7), y.Assign(1.3)),
		symdiff.MustPoint(x.Assign(1.9), y.Assign(-0.4)),
	}
	for _, f := range fs {
		xy := symdiff.DerivativeOf(f, x, y)
		yx := symdiff.DerivativeOf(f, y, x)
		for _, p := range points {
			a, b := mustValue(t, xy, p), mustValue(t, yx, p)
			assert.InDelta(t, a, b, 1e-9*math.Max(1, math.Abs(a)), "%s at %s", f, p)
		}
	}
}

func TestDerivative_SinCosPartners(t *testing.T) {
	x := symdiff.NewVariable("x")
	s := symdiff.Sin(x)
	c := s.Derivative(x)
	assert.Equal(t, "cos(x)", c.String())
	// d/dx cos(x) = -sin(x) must reuse the original sin node.
	back := c.Derivative(x)
	assert.Equal(t, "-sin(x)", back.String())
	assert.Same(t, c, s.Derivative(x))
	// Going around once more lands on the same cos node.
	again := symdiff.DerivativeOf(s, x, x, x)
	assert.Equal(t, "-cos(x)", again.String())
}

func TestDerivative_ExpReusesItself(t *testing.T) {
	x := symdiff.NewVariable("x")
	e := symdiff.Exp(symdiff.Scale(x, 2))
	assert.Equal(t, "2*exp(2*x)", e.Derivative(x).String())
}

func TestDerivative_GradientSharesOuterFactor(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	s := symdiff.Add(x, y)
	cases := map[string]symdiff.Function{
		"sqr":      symdiff.Sqr(s),
		"sqrt":     symdiff.Sqrt(s),
		"powconst": symdiff.PowConst(s, 3),
		"constpow": symdiff.ConstPow(2, s),
		"recip":    symdiff.Div(symdiff.Const(1), s),
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			// d(x+y)/dx = d(x+y)/dy = 1, so both partials are the factor itself.
			assert.Same(t, f.Derivative(x), f.Derivative(y))
		})
	}
}

func TestDerivativeN(t *testing.T) {
	x := symdiff.NewVariable("x")
	f := symdiff.PowConst(x, 4)
	d, err := symdiff.DerivativeN(f, x, 3)
	require.NoError(t, err)
	assert.InDelta(t, 48.0, mustValue(t, d, symdiff.MustPoint(x.Assign(2))), 1e-12)

	d, err = symdiff.DerivativeN(f, x, 0)
	require.NoError(t, err)
	assert.Same(t, f, d)

	_, err = symdiff.DerivativeN(f, x, -1)
	assert.True(t, errors.Is(err, symdiff.ErrNegativeOrder))
}

func TestPiecewiseDerivatives(t *testing.T) {
	x := symdiff.NewVariable("x")
	f := symdiff.Positive(symdiff.Sub(symdiff.Sqr(x), symdiff.Const(1)))
	d := f.Derivative(x)
	assert.InDelta(t, 4.0, mustValue(t, d, symdiff.MustPoint(x.Assign(2))), 1e-12)
	assert.Equal(t, 0.0, mustValue(t, d, symdiff.MustPoint(x.Assign(0.5))))
	assert.True(t, math.IsNaN(mustValue(t, d, symdiff.MustPoint(x.Assign(1)))))

	step := symdiff.Step(x)
	dd := step.Derivative(x)
	assert.Equal(t, 0.0, mustValue(t, dd, symdiff.MustPoint(x.Assign(3))))
	assert.True(t, math.IsNaN(mustValue(t, dd, symdiff.MustPoint(x.Assign(0)))))
	assert.Same(t, dd, dd.Derivative(x))
}

func TestMinMax(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	p := symdiff.MustPoint(x.Assign(2), y.Assign(5))
	assert.Equal(t, 2.0, mustValue(t, symdiff.Min(x, y), p))
	assert.Equal(t, 5.0, mustValue(t, symdiff.Max(x, y), p))
}

// ============================================================
// Evaluation
// ============================================================

func TestValue_UnassignedVariable(t *testing.T) {
	f, x, y := rosenbrock()
	_, err := f.Value(symdiff.MustPoint(x.Assign(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, symdiff.ErrVariableNotAssigned))
	var nae *symdiff.VariableNotAssignedError
	require.True(t, errors.As(err, &nae))
	assert.Same(t, y, nae.Variable)
}

func TestEvaluate_StandardAndCompactAgree(t *testing.T) {
	f, x, y := rosenbrock()
	g := symdiff.Gradient(f, []*symdiff.Variable{x, y})
	p := symdiff.MustPoint(x.Assign(-1.2), y.Assign(1))
	a, err := symdiff.Evaluate(p, g...)
	require.NoError(t, err)
	b, err := symdiff.EvaluateCompact(p, g...)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestValueAt(t *testing.T) {
	x := symdiff.NewVariable("x")
	v, err := symdiff.ValueAt(symdiff.Sqr(x), x.Assign(3))
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	_, err = symdiff.ValueAt(x, x.Assign(1), x.Assign(2))
	assert.True(t, errors.Is(err, symdiff.ErrConflictingAssignment))
}

func TestPartialValue_FoldsAssignedBranches(t *testing.T) {
	f, x, y := rosenbrock()
	g := f.PartialValue(symdiff.MustPoint(x.Assign(1)))
	assert.Equal(t, []*symdiff.Variable{y}, symdiff.Variables(g))
	assert.Equal(t, "100*(y - 1)^2", g.String())
	assert.InDelta(t, 100.0, mustValue(t, g, symdiff.MustPoint(y.Assign(2))), 1e-12)

	all := f.PartialValue(symdiff.MustPoint(x.Assign(1), y.Assign(1)))
	c, ok := all.(*symdiff.Constant)
	require.True(t, ok, "fully assigned function should fold, got %s", all)
	assert.Equal(t, 0.0, c.Float64())
}

func TestPartialValue_PreservesSharing(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	shared := symdiff.Exp(symdiff.Mul(x, y))
	f := symdiff.Add(symdiff.Sin(shared), symdiff.Cos(shared))
	g := f.PartialValue(symdiff.MustPoint(y.Assign(2)))

	assert.Equal(t, "sin(exp(2*x)) + cos(exp(2*x))", g.String())
	untouched := f.PartialValue(symdiff.EmptyPoint())
	assert.Same(t, f, untouched)
}

func TestSubstitute(t *testing.T) {
	x, y, u := symdiff.NewVariable("x"), symdiff.NewVariable("y"), symdiff.NewVariable("u")
	f := symdiff.Mul(x, y)
	g, err := symdiff.Substitute(f, x.SubstituteWith(symdiff.Sqr(u)), y.SubstituteWith(x))
	require.NoError(t, err)
	// Replacements are simultaneous: the y := x replacement is not rewritten.
	assert.Equal(t, "u^2*x", g.String())
	assert.InDelta(t, 12.0, mustValue(t, g, symdiff.MustPoint(u.Assign(2), x.Assign(3))), 1e-12)

	_, err = symdiff.Substitute(f, x.SubstituteWith(u), x.SubstituteWith(y))
	assert.True(t, errors.Is(err, symdiff.ErrConflictingAssignment))
}

// ============================================================
// Calculus helpers
// ============================================================

func TestGradientAndHessianAt(t *testing.T) {
	f, x, y := rosenbrock()
	vars := []*symdiff.Variable{x, y}
	p := symdiff.MustPoint(x.Assign(1), y.Assign(1))

	g, err := symdiff.GradientAt(f, vars, p)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, g.RawVector().Data)

	h, err := symdiff.HessianAt(f, vars, p)
	require.NoError(t, err)
	assert.InDelta(t, 802.0, h.At(0, 0), 1e-9)
	assert.InDelta(t, -400.0, h.At(0, 1), 1e-9)
	assert.InDelta(t, -400.0, h.At(1, 0), 1e-9)
	assert.InDelta(t, 200.0, h.At(1, 1), 1e-9)

	hs := symdiff.Hessian(f, vars)
	assert.Same(t, hs[0][1], hs[1][0])

	v, g2, h2, err := symdiff.ValueGradientHessianAt(f, vars, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, g.RawVector().Data, g2.RawVector().Data)
	assert.Equal(t, h.At(0, 1), h2.At(0, 1))

	_, err = symdiff.GradientAt(f, nil, p)
	assert.True(t, errors.Is(err, symdiff.ErrNoVariables))
}

// ============================================================
// Constraints
// ============================================================

func TestConstraints(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	p := symdiff.MustPoint(x.Assign(1), y.Assign(2))

	ok, err := symdiff.LessEq(x, y).Satisfied(p, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = symdiff.GreaterEq(x, y).Satisfied(p, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = symdiff.AtLeast(symdiff.Add(x, y), 3).Satisfied(p, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = symdiff.AtMost(x, 0.9).Satisfied(p, 0.2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = symdiff.EqualTo(symdiff.Mul(x, y), 2).Satisfied(p, 1e-12)
	require.NoError(t, err)
	assert.True(t, ok)

	// Holds is the value test behind Satisfied.
	c := symdiff.AtMost(x, 1)
	assert.True(t, c.Holds(1+1e-10, 1e-9))
	assert.False(t, c.Holds(1+1e-8, 1e-9))
	assert.True(t, symdiff.AtLeast(x, 0).Holds(math.Inf(1), 0))
	e := symdiff.EqualTo(x, 1)
	assert.True(t, e.Holds(1-1e-10, 1e-9))
	assert.False(t, e.Holds(math.NaN(), 1))

	assert.Equal(t, "x - y <= 0", symdiff.LessEq(x, y).String())
	assert.Equal(t, "x >= 3", symdiff.AtLeast(x, 3).String())
}
