package symdiff_test

import (
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/dual"
)

// dualRosenbrock returns the Rosenbrock function computed with dual numbers
// and a counter of closure calls.
func dualRosenbrock(t *testing.T, opts ...symdiff.DualOption) (*symdiff.DualFunction, *int64, *symdiff.Variable, *symdiff.Variable) {
	t.Helper()
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	var calls int64
	f, err := symdiff.NewDualFunction(func(tr symdiff.Transform) *dual.Number {
		atomic.AddInt64(&calls, 1)
		dx, dy := tr.Dual(x), tr.Dual(y)
		a := dual.Sqr(dual.ScalarSub(1, dx))
		b := dual.MulScalar(dual.Sqr(dual.Sub(dy, dual.Sqr(dx))), 100)
		return dual.Add(a, b)
	}, []*symdiff.Variable{x, y}, opts...)
	require.NoError(t, err)
	return f, &calls, x, y
}

// ============================================================
// Dual number bridge
// ============================================================

func TestDualFunction_MatchesSymbolic(t *testing.T) {
	f, _, x, y := dualRosenbrock(t, symdiff.WithName("rosen"))
	g := symdiff.Add(
		symdiff.Sqr(symdiff.Sub(symdiff.Const(1), x)),
		symdiff.Scale(symdiff.Sqr(symdiff.Sub(y, symdiff.Sqr(x))), 100),
	)
	p := symdiff.MustPoint(x.Assign(-1.2), y.Assign(1))
	vars := []*symdiff.Variable{x, y}

	for _, d := range [][]*symdiff.Variable{nil, {x}, {y}, {x, x}, {x, y}, {y, x}, {y, y}} {
		want := mustValue(t, symdiff.DerivativeOf(g, d...), p)
		got := mustValue(t, symdiff.DerivativeOf(f, d...), p)
		assert.InDelta(t, want, got, 1e-9, "derivative %v", d)
	}
	assert.Equal(t, "rosen(x, y)", f.String())
	assert.Equal(t, "drosen(x, y)/dx", f.Derivative(x).String())
	assert.Equal(t, vars, f.Variables())
}

func TestDualFunction_OneComputationPerPoint(t *testing.T) {
	f, calls, x, y := dualRosenbrock(t)
	vars := []*symdiff.Variable{x, y}
	p := symdiff.MustPoint(x.Assign(0.5), y.Assign(0.25))

	_, err := f.Value(p)
	require.NoError(t, err)
	_, err = symdiff.GradientAt(f, vars, p)
	require.NoError(t, err)
	_, err = symdiff.HessianAt(f, vars, p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))

	// Extra assignments do not change the cache key.
	z := symdiff.NewVariable("z")
	_, err = f.Value(symdiff.MustPoint(x.Assign(0.5), y.Assign(0.25), z.Assign(9)))
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))

	_, err = f.Value(symdiff.MustPoint(x.Assign(0.5), y.Assign(0.5)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(calls))
}

func TestDualFunction_CacheDisabled(t *testing.T) {
	f, calls, x, y := dualRosenbrock(t, symdiff.WithCacheSize(0))
	p := symdiff.MustPoint(x.Assign(0.5), y.Assign(0.25))
	for i := 0; i < 3; i++ {
		_, err := f.Value(p)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, atomic.LoadInt64(calls))
}

func TestDualFunction_ThirdOrderUnsupported(t *testing.T) {
	f, _, x, y := dualRosenbrock(t)
	_, err := symdiff.TryDerivative(f, x, y, x)
	require.Error(t, err)
	assert.True(t, errors.Is(err, symdiff.ErrUnsupportedOrder))
	var uoe *symdiff.UnsupportedOrderError
	require.True(t, errors.As(err, &uoe))
	assert.Equal(t, 3, uoe.Order)

	_, err = symdiff.DerivativeN(f, y, 3)
	assert.True(t, errors.Is(err, symdiff.ErrUnsupportedOrder))

	// Variables the function does not track differentiate to zero at any
	// order.
	z := symdiff.NewVariable("z")
	d, err := symdiff.TryDerivative(f, x, y, z)
	require.NoError(t, err)
	assert.Equal(t, symdiff.Function(symdiff.Zero()), d)
}

func TestDualFunction_MissingAssignment(t *testing.T) {
	f, _, x, y := dualRosenbrock(t)
	_, err := f.Value(symdiff.MustPoint(x.Assign(1)))
	var nae *symdiff.VariableNotAssignedError
	require.True(t, errors.As(err, &nae), "got %v", err)
	assert.Same(t, y, nae.Variable)
}

func TestDualFunction_UntrackedVariableInClosure(t *testing.T) {
	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
	f, err := symdiff.NewDualFunction(func(tr symdiff.Transform) *dual.Number {
		return dual.Mul(tr.Dual(x), tr.Dual(y))
	}, []*symdiff.Variable{x})
	require.NoError(t, err)
	_, err = f.Value(symdiff.MustPoint(x.Assign(1), y.Assign(2)))
	assert.True(t, errors.Is(err, symdiff.ErrVariableNotAssigned), "got %v", err)
}

func TestDualFunction_PartialValueAndSubstitution(t *testing.T) {
	f, _, x, y := dualRosenbrock(t)
	g := f.PartialValue(symdiff.MustPoint(x.Assign(1)))
	assert.Equal(t, []*symdiff.Variable{y}, symdiff.Variables(g))
	p := symdiff.MustPoint(y.Assign(3))
	assert.InDelta(t, 400.0, mustValue(t, g, p), 1e-12)
	assert.InDelta(t, 400.0, mustValue(t, g.Derivative(y), p), 1e-12)

	// x := t², y := t: f(t², t) = (1 - t²)² + 100(t - t⁴)².
	tv := symdiff.NewVariable("t")
	h, err := symdiff.Substitute(f,
		x.SubstituteWith(symdiff.Sqr(tv)),
		y.SubstituteWith(tv),
	)
	require.NoError(t, err)
	at := symdiff.MustPoint(tv.Assign(2))
	tt := 2.0
	assert.InDelta(t, (1-tt*tt)*(1-tt*tt)+100*(tt-tt*tt*tt*tt)*(tt-tt*tt*tt*tt), mustValue(t, h, at), 1e-9)
	// d/dt = -4t(1 - t²) + 200(t - t⁴)(1 - 4t³)
	want := -4*tt*(1-tt*tt) + 200*(tt-tt*tt*tt*tt)*(1-4*tt*tt*tt)
	assert.InDelta(t, want, mustValue(t, h.Derivative(tv), at), 1e-9)
}

func TestNewDualFunction_Validation(t *testing.T) {
	x := symdiff.NewVariable("x")
	_, err := symdiff.NewDualFunction(nil, []*symdiff.Variable{x})
	assert.Error(t, err)
	_, err = symdiff.NewDualFunction(func(symdiff.Transform) *dual.Number { return dual.Zero() }, []*symdiff.Variable{nil})
	assert.True(t, errors.Is(err, symdiff.ErrNilVariable))
	_, err = symdiff.NewDualFunction(func(symdiff.Transform) *dual.Number { return dual.Zero() }, []*symdiff.Variable{x}, symdiff.WithCacheSize(-1))
	assert.Error(t, err)

	y := symdiff.NewVariable("y")
	_, err = symdiff.NewDualFunction(func(symdiff.Transform) *dual.Number { return dual.Zero() }, []*symdiff.Variable{x, y, x})
	assert.True(t, errors.Is(err, symdiff.ErrRepeatedVariable))

	f, err := symdiff.NewDualFunction(func(tr symdiff.Transform) *dual.Number {
		return dual.Basis(1, 3, 0)
	}, []*symdiff.Variable{x})
	require.NoError(t, err)
	_, err = f.Value(symdiff.MustPoint(x.Assign(1)))
	assert.Error(t, err, "three derivatives for one variable")
}
