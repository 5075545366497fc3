package extdual_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/njchilds90/symdiff/dual"
	"github.com/njchilds90/symdiff/extdual"
)

type testCase struct {
	name string
	ext  func(v []*extdual.Number) *extdual.Number
	base func(v []*dual.Number) *dual.Number
	x    []float64
}

var cases = []testCase{
	{
		name: "exp-product",
		ext:  func(v []*extdual.Number) *extdual.Number { return extdual.Exp(extdual.Mul(v[0], v[1])) },
		base: func(v []*dual.Number) *dual.Number { return dual.Exp(dual.Mul(v[0], v[1])) },
		x:    []float64{0.5, 0.8},
	},
	{
		name: "div",
		ext: func(v []*extdual.Number) *extdual.Number {
			return extdual.Div(extdual.Sqr(v[0]), extdual.AddScalar(extdual.Mul(v[1], v[2]), 2))
		},
		base: func(v []*dual.Number) *dual.Number {
			return dual.Div(dual.Sqr(v[0]), dual.AddScalar(dual.Mul(v[1], v[2]), 2))
		},
		x: []float64{1.2, 0.4, 0.9},
	},
	{
		name: "pow",
		ext:  func(v []*extdual.Number) *extdual.Number { return extdual.Pow(v[0], v[1]) },
		base: func(v []*dual.Number) *dual.Number { return dual.Pow(v[0], v[1]) },
		x:    []float64{1.6, 2.2},
	},
	{
		name: "log-sqrt-trig",
		ext: func(v []*extdual.Number) *extdual.Number {
			return extdual.Add(extdual.Log(extdual.Sqrt(v[0])), extdual.Mul(extdual.Sin(v[1]), extdual.Cos(v[2])))
		},
		base: func(v []*dual.Number) *dual.Number {
			return dual.Add(dual.Log(dual.Sqrt(v[0])), dual.Mul(dual.Sin(v[1]), dual.Cos(v[2])))
		},
		x: []float64{2.5, 0.3, -0.7},
	},
	{
		name: "pow-scalar-neg",
		ext: func(v []*extdual.Number) *extdual.Number {
			return extdual.Neg(extdual.PowScalar(extdual.Sub(v[0], extdual.MulScalar(v[1], 0.5)), 3.5))
		},
		base: func(v []*dual.Number) *dual.Number {
			return dual.Neg(dual.PowScalar(dual.Sub(v[0], dual.MulScalar(v[1], 0.5)), 3.5))
		},
		x: []float64{2, 0.6},
	},
	{
		name: "scalar-div",
		ext:  func(v []*extdual.Number) *extdual.Number { return extdual.ScalarDiv(3, extdual.Mul(v[0], v[1])) },
		base: func(v []*dual.Number) *dual.Number { return dual.ScalarDiv(3, dual.Mul(v[0], v[1])) },
		x:    []float64{0.9, 1.4},
	},
}

func seed(x []float64, n0 int) []*extdual.Number {
	v := make([]*extdual.Number, len(x))
	for i := range x {
		v[i] = extdual.Basis(x[i], len(x), i, n0)
	}
	return v
}

func seedDual(x []float64) []*dual.Number {
	v := make([]*dual.Number, len(x))
	for i := range x {
		v[i] = dual.Basis(x[i], len(x), i)
	}
	return v
}

func relErr(approx, exact float64) float64 {
	return math.Abs(approx-exact) / math.Max(1, math.Abs(approx))
}

func TestThirdDerivatives_MatchFiniteDifferencesOfHessians(t *testing.T) {
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := len(tc.x)
			got := tc.ext(seed(tc.x, n))
			for j := 0; j < n; j++ {
				for k := j; k < n; k++ {
					hjk := func(y []float64) float64 { return tc.base(seedDual(y)).D2(j, k) }
					approx := fd.Gradient(nil, hjk, tc.x, &fd.Settings{Formula: fd.Central, Step: 1e-6})
					for i := 0; i < n; i++ {
						exact, err := got.D3(i, j, k)
						require.NoError(t, err)
						assert.LessOrEqual(t, relErr(approx[i], exact), 1e-4,
							"third[%d,%d,%d]: exact %g approx %g", i, j, k, exact, approx[i])
					}
				}
			}
		})
	}
}

func TestLowerOrders_AgreeWithDual(t *testing.T) {
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.ext(seed(tc.x, 1))
			want := tc.base(seedDual(tc.x))
			assert.InDelta(t, want.Value(), got.Value(), 1e-12)
			opt := cmpopts.EquateApprox(1e-12, 1e-12)
			if diff := cmp.Diff(want.GradientArray(), got.GradientArray(), opt); diff != "" {
				t.Errorf("gradient mismatch (-dual +extended):\n%s", diff)
			}
			if diff := cmp.Diff(want.HessianArray(), got.HessianArray(), opt); diff != "" {
				t.Errorf("hessian mismatch (-dual +extended):\n%s", diff)
			}
		})
	}
}

func TestTrackedPrefix_SubsetOfFull(t *testing.T) {
	tc := cases[1]
	full := tc.ext(seed(tc.x, 3))
	part := tc.ext(seed(tc.x, 1))
	assert.Equal(t, 1, part.N0())
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			want, err := full.D3(0, j, k)
			require.NoError(t, err)
			got, err := part.D3(j, 0, k)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-12)
		}
	}

	_, err := part.D3(1, 2, 2)
	assert.True(t, errors.Is(err, extdual.ErrNotTracked))
}

func TestTensor_IsSymmetric(t *testing.T) {
	tc := cases[3]
	x := tc.ext(seed(tc.x, 2))
	tensor := x.Third()
	require.NotNil(t, tensor)
	n0, n1, n2 := tensor.Dims()
	assert.Equal(t, []int{2, 3, 3}, []int{n0, n1, n2})
	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			for k := 0; k < n2; k++ {
				want, err := x.D3(i, j, k)
				require.NoError(t, err)
				assert.Equal(t, want, tensor.At(i, j, k))
				assert.Equal(t, tensor.At(i, j, k), tensor.At(i, k, j))
				if j < n0 {
					assert.Equal(t, tensor.At(i, j, k), tensor.At(j, i, k))
				}
			}
		}
	}
	assert.Panics(t, func() { tensor.At(2, 0, 0) })
}

func TestExp_ClosedForm(t *testing.T) {
	v := seed([]float64{1, 2}, 2)
	f := extdual.Exp(extdual.Mul(v[0], v[1]))
	e2 := math.Exp(2)
	// d³/dx1³ e^{x1 x2} = x2³ e^{x1 x2}; d³/dx1²dx2 = (x1 x2² + 2 x2) e^{x1 x2}.
	d, err := f.D3(0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 8*e2, d, 1e-9)
	d, err = f.D3(0, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 8*e2, d, 1e-9)
	d, err = f.D3(1, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, e2, d, 1e-9)
}

func TestNoTrackedPrefix_HasNoThird(t *testing.T) {
	v := seed([]float64{1, 2}, 0)
	f := extdual.Exp(extdual.Mul(v[0], v[1]))
	assert.Nil(t, f.ThirdArray())
	assert.Nil(t, f.Third())
	_, err := f.D3(0, 0, 0)
	assert.True(t, errors.Is(err, extdual.ErrNotTracked))
}

func TestNew_Validation(t *testing.T) {
	_, err := extdual.New(0, []float64{1, 2}, []float64{0, 0, 0}, []float64{1}, 1)
	assert.True(t, errors.Is(err, extdual.ErrDimension))

	_, err = extdual.New(0, []float64{1, 2}, nil, []float64{1, 2, 3}, 1)
	assert.True(t, errors.Is(err, extdual.ErrMissingLowerOrder))

	_, err = extdual.New(0, []float64{1, 2}, nil, nil, 3)
	assert.True(t, errors.Is(err, extdual.ErrTrackedPrefix))

	x, err := extdual.New(0, []float64{1, 2}, []float64{0, 0, 0}, []float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	d, err := x.D3(1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d)
}

func TestFromMatrix(t *testing.T) {
	g := mat.NewVecDense(2, []float64{1, 2})
	h := mat.NewSymDense(2, []float64{1, 5, 5, 3})
	x, err := extdual.FromMatrix(7, g, h, 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, x.D2(1, 0))
	assert.True(t, mat.EqualApprox(h, x.Hessian(), 0))
	assert.Equal(t, 7.0, x.Dual().Value())
}

func TestMixedDimensionsPanics(t *testing.T) {
	assert.Panics(t, func() { extdual.Add(extdual.Basis(0, 2, 0, 1), extdual.Basis(0, 2, 1, 2)) })
	assert.Same(t, extdual.Zero(), extdual.Const(0))
}
