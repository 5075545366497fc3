package problem

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	symdiff "github.com/njchilds90/symdiff"
)

func TestLoad_YAML(t *testing.T) {
	p, err := Load("testdata/rosenbrock.yaml")
	require.NoError(t, err)
	assert.Equal(t, "rosenbrock", p.Name)
	require.Len(t, p.Variables, 2)
	assert.Equal(t, "x", p.Variables[0].String())
	assert.Equal(t, "(1 - x)^2 + 100*(y - x^2)^2", p.Objective.String())
	require.Len(t, p.Constraints, 1)
	assert.Equal(t, "x <= 2", p.Constraints[0].String())
	require.Len(t, p.Equalities, 1)
	assert.Equal(t, "x + y = 2", p.Equalities[0].String())

	x, _ := p.Variable("x")
	v, err := p.Start.Value(x)
	require.NoError(t, err)
	assert.Equal(t, -1.2, v)
}

func TestEvaluate(t *testing.T) {
	p, err := Load("testdata/rosenbrock.yaml")
	require.NoError(t, err)
	for _, compact := range []bool{false, true} {
		ev, err := p.Evaluate(p.Start, Query{Gradient: true, Hessian: true, Compact: compact})
		require.NoError(t, err)
		want := &Evaluation{
			Variables: []string{"x", "y"},
			Value:     24.2,
			Gradient:  []float64{-215.6, -88},
			Hessian:   [][]float64{{1330, 480}, {480, 200}},
			Constraints: []ConstraintValue{
				{Constraint: "x <= 2", Value: -1.2, Satisfied: true},
				{Constraint: "x + y = 2", Value: -0.2, Satisfied: false},
			},
		}
		if diff := cmp.Diff(want, ev, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("compact=%v: evaluation mismatch (-want +got):\n%s", compact, diff)
		}
	}
}

func TestEvaluate_ConstraintsWithinTolerance(t *testing.T) {
	p, err := Load("testdata/rosenbrock.yaml")
	require.NoError(t, err)
	pt, err := p.Point(map[string]float64{"x": 2 + 1e-10, "y": 0})
	require.NoError(t, err)
	ev, err := p.Evaluate(pt, Query{})
	require.NoError(t, err)
	require.Len(t, ev.Constraints, 2)
	for _, c := range ev.Constraints {
		assert.True(t, c.Satisfied, c.Constraint)
	}

	pt, err = p.Point(map[string]float64{"x": 2.001, "y": 0})
	require.NoError(t, err)
	ev, err = p.Evaluate(pt, Query{})
	require.NoError(t, err)
	for _, c := range ev.Constraints {
		assert.False(t, c.Satisfied, c.Constraint)
	}
}

func TestEvaluate_ValueOnly(t *testing.T) {
	p, err := Load("testdata/quadratic.json")
	require.NoError(t, err)
	pt, err := p.Point(map[string]float64{"a": 1, "b": 2})
	require.NoError(t, err)
	ev, err := p.Evaluate(pt, Query{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, ev.Value)
	assert.Nil(t, ev.Gradient)
	assert.Nil(t, ev.Hessian)
	assert.Equal(t, []string{"a", "b"}, ev.Variables)
}

func TestEvaluate_MissingVariable(t *testing.T) {
	p, err := Load("testdata/quadratic.json")
	require.NoError(t, err)
	pt, err := p.Point(map[string]float64{"a": 1})
	require.NoError(t, err)
	_, err = p.Evaluate(pt, Query{})
	assert.True(t, errors.Is(err, symdiff.ErrVariableNotAssigned))

	_, err = p.Point(map[string]float64{"c": 1})
	assert.Error(t, err)
}

func TestMinimize(t *testing.T) {
	p, err := Load("testdata/quadratic.json")
	require.NoError(t, err)
	res, err := p.Minimize(nil, &optimize.BFGS{})
	require.NoError(t, err)
	// (a-3)² + b² + ab is minimal at a = 4, b = -2.
	a, _ := p.Variable("a")
	b, _ := p.Variable("b")
	av, _ := res.Point.Value(a)
	bv, _ := res.Point.Value(b)
	assert.InDelta(t, 4.0, av, 1e-6)
	assert.InDelta(t, -2.0, bv, 1e-6)
}

func TestCheck(t *testing.T) {
	p, err := Load("testdata/rosenbrock.yaml")
	require.NoError(t, err)
	report, err := p.Check(p.Start, &symdiff.CheckSettings{HessianStep: 1e-4})
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Mismatches)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]struct {
		src    string
		format Format
	}{
		"no objective":   {`name: empty`, YAML},
		"unknown field":  {`{"objective": {"type": "num", "value": 1}, "goal": "min"}`, JSON},
		"yaml field":     {"objective: {type: num, value: 1}\nmethod: bfgs", YAML},
		"both bounds":    {"objective: {type: sym, name: x}\nconstraints: [{expr: {type: sym, name: x}, min: 0, equal: 1}]", YAML},
		"no bound":       {"objective: {type: sym, name: x}\nconstraints: [{expr: {type: sym, name: x}}]", YAML},
		"bad expression": {"objective: {type: tan}", YAML},
		"unknown start":  {"objective: {type: sym, name: x}\nstart: {z: 1}", YAML},
		"format":         {`{}`, Format("toml")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), tc.format)
			assert.Error(t, err)
		})
	}
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, JSON, FormatOf("p.JSON"))
	assert.Equal(t, YAML, FormatOf("p.yml"))
	assert.Equal(t, YAML, FormatOf("p"))
}
