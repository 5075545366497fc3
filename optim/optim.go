// Package optim exposes symdiff functions to gonum's optimizers.
//
// An Objective evaluates a Function over an ordered list of variables. The
// value, gradient and Hessian requested by an optimizer at one iterate share
// a single symdiff.Evaluator, so sub-expressions common to the three are
// computed once per iterate.
package optim

import (
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	symdiff "github.com/njchilds90/symdiff"
)

// ErrUnboundVariable is returned when the function depends on a variable
// that is neither optimized nor fixed.
var ErrUnboundVariable = errors.New("optim: variable neither optimized nor fixed")

// Objective adapts a Function of vars to gonum/optimize. Variables of the
// function that are not optimized keep the values of the fixed point.
type Objective struct {
	f     symdiff.Function
	vars  []*symdiff.Variable
	fixed *symdiff.Point
	grad  []symdiff.Function
	hess  [][]symdiff.Function

	mu   sync.Mutex
	x    []float64
	eval *symdiff.Evaluator
	err  error
}

// NewObjective checks that every variable of f is either in vars or
// assigned by fixed. fixed may be nil.
func NewObjective(f symdiff.Function, vars []*symdiff.Variable, fixed *symdiff.Point) (*Objective, error) {
	if len(vars) == 0 {
		return nil, symdiff.ErrNoVariables
	}
	if fixed == nil {
		fixed = symdiff.EmptyPoint()
	}
	seen := make(map[*symdiff.Variable]bool, len(vars))
	for _, v := range vars {
		if v == nil {
			return nil, symdiff.ErrNilVariable
		}
		if seen[v] {
			return nil, errors.Wrapf(symdiff.ErrRepeatedVariable, "%s", v)
		}
		if fixed.Contains(v) {
			return nil, errors.Errorf("optim: variable %s is both optimized and fixed", v)
		}
		seen[v] = true
	}
	for _, v := range symdiff.Variables(f) {
		if !seen[v] && !fixed.Contains(v) {
			return nil, errors.Wrapf(ErrUnboundVariable, "%s", v)
		}
	}
	return &Objective{
		f:     f,
		vars:  append([]*symdiff.Variable(nil), vars...),
		fixed: fixed,
		grad:  symdiff.Gradient(f, vars),
		hess:  symdiff.Hessian(f, vars),
	}, nil
}

// Variables returns the optimized variables in the order of x.
func (o *Objective) Variables() []*symdiff.Variable {
	return append([]*symdiff.Variable(nil), o.vars...)
}

// Point returns the fixed point extended by vars[i] = x[i].
func (o *Objective) Point(x []float64) (*symdiff.Point, error) {
	p, err := symdiff.PointOf(o.vars, x)
	if err != nil {
		return nil, err
	}
	return o.fixed.With(p.Assignments()...)
}

// evaluator returns the evaluator of x, reusing the last one when x has not
// changed. o.mu must be held.
func (o *Objective) evaluator(x []float64) *symdiff.Evaluator {
	if o.eval != nil && floats.Equal(o.x, x) {
		return o.eval
	}
	p, err := o.Point(x)
	if err != nil {
		o.setErr(err)
		p = o.fixed
	}
	o.x = append(o.x[:0], x...)
	o.eval = symdiff.NewEvaluator(p)
	return o.eval
}

// evaluate returns the value of f at x. Errors are kept for Err and the
// value becomes NaN.
func (o *Objective) evaluate(e *symdiff.Evaluator, f symdiff.Function) float64 {
	v, err := e.Evaluate(f)
	if err != nil {
		o.setErr(err)
		return math.NaN()
	}
	return v
}

func (o *Objective) setErr(err error) {
	if o.err == nil {
		o.err = err
	}
}

// Func returns f at x.
func (o *Objective) Func(x []float64) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.evaluate(o.evaluator(x), o.f)
}

// Grad stores the gradient of f at x in grad.
func (o *Objective) Grad(grad, x []float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := o.evaluator(x)
	for i, g := range o.grad {
		grad[i] = o.evaluate(e, g)
	}
}

// Hess stores the Hessian of f at x in hess.
func (o *Objective) Hess(hess *mat.SymDense, x []float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := o.evaluator(x)
	for i := range o.vars {
		for j := i; j < len(o.vars); j++ {
			hess.SetSym(i, j, o.evaluate(e, o.hess[i][j]))
		}
	}
}

// Err returns the first evaluation error.
func (o *Objective) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Problem returns the gonum problem. An evaluation error stops the
// optimizer at its next status check.
func (o *Objective) Problem() optimize.Problem {
	return optimize.Problem{
		Func: o.Func,
		Grad: o.Grad,
		Hess: o.Hess,
		Status: func() (optimize.Status, error) {
			if err := o.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
}

// Problem adapts f over vars. Every variable of f must be in vars.
func Problem(f symdiff.Function, vars []*symdiff.Variable) (optimize.Problem, error) {
	o, err := NewObjective(f, vars, nil)
	if err != nil {
		return optimize.Problem{}, err
	}
	return o.Problem(), nil
}

// Result is the outcome of Minimize.
type Result struct {
	// Point assigns the optimum to the optimized variables and keeps the
	// fixed values.
	Point    *symdiff.Point
	Value    float64
	Gradient []float64
	Status   optimize.Status
	Stats    optimize.Stats
}

// Minimize runs method from start. start must assign every optimized
// variable; its other assignments are held fixed. A nil method lets gonum
// choose one, and nil settings use gonum's defaults.
func Minimize(f symdiff.Function, vars []*symdiff.Variable, start *symdiff.Point, settings *optimize.Settings, method optimize.Method) (*Result, error) {
	if start == nil {
		start = symdiff.EmptyPoint()
	}
	x0 := make([]float64, len(vars))
	var fixed []symdiff.Assignment
	optimized := make(map[*symdiff.Variable]int, len(vars))
	for i, v := range vars {
		optimized[v] = i
	}
	for _, a := range start.Assignments() {
		if i, ok := optimized[a.Variable]; ok {
			x0[i] = a.Value
			delete(optimized, a.Variable)
			continue
		}
		fixed = append(fixed, a)
	}
	for v := range optimized {
		return nil, errors.Wrapf(symdiff.ErrVariableNotAssigned, "start point: %s", v)
	}
	base, err := symdiff.NewPoint(fixed...)
	if err != nil {
		return nil, err
	}
	o, err := NewObjective(f, vars, base)
	if err != nil {
		return nil, err
	}

	log := symdiff.Logger().WithFields(logrus.Fields{"function": f.String(), "method": MethodName(method)})
	log.Debugf("optim: starting at %s", start)
	res, err := optimize.Minimize(o.Problem(), x0, settings, method)
	if err == nil {
		err = o.Err()
	}
	if err != nil {
		log.WithError(err).Warn("optim: minimization failed")
		return nil, errors.Wrap(err, "optim: minimize")
	}
	p, err := o.Point(res.X)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"status":     res.Status,
		"iterations": res.MajorIterations,
		"evals":      res.FuncEvaluations,
	}).Infof("optim: minimum %g at %s", res.F, p)
	return &Result{
		Point:    p,
		Value:    res.F,
		Gradient: res.Gradient,
		Status:   res.Status,
		Stats:    res.Stats,
	}, nil
}

// Methods lists the names accepted by MethodByName.
var Methods = []string{"bfgs", "lbfgs", "newton", "cg", "gradient-descent", "nelder-mead"}

// MethodByName returns a fresh gonum method. Names are case insensitive.
func MethodByName(name string) (optimize.Method, error) {
	switch strings.ToLower(name) {
	case "bfgs":
		return &optimize.BFGS{}, nil
	case "lbfgs":
		return &optimize.LBFGS{}, nil
	case "newton":
		return &optimize.Newton{}, nil
	case "cg":
		return &optimize.CG{}, nil
	case "gradient-descent":
		return &optimize.GradientDescent{}, nil
	case "nelder-mead":
		return &optimize.NelderMead{}, nil
	}
	return nil, errors.Errorf("optim: unknown method %q (want one of %s)", name, strings.Join(Methods, ", "))
}

// MethodName is the inverse of MethodByName. Unknown methods, including nil,
// give "auto".
func MethodName(m optimize.Method) string {
	switch m.(type) {
	case *optimize.BFGS:
		return "bfgs"
	case *optimize.LBFGS:
		return "lbfgs"
	case *optimize.Newton:
		return "newton"
	case *optimize.CG:
		return "cg"
	case *optimize.GradientDescent:
		return "gradient-descent"
	case *optimize.NelderMead:
		return "nelder-mead"
	}
	return "auto"
}
