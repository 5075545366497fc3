package symdiff

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// ============================================================
// Derivative checker
// ============================================================

// DefaultCheckTolerance is the relative error accepted by CheckDerivatives.
const DefaultCheckTolerance = 1e-4

// CheckSettings configures CheckDerivatives. The zero value uses
// DefaultCheckTolerance, central differences and gonum's default steps.
type CheckSettings struct {
	Tolerance float64
	// Step is the finite difference step of the gradient check. The Hessian
	// check uses HessianStep.
	Step        float64
	HessianStep float64
	// SkipHessian limits the check to first derivatives.
	SkipHessian bool
}

// Mismatch is a derivative whose exact and approximate values disagree.
type Mismatch struct {
	// Index holds one variable index for a gradient entry and two for a
	// Hessian entry.
	Index       []int
	Exact       float64
	Approximate float64
	RelError    float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%v: exact %g approx %g (relative error %.3g)", m.Index, m.Exact, m.Approximate, m.RelError)
}

// CheckReport is the outcome of CheckDerivatives.
type CheckReport struct {
	Gradient    *mat.VecDense
	Hessian     *mat.SymDense
	MaxRelError float64
	Mismatches  []Mismatch
}

// OK reports whether no derivative exceeded the tolerance.
func (r *CheckReport) OK() bool { return len(r.Mismatches) == 0 }

// RelativeError returns |approx - exact| / max(1, |approx|).
func RelativeError(approx, exact float64) float64 {
	return math.Abs(approx-exact) / math.Max(1, math.Abs(approx))
}

// CheckDerivatives compares the symbolic gradient and Hessian of f at p with
// central finite differences of f's values. Variables of f not in vars must
// be assigned in p and are held fixed.
func CheckDerivatives(f Function, vars []*Variable, p *Point, settings *CheckSettings) (*CheckReport, error) {
	var s CheckSettings
	if settings != nil {
		s = *settings
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultCheckTolerance
	}
	n := len(vars)
	if n == 0 {
		return nil, ErrNoVariables
	}
	p = nonNilPoint(p)
	x0 := make([]float64, n)
	for i, v := range vars {
		x, err := p.Value(v)
		if err != nil {
			return nil, err
		}
		x0[i] = x
	}

	// fd wants a plain float64 function; the first evaluation error is kept
	// and reported after the differences are taken.
	var evalErr error
	values := func(x []float64) float64 {
		as := make([]Assignment, n)
		for i, v := range vars {
			as[i] = Assignment{Variable: v, Value: x[i]}
		}
		y, err := NewEvaluator(p.override(as)).Evaluate(f)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return y
	}

	report := &CheckReport{}
	var err error
	report.Gradient, err = GradientAt(f, vars, p)
	if err != nil {
		return nil, err
	}
	approx := fd.Gradient(nil, values, x0, &fd.Settings{Formula: fd.Central, Step: s.Step})
	if evalErr != nil {
		return nil, evalErr
	}
	for i := 0; i < n; i++ {
		report.add([]int{i}, report.Gradient.AtVec(i), approx[i], s.Tolerance)
	}

	if !s.SkipHessian {
		report.Hessian, err = HessianAt(f, vars, p)
		if err != nil {
			return nil, err
		}
		h := mat.NewSymDense(n, nil)
		fd.Hessian(h, values, x0, &fd.Settings{Formula: fd.Central, Step: s.HessianStep})
		if evalErr != nil {
			return nil, evalErr
		}
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				report.add([]int{i, j}, report.Hessian.At(i, j), h.At(i, j), s.Tolerance)
			}
		}
	}

	log := Logger().WithFields(logrus.Fields{"function": f.String(), "point": p.String()})
	for _, m := range report.Mismatches {
		log.Warnf("symdiff: derivative %v", m)
	}
	if report.OK() {
		log.Debugf("symdiff: derivatives agree, max relative error %.3g", report.MaxRelError)
	}
	return report, nil
}

func (r *CheckReport) add(index []int, exact, approx, tol float64) {
	e := RelativeError(approx, exact)
	if e > r.MaxRelError || math.IsNaN(e) {
		r.MaxRelError = e
	}
	if e > tol || math.IsNaN(e) {
		r.Mismatches = append(r.Mismatches, Mismatch{Index: index, Exact: exact, Approximate: approx, RelError: e})
	}
}
