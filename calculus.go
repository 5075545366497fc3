package symdiff

import "gonum.org/v1/gonum/mat"

// ============================================================
// Gradients and Hessians
// ============================================================

// Gradient returns the partial derivatives of f with respect to vars.
func Gradient(f Function, vars []*Variable) []Function {
	g := make([]Function, len(vars))
	for i, v := range vars {
		g[i] = f.Derivative(v)
	}
	return g
}

// Hessian returns the second partial derivatives of f. Only the upper
// triangle is differentiated; h[j][i] is the same object as h[i][j].
func Hessian(f Function, vars []*Variable) [][]Function {
	g := Gradient(f, vars)
	h := make([][]Function, len(vars))
	for i := range h {
		h[i] = make([]Function, len(vars))
	}
	for i := range vars {
		for j := i; j < len(vars); j++ {
			h[i][j] = g[i].Derivative(vars[j])
			h[j][i] = h[i][j]
		}
	}
	return h
}

// GradientAt evaluates the gradient of f at p. All entries are computed
// through one Evaluator, so sub-expressions they share are computed once.
func GradientAt(f Function, vars []*Variable, p *Point) (*mat.VecDense, error) {
	if len(vars) == 0 {
		return nil, ErrNoVariables
	}
	xs, err := Evaluate(p, Gradient(f, vars)...)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(vars), xs), nil
}

// HessianAt evaluates the Hessian of f at p through one Evaluator.
func HessianAt(f Function, vars []*Variable, p *Point) (*mat.SymDense, error) {
	n := len(vars)
	if n == 0 {
		return nil, ErrNoVariables
	}
	h := Hessian(f, vars)
	e := NewEvaluator(p)
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v, err := e.Evaluate(h[i][j])
			if err != nil {
				return nil, err
			}
			m.SetSym(i, j, v)
		}
	}
	return m, nil
}

// ValueGradientHessianAt evaluates f, its gradient and its Hessian at p
// through one Evaluator. Optimizers query all three at each iterate.
func ValueGradientHessianAt(f Function, vars []*Variable, p *Point) (float64, *mat.VecDense, *mat.SymDense, error) {
	n := len(vars)
	if n == 0 {
		return 0, nil, nil, ErrNoVariables
	}
	e := NewEvaluator(p)
	v, err := e.Evaluate(f)
	if err != nil {
		return 0, nil, nil, err
	}
	g := Gradient(f, vars)
	grad := mat.NewVecDense(n, nil)
	hess := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		x, err := e.Evaluate(g[i])
		if err != nil {
			return 0, nil, nil, err
		}
		grad.SetVec(i, x)
		for j := i; j < n; j++ {
			x, err := e.Evaluate(g[i].Derivative(vars[j]))
			if err != nil {
				return 0, nil, nil, err
			}
			hess.SetSym(i, j, x)
		}
	}
	return v, grad, hess, nil
}
