// Package symdiff builds scalar expressions as shared, immutable graphs and
// differentiates them symbolically.
//
// Expressions are values of type Function. Constructors fold constants
// eagerly, so an operation applied to constants is itself a *Constant.
// Derivatives are computed on first request and memoized on the node: calling
// Derivative twice with the same variable returns the same object, which lets
// an Evaluator compute every shared sub-expression of a gradient or Hessian
// once per point.
//
//	x, y := symdiff.NewVariable("x"), symdiff.NewVariable("y")
//	f := symdiff.Add(symdiff.Sqr(symdiff.Sub(symdiff.Const(1), x)),
//		symdiff.Scale(symdiff.Sqr(symdiff.Sub(y, symdiff.Sqr(x))), 100))
//	dfdx := f.Derivative(x)
//	v, err := dfdx.Value(symdiff.MustPoint(x.Assign(1), y.Assign(1)))
//
// The dual-number engines live in the dual and extdual packages;
// DualFunction exposes a dual-number computation as a Function.
package symdiff

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ============================================================
// Core interface
// ============================================================

// Function is a node of an expression graph. Nodes are compared by identity
// and are safe for concurrent use once built.
type Function interface {
	// Value evaluates the function at p, computing each distinct node once.
	Value(p *Point) (float64, error)
	// Derivative returns the memoized derivative with respect to v.
	Derivative(v *Variable) Function
	// PartialValue replaces the variables assigned in p by constants.
	PartialValue(p *Point) Function
	String() string

	eval(e *Evaluator) float64
	derive(v *Variable) Function
	reduce(r *PartialEvaluator) Function
	args() []Function
	variables() []*Variable
}

// node holds the mutable state shared by operation nodes: the derivative memo
// and the lazily computed set of variables the node depends on.
type node struct {
	mu    sync.Mutex
	deriv map[*Variable]Function

	varsOnce sync.Once
	vars     []*Variable
}

// derivative returns the memoized derivative of self. Zero results are not
// stored since they are the shared zero constant anyway. The rule runs outside
// the lock; when two goroutines race, the first stored result wins and is
// returned to both.
func (n *node) derivative(self Function, v *Variable) Function {
	if v == nil {
		panic("symdiff: derivative with respect to a nil variable")
	}
	if !dependsOn(self, v) {
		return zero()
	}
	n.mu.Lock()
	d, ok := n.deriv[v]
	n.mu.Unlock()
	if ok {
		return d
	}

	d = self.derive(v)
	if d == Function(zero()) {
		return d
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if prev, ok := n.deriv[v]; ok {
		return prev
	}
	if n.deriv == nil {
		n.deriv = make(map[*Variable]Function)
	}
	n.deriv[v] = d
	return d
}

// variablesOf returns the variables of self's arguments, sorted by id.
func (n *node) variablesOf(self Function) []*Variable {
	n.varsOnce.Do(func() {
		for _, a := range self.args() {
			n.vars = mergeVariables(n.vars, a.variables())
		}
	})
	return n.vars
}

func mergeVariables(a, b []*Variable) []*Variable {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]*Variable, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i, j = i+1, j+1
		case a[i].id < b[j].id:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func dependsOn(f Function, v *Variable) bool {
	vs := f.variables()
	i := sort.Search(len(vs), func(i int) bool { return vs[i].id >= v.id })
	return i < len(vs) && vs[i] == v
}

// Variables returns the variables f depends on, ordered by creation.
func Variables(f Function) []*Variable {
	return append([]*Variable(nil), f.variables()...)
}

// DependsOn reports whether f depends on v.
func DependsOn(f Function, v *Variable) bool { return v != nil && dependsOn(f, v) }

// ============================================================
// Higher derivatives
// ============================================================

// DerivativeN differentiates f order times with respect to v. Order 0
// returns f.
func DerivativeN(f Function, v *Variable, order int) (d Function, err error) {
	if order < 0 {
		return nil, errors.Wrapf(ErrNegativeOrder, "order %d", order)
	}
	defer recoverOrder(&err)
	d = f
	for i := 0; i < order; i++ {
		d = d.Derivative(v)
	}
	return d, nil
}

// DerivativeOf differentiates f with respect to each variable in turn. It
// panics with *UnsupportedOrderError when a node cannot provide the order;
// TryDerivative returns that as an error instead.
func DerivativeOf(f Function, vs ...*Variable) Function {
	for _, v := range vs {
		f = f.Derivative(v)
	}
	return f
}

// TryDerivative is DerivativeOf with unsupported orders reported as errors.
func TryDerivative(f Function, vs ...*Variable) (d Function, err error) {
	defer recoverOrder(&err)
	return DerivativeOf(f, vs...), nil
}
