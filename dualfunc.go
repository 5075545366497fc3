package symdiff

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/njchilds90/symdiff/dual"
	"github.com/njchilds90/symdiff/internal/pointcache"
)

// ============================================================
// Dual number bridge
// ============================================================

// Transform supplies the dual numbers of the tracked variables to a
// DualFunction computation.
type Transform interface {
	// Dual returns the basis dual number of v at the current point. It
	// panics with *VariableNotAssignedError when v is not tracked.
	Dual(v *Variable) *dual.Number
	// Variables returns the tracked variables in basis order.
	Variables() []*Variable
}

// DualOption configures a DualFunction.
type DualOption func(*DualFunction)

// WithCacheSize sets how many points keep their dual number. Zero disables
// caching.
func WithCacheSize(n int) DualOption { return func(d *DualFunction) { d.cacheSize = n } }

// WithName sets the display name.
func WithName(name string) DualOption { return func(d *DualFunction) { d.name = name } }

// DualFunction is a Function computed by a dual number closure. The closure
// runs once per point: the value, every gradient entry and every Hessian
// entry at that point are read from the same cached dual number. Derivatives
// beyond the second order are not available and fail with
// *UnsupportedOrderError.
type DualFunction struct {
	node
	fn        func(Transform) *dual.Number
	vars      []*Variable // basis order
	sorted    []*Variable // by id
	index     map[*Variable]int
	name      string
	cacheSize int
	cache     *pointcache.Cache[*Point, *dual.Number]
}

// NewDualFunction wraps fn over vars, which fix the basis order of the dual
// numbers. Listing a variable twice fails with ErrRepeatedVariable.
func NewDualFunction(fn func(Transform) *dual.Number, vars []*Variable, opts ...DualOption) (*DualFunction, error) {
	if fn == nil {
		return nil, errors.New("symdiff: nil dual function")
	}
	d := &DualFunction{
		fn:        fn,
		index:     make(map[*Variable]int, len(vars)),
		name:      "dual",
		cacheSize: pointcache.DefaultSize,
	}
	for _, o := range opts {
		o(d)
	}
	for _, v := range vars {
		if v == nil {
			return nil, ErrNilVariable
		}
		if _, ok := d.index[v]; ok {
			return nil, errors.Wrapf(ErrRepeatedVariable, "%s", v)
		}
		d.index[v] = len(d.vars)
		d.vars = append(d.vars, v)
		d.sorted = mergeVariables(d.sorted, v.self)
	}
	cache, err := pointcache.New[*Point, *dual.Number](d.cacheSize, Logger())
	if err != nil {
		return nil, errors.Wrap(err, "symdiff: dual function cache")
	}
	d.cache = cache
	return d, nil
}

// Variables returns the tracked variables in basis order.
func (d *DualFunction) Variables() []*Variable { return append([]*Variable(nil), d.vars...) }

// DualValue returns the dual number at p, computing it on a cache miss.
func (d *DualFunction) DualValue(p *Point) (*dual.Number, error) {
	key, err := nonNilPoint(p).restrict(d.vars)
	if err != nil {
		return nil, err
	}
	return d.cache.GetOrCompute(key, func() (x *dual.Number, err error) {
		defer recoverEval(&err)
		Logger().WithField("point", key).Debugf("symdiff: computing %s", d.name)
		x = d.fn(&transform{d: d, p: key})
		if x == nil {
			return nil, errors.Errorf("symdiff: %s returned no dual number", d.name)
		}
		if x.HasGradient() && x.N() != len(d.vars) {
			return nil, errors.Errorf("symdiff: %s returned %d derivatives for %d variables", d.name, x.N(), len(d.vars))
		}
		return x, nil
	})
}

func (d *DualFunction) dualAt(e *Evaluator) *dual.Number {
	x, err := d.DualValue(e.point)
	if err != nil {
		fail(err)
	}
	return x
}

func (d *DualFunction) Value(p *Point) (float64, error)     { return NewEvaluator(p).Evaluate(d) }
func (d *DualFunction) Derivative(v *Variable) Function     { return d.node.derivative(d, v) }
func (d *DualFunction) PartialValue(p *Point) Function      { return NewPartialEvaluator(p).Reduce(d) }
func (d *DualFunction) String() string                      { return d.describe() }
func (d *DualFunction) eval(e *Evaluator) float64           { return d.dualAt(e).Value() }
func (d *DualFunction) derive(v *Variable) Function         { return &dualGradient{parent: d, i: d.index[v]} }
func (d *DualFunction) reduce(r *PartialEvaluator) Function { return r.opaque(d) }
func (d *DualFunction) args() []Function                    { return nil }
func (d *DualFunction) variables() []*Variable              { return d.sorted }

func (d *DualFunction) describe() string {
	names := make([]string, len(d.vars))
	for i, v := range d.vars {
		names[i] = v.String()
	}
	return d.name + "(" + strings.Join(names, ", ") + ")"
}

type transform struct {
	d *DualFunction
	p *Point
}

func (t *transform) Dual(v *Variable) *dual.Number {
	i, ok := t.d.index[v]
	if !ok {
		fail(&VariableNotAssignedError{Variable: v})
	}
	x, err := t.p.Value(v)
	if err != nil {
		fail(err)
	}
	return dual.Basis(x, len(t.d.vars), i)
}

func (t *transform) Variables() []*Variable { return t.d.Variables() }

// dualGradient reads one gradient entry of its parent's dual number.
type dualGradient struct {
	node
	parent *DualFunction
	i      int
}

func (g *dualGradient) Value(p *Point) (float64, error)     { return NewEvaluator(p).Evaluate(g) }
func (g *dualGradient) Derivative(v *Variable) Function     { return g.node.derivative(g, v) }
func (g *dualGradient) PartialValue(p *Point) Function      { return NewPartialEvaluator(p).Reduce(g) }
func (g *dualGradient) String() string                      { return g.describe() }
func (g *dualGradient) eval(e *Evaluator) float64           { return g.parent.dualAt(e).D(g.i) }
func (g *dualGradient) reduce(r *PartialEvaluator) Function { return r.opaque(g) }
func (g *dualGradient) args() []Function                    { return nil }
func (g *dualGradient) variables() []*Variable              { return g.parent.sorted }

func (g *dualGradient) derive(v *Variable) Function {
	return &dualHessian{parent: g.parent, i: g.i, j: g.parent.index[v]}
}

func (g *dualGradient) describe() string {
	return fmt.Sprintf("d%s/d%s", g.parent.describe(), g.parent.vars[g.i])
}

// dualHessian reads one Hessian entry of its parent's dual number.
type dualHessian struct {
	node
	parent *DualFunction
	i, j   int
}

func (h *dualHessian) Value(p *Point) (float64, error)     { return NewEvaluator(p).Evaluate(h) }
func (h *dualHessian) Derivative(v *Variable) Function     { return h.node.derivative(h, v) }
func (h *dualHessian) PartialValue(p *Point) Function      { return NewPartialEvaluator(p).Reduce(h) }
func (h *dualHessian) String() string                      { return h.describe() }
func (h *dualHessian) eval(e *Evaluator) float64           { return h.parent.dualAt(e).D2(h.i, h.j) }
func (h *dualHessian) reduce(r *PartialEvaluator) Function { return r.opaque(h) }
func (h *dualHessian) args() []Function                    { return nil }
func (h *dualHessian) variables() []*Variable              { return h.parent.sorted }

// derive is only reached for variables the parent depends on; independent
// variables yield zero before the rule runs.
func (h *dualHessian) derive(*Variable) Function {
	panic(&UnsupportedOrderError{Order: 3, Function: h.parent.describe()})
}

func (h *dualHessian) describe() string {
	return fmt.Sprintf("d2%s/d%sd%s", h.parent.describe(), h.parent.vars[h.i], h.parent.vars[h.j])
}
