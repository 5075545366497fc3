package symdiff

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// ============================================================
// Constant
// ============================================================

// Constant is a fixed number.
type Constant struct{ value float64 }

var (
	zero = sync.OnceValue(func() *Constant { return &Constant{value: 0} })
	one  = sync.OnceValue(func() *Constant { return &Constant{value: 1} })
)

// Const returns a constant. Const(0) and Const(1) return shared instances.
func Const(a float64) *Constant {
	switch a {
	case 0:
		return zero()
	case 1:
		return one()
	}
	return &Constant{value: a}
}

// Zero returns the shared zero constant.
func Zero() *Constant { return zero() }

// One returns the shared constant 1.
func One() *Constant { return one() }

func (c *Constant) Float64() float64                  { return c.value }
func (c *Constant) Value(*Point) (float64, error)     { return c.value, nil }
func (c *Constant) Derivative(*Variable) Function     { return zero() }
func (c *Constant) PartialValue(*Point) Function      { return c }
func (c *Constant) String() string                    { return formatFloat(c.value) }
func (c *Constant) eval(*Evaluator) float64           { return c.value }
func (c *Constant) derive(*Variable) Function         { return zero() }
func (c *Constant) reduce(*PartialEvaluator) Function { return c }
func (c *Constant) args() []Function                  { return nil }
func (c *Constant) variables() []*Variable            { return nil }

func formatFloat(a float64) string { return strconv.FormatFloat(a, 'g', -1, 64) }

// constant returns the value of f when f is a constant.
func constant(f Function) (float64, bool) {
	c, ok := f.(*Constant)
	if !ok {
		return 0, false
	}
	return c.value, true
}

func isConst(f Function, a float64) bool {
	c, ok := f.(*Constant)
	return ok && c.value == a
}

// ============================================================
// Variable
// ============================================================

// Variable is a leaf that takes its value from a Point. Two variables are
// never equal, whatever their names.
type Variable struct {
	id   uint64
	name string
	self []*Variable
}

var lastVariableID atomic.Uint64

// NewVariable returns a fresh variable. The name is only used for display
// and may be empty.
func NewVariable(name string) *Variable {
	v := &Variable{id: lastVariableID.Add(1), name: name}
	v.self = []*Variable{v}
	return v
}

// NewVariables returns one fresh variable per name.
func NewVariables(names ...string) []*Variable {
	vs := make([]*Variable, len(names))
	for i, n := range names {
		vs[i] = NewVariable(n)
	}
	return vs
}

// ID returns the process-unique id of v.
func (v *Variable) ID() uint64 { return v.id }

// Name returns the display name, which may be empty.
func (v *Variable) Name() string { return v.name }

// Assign pairs v with a value for building a Point.
func (v *Variable) Assign(x float64) Assignment { return Assignment{Variable: v, Value: x} }

// SubstituteWith pairs v with a replacement for Substitute.
func (v *Variable) SubstituteWith(f Function) Substitution {
	return Substitution{Variable: v, Function: f}
}

func (v *Variable) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.name == "" {
		return "v" + strconv.FormatUint(v.id, 10)
	}
	return v.name
}

func (v *Variable) Value(p *Point) (float64, error) { return nonNilPoint(p).Value(v) }

func (v *Variable) Derivative(w *Variable) Function {
	if w == nil {
		panic("symdiff: derivative with respect to a nil variable")
	}
	return v.derive(w)
}

func (v *Variable) PartialValue(p *Point) Function { return NewPartialEvaluator(p).Reduce(v) }

func (v *Variable) eval(e *Evaluator) float64 {
	x, err := e.point.Value(v)
	if err != nil {
		fail(err)
	}
	return x
}

func (v *Variable) derive(w *Variable) Function {
	if v == w {
		return one()
	}
	return zero()
}

func (v *Variable) reduce(r *PartialEvaluator) Function {
	if f, ok := r.subs[v]; ok {
		return f
	}
	return v
}

func (v *Variable) args() []Function       { return nil }
func (v *Variable) variables() []*Variable { return v.self }
