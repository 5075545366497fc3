package symdiff

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ============================================================
// Evaluator
// ============================================================

// Evaluator computes function values at one point. The standard evaluator
// remembers the value of every node it has computed, so a sub-expression
// shared by many parents, or by many functions evaluated through the same
// Evaluator, is computed once. The compact evaluator keeps no memo and
// recomputes shared nodes, trading time for memory.
//
// An Evaluator is meant for a single goroutine and a short lifetime.
type Evaluator struct {
	point *Point
	memo  map[Function]float64
}

// NewEvaluator returns a memoizing evaluator for p.
func NewEvaluator(p *Point) *Evaluator {
	return &Evaluator{point: nonNilPoint(p), memo: make(map[Function]float64)}
}

// NewCompactEvaluator returns an evaluator for p that keeps no memo.
func NewCompactEvaluator(p *Point) *Evaluator {
	return &Evaluator{point: nonNilPoint(p)}
}

func nonNilPoint(p *Point) *Point {
	if p == nil {
		return emptyPoint
	}
	return p
}

// Point returns the point values are computed at.
func (e *Evaluator) Point() *Point { return e.point }

// Evaluate returns the value of f. A missing variable yields a
// *VariableNotAssignedError.
func (e *Evaluator) Evaluate(f Function) (v float64, err error) {
	defer recoverEval(&err)
	return e.value(f), nil
}

// EvaluateAll returns the values of fs, stopping at the first error.
func (e *Evaluator) EvaluateAll(fs ...Function) ([]float64, error) { return evaluateAll(e, fs) }

func (e *Evaluator) value(f Function) float64 {
	switch f := f.(type) {
	case *Constant:
		return f.value
	case *Variable:
		return f.eval(e)
	}
	if e.memo == nil {
		return f.eval(e)
	}
	if v, ok := e.memo[f]; ok {
		return v
	}
	v := f.eval(e)
	e.memo[f] = v
	return v
}

// derived returns an evaluator of the same kind for another point.
func (e *Evaluator) derived(p *Point) *Evaluator {
	if e.memo == nil {
		return NewCompactEvaluator(p)
	}
	return NewEvaluator(p)
}

// Evaluate computes fs at p through one memoizing evaluator.
func Evaluate(p *Point, fs ...Function) ([]float64, error) {
	return evaluateAll(NewEvaluator(p), fs)
}

// EvaluateCompact computes fs at p without memoization.
func EvaluateCompact(p *Point, fs ...Function) ([]float64, error) {
	return evaluateAll(NewCompactEvaluator(p), fs)
}

func evaluateAll(e *Evaluator, fs []Function) ([]float64, error) {
	out := make([]float64, len(fs))
	for i, f := range fs {
		v, err := e.Evaluate(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ValueAt evaluates f at the point built from assignments.
func ValueAt(f Function, assignments ...Assignment) (float64, error) {
	p, err := NewPoint(assignments...)
	if err != nil {
		return 0, err
	}
	return f.Value(p)
}

// ============================================================
// Partial evaluation and substitution
// ============================================================

// Substitution replaces a variable by a function.
type Substitution struct {
	Variable *Variable
	Function Function
}

// PartialEvaluator rewrites expressions with some variables replaced. It
// produces one reduced node per distinct source node, so sharing in the
// source graph is preserved in the result.
type PartialEvaluator struct {
	subs map[*Variable]Function
	memo map[Function]Function
}

// NewPartialEvaluator replaces each variable assigned in p by its value.
func NewPartialEvaluator(p *Point) *PartialEvaluator {
	p = nonNilPoint(p)
	r := &PartialEvaluator{
		subs: make(map[*Variable]Function, p.Len()),
		memo: make(map[Function]Function),
	}
	for _, a := range p.entries {
		r.subs[a.Variable] = Const(a.Value)
	}
	return r
}

// NewSubstitutionEvaluator replaces variables by functions. Replacements are
// simultaneous: a replacement is not itself rewritten.
func NewSubstitutionEvaluator(subs ...Substitution) (*PartialEvaluator, error) {
	r := &PartialEvaluator{
		subs: make(map[*Variable]Function, len(subs)),
		memo: make(map[Function]Function),
	}
	for _, s := range subs {
		if s.Variable == nil || s.Function == nil {
			return nil, ErrNilVariable
		}
		if prev, ok := r.subs[s.Variable]; ok && prev != s.Function {
			return nil, errors.Wrapf(ErrConflictingAssignment, "%s substituted twice", s.Variable)
		}
		r.subs[s.Variable] = s.Function
	}
	return r, nil
}

// Substitute returns f with the variables replaced.
func Substitute(f Function, subs ...Substitution) (Function, error) {
	r, err := NewSubstitutionEvaluator(subs...)
	if err != nil {
		return nil, err
	}
	return r.Reduce(f), nil
}

// Reduce returns f rewritten. Untouched sub-expressions are returned as is.
func (r *PartialEvaluator) Reduce(f Function) Function {
	switch f.(type) {
	case *Constant, *Variable:
		return f.reduce(r)
	}
	if g, ok := r.memo[f]; ok {
		return g
	}
	g := f.reduce(r)
	r.memo[f] = g
	return g
}

// affects reports whether any variable of f is replaced.
func (r *PartialEvaluator) affects(f Function) bool {
	for _, v := range f.variables() {
		if _, ok := r.subs[v]; ok {
			return true
		}
	}
	return false
}

// opaque rewrites a node whose structure is not visible, such as a dual
// number computation, by wrapping it in a substitution node.
func (r *PartialEvaluator) opaque(f Function) Function {
	if !r.affects(f) {
		return f
	}
	var subs []Substitution
	for _, v := range f.variables() {
		if g, ok := r.subs[v]; ok {
			subs = append(subs, Substitution{Variable: v, Function: g})
		}
	}
	return substitute(f, subs)
}

// substituted is an opaque function F with some of its variables u replaced
// by functions g_u. Its value is F at the point extended by the values of
// g_u, and its derivative follows the chain rule
//
//	d/dv F(g(v), v) = Σ_u ∂F/∂u(g)·∂g_u/∂v + ∂F/∂v(g)
type substituted struct {
	node
	inner Function
	subs  []Substitution // sorted by variable id
}

// substitute builds the substitution node, folding it to a constant when the
// replacements fix every variable of inner to a constant.
func substitute(inner Function, subs []Substitution) Function {
	if len(subs) == 0 {
		return inner
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Variable.id < subs[j].Variable.id })
	s := &substituted{inner: inner, subs: subs}
	if len(s.variables()) == 0 {
		if v, err := s.Value(emptyPoint); err == nil {
			return Const(v)
		}
	}
	return s
}

func (s *substituted) Value(p *Point) (float64, error) { return NewEvaluator(p).Evaluate(s) }
func (s *substituted) Derivative(v *Variable) Function { return s.node.derivative(s, v) }
func (s *substituted) PartialValue(p *Point) Function  { return NewPartialEvaluator(p).Reduce(s) }
func (s *substituted) String() string                  { return format(s, false) }

func (s *substituted) args() []Function {
	a := make([]Function, len(s.subs))
	for i, sub := range s.subs {
		a[i] = sub.Function
	}
	return a
}

func (s *substituted) replaced(v *Variable) (Function, bool) {
	i := sort.Search(len(s.subs), func(i int) bool { return s.subs[i].Variable.id >= v.id })
	if i < len(s.subs) && s.subs[i].Variable == v {
		return s.subs[i].Function, true
	}
	return nil, false
}

// variables are those of the replacements plus the inner variables that are
// not replaced.
func (s *substituted) variables() []*Variable {
	s.node.varsOnce.Do(func() {
		var kept []*Variable
		for _, v := range s.inner.variables() {
			if _, ok := s.replaced(v); !ok {
				kept = append(kept, v)
			}
		}
		s.node.vars = kept
		for _, sub := range s.subs {
			s.node.vars = mergeVariables(s.node.vars, sub.Function.variables())
		}
	})
	return s.node.vars
}

func (s *substituted) eval(e *Evaluator) float64 {
	as := make([]Assignment, len(s.subs))
	for i, sub := range s.subs {
		as[i] = Assignment{Variable: sub.Variable, Value: e.value(sub.Function)}
	}
	return e.derived(e.point.override(as)).value(s.inner)
}

func (s *substituted) derive(v *Variable) Function {
	var terms []Function
	for _, sub := range s.subs {
		dg := sub.Function.Derivative(v)
		if isConst(dg, 0) {
			continue
		}
		dF := s.inner.Derivative(sub.Variable)
		terms = append(terms, Mul(substitute(dF, s.subsFor(dF)), dg))
	}
	if _, ok := s.replaced(v); !ok {
		if d := s.inner.Derivative(v); !isConst(d, 0) {
			terms = append(terms, substitute(d, s.subsFor(d)))
		}
	}
	return Sum(terms...)
}

// subsFor returns the substitutions that concern the variables of f.
func (s *substituted) subsFor(f Function) []Substitution {
	var out []Substitution
	for _, v := range f.variables() {
		if g, ok := s.replaced(v); ok {
			out = append(out, Substitution{Variable: v, Function: g})
		}
	}
	return out
}

// reduce composes the substitutions: replacements are rewritten by r, and
// inner variables left free are replaced as r says.
func (s *substituted) reduce(r *PartialEvaluator) Function {
	if !r.affects(s) {
		return s
	}
	subs := make([]Substitution, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, Substitution{Variable: sub.Variable, Function: r.Reduce(sub.Function)})
	}
	for _, v := range s.inner.variables() {
		if _, ok := s.replaced(v); ok {
			continue
		}
		if g, ok := r.subs[v]; ok {
			subs = append(subs, Substitution{Variable: v, Function: g})
		}
	}
	return substitute(s.inner, subs)
}

func (s *substituted) describe() string {
	var b strings.Builder
	b.WriteString(s.inner.String())
	b.WriteByte('[')
	for i, sub := range s.subs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sub.Variable.String())
		b.WriteString(" := ")
		b.WriteString(sub.Function.String())
	}
	b.WriteByte(']')
	return b.String()
}
