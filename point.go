package symdiff

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Assignment pairs a variable with a value.
type Assignment struct {
	Variable *Variable
	Value    float64
}

// Point is an immutable assignment of values to variables. Equality and the
// hash do not depend on the order the assignments were given in.
type Point struct {
	entries []Assignment // sorted by variable id
	hash    uint64
}

var emptyPoint = &Point{}

// EmptyPoint returns the point without assignments.
func EmptyPoint() *Point { return emptyPoint }

// NewPoint builds a point. Assigning a variable twice is accepted when both
// values are equal and fails with ErrConflictingAssignment otherwise.
func NewPoint(assignments ...Assignment) (*Point, error) {
	entries := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Variable == nil {
			return nil, ErrNilVariable
		}
		entries = append(entries, a)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Variable.id < entries[j].Variable.id })

	p := &Point{entries: entries[:0]}
	for _, a := range entries {
		if n := len(p.entries); n > 0 && p.entries[n-1].Variable == a.Variable {
			if !sameValue(p.entries[n-1].Value, a.Value) {
				return nil, errors.Wrapf(ErrConflictingAssignment, "%s = %g and %g", a.Variable, p.entries[n-1].Value, a.Value)
			}
			continue
		}
		p.entries = append(p.entries, a)
		p.hash ^= pairHash(a)
	}
	return p, nil
}

// MustPoint is NewPoint that panics on error.
func MustPoint(assignments ...Assignment) *Point {
	p, err := NewPoint(assignments...)
	if err != nil {
		panic(err)
	}
	return p
}

// PointOf assigns xs[i] to vars[i].
func PointOf(vars []*Variable, xs []float64) (*Point, error) {
	if len(vars) != len(xs) {
		return nil, errors.Errorf("symdiff: %d variables and %d values", len(vars), len(xs))
	}
	as := make([]Assignment, len(vars))
	for i, v := range vars {
		as[i] = Assignment{Variable: v, Value: xs[i]}
	}
	return NewPoint(as...)
}

func sameValue(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func pairHash(a Assignment) uint64 {
	x := a.Value
	switch {
	case x == 0:
		x = 0 // -0 hashes like +0
	case math.IsNaN(x):
		x = math.NaN()
	}
	return (23*31+a.Variable.id)*31 + math.Float64bits(x)
}

func (p *Point) find(v *Variable) int {
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].Variable.id >= v.id })
	if i < len(p.entries) && p.entries[i].Variable == v {
		return i
	}
	return -1
}

// Value returns the value assigned to v, or a *VariableNotAssignedError.
func (p *Point) Value(v *Variable) (float64, error) {
	if i := p.find(v); i >= 0 {
		return p.entries[i].Value, nil
	}
	return 0, &VariableNotAssignedError{Variable: v}
}

// Contains reports whether v is assigned.
func (p *Point) Contains(v *Variable) bool { return p.find(v) >= 0 }

// Len returns the number of assigned variables.
func (p *Point) Len() int { return len(p.entries) }

// Hash returns the order independent hash of the assignments.
func (p *Point) Hash() uint64 { return p.hash }

// Equal reports whether p and q assign the same values to the same variables.
func (p *Point) Equal(q *Point) bool {
	if p == q {
		return true
	}
	if p == nil || q == nil || p.hash != q.hash || len(p.entries) != len(q.entries) {
		return false
	}
	for i, a := range p.entries {
		b := q.entries[i]
		if a.Variable != b.Variable || !sameValue(a.Value, b.Value) {
			return false
		}
	}
	return true
}

// Assignments returns the assignments ordered by variable creation.
func (p *Point) Assignments() []Assignment { return append([]Assignment(nil), p.entries...) }

// Variables returns the assigned variables ordered by creation.
func (p *Point) Variables() []*Variable {
	vs := make([]*Variable, len(p.entries))
	for i, a := range p.entries {
		vs[i] = a.Variable
	}
	return vs
}

// With returns p extended by more assignments. Conflicts with the existing
// values fail like in NewPoint.
func (p *Point) With(assignments ...Assignment) (*Point, error) {
	return NewPoint(append(p.Assignments(), assignments...)...)
}

// override returns p with the given assignments replacing existing values.
func (p *Point) override(assignments []Assignment) *Point {
	m := make(map[*Variable]float64, len(assignments))
	for _, a := range assignments {
		m[a.Variable] = a.Value
	}
	as := make([]Assignment, 0, len(p.entries)+len(assignments))
	for _, a := range p.entries {
		if _, ok := m[a.Variable]; !ok {
			as = append(as, a)
		}
	}
	as = append(as, assignments...)
	q, err := NewPoint(as...)
	if err != nil {
		// Only duplicate replacements of one variable can conflict, and
		// the callers pass distinct variables.
		panic(err)
	}
	return q
}

// restrict returns the assignments of the given variables, failing on the
// first one that is missing.
func (p *Point) restrict(vars []*Variable) (*Point, error) {
	if len(vars) == len(p.entries) {
		same := true
		for i, v := range vars {
			if p.entries[i].Variable != v {
				same = false
				break
			}
		}
		if same {
			return p, nil
		}
	}
	as := make([]Assignment, len(vars))
	for i, v := range vars {
		x, err := p.Value(v)
		if err != nil {
			return nil, err
		}
		as[i] = Assignment{Variable: v, Value: x}
	}
	return NewPoint(as...)
}

func (p *Point) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, a := range p.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Variable.String())
		b.WriteString(": ")
		b.WriteString(formatFloat(a.Value))
	}
	b.WriteByte('}')
	return b.String()
}
