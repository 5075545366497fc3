package symdiff

import (
	"fmt"
	"math"
)

// Constraint bounds a function: Min ≤ Function ≤ Max. Either bound may be
// infinite. Constraints only describe the bound; optimizers consume them.
type Constraint struct {
	Function Function
	Min, Max float64
}

// LessEq returns the constraint f ≤ g.
func LessEq(f, g Function) *Constraint {
	return &Constraint{Function: Sub(f, g), Min: math.Inf(-1), Max: 0}
}

// GreaterEq returns the constraint f ≥ g.
func GreaterEq(f, g Function) *Constraint {
	return &Constraint{Function: Sub(f, g), Min: 0, Max: math.Inf(1)}
}

// AtMost returns the constraint f ≤ a.
func AtMost(f Function, a float64) *Constraint {
	return &Constraint{Function: f, Min: math.Inf(-1), Max: a}
}

// AtLeast returns the constraint f ≥ a.
func AtLeast(f Function, a float64) *Constraint {
	return &Constraint{Function: f, Min: a, Max: math.Inf(1)}
}

// Satisfied reports whether the constraint holds at p within tol.
func (c *Constraint) Satisfied(p *Point, tol float64) (bool, error) {
	v, err := c.Function.Value(p)
	if err != nil {
		return false, err
	}
	return c.Holds(v, tol), nil
}

// Holds reports whether the function value v lies within the bounds, up to
// tol.
func (c *Constraint) Holds(v, tol float64) bool { return v >= c.Min-tol && v <= c.Max+tol }

func (c *Constraint) String() string {
	switch {
	case math.IsInf(c.Min, -1):
		return fmt.Sprintf("%s <= %s", c.Function, formatFloat(c.Max))
	case math.IsInf(c.Max, 1):
		return fmt.Sprintf("%s >= %s", c.Function, formatFloat(c.Min))
	}
	return fmt.Sprintf("%s <= %s <= %s", formatFloat(c.Min), c.Function, formatFloat(c.Max))
}

// EqualityConstraint requires Function = Value.
type EqualityConstraint struct {
	Function Function
	Value    float64
}

// EqualTo returns the constraint f = a.
func EqualTo(f Function, a float64) *EqualityConstraint {
	return &EqualityConstraint{Function: f, Value: a}
}

// Equal returns the constraint f = g.
func Equal(f, g Function) *EqualityConstraint {
	return &EqualityConstraint{Function: Sub(f, g), Value: 0}
}

// Satisfied reports whether |f(p) - Value| ≤ tol.
func (c *EqualityConstraint) Satisfied(p *Point, tol float64) (bool, error) {
	v, err := c.Function.Value(p)
	if err != nil {
		return false, err
	}
	return c.Holds(v, tol), nil
}

// Holds reports whether the function value v is within tol of Value.
func (c *EqualityConstraint) Holds(v, tol float64) bool { return math.Abs(v-c.Value) <= tol }

func (c *EqualityConstraint) String() string {
	return fmt.Sprintf("%s = %s", c.Function, formatFloat(c.Value))
}
