package symdiff

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrVariableNotAssigned matches *VariableNotAssignedError.
	ErrVariableNotAssigned = errors.New("symdiff: variable not assigned")
	// ErrUnsupportedOrder matches *UnsupportedOrderError.
	ErrUnsupportedOrder = errors.New("symdiff: unsupported derivative order")

	ErrConflictingAssignment = errors.New("symdiff: variable assigned twice with different values")
	ErrNilVariable           = errors.New("symdiff: nil variable")
	ErrRepeatedVariable      = errors.New("symdiff: variable listed twice")
	ErrNegativeOrder         = errors.New("symdiff: negative derivative order")
	ErrNoVariables           = errors.New("symdiff: no variables")
	ErrNotEncodable          = errors.New("symdiff: node cannot be encoded")
	ErrInvalidDocument       = errors.New("symdiff: invalid document")
)

// VariableNotAssignedError is returned when a point has no value for a
// variable that an evaluation needs.
type VariableNotAssignedError struct {
	Variable *Variable
}

func (e *VariableNotAssignedError) Error() string {
	return fmt.Sprintf("symdiff: variable %s not assigned", e.Variable)
}

func (e *VariableNotAssignedError) Is(target error) bool { return target == ErrVariableNotAssigned }

// UnsupportedOrderError reports a derivative order a node cannot provide.
type UnsupportedOrderError struct {
	Order    int
	Function string
}

func (e *UnsupportedOrderError) Error() string {
	return fmt.Sprintf("symdiff: derivative of order %d not supported by %s", e.Order, e.Function)
}

func (e *UnsupportedOrderError) Is(target error) bool { return target == ErrUnsupportedOrder }

// evalPanic carries an error out of a recursive evaluation. It never escapes
// the package: Evaluate recovers it.
type evalPanic struct{ err error }

func fail(err error) { panic(evalPanic{err: err}) }

// recoverEval turns an evalPanic into *err and re-panics anything else.
func recoverEval(err *error) {
	if r := recover(); r != nil {
		p, ok := r.(evalPanic)
		if !ok {
			panic(r)
		}
		*err = p.err
	}
}

// recoverOrder turns an *UnsupportedOrderError panic into *err.
func recoverOrder(err *error) {
	if r := recover(); r != nil {
		e, ok := r.(*UnsupportedOrderError)
		if !ok {
			panic(r)
		}
		*err = e
	}
}
