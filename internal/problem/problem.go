// Package problem reads optimization problem documents and evaluates them.
// The command-line tool and the HTTP server share it.
//
// A document names the variables, optional shared sub-expressions, the
// objective, optional constraints and a start point:
//
//	name: rosenbrock
//	variables: [x, y]
//	objective:
//	  type: add
//	  args: [...]
//	constraints:
//	  - {expr: {type: sym, name: x}, max: 2}
//	start: {x: -1.2, y: 1}
package problem

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"
	"gopkg.in/yaml.v3"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/optim"
)

// Format is the encoding of a document.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf guesses the format from a file extension. Anything that is not
// .json is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Document is the serialized problem.
type Document struct {
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	Variables   []string             `json:"variables,omitempty" yaml:"variables,omitempty"`
	Definitions []symdiff.Definition `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Objective   *symdiff.Expr        `json:"objective" yaml:"objective"`
	Constraints []ConstraintDoc      `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Start       map[string]float64   `json:"start,omitempty" yaml:"start,omitempty"`
}

// ConstraintDoc bounds an expression. Equal excludes Min and Max.
type ConstraintDoc struct {
	Expr  *symdiff.Expr `json:"expr" yaml:"expr"`
	Min   *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Equal *float64      `json:"equal,omitempty" yaml:"equal,omitempty"`
}

// Problem is a decoded document.
type Problem struct {
	Name        string
	Objective   symdiff.Function
	Variables   []*symdiff.Variable
	Constraints []*symdiff.Constraint
	Equalities  []*symdiff.EqualityConstraint
	Start       *symdiff.Point

	scope map[string]*symdiff.Variable
}

// Load reads and decodes a document file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "problem: read")
	}
	p, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, errors.Wrapf(err, "problem: %s", path)
	}
	return p, nil
}

// Parse decodes a document in the given format.
func Parse(data []byte, format Format) (*Problem, error) {
	var doc Document
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode json")
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode yaml")
		}
	default:
		return nil, errors.Errorf("unknown format %q", format)
	}
	return New(&doc)
}

// New builds the problem of doc.
func New(doc *Document) (*Problem, error) {
	if doc.Objective == nil {
		return nil, errors.Wrap(symdiff.ErrInvalidDocument, "missing objective")
	}
	exprs := []*symdiff.Expr{doc.Objective}
	for i, c := range doc.Constraints {
		if c.Equal != nil && (c.Min != nil || c.Max != nil) {
			return nil, errors.Wrapf(symdiff.ErrInvalidDocument, "constraints[%d]: equal excludes min and max", i)
		}
		if c.Equal == nil && c.Min == nil && c.Max == nil {
			return nil, errors.Wrapf(symdiff.ErrInvalidDocument, "constraints[%d]: no bound", i)
		}
		exprs = append(exprs, c.Expr)
	}
	fs, scope, err := symdiff.Decode(&symdiff.Document{
		Variables:   doc.Variables,
		Definitions: doc.Definitions,
		Functions:   exprs,
	})
	if err != nil {
		return nil, err
	}

	p := &Problem{Name: doc.Name, Objective: fs[0], scope: scope}
	for _, name := range doc.Variables {
		p.Variables = append(p.Variables, scope[name])
	}
	if len(p.Variables) == 0 {
		p.Variables = symdiff.Variables(p.Objective)
	}
	for i, c := range doc.Constraints {
		f := fs[i+1]
		if c.Equal != nil {
			p.Equalities = append(p.Equalities, symdiff.EqualTo(f, *c.Equal))
			continue
		}
		lo, hi := math.Inf(-1), math.Inf(1)
		if c.Min != nil {
			lo = *c.Min
		}
		if c.Max != nil {
			hi = *c.Max
		}
		p.Constraints = append(p.Constraints, &symdiff.Constraint{Function: f, Min: lo, Max: hi})
	}
	if p.Start, err = p.Point(doc.Start); err != nil {
		return nil, errors.Wrap(err, "start")
	}
	return p, nil
}

// Variable returns the variable with the given name.
func (p *Problem) Variable(name string) (*symdiff.Variable, bool) {
	v, ok := p.scope[name]
	return v, ok
}

// Point assigns values by variable name.
func (p *Problem) Point(values map[string]float64) (*symdiff.Point, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	as := make([]symdiff.Assignment, 0, len(values))
	for _, name := range names {
		v, ok := p.scope[name]
		if !ok {
			return nil, errors.Errorf("unknown variable %q", name)
		}
		as = append(as, v.Assign(values[name]))
	}
	return symdiff.NewPoint(as...)
}

// Query selects what Evaluate computes besides the value.
type Query struct {
	Gradient bool
	Hessian  bool
	// Compact evaluates without memoization.
	Compact bool
}

// ConstraintValue is a constraint evaluated at a point.
type ConstraintValue struct {
	Constraint string  `json:"constraint" yaml:"constraint"`
	Value      float64 `json:"value" yaml:"value"`
	Satisfied  bool    `json:"satisfied" yaml:"satisfied"`
}

// Evaluation holds the values Evaluate computed. Gradient and Hessian
// follow the order of Variables.
type Evaluation struct {
	Variables   []string          `json:"variables" yaml:"variables"`
	Value       float64           `json:"value" yaml:"value"`
	Gradient    []float64         `json:"gradient,omitempty" yaml:"gradient,omitempty"`
	Hessian     [][]float64       `json:"hessian,omitempty" yaml:"hessian,omitempty"`
	Constraints []ConstraintValue `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// SatisfiedTolerance is the tolerance of constraint checks in Evaluate.
const SatisfiedTolerance = 1e-9

// Evaluate computes the objective and the queried derivatives at pt through
// one evaluator, then every constraint.
func (p *Problem) Evaluate(pt *symdiff.Point, q Query) (*Evaluation, error) {
	e := symdiff.NewEvaluator(pt)
	if q.Compact {
		e = symdiff.NewCompactEvaluator(pt)
	}
	out := &Evaluation{Variables: make([]string, len(p.Variables))}
	for i, v := range p.Variables {
		out.Variables[i] = v.String()
	}
	var err error
	if out.Value, err = e.Evaluate(p.Objective); err != nil {
		return nil, err
	}
	if q.Gradient {
		if out.Gradient, err = e.EvaluateAll(symdiff.Gradient(p.Objective, p.Variables)...); err != nil {
			return nil, err
		}
	}
	if q.Hessian {
		h := symdiff.Hessian(p.Objective, p.Variables)
		out.Hessian = make([][]float64, len(h))
		for i, row := range h {
			if out.Hessian[i], err = e.EvaluateAll(row...); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range p.Constraints {
		v, err := e.Evaluate(c.Function)
		if err != nil {
			return nil, err
		}
		out.Constraints = append(out.Constraints, ConstraintValue{
			Constraint: c.String(),
			Value:      v,
			Satisfied:  c.Holds(v, SatisfiedTolerance),
		})
	}
	for _, c := range p.Equalities {
		v, err := e.Evaluate(c.Function)
		if err != nil {
			return nil, err
		}
		out.Constraints = append(out.Constraints, ConstraintValue{
			Constraint: c.String(),
			Value:      v,
			Satisfied:  c.Holds(v, SatisfiedTolerance),
		})
	}
	return out, nil
}

// Check runs the derivative checker on the objective at pt.
func (p *Problem) Check(pt *symdiff.Point, settings *symdiff.CheckSettings) (*symdiff.CheckReport, error) {
	return symdiff.CheckDerivatives(p.Objective, p.Variables, pt, settings)
}

// Minimize minimizes the objective from the start point. Constraints are
// not enforced; the caller can inspect them at the optimum with Evaluate.
func (p *Problem) Minimize(settings *optimize.Settings, method optimize.Method) (*optim.Result, error) {
	return optim.Minimize(p.Objective, p.Variables, p.Start, settings, method)
}
