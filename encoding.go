package symdiff

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ============================================================
// Serialization
// ============================================================

// Expr is the serialized form of one expression node. Type names the
// operation; Value holds the number of a "num" node and the constant of
// "scale" (factor), "recip" (numerator), "powconst" (exponent) and
// "constpow" (base) nodes. Name identifies a "sym" variable or the
// definition a "ref" points to.
type Expr struct {
	Type  string   `json:"type" yaml:"type"`
	Value *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Args  []*Expr  `json:"args,omitempty" yaml:"args,omitempty"`
}

// Definition names a shared sub-expression.
type Definition struct {
	Name string `json:"name" yaml:"name"`
	Expr *Expr  `json:"expr" yaml:"expr"`
}

// Document holds expressions whose shared sub-expressions are stored once,
// as definitions referenced by name. Decoding a document restores the
// sharing, so derivative memos and evaluators work as well on the decoded
// graph as on the original.
type Document struct {
	Variables   []string     `json:"variables,omitempty" yaml:"variables,omitempty"`
	Definitions []Definition `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Functions   []*Expr      `json:"functions" yaml:"functions"`
}

const (
	typeNum = "num"
	typeSym = "sym"
	typeRef = "ref"
	typeSum = "sum"
)

// Encode serializes fs into one document. Dual number nodes and their
// substitutions cannot be encoded.
func Encode(fs ...Function) (*Document, error) {
	enc := &encoder{
		parents: make(map[Function]int),
		defined: make(map[Function]string),
		names:   make(map[string]*Variable),
		doc:     &Document{},
	}
	for _, f := range fs {
		if err := enc.count(f); err != nil {
			return nil, err
		}
	}
	for _, f := range fs {
		enc.doc.Functions = append(enc.doc.Functions, enc.expr(f))
	}
	return enc.doc, nil
}

type encoder struct {
	parents map[Function]int
	defined map[Function]string
	names   map[string]*Variable
	doc     *Document
}

// count records how many parents reference each node and collects the
// variables.
func (enc *encoder) count(f Function) error {
	switch f := f.(type) {
	case *Constant:
		return nil
	case *Variable:
		name := f.String()
		if prev, ok := enc.names[name]; ok {
			if prev != f {
				return errors.Wrapf(ErrNotEncodable, "two variables named %q", name)
			}
			return nil
		}
		enc.names[name] = f
		enc.doc.Variables = append(enc.doc.Variables, name)
		return nil
	case *unary, *binary, *sum:
	default:
		return errors.Wrapf(ErrNotEncodable, "%s", f)
	}
	enc.parents[f]++
	if enc.parents[f] > 1 {
		return nil
	}
	for _, a := range f.args() {
		if err := enc.count(a); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) expr(f Function) *Expr {
	switch f := f.(type) {
	case *Constant:
		v := f.value
		return &Expr{Type: typeNum, Value: &v}
	case *Variable:
		return &Expr{Type: typeSym, Name: f.String()}
	}
	if name, ok := enc.defined[f]; ok {
		return &Expr{Type: typeRef, Name: name}
	}

	var e *Expr
	switch f := f.(type) {
	case *unary:
		e = &Expr{Type: f.op.String(), Args: []*Expr{enc.expr(f.arg)}}
		if f.op.hasParam() {
			v := f.param
			e.Value = &v
		}
	case *binary:
		e = &Expr{Type: f.op.String(), Args: []*Expr{enc.expr(f.f), enc.expr(f.g)}}
	case *sum:
		e = &Expr{Type: typeSum}
		for _, t := range f.terms {
			e.Args = append(e.Args, enc.expr(t))
		}
	}
	if enc.parents[f] < 2 {
		return e
	}
	name := fmt.Sprintf("s%d", len(enc.doc.Definitions)+1)
	enc.defined[f] = name
	enc.doc.Definitions = append(enc.doc.Definitions, Definition{Name: name, Expr: e})
	return &Expr{Type: typeRef, Name: name}
}

// Decode rebuilds the functions of doc. Variables are matched by name with
// vars; names that are not given are created. The returned map holds every
// variable in scope by name.
func Decode(doc *Document, vars ...*Variable) ([]Function, map[string]*Variable, error) {
	if doc == nil {
		return nil, nil, errors.Wrap(ErrInvalidDocument, "nil document")
	}
	dec := &decoder{
		vars: make(map[string]*Variable),
		defs: make(map[string]Function),
	}
	for _, v := range vars {
		if v == nil {
			return nil, nil, ErrNilVariable
		}
		dec.vars[v.String()] = v
	}
	for _, name := range doc.Variables {
		dec.variable(name)
	}
	for i, d := range doc.Definitions {
		if d.Name == "" {
			return nil, nil, errors.Wrapf(ErrInvalidDocument, "definitions[%d]: missing name", i)
		}
		if _, ok := dec.defs[d.Name]; ok {
			return nil, nil, errors.Wrapf(ErrInvalidDocument, "definition %q repeated", d.Name)
		}
		f, err := dec.expr(d.Expr)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "definition %q", d.Name)
		}
		dec.defs[d.Name] = f
	}
	fs := make([]Function, len(doc.Functions))
	for i, e := range doc.Functions {
		f, err := dec.expr(e)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "functions[%d]", i)
		}
		fs[i] = f
	}
	return fs, dec.vars, nil
}

type decoder struct {
	vars map[string]*Variable
	defs map[string]Function
}

func (dec *decoder) variable(name string) *Variable {
	if v, ok := dec.vars[name]; ok {
		return v
	}
	v := NewVariable(name)
	dec.vars[name] = v
	return v
}

func (dec *decoder) expr(e *Expr) (Function, error) {
	if e == nil {
		return nil, errors.Wrap(ErrInvalidDocument, "missing expression")
	}
	args := make([]Function, len(e.Args))
	for i, a := range e.Args {
		f, err := dec.expr(a)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: args[%d]", e.Type, i)
		}
		args[i] = f
	}
	arity := func(n int) error {
		if len(args) != n {
			return errors.Wrapf(ErrInvalidDocument, "%s: want %d arguments, got %d", e.Type, n, len(args))
		}
		return nil
	}
	value := func() (float64, error) {
		if e.Value == nil {
			return 0, errors.Wrapf(ErrInvalidDocument, "%s: missing value", e.Type)
		}
		return *e.Value, nil
	}

	switch e.Type {
	case typeNum:
		v, err := value()
		if err != nil {
			return nil, err
		}
		return Const(v), nil
	case typeSym:
		if e.Name == "" {
			return nil, errors.Wrap(ErrInvalidDocument, "sym: missing name")
		}
		return dec.variable(e.Name), nil
	case typeRef:
		f, ok := dec.defs[e.Name]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidDocument, "ref: unknown definition %q", e.Name)
		}
		return f, nil
	case typeSum, "add":
		if len(args) == 0 {
			return nil, errors.Wrapf(ErrInvalidDocument, "%s: no arguments", e.Type)
		}
		return Sum(args...), nil
	case "mul":
		if len(args) < 2 {
			return nil, arity(2)
		}
		f := args[0]
		for _, g := range args[1:] {
			f = Mul(f, g)
		}
		return f, nil
	case "min", "max":
		if err := arity(2); err != nil {
			return nil, err
		}
		if e.Type == "min" {
			return Min(args[0], args[1]), nil
		}
		return Max(args[0], args[1]), nil
	}

	for op, name := range binaryNames {
		if name == e.Type {
			if err := arity(2); err != nil {
				return nil, err
			}
			return binaryOp(op).build(args[0], args[1]), nil
		}
	}
	for op, name := range unaryNames {
		if name != e.Type {
			continue
		}
		if err := arity(1); err != nil {
			return nil, err
		}
		var a float64
		if unaryOp(op).hasParam() {
			v, err := value()
			if err != nil {
				return nil, err
			}
			a = v
		}
		return unaryOp(op).build(args[0], a), nil
	}
	return nil, errors.Wrapf(ErrInvalidDocument, "unknown expression type %q", e.Type)
}

// ToJSON encodes f as a JSON document.
func ToJSON(f Function) (string, error) {
	doc, err := Encode(f)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// FromJSON decodes a JSON document holding one function.
func FromJSON(data []byte, vars ...*Variable) (Function, map[string]*Variable, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrap(err, "symdiff: decode json")
	}
	fs, scope, err := Decode(&doc, vars...)
	if err != nil {
		return nil, nil, err
	}
	if len(fs) != 1 {
		return nil, nil, errors.Wrapf(ErrInvalidDocument, "want one function, got %d", len(fs))
	}
	return fs[0], scope, nil
}
