package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/internal/problem"
	"github.com/njchilds90/symdiff/optim"
)

func atFlag(cmd *cobra.Command, at *map[string]string) {
	cmd.Flags().StringToStringVar(at, "at", nil, "point to evaluate at, e.g. x=1,y=2 (default: the start point)")
}

func (a *app) evalCmd() *cobra.Command {
	var at map[string]string
	cmd := &cobra.Command{
		Use:   "eval PROBLEM",
		Short: "Evaluate the objective and constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, pt, err := a.load(args[0], at)
			if err != nil {
				return err
			}
			ev, err := p.Evaluate(pt, a.query())
			if err != nil {
				return err
			}
			return a.write(cmd.OutOrStdout(), ev, func(w io.Writer) {
				fmt.Fprintf(w, "value\t%g\n", ev.Value)
				for _, c := range ev.Constraints {
					mark := "ok"
					if !c.Satisfied {
						mark = "violated"
					}
					fmt.Fprintf(w, "%s\t%g\t%s\n", c.Constraint, c.Value, mark)
				}
			})
		},
	}
	atFlag(cmd, &at)
	return cmd
}

func (a *app) gradientCmd() *cobra.Command {
	var at map[string]string
	cmd := &cobra.Command{
		Use:   "gradient PROBLEM",
		Short: "Evaluate the exact gradient of the objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, pt, err := a.load(args[0], at)
			if err != nil {
				return err
			}
			q := a.query()
			q.Gradient = true
			ev, err := p.Evaluate(pt, q)
			if err != nil {
				return err
			}
			return a.write(cmd.OutOrStdout(), ev, func(w io.Writer) {
				writeVector(w, ev.Variables, ev.Gradient)
			})
		},
	}
	atFlag(cmd, &at)
	return cmd
}

func (a *app) hessianCmd() *cobra.Command {
	var at map[string]string
	cmd := &cobra.Command{
		Use:   "hessian PROBLEM",
		Short: "Evaluate the exact Hessian of the objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, pt, err := a.load(args[0], at)
			if err != nil {
				return err
			}
			q := a.query()
			q.Hessian = true
			ev, err := p.Evaluate(pt, q)
			if err != nil {
				return err
			}
			return a.write(cmd.OutOrStdout(), ev, func(w io.Writer) {
				fmt.Fprintf(w, "\t%s\n", strings.Join(ev.Variables, "\t"))
				for i, row := range ev.Hessian {
					cells := make([]string, len(row))
					for j, x := range row {
						cells[j] = fmt.Sprintf("%g", x)
					}
					fmt.Fprintf(w, "%s\t%s\n", ev.Variables[i], strings.Join(cells, "\t"))
				}
			})
		},
	}
	atFlag(cmd, &at)
	return cmd
}

// checkOutput is the serialized derivative check.
type checkOutput struct {
	OK          bool               `json:"ok" yaml:"ok"`
	MaxRelError float64            `json:"max_rel_error" yaml:"max_rel_error"`
	Mismatches  []symdiff.Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

func (a *app) checkCmd() *cobra.Command {
	var at map[string]string
	cmd := &cobra.Command{
		Use:   "check PROBLEM",
		Short: "Compare exact derivatives with finite differences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, pt, err := a.load(args[0], at)
			if err != nil {
				return err
			}
			report, err := p.Check(pt, a.cfg.Check.Settings())
			if err != nil {
				return err
			}
			out := checkOutput{OK: report.OK(), MaxRelError: report.MaxRelError, Mismatches: report.Mismatches}
			err = a.write(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, m := range report.Mismatches {
					fmt.Fprintln(w, m)
				}
				fmt.Fprintf(w, "max relative error %.3g\n", report.MaxRelError)
			})
			if err != nil {
				return err
			}
			if !report.OK() {
				return errors.Errorf("%d derivatives disagree", len(report.Mismatches))
			}
			return nil
		},
	}
	atFlag(cmd, &at)
	return cmd
}

// minimizeOutput is the serialized optimization result.
type minimizeOutput struct {
	Status     string             `json:"status" yaml:"status"`
	Value      float64            `json:"value" yaml:"value"`
	Point      map[string]float64 `json:"point" yaml:"point"`
	Iterations int                `json:"iterations" yaml:"iterations"`
	Evals      int                `json:"evaluations" yaml:"evaluations"`
}

func (a *app) minimizeCmd() *cobra.Command {
	var method string
	var maxIter int
	cmd := &cobra.Command{
		Use:   "minimize PROBLEM",
		Short: "Minimize the objective from the start point",
		Long: `Minimize the objective with a gonum optimizer, starting at the
problem's start point. Constraints are reported at the optimum but not
enforced. Methods: ` + strings.Join(optim.Methods, ", ") + ", auto.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			oc := a.cfg.Optimizer
			if method != "" {
				oc.Method = method
			}
			if maxIter > 0 {
				oc.MajorIterations = maxIter
			}
			m, err := oc.OptimizeMethod()
			if err != nil {
				return err
			}
			res, err := p.Minimize(oc.Settings(), m)
			if err != nil {
				return err
			}
			out := minimizeOutput{
				Status:     res.Status.String(),
				Value:      res.Value,
				Point:      make(map[string]float64),
				Iterations: res.Stats.MajorIterations,
				Evals:      res.Stats.FuncEvaluations,
			}
			for _, as := range res.Point.Assignments() {
				out.Point[as.Variable.String()] = as.Value
			}
			ev, err := p.Evaluate(res.Point, a.query())
			if err != nil {
				return err
			}
			return a.write(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "status\t%s\nvalue\t%g\n", out.Status, out.Value)
				writeAssignments(w, res.Point)
				for _, c := range ev.Constraints {
					if !c.Satisfied {
						fmt.Fprintf(w, "violated\t%s\t%g\n", c.Constraint, c.Value)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "optimization method (default: from the configuration)")
	cmd.Flags().IntVar(&maxIter, "max-iterations", 0, "major iteration limit")
	return cmd
}

func (a *app) printCmd() *cobra.Command {
	var wrt []string
	var latex bool
	cmd := &cobra.Command{
		Use:   "print PROBLEM",
		Short: "Print the objective or one of its derivatives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			vs := make([]*symdiff.Variable, len(wrt))
			for i, name := range wrt {
				v, ok := p.Variable(name)
				if !ok {
					return errors.Errorf("unknown variable %q", name)
				}
				vs[i] = v
			}
			f, err := symdiff.TryDerivative(p.Objective, vs...)
			if err != nil {
				return err
			}
			if a.output != "text" {
				doc, err := symdiff.Encode(f)
				if err != nil {
					return err
				}
				return a.write(cmd.OutOrStdout(), doc, nil)
			}
			if latex {
				fmt.Fprintln(cmd.OutOrStdout(), symdiff.LaTeX(f))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&wrt, "wrt", nil, "differentiate with respect to these variables in turn")
	cmd.Flags().BoolVar(&latex, "latex", false, "render as LaTeX")
	return cmd
}
