package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/internal/config"
	"github.com/njchilds90/symdiff/internal/problem"
)

// Version is set at build time.
var Version = "dev"

// app holds the state shared by the subcommands.
type app struct {
	cfgFile  string
	logLevel string
	output   string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "symdiff",
		Short: "Evaluate and differentiate optimization problems",
		Long: `symdiff reads a problem document (YAML or JSON) holding an objective
expression, optional constraints and a start point. It evaluates the
objective with its exact gradient and Hessian, checks them against finite
differences, prints derivatives and minimizes with gonum's optimizers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides the configuration)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		a.evalCmd(),
		a.gradientCmd(),
		a.hessianCmd(),
		a.checkCmd(),
		a.minimizeCmd(),
		a.printCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	switch a.output {
	case "text", "json", "yaml":
	default:
		return errors.Errorf("unknown output format %q", a.output)
	}
	a.cfg = cfg
	a.log = cfg.Log.Logger()
	symdiff.SetLogger(a.log)
	return nil
}

// load reads the problem and the point given by --at, defaulting to the
// start point.
func (a *app) load(path string, at map[string]string) (*problem.Problem, *symdiff.Point, error) {
	p, err := problem.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if len(at) == 0 {
		return p, p.Start, nil
	}
	values := make(map[string]float64, len(at))
	for name, s := range at {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "--at %s", name)
		}
		values[name] = x
	}
	pt, err := p.Point(values)
	if err != nil {
		return nil, nil, err
	}
	return p, pt, nil
}

func (a *app) query() problem.Query {
	return problem.Query{Compact: a.cfg.Evaluator.Mode == config.ModeCompact}
}

// write prints v as JSON or YAML, or calls text for the text format.
func (a *app) write(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch a.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	text(w)
	return nil
}

func writeVector(w io.Writer, names []string, xs []float64) {
	for i, x := range xs {
		fmt.Fprintf(w, "%s\t%s\n", names[i], strconv.FormatFloat(x, 'g', -1, 64))
	}
}

func writeAssignments(w io.Writer, p *symdiff.Point) {
	as := p.Assignments()
	sort.Slice(as, func(i, j int) bool { return as[i].Variable.String() < as[j].Variable.String() })
	for _, a := range as {
		fmt.Fprintf(w, "%s\t%s\n", a.Variable, strconv.FormatFloat(a.Value, 'g', -1, 64))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "symdiff %s\n", Version)
		},
	}
}
