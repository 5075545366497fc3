// Package config loads the TOML configuration shared by the symdiff
// command-line tool and HTTP server.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/optimize"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/optim"
)

// Evaluator modes.
const (
	ModeStandard = "standard"
	ModeCompact  = "compact"
)

// Config is the root of symdiff.toml.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	Check     CheckConfig     `toml:"check"`
	Optimizer OptimizerConfig `toml:"optimizer"`
	Server    ServerConfig    `toml:"server"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// EvaluatorConfig selects how expressions are evaluated.
type EvaluatorConfig struct {
	// Mode is "standard" (memoized) or "compact" (no memo).
	Mode string `toml:"mode"`
}

// CheckConfig holds the derivative checker settings.
type CheckConfig struct {
	Tolerance   float64 `toml:"tolerance"`
	Step        float64 `toml:"step"`
	HessianStep float64 `toml:"hessian_step"`
	SkipHessian bool    `toml:"skip_hessian"`
}

// OptimizerConfig holds the gonum optimizer settings.
type OptimizerConfig struct {
	Method            string  `toml:"method"`
	MajorIterations   int     `toml:"major_iterations"`
	FuncEvaluations   int     `toml:"func_evaluations"`
	GradientThreshold float64 `toml:"gradient_threshold"`
	Runtime           string  `toml:"runtime"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address         string `toml:"address"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Evaluator: EvaluatorConfig{Mode: ModeStandard},
		Check:     CheckConfig{Tolerance: symdiff.DefaultCheckTolerance},
		Optimizer: OptimizerConfig{Method: "bfgs"},
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     "10s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "5s",
			MaxBodyBytes:    1 << 20,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	if err := c.Decode(string(data)); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	return c, nil
}

// Decode reads TOML over c and validates the result. Unknown keys are
// rejected.
func (c *Config) Decode(data string) error {
	md, err := toml.Decode(data, c)
	if err != nil {
		return errors.Wrap(err, "parse")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return c.Validate()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	switch c.Evaluator.Mode {
	case ModeStandard, ModeCompact:
	default:
		return errors.Errorf("evaluator.mode: want %s or %s, got %q", ModeStandard, ModeCompact, c.Evaluator.Mode)
	}
	if c.Check.Tolerance <= 0 {
		return errors.New("check.tolerance: must be positive")
	}
	if c.Check.Step < 0 || c.Check.HessianStep < 0 {
		return errors.New("check: steps must not be negative")
	}
	if _, err := optim.MethodByName(c.Optimizer.Method); err != nil && c.Optimizer.Method != "auto" {
		return errors.Wrap(err, "optimizer.method")
	}
	if c.Optimizer.MajorIterations < 0 || c.Optimizer.FuncEvaluations < 0 || c.Optimizer.GradientThreshold < 0 {
		return errors.New("optimizer: limits must not be negative")
	}
	for name, d := range map[string]string{
		"optimizer.runtime":       c.Optimizer.Runtime,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := duration(d); err != nil {
			return errors.Wrap(err, name)
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes: must be positive")
	}
	return nil
}

// duration parses d; an empty string is zero.
func duration(d string) (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	v, err := time.ParseDuration(d)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.Errorf("negative duration %s", d)
	}
	return v, nil
}

// Logger builds the logger described by the log section.
func (c *LogConfig) Logger() *logrus.Logger {
	l := logrus.New()
	if level, err := logrus.ParseLevel(c.Level); err == nil {
		l.SetLevel(level)
	}
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Settings returns the derivative checker settings.
func (c *CheckConfig) Settings() *symdiff.CheckSettings {
	return &symdiff.CheckSettings{
		Tolerance:   c.Tolerance,
		Step:        c.Step,
		HessianStep: c.HessianStep,
		SkipHessian: c.SkipHessian,
	}
}

// OptimizeMethod returns the configured gonum method; "auto" gives nil.
func (c *OptimizerConfig) OptimizeMethod() (optimize.Method, error) {
	if c.Method == "auto" {
		return nil, nil
	}
	return optim.MethodByName(c.Method)
}

// Settings returns the gonum settings. Zero limits keep gonum's defaults.
func (c *OptimizerConfig) Settings() *optimize.Settings {
	s := &optimize.Settings{
		MajorIterations:   c.MajorIterations,
		FuncEvaluations:   c.FuncEvaluations,
		GradientThreshold: c.GradientThreshold,
	}
	s.Runtime, _ = duration(c.Runtime)
	return s
}

// Timeouts returns the read, write and shutdown timeouts.
func (c *ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	read, _ = duration(c.ReadTimeout)
	write, _ = duration(c.WriteTimeout)
	shutdown, _ = duration(c.ShutdownTimeout)
	return read, write, shutdown
}
